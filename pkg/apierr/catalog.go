package apierr

import "net/http"

// --- Common ---

func InvalidRequestBody() *Error {
	return New(CodeInvalidRequestBody, http.StatusBadRequest, "Invalid request body")
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, http.StatusInternalServerError, "Internal server error", cause)
}

// --- Document ---

func InvalidDocumentIDs() *Error {
	return New(CodeInvalidDocumentIDs, http.StatusBadRequest, "Invalid document IDs")
}

func DocumentNotFound() *Error {
	return New(CodeDocumentNotFound, http.StatusNotFound, "Document not found")
}

func StatusCheckFailed(cause error) *Error {
	return Wrap(CodeStatusCheckFailed, http.StatusInternalServerError, "Error checking document status", cause)
}

// --- Subscription ---

func ConnectionIDRequired() *Error {
	return New(CodeConnectionIDRequired, http.StatusBadRequest, "Connection ID is required")
}

func SubscribeFailed(cause error) *Error {
	return Wrap(CodeSubscribeFailed, http.StatusInternalServerError, "Failed to register subscriber", cause)
}

func UnsubscribeFailed(cause error) *Error {
	return Wrap(CodeUnsubscribeFailed, http.StatusInternalServerError, "Failed to remove subscriber", cause)
}

// --- Health ---

func DatabaseNotReady() *Error {
	return New(CodeDatabaseNotReady, http.StatusServiceUnavailable, "Database not ready")
}
