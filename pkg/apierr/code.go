package apierr

// Code is a machine-readable error code returned in API responses.
type Code string

// Common errors.
const (
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInternalError      Code = "INTERNAL_ERROR"
)

// Document errors.
const (
	CodeInvalidDocumentIDs Code = "INVALID_DOCUMENT_IDS"
	CodeDocumentNotFound   Code = "DOCUMENT_NOT_FOUND"
	CodeStatusCheckFailed  Code = "STATUS_CHECK_FAILED"
)

// Subscription errors.
const (
	CodeConnectionIDRequired Code = "CONNECTION_ID_REQUIRED"
	CodeSubscribeFailed      Code = "SUBSCRIBE_FAILED"
	CodeUnsubscribeFailed    Code = "UNSUBSCRIBE_FAILED"
)

// Health errors.
const (
	CodeDatabaseNotReady Code = "DATABASE_NOT_READY"
)
