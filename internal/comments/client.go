package comments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/docketpulse/docketpulse/internal/config"
)

const maxRetries = 3

// Client is a minimal regulations.gov v4 API client covering what the
// comment-processing stage needs: resolving a document's object ID and
// paging through its public comments.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *http.Client
}

func NewClient(cfg config.RegulationsConfig) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 250 {
		pageSize = 250
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Comment is a simplified public comment record.
type Comment struct {
	CommentID           string
	CommentText         string
	PostedDate          string
	LastModifiedDate    string
	CommentOnDocumentID string
}

type documentResponse struct {
	Data struct {
		Attributes struct {
			ObjectID string `json:"objectId"`
			Title    string `json:"title"`
		} `json:"attributes"`
	} `json:"data"`
}

type commentsResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Comment             string `json:"comment"`
			PostedDate          string `json:"postedDate"`
			ModifyDate          string `json:"modifyDate"`
			CommentOnDocumentID string `json:"commentOnDocumentId"`
		} `json:"attributes"`
	} `json:"data"`
	Meta struct {
		TotalPages int `json:"totalPages"`
	} `json:"meta"`
}

// DocumentObjectID resolves the API object ID that comments are filed under.
func (c *Client) DocumentObjectID(ctx context.Context, documentID string) (string, error) {
	var resp documentResponse
	if err := c.get(ctx, "/documents/"+url.PathEscape(documentID), nil, &resp); err != nil {
		return "", err
	}
	if resp.Data.Attributes.ObjectID == "" {
		return "", fmt.Errorf("document %s has no object id", documentID)
	}
	return resp.Data.Attributes.ObjectID, nil
}

// FetchComments pages through all comments on an object, up to maxPages.
func (c *Client) FetchComments(ctx context.Context, objectID string, maxPages int) ([]Comment, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []Comment
	for page := 1; page <= maxPages; page++ {
		var resp commentsResponse
		params := url.Values{
			"filter[commentOnId]": {objectID},
			"page[size]":          {strconv.Itoa(c.pageSize)},
			"page[number]":        {strconv.Itoa(page)},
			"sort":                {"lastModifiedDate,documentId"},
		}
		if err := c.get(ctx, "/comments", params, &resp); err != nil {
			return nil, fmt.Errorf("fetch comments page %d: %w", page, err)
		}

		for _, d := range resp.Data {
			all = append(all, Comment{
				CommentID:           d.ID,
				CommentText:         d.Attributes.Comment,
				PostedDate:          d.Attributes.PostedDate,
				LastModifiedDate:    d.Attributes.ModifyDate,
				CommentOnDocumentID: d.Attributes.CommentOnDocumentID,
			})
		}

		if len(resp.Data) == 0 || (resp.Meta.TotalPages > 0 && page >= resp.Meta.TotalPages) {
			break
		}
	}
	return all, nil
}

// get performs one API request with exponential backoff on rate limiting
// and transient server errors.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			}
		}

		retryable, err := c.doRequest(ctx, u, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, u string, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/vnd.api+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("api status %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("api status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("unmarshal response: %w", err)
	}
	return false, nil
}
