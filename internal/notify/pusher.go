package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPPusher delivers events by POSTing to the connection-management
// endpoint's per-connection path. The endpoint is the external broadcast
// transport's management API; wss:// endpoints are addressed over https.
type HTTPPusher struct {
	endpoint string
	http     *http.Client
}

func NewHTTPPusher(endpoint string) *HTTPPusher {
	endpoint = strings.TrimRight(endpoint, "/")
	if strings.HasPrefix(endpoint, "wss://") {
		endpoint = "https://" + strings.TrimPrefix(endpoint, "wss://")
	}
	return &HTTPPusher{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPPusher) Push(ctx context.Context, connectionID string, payload []byte) error {
	u := p.endpoint + "/@connections/" + url.PathEscape(connectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("post to connection: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusGone, http.StatusForbidden:
		// 410 means the connection dropped; 403 means we can no longer
		// verify it. Either way the registration is dead.
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrGone)
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
