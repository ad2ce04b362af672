package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
)

// DefaultTimeout bounds every upstream call made with the default HTTP client
const DefaultTimeout = 15 * time.Second

// UpstreamError is returned when an upstream service answers with a non-2xx status
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s error (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s error (status %d): %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned status code %d", e.Service, e.StatusCode)
}

// IsUpstream reports whether err carries an UpstreamError
func IsUpstream(err error) bool {
	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr)
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// fetch runs the builder, decoding a 2xx body into dst and turning any other
// status into an UpstreamError that keeps the body for the user-facing message
func fetch(ctx context.Context, service string, b *requests.Builder, dst any) error {
	var errBody string
	if dst != nil {
		b = b.ToJSON(dst)
	}

	err := b.
		AddValidator(requests.ValidatorHandler(requests.DefaultValidator, requests.ToString(&errBody))).
		Fetch(ctx)
	if err == nil {
		return nil
	}

	var respErr *requests.ResponseError
	if errors.As(err, &respErr) {
		return &UpstreamError{
			Service:    service,
			StatusCode: respErr.StatusCode,
			Message:    extractMessage(errBody),
			Body:       strings.TrimSpace(errBody),
		}
	}

	return fmt.Errorf("%s request failed: %w", service, err)
}

// extractMessage pulls a human readable message out of a JSON error payload
func extractMessage(body string) string {
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	for _, key := range []string{"error", "message", "msg"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
