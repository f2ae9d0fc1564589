package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// APIError is returned when the dashboard API answers with a non-success
// status.
type APIError struct {
	Endpoint   Endpoint
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a failed response body. The dashboard
// reports failures as JSON with the text under one of several keys; anything
// else falls back to the body itself or the status text.
func newAPIError(ep Endpoint, status int, body []byte) *APIError {
	msg := ""
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"errormsg", "message", "info", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				msg = s
				break
			}
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" || strings.HasPrefix(msg, "<") {
		msg = http.StatusText(status)
	}
	return &APIError{Endpoint: ep, StatusCode: status, Message: msg}
}

// ParseError turns a fetch failure into the text shown to the user.
func ParseError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "unable to reach server: " + netErr.Error()
	}
	return err.Error()
}
