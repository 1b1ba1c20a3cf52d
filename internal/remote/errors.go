package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrNotFound = errors.New("record not found")

// APIError is a non-2xx answer of the record service. Detail and ErrorText
// carry the server's "detail" and "error" fields when the body had them.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
	ErrorText  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// routeMissing reports whether the server has no such action route, in
// which case booking decisions fall back to a plain PATCH.
func (e *APIError) routeMissing() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusMethodNotAllowed
}

func newAPIError(req *http.Request, status int, body []byte) *APIError {
	apiErr := &APIError{Method: req.Method, Path: req.URL.Path, StatusCode: status}

	var payload struct {
		Detail any `json:"detail"`
		Error  any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Detail = messageText(payload.Detail)
		apiErr.ErrorText = messageText(payload.Error)
	}
	return apiErr
}

// messageText flattens the string or list-of-strings shapes DRF uses.
func messageText(v any) string {
	switch m := v.(type) {
	case string:
		return strings.TrimSpace(m)
	case []any:
		for _, item := range m {
			if s := messageText(item); s != "" {
				return s
			}
		}
	}
	return ""
}
