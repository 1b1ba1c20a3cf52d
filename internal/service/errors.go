package service

import (
	"errors"
	"strings"

	"labdesk/internal/remote"
)

var (
	ErrActionInProgress = errors.New("an action is already in progress for this request")
	ErrUnsupportedKind  = errors.New("action not supported for this request kind")
	ErrSessionNotFound  = errors.New("session not found")
	ErrRateLimited      = errors.New("too many decisions, try again later")
	ErrEmptyDestination = errors.New("navigation destination is empty")
	ErrLabNotFound      = errors.New("lab not found")
)

// OperatorMessage picks the single line shown to the operator for err:
// the server's detail, else its error field, else the transport message,
// else fallback.
func OperatorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		if apiErr.ErrorText != "" {
			return apiErr.ErrorText
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
