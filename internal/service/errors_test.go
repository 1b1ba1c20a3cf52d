package service

import (
	"errors"
	"fmt"
	"testing"

	"labdesk/internal/remote"

	"github.com/stretchr/testify/assert"
)

type blankError struct{}

func (blankError) Error() string { return " " }

func TestOperatorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Nil", nil, ""},
		{"Detail", &remote.APIError{StatusCode: 400, Detail: "Slot taken", ErrorText: "conflict"}, "Slot taken"},
		{"ErrorField", &remote.APIError{StatusCode: 400, ErrorText: "conflict"}, "conflict"},
		{"Wrapped", fmt.Errorf("approve: %w", &remote.APIError{StatusCode: 409, Detail: "Already decided"}), "Already decided"},
		{"StatusOnly", &remote.APIError{StatusCode: 500}, "request failed with status code 500"},
		{"Transport", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
		{"Fallback", blankError{}, "Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OperatorMessage(tt.err, "Failed"))
		})
	}
}
