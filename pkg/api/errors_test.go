package api

import (
	"fmt"
	"net/http"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"

	"github.com/optics-run/optics/pkg/opticserr"
	"github.com/optics-run/optics/pkg/session"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectMsg  string
	}{
		{
			name:       "keyword not found maps to its registry status",
			err:        opticserr.New(opticserr.CodeKeywordNotFound),
			expectCode: opticserr.New(opticserr.CodeKeywordNotFound).HTTPStatus(),
			expectMsg:  "keyword",
		},
		{
			name:       "session not found maps to 404",
			err:        fmt.Errorf("wrapped: %w", session.ErrNotFound),
			expectCode: http.StatusNotFound,
			expectMsg:  "session not found",
		},
		{
			name:       "unknown error maps to 500",
			err:        fmt.Errorf("something unexpected happened"),
			expectCode: http.StatusInternalServerError,
			expectMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := mapError(tt.err)
			assert.IsType(t, &echo.HTTPError{}, he)
			assert.Equal(t, tt.expectCode, he.Code)
			assert.Contains(t, he.Error(), tt.expectMsg)
		})
	}
}

func TestMapErrorPreservesStructuredPayload(t *testing.T) {
	err := opticserr.New(opticserr.CodeElementExhausted).WithDetails("name", "submit_button")
	he := mapError(err)

	payload, ok := he.Message.(ErrorPayload)
	if assert.True(t, ok, "expected ErrorPayload message") {
		assert.Equal(t, string(opticserr.CodeElementExhausted), payload.Code)
		assert.Equal(t, "submit_button", payload.Details["name"])
	}
}
