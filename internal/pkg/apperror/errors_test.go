package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrCodeValidation:    http.StatusBadRequest,
		ErrCodeBadRequest:    http.StatusBadRequest,
		ErrCodePrecondition:  http.StatusPreconditionFailed,
		ErrCodeConflict:      http.StatusConflict,
		ErrCodeNotFound:      http.StatusNotFound,
		ErrCodeForbidden:     http.StatusForbidden,
		ErrCodeUnauthorized:  http.StatusUnauthorized,
		ErrCodeDatabaseError: http.StatusInternalServerError,
		ErrCodeInternal:      http.StatusInternalServerError,
	}

	for code, status := range tests {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

func TestWithCauseKeepsIdentity(t *testing.T) {
	cause := errors.New("driver: connection reset")
	sentinel := New(ErrCodeConflict, "заявка уже присуждена")

	err := fmt.Errorf("award: %w", sentinel.WithCause(cause))

	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, ErrCodeConflict, CodeOf(err))
	assert.Equal(t, ErrCodeInternal, CodeOf(cause))
}

func TestIsComparesCodeAndMessage(t *testing.T) {
	a := New(ErrCodePrecondition, "ставка не в ожидании")
	b := New(ErrCodePrecondition, "заявка закрыта")

	assert.NotErrorIs(t, a, b)
	assert.ErrorIs(t, Wrap(errors.New("x"), ErrCodePrecondition, "заявка закрыта"), b)
	assert.True(t, IsPrecondition(a))
}
