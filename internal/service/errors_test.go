package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/escrowbid-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrowbid-backend/internal/repository"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *apperror.AppError
	}{
		{"quotation awarded", repository.ErrQuotationAwarded, ErrAlreadyAwarded},
		{"wrapped not found", fmt.Errorf("lookup: %w", repository.ErrBidNotFound), ErrBidNotFound},
		{"dispute exists", repository.ErrDisputeExists, ErrDuplicateDispute},
		{"not requester", repository.ErrNotRequester, ErrNotQuotationOwner},
		{"unknown", errors.New("connection reset"), ErrAwardFailed},
		{"deadline", context.DeadlineExceeded, ErrAwardFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, ErrAwardFailed)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, translate(nil, ErrPersistence))

	already := apperror.New(apperror.ErrCodeValidation, "x")
	assert.Same(t, already, translate(already, ErrPersistence))
}
