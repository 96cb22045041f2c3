package errors_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apierrors "github.com/feral-file/ff-sticker/internal/api/errors"
	"github.com/feral-file/ff-sticker/internal/domain"
)

func TestFromConversionError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apierrors.ErrorCode
	}{
		{
			name:       "invalid request",
			err:        domain.ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.ErrCodeValidationFailed,
		},
		{
			name:       "unsupported format",
			err:        domain.NewConversionError(domain.FailureUnsupportedFormat, "", errors.New("cannot convert application/pdf")),
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   apierrors.ErrCodeUnsupportedFormat,
		},
		{
			name:       "fetch failure",
			err:        domain.NewConversionError(domain.FailureFetch, "", errors.New("unexpected status code: 404")),
			wantStatus: http.StatusBadGateway,
			wantCode:   apierrors.ErrCodeFetchFailed,
		},
		{
			name: "exhausted",
			err: domain.NewConversionError(domain.FailureExhausted, "native",
				domain.NewConversionError(domain.FailureTranscode, "native", errors.New("boom"))),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apierrors.ErrCodeConversionFailed,
		},
		{
			name: "deadline wins over exhausted",
			err: domain.NewConversionError(domain.FailureExhausted, "ffmpeg",
				fmt.Errorf("failed to run ffmpeg: %w", context.DeadlineExceeded)),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   apierrors.ErrCodeTimeout,
		},
		{
			name:       "unknown",
			err:        errors.New("pool stopped"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apierrors.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := apierrors.FromConversionError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestAPIErrorString(t *testing.T) {
	err := apierrors.NewBadRequestError("bad", "a", "b")
	assert.JSONEq(t, `{"code":"bad_request","message":"bad","details":"a, b"}`, err.Error())
}
