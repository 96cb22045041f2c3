package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-sticker/internal/api/errors"
	"github.com/feral-file/ff-sticker/internal/logger"
)

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, apiErr *apierrors.APIError) {
	c.JSON(statusCode, apierrors.Response{Error: apiErr})
}

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, apierrors.NewValidationError(details))
}

// respondBodyError maps request body read errors, turning size limit hits into 413
func respondBodyError(c *gin.Context, err error, maxSize int64) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		respondWithError(c, http.StatusRequestEntityTooLarge,
			apierrors.NewPayloadTooLargeError("Upload too large", formatLimit(maxSize)))
		return
	}
	respondBadRequest(c, "Invalid request body", err.Error())
}

// respondConversionError maps a pipeline error to its HTTP response and logs it
func respondConversionError(c *gin.Context, err error) {
	status, apiErr := apierrors.FromConversionError(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.Request.URL.Path))
	} else {
		logger.WarnCtx(c.Request.Context(), "Sticker conversion rejected",
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	respondWithError(c, status, apiErr)
}
