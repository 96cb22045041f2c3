package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-sticker/internal/api/errors"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker"
	"github.com/feral-file/ff-sticker/internal/stickermeta"
	"github.com/feral-file/ff-sticker/internal/webpmux"
)

// Config holds the REST handler limits
type Config struct {
	// MaxUploadSize caps the request body in bytes
	MaxUploadSize int64
	// ConvertTimeout bounds a single conversion
	ConvertTimeout time.Duration
}

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// ConvertSticker converts an upload or a URL into a tagged sticker
	// POST /api/v1/stickers (multipart: file | url, pack_name, author, categories, extra; or JSON ConvertRequest)
	ConvertSticker(c *gin.Context)

	// InspectSticker reads the pack metadata of a WebP sticker
	// POST /api/v1/stickers/inspect (multipart: file; or the raw WebP as body)
	InspectSticker(c *gin.Context)

	// HealthCheck returns the health status and transcode capabilities
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	cfg       Config
	converter sticker.Converter
	metadata  stickermeta.Encoder
}

// NewHandler creates a new REST API handler
func NewHandler(cfg Config, converter sticker.Converter, metadata stickermeta.Encoder) Handler {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 50 * 1024 * 1024
	}
	if cfg.ConvertTimeout <= 0 {
		cfg.ConvertTimeout = 2 * time.Minute
	}

	return &handler{
		cfg:       cfg,
		converter: converter,
		metadata:  metadata,
	}
}

// ConvertSticker converts the request source and responds with the WebP bytes
func (h *handler) ConvertSticker(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)

	var body ConvertRequest
	if isMultipart(c) {
		if err := h.bindMultipart(c, &body); err != nil {
			return
		}
	} else if err := c.ShouldBindJSON(&body); err != nil {
		respondBodyError(c, err, h.cfg.MaxUploadSize)
		return
	}

	if (len(body.Data) > 0) == (strings.TrimSpace(body.URL) != "") {
		respondValidationError(c, "exactly one of file or url is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ConvertTimeout)
	defer cancel()

	result, err := h.converter.Convert(ctx, body.ToDomain())
	if err != nil {
		respondConversionError(c, err)
		return
	}

	c.Header(HEADER_BACKEND, result.Backend)
	c.Header(HEADER_TAGGED, strconv.FormatBool(result.Tagged))
	c.Header(HEADER_CACHED, strconv.FormatBool(result.Cached))
	if result.PackID != "" {
		c.Header(HEADER_PACK_ID, result.PackID)
	}
	c.Data(http.StatusOK, domain.WEBP_MIME_TYPE, result.Data)
}

// bindMultipart fills body from a multipart form. It writes the error response itself.
func (h *handler) bindMultipart(c *gin.Context, body *ConvertRequest) error {
	body.URL = c.PostForm("url")
	body.PackName = c.PostForm("pack_name")
	body.Author = c.PostForm("author")
	body.Categories = formCategories(c.PostFormArray("categories"))

	if raw := c.PostForm("extra"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body.Extra); err != nil {
			respondValidationError(c, "extra must be a JSON object")
			return err
		}
	}

	fileHeader, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return nil
	case err != nil:
		respondBodyError(c, err, h.cfg.MaxUploadSize)
		return err
	}

	data, err := readFormFile(fileHeader)
	if err != nil {
		respondBadRequest(c, "Failed to read uploaded file", err.Error())
		return err
	}
	body.Data = data
	body.Filename = fileHeader.Filename
	return nil
}

// InspectSticker decodes the sticker metadata of an uploaded WebP
func (h *handler) InspectSticker(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)

	var data []byte
	if isMultipart(c) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				respondValidationError(c, "file is required")
				return
			}
			respondBodyError(c, err, h.cfg.MaxUploadSize)
			return
		}
		data, err = readFormFile(fileHeader)
		if err != nil {
			respondBadRequest(c, "Failed to read uploaded file", err.Error())
			return
		}
	} else {
		var err error
		data, err = io.ReadAll(c.Request.Body)
		if err != nil {
			respondBodyError(c, err, h.cfg.MaxUploadSize)
			return
		}
	}

	container, err := webpmux.Parse(data)
	if err != nil {
		respondBadRequest(c, "Not a WebP file", err.Error())
		return
	}

	payload, err := h.metadata.Decode(data)
	if err != nil {
		if errors.Is(err, stickermeta.ErrNoMetadata) {
			respondWithError(c, http.StatusUnprocessableEntity, &apierrors.APIError{
				Code:    apierrors.ErrCodeNoMetadata,
				Message: "WebP has no sticker metadata",
			})
			return
		}
		respondBadRequest(c, "Malformed sticker metadata", err.Error())
		return
	}

	width, height, err := container.CanvasSize()
	if err != nil {
		logger.WarnCtx(c.Request.Context(), "Failed to read canvas size", zap.Error(err))
	}

	c.JSON(http.StatusOK, InspectResponse{
		PackID:    payload.PackID,
		PackName:  payload.PackName,
		Publisher: payload.Publisher,
		Emojis:    payload.Emojis,
		Fields:    payload.Fields,
		Width:     width,
		Height:    height,
		Animated:  container.IsAnimated(),
		Size:      len(data),
	})
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Capabilities: h.converter.Capabilities(),
	})
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func readFormFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}

// formCategories accepts repeated fields as well as a single comma separated value
func formCategories(values []string) []string {
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}

	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
