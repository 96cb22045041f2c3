package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/logger"
)

// PUBLIC_VARIANT is the Cloudflare Images variant preferred for the public URL
const PUBLIC_VARIANT = "public"

// ErrEmptyUpload is returned when there is nothing to upload
var ErrEmptyUpload = errors.New("empty upload")

// Upload describes an image stored in Cloudflare Images
type Upload struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename"`
	URL        string            `json:"url"`
	Variants   map[string]string `json:"variants"`
	UploadedAt time.Time         `json:"uploaded_at"`
}

// Config holds the Cloudflare Images account and retry policy
type Config struct {
	AccountID         string
	RequireSignedURLs bool
	// MaxRetries is the number of retries after the first attempt
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// Uploader stores converted stickers and hands back a public URL
//
//go:generate mockgen -source=uploader.go -destination=../mocks/uploader.go -package=mocks -mock_names=Uploader=MockUploader
type Uploader interface {
	// Upload stores data under name with the given metadata
	Upload(ctx context.Context, data []byte, name string, meta map[string]any) (*Upload, error)

	// Delete removes a previously uploaded image
	Delete(ctx context.Context, id string) error
}

type uploader struct {
	cfClient adapter.CloudflareClient
	cfg      Config
	rc       *cloudflare.ResourceContainer
}

// NewUploader creates a Cloudflare Images uploader
func NewUploader(cfClient adapter.CloudflareClient, cfg Config) Uploader {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = time.Minute
	}

	return &uploader{
		cfClient: cfClient,
		cfg:      cfg,
		rc:       cloudflare.AccountIdentifier(cfg.AccountID),
	}
}

// Upload uploads the bytes with exponential backoff between attempts
func (u *uploader) Upload(ctx context.Context, data []byte, name string, meta map[string]any) (*Upload, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	attempt := 0
	var image cloudflare.Image
	operation := func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		// Each attempt needs a fresh reader over the same bytes
		img, err := u.cfClient.UploadImage(ctx, u.rc, cloudflare.UploadImageParams{
			File:              io.NopCloser(bytes.NewReader(data)),
			Name:              name,
			RequireSignedURLs: u.cfg.RequireSignedURLs,
			Metadata:          meta,
		})
		if err != nil {
			logger.WarnCtx(ctx, "Cloudflare Images upload failed",
				zap.String("name", name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}

		image = img
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.cfg.InitialInterval
	b.MaxInterval = 10 * u.cfg.InitialInterval
	b.MaxElapsedTime = u.cfg.MaxElapsedTime
	b.Multiplier = 2
	b.RandomizationFactor = 0.5

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, u.cfg.MaxRetries), ctx)); err != nil {
		return nil, fmt.Errorf("failed to upload image after %d attempts: %w", attempt, err)
	}

	result := buildUpload(image)

	logger.InfoCtx(ctx, "Uploaded sticker to Cloudflare Images",
		zap.String("imageID", result.ID),
		zap.String("url", result.URL),
		zap.Int("size", len(data)),
	)

	return result, nil
}

// Delete removes an image from Cloudflare Images
func (u *uploader) Delete(ctx context.Context, id string) error {
	if err := u.cfClient.DeleteImage(ctx, u.rc, id); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", id, err)
	}
	logger.InfoCtx(ctx, "Deleted image from Cloudflare Images", zap.String("imageID", id))
	return nil
}

// buildUpload maps variant URLs by name and picks the public one for URL
func buildUpload(image cloudflare.Image) *Upload {
	variants := make(map[string]string, len(image.Variants))
	for _, variantURL := range image.Variants {
		if name := variantName(variantURL); name != "" {
			variants[name] = variantURL
		}
	}

	publicURL := variants[PUBLIC_VARIANT]
	if publicURL == "" && len(image.Variants) > 0 {
		publicURL = image.Variants[0]
	}

	return &Upload{
		ID:         image.ID,
		Filename:   image.Filename,
		URL:        publicURL,
		Variants:   variants,
		UploadedAt: image.Uploaded,
	}
}

// variantName extracts the variant from https://imagedelivery.net/{account_hash}/{image_id}/{variant_name}
func variantName(variantURL string) string {
	if !strings.Contains(variantURL, "/") {
		return ""
	}
	return path.Base(variantURL)
}
