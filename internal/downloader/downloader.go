package downloader

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"

	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/logger"
)

var (
	// ErrUnexpectedStatus is returned for non-2xx responses
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrTooLarge is returned when the body exceeds the configured maximum size
	ErrTooLarge = errors.New("download exceeds maximum size")
)

// DownloadResult is a fully buffered download
type DownloadResult struct {
	Data        []byte
	ContentType string
	// Filename is taken from Content-Disposition or the URL path, and may be empty
	Filename string
}

// Downloader defines the interface for downloading media files
//
//go:generate mockgen -source=downloader.go -destination=../mocks/downloader.go -package=mocks -mock_names=Downloader=MockDownloader
type Downloader interface {
	// Download performs a single GET and buffers the body
	Download(ctx context.Context, url string) (*DownloadResult, error)
}

type downloader struct {
	httpClient adapter.HTTPClient
	io         adapter.IO
	maxSize    int64
}

// NewDownloader creates a downloader. A non-positive maxSize disables the size limit.
func NewDownloader(httpClient adapter.HTTPClient, ioAdapter adapter.IO, maxSize int64) Downloader {
	return &downloader{
		httpClient: httpClient,
		io:         ioAdapter,
		maxSize:    maxSize,
	}
}

// Download downloads a media file from a URL into memory
func (d *downloader) Download(ctx context.Context, rawURL string) (*DownloadResult, error) {
	logger.InfoCtx(ctx, "Downloading file", zap.String("url", rawURL))

	resp, err := d.httpClient.GetResponse(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.WarnCtx(ctx, "failed to close response body", zap.Error(err), zap.String("url", rawURL))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if d.maxSize > 0 && resp.ContentLength > d.maxSize {
		return nil, fmt.Errorf("%w: content length %d", ErrTooLarge, resp.ContentLength)
	}

	data, err := d.io.ReadAllLimited(resp.Body, d.maxSize)
	if err != nil {
		if errors.Is(err, adapter.ErrReadLimitExceeded) {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.maxSize)
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &DownloadResult{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    filenameOf(resp.Header.Get("Content-Disposition"), rawURL),
	}

	logger.InfoCtx(ctx, "Download completed",
		zap.String("url", rawURL),
		zap.String("contentType", result.ContentType),
		zap.Int("size", len(data)),
	)

	return result, nil
}

// filenameOf prefers the Content-Disposition filename over the last URL path segment
func filenameOf(disposition string, rawURL string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
