// Package sticker converts arbitrary images and short videos into tagged WhatsApp sticker WebPs.
package sticker

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/cache"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker/backend"
	"github.com/feral-file/ff-sticker/internal/sticker/sniffer"
	"github.com/feral-file/ff-sticker/internal/sticker/source"
	"github.com/feral-file/ff-sticker/internal/stickermeta"
)

// errNoBackends is the exhausted cause when the backend list is empty
var errNoBackends = errors.New("no backends configured")

// Result is a finished sticker
type Result struct {
	Data []byte
	// Backend is the name of the backend whose output was used
	Backend string
	// Tagged is false when metadata injection failed and Data is the untagged backend output
	Tagged bool
	PackID string
	Format domain.SniffedFormat
	// Cached is true when the backend output came from the result cache
	Cached bool
}

// Size returns the byte length of the sticker
func (r *Result) Size() int {
	return len(r.Data)
}

// Converter defines the interface for sticker conversion
//
//go:generate mockgen -source=converter.go -destination=../mocks/converter.go -package=mocks -mock_names=Converter=MockConverter
type Converter interface {
	// Convert resolves, sniffs, transcodes and tags a request.
	// Callers only ever see errors of kind UnsupportedFormat, FetchFailure or ExhaustedFailure,
	// plus domain.ErrInvalidRequest for malformed requests.
	Convert(ctx context.Context, req *domain.ConversionRequest) (*Result, error)

	// Capabilities returns the capabilities the converter was built with
	Capabilities() backend.Capabilities

	// Close waits for in-flight conversions and stops the worker pool
	Close() error
}

// Config holds configuration for the converter
type Config struct {
	// Concurrency bounds how many conversions run at once
	Concurrency int
	// CacheVariant is mixed into cache keys so output from different knobs never collides
	CacheVariant string
}

type converter struct {
	cfg      Config
	caps     backend.Capabilities
	pool     pond.ResultPool[*Result]
	resolver source.Resolver
	backends []backend.Backend
	metadata stickermeta.Encoder
	cache    cache.Cache
}

// NewConverter creates a converter trying backends in the given order. resultCache may be nil.
func NewConverter(
	cfg Config,
	caps backend.Capabilities,
	resolver source.Resolver,
	backends []backend.Backend,
	metadata stickermeta.Encoder,
	resultCache cache.Cache,
) Converter {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &converter{
		cfg:      cfg,
		caps:     caps,
		pool:     pond.NewResultPool[*Result](cfg.Concurrency),
		resolver: resolver,
		backends: backends,
		metadata: metadata,
		cache:    resultCache,
	}
}

func (c *converter) Capabilities() backend.Capabilities {
	return c.caps
}

func (c *converter) Close() error {
	c.pool.StopAndWait()
	return nil
}

// Convert runs the pipeline on the worker pool
func (c *converter) Convert(ctx context.Context, req *domain.ConversionRequest) (*Result, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}

	if logger.RequestID(ctx) == "" {
		ctx = logger.WithRequestID(ctx, uuid.NewString())
	}

	task := c.pool.SubmitErr(func() (*Result, error) {
		return c.convert(ctx, req)
	})

	return task.Wait()
}

func (c *converter) convert(ctx context.Context, req *domain.ConversionRequest) (*Result, error) {
	resolved, err := c.resolver.Resolve(ctx, req)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to resolve source", zap.Error(err))
		return nil, err
	}

	format := sniffer.Sniff(resolved.Data, resolved.FilenameHint)
	logger.InfoCtx(ctx, "Sniffed source format",
		zap.String("mimeType", format.MIMEType),
		zap.String("extension", format.Extension),
		zap.String("kind", string(format.Kind)),
		zap.Int("size", len(resolved.Data)),
	)

	if format.Kind == domain.MediaKindUnknown {
		return nil, domain.NewConversionError(domain.FailureUnsupportedFormat, "",
			fmt.Errorf("cannot convert %s", format.MIMEType))
	}

	media := &domain.Media{
		Data:      resolved.Data,
		SourceURL: resolved.SourceURL,
		Format:    format,
		Metadata:  req.PackMetadataOrDefault(),
	}

	out, backendName, cached, err := c.transcodeCached(ctx, media)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Data:    out,
		Backend: backendName,
		Format:  format,
		Cached:  cached,
	}

	tagged, err := c.metadata.Encode(out, media.Metadata)
	if err != nil {
		// Untagged output is still a usable sticker
		logger.WarnCtx(ctx, "Metadata injection failed, returning untagged sticker",
			zap.String("backend", backendName),
			zap.Error(err),
		)
		return result, nil
	}

	result.Data = tagged.Data
	result.Tagged = true
	result.PackID = tagged.PackID

	logger.InfoCtx(ctx, "Sticker conversion completed",
		zap.String("backend", backendName),
		zap.String("packId", tagged.PackID),
		zap.Int("size", len(result.Data)),
		zap.Bool("cached", cached),
	)

	return result, nil
}

// transcodeCached serves untagged output from the cache when possible
func (c *converter) transcodeCached(ctx context.Context, media *domain.Media) ([]byte, string, bool, error) {
	if c.cache == nil {
		out, name, err := c.transcode(ctx, media)
		return out, name, false, err
	}

	key := cache.Key(media.Data, c.cfg.CacheVariant)
	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.WarnCtx(ctx, "Cache lookup failed", zap.Error(err))
	}
	if entry != nil && backend.ClassifyOutput(entry.Data) == backend.VerdictWebP {
		return entry.Data, entry.Backend, true, nil
	}

	out, name, err := c.transcode(ctx, media)
	if err != nil {
		return nil, "", false, err
	}

	if err := c.cache.Put(ctx, key, &cache.Entry{Backend: name, Data: out}); err != nil {
		logger.WarnCtx(ctx, "Failed to cache conversion output", zap.Error(err))
	}
	return out, name, false, nil
}

// transcode tries each backend in order and returns the first output that is a real WebP.
// When none succeeds the last classified error is returned as ExhaustedFailure.
func (c *converter) transcode(ctx context.Context, media *domain.Media) ([]byte, string, error) {
	var (
		lastErr     error
		lastBackend string
	)

	for _, b := range c.backends {
		name := b.Name()

		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		if !b.Available() {
			logger.InfoCtx(ctx, "Skipping unavailable backend", zap.String("backend", name))
			if lastErr == nil {
				lastErr = domain.NewConversionError(domain.FailureBackendUnavailable, name, domain.ErrBackendUnavailable)
				lastBackend = name
			}
			continue
		}

		logger.InfoCtx(ctx, "Trying backend", zap.String("backend", name))

		out, err := b.Transcode(ctx, media)
		if err != nil {
			lastErr = domain.NewConversionError(domain.FailureTranscode, name, err)
			lastBackend = name
			logger.WarnCtx(ctx, "Backend failed", zap.String("backend", name), zap.Error(err))
			continue
		}

		if verdict := backend.ClassifyOutput(out); verdict != backend.VerdictWebP {
			lastErr = domain.NewConversionError(domain.FailureTranscode, name,
				fmt.Errorf("backend output rejected: %s", verdict))
			lastBackend = name
			logger.WarnCtx(ctx, "Backend returned non-WebP output",
				zap.String("backend", name),
				zap.String("verdict", verdict.String()),
				zap.Int("size", len(out)),
			)
			continue
		}

		return out, name, nil
	}

	if lastErr == nil {
		lastErr = errNoBackends
	}
	return nil, "", domain.NewConversionError(domain.FailureExhausted, lastBackend, lastErr)
}
