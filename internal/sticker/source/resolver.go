// Package source turns a conversion request into the bytes to sniff.
package source

import (
	"context"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/downloader"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/uri"
)

// Resolved is a request source materialised into memory
type Resolved struct {
	Data         []byte
	FilenameHint string
	// SourceURL is set when the bytes were fetched from a URL
	SourceURL string
}

// Resolver defines the interface for resolving request sources
//
//go:generate mockgen -source=resolver.go -destination=../../mocks/source_resolver.go -package=mocks -mock_names=Resolver=MockSourceResolver
type Resolver interface {
	// Resolve returns the request bytes, fetching the URL with a single GET when needed.
	// Content-addressed URIs (ipfs://, ar://, onchfs://) try each configured gateway in turn.
	// Fetch errors are classified as domain.FailureFetch.
	Resolve(ctx context.Context, req *domain.ConversionRequest) (*Resolved, error)
}

type resolver struct {
	downloader downloader.Downloader
	uris       uri.Resolver
}

// NewResolver creates a source resolver. A nil uri resolver accepts plain URLs only.
func NewResolver(d downloader.Downloader, uris uri.Resolver) Resolver {
	return &resolver{
		downloader: d,
		uris:       uris,
	}
}

func (r *resolver) Resolve(ctx context.Context, req *domain.ConversionRequest) (*Resolved, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if len(req.Data) > 0 {
		return &Resolved{
			Data:         req.Data,
			FilenameHint: req.FilenameHint,
		}, nil
	}

	if uri.IsDataURI(req.URL) {
		return r.resolveDataURI(req)
	}

	candidates := []string{req.URL}
	if r.uris != nil {
		var err error
		candidates, err = r.uris.Candidates(req.URL)
		if err != nil {
			return nil, domain.NewConversionError(domain.FailureFetch, "", err)
		}
	}

	var (
		result *downloader.DownloadResult
		err    error
	)
	for _, candidate := range candidates {
		result, err = r.downloader.Download(ctx, candidate)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		logger.WarnCtx(ctx, "Failed to fetch source candidate", zap.String("url", candidate), zap.Error(err))
	}
	if err != nil {
		return nil, domain.NewConversionError(domain.FailureFetch, "", err)
	}

	hint := req.FilenameHint
	if hint == "" {
		hint = result.Filename
	}

	return &Resolved{
		Data:         result.Data,
		FilenameHint: hint,
		SourceURL:    req.URL,
	}, nil
}

func (r *resolver) resolveDataURI(req *domain.ConversionRequest) (*Resolved, error) {
	decoded, err := uri.DecodeDataURI(req.URL)
	if err != nil {
		return nil, domain.NewConversionError(domain.FailureFetch, "", err)
	}

	hint := req.FilenameHint
	if hint == "" {
		if mtype := mimetype.Lookup(decoded.MediaType); mtype != nil {
			hint = "inline" + mtype.Extension()
		}
	}

	return &Resolved{
		Data:         decoded.Data,
		FilenameHint: hint,
	}, nil
}
