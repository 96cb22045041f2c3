package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker/workspace"
)

// FFmpegConfig holds the primary backend knobs
type FFmpegConfig struct {
	// PrimarySize is the square edge of the first pass
	PrimarySize int
	// ReducedSize is the square edge of the single downgrade pass
	ReducedSize int
	// FrameRate is the output frame rate
	FrameRate int
	// MaxOutputSize is the byte limit that triggers the downgrade pass
	MaxOutputSize int
}

// demuxers maps sniffed extensions whose ffmpeg demuxer has a different name
var demuxers = map[string]string{
	"mkv":  "matroska",
	"webm": "matroska",
	"m4v":  "mp4",
	"3gp":  "mov",
	"qt":   "mov",
}

type ffmpegBackend struct {
	cfg       FFmpegConfig
	caps      Capabilities
	runner    adapter.CommandRunner
	workspace *workspace.Manager
	fs        adapter.FileSystem
}

// NewFFmpegBackend creates the primary backend. It is available only when caps report a working libwebp encoder.
func NewFFmpegBackend(
	cfg FFmpegConfig,
	caps Capabilities,
	runner adapter.CommandRunner,
	ws *workspace.Manager,
	fs adapter.FileSystem,
) Backend {
	if cfg.PrimarySize <= 0 {
		cfg.PrimarySize = domain.DEFAULT_PRIMARY_SIZE
	}
	if cfg.ReducedSize <= 0 {
		cfg.ReducedSize = domain.DEFAULT_REDUCED_SIZE
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = domain.DEFAULT_FRAME_RATE
	}
	if cfg.MaxOutputSize <= 0 {
		cfg.MaxOutputSize = domain.DEFAULT_MAX_STICKER_SIZE
	}

	return &ffmpegBackend{
		cfg:       cfg,
		caps:      caps,
		runner:    runner,
		workspace: ws,
		fs:        fs,
	}
}

func (b *ffmpegBackend) Name() string {
	return NameFFmpeg
}

func (b *ffmpegBackend) Available() bool {
	return b.caps.PrimaryAvailable()
}

// Transcode runs the primary pass and, when its output is over the limit, exactly one reduced pass
func (b *ffmpegBackend) Transcode(ctx context.Context, media *domain.Media) ([]byte, error) {
	if !b.Available() {
		return nil, domain.ErrBackendUnavailable
	}

	out, err := b.transcodeAt(ctx, media, b.cfg.PrimarySize)
	if err != nil {
		return nil, err
	}

	err = b.checkSize(out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, domain.ErrOversizeOutput) {
		return nil, err
	}

	logger.InfoCtx(ctx, "Primary output over size limit, re-encoding at reduced size",
		zap.Int("size", len(out)),
		zap.Int("limit", b.cfg.MaxOutputSize),
		zap.Int("reducedSize", b.cfg.ReducedSize),
	)

	// The reduced pass is final, its size is not checked again
	return b.transcodeAt(ctx, media, b.cfg.ReducedSize)
}

func (b *ffmpegBackend) checkSize(out []byte) error {
	if len(out) > b.cfg.MaxOutputSize {
		return fmt.Errorf("%w: %d bytes", domain.ErrOversizeOutput, len(out))
	}
	return nil
}

// transcodeAt runs a single ffmpeg pass. Both temp files are removed on every exit path.
func (b *ffmpegBackend) transcodeAt(ctx context.Context, media *domain.Media, size int) ([]byte, error) {
	scope := b.workspace.Acquire()
	defer scope.Release()

	inPath, err := scope.Write(media.Format.Extension, media.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to stage input: %w", err)
	}
	outPath := scope.Path("webp")

	args := BuildFFmpegArgs(media.Format, inPath, outPath, size, b.cfg.FrameRate)

	logger.DebugCtx(ctx, "Running ffmpeg",
		zap.Int("targetSize", size),
		zap.String("mimeType", media.Format.MIMEType),
		zap.Strings("args", args),
	)

	if _, err := b.runner.Run(ctx, b.caps.FFmpegPath, args); err != nil {
		return nil, fmt.Errorf("failed to run ffmpeg at %dpx: %w", size, err)
	}

	out, err := b.fs.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ffmpeg output: %w", err)
	}

	logger.InfoCtx(ctx, "ffmpeg pass completed",
		zap.Int("targetSize", size),
		zap.Int("outputSize", len(out)),
	)

	return out, nil
}

// BuildFFmpegArgs returns the ffmpeg arguments for one pass. The output path is always the last argument.
func BuildFFmpegArgs(format domain.SniffedFormat, inPath, outPath string, size, frameRate int) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	if format.Kind == domain.MediaKindVideo && format.Extension != "" {
		demuxer, ok := demuxers[format.Extension]
		if !ok {
			demuxer = format.Extension
		}
		args = append(args, "-f", demuxer)
	}

	args = append(args,
		"-i", inPath,
		"-vcodec", "libwebp",
		"-vf", FilterGraph(size, frameRate),
		"-loop", "0",
		"-an",
		"-f", "webp",
		outPath,
	)
	return args
}

// FilterGraph scales into a size x size box, pads to a transparent square and
// re-encodes against a palette generated over all frames
func FilterGraph(size, frameRate int) string {
	s := strconv.Itoa(size)
	return "scale='min(" + s + ",iw)':'min(" + s + ",ih)':force_original_aspect_ratio=decrease," +
		"fps=" + strconv.Itoa(frameRate) + "," +
		"pad=" + s + ":" + s + ":-1:-1:color=white@0.0," +
		"split[a][b];" +
		"[a]palettegen=reserve_transparent=on:transparency_color=ffffff[p];" +
		"[b][p]paletteuse"
}
