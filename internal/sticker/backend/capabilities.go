package backend

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/logger"
)

const (
	defaultFFmpegPath  = "ffmpeg"
	defaultFFprobePath = "ffprobe"
)

// Capabilities is the set of external tools found at startup.
// It is built once by ProbeCapabilities and passed by value afterwards.
type Capabilities struct {
	FFmpeg     bool   `json:"ffmpeg"`
	FFprobe    bool   `json:"ffprobe"`
	FFmpegWebP bool   `json:"ffmpeg_webp"`
	FFmpegPath string `json:"ffmpeg_path,omitempty"`
	Version    string `json:"version,omitempty"`
}

// PrimaryAvailable reports whether the ffmpeg backend can produce WebP
func (c Capabilities) PrimaryAvailable() bool {
	return c.FFmpeg && c.FFmpegWebP
}

// ProbeCapabilities runs the tools once to find out what this host supports.
// Empty paths fall back to ffmpeg and ffprobe on PATH.
func ProbeCapabilities(ctx context.Context, runner adapter.CommandRunner, ffmpegPath, ffprobePath string) Capabilities {
	if ffmpegPath == "" {
		ffmpegPath = defaultFFmpegPath
	}
	if ffprobePath == "" {
		ffprobePath = defaultFFprobePath
	}

	var caps Capabilities

	if path, err := runner.LookPath(ffmpegPath); err == nil {
		out, err := runner.Run(ctx, path, []string{"-version"})
		if err != nil {
			logger.WarnCtx(ctx, "ffmpeg found but not runnable", zap.String("path", path), zap.Error(err))
		} else {
			caps.FFmpeg = true
			caps.FFmpegPath = path
			caps.Version = firstLine(out)
		}
	} else {
		logger.WarnCtx(ctx, "ffmpeg not found", zap.String("path", ffmpegPath), zap.Error(err))
	}

	if path, err := runner.LookPath(ffprobePath); err == nil {
		if _, err := runner.Run(ctx, path, []string{"-version"}); err == nil {
			caps.FFprobe = true
		}
	}

	if caps.FFmpeg {
		// Encode a single generated frame to stdout to prove libwebp is compiled in
		out, err := runner.Run(ctx, caps.FFmpegPath, []string{
			"-hide_banner", "-loglevel", "error",
			"-filter_complex", "color",
			"-frames:v", "1",
			"-f", "webp", "-",
		})
		if err != nil {
			logger.WarnCtx(ctx, "ffmpeg cannot encode webp", zap.Error(err))
		} else if ClassifyOutput(out) == VerdictWebP {
			caps.FFmpegWebP = true
		}
	}

	logger.InfoCtx(ctx, "Probed transcode capabilities",
		zap.Bool("ffmpeg", caps.FFmpeg),
		zap.Bool("ffprobe", caps.FFprobe),
		zap.Bool("ffmpegWebp", caps.FFmpegWebP),
		zap.String("version", caps.Version),
	)

	return caps
}

func firstLine(b []byte) string {
	line, _, _ := strings.Cut(string(b), "\n")
	return strings.TrimSpace(line)
}
