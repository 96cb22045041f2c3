package sticker_test

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/cache"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/downloader"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/mocks"
	"github.com/feral-file/ff-sticker/internal/sticker"
	"github.com/feral-file/ff-sticker/internal/sticker/backend"
	"github.com/feral-file/ff-sticker/internal/sticker/source"
	"github.com/feral-file/ff-sticker/internal/sticker/workspace"
	"github.com/feral-file/ff-sticker/internal/stickermeta"
)

func init() {
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

// minimalLossless is a 1x1 VP8L image with the alpha bit set
var minimalLossless = []byte{
	'R', 'I', 'F', 'F', 0x1a, 0x00, 0x00, 0x00, 'W', 'E', 'B', 'P',
	'V', 'P', '8', 'L', 0x0d, 0x00, 0x00, 0x00,
	0x2f, 0x00, 0x00, 0x00, 0x10, 0x07, 0x10, 0x11, 0x11, 0x88, 0x88, 0xfe, 0x07, 0x00,
}

// gifHeader is enough for the sniffer to classify the input as an image
var gifHeader = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

// mp4Header is an ftyp box for an isom brand file
var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
	0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2',
}

type fixture struct {
	downloader *mocks.MockDownloader
	primary    *mocks.MockBackend
	fallback   *mocks.MockBackend
}

func newFixture(ctrl *gomock.Controller) *fixture {
	primary := mocks.NewMockBackend(ctrl)
	primary.EXPECT().Name().Return("ffmpeg").AnyTimes()
	fallback := mocks.NewMockBackend(ctrl)
	fallback.EXPECT().Name().Return("native").AnyTimes()

	return &fixture{
		downloader: mocks.NewMockDownloader(ctrl),
		primary:    primary,
		fallback:   fallback,
	}
}

func (f *fixture) converter(metadata stickermeta.Encoder, c cache.Cache) sticker.Converter {
	return sticker.NewConverter(
		sticker.Config{Concurrency: 2, CacheVariant: "test"},
		backend.Capabilities{FFmpeg: true, FFmpegWebP: true},
		source.NewResolver(f.downloader, nil),
		[]backend.Backend{f.primary, f.fallback},
		metadata,
		c,
	)
}

func realEncoder() stickermeta.Encoder {
	return stickermeta.NewEncoder(adapter.NewJSON())
}

func TestConvertUnknownFormatShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No backend expectations beyond Name: any Available or Transcode call fails the test
	primary := mocks.NewMockBackend(ctrl)
	fallback := mocks.NewMockBackend(ctrl)
	conv := sticker.NewConverter(sticker.Config{}, backend.Capabilities{},
		source.NewResolver(mocks.NewMockDownloader(ctrl), nil),
		[]backend.Backend{primary, fallback}, realEncoder(), nil)
	defer conv.Close()

	for _, data := range [][]byte{
		{0x00, 0x01, 0x02, 0x03, 0xde, 0xad, 0xbe, 0xef, 0x13, 0x37},
		[]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"),
	} {
		_, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: data})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
		assert.Equal(t, domain.FailureUnsupportedFormat, domain.KindOf(err))
	}
}

func TestConvertPrimarySuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.primary.EXPECT().Available().Return(true)
	f.primary.EXPECT().Transcode(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, media *domain.Media) ([]byte, error) {
			assert.Equal(t, "image/gif", media.Format.MIMEType)
			assert.Equal(t, "Pack", media.Metadata.PackName)
			return minimalLossless, nil
		})

	conv := f.converter(realEncoder(), nil)
	defer conv.Close()

	result, err := conv.Convert(context.Background(), &domain.ConversionRequest{
		Data:     gifHeader,
		Metadata: &domain.PackMetadata{PackName: "Pack", Author: "Me"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", result.Backend)
	assert.True(t, result.Tagged)
	assert.Len(t, result.PackID, 32)
	assert.False(t, result.Cached)

	payload, err := realEncoder().Decode(result.Data)
	require.NoError(t, err)
	assert.Equal(t, result.PackID, payload.PackID)
	assert.Equal(t, "Pack", payload.PackName)
	assert.Equal(t, "Me", payload.Publisher)
	assert.Equal(t, []string{""}, payload.Emojis)
}

func TestConvertHTMLOutputFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	gomock.InOrder(
		f.primary.EXPECT().Available().Return(true),
		f.primary.EXPECT().Transcode(gomock.Any(), gomock.Any()).
			Return([]byte("<html><body>Service Unavailable</body></html>"), nil),
		f.fallback.EXPECT().Available().Return(true),
		f.fallback.EXPECT().Transcode(gomock.Any(), gomock.Any()).Return(minimalLossless, nil),
	)

	conv := f.converter(realEncoder(), nil)
	defer conv.Close()

	result, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
	require.NoError(t, err)
	assert.Equal(t, "native", result.Backend)
	assert.True(t, result.Tagged)
	assert.Equal(t, backend.VerdictWebP, backend.ClassifyOutput(result.Data))
}

func TestConvertSkipsUnavailablePrimary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.primary.EXPECT().Available().Return(false)
	f.fallback.EXPECT().Available().Return(true)
	f.fallback.EXPECT().Transcode(gomock.Any(), gomock.Any()).Return(minimalLossless, nil)

	conv := f.converter(realEncoder(), nil)
	defer conv.Close()

	result, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
	require.NoError(t, err)
	assert.Equal(t, "native", result.Backend)
}

func TestConvertExhaustedCarriesLastError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.primary.EXPECT().Available().Return(true)
	f.primary.EXPECT().Transcode(gomock.Any(), gomock.Any()).Return(nil, errors.New("primary boom"))
	f.fallback.EXPECT().Available().Return(true)
	f.fallback.EXPECT().Transcode(gomock.Any(), gomock.Any()).Return(nil, errors.New("fallback boom"))

	conv := f.converter(realEncoder(), nil)
	defer conv.Close()

	_, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
	require.Error(t, err)
	assert.Equal(t, domain.FailureExhausted, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrExhausted)
	assert.ErrorIs(t, err, domain.ErrTranscodeFailure)
	assert.Contains(t, err.Error(), "fallback boom")
	assert.NotContains(t, err.Error(), "primary boom")

	var convErr *domain.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "native", convErr.Backend)
}

func TestConvertAllBackendsUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.primary.EXPECT().Available().Return(false)
	f.fallback.EXPECT().Available().Return(false)

	conv := f.converter(realEncoder(), nil)
	defer conv.Close()

	_, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
	assert.ErrorIs(t, err, domain.ErrExhausted)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestConvertNoBackends(t *testing.T) {
	conv := sticker.NewConverter(sticker.Config{}, backend.Capabilities{},
		source.NewResolver(nil, nil), nil, realEncoder(), nil)
	defer conv.Close()

	_, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
	assert.ErrorIs(t, err, domain.ErrExhausted)
	assert.Contains(t, err.Error(), "no backends configured")
}

func TestConvertMetadataFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.primary.EXPECT().Available().Return(true)
	f.primary.EXPECT().Transcode(gomock.Any(), gomock.Any()).Return(minimalLossless, nil)

	metadata := mocks.NewMockMetadataEncoder(ctrl)
	metadata.EXPECT().Encode(minimalLossless, domain.PackMetadata{}).
		Return(nil, domain.ErrMetadataInjection)

	conv := f.converter(metadata, nil)
	defer conv.Close()

	result, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
	require.NoError(t, err)
	assert.False(t, result.Tagged)
	assert.Empty(t, result.PackID)
	assert.Equal(t, minimalLossless, result.Data)
	assert.Equal(t, len(minimalLossless), result.Size())
}

func TestConvertFetchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(ctrl)
	f.downloader.EXPECT().Download(gomock.Any(), "https://example.com/missing.gif").
		Return(nil, downloader.ErrUnexpectedStatus)

	conv := f.converter(realEncoder(), nil)
	defer conv.Close()

	_, err := conv.Convert(context.Background(), &domain.ConversionRequest{URL: "https://example.com/missing.gif"})
	assert.ErrorIs(t, err, domain.ErrFetchFailure)
	assert.ErrorIs(t, err, downloader.ErrUnexpectedStatus)
}

func TestConvertInvalidRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	conv := newFixture(ctrl).converter(realEncoder(), nil)
	defer conv.Close()

	_, err := conv.Convert(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader, URL: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestConvertCache(t *testing.T) {
	key := cache.Key(gifHeader, "test")

	t.Run("hit skips backends", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)
		mockCache := mocks.NewMockCache(ctrl)
		mockCache.EXPECT().Get(gomock.Any(), key).
			Return(&cache.Entry{Backend: "ffmpeg", Data: minimalLossless}, nil)

		conv := f.converter(realEncoder(), mockCache)
		defer conv.Close()

		result, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
		require.NoError(t, err)
		assert.True(t, result.Cached)
		assert.True(t, result.Tagged)
		assert.Equal(t, "ffmpeg", result.Backend)
	})

	t.Run("miss stores untagged output", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)
		f.primary.EXPECT().Available().Return(true)
		f.primary.EXPECT().Transcode(gomock.Any(), gomock.Any()).Return(minimalLossless, nil)

		mockCache := mocks.NewMockCache(ctrl)
		gomock.InOrder(
			mockCache.EXPECT().Get(gomock.Any(), key).Return(nil, nil),
			mockCache.EXPECT().Put(gomock.Any(), key, &cache.Entry{Backend: "ffmpeg", Data: minimalLossless}).Return(nil),
		)

		conv := f.converter(realEncoder(), mockCache)
		defer conv.Close()

		result, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
		require.NoError(t, err)
		assert.False(t, result.Cached)
	})

	t.Run("cache errors do not fail the conversion", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := newFixture(ctrl)
		f.primary.EXPECT().Available().Return(true)
		f.primary.EXPECT().Transcode(gomock.Any(), gomock.Any()).Return(minimalLossless, nil)

		mockCache := mocks.NewMockCache(ctrl)
		mockCache.EXPECT().Get(gomock.Any(), key).Return(nil, errors.New("disk full"))
		mockCache.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(errors.New("disk full"))

		conv := f.converter(realEncoder(), mockCache)
		defer conv.Close()

		_, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: gifHeader})
		require.NoError(t, err)
	})
}

func TestConvertOversizeVideoRunsPrimaryTwice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	memFs := afero.NewMemMapFs()
	fs := adapter.NewAferoFileSystem(memFs, "/tmp")
	ws, err := workspace.NewManager(fs, adapter.NewClock(), "/tmp/ff-sticker")
	require.NoError(t, err)

	caps := backend.Capabilities{FFmpeg: true, FFmpegWebP: true, FFmpegPath: "ffmpeg"}
	runner := mocks.NewMockCommandRunner(ctrl)

	oversize := make([]byte, domain.DEFAULT_MAX_STICKER_SIZE+500_000)
	copy(oversize, minimalLossless)
	binary.LittleEndian.PutUint32(oversize[4:], uint32(len(oversize)-8))

	outputs := [][]byte{oversize, minimalLossless}
	calls := 0
	runner.EXPECT().Run(gomock.Any(), "ffmpeg", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, args []string) ([]byte, error) {
			out := outputs[calls]
			calls++
			assert.Contains(t, args, "-f")
			assert.Contains(t, args, "mp4")
			return nil, afero.WriteFile(memFs, args[len(args)-1], out, 0o600)
		}).
		Times(2)

	conv := sticker.NewConverter(sticker.Config{}, caps,
		source.NewResolver(mocks.NewMockDownloader(ctrl), nil),
		[]backend.Backend{backend.NewFFmpegBackend(backend.FFmpegConfig{}, caps, runner, ws, fs)},
		realEncoder(), nil)
	defer conv.Close()

	result, err := conv.Convert(context.Background(), &domain.ConversionRequest{Data: mp4Header})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.LessOrEqual(t, result.Size(), domain.DEFAULT_MAX_STICKER_SIZE)
	assert.True(t, result.Tagged)
	assert.Equal(t, domain.MediaKindVideo, result.Format.Kind)

	entries, err := afero.ReadDir(memFs, "/tmp/ff-sticker")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCapabilities(t *testing.T) {
	caps := backend.Capabilities{FFmpeg: true, FFmpegWebP: true, Version: "ffmpeg version 6"}
	conv := sticker.NewConverter(sticker.Config{}, caps, source.NewResolver(nil, nil), nil, realEncoder(), nil)
	defer conv.Close()

	assert.Equal(t, caps, conv.Capabilities())
}
