package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/mocks"
	"github.com/feral-file/ff-sticker/internal/sticker"
	"github.com/feral-file/ff-sticker/internal/uploader"
	"github.com/feral-file/ff-sticker/internal/worker"
)

func init() {
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var testConfig = worker.Config{
	StreamName:    "STICKERS",
	ConsumerName:  "worker-sticker",
	JobSubject:    "stickers.jobs",
	ResultSubject: "stickers.results",
	MaxDeliver:    3,
	NakDelay:      time.Second,
}

type fixture struct {
	js        *mocks.MockJetStream
	converter *mocks.MockConverter
	uploader  *mocks.MockUploader
	clock     *mocks.MockClock
	msg       *mocks.MockJetStreamMessage
	worker    worker.Worker
}

func newFixture(t *testing.T, ctrl *gomock.Controller) *fixture {
	t.Helper()
	f := &fixture{
		js:        mocks.NewMockJetStream(ctrl),
		converter: mocks.NewMockConverter(ctrl),
		uploader:  mocks.NewMockUploader(ctrl),
		clock:     mocks.NewMockClock(ctrl),
		msg:       mocks.NewMockJetStreamMessage(ctrl),
	}
	f.clock.EXPECT().Now().Return(now).AnyTimes()
	f.msg.EXPECT().Subject().Return(testConfig.JobSubject).AnyTimes()
	f.worker = worker.NewWorker(testConfig, f.js, f.converter, f.uploader, adapter.NewJSON(), f.clock)
	return f
}

func jobData(t *testing.T, job worker.StickerJob) []byte {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return data
}

// expectResult captures the published result
func (f *fixture) expectResult(t *testing.T, into *worker.StickerResult, err error) *gomock.Call {
	return f.js.EXPECT().
		Publish(gomock.Any(), testConfig.ResultSubject, gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
			require.NoError(t, json.Unmarshal(data, into))
			assert.Len(t, opts, 1)
			if err != nil {
				return nil, err
			}
			return &jetstream.PubAck{Stream: testConfig.StreamName}, nil
		})
}

func TestHandleSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.msg.EXPECT().Data().Return(jobData(t, worker.StickerJob{
		ID:         "job-1",
		URL:        "https://example.com/cat.gif",
		PackName:   "Cats",
		Author:     "Me",
		Categories: []string{"😺"},
	}))

	f.converter.EXPECT().
		Convert(gomock.Any(), &domain.ConversionRequest{
			URL: "https://example.com/cat.gif",
			Metadata: &domain.PackMetadata{
				PackName:   "Cats",
				Author:     "Me",
				Categories: []string{"😺"},
			},
		}).
		DoAndReturn(func(ctx context.Context, req *domain.ConversionRequest) (*sticker.Result, error) {
			assert.Equal(t, "job-1", logger.RequestID(ctx))
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return &sticker.Result{Data: []byte("RIFFwebp"), Backend: "ffmpeg", Tagged: true, PackID: "pack"}, nil
		})

	f.uploader.EXPECT().
		Upload(gomock.Any(), []byte("RIFFwebp"), "job-1.webp", map[string]any{
			"job_id":  "job-1",
			"pack_id": "pack",
			"backend": "ffmpeg",
		}).
		Return(&uploader.Upload{ID: "img-1", URL: "https://imagedelivery.net/h/img-1/public"}, nil)

	var result worker.StickerResult
	f.expectResult(t, &result, nil)
	f.msg.EXPECT().Ack().Return(nil)

	f.worker.Handle(context.Background(), f.msg)

	assert.Equal(t, worker.StickerResult{
		JobID:       "job-1",
		Status:      worker.STATUS_SUCCEEDED,
		ImageID:     "img-1",
		URL:         "https://imagedelivery.net/h/img-1/public",
		PackID:      "pack",
		Backend:     "ffmpeg",
		Tagged:      true,
		Size:        8,
		CompletedAt: now,
	}, result)
}

func TestHandleAssignsJobID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.msg.EXPECT().Data().Return([]byte(`{"url":"https://example.com/a.png"}`))
	f.converter.EXPECT().Convert(gomock.Any(), gomock.Any()).
		Return(nil, domain.NewConversionError(domain.FailureUnsupportedFormat, "", nil))

	var result worker.StickerResult
	f.expectResult(t, &result, nil)
	f.msg.EXPECT().Ack().Return(nil)

	f.worker.Handle(context.Background(), f.msg)

	assert.Len(t, result.JobID, 26)
	assert.Equal(t, worker.STATUS_FAILED, result.Status)
	assert.Equal(t, domain.FailureUnsupportedFormat, result.ErrorKind)
}

func TestHandleConversionFailureIsFinal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.msg.EXPECT().Data().Return(jobData(t, worker.StickerJob{ID: "job-2", URL: "https://example.com/a.png"}))
	f.converter.EXPECT().Convert(gomock.Any(), gomock.Any()).
		Return(nil, domain.NewConversionError(domain.FailureExhausted, "native", errors.New("decode failed")))

	var result worker.StickerResult
	f.expectResult(t, &result, nil)
	f.msg.EXPECT().Ack().Return(nil)

	f.worker.Handle(context.Background(), f.msg)

	assert.Equal(t, "job-2", result.JobID)
	assert.Equal(t, worker.STATUS_FAILED, result.Status)
	assert.Equal(t, domain.FailureExhausted, result.ErrorKind)
	assert.Contains(t, result.Error, "decode failed")
	assert.Equal(t, now, result.CompletedAt)
}

func TestHandleFailureNotPublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.msg.EXPECT().Data().Return(jobData(t, worker.StickerJob{ID: "job-3", URL: "https://example.com/a.png"}))
	f.converter.EXPECT().Convert(gomock.Any(), gomock.Any()).
		Return(nil, domain.NewConversionError(domain.FailureFetch, "", nil))

	var result worker.StickerResult
	f.expectResult(t, &result, errors.New("nats down"))
	f.msg.EXPECT().Nak().Return(nil)

	f.worker.Handle(context.Background(), f.msg)
}

func TestHandleUploadFailure(t *testing.T) {
	tests := []struct {
		name         string
		numDelivered uint64
		metadataErr  error
		wantNak      bool
	}{
		{name: "first delivery", numDelivered: 1, wantNak: true},
		{name: "metadata unavailable", metadataErr: errors.New("not a jetstream message"), wantNak: true},
		{name: "last delivery", numDelivered: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			f := newFixture(t, ctrl)

			f.msg.EXPECT().Data().Return(jobData(t, worker.StickerJob{ID: "job-4", URL: "https://example.com/a.png"}))
			f.converter.EXPECT().Convert(gomock.Any(), gomock.Any()).
				Return(&sticker.Result{Data: []byte("RIFF"), Backend: "native"}, nil)
			f.uploader.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, errors.New("cloudflare 503"))

			if tt.metadataErr != nil {
				f.msg.EXPECT().Metadata().Return(nil, tt.metadataErr)
			} else {
				f.msg.EXPECT().Metadata().Return(&jetstream.MsgMetadata{NumDelivered: tt.numDelivered}, nil)
			}

			if tt.wantNak {
				f.msg.EXPECT().NakWithDelay(time.Second).Return(nil)
			} else {
				var result worker.StickerResult
				f.expectResult(t, &result, nil)
				f.msg.EXPECT().Ack().Return(nil)
				defer func() {
					assert.Equal(t, worker.STATUS_FAILED, result.Status)
					assert.Contains(t, result.Error, "cloudflare 503")
				}()
			}

			f.worker.Handle(context.Background(), f.msg)
		})
	}
}

func TestHandlePublishFailureDeletesUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.msg.EXPECT().Data().Return(jobData(t, worker.StickerJob{ID: "job-5", URL: "https://example.com/a.png"}))
	f.converter.EXPECT().Convert(gomock.Any(), gomock.Any()).
		Return(&sticker.Result{Data: []byte("RIFF"), Backend: "ffmpeg"}, nil)
	f.uploader.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&uploader.Upload{ID: "img-5"}, nil)

	var result worker.StickerResult
	gomock.InOrder(
		f.expectResult(t, &result, errors.New("nats down")),
		f.uploader.EXPECT().Delete(gomock.Any(), "img-5").Return(nil),
		f.msg.EXPECT().Nak().Return(nil),
	)

	f.worker.Handle(context.Background(), f.msg)
}

func TestHandleMalformedJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.msg.EXPECT().Data().Return([]byte("{not json"))
	f.msg.EXPECT().Term().Return(nil)

	f.worker.Handle(context.Background(), f.msg)
}

func TestRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	consumer := mocks.NewMockNatsConsumer(ctrl)
	cc := mocks.NewMockConsumeContext(ctrl)
	closed := make(chan struct{})

	f.js.EXPECT().
		CreateOrUpdateConsumer(gomock.Any(), "STICKERS", gomock.Any()).
		DoAndReturn(func(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (adapter.Consumer, error) {
			assert.Equal(t, "worker-sticker", cfg.Durable)
			assert.Equal(t, "stickers.jobs", cfg.FilterSubject)
			assert.Equal(t, jetstream.AckExplicitPolicy, cfg.AckPolicy)
			assert.Equal(t, 3, cfg.MaxDeliver)
			assert.Equal(t, 5*time.Minute, cfg.AckWait)
			return consumer, nil
		})

	f.msg.EXPECT().Data().Return([]byte("{"))
	f.msg.EXPECT().Term().Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	consumer.EXPECT().
		Consume(gomock.Any()).
		DoAndReturn(func(handler adapter.MessageHandler, opts ...jetstream.PullConsumeOpt) (adapter.ConsumeContext, error) {
			handler(f.msg)
			cancel()
			return cc, nil
		})
	cc.EXPECT().Drain().Do(func() { close(closed) })
	cc.EXPECT().Closed().Return(closed)

	require.NoError(t, f.worker.Run(ctx))
}

func TestRunConsumerError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl)

	f.js.EXPECT().CreateOrUpdateConsumer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("stream not found"))

	err := f.worker.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream not found")
}
