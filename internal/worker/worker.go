package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker"
	"github.com/feral-file/ff-sticker/internal/uploader"
)

// Config holds the consumer and settlement policy of the worker
type Config struct {
	StreamName     string
	ConsumerName   string
	JobSubject     string
	ResultSubject  string
	AckWait        time.Duration
	MaxDeliver     int
	NakDelay       time.Duration
	ConvertTimeout time.Duration
}

// Worker consumes sticker jobs from JetStream
type Worker interface {
	// Run consumes jobs until ctx is cancelled, then drains in-flight messages
	Run(ctx context.Context) error

	// Handle settles a single job message
	Handle(ctx context.Context, msg adapter.Message)
}

type worker struct {
	cfg       Config
	js        adapter.JetStream
	converter sticker.Converter
	uploader  uploader.Uploader
	json      adapter.JSON
	clock     adapter.Clock
}

// NewWorker creates a sticker job worker
func NewWorker(cfg Config, js adapter.JetStream, converter sticker.Converter, up uploader.Uploader, jsonAdapter adapter.JSON, clock adapter.Clock) Worker {
	if cfg.AckWait <= 0 {
		cfg.AckWait = 5 * time.Minute
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 5
	}
	if cfg.NakDelay <= 0 {
		cfg.NakDelay = 30 * time.Second
	}
	if cfg.ConvertTimeout <= 0 {
		cfg.ConvertTimeout = 2 * time.Minute
	}

	return &worker{
		cfg:       cfg,
		js:        js,
		converter: converter,
		uploader:  up,
		json:      jsonAdapter,
		clock:     clock,
	}
}

// Run creates the durable consumer and processes jobs until ctx is done
func (w *worker) Run(ctx context.Context) error {
	consumer, err := w.js.CreateOrUpdateConsumer(ctx, w.cfg.StreamName, jetstream.ConsumerConfig{
		Durable:       w.cfg.ConsumerName,
		FilterSubject: w.cfg.JobSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       w.cfg.AckWait,
		MaxDeliver:    w.cfg.MaxDeliver,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	// In-flight jobs get their own context so shutdown drains instead of aborting them
	jobCtx := context.WithoutCancel(ctx)
	cc, err := consumer.Consume(func(msg adapter.Message) {
		w.Handle(jobCtx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	logger.InfoCtx(ctx, "Consuming sticker jobs",
		zap.String("stream", w.cfg.StreamName),
		zap.String("consumer", w.cfg.ConsumerName),
		zap.String("subject", w.cfg.JobSubject),
	)

	<-ctx.Done()

	logger.InfoCtx(ctx, "Draining sticker job consumer")
	cc.Drain()
	<-cc.Closed()

	return nil
}

// Handle converts, uploads and reports a single job.
// Conversion failures are final. Upload and publish failures are redelivered.
func (w *worker) Handle(ctx context.Context, msg adapter.Message) {
	var job StickerJob
	if err := w.json.Unmarshal(msg.Data(), &job); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to decode sticker job: %w", err), zap.String("subject", msg.Subject()))
		w.settle(ctx, msg.Term)
		return
	}
	if job.ID == "" {
		job.ID = ulid.Make().String()
	}

	ctx = logger.WithRequestID(ctx, job.ID)
	logger.InfoCtx(ctx, "Processing sticker job", zap.String("url", job.URL))

	convertCtx, cancel := context.WithTimeout(ctx, w.cfg.ConvertTimeout)
	result, err := w.converter.Convert(convertCtx, job.ToDomain())
	cancel()
	if err != nil {
		w.fail(ctx, msg, &job, err)
		return
	}

	upload, err := w.uploader.Upload(ctx, result.Data, job.ID+".webp", map[string]any{
		"job_id":  job.ID,
		"pack_id": result.PackID,
		"backend": result.Backend,
	})
	if err != nil {
		if w.lastDelivery(ctx, msg) {
			w.fail(ctx, msg, &job, err)
			return
		}
		logger.WarnCtx(ctx, "Sticker upload failed, requesting redelivery", zap.Error(err))
		w.settle(ctx, func() error { return msg.NakWithDelay(w.cfg.NakDelay) })
		return
	}

	if err := w.publish(ctx, &StickerResult{
		JobID:       job.ID,
		Status:      STATUS_SUCCEEDED,
		ImageID:     upload.ID,
		URL:         upload.URL,
		Variants:    upload.Variants,
		PackID:      result.PackID,
		Backend:     result.Backend,
		Tagged:      result.Tagged,
		Size:        result.Size(),
		CompletedAt: w.clock.Now(),
	}); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("imageID", upload.ID))
		// Redelivery uploads again
		if err := w.uploader.Delete(ctx, upload.ID); err != nil {
			logger.WarnCtx(ctx, "Failed to delete orphaned upload", zap.Error(err))
		}
		w.settle(ctx, msg.Nak)
		return
	}

	logger.InfoCtx(ctx, "Sticker job completed",
		zap.String("imageID", upload.ID),
		zap.String("backend", result.Backend),
	)
	w.settle(ctx, msg.Ack)
}

// fail publishes a failed result and acks, or naks when the result cannot be published
func (w *worker) fail(ctx context.Context, msg adapter.Message, job *StickerJob, cause error) {
	logger.WarnCtx(ctx, "Sticker job failed", zap.Error(cause))

	kind := domain.KindOf(cause)
	if errors.Is(cause, context.DeadlineExceeded) && kind == "" {
		kind = domain.FailureTranscode
	}

	if err := w.publish(ctx, &StickerResult{
		JobID:       job.ID,
		Status:      STATUS_FAILED,
		Error:       cause.Error(),
		ErrorKind:   kind,
		CompletedAt: w.clock.Now(),
	}); err != nil {
		logger.ErrorCtx(ctx, err)
		w.settle(ctx, msg.Nak)
		return
	}

	w.settle(ctx, msg.Ack)
}

// lastDelivery reports whether the message will not be redelivered after a nak
func (w *worker) lastDelivery(ctx context.Context, msg adapter.Message) bool {
	meta, err := msg.Metadata()
	if err != nil {
		logger.WarnCtx(ctx, "Failed to read message metadata", zap.Error(err))
		return false
	}
	return meta.NumDelivered >= uint64(w.cfg.MaxDeliver)
}

func (w *worker) publish(ctx context.Context, result *StickerResult) error {
	data, err := w.json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	// Message id dedupes a result republished after redelivery
	if _, err := w.js.Publish(ctx, w.cfg.ResultSubject, data,
		jetstream.WithMsgID(result.JobID+":"+result.Status)); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}

	return nil
}

func (w *worker) settle(ctx context.Context, fn func() error) {
	if err := fn(); err != nil {
		logger.WarnCtx(ctx, "Failed to settle message", zap.Error(err))
	}
}
