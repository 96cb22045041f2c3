package worker

import (
	"time"

	"github.com/feral-file/ff-sticker/internal/domain"
)

// Result statuses
const (
	STATUS_SUCCEEDED = "succeeded"
	STATUS_FAILED    = "failed"
)

// StickerJob is a conversion job read from the job subject
type StickerJob struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	PackName   string         `json:"pack_name"`
	Author     string         `json:"author"`
	Categories []string       `json:"categories,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// ToDomain converts the job into a conversion request
func (j *StickerJob) ToDomain() *domain.ConversionRequest {
	return &domain.ConversionRequest{
		URL: j.URL,
		Metadata: &domain.PackMetadata{
			PackName:   j.PackName,
			Author:     j.Author,
			Categories: j.Categories,
			Extra:      j.Extra,
		},
	}
}

// StickerResult is published to the result subject once a job is settled
type StickerResult struct {
	JobID       string             `json:"job_id"`
	Status      string             `json:"status"`
	ImageID     string             `json:"image_id,omitempty"`
	URL         string             `json:"url,omitempty"`
	Variants    map[string]string  `json:"variants,omitempty"`
	PackID      string             `json:"pack_id,omitempty"`
	Backend     string             `json:"backend,omitempty"`
	Tagged      bool               `json:"tagged"`
	Size        int                `json:"size,omitempty"`
	Error       string             `json:"error,omitempty"`
	ErrorKind   domain.FailureKind `json:"error_kind,omitempty"`
	CompletedAt time.Time          `json:"completed_at"`
}
