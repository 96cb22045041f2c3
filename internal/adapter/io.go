package adapter

import (
	"errors"
	"io"
)

// ErrReadLimitExceeded is returned when a reader yields more bytes than allowed
var ErrReadLimitExceeded = errors.New("read limit exceeded")

// IO defines an interface for IO operations to enable mocking
//
//go:generate mockgen -source=io.go -destination=../mocks/io.go -package=mocks -mock_names=IO=MockIO
type IO interface {
	ReadAll(r io.Reader) ([]byte, error)

	// ReadAllLimited reads at most limit bytes and fails if r holds more.
	// A non-positive limit reads everything.
	ReadAllLimited(r io.Reader, limit int64) ([]byte, error)
}

// RealIO implements IO using the standard io package
type RealIO struct{}

// NewIO creates a new real IO implementation
func NewIO() IO {
	return &RealIO{}
}

func (i *RealIO) ReadAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

func (i *RealIO) ReadAllLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrReadLimitExceeded
	}
	return data, nil
}
