package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when a conversion request has neither or both of data and URL
	ErrInvalidRequest = errors.New("invalid conversion request")

	// ErrUnsupportedFormat is returned when the sniffer cannot classify the input
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrFetchFailure is returned when a URL source cannot be downloaded
	ErrFetchFailure = errors.New("fetch failure")

	// ErrBackendUnavailable marks a backend whose capability predicate is false
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrTranscodeFailure is returned by a backend that failed or produced non-WebP output
	ErrTranscodeFailure = errors.New("transcode failure")

	// ErrOversizeOutput signals an output over the size limit inside the primary backend
	ErrOversizeOutput = errors.New("oversize output")

	// ErrMetadataInjection is returned when the metadata block cannot be spliced into the output
	ErrMetadataInjection = errors.New("metadata injection failure")

	// ErrExhausted is returned when every backend was tried or skipped without a usable output
	ErrExhausted = errors.New("all backends exhausted")
)

// FailureKind classifies a conversion failure
type FailureKind string

const (
	FailureUnsupportedFormat  FailureKind = "unsupported_format"
	FailureFetch              FailureKind = "fetch_failure"
	FailureBackendUnavailable FailureKind = "backend_unavailable"
	FailureTranscode          FailureKind = "transcode_failure"
	FailureOversizeOutput     FailureKind = "oversize_output"
	FailureMetadataInjection  FailureKind = "metadata_injection_failure"
	FailureExhausted          FailureKind = "exhausted_failure"
)

var kindSentinels = map[FailureKind]error{
	FailureUnsupportedFormat:  ErrUnsupportedFormat,
	FailureFetch:              ErrFetchFailure,
	FailureBackendUnavailable: ErrBackendUnavailable,
	FailureTranscode:          ErrTranscodeFailure,
	FailureOversizeOutput:     ErrOversizeOutput,
	FailureMetadataInjection:  ErrMetadataInjection,
	FailureExhausted:          ErrExhausted,
}

// ConversionError is a classified conversion failure.
// errors.Is matches both the kind sentinel and the wrapped cause.
type ConversionError struct {
	Kind    FailureKind
	Backend string
	Err     error
}

// NewConversionError creates a classified error for the given kind and cause
func NewConversionError(kind FailureKind, backend string, err error) *ConversionError {
	return &ConversionError{
		Kind:    kind,
		Backend: backend,
		Err:     err,
	}
}

func (e *ConversionError) Error() string {
	msg := string(e.Kind)
	if e.Backend != "" {
		msg = fmt.Sprintf("%s (backend %s)", msg, e.Backend)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *ConversionError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the failure kind carried by err, or an empty kind when err is not classified
func KindOf(err error) FailureKind {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return ""
}
