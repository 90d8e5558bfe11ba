package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed request or slice draft.
	ErrValidation = errors.New("validation failed")
	// ErrRepository signals that no retrieval modality could reach the slice repository.
	ErrRepository = errors.New("slice repository unavailable")
	// ErrSliceNotFound signals a missing slice.
	ErrSliceNotFound = errors.New("slice not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrKeywordSearchNotSupported signals that the backend lacks keyword search.
	ErrKeywordSearchNotSupported = errors.New("keyword search not supported by backend")

	// ErrReasoningTimeout signals a reasoning call that ran out of time.
	ErrReasoningTimeout = errors.New("reasoning timeout")
	// ErrReasoningTransport signals a reasoning call that failed on the wire or upstream.
	ErrReasoningTransport = errors.New("reasoning transport error")
	// ErrReasoningMalformed signals a reasoning response with no usable text.
	ErrReasoningMalformed = errors.New("reasoning malformed response")
)

// ValidationError carries the offending field of a rejected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsReasoningError reports whether err belongs to the recoverable reasoning failure classes.
func IsReasoningError(err error) bool {
	return errors.Is(err, ErrReasoningTimeout) ||
		errors.Is(err, ErrReasoningTransport) ||
		errors.Is(err, ErrReasoningMalformed)
}
