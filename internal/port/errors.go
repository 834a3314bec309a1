package port

import (
	"errors"
	"fmt"
)

// Sentinel errors used across ports.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrBuildInProgress = errors.New("index build already in progress")
	ErrNoDocuments     = errors.New("knowledge directory has no readable documents")
	ErrAuditDisabled   = errors.New("audit log storage is not configured")
)

// FailureKind classifies a failed call to an external AI service.
type FailureKind string

// The closed set of failure kinds.
const (
	FailureAuth      FailureKind = "AUTH"
	FailureRateLimit FailureKind = "RATE_LIMIT"
	FailureTransient FailureKind = "TRANSIENT"
	FailureUnknown   FailureKind = "UNKNOWN"
)

// classified is implemented by errors that carry a FailureKind.
type classified interface {
	FailureKind() FailureKind
}

// KindOf returns the FailureKind carried anywhere in err's chain, or
// FailureUnknown.
func KindOf(err error) FailureKind {
	var c classified
	if errors.As(err, &c) {
		return c.FailureKind()
	}
	return FailureUnknown
}

// LoadError reports that the knowledge directory could not be read.
type LoadError struct {
	Dir string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load knowledge directory %q: %v", e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// EmbeddingError is returned by Embedder implementations.
type EmbeddingError struct {
	Kind FailureKind
	Err  error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed (%s): %v", e.Kind, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// FailureKind implements the classified interface.
func (e *EmbeddingError) FailureKind() FailureKind { return e.Kind }

// GenerationError is returned by Generator implementations.
type GenerationError struct {
	Kind FailureKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// FailureKind implements the classified interface.
func (e *GenerationError) FailureKind() FailureKind { return e.Kind }
