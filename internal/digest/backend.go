// Package digest implements the structured-digest generation pipeline: it
// serializes categorized articles into a prompt, drives a model backend,
// validates and repairs the response, and resolves the model's compact
// article references back into full article records.
package digest

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed generation attempt.
type ErrorKind int

const (
	// KindTransport covers network and process faults, including auth failures.
	KindTransport ErrorKind = iota
	// KindTimeout means the attempt exceeded its wall-clock bound.
	KindTimeout
	// KindParse means the response text could not be turned into a
	// schema-valid object, even after repair.
	KindParse
	// KindSchema means a structured backend returned output violating its
	// predeclared schema.
	KindSchema
)

// String returns the kind's log label.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindParse:
		return "parse"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// BackendError is a classified failure from one generation attempt.
type BackendError struct {
	Kind ErrorKind
	Auth bool // transport fault caused by authentication/authorization
	Err  error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error", e.Kind)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Retryable reports whether the retry controller may re-drive the pipeline
// after this failure. Only authentication transport faults abort immediately.
func (e *BackendError) Retryable() bool {
	return !(e.Kind == KindTransport && e.Auth)
}

// Convenience constructors for the error taxonomy.
func transportErr(auth bool, err error) *BackendError {
	return &BackendError{Kind: KindTransport, Auth: auth, Err: err}
}
func timeoutErr(err error) *BackendError { return &BackendError{Kind: KindTimeout, Err: err} }
func parseErr(err error) *BackendError   { return &BackendError{Kind: KindParse, Err: err} }
func schemaErr(err error) *BackendError  { return &BackendError{Kind: KindSchema, Err: err} }

// ErrGenerationFailed is the terminal outcome after all attempts are spent.
var ErrGenerationFailed = errors.New("digest generation failed")

// GenerationError wraps ErrGenerationFailed with the attempt count and the
// last per-attempt failure.
type GenerationError struct {
	Attempts int
	Last     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("digest generation failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *GenerationError) Unwrap() error { return ErrGenerationFailed }

// GenerateRequest carries one attempt's input to a backend. Categories lists
// the requested category labels so structured backends can predeclare the
// response schema.
type GenerateRequest struct {
	Prompt     string
	Categories []string
}

// RawOutput is a backend's untouched response for one attempt.
type RawOutput struct {
	Text       string // response body: JSON for structured backends, free text otherwise
	Structured bool   // whether the backend guarantees schema-conformant JSON
	Model      string // model identifier that produced the response
}

// Backend obtains a model response for a built prompt. Implementations must
// release any per-attempt resource (connection, subprocess) on every exit
// path and classify failures via *BackendError.
type Backend interface {
	Name() string
	// Structured reports whether responses arrive as schema-conformant JSON,
	// making the free-text extraction/repair path unnecessary.
	Structured() bool
	Generate(ctx context.Context, req GenerateRequest) (*RawOutput, error)
}
