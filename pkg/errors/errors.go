// Package errors provides the error-kind taxonomy shared by every core
// subsystem (paging, streaming, lighting, physics). Recoverable kinds are
// meant to be converted to metrics and dropped by the subsystem that raised
// them; only Kind Fatal is expected to propagate to the host.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error by how the caller is expected to recover.
type Kind string

const (
	// KindOutOfBounds: voxel/page/chunk coordinate outside the configured
	// world window. Reads return AIR/dark; writes are no-ops.
	KindOutOfBounds Kind = "out_of_bounds"

	// KindResourceExhausted: a queue or page pool is full. Fire-and-forget
	// paths drop with a counter; guaranteed paths must evict to make room.
	KindResourceExhausted Kind = "resource_exhausted"

	// KindIoFailure: a disk read or write failed.
	KindIoFailure Kind = "io_failure"

	// KindUploadFailure: a device-side copy failed.
	KindUploadFailure Kind = "upload_failure"

	// KindInvalidState: physics produced NaN, or a malformed block id was
	// observed. The offending unit of work is skipped and logged.
	KindInvalidState Kind = "invalid_state"

	// KindFatal: a core invariant was violated (e.g. a page table entry
	// marked Resident with an INVALID physical offset). The owning
	// subsystem aborts cleanly; this is the only kind the host must handle.
	KindFatal Kind = "fatal"
)

// Sentinel errors for use with errors.Is against operations that don't need
// structured context.
var (
	ErrOutOfBounds       = errors.New("coordinate out of bounds")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNotResident       = errors.New("page not resident")
	ErrAlreadyStreaming  = errors.New("page already streaming")
)

// EngineError carries a Kind plus free-form diagnostic context, following
// the propagation policy in the concurrency & error handling design: every
// non-recoverable event reaching the host carries a timestamp-free,
// structured payload the caller can log or turn into a metric.
type EngineError struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// New creates an EngineError of the given kind.
func New(kind Kind, message string, cause error) *EngineError {
	return &EngineError{Kind: kind, Message: message, Err: cause}
}

// WithDetail attaches a diagnostic key/value pair and returns the receiver.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}

// IsFatal reports whether err must propagate to the host per the
// propagation policy (every other kind is recoverable locally).
func IsFatal(err error) bool {
	return Is(err, KindFatal)
}

// Recoverable reports whether the subsystem that produced err should
// convert it to a metric and continue, rather than propagate it.
func Recoverable(err error) bool {
	return err != nil && !IsFatal(err)
}
