package session

import (
	"errors"
	"fmt"

	"github.com/clipvise/clipvise/internal/native"
)

// ErrDisposed is returned by every operation invoked after Close.
var ErrDisposed = errors.New("clipboard session disposed")

// InitKind distinguishes why a session could not be constructed.
type InitKind int

const (
	// InitLibraryMissing — the native clipboard library could not be located
	// or loaded.
	InitLibraryMissing InitKind = iota + 1
	// InitCreateRejected — the library loaded but refused to create a
	// clipboard resource.
	InitCreateRejected
)

func (k InitKind) String() string {
	switch k {
	case InitLibraryMissing:
		return "library missing"
	case InitCreateRejected:
		return "create rejected"
	default:
		return "unknown"
	}
}

// InitError reports a failed session construction. Construction failures are
// fatal: there is no retry path, the caller gets no session.
type InitError struct {
	Kind InitKind
	Err  error
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("clipboard init failed (%s)", e.Kind)
	}
	return fmt.Sprintf("clipboard init failed (%s): %v", e.Kind, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// AccessError reports a native operation that returned a failure status
// during a direct accessor call. The raw status is carried for diagnostics.
type AccessError struct {
	Op     string
	Status native.Status
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("clipboard %s failed (status %d)", e.Op, int32(e.Status))
}

// SizeLimitError reports a payload exceeding the configured MaxDataSize,
// in either direction.
type SizeLimitError struct {
	Size  int
	Limit int
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("clipboard payload of %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}
