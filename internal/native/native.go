// Package native defines the capability surface the clipvise core requires
// from a clipboard library, together with the handle, status, and buffer
// types shared by every implementation.
//
// The surface is deliberately flat: opaque handles, integer statuses, and
// raw byte buffers. Implementations exist for a dynamically loaded shared
// library (dynlib), the in-process system clipboard (sysclip), and an
// in-memory clipboard for headless hosts and tests (memclip).
package native

import "errors"

// Handle is an opaque reference to one clipboard resource instance inside a
// library. A handle is owned by exactly one session and must never be used
// after it has been destroyed.
type Handle uintptr

const (
	// InvalidHandle is the zero sentinel returned when creation is rejected.
	InvalidHandle Handle = 0
	// BadHandle is the all-ones sentinel some libraries return on internal
	// failure.
	BadHandle Handle = ^Handle(0)
)

// Valid reports whether h is neither of the invalid sentinels.
func (h Handle) Valid() bool { return h != InvalidHandle && h != BadHandle }

// Status is the integer result of a native operation. Zero means success;
// anything else is an implementation-specific failure code carried through
// for diagnostics.
type Status int32

// StatusOK is the success status.
const StatusOK Status = 0

// Failed reports whether s signals a failure.
func (s Status) Failed() bool { return s != StatusOK }

// Buffer is a chunk of memory owned by the library until it is released via
// the paired Free call. Bytes must not be retained past that release.
type Buffer interface {
	Bytes() []byte
}

// Library is the fixed set of operations the core depends on.
//
// Every buffer returned by GetText or GetImage remains owned by the library
// and must be released with the paired Free call exactly once, on every exit
// path. Poll returns a positive value when the clipboard may have changed
// since the last call, zero when it has not, and a negative value on a
// transient failure.
type Library interface {
	// Create allocates a clipboard resource. It returns InvalidHandle or
	// BadHandle when the library rejects the request.
	Create() Handle
	Destroy(h Handle) Status

	// SetText stores text, which must be NUL-terminated UTF-8.
	SetText(h Handle, text []byte) Status
	// GetText returns the current text or nil when none is available.
	GetText(h Handle) Buffer
	FreeText(h Handle, b Buffer)

	SetImage(h Handle, data []byte) Status
	// GetImage returns the current image and its byte length, or nil and
	// zero when none is available.
	GetImage(h Handle) (Buffer, int)
	FreeImage(h Handle, b Buffer)

	HasText(h Handle) bool
	HasImage(h Handle) bool
	HasOwnership(h Handle) bool

	Poll(h Handle) int
	Clear(h Handle) Status
}

// ErrNotFound is returned by loaders when no native clipboard library could
// be located on this host.
var ErrNotFound = errors.New("native clipboard library not found")
