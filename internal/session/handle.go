package session

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/clipvise/clipvise/internal/native"
)

// handleRef owns exactly one native clipboard handle. The handle is released
// at most once: either deterministically through Close, or through the
// runtime finalizer if the session is abandoned without one. The finalizer
// path touches nothing beyond the library and the raw handle — other session
// state may already be unreachable when it runs.
type handleRef struct {
	lib      native.Library
	h        native.Handle
	released atomic.Bool
}

// acquire creates a native clipboard resource. It fails with an InitError
// when the library rejects creation or hands back an invalid sentinel.
func acquire(lib native.Library) (*handleRef, error) {
	h := lib.Create()
	if !h.Valid() {
		return nil, &InitError{
			Kind: InitCreateRejected,
			Err:  fmt.Errorf("create returned %#x", uintptr(h)),
		}
	}
	r := &handleRef{lib: lib, h: h}
	runtime.SetFinalizer(r, (*handleRef).release)
	return r, nil
}

// release destroys the native handle. Safe to call more than once and from
// the finalizer goroutine. Destroy failures are reported but swallowed —
// nothing corrective can be done at this point.
func (r *handleRef) release() {
	if !r.released.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(r, nil)
	if st := r.lib.Destroy(r.h); st.Failed() {
		slog.Warn("native clipboard destroy failed", "status", int32(st))
	}
}
