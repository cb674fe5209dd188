// Package session provides the safe, high-level clipboard session over a
// native capability surface: handle lifecycle, size-limited text and image
// accessors, asynchronous change detection, and a deterministic disposal
// protocol.
//
// A Session is not internally synchronised against concurrent accessor calls
// from multiple goroutines. The polling run only ever reads the handle, so
// it coexists with accessors, but callers mixing accessors across goroutines
// must provide their own serialisation.
package session

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipvise/clipvise/internal/native"
)

// closeGrace bounds how long Close waits for an active polling run to exit.
// A stuck run does not block the native release: the run touches the handle
// read-only and leaking native memory is the worse outcome.
const closeGrace = time.Second

// Session owns one native clipboard handle.
type Session struct {
	lib native.Library
	cfg Config
	ref *handleRef

	disposed atomic.Bool

	runMu sync.Mutex
	run   *Run

	obsMu     sync.RWMutex
	observers []subscriber
	nextSub   Subscription
}

// New opens a session over an already-loaded library. It fails with an
// InitError when the library refuses to create a clipboard resource.
func New(lib native.Library, cfg Config) (*Session, error) {
	ref, err := acquire(lib)
	if err != nil {
		return nil, err
	}
	return &Session{lib: lib, cfg: cfg.normalized(), ref: ref}, nil
}

// NewFromLoader runs load and opens a session over the result. A loader
// failure is reported as an InitError with the library-missing kind, so
// callers see one error type for every way construction can fail.
func NewFromLoader(load func() (native.Library, error), cfg Config) (*Session, error) {
	lib, err := load()
	if err != nil {
		return nil, &InitError{Kind: InitLibraryMissing, Err: err}
	}
	return New(lib, cfg)
}

// Config returns the session's effective configuration.
func (s *Session) Config() Config { return s.cfg }

// SetText places text on the clipboard. Payloads whose encoded length plus
// terminator exceeds MaxDataSize are rejected before the native call.
func (s *Session) SetText(text string) error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if s.cfg.TrimWhitespace {
		text = strings.TrimSpace(text)
	}
	payload := append([]byte(text), 0)
	if err := s.checkSize(len(payload)); err != nil {
		return err
	}
	if st := s.lib.SetText(s.ref.h, payload); st.Failed() {
		return &AccessError{Op: "set text", Status: st}
	}
	return nil
}

// GetText returns the clipboard text. The second result is false when the
// clipboard holds no text — absence is not an error.
func (s *Session) GetText() (string, bool, error) {
	if s.disposed.Load() {
		return "", false, ErrDisposed
	}
	buf := s.lib.GetText(s.ref.h)
	if buf == nil {
		return "", false, nil
	}
	defer s.lib.FreeText(s.ref.h, buf)

	data := buf.Bytes()
	if err := s.checkSize(len(data)); err != nil {
		return "", false, err
	}
	text := string(data)
	if s.cfg.TrimWhitespace {
		text = strings.TrimSpace(text)
	}
	return text, true, nil
}

// TryGetText is GetText with errors folded into absence.
func (s *Session) TryGetText() (string, bool) {
	text, ok, err := s.GetText()
	if err != nil {
		return "", false
	}
	return text, ok
}

// SetImage places image bytes on the clipboard.
func (s *Session) SetImage(data []byte) error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if err := s.checkSize(len(data)); err != nil {
		return err
	}
	if st := s.lib.SetImage(s.ref.h, data); st.Failed() {
		return &AccessError{Op: "set image", Status: st}
	}
	return nil
}

// GetImage returns the clipboard image. The second result is false when the
// clipboard holds no image.
func (s *Session) GetImage() ([]byte, bool, error) {
	if s.disposed.Load() {
		return nil, false, ErrDisposed
	}
	buf, n := s.lib.GetImage(s.ref.h)
	if buf == nil || n == 0 {
		return nil, false, nil
	}
	defer s.lib.FreeImage(s.ref.h, buf)

	if err := s.checkSize(n); err != nil {
		return nil, false, err
	}
	data := buf.Bytes()
	if n < len(data) {
		data = data[:n]
	}
	// Copy out of the native buffer before the deferred free.
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

// TryGetImage is GetImage with errors folded into absence.
func (s *Session) TryGetImage() ([]byte, bool) {
	data, ok, err := s.GetImage()
	if err != nil {
		return nil, false
	}
	return data, ok
}

// Clear empties the clipboard.
func (s *Session) Clear() error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if st := s.lib.Clear(s.ref.h); st.Failed() {
		return &AccessError{Op: "clear", Status: st}
	}
	return nil
}

// HasText reports whether the clipboard currently holds text.
func (s *Session) HasText() (bool, error) {
	if s.disposed.Load() {
		return false, ErrDisposed
	}
	return s.lib.HasText(s.ref.h), nil
}

// HasImage reports whether the clipboard currently holds an image.
func (s *Session) HasImage() (bool, error) {
	if s.disposed.Load() {
		return false, ErrDisposed
	}
	return s.lib.HasImage(s.ref.h), nil
}

// HasOwnership reports whether this session's handle owns the current
// clipboard contents.
func (s *Session) HasOwnership() (bool, error) {
	if s.disposed.Load() {
		return false, ErrDisposed
	}
	return s.lib.HasOwnership(s.ref.h), nil
}

// Close disposes the session: it cancels any active polling run, waits up to
// closeGrace for the run to exit, releases the native handle, and leaves
// every later operation failing with ErrDisposed. Close is idempotent and
// safe to call from any goroutine.
func (s *Session) Close() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}

	s.runMu.Lock()
	run := s.run
	s.run = nil
	s.runMu.Unlock()

	if run != nil {
		run.Stop()
		select {
		case <-run.done:
		case <-time.After(closeGrace):
			slog.Warn("polling run did not exit within the close grace period")
		}
	}

	s.ref.release()
	return nil
}

func (s *Session) checkSize(n int) error {
	if s.cfg.MaxDataSize > 0 && n > s.cfg.MaxDataSize {
		return &SizeLimitError{Size: n, Limit: s.cfg.MaxDataSize}
	}
	return nil
}
