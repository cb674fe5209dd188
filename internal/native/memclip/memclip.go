// Package memclip implements the native capability surface entirely in
// process memory. It backs headless hosts (servers, containers, CI) where no
// display clipboard exists, and doubles as the reference implementation for
// tests.
package memclip

import (
	"bytes"
	"sync"

	"github.com/clipvise/clipvise/internal/native"
)

// Status codes reported by this implementation.
const (
	statusBadHandle native.Status = 1
)

// Library is an in-memory clipboard. All handles created from one Library
// share the same board, so a write through one handle is observable — and
// pollable — through every other.
type Library struct {
	mu      sync.Mutex
	next    native.Handle
	handles map[native.Handle]*cursor

	text  []byte // nil = absent
	image []byte
	owner native.Handle // 0 = content came from outside

	buffers int // outstanding un-freed Get* buffers
}

// cursor is the per-handle poll state.
type cursor struct {
	pending int // change notifications not yet consumed by Poll
}

// New returns an empty in-memory clipboard.
func New() *Library {
	return &Library{
		next:    1,
		handles: make(map[native.Handle]*cursor),
	}
}

func (l *Library) Create() native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.next
	l.next++
	l.handles[h] = &cursor{}
	return h
}

func (l *Library) Destroy(h native.Handle) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.handles[h]; !ok {
		return statusBadHandle
	}
	delete(l.handles, h)
	if l.owner == h {
		l.owner = 0
	}
	return native.StatusOK
}

func (l *Library) SetText(h native.Handle, text []byte) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.handles[h]; !ok {
		return statusBadHandle
	}
	l.text = bytes.Clone(bytes.TrimSuffix(text, []byte{0}))
	l.owner = h
	l.bumpLocked(h)
	return native.StatusOK
}

func (l *Library) GetText(h native.Handle) native.Buffer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.text == nil {
		return nil
	}
	l.buffers++
	return memBuffer(bytes.Clone(l.text))
}

func (l *Library) FreeText(h native.Handle, b native.Buffer) { l.free(b) }

func (l *Library) SetImage(h native.Handle, data []byte) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.handles[h]; !ok {
		return statusBadHandle
	}
	l.image = bytes.Clone(data)
	l.owner = h
	l.bumpLocked(h)
	return native.StatusOK
}

func (l *Library) GetImage(h native.Handle) (native.Buffer, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.image == nil {
		return nil, 0
	}
	l.buffers++
	return memBuffer(bytes.Clone(l.image)), len(l.image)
}

func (l *Library) FreeImage(h native.Handle, b native.Buffer) { l.free(b) }

func (l *Library) HasText(h native.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text != nil
}

func (l *Library) HasImage(h native.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.image != nil
}

func (l *Library) HasOwnership(h native.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner == h
}

func (l *Library) Poll(h native.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.handles[h]
	if !ok {
		return -int(statusBadHandle)
	}
	if c.pending == 0 {
		return 0
	}
	c.pending = 0
	return 1
}

func (l *Library) Clear(h native.Handle) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.handles[h]; !ok {
		return statusBadHandle
	}
	l.text = nil
	l.image = nil
	l.owner = 0
	l.bumpLocked(h)
	return native.StatusOK
}

// InjectText simulates another application placing text on the clipboard.
// Every handle's next Poll reports a change.
func (l *Library) InjectText(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text = []byte(text)
	l.owner = 0
	l.bumpLocked(0)
}

// InjectImage simulates another application placing an image on the clipboard.
func (l *Library) InjectImage(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.image = bytes.Clone(data)
	l.owner = 0
	l.bumpLocked(0)
}

// Outstanding returns the number of Get* buffers that have not been freed.
func (l *Library) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buffers
}

// bumpLocked queues a poll notification on every handle except origin.
func (l *Library) bumpLocked(origin native.Handle) {
	for h, c := range l.handles {
		if h == origin {
			continue
		}
		c.pending++
	}
}

func (l *Library) free(b native.Buffer) {
	if b == nil {
		return
	}
	l.mu.Lock()
	l.buffers--
	l.mu.Unlock()
}

type memBuffer []byte

func (b memBuffer) Bytes() []byte { return b }
