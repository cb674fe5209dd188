// Package sysclip adapts golang.design/x/clipboard to the native capability
// surface, giving the core an in-process system-clipboard backend on hosts
// with a display environment.
//
// x/clipboard has no change notification of its own, so each handle keeps a
// snapshot of the last observed contents and Poll diffs against it. New
// reports initialisation failure (no display, missing X11) so callers can
// fall back to the in-memory backend.
package sysclip

import (
	"bytes"
	"fmt"
	"sync"

	"golang.design/x/clipboard"

	"github.com/clipvise/clipvise/internal/native"
)

const statusBadHandle native.Status = 1

// Library is the system clipboard capability surface.
type Library struct {
	mu      sync.Mutex
	next    native.Handle
	handles map[native.Handle]*snapshot
}

// snapshot is the per-handle view used by Poll to detect changes, plus
// whether the last write on the system clipboard came through this handle.
type snapshot struct {
	text  []byte
	image []byte
	owned bool
}

// New initialises the system clipboard. It fails on headless hosts.
func New() (*Library, error) {
	if err := clipboard.Init(); err != nil {
		return nil, fmt.Errorf("sysclip: %w", err)
	}
	return &Library{
		next:    1,
		handles: make(map[native.Handle]*snapshot),
	}, nil
}

func (l *Library) Create() native.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.next
	l.next++
	l.handles[h] = &snapshot{
		text:  clipboard.Read(clipboard.FmtText),
		image: clipboard.Read(clipboard.FmtImage),
	}
	return h
}

func (l *Library) Destroy(h native.Handle) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.handles[h]; !ok {
		return statusBadHandle
	}
	delete(l.handles, h)
	return native.StatusOK
}

func (l *Library) SetText(h native.Handle, text []byte) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.handles[h]
	if !ok {
		return statusBadHandle
	}
	data := bytes.Clone(bytes.TrimSuffix(text, []byte{0}))
	clipboard.Write(clipboard.FmtText, data)
	s.text = data
	s.owned = true
	return native.StatusOK
}

func (l *Library) GetText(h native.Handle) native.Buffer {
	data := clipboard.Read(clipboard.FmtText)
	if data == nil {
		return nil
	}
	return sysBuffer(data)
}

func (l *Library) FreeText(h native.Handle, b native.Buffer) {}

func (l *Library) SetImage(h native.Handle, data []byte) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.handles[h]
	if !ok {
		return statusBadHandle
	}
	img := bytes.Clone(data)
	clipboard.Write(clipboard.FmtImage, img)
	s.image = img
	s.owned = true
	return native.StatusOK
}

func (l *Library) GetImage(h native.Handle) (native.Buffer, int) {
	data := clipboard.Read(clipboard.FmtImage)
	if data == nil {
		return nil, 0
	}
	return sysBuffer(data), len(data)
}

func (l *Library) FreeImage(h native.Handle, b native.Buffer) {}

func (l *Library) HasText(h native.Handle) bool {
	return clipboard.Read(clipboard.FmtText) != nil
}

func (l *Library) HasImage(h native.Handle) bool {
	return clipboard.Read(clipboard.FmtImage) != nil
}

func (l *Library) HasOwnership(h native.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.handles[h]
	return ok && s.owned
}

// Poll diffs the system clipboard against the handle's snapshot. A mismatch
// means some other application wrote the clipboard since our last look.
func (l *Library) Poll(h native.Handle) int {
	text := clipboard.Read(clipboard.FmtText)
	image := clipboard.Read(clipboard.FmtImage)

	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.handles[h]
	if !ok {
		return -int(statusBadHandle)
	}
	if bytes.Equal(text, s.text) && bytes.Equal(image, s.image) {
		return 0
	}
	s.text = text
	s.image = image
	s.owned = false
	return 1
}

func (l *Library) Clear(h native.Handle) native.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.handles[h]
	if !ok {
		return statusBadHandle
	}
	clipboard.Write(clipboard.FmtText, nil)
	s.text = nil
	s.image = nil
	s.owned = false
	return native.StatusOK
}

type sysBuffer []byte

func (b sysBuffer) Bytes() []byte { return b }
