//go:build linux || darwin || windows

// Package dynlib binds the native capability surface from a shared clipboard
// library (libclipcore) loaded at runtime.
//
// Discovery order, per platform:
//
//  1. the conventional library name on its own (dlopen's default search)
//  2. common system library directories
//  3. each entry of the loader path environment variable
//     (LD_LIBRARY_PATH / DYLD_LIBRARY_PATH / PATH)
//
// The first candidate that loads and exposes the full clipcore_* symbol set
// wins. When none does, Load reports native.ErrNotFound.
package dynlib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/clipvise/clipvise/internal/native"
)

// Library is a capability surface bound to a loaded shared library.
type Library struct {
	create       func() uintptr
	destroy      func(h uintptr) int32
	setText      func(h uintptr, text string) int32
	getText      func(h uintptr) uintptr
	freeText     func(h uintptr, p uintptr)
	setImage     func(h uintptr, data unsafe.Pointer, n uint32) int32
	getImage     func(h uintptr, n *uint32) uintptr
	freeImage    func(h uintptr, p uintptr)
	hasText      func(h uintptr) int32
	hasImage     func(h uintptr) int32
	hasOwnership func(h uintptr) int32
	poll         func(h uintptr) int32
	clear        func(h uintptr) int32
}

// Load locates libclipcore, binds its symbols, and returns the capability
// surface. A non-empty explicit path bypasses discovery.
func Load(explicit string) (*Library, error) {
	candidates := []string{explicit}
	if explicit == "" {
		candidates = searchCandidates()
	}

	var lastErr error
	for _, cand := range candidates {
		handle, err := openLibrary(cand)
		if err != nil {
			lastErr = err
			continue
		}
		lib := new(Library)
		if err := lib.bind(handle); err != nil {
			lastErr = fmt.Errorf("%s: %w", cand, err)
			continue
		}
		return lib, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", native.ErrNotFound, lastErr)
	}
	return nil, native.ErrNotFound
}

// searchCandidates returns the discovery order for the current platform.
func searchCandidates() []string {
	out := []string{libName}
	for _, dir := range systemDirs {
		out = append(out, filepath.Join(dir, libName))
	}
	for _, dir := range filepath.SplitList(os.Getenv(loaderPathEnv)) {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		out = append(out, filepath.Join(dir, libName))
	}
	return out
}

// bind resolves every clipcore_* symbol. Registration panics on a missing
// symbol, so a library that is present but incomplete is rejected as a
// whole rather than half-bound.
func (l *Library) bind(handle uintptr) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("incomplete clipcore symbol set: %v", v)
		}
	}()
	registerFunc(&l.create, handle, "clipcore_create")
	registerFunc(&l.destroy, handle, "clipcore_destroy")
	registerFunc(&l.setText, handle, "clipcore_set_text")
	registerFunc(&l.getText, handle, "clipcore_get_text")
	registerFunc(&l.freeText, handle, "clipcore_free_text")
	registerFunc(&l.setImage, handle, "clipcore_set_image")
	registerFunc(&l.getImage, handle, "clipcore_get_image")
	registerFunc(&l.freeImage, handle, "clipcore_free_image")
	registerFunc(&l.hasText, handle, "clipcore_has_text")
	registerFunc(&l.hasImage, handle, "clipcore_has_image")
	registerFunc(&l.hasOwnership, handle, "clipcore_has_ownership")
	registerFunc(&l.poll, handle, "clipcore_poll")
	registerFunc(&l.clear, handle, "clipcore_clear")
	return nil
}

func (l *Library) Create() native.Handle {
	return native.Handle(l.create())
}

func (l *Library) Destroy(h native.Handle) native.Status {
	return native.Status(l.destroy(uintptr(h)))
}

func (l *Library) SetText(h native.Handle, text []byte) native.Status {
	// The FFI layer re-appends the terminator when marshalling the string.
	text = trimNUL(text)
	return native.Status(l.setText(uintptr(h), string(text)))
}

func (l *Library) GetText(h native.Handle) native.Buffer {
	p := l.getText(uintptr(h))
	if p == 0 {
		return nil
	}
	return &cBuffer{ptr: p, n: cStrLen(p)}
}

func (l *Library) FreeText(h native.Handle, b native.Buffer) {
	if cb, ok := b.(*cBuffer); ok && cb.ptr != 0 {
		l.freeText(uintptr(h), cb.ptr)
		cb.ptr = 0
	}
}

func (l *Library) SetImage(h native.Handle, data []byte) native.Status {
	var p unsafe.Pointer
	if len(data) > 0 {
		p = unsafe.Pointer(unsafe.SliceData(data))
	}
	return native.Status(l.setImage(uintptr(h), p, uint32(len(data))))
}

func (l *Library) GetImage(h native.Handle) (native.Buffer, int) {
	var n uint32
	p := l.getImage(uintptr(h), &n)
	if p == 0 || n == 0 {
		return nil, 0
	}
	return &cBuffer{ptr: p, n: int(n)}, int(n)
}

func (l *Library) FreeImage(h native.Handle, b native.Buffer) {
	if cb, ok := b.(*cBuffer); ok && cb.ptr != 0 {
		l.freeImage(uintptr(h), cb.ptr)
		cb.ptr = 0
	}
}

func (l *Library) HasText(h native.Handle) bool      { return l.hasText(uintptr(h)) != 0 }
func (l *Library) HasImage(h native.Handle) bool     { return l.hasImage(uintptr(h)) != 0 }
func (l *Library) HasOwnership(h native.Handle) bool { return l.hasOwnership(uintptr(h)) != 0 }

func (l *Library) Poll(h native.Handle) int { return int(l.poll(uintptr(h))) }

func (l *Library) Clear(h native.Handle) native.Status {
	return native.Status(l.clear(uintptr(h)))
}

// cBuffer views native memory. The view is only valid until the paired Free
// call; callers copy before freeing.
type cBuffer struct {
	ptr uintptr
	n   int
}

func (b *cBuffer) Bytes() []byte {
	if b.ptr == 0 || b.n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(b.ptr)), b.n)
}

// cStrLen walks native memory until the NUL terminator.
func cStrLen(p uintptr) int {
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	return n
}

func trimNUL(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}
