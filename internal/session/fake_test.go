package session

import (
	"sync"

	"github.com/clipvise/clipvise/internal/native"
)

// fakeLib is a scripted implementation of the native capability surface.
// Tests poke its fields directly (under the lock via the helpers) and read
// back call counters afterwards.
type fakeLib struct {
	mu sync.Mutex

	createResult  native.Handle
	createCalls   int
	destroyCalls  int
	destroyStatus native.Status

	text          *string // nil = absent
	image         []byte
	hasText       bool
	hasImage      bool
	hasOwner      bool
	setTextCalls  int
	setTextStatus native.Status
	setImageCalls int
	textFrees     int
	imageFrees    int
	clearStatus   native.Status

	pollCalls int
	onPoll    func(call int) int // nil = always "no change"
}

func newFakeLib() *fakeLib {
	return &fakeLib{createResult: 1}
}

// setFlags overrides the observable state flags.
func (f *fakeLib) setFlags(text, image, owner bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasText, f.hasImage, f.hasOwner = text, image, owner
}

// plantText places text on the fake clipboard as if another application
// wrote it.
func (f *fakeLib) plantText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = &text
	f.hasText = true
	f.hasOwner = false
}

func (f *fakeLib) counts() (setText, textFrees, polls, destroys int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setTextCalls, f.textFrees, f.pollCalls, f.destroyCalls
}

func (f *fakeLib) Create() native.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return f.createResult
}

func (f *fakeLib) Destroy(h native.Handle) native.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyCalls++
	return f.destroyStatus
}

func (f *fakeLib) SetText(h native.Handle, text []byte) native.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setTextCalls++
	if f.setTextStatus.Failed() {
		return f.setTextStatus
	}
	if n := len(text); n > 0 && text[n-1] == 0 {
		text = text[:n-1]
	}
	s := string(text)
	f.text = &s
	f.hasText = true
	f.hasOwner = true
	return native.StatusOK
}

func (f *fakeLib) GetText(h native.Handle) native.Buffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.text == nil {
		return nil
	}
	return fakeBuf(*f.text)
}

func (f *fakeLib) FreeText(h native.Handle, b native.Buffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textFrees++
}

func (f *fakeLib) SetImage(h native.Handle, data []byte) native.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setImageCalls++
	f.image = append([]byte(nil), data...)
	f.hasImage = true
	f.hasOwner = true
	return native.StatusOK
}

func (f *fakeLib) GetImage(h native.Handle) (native.Buffer, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.image == nil {
		return nil, 0
	}
	return fakeBuf(f.image), len(f.image)
}

func (f *fakeLib) FreeImage(h native.Handle, b native.Buffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageFrees++
}

func (f *fakeLib) HasText(h native.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasText
}

func (f *fakeLib) HasImage(h native.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasImage
}

func (f *fakeLib) HasOwnership(h native.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasOwner
}

func (f *fakeLib) Poll(h native.Handle) int {
	f.mu.Lock()
	f.pollCalls++
	n := f.pollCalls
	hook := f.onPoll
	f.mu.Unlock()
	// The hook runs outside the lock so it may call setFlags / plantText.
	if hook != nil {
		return hook(n)
	}
	return 0
}

func (f *fakeLib) Clear(h native.Handle) native.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearStatus.Failed() {
		return f.clearStatus
	}
	f.text = nil
	f.image = nil
	f.hasText, f.hasImage, f.hasOwner = false, false, false
	return native.StatusOK
}

type fakeBuf []byte

func (b fakeBuf) Bytes() []byte { return b }
