package memclip

import (
	"bytes"
	"testing"

	"github.com/clipvise/clipvise/internal/native"
)

func TestTextSharedAcrossHandles(t *testing.T) {
	lib := New()
	a := lib.Create()
	b := lib.Create()
	if !a.Valid() || !b.Valid() {
		t.Fatal("Create returned invalid handles")
	}

	if st := lib.SetText(a, []byte("shared\x00")); st.Failed() {
		t.Fatalf("SetText: status %d", st)
	}

	buf := lib.GetText(b)
	if buf == nil {
		t.Fatal("GetText through second handle: absent")
	}
	if got := string(buf.Bytes()); got != "shared" {
		t.Errorf("GetText = %q, want %q", got, "shared")
	}
	lib.FreeText(b, buf)

	if !lib.HasOwnership(a) {
		t.Error("writer handle lost ownership")
	}
	if lib.HasOwnership(b) {
		t.Error("reader handle claims ownership")
	}
	if lib.Outstanding() != 0 {
		t.Errorf("%d buffers leaked", lib.Outstanding())
	}
}

func TestPollNotifiesOtherHandlesOnly(t *testing.T) {
	lib := New()
	writer := lib.Create()
	watcher := lib.Create()

	lib.SetText(writer, []byte("x\x00"))

	if got := lib.Poll(writer); got != 0 {
		t.Errorf("writer Poll = %d, want 0 for its own write", got)
	}
	if got := lib.Poll(watcher); got == 0 {
		t.Error("watcher Poll missed the change")
	}
	if got := lib.Poll(watcher); got != 0 {
		t.Errorf("second watcher Poll = %d, want 0 (consumed)", got)
	}
}

func TestInjectSimulatesExternalWrite(t *testing.T) {
	lib := New()
	h := lib.Create()

	lib.InjectText("from elsewhere")
	if got := lib.Poll(h); got == 0 {
		t.Fatal("Poll missed injected text")
	}
	if lib.HasOwnership(h) {
		t.Error("handle owns externally injected content")
	}

	img := []byte{1, 2, 3}
	lib.InjectImage(img)
	buf, n := lib.GetImage(h)
	if buf == nil || n != len(img) {
		t.Fatalf("GetImage = %v, %d", buf, n)
	}
	if !bytes.Equal(buf.Bytes(), img) {
		t.Errorf("GetImage = %v, want %v", buf.Bytes(), img)
	}
	lib.FreeImage(h, buf)
}

func TestDestroyInvalidatesHandle(t *testing.T) {
	lib := New()
	h := lib.Create()

	if st := lib.Destroy(h); st.Failed() {
		t.Fatalf("Destroy: status %d", st)
	}
	if st := lib.Destroy(h); !st.Failed() {
		t.Error("second Destroy succeeded on a dead handle")
	}
	if st := lib.SetText(h, []byte("x\x00")); !st.Failed() {
		t.Error("SetText succeeded on a dead handle")
	}
	if got := lib.Poll(h); got >= 0 {
		t.Errorf("Poll on dead handle = %d, want negative", got)
	}
}

func TestClear(t *testing.T) {
	lib := New()
	h := lib.Create()
	lib.SetText(h, []byte("x\x00"))
	lib.SetImage(h, []byte{9})

	if st := lib.Clear(h); st.Failed() {
		t.Fatalf("Clear: status %d", st)
	}
	if lib.HasText(h) || lib.HasImage(h) || lib.HasOwnership(h) {
		t.Error("state flags survived Clear")
	}
	if lib.GetText(h) != nil {
		t.Error("text survived Clear")
	}
}

var _ native.Library = (*Library)(nil)
