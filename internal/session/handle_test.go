package session

import (
	"errors"
	"testing"

	"github.com/clipvise/clipvise/internal/native"
)

func TestNewRejectsInvalidSentinels(t *testing.T) {
	for _, sentinel := range []native.Handle{native.InvalidHandle, native.BadHandle} {
		lib := newFakeLib()
		lib.createResult = sentinel

		_, err := New(lib, DefaultConfig())
		if err == nil {
			t.Fatalf("New with handle %#x: expected error", uintptr(sentinel))
		}
		var initErr *InitError
		if !errors.As(err, &initErr) {
			t.Fatalf("New error = %v, want *InitError", err)
		}
		if initErr.Kind != InitCreateRejected {
			t.Errorf("Kind = %v, want InitCreateRejected", initErr.Kind)
		}
	}
}

func TestNewFromLoaderReportsMissingLibrary(t *testing.T) {
	load := func() (native.Library, error) {
		return nil, native.ErrNotFound
	}

	_, err := NewFromLoader(load, DefaultConfig())
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("NewFromLoader error = %v, want *InitError", err)
	}
	if initErr.Kind != InitLibraryMissing {
		t.Errorf("Kind = %v, want InitLibraryMissing", initErr.Kind)
	}
	if !errors.Is(err, native.ErrNotFound) {
		t.Errorf("error does not unwrap to native.ErrNotFound: %v", err)
	}
}

func TestCloseReleasesHandleExactlyOnce(t *testing.T) {
	lib := newFakeLib()
	s, err := New(lib, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, _, _, destroys := lib.counts(); destroys != 1 {
		t.Errorf("Destroy called %d times, want 1", destroys)
	}
}

func TestCloseSwallowsDestroyFailure(t *testing.T) {
	lib := newFakeLib()
	lib.destroyStatus = 5
	s, err := New(lib, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close returned %v despite swallow contract", err)
	}
}
