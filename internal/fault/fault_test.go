package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIncludesRemediation(t *testing.T) {
	err := New(MissingArtifacts, "distribution %s is missing", "modern-esm").
		WithRemediation("run the build first")
	want := "distribution modern-esm is missing\nrun the build first"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorWithoutRemediation(t *testing.T) {
	err := New(LockHeld, "lock is held")
	if err.Error() != "lock is held" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(PartialWriteFailure, cause, "install failed")
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must be reachable via errors.Is")
	}
}

func TestWrapRendersCause(t *testing.T) {
	cause := errors.New("no space left on device")
	err := Wrap(PartialWriteFailure, cause, "install failed during %s", "copy").
		WithRemediation("free disk space and retry")
	want := "install failed during copy: no space left on device\nfree disk space and retry"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	err := New(UnsupportedRuntime, "Node 12 is too old")
	wrapped := fmt.Errorf("detect: %w", err)

	if got := KindOf(wrapped); got != UnsupportedRuntime {
		t.Fatalf("KindOf = %q, want %q", got, UnsupportedRuntime)
	}
	if !IsKind(wrapped, UnsupportedRuntime) {
		t.Fatal("IsKind must match through fmt.Errorf wrapping")
	}
	if IsKind(wrapped, LockHeld) {
		t.Fatal("IsKind must not match a different kind")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Fatalf("KindOf(plain) = %q, want empty", got)
	}
}
