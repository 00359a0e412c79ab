package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(InsufficientPoints, "Not enough points!")
	if got := KindOf(err); got != InsufficientPoints {
		t.Errorf("kind = %q, want %q", got, InsufficientPoints)
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := New(NotFound, "no user with that email")
	err := fmt.Errorf("link child: %w", inner)

	if got := KindOf(err); got != NotFound {
		t.Errorf("kind = %q, want %q", got, NotFound)
	}
	if got := MessageOf(err); got != "no user with that email" {
		t.Errorf("message = %q, want %q", got, "no user with that email")
	}
}

func TestKindOfUntagged(t *testing.T) {
	err := errors.New("connection reset")
	if got := KindOf(err); got != Remote {
		t.Errorf("kind = %q, want %q", got, Remote)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := Wrap(Remote, "store unreachable", cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if got := MessageOf(err); got != "store unreachable" {
		t.Errorf("message = %q, want %q", got, "store unreachable")
	}
}

func TestIsKind(t *testing.T) {
	err := Newf(Validation, "points must be >= 0, got %d", -5)
	if !IsKind(err, Validation) {
		t.Error("expected IsKind to match Validation")
	}
	if IsKind(err, NotFound) {
		t.Error("did not expect IsKind to match NotFound")
	}
	if IsKind(nil, Validation) {
		t.Error("nil error should never match a kind")
	}
}
