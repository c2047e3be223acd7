package window

import (
	"testing"
	"time"
)

func TestIsMutableInsideWindow(t *testing.T) {
	now := time.Now()

	if !IsMutable(now, now) {
		t.Error("Expected a just-created record to be mutable")
	}
	if !IsMutable(now.Add(-3*time.Minute), now) {
		t.Error("Expected a 3-minute-old record to be mutable")
	}
}

func TestIsMutableBoundaryInclusive(t *testing.T) {
	now := time.Now()

	if !IsMutable(now.Add(-EditWindow), now) {
		t.Error("Expected a record exactly at the window boundary to be mutable")
	}
	if IsMutable(now.Add(-EditWindow-time.Millisecond), now) {
		t.Error("Expected a record just past the window boundary to be immutable")
	}
}

func TestIsMutableExpired(t *testing.T) {
	now := time.Now()

	if IsMutable(now.Add(-6*time.Minute), now) {
		t.Error("Expected a 6-minute-old record to be immutable")
	}
}

func TestIsMutableFailsClosedOnZeroAnchor(t *testing.T) {
	if IsMutable(time.Time{}, time.Now()) {
		t.Error("Expected a zero creation timestamp to be immutable")
	}
}
