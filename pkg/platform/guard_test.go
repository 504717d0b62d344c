package platform

import (
	"errors"
	"testing"
)

func TestGuardCheckPassesForFreshRegion(t *testing.T) {
	t.Parallel()

	g := NewGuard(32)

	err := g.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGuardCheckDetectsCorruption(t *testing.T) {
	t.Parallel()

	g := NewGuard(32)
	g.Corrupt()

	err := g.Check()
	if !errors.Is(err, ErrGuardCorrupted) {
		t.Fatalf("expected ErrGuardCorrupted, got %v", err)
	}
}

func TestNewGuardDefaultsNonPositiveSize(t *testing.T) {
	t.Parallel()

	g := NewGuard(0)

	if len(g.region) != defaultGuardSize {
		t.Fatalf("expected default guard size %d, got %d", defaultGuardSize, len(g.region))
	}
}
