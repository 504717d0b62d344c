package platform

import (
	"encoding/hex"
	"errors"
)

const (
	defaultGuardSize = 64
	guardSentinel    = 0xAA
)

// ErrGuardCorrupted indicates a stack guard's canary bytes no longer match
// the sentinel pattern written at allocation time.
var ErrGuardCorrupted = errors.New("platform: stack guard corrupted")

// Guard is a canary region used to detect stack overflow. Each task gets a
// dedicated, long-lived byte slice owned by its TCB for the lifetime of the
// kernel, so the canary survives independent of the task's own stack
// frames.
type Guard struct {
	region []byte
}

// NewGuard allocates a guard region of the given size, or defaultGuardSize
// if size <= 0, filled with the sentinel pattern.
func NewGuard(size int) *Guard {
	if size <= 0 {
		size = defaultGuardSize
	}

	region := make([]byte, size)
	for i := range region {
		region[i] = guardSentinel
	}

	return &Guard{region: region}
}

// Check verifies every byte of the guard region still matches the
// sentinel pattern, returning ErrGuardCorrupted if not.
func (g *Guard) Check() error {
	for _, b := range g.region {
		if b != guardSentinel {
			return ErrGuardCorrupted
		}
	}

	return nil
}

// Dump renders the guard region as a hex dump for overflow diagnostics.
func (g *Guard) Dump() string {
	return hex.Dump(g.region)
}

// Corrupt overwrites the first byte of the guard region, for tests that
// need to exercise the guard-violation halt path.
func (g *Guard) Corrupt() {
	if len(g.region) > 0 {
		g.region[0] = 0
	}
}
