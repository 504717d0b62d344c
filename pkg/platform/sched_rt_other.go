//go:build !(linux && rootful)

package platform

// PinRealtime is a no-op outside Linux rootful builds, where SCHED_FIFO is
// unavailable or would require privileges the test/demo environment does
// not have.
func PinRealtime(_ int) error {
	return nil
}
