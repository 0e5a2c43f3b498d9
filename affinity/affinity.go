// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

// SetAffinity pins the current OS thread to a given logical CPU on supported
// platforms. Lock the goroutine to its thread first, or the pin applies to
// whichever goroutine next runs there.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}
