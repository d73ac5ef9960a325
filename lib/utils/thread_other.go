//go:build !linux

package utils

// ThreadID is not available on this platform and always returns 0.
func ThreadID() int {
	return 0
}
