//go:build !unix && !windows

package platform

import "os"

// OpenShared opens name for reading. Lock detection is not supported on this
// platform, so ErrLocked is never returned.
func OpenShared(name string) (*os.File, error) {
	return os.Open(name)
}
