// Package platform opens loose files while detecting locks held by other
// processes.
package platform

import "errors"

// ErrLocked is returned when another process holds a conflicting lock on the
// file. It is transient: the same open may succeed later.
var ErrLocked = errors.New("file is locked by another process")
