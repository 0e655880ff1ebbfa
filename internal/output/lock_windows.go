//go:build windows

package output

import (
	"os"
)

// lockFile acquires an exclusive lock on the file.
// TODO: Implement Windows locking via syscall.LockFileEx.
func lockFile(file *os.File) error {
	return nil
}

// unlockFile releases the lock
func unlockFile(file *os.File) error {
	return nil
}
