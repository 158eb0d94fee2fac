//go:build windows

package artifact

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/windows"
)

// IsLocked reports whether err means another process holds the file open,
// typically Word or an image viewer.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION) ||
		errors.Is(err, fs.ErrPermission)
}
