//go:build !windows

package artifact

import (
	"errors"
	"io/fs"
)

// IsLocked reports whether err means the file cannot be written right now.
// Outside Windows there are no mandatory locks, so only permission errors
// qualify.
func IsLocked(err error) bool {
	return err != nil && errors.Is(err, fs.ErrPermission)
}
