package artifact

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Size returns the byte length of a regular file, or the recursive total of
// every file below a directory.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		total += fi.Size()
		return nil
	})
	return total, err
}

// FormatSize renders the size of path for display. A path that does not
// exist reports "0 KB".
func FormatSize(path string) string {
	n, err := Size(path)
	if err != nil {
		return "0 KB"
	}
	return FormatBytes(n)
}

// FormatBytes renders n as "x.xx KB" below 1 MiB and "x.xx MB" from there on.
func FormatBytes(n int64) string {
	if n < 1048576 {
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(n)/1048576)
}
