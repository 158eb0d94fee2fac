package session

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempPrefix names every per-session temp directory.
const TempPrefix = "Click_"

// StaleAfter is how long an open journal record may go without an update
// before its run is assumed dead. Running engines refresh their record every
// Deps.Heartbeat, well inside this window.
const StaleAfter = 12 * time.Hour

// SweepStale removes TempPrefix directories directly under root that no live
// run owns. A directory is live when an open record that was updated within
// StaleAfter names it, or when keep reports true for it. An empty root means
// os.TempDir(). The removed paths are returned; removal errors are skipped.
func SweepStale(root string, records []Record, keep func(dir string) bool) []string {
	if root == "" {
		root = os.TempDir()
	}
	live := make(map[string]bool)
	for _, r := range records {
		if r.TempDir != "" && r.Open() && time.Since(r.Updated) < StaleAfter {
			live[filepath.Clean(r.TempDir)] = true
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var removed []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if live[filepath.Clean(dir)] || (keep != nil && keep(dir)) {
			continue
		}
		if err := os.RemoveAll(dir); err == nil {
			removed = append(removed, dir)
		}
	}
	return removed
}
