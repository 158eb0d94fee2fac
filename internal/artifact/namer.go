// Package artifact names, measures and locates the files a capture session
// writes: a paginated .docx document (plus its rotated parts) or a flat
// folder of JPEG images.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Mode selects the artifact kind a session accumulates captures into.
type Mode int

const (
	Document Mode = iota
	Folder
)

func (m Mode) String() string {
	if m == Folder {
		return "folder"
	}
	return "docx"
}

// DocExt is the extension of Document-mode artifacts.
const DocExt = ".docx"

// Resolved is the outcome of ResolveUniquePath.
type Resolved struct {
	Path     string // full path of the file (Document) or directory (Folder)
	BaseName string // name actually used, without extension
}

// ResolveUniquePath returns a path under dir for desired that does not exist
// yet, appending _1, _2, ... to the name until a free candidate is found.
// Document mode adds DocExt and also treats a name as taken while any
// {name}_Part{N}.docx exists, so a new session never shares a root with the
// parts of an earlier one. Folder mode names a directory. dir is created if
// it is missing. The check is not atomic against other processes.
func ResolveUniquePath(dir, desired string, mode Mode) (Resolved, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Resolved{}, fmt.Errorf("create save directory: %w", err)
	}
	for c := 0; ; c++ {
		name := desired
		if c > 0 {
			name = fmt.Sprintf("%s_%d", desired, c)
		}
		p := filepath.Join(dir, name)
		if mode == Document {
			p += DocExt
		}
		_, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			if mode == Document && hasParts(dir, name) {
				continue
			}
			return Resolved{Path: p, BaseName: name}, nil
		}
		if err != nil {
			return Resolved{}, fmt.Errorf("stat %s: %w", p, err)
		}
	}
}

// hasParts reports whether dir holds any _Part{N} document of root.
func hasParts(dir, root string) bool {
	parts, err := Parts(dir, root)
	return err == nil && len(parts) > 0
}

// Exists reports whether path is present on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
