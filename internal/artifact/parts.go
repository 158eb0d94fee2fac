package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

var partPattern = regexp.MustCompile(`^(.*)_Part(\d+)$`)

// SplitPart splits a document base name of the form "{root}_Part{n}".
func SplitPart(base string) (root string, n int, ok bool) {
	m := partPattern.FindStringSubmatch(base)
	if m == nil {
		return base, 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return base, 0, false
	}
	return m[1], n, true
}

// PartPath returns dir/{root}_Part{n}.docx.
func PartPath(dir, root string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_Part%d%s", root, n, DocExt))
}

// NextPart decides where a rotation moves a document. If current already
// carries a _Part{N} suffix the next part is the first free number after N
// and nothing is renamed.
// Otherwise the current file should be renamed to renameTo (the first free
// _Part{c}) and writing continues at next (_Part{c+1}).
func NextPart(current string) (next, renameTo string) {
	dir := filepath.Dir(current)
	base := strings.TrimSuffix(filepath.Base(current), DocExt)
	if root, n, ok := SplitPart(base); ok {
		n++
		for Exists(PartPath(dir, root, n)) {
			n++
		}
		return PartPath(dir, root, n), ""
	}
	c := 1
	for Exists(PartPath(dir, base, c)) {
		c++
	}
	return PartPath(dir, base, c+1), PartPath(dir, base, c)
}

// Parts lists every document belonging to root in dir: root.docx itself and
// all root_Part{N}.docx siblings, sorted by name.
func Parts(dir, root string) ([]string, error) {
	g, err := glob.Compile(glob.QuoteMeta(root) + "_Part*" + glob.QuoteMeta(DocExt))
	if err != nil {
		return nil, fmt.Errorf("compile part pattern: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == root+DocExt {
			out = append(out, filepath.Join(dir, name))
			continue
		}
		if !g.Match(name) {
			continue
		}
		if r, _, ok := SplitPart(strings.TrimSuffix(name, DocExt)); ok && r == root {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}
