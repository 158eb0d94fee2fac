// Package docx adapts github.com/gomutex/godocx to the flat flow a capture
// document needs: text paragraphs and inline pictures, appended at the end
// and removed from the end.
package docx

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/common/units"
	gdocx "github.com/gomutex/godocx/docx"
)

// EMU per inch, the DrawingML length unit.
const Inch int64 = 914400

// ErrNotDocument is returned by Open for a file that is not a
// WordprocessingML package.
var ErrNotDocument = errors.New("not a wordprocessing document")

// Kind tells a text paragraph from a picture paragraph.
type Kind int

const (
	Text Kind = iota
	Picture
)

// Block is one body element as the capture flow sees it.
type Block struct {
	Kind Kind
	Text string // paragraph text, empty for pictures
}

// Document wraps a godocx root document.
type Document struct {
	root *gdocx.RootDoc
}

// New returns a document with an empty body.
func New() (*Document, error) {
	root, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("new document: %w", err)
	}
	root.Document.Body.Children = nil
	return &Document{root: root}, nil
}

// Open reads the document at p.
func Open(p string) (*Document, error) {
	if _, err := os.Stat(p); err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	root, err := godocx.OpenDocument(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotDocument, filepath.Base(p), err)
	}
	if root.Document == nil || root.Document.Body == nil {
		return nil, fmt.Errorf("%w: %s has no body", ErrNotDocument, filepath.Base(p))
	}
	return &Document{root: root}, nil
}

func (d *Document) children() []gdocx.DocumentChild {
	return d.root.Document.Body.Children
}

// Len returns the number of body elements.
func (d *Document) Len() int { return len(d.children()) }

// Blocks returns the body elements in order.
func (d *Document) Blocks() []Block {
	out := make([]Block, 0, d.Len())
	for _, c := range d.children() {
		out = append(out, classify(c))
	}
	return out
}

// classify reads a body element. Tables count as empty text.
func classify(c gdocx.DocumentChild) Block {
	if c.Para == nil {
		return Block{Kind: Text}
	}
	var sb strings.Builder
	for _, pc := range c.Para.GetCT().Children {
		if pc.Run == nil {
			continue
		}
		for _, rc := range pc.Run.Children {
			if rc.Drawing != nil {
				return Block{Kind: Picture}
			}
			if rc.Text != nil {
				sb.WriteString(rc.Text.Text)
			}
		}
	}
	return Block{Kind: Text, Text: sb.String()}
}

// Last returns the final element. ok is false for an empty document.
func (d *Document) Last() (b Block, ok bool) {
	cs := d.children()
	if len(cs) == 0 {
		return Block{}, false
	}
	return classify(cs[len(cs)-1]), true
}

// RemoveLast drops the final element.
// TODO: drop the media part of a removed picture once nothing references it;
// godocx keeps it in the package until the document is rebuilt.
func (d *Document) RemoveLast() (Block, bool) {
	b, ok := d.Last()
	if ok {
		body := d.root.Document.Body
		body.Children = body.Children[:len(body.Children)-1]
	}
	return b, ok
}

// Pictures counts picture paragraphs.
func (d *Document) Pictures() int {
	n := 0
	for _, b := range d.Blocks() {
		if b.Kind == Picture {
			n++
		}
	}
	return n
}

// AppendParagraph adds a text paragraph.
func (d *Document) AppendParagraph(text string) {
	d.root.AddParagraph(text)
}

// AppendImage adds the JPEG or PNG at path as an inline picture scaled to
// width EMUs, keeping its aspect ratio.
func (d *Document) AppendImage(path string, width int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("decode image %s: empty image", filepath.Base(path))
	}

	w := float64(width) / float64(Inch)
	h := w * float64(cfg.Height) / float64(cfg.Width)
	if _, err := d.root.AddPicture(path, units.Inch(w), units.Inch(h)); err != nil {
		return fmt.Errorf("add picture %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Save writes the document to a temp file next to path and renames it into
// place, so a reader never sees a half-written package. Renaming over a file
// another program holds open fails, which is how callers detect a locked
// document.
func (d *Document) Save(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), ".docx")+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if err = d.root.SaveTo(tmpName); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}
