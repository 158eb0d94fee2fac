package session

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/himansukumarhkr/Click/internal/artifact"
	"github.com/himansukumarhkr/Click/internal/docx"
	"github.com/himansukumarhkr/Click/internal/metrics"
)

// command is one unit of work for the artifact worker.
type command interface {
	name() string
}

type saveCmd struct {
	img   image.Image
	title string
	clip  string // auto-copy file, "" without auto-copy
}

type undoCmd struct{}
type rotateCmd struct{}
type copyAllCmd struct{}
type copyMasterCmd struct{}
type flushCmd struct{}

func (saveCmd) name() string       { return "save" }
func (undoCmd) name() string       { return "undo" }
func (rotateCmd) name() string     { return "rotate" }
func (copyAllCmd) name() string    { return "copy all" }
func (copyMasterCmd) name() string { return "copy master" }
func (flushCmd) name() string      { return "flush" }

type clipKind int

const (
	clipCapture clipKind = iota
	clipReplay
	clipMaster
)

// clipCmd is one unit of work for the clipboard worker.
type clipCmd struct {
	kind     clipKind
	img      image.Image
	tempPath string
	files    []string
}

func (e *Engine) artifactLoop() error {
	defer close(e.artifactDone)
	beat := time.Now()
	for {
		cmd, ok := e.cmds.pop(pollInterval)
		if e.running.Load() && time.Since(beat) >= e.deps.Heartbeat {
			e.journal()
			beat = time.Now()
		}
		if !ok {
			if e.isStopped() && e.cmds.len() == 0 {
				return nil
			}
			continue
		}
		e.guard(cmd.name(), func() { e.apply(cmd) })
	}
}

func (e *Engine) clipboardLoop() error {
	for {
		c, ok := e.clips.pop(pollInterval)
		if !ok {
			if e.artifactExited() && e.clips.len() == 0 {
				return nil
			}
			continue
		}
		e.guard("clipboard", func() { e.applyClip(c) })
	}
}

func (e *Engine) apply(cmd command) {
	switch c := cmd.(type) {
	case saveCmd:
		e.save(c)
	case undoCmd:
		e.undo()
	case rotateCmd:
		e.rotate()
		e.journal()
	case copyAllCmd:
		e.queueCopyAll()
	case copyMasterCmd:
		e.flush()
		e.clips.push(clipCmd{kind: clipMaster, files: []string{e.ID()}})
	case flushCmd:
		e.flush()
	}
}

// Caption returns the text written above a document capture.
func Caption(title string, n int, logTitle, appendNum bool) string {
	switch {
	case logTitle && appendNum:
		return fmt.Sprintf("%s %d", title, n)
	case logTitle:
		return title
	case appendNum:
		return fmt.Sprint(n)
	}
	return ""
}

func (e *Engine) tempName(n int) string {
	if e.mode == artifact.Folder {
		return fmt.Sprintf("%s_%d.jpg", e.BaseName(), n)
	}
	return fmt.Sprintf("screen_%d.jpg", n)
}

func (e *Engine) save(c saveCmd) {
	start := time.Now()
	n := e.Count() + 1
	tmp := filepath.Join(e.tempDir, e.tempName(n))

	if err := e.writeJPEG(tmp, c.img); err != nil {
		e.logger.Printf("session %s: save capture %d: %v", e.runID, n, err)
		e.dropClipFile(c.clip)
		e.requested.Add(-1)
		metrics.RecordCapture(e.mode.String(), metrics.ResultFailed)
		return
	}

	var size string
	var err error
	if e.mode == artifact.Folder {
		size, err = e.saveFolder(tmp, n)
	} else {
		size, err = e.saveDocument(tmp, c.title, n)
	}
	if err != nil {
		e.logger.Printf("session %s: save capture %d: %v", e.runID, n, err)
		os.Remove(tmp)
		e.dropClipFile(c.clip)
		e.requested.Add(-1)
		metrics.RecordCapture(e.mode.String(), metrics.ResultFailed)
		return
	}

	e.mu.Lock()
	e.captured = append(e.captured, tmp)
	e.clipOf = append(e.clipOf, c.clip)
	e.count = n
	e.size = size
	id := e.currentPath
	e.mu.Unlock()

	result := metrics.ResultSaved
	if size == LockedSize {
		result = metrics.ResultLocked
	}
	metrics.RecordCapture(e.mode.String(), result)
	metrics.ObserveSave(e.mode.String(), time.Since(start).Seconds())
	e.journal()
	e.emit(Event{Kind: EventUpdateSession, ID: id, Count: n, Size: size})
}

func (e *Engine) saveFolder(tmp string, n int) (string, error) {
	dir := e.ID()
	dst := filepath.Join(dir, e.tempName(n))
	err := e.retry(func() error { return artifact.CopyFile(tmp, dst) })
	if err != nil {
		return "", fmt.Errorf("copy into %s: %w", dir, err)
	}
	return artifact.FormatSize(dir), nil
}

func (e *Engine) saveDocument(tmp, title string, n int) (string, error) {
	if e.maxSize > 0 && e.shouldRotate(tmp) {
		e.rotate()
	}
	if err := e.openDocument(); err != nil {
		return "", err
	}

	caption := Caption(title, n, e.cfg.LogTitle, e.cfg.AppendNum)
	if caption != "" {
		e.doc.AppendParagraph(caption)
	}
	if err := e.doc.AppendImage(tmp, ImageWidth); err != nil {
		if caption != "" {
			e.doc.RemoveLast()
		}
		return "", err
	}
	e.doc.AppendParagraph(Separator)
	e.dirty = true
	return e.persist(), nil
}

// shouldRotate reports whether appending the image at tmp would push the
// current document past the size limit. An empty document never rotates, so
// one oversized capture cannot cause a rotation loop.
func (e *Engine) shouldRotate(tmp string) bool {
	cur := e.ID()
	if !artifact.Exists(cur) {
		return false
	}
	if e.doc != nil && e.doc.Pictures() == 0 {
		return false
	}
	docSize, err := artifact.Size(cur)
	if err != nil {
		return false
	}
	imgSize, err := artifact.Size(tmp)
	if err != nil {
		return false
	}
	return docSize+imgSize+SafetyMargin > e.maxSize
}

func (e *Engine) openDocument() error {
	if e.doc != nil {
		return nil
	}
	cur := e.ID()
	if !artifact.Exists(cur) {
		doc, err := docx.New()
		if err != nil {
			return err
		}
		e.doc = doc
		return nil
	}
	doc, err := docx.Open(cur)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", filepath.Base(cur), err)
	}
	e.doc = doc
	return nil
}

// persist saves the open document and returns the new size string. A save
// that keeps failing on a lock warns once per episode and reports
// LockedSize; the changes stay in memory for the next save.
func (e *Engine) persist() string {
	cur := e.ID()
	err := e.retry(func() error { return e.doc.Save(cur) })
	if err == nil {
		e.dirty = false
		e.lockWarned = false
		return artifact.FormatSize(cur)
	}
	if artifact.IsLocked(err) {
		if !e.lockWarned {
			e.lockWarned = true
			e.emit(Event{Kind: EventWarning, ID: cur, Title: "File Locked", Message: "Close Word to save"})
		}
		e.logger.Printf("session %s: %s is locked", e.runID, filepath.Base(cur))
		return LockedSize
	}
	e.logger.Printf("session %s: save document: %v", e.runID, err)
	return e.Size()
}

// retry runs op until it succeeds, fails with a non-lock error, or the
// configured attempts run out.
func (e *Engine) retry(op func() error) error {
	_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
		err := op()
		if err != nil && !artifact.IsLocked(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(e.deps.RetryDelay)),
		backoff.WithMaxTries(e.deps.SaveAttempts),
	)
	return err
}

func (e *Engine) flush() {
	if e.mode != artifact.Document || e.doc == nil || !e.dirty {
		return
	}
	size := e.persist()
	e.mu.Lock()
	e.size = size
	e.mu.Unlock()
}

func (e *Engine) undo() {
	e.mu.Lock()
	n := e.count
	e.mu.Unlock()
	if n <= 0 {
		return
	}

	var size string
	if e.mode == artifact.Folder {
		os.Remove(filepath.Join(e.ID(), e.tempName(n)))
		size = artifact.FormatSize(e.ID())
	} else {
		size = e.undoDocument(n)
	}

	var clip string
	e.mu.Lock()
	if k := len(e.captured); k > 0 {
		os.Remove(e.captured[k-1])
		e.captured = e.captured[:k-1]
	}
	if k := len(e.clipOf); k > 0 {
		clip = e.clipOf[k-1]
		e.clipOf = e.clipOf[:k-1]
	}
	e.count = n - 1
	e.size = size
	id := e.currentPath
	e.mu.Unlock()

	e.dropClipFile(clip)
	e.requested.Add(-1)
	metrics.RecordUndo(e.mode.String())
	e.journal()
	e.emit(Event{Kind: EventUndo, ID: id, Count: n - 1, Size: size})
}

// undoDocument removes capture n from the newest part that still holds a
// picture. Right after a rotation that is an earlier part, which is reopened,
// trimmed and saved. It returns the size string of the current part.
func (e *Engine) undoDocument(n int) string {
	if err := e.openDocument(); err != nil {
		e.logger.Printf("session %s: undo %d: %v", e.runID, n, err)
		return e.Size()
	}
	if e.doc.Pictures() > 0 {
		RemoveEntry(e.doc)
		e.dirty = true
		return e.persist()
	}

	parts := e.Parts()
	for i := len(parts) - 2; i >= 0; i-- {
		p := parts[i]
		doc, err := docx.Open(p)
		if err != nil {
			e.logger.Printf("session %s: undo %d: %v", e.runID, n, err)
			break
		}
		if doc.Pictures() == 0 {
			continue
		}
		RemoveEntry(doc)
		if err := e.retry(func() error { return doc.Save(p) }); err != nil {
			e.logger.Printf("session %s: undo %d in %s: %v", e.runID, n, filepath.Base(p), err)
		}
		break
	}
	return e.Size()
}

// RemoveEntry drops the trailing capture entry of doc: its separator, its
// picture and its caption, stopping at the first paragraph that is not part
// of the entry. It returns the number of paragraphs removed.
func RemoveEntry(doc *docx.Document) int {
	removed := 0
	if b, ok := doc.Last(); ok && b.Kind == docx.Text && b.Text == Separator {
		doc.RemoveLast()
		removed++
	}
	if b, ok := doc.Last(); !ok || b.Kind != docx.Picture {
		return removed
	}
	doc.RemoveLast()
	removed++
	if b, ok := doc.Last(); ok && b.Kind == docx.Text && b.Text != Separator {
		doc.RemoveLast()
		removed++
	}
	return removed
}

func (e *Engine) rotate() {
	if e.mode == artifact.Folder {
		return
	}
	e.flush()
	doc, err := docx.New()
	if err != nil {
		e.logger.Printf("session %s: rotate: %v", e.runID, err)
		return
	}
	old := e.ID()
	next, renameTo := artifact.NextPart(old)
	renamed := false
	if renameTo != "" {
		if err := os.Rename(old, renameTo); err != nil {
			e.logger.Printf("session %s: rotate: rename %s: %v", e.runID, filepath.Base(old), err)
		} else {
			renamed = true
		}
	}

	e.doc = doc
	e.dirty = true
	e.lockWarned = false
	e.mu.Lock()
	if renamed {
		for i, p := range e.parts {
			if p == old {
				e.parts[i] = renameTo
			}
		}
	}
	e.parts = append(e.parts, next)
	e.currentPath = next
	e.baseName = filepath.Base(next[:len(next)-len(artifact.DocExt)])
	e.mu.Unlock()

	e.persist()
	e.mu.Lock()
	e.size = "0 KB"
	e.mu.Unlock()

	metrics.RecordRotation()
	e.logger.Printf("session %s: rotated %s -> %s", e.runID, filepath.Base(old), filepath.Base(next))
	e.emit(Event{Kind: EventUpdateFilename, ID: next, OldID: old, NewID: next, Count: e.Count(), Size: "0 KB"})
}

// copyPaths lists what CopyAll hands over: the artifact images in Folder
// mode, the encoded temp files in Document mode.
func (e *Engine) copyPaths() []string {
	captured := e.Paths()
	if e.mode == artifact.Document {
		return captured
	}
	dir := e.ID()
	out := make([]string, 0, len(captured))
	for i := range captured {
		out = append(out, filepath.Join(dir, e.tempName(i+1)))
	}
	return out
}

func (e *Engine) queueCopyAll() {
	e.clips.push(clipCmd{kind: clipReplay, files: e.copyPaths()})
}

func (e *Engine) applyClip(c clipCmd) {
	switch c.kind {
	case clipCapture:
		files := c.files
		if err := e.writeJPEG(c.tempPath, c.img); err != nil {
			e.logger.Printf("session %s: clipboard temp file: %v", e.runID, err)
			files = nil
		}
		e.deps.Mirror.Publish(c.img, files)
	case clipReplay:
		ok := e.replay(c.files)
		e.emit(Event{Kind: EventCopyResult, ID: e.ID(), Count: len(c.files), OK: ok})
	case clipMaster:
		ok := e.deps.Mirror.PublishFiles(c.files)
		e.emit(Event{Kind: EventCopyResult, ID: e.ID(), Count: len(c.files), OK: ok})
	}
}

// replay publishes every image but the last on its own, paced for clipboard
// history managers, then the last image together with the full file list.
func (e *Engine) replay(files []string) bool {
	if len(files) == 0 || e.deps.Mirror == nil {
		return false
	}
	if e.cfg.ClipHistory && e.deps.Mirror.Options().Image {
		lim := rate.NewLimiter(rate.Every(e.deps.ReplayInterval), 1)
		for _, f := range files[:len(files)-1] {
			img, err := decodeJPEG(f)
			if err != nil {
				continue
			}
			lim.Wait(context.Background())
			e.deps.Mirror.Publish(img, nil)
		}
		lim.Wait(context.Background())
	}
	last, err := decodeJPEG(files[len(files)-1])
	if err != nil {
		last = nil
	}
	return e.deps.Mirror.Publish(last, files)
}

// writeJPEG encodes img to path, flattening alpha first.
func (e *Engine) writeJPEG(path string, img image.Image) error {
	e.encodeMu.Lock()
	defer e.encodeMu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, opaque(img), &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return f.Close()
}

func opaque(img image.Image) image.Image {
	switch img.(type) {
	case *image.YCbCr, *image.Gray:
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func decodeJPEG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return jpeg.Decode(f)
}
