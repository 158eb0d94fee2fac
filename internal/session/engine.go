// Package session runs capture sessions. An Engine owns one artifact and
// applies capture, undo and rotate commands to it from a single worker
// goroutine; a second worker mirrors captures to the clipboard. A Registry
// holds the open engines and routes hotkeys to the active one.
package session

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/himansukumarhkr/Click/internal/artifact"
	"github.com/himansukumarhkr/Click/internal/capture"
	"github.com/himansukumarhkr/Click/internal/clipboard"
	"github.com/himansukumarhkr/Click/internal/config"
	"github.com/himansukumarhkr/Click/internal/docx"
	"github.com/himansukumarhkr/Click/internal/metrics"
)

// ErrNotRunning is returned for commands sent to a stopped engine.
var ErrNotRunning = errors.New("session is not running")

const (
	pollInterval = 100 * time.Millisecond

	// Separator is the paragraph written after every document capture.
	Separator = "--------------------------------------------------"

	// ImageWidth is the width of a document capture.
	ImageWidth = 6 * docx.Inch

	// SafetyMargin is added to the projected document size before comparing
	// it with the size limit, covering markup and zip overhead.
	SafetyMargin int64 = 32 << 10

	// LockedSize replaces the size string while the artifact cannot be saved.
	LockedSize = "File Locked"

	jpegQuality = 90
)

// Status is the registry state of a session.
type Status int

const (
	Active Status = iota
	Paused
)

func (s Status) String() string {
	if s == Paused {
		return StatusPaused
	}
	return StatusActive
}

// Deps are the collaborators of an Engine. Only Grabber is required for
// Capture; everything else has a usable zero value.
type Deps struct {
	Grabber  capture.Grabber
	Title    capture.TitleSource
	Mirror   *clipboard.Mirror
	Observer Observer
	Journal  Journal
	Logger   *log.Logger

	Now      func() time.Time
	TempRoot string // parent of the session temp dir; "" = os.TempDir()

	SaveAttempts   uint          // artifact writes, default 5
	RetryDelay     time.Duration // between artifact write attempts, default 200ms
	ReplayInterval time.Duration // between CopyAll history items, default 600ms
	JoinTimeout    time.Duration // Cleanup wait for workers, default 5s
	Heartbeat      time.Duration // journal refresh while running, default 1h
}

func (d *Deps) fill() {
	if d.Logger == nil {
		d.Logger = log.New(os.Stderr, "click: ", log.LstdFlags)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.SaveAttempts == 0 {
		d.SaveAttempts = 5
	}
	if d.RetryDelay == 0 {
		d.RetryDelay = 200 * time.Millisecond
	}
	if d.ReplayInterval == 0 {
		d.ReplayInterval = 600 * time.Millisecond
	}
	if d.JoinTimeout == 0 {
		d.JoinTimeout = 5 * time.Second
	}
	if d.Heartbeat == 0 {
		d.Heartbeat = time.Hour
	}
}

// Engine is one capture session bound to one artifact.
type Engine struct {
	cfg     config.Config
	mode    artifact.Mode
	deps    Deps
	logger  *log.Logger
	runID   string
	started time.Time
	maxSize int64
	tempDir string

	mu          sync.Mutex // guards the fields below, written by the artifact worker
	baseName    string
	currentPath string
	count       int
	size        string
	captured    []string
	clipOf      []string // auto-copy file of each committed capture
	parts       []string // every document this run wrote, oldest first
	status      Status

	requested atomic.Int64
	running   atomic.Bool

	cmds  *queue[command]
	clips *queue[clipCmd]

	// owned by the artifact worker
	doc        *docx.Document
	dirty      bool
	lockWarned bool

	encodeMu sync.Mutex // temp-file JPEG writes, shared by both workers

	filesMu   sync.Mutex
	clipFiles []string // cumulative auto-copy list

	group        *errgroup.Group
	startOnce    sync.Once
	stopOnce     sync.Once
	cleanupOnce  sync.Once
	stopped      chan struct{}
	artifactDone chan struct{}
}

// New resolves a unique artifact path for cfg, creates the empty artifact
// and a private temp directory, and starts the workers.
func New(cfg config.Config, deps Deps) (*Engine, error) {
	cfg.Normalize()
	deps.fill()

	mode := artifact.Document
	if cfg.Folder() {
		mode = artifact.Folder
	}
	now := deps.Now()
	dir := cfg.SaveDirFor(now)

	res, err := artifact.ResolveUniquePath(dir, cfg.Filename, mode)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:         cfg,
		mode:        mode,
		deps:        deps,
		logger:      deps.Logger,
		runID:       uuid.New().String(),
		started:     now,
		maxSize:     cfg.MaxSizeBytes(),
		baseName:    res.BaseName,
		currentPath: res.Path,
		size:        "0 KB",
		cmds:        newQueue[command](),
		clips:       newQueue[clipCmd](),
		stopped:     make(chan struct{}),
	}
	e.artifactDone = make(chan struct{})

	if mode == artifact.Folder {
		if err := os.MkdirAll(res.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create capture folder: %w", err)
		}
	} else {
		e.doc, err = docx.New()
		if err != nil {
			return nil, err
		}
		e.parts = []string{res.Path}
		if err := e.doc.Save(res.Path); err != nil {
			return nil, fmt.Errorf("create document: %w", err)
		}
		e.size = artifact.FormatSize(res.Path)
	}

	e.tempDir, err = os.MkdirTemp(deps.TempRoot, TempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	e.Start()
	return e, nil
}

// Start launches the artifact and clipboard workers. Calling it again has no
// effect.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.running.Store(true)
		e.group = new(errgroup.Group)
		e.group.Go(e.artifactLoop)
		e.group.Go(e.clipboardLoop)
		metrics.SessionOpened()
		e.journal()
		e.logger.Printf("session %s: started %s artifact at %s", e.runID, e.mode, e.ID())
	})
}

// RunID identifies this engine run in the journal.
func (e *Engine) RunID() string { return e.runID }

// ID is the session identifier: the current artifact path. It changes when a
// document rotates.
func (e *Engine) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentPath
}

// Mode returns the artifact kind.
func (e *Engine) Mode() artifact.Mode { return e.mode }

// BaseName is the artifact name without directory or extension.
func (e *Engine) BaseName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseName
}

// Count is the number of captures committed to the artifact.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Requested is the optimistic capture count: committed captures plus the
// ones still queued.
func (e *Engine) Requested() int { return int(e.requested.Load()) }

// Size is the last known artifact size string.
func (e *Engine) Size() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size
}

// Paths returns the temp files of the committed captures, oldest first.
func (e *Engine) Paths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.captured...)
}

// TempDir is the private scratch directory of the session.
func (e *Engine) TempDir() string { return e.tempDir }

// Running reports whether the engine still accepts commands.
func (e *Engine) Running() bool { return e.running.Load() }

// Status returns the registry state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SetStatus changes the registry state and journals it.
func (e *Engine) SetStatus(s Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
	e.journal()
}

// Capture grabs the screen with the configured grabber and queues the image.
func (e *Engine) Capture() {
	e.CaptureWith(e.deps.Grabber)
}

// CaptureWith grabs an image from g and queues it. Grab failures are logged
// and leave the session untouched.
func (e *Engine) CaptureWith(g capture.Grabber) {
	if !e.running.Load() {
		return
	}
	if g == nil {
		e.logger.Printf("session %s: capture: %v", e.runID, capture.ErrNoGrabber)
		return
	}
	img, err := g.Grab()
	if err != nil {
		e.logger.Printf("session %s: capture: %v", e.runID, err)
		metrics.RecordCapture(e.mode.String(), metrics.ResultSkipped)
		return
	}
	e.CaptureImage(img)
}

// CaptureImage queues an already grabbed image.
func (e *Engine) CaptureImage(img image.Image) {
	if !e.running.Load() || img == nil {
		return
	}
	n := int(e.requested.Add(1))

	var title string
	if e.cfg.LogTitle {
		title = capture.ResolveTitle(e.deps.Title)
	}
	var clip string
	if e.cfg.AutoCopy {
		clip = filepath.Join(e.tempDir, fmt.Sprintf("clip_%d.jpg", n))
	}
	e.cmds.push(saveCmd{img: img, title: title, clip: clip})
	metrics.RecordCapture(e.mode.String(), metrics.ResultQueued)

	if clip != "" {
		e.clips.push(clipCmd{kind: clipCapture, img: img, tempPath: clip, files: e.addClipFile(clip)})
	}
	e.emit(Event{Kind: EventNotify, ID: e.ID(), Count: n, Size: e.Size()})
}

func (e *Engine) addClipFile(p string) []string {
	e.filesMu.Lock()
	defer e.filesMu.Unlock()
	for _, f := range e.clipFiles {
		if f == p {
			return append([]string(nil), e.clipFiles...)
		}
	}
	e.clipFiles = append(e.clipFiles, p)
	return append([]string(nil), e.clipFiles...)
}

// dropClipFile removes p from the auto-copy list once its capture is undone
// or failed to save.
func (e *Engine) dropClipFile(p string) {
	if p == "" {
		return
	}
	e.filesMu.Lock()
	defer e.filesMu.Unlock()
	for i := len(e.clipFiles) - 1; i >= 0; i-- {
		if e.clipFiles[i] == p {
			e.clipFiles = append(e.clipFiles[:i], e.clipFiles[i+1:]...)
			return
		}
	}
}

// ClipFiles returns the files the next auto-copy publishes besides its own.
func (e *Engine) ClipFiles() []string {
	e.filesMu.Lock()
	defer e.filesMu.Unlock()
	return append([]string(nil), e.clipFiles...)
}

// Undo queues removal of the latest capture. It never blocks.
func (e *Engine) Undo() {
	if !e.running.Load() {
		return
	}
	e.cmds.push(undoCmd{})
}

// Rotate queues a move to the next document part. Folder sessions ignore it.
func (e *Engine) Rotate() {
	if !e.running.Load() || e.mode == artifact.Folder {
		return
	}
	e.cmds.push(rotateCmd{})
}

// CopyAll queues publishing every capture to the clipboard.
func (e *Engine) CopyAll() {
	if !e.running.Load() {
		return
	}
	e.cmds.push(copyAllCmd{})
}

// CopyMasterFile queues publishing the artifact itself to the clipboard.
func (e *Engine) CopyMasterFile() {
	if !e.running.Load() {
		return
	}
	e.cmds.push(copyMasterCmd{})
}

// Stop stops accepting commands. Queued commands still run, then any
// unsaved document changes are flushed and the workers exit.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.running.Store(false)
		e.cmds.push(flushCmd{})
		close(e.stopped)
	})
}

// Wait blocks until both workers have exited or timeout passes, and reports
// whether they exited.
func (e *Engine) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		e.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Cleanup stops the engine, waits a bounded time for the workers, removes
// the temp directory and, if deleteArtifact is set, the artifact with every
// document part. Further calls do nothing.
func (e *Engine) Cleanup(deleteArtifact bool) {
	e.cleanupOnce.Do(func() {
		e.Stop()
		if !e.Wait(e.deps.JoinTimeout) {
			e.logger.Printf("session %s: workers did not exit within %s", e.runID, e.deps.JoinTimeout)
		}
		os.RemoveAll(e.tempDir)

		if deleteArtifact {
			e.deleteArtifact()
			if e.deps.Journal != nil {
				if err := e.deps.Journal.Remove(e.runID); err != nil {
					e.logger.Printf("session %s: journal: %v", e.runID, err)
				}
			}
		} else {
			e.journal()
		}
		metrics.SessionClosed()
		e.logger.Printf("session %s: closed (deleted=%v)", e.runID, deleteArtifact)
	})
}

func (e *Engine) deleteArtifact() {
	if e.mode == artifact.Folder {
		os.RemoveAll(e.ID())
		return
	}
	for _, p := range e.Parts() {
		os.Remove(p)
	}
}

// Parts lists every document this run wrote, oldest first. Documents of
// other runs that share the directory are never included.
func (e *Engine) Parts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.parts...)
}

// Record is the journal snapshot of the engine.
func (e *Engine) Record() Record {
	e.mu.Lock()
	r := Record{
		RunID:   e.runID,
		ID:      e.currentPath,
		Mode:    e.mode.String(),
		Count:   e.count,
		Size:    e.size,
		Status:  e.status.String(),
		TempDir: e.tempDir,
		Started: e.started,
		Updated: e.deps.Now(),
	}
	e.mu.Unlock()

	if !e.running.Load() {
		r.Status = StatusClosed
	}
	if e.mode == artifact.Document {
		r.Parts = e.Parts()
	}
	return r
}

func (e *Engine) journal() {
	if e.deps.Journal == nil {
		return
	}
	if err := e.deps.Journal.Put(e.Record()); err != nil {
		e.logger.Printf("session %s: journal: %v", e.runID, err)
	}
}

func (e *Engine) emit(ev Event) {
	if e.deps.Observer != nil {
		e.deps.Observer(ev)
	}
}

func (e *Engine) isStopped() bool {
	select {
	case <-e.stopped:
		return true
	default:
		return false
	}
}

// artifactExited reports whether the artifact worker has returned, after
// which nothing can feed the clipboard queue.
func (e *Engine) artifactExited() bool {
	select {
	case <-e.artifactDone:
		return true
	default:
		return false
	}
}

// guard runs fn and turns a panic into a log line, so one bad command cannot
// take the worker down.
func (e *Engine) guard(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("session %s: %s: recovered: %v", e.runID, what, r)
		}
	}()
	fn()
}
