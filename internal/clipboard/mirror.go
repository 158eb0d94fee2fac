// Package clipboard mirrors captures to the system clipboard so they can be
// pasted as a bitmap into chat or documents, or as files into a file manager
// or upload form.
package clipboard

import (
	"context"
	"errors"
	"image"
	"log"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/himansukumarhkr/Click/internal/metrics"
)

// ErrBusy means another application holds the clipboard open.
var ErrBusy = errors.New("clipboard busy")

// Payload is what one publish installs. DIB and Drop are prebuilt in the
// Windows clipboard formats; Image and Files are there for backends that
// speak other formats.
type Payload struct {
	Image image.Image
	DIB   []byte
	Files []string
	Drop  []byte
}

// Empty reports whether there is nothing to install.
func (p Payload) Empty() bool {
	return p.Image == nil && len(p.Files) == 0
}

// Backend is exclusive access to the OS clipboard. Open must be paired with
// Close. Backends allocate OS memory for the payload inside Set, while the
// clipboard is held, and free it themselves if installing fails, so a failed
// Open never leaks.
type Backend interface {
	Name() string
	Open() error
	Clear() error
	Set(p Payload) error
	Close() error
}

// Options control what is published and how hard Open is retried.
type Options struct {
	Image    bool
	Files    bool
	Attempts uint
	Delay    time.Duration
}

// DefaultOptions mirror both formats and retry Open 20 times, 100ms apart.
func DefaultOptions() Options {
	return Options{Image: true, Files: true, Attempts: 20, Delay: 100 * time.Millisecond}
}

// Mirror publishes capture data to a Backend.
type Mirror struct {
	backend Backend
	opts    Options
	logger  *log.Logger
}

// New returns a Mirror. A nil logger discards output.
func New(b Backend, opts Options, logger *log.Logger) *Mirror {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if logger == nil {
		logger = log.New(discard{}, "", 0)
	}
	return &Mirror{backend: b, opts: opts, logger: logger}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Options returns the mirror's configuration.
func (m *Mirror) Options() Options { return m.opts }

// Publish installs img and/or paths on the clipboard, as enabled by the
// options. It reports whether anything was installed; failures are logged.
func (m *Mirror) Publish(img image.Image, paths []string) bool {
	if m == nil || m.backend == nil {
		return false
	}
	if !m.opts.Image && !m.opts.Files {
		return false
	}

	var p Payload
	if m.opts.Image && img != nil {
		dib, err := EncodeDIB(img)
		if err != nil {
			m.logger.Printf("clipboard: encode bitmap: %v", err)
		} else {
			p.Image, p.DIB = img, dib
		}
	}
	if m.opts.Files && len(paths) > 0 {
		p.Files = paths
		p.Drop = EncodeDropFiles(paths)
	}
	return m.install(p)
}

// PublishFiles installs only a file-drop list for paths, whatever the
// options say. It is used to hand over a whole artifact.
func (m *Mirror) PublishFiles(paths []string) bool {
	if m == nil || m.backend == nil || len(paths) == 0 {
		return false
	}
	return m.install(Payload{Files: paths, Drop: EncodeDropFiles(paths)})
}

func (m *Mirror) install(p Payload) bool {
	if p.Empty() {
		return false
	}
	err := m.hold(func() error {
		if err := m.backend.Clear(); err != nil {
			return err
		}
		return m.backend.Set(p)
	})
	metrics.RecordClipboard(err == nil)
	if err != nil {
		m.logger.Printf("clipboard: publish via %s: %v", m.backend.Name(), err)
		return false
	}
	return true
}

// hold opens the clipboard with bounded retry, runs fn and always closes.
// The OS thread stays pinned throughout: Windows ties clipboard ownership to
// the thread that opened it.
func (m *Mirror) hold(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
		return struct{}{}, m.backend.Open()
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(m.opts.Delay)),
		backoff.WithMaxTries(m.opts.Attempts),
	)
	if err != nil {
		return err
	}
	defer m.backend.Close()
	return fn()
}
