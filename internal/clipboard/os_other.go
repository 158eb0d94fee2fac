//go:build !windows

package clipboard

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"strings"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
	xclip "golang.design/x/clipboard"
)

var (
	initOnce sync.Once
	initErr  error
)

// System returns the clipboard backend for this platform. Without a display
// server it falls back to OSC 52, which can carry only text, so captures are
// published as their file list.
func System() Backend {
	initOnce.Do(func() { initErr = xclip.Init() })
	if initErr != nil {
		return &oscBackend{w: os.Stderr}
	}
	return &nativeBackend{}
}

// nativeBackend publishes images as PNG and file lists as newline separated
// text. The library serializes access internally, so Open never fails.
type nativeBackend struct{}

func (*nativeBackend) Name() string { return "native" }
func (*nativeBackend) Open() error  { return nil }
func (*nativeBackend) Close() error { return nil }
func (*nativeBackend) Clear() error { return nil }

func (*nativeBackend) Set(p Payload) error {
	if p.Image != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, p.Image); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		xclip.Write(xclip.FmtImage, buf.Bytes())
	}
	// One clipboard slot: the file list wins when both are present, so a
	// paste into a file manager or shell sees paths.
	if len(p.Files) > 0 {
		xclip.Write(xclip.FmtText, []byte(strings.Join(p.Files, "\n")))
	}
	return nil
}

type oscBackend struct {
	w *os.File
}

func (*oscBackend) Name() string { return "osc52" }
func (*oscBackend) Open() error  { return nil }
func (*oscBackend) Close() error { return nil }
func (*oscBackend) Clear() error { return nil }

func (b *oscBackend) Set(p Payload) error {
	if len(p.Files) == 0 {
		return nil
	}
	_, err := osc52.New(strings.Join(p.Files, "\n")).WriteTo(b.w)
	return err
}
