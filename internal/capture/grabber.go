// Package capture provides the image sources a session grabs from and the
// foreground window title used for captions.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // decoders for screenshot files
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Grabber acquires one raster image of the screen. Any error means "skip
// this capture".
type Grabber interface {
	Grab() (image.Image, error)
}

// GrabberFunc adapts a function to Grabber.
type GrabberFunc func() (image.Image, error)

func (f GrabberFunc) Grab() (image.Image, error) { return f() }

// ErrNoGrabber is returned when no screenshot command is configured for the
// current platform.
var ErrNoGrabber = errors.New("no screenshot command configured")

// FileGrabber decodes the image currently stored at Path. It serves both the
// --source flag and files picked up by Watch.
type FileGrabber struct {
	Path string
}

func (g FileGrabber) Grab() (image.Image, error) {
	return decodeFile(g.Path)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// OutputPlaceholder in CommandGrabber.Args is replaced with the path the
// command must write its PNG to.
const OutputPlaceholder = "{out}"

// CommandGrabber runs an external screenshot program that writes a PNG and
// decodes the result.
type CommandGrabber struct {
	Args    []string
	Timeout time.Duration
}

// DefaultCommand returns the screenshot command for the running platform,
// or nil when there is no well-known one.
func DefaultCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"screencapture", "-x", OutputPlaceholder}
	case "linux", "freebsd", "openbsd":
		return []string{"import", "-window", "root", OutputPlaceholder}
	}
	return nil
}

// ParseCommand splits a --grab-cmd value on whitespace.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

func (g CommandGrabber) Grab() (image.Image, error) {
	if len(g.Args) == 0 {
		return nil, ErrNoGrabber
	}
	dir, err := os.MkdirTemp("", "click-grab-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "screen.png")

	args := make([]string, len(g.Args))
	replaced := false
	for i, a := range g.Args {
		if strings.Contains(a, OutputPlaceholder) {
			replaced = true
		}
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, out)
	}
	if !replaced {
		args = append(args, out)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if msg, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", args[0], err, strings.TrimSpace(string(msg)))
	}
	return decodeFile(out)
}
