//go:build windows

package clipboard

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	cfDIB       = 8
	cfHDROP     = 15
	gmemMovable = 0x0002
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procOpenClipboard    = user32.NewProc("OpenClipboard")
	procCloseClipboard   = user32.NewProc("CloseClipboard")
	procEmptyClipboard   = user32.NewProc("EmptyClipboard")
	procSetClipboardData = user32.NewProc("SetClipboardData")

	procGlobalAlloc  = kernel32.NewProc("GlobalAlloc")
	procGlobalLock   = kernel32.NewProc("GlobalLock")
	procGlobalUnlock = kernel32.NewProc("GlobalUnlock")
	procGlobalFree   = kernel32.NewProc("GlobalFree")
)

type winBackend struct{}

// System returns the Win32 clipboard backend.
func System() Backend { return winBackend{} }

func (winBackend) Name() string { return "win32" }

func (winBackend) Open() error {
	r, _, err := procOpenClipboard.Call(0)
	if r == 0 {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return nil
}

func (winBackend) Close() error {
	r, _, err := procCloseClipboard.Call()
	if r == 0 {
		return err
	}
	return nil
}

func (winBackend) Clear() error {
	r, _, err := procEmptyClipboard.Call()
	if r == 0 {
		return fmt.Errorf("empty clipboard: %w", err)
	}
	return nil
}

func (winBackend) Set(p Payload) error {
	if len(p.DIB) > 0 {
		if err := setData(cfDIB, p.DIB); err != nil {
			return fmt.Errorf("set bitmap: %w", err)
		}
	}
	if len(p.Drop) > 0 {
		if err := setData(cfHDROP, p.Drop); err != nil {
			return fmt.Errorf("set file list: %w", err)
		}
	}
	return nil
}

// setData copies data into a movable global block and hands it to the
// clipboard. Ownership transfers on success; on failure the block is freed.
func setData(format uintptr, data []byte) error {
	h, _, err := procGlobalAlloc.Call(gmemMovable, uintptr(len(data)))
	if h == 0 {
		return fmt.Errorf("global alloc: %w", err)
	}
	ptr, _, err := procGlobalLock.Call(h)
	if ptr == 0 {
		procGlobalFree.Call(h)
		return fmt.Errorf("global lock: %w", err)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(data)), data)
	procGlobalUnlock.Call(h)

	r, _, err := procSetClipboardData.Call(format, h)
	if r == 0 {
		procGlobalFree.Call(h)
		return err
	}
	return nil
}
