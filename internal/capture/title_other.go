//go:build !windows

package capture

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Foreground returns a TitleSource that asks the desktop for the focused
// window: osascript on macOS, xdotool elsewhere.
func Foreground() TitleSource {
	return TitleFunc(foregroundTitle)
}

func foregroundTitle() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		cmd = exec.CommandContext(ctx, "osascript", "-e",
			`tell application "System Events" to get name of first application process whose frontmost is true`)
	} else {
		cmd = exec.CommandContext(ctx, "xdotool", "getactivewindow", "getwindowname")
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
