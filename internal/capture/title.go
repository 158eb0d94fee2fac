package capture

import "strings"

// TitleSource reports the title of the window that has focus.
type TitleSource interface {
	Title() (string, error)
}

// TitleFunc adapts a function to TitleSource.
type TitleFunc func() (string, error)

func (f TitleFunc) Title() (string, error) { return f() }

// UnknownTitle is used when the foreground title cannot be read.
const UnknownTitle = "Unknown"

// browserSuffixes are stripped from window titles; they name the browser,
// not the page being captured.
var browserSuffixes = []string{
	" - Google Chrome",
	" - Microsoft Edge",
	" - Mozilla Firefox",
}

// CleanTitle removes browser chrome suffixes from a window title.
func CleanTitle(title string) string {
	for _, s := range browserSuffixes {
		title = strings.ReplaceAll(title, s, "")
	}
	return strings.TrimSpace(title)
}

// ResolveTitle reads and cleans the current title, falling back to
// UnknownTitle on any failure.
func ResolveTitle(src TitleSource) string {
	if src == nil {
		return UnknownTitle
	}
	t, err := src.Title()
	if err != nil {
		return UnknownTitle
	}
	return CleanTitle(t)
}
