package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

// Feature: click, Property 2: Size formatting boundary
func TestFormatBytesBoundary(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0.00 KB"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048575, "1024.00 KB"},
		{1048576, "1.00 MB"},
		{5 * 1048576, "5.00 MB"},
	}
	for _, c := range cases {
		if got := FormatBytes(c.n); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestFormatSizeFileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "exact.bin")
	if err := os.WriteFile(f, make([]byte, 1048576), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FormatSize(f); got != "1.00 MB" {
		t.Errorf("file: got %q", got)
	}

	sub := filepath.Join(dir, "nested", "deeper")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a.bin"), make([]byte, 1023), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FormatSize(filepath.Join(dir, "nested")); got != "1.00 KB" {
		t.Errorf("nested dir: got %q", got)
	}
	if got := FormatSize(dir); got != "1.00 MB" {
		t.Errorf("root dir: got %q", got)
	}
}

func TestFormatSizeMissingPath(t *testing.T) {
	if got := FormatSize(filepath.Join(t.TempDir(), "missing")); got != "0 KB" {
		t.Errorf("got %q, want %q", got, "0 KB")
	}
}
