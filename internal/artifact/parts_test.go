package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSplitPart(t *testing.T) {
	root, n, ok := SplitPart("report_Part12")
	if !ok || root != "report" || n != 12 {
		t.Errorf("got (%q, %d, %v)", root, n, ok)
	}
	if _, _, ok := SplitPart("report"); ok {
		t.Error("plain name should not split")
	}
	if _, _, ok := SplitPart("report_Partx"); ok {
		t.Error("non-numeric part should not split")
	}
}

func TestNextPartFromRoot(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "shots.docx")
	touch(t, current)

	next, rename := NextPart(current)
	if rename != filepath.Join(dir, "shots_Part1.docx") {
		t.Errorf("rename = %q", rename)
	}
	if next != filepath.Join(dir, "shots_Part2.docx") {
		t.Errorf("next = %q", next)
	}
}

func TestNextPartSkipsTakenPartNames(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "shots.docx")
	touch(t, current)
	touch(t, filepath.Join(dir, "shots_Part1.docx"))

	next, rename := NextPart(current)
	if rename != filepath.Join(dir, "shots_Part2.docx") || next != filepath.Join(dir, "shots_Part3.docx") {
		t.Errorf("got next=%q rename=%q", next, rename)
	}
}

func TestNextPartIncrements(t *testing.T) {
	dir := t.TempDir()
	next, rename := NextPart(filepath.Join(dir, "shots_Part4.docx"))
	if rename != "" || next != filepath.Join(dir, "shots_Part5.docx") {
		t.Errorf("got next=%q rename=%q", next, rename)
	}
}

func TestPartsMatchesOnlyRoot(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{
		"shots.docx", "shots_Part1.docx", "shots_Part2.docx",
		"shots_1.docx", "shots_Partial.docx", "other_Part1.docx", "shots_Part3.jpg",
	} {
		touch(t, filepath.Join(dir, n))
	}
	got, err := Parts(dir, "shots")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "shots.docx"),
		filepath.Join(dir, "shots_Part1.docx"),
		filepath.Join(dir, "shots_Part2.docx"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNextPartSkipsExistingLaterPart(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "shots_Part3.docx"))
	next, rename := NextPart(filepath.Join(dir, "shots_Part2.docx"))
	if rename != "" || next != filepath.Join(dir, "shots_Part4.docx") {
		t.Errorf("got next=%q rename=%q", next, rename)
	}
}
