package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

// Feature: click, Property 1: Naming uniqueness
func TestResolveUniquePathIncrements(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		name := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "name")
		mode := Mode(rapid.IntRange(0, 1).Draw(rt, "mode"))
		n := rapid.IntRange(1, 6).Draw(rt, "n")

		for i := 0; i < n; i++ {
			got, err := ResolveUniquePath(dir, name, mode)
			if err != nil {
				rt.Fatalf("ResolveUniquePath: %v", err)
			}
			if Exists(got.Path) {
				rt.Fatalf("resolved path %q already exists", got.Path)
			}
			wantBase := name
			if i > 0 {
				wantBase = fmt.Sprintf("%s_%d", name, i)
			}
			if got.BaseName != wantBase {
				rt.Fatalf("call %d: base %q, want %q", i, got.BaseName, wantBase)
			}
			if mode == Document {
				if filepath.Ext(got.Path) != DocExt {
					rt.Fatalf("document path %q lacks %s", got.Path, DocExt)
				}
				if err := os.WriteFile(got.Path, nil, 0o644); err != nil {
					rt.Fatal(err)
				}
			} else {
				if err := os.Mkdir(got.Path, 0o755); err != nil {
					rt.Fatal(err)
				}
			}
		}
	})
}

func TestResolveUniquePathCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "18-10-2026")
	got, err := ResolveUniquePath(dir, "screenshot", Document)
	if err != nil {
		t.Fatalf("ResolveUniquePath: %v", err)
	}
	if got.Path != filepath.Join(dir, "screenshot.docx") {
		t.Errorf("Path = %q", got.Path)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be created: %v", dir, err)
	}
}

func TestResolveUniquePathFolderIgnoresDocuments(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shots.docx"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ResolveUniquePath(dir, "shots", Folder)
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseName != "shots" {
		t.Errorf("BaseName = %q, want shots", got.BaseName)
	}
}

func TestResolveUniquePathSkipsRootWithParts(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"evidence_Part1.docx", "evidence_Part2.docx"} {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := ResolveUniquePath(dir, "evidence", Document)
	if err != nil {
		t.Fatalf("ResolveUniquePath: %v", err)
	}
	if got.BaseName != "evidence_1" || got.Path != filepath.Join(dir, "evidence_1.docx") {
		t.Errorf("got %+v, want evidence_1", got)
	}
}
