package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandScopeWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.txt", "sub/b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ExpandScope([]string{dir})
	if err != nil {
		t.Fatalf("ExpandScope failed: %v", err)
	}
	// Both directories plus both files.
	if len(got) != 4 {
		t.Fatalf("expected 4 paths, got %d: %v", len(got), got)
	}
}

func TestExpandScopeEmptyDirectoryIsCapturable(t *testing.T) {
	dir := t.TempDir()
	got, err := ExpandScope([]string{dir})
	if err != nil {
		t.Fatalf("ExpandScope failed: %v", err)
	}
	if len(got) != 1 || got[0] != dir {
		t.Errorf("empty directory should appear in scope, got %v", got)
	}
}

func TestExpandScopeKeepsAbsentPaths(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "not-yet")
	got, err := ExpandScope([]string{missing})
	if err != nil {
		t.Fatalf("ExpandScope failed: %v", err)
	}
	if len(got) != 1 || got[0] != missing {
		t.Errorf("absent path should pass through, got %v", got)
	}
}

func TestExpandScopeDeduplicates(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "x.txt")
	if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ExpandScope([]string{f, dir})
	if err != nil {
		t.Fatalf("ExpandScope failed: %v", err)
	}
	// The file once, plus the directory itself.
	if len(got) != 2 {
		t.Errorf("expected deduplicated scope, got %v", got)
	}
}
