package indexfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverLatestPicksMax(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{1000, 160000, 80000} {
		if err := os.WriteFile(PathFor(dir, "IVF256,Flat", n), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	// Unrelated index_key and non-index files must be ignored.
	if err := os.WriteFile(PathFor(dir, "Flat", 999999), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "base.fvecs"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := DiscoverLatest(dir, "IVF256,Flat")
	if err != nil {
		t.Fatalf("DiscoverLatest: %v", err)
	}
	if got != 160000 {
		t.Fatalf("DiscoverLatest = %d, want 160000", got)
	}
}

func TestDiscoverLatestEmptyDir(t *testing.T) {
	got, err := DiscoverLatest(t.TempDir(), "Flat")
	if err != nil {
		t.Fatalf("DiscoverLatest: %v", err)
	}
	if got != 0 {
		t.Fatalf("DiscoverLatest = %d, want 0", got)
	}
}

func TestClearRemovesBaseAndIndexFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.fvecs")
	idx := PathFor(dir, "Flat", 0)
	other := filepath.Join(dir, "manifest.json")
	for _, p := range []string{base, idx, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", p, err)
		}
	}

	if err := Clear(dir); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for _, p := range []string{base, idx} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s still exists after Clear", p)
		}
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("unrelated file %s was removed by Clear: %v", other, err)
	}
}
