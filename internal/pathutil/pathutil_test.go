package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizeExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	dir := filepath.Join(home, "kild-pathutil-test")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer os.RemoveAll(dir)

	got, err := Canonicalize("~/kild-pathutil-test")
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if got != filepath.Clean(want) {
		t.Fatalf("got %q, want %q", got, filepath.Clean(want))
	}
}

func TestCanonicalizeMissingPath(t *testing.T) {
	if _, err := Canonicalize("/this/path/does/not/exist/anywhere"); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestProjectIDDeterministic(t *testing.T) {
	dir := t.TempDir()
	a, err := Canonicalize(dir)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	id1 := ProjectID(a)
	id2 := ProjectID(a)
	if id1 != id2 {
		t.Fatalf("ProjectID not deterministic: %q vs %q", id1, id2)
	}
	if id1 == "" {
		t.Fatal("ProjectID returned empty string")
	}
}

func TestProjectIDStableAcrossCanonicalization(t *testing.T) {
	dir := t.TempDir()
	canonical, err := Canonicalize(dir)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	// property 4 (spec.md §8.1): project_id(p) == project_id(canonicalize(p))
	id1 := ProjectID(canonical)
	reCanonical, err := Canonicalize(canonical)
	if err != nil {
		t.Fatalf("Canonicalize(canonical): %v", err)
	}
	id2 := ProjectID(reCanonical)
	if id1 != id2 {
		t.Fatalf("project id not stable across re-canonicalization: %q vs %q", id1, id2)
	}
}

func TestMigrateLegacyID(t *testing.T) {
	dir := t.TempDir()
	canonical, err := Canonicalize(dir)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	correctID := ProjectID(canonical)

	newID, needs, err := MigrateLegacyID(dir, "stale-legacy-id")
	if err != nil {
		t.Fatalf("MigrateLegacyID: %v", err)
	}
	if !needs {
		t.Fatal("expected migration to be needed")
	}
	if newID != correctID {
		t.Fatalf("got %q, want %q", newID, correctID)
	}

	_, needs2, err := MigrateLegacyID(dir, correctID)
	if err != nil {
		t.Fatalf("MigrateLegacyID: %v", err)
	}
	if needs2 {
		t.Fatal("expected no migration needed when id already correct")
	}
}
