package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/model"
)

func testKild(id, branch string) *model.Kild {
	return &model.Kild{
		ID:        id,
		ProjectID: "proj1",
		Branch:    branch,
		Status:    model.StatusActive,
		PortStart: 3000,
		PortEnd:   3009,
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	kild := testKild("proj1_feat-a", "feat-a")

	if err := s.Save(kild); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load("proj1_feat-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.Branch != "feat-a" {
		t.Fatalf("got %+v", loaded)
	}
}

func TestLoadMissingReturnsNil(t *testing.T) {
	s := New(t.TempDir())
	kild, err := s.Load("nope")
	if err != nil || kild != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", kild, err)
	}
}

func TestFindByName(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Save(testKild("p_a", "feat-a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(testKild("p_b", "feat-b")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	found, err := s.FindByName("feat-b")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if found == nil || found.ID != "p_b" {
		t.Fatalf("got %+v", found)
	}
}

func TestLoadAllSkipsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Save(testKild("p_good1", "good1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(testKild("p_good2", "good2")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := fileutil.EnsureDir(fileutil.SessionsDir(dir)); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	corruptPath := filepath.Join(fileutil.SessionsDir(dir), "p_corrupt.json")
	if err := os.WriteFile(corruptPath, []byte("{not valid json"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	kilds, skipped, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(kilds) != 2 {
		t.Fatalf("expected 2 good kilds, got %d", len(kilds))
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", skipped)
	}
}

func TestLoadAllDoesNotPickUpSidecars(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Save(testKild("p_a", "feat-a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.WriteAgentStatus("p_a", model.AgentStatusWorking); err != nil {
		t.Fatalf("WriteAgentStatus: %v", err)
	}

	kilds, skipped, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(kilds) != 1 || skipped != 0 {
		t.Fatalf("got kilds=%d skipped=%d", len(kilds), skipped)
	}
}

func TestRemoveMissingIsSuccess(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Remove("nope"); err != nil {
		t.Fatalf("expected success removing missing kild, got %v", err)
	}
}

func TestAgentStatusRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	status, err := s.ReadAgentStatus("p_a")
	if err != nil || status != nil {
		t.Fatalf("expected (nil, nil) before any write, got (%+v, %v)", status, err)
	}

	if err := s.WriteAgentStatus("p_a", model.AgentStatusWorking); err != nil {
		t.Fatalf("WriteAgentStatus: %v", err)
	}

	status, err = s.ReadAgentStatus("p_a")
	if err != nil {
		t.Fatalf("ReadAgentStatus: %v", err)
	}
	if status == nil || status.Status != model.AgentStatusWorking {
		t.Fatalf("got %+v", status)
	}
}

func TestAppendActivity(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.AppendActivity("p_a", "created"); err != nil {
		t.Fatalf("AppendActivity: %v", err)
	}
	if err := s.AppendActivity("p_a", "opened"); err != nil {
		t.Fatalf("AppendActivity: %v", err)
	}
	data, err := os.ReadFile(fileutil.ActivityLogFile(dir, "p_a"))
	if err != nil {
		t.Fatalf("reading activity log: %v", err)
	}
	if got := string(data); !strings.Contains(got, "created") || !strings.Contains(got, "opened") {
		t.Fatalf("unexpected log contents: %q", got)
	}
}
