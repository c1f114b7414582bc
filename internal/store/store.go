// Package store implements the Session Store (spec.md §4.5, C5): one
// JSON file per kild under sessions_dir, with atomic writes and
// per-file fault isolation on enumeration.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/model"
)

// Store persists Kild records under a sessions directory.
type Store struct {
	ShardsDir string
}

// New returns a Store rooted at shardsDir.
func New(shardsDir string) *Store {
	return &Store{ShardsDir: shardsDir}
}

func (s *Store) sessionsDir() string { return fileutil.SessionsDir(s.ShardsDir) }

// Save writes kild to its session file, creating sessions_dir if
// missing. Idempotent: repeated saves of the same kild overwrite cleanly
// via atomic rename.
func (s *Store) Save(kild *model.Kild) error {
	path := fileutil.SessionFile(s.ShardsDir, kild.ID)
	return fileutil.AtomicWriteJSON(path, kild)
}

// Load reads a single kild by id. A missing file returns (nil, nil).
func (s *Store) Load(id string) (*model.Kild, error) {
	path := fileutil.SessionFile(s.ShardsDir, id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading kild %s: %w", id, err)
	}
	var kild model.Kild
	if err := json.Unmarshal(data, &kild); err != nil {
		return nil, fmt.Errorf("parsing kild %s: %w", id, err)
	}
	return &kild, nil
}

// FindByName scans sessions_dir and returns the first kild whose branch
// matches. Unreadable or malformed files are skipped, not fatal (spec.md
// §4.5).
func (s *Store) FindByName(branch string) (*model.Kild, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sessions dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isKildFile(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.sessionsDir(), entry.Name()))
		if err != nil {
			continue
		}
		var kild model.Kild
		if err := json.Unmarshal(data, &kild); err != nil {
			continue
		}
		if kild.Branch == branch {
			return &kild, nil
		}
	}
	return nil, nil
}

// isKildFile reports whether name is a main kild file (<id>.json), not a
// status sidecar (<id>.status.json) or activity log (<id>.log).
func isKildFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".status.json")
}

// LoadAll enumerates every kild file in sessions_dir, returning the
// successfully parsed kilds plus the count of files skipped due to read
// or parse errors. One corrupt file must never hide the rest (spec.md
// §4.5) — this is the mandatory per-file fault isolation.
func (s *Store) LoadAll() (kilds []*model.Kild, skipped int, err error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading sessions dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isKildFile(entry.Name()) {
			continue
		}
		path := filepath.Join(s.sessionsDir(), entry.Name())
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			skipped++
			continue
		}
		var kild model.Kild
		if parseErr := json.Unmarshal(data, &kild); parseErr != nil {
			skipped++
			continue
		}
		kilds = append(kilds, &kild)
	}
	return kilds, skipped, nil
}

// Remove deletes a kild's session file. A missing file counts as success.
func (s *Store) Remove(id string) error {
	path := fileutil.SessionFile(s.ShardsDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing kild %s: %w", id, err)
	}
	return nil
}

// ReadAgentStatus reads the sidecar activity file for id. A missing
// sidecar returns (nil, nil) — the agent hook may not have run yet.
func (s *Store) ReadAgentStatus(id string) (*model.AgentStatusInfo, error) {
	path := fileutil.StatusSidecarFile(s.ShardsDir, id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading agent status for %s: %w", id, err)
	}
	var info model.AgentStatusInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing agent status for %s: %w", id, err)
	}
	return &info, nil
}

// WriteAgentStatus writes the sidecar activity file for id. It never
// touches the main kild file, so the agent hook can update it without
// contending with Session Store writers (spec.md §4.5).
func (s *Store) WriteAgentStatus(id string, status model.AgentStatusValue) error {
	info := model.AgentStatusInfo{Status: status, UpdatedAt: time.Now().UTC()}
	path := fileutil.StatusSidecarFile(s.ShardsDir, id)
	return fileutil.AtomicWriteJSON(path, &info)
}

// AppendActivity appends a timestamped line to a kild's audit-trail log
// (SPEC_FULL.md §3, "Per-kild activity log"). Best-effort: a logging
// failure never blocks a lifecycle operation, so the caller only gets an
// error to decide whether to surface a warning.
func (s *Store) AppendActivity(id, line string) error {
	path := fileutil.ActivityLogFile(s.ShardsDir, id)
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening activity log for %s: %w", id, err)
	}
	defer f.Close()
	stamp := time.Now().UTC().Format(time.RFC3339)
	_, err = fmt.Fprintf(f, "%s %s\n", stamp, line)
	return err
}
