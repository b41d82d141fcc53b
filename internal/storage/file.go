// Package storage persists position snapshots as human-readable JSON under
// a single data directory: a latest-snapshot file replaced on every run and
// an append-only history file keyed by capture timestamp.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lpmonitor/internal/model"
)

const (
	latestFileName  = "latest_positions.json"
	historyFileName = "history.json"
)

// FileStore keeps snapshots in a data directory created on demand.
//
// The latest file is written via tmp+rename so a crash can never leave it
// truncated. The history file is a plain read-modify-write: a crash between
// read and write loses that one update but cannot corrupt the latest file,
// which is written independently. No locking — the external scheduler
// guarantees non-overlapping runs.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// LatestPath returns the path of the latest-snapshot file.
func (s *FileStore) LatestPath() string {
	return filepath.Join(s.dir, latestFileName)
}

// HistoryPath returns the path of the history file.
func (s *FileStore) HistoryPath() string {
	return filepath.Join(s.dir, historyFileName)
}

// LoadLatest reads the last persisted snapshot. A missing file is not an
// error: it means this is the first run.
func (s *FileStore) LoadLatest() (model.Snapshot, bool, error) {
	data, err := os.ReadFile(s.LatestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, fmt.Errorf("read latest snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("parse latest snapshot: %w", err)
	}

	return snap, true, nil
}

// SaveLatest replaces the latest snapshot atomically.
func (s *FileStore) SaveLatest(snap model.Snapshot) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	path := s.LatestPath()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	return nil
}

// AppendHistory adds the snapshot to the history map under its capture
// timestamp. The history is audit-only; it is never read back by the differ.
func (s *FileStore) AppendHistory(snap model.Snapshot) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	history := make(map[string]model.Snapshot)
	data, err := os.ReadFile(s.HistoryPath())
	if err == nil {
		if err := json.Unmarshal(data, &history); err != nil {
			return fmt.Errorf("parse history: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read history: %w", err)
	}

	history[snap.Timestamp] = snap

	out, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(s.HistoryPath(), out, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	return nil
}

func (s *FileStore) ensureDir() error {
	if s.dir == "" || s.dir == "." {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
