package storage

import "lpmonitor/internal/model"

// Store persists the latest snapshot and an append-only history log.
type Store interface {
	// LoadLatest returns the last persisted snapshot, or found=false when
	// none exists yet.
	LoadLatest() (snap model.Snapshot, found bool, err error)
	// SaveLatest replaces the latest snapshot.
	SaveLatest(snap model.Snapshot) error
	// AppendHistory records the snapshot under its capture timestamp.
	AppendHistory(snap model.Snapshot) error
}
