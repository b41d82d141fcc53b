package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lpmonitor/internal/diff"
	"lpmonitor/internal/model"
	"lpmonitor/internal/report"
	"lpmonitor/internal/storage"
)

// runDiff compares two snapshot files and prints the formatted report.
// No network, no persistence.
func runDiff(cmd *cobra.Command, _ []string) error {
	oldPath, _ := cmd.Flags().GetString("old")
	newPath, _ := cmd.Flags().GetString("new")

	if oldPath == "" || newPath == "" {
		return fmt.Errorf("both --old and --new are required")
	}

	oldSnap, err := loadSnapshotFile(oldPath)
	if err != nil {
		return err
	}
	newSnap, err := loadSnapshotFile(newPath)
	if err != nil {
		return err
	}

	now := time.Now()
	changes := diff.Diff(oldSnap.Positions, newSnap.Positions, now)
	if changes.Empty() {
		fmt.Println("no changes")
		return nil
	}

	fmt.Println(report.Format(changes, newSnap.Positions, now))
	return nil
}

// runReport prints the current-state section from the latest persisted
// snapshot.
func runReport(cmd *cobra.Command, _ []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	store := storage.NewFileStore(dataDir)
	snap, found, err := store.LoadLatest()
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no snapshot found in %s", dataDir)
	}

	fmt.Println(report.Format(model.ChangeSet{}, snap.Positions, time.Now()))
	return nil
}

func loadSnapshotFile(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	return snap, nil
}
