package model

import "time"

// Snapshot is the full position set captured by one poll, plus derived
// aggregates. A new fetch always produces a new Snapshot; stored ones are
// never mutated.
type Snapshot struct {
	Positions  []Position `json:"positions"`
	Timestamp  string     `json:"timestamp"`
	TotalCount int        `json:"total_count"`
	TotalValue float64    `json:"total_value"`
}

// NewSnapshot builds a Snapshot with derived aggregates.
func NewSnapshot(positions []Position, capturedAt time.Time) Snapshot {
	return Snapshot{
		Positions:  positions,
		Timestamp:  capturedAt.Format(time.RFC3339),
		TotalCount: len(positions),
		TotalValue: TotalUSD(positions),
	}
}

// TotalUSD sums usd_value over all positions.
func TotalUSD(positions []Position) float64 {
	var total float64
	for _, p := range positions {
		total += p.USDValue
	}
	return total
}

// CountActive counts positions with ACTIVE status.
func CountActive(positions []Position) int {
	count := 0
	for _, p := range positions {
		if p.Status.Active() {
			count++
		}
	}
	return count
}

// ModifiedPair holds both sides of a changed position.
type ModifiedPair struct {
	Old Position `json:"old"`
	New Position `json:"new"`
}

// ChangeSet partitions the difference between two snapshots. It lives only
// for the duration of one run; it is never persisted.
type ChangeSet struct {
	Added     []Position     `json:"added"`
	Removed   []Position     `json:"removed"`
	Modified  []ModifiedPair `json:"modified"`
	Timestamp string         `json:"timestamp"`
}

// Empty reports whether the change set carries no changes.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0
}
