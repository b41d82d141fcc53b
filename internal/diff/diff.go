// Package diff computes the change set between two position snapshots.
package diff

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"lpmonitor/internal/model"
)

// Diff partitions old and new positions into added, removed, and modified
// sets, keyed by token id. Added and modified preserve the new side's order,
// removed preserves the old side's order, so identical inputs always produce
// an identical change set. Positions without a token id are skipped. Inputs
// are not mutated.
func Diff(old, new []model.Position, now time.Time) model.ChangeSet {
	oldByID := indexByID(old)
	newByID := indexByID(new)

	changes := model.ChangeSet{Timestamp: now.Format(time.RFC3339)}

	for _, pos := range new {
		if pos.TokenID == "" {
			continue
		}
		prev, ok := oldByID[pos.TokenID]
		if !ok {
			changes.Added = append(changes.Added, pos)
			continue
		}
		if Fingerprint(prev) != Fingerprint(pos) {
			changes.Modified = append(changes.Modified, model.ModifiedPair{Old: prev, New: pos})
		}
	}

	for _, pos := range old {
		if pos.TokenID == "" {
			continue
		}
		if _, ok := newByID[pos.TokenID]; !ok {
			changes.Removed = append(changes.Removed, pos)
		}
	}

	return changes
}

// Fingerprint summarizes the fields whose change should count as a
// modification: token id, liquidity, both token amounts, and usd value.
// Fields are joined in their canonical string form and hashed, so records
// loaded from disk and records fresh off the wire compare consistently.
func Fingerprint(p model.Position) string {
	fields := []string{
		p.TokenID,
		p.Liquidity,
		p.Amount0,
		p.Amount1,
		strconv.FormatFloat(p.USDValue, 'g', -1, 64),
	}
	sum := md5.Sum([]byte(strings.Join(fields, "-")))
	return hex.EncodeToString(sum[:])
}

func indexByID(positions []model.Position) map[string]model.Position {
	byID := make(map[string]model.Position, len(positions))
	for _, pos := range positions {
		if pos.TokenID == "" {
			continue
		}
		byID[pos.TokenID] = pos
	}
	return byID
}
