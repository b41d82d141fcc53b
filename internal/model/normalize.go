package model

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ErrMissingTokenID marks a result row without a usable key.
var ErrMissingTokenID = errors.New("row has no tokenId")

// FromRow normalizes one loosely-typed query result row into a Position.
// Field names follow the upstream query schema.
func FromRow(row map[string]interface{}) (Position, error) {
	tokenID := Stringify(row["tokenId"])
	if tokenID == "" {
		return Position{}, ErrMissingTokenID
	}

	return Position{
		TokenID:    tokenID,
		Liquidity:  Stringify(row["liquidity_L"]),
		Amount0:    Stringify(row["amount0"]),
		Amount1:    Stringify(row["amount1"]),
		USDValue:   toFloat(row["usd_value"]),
		PriceLower: ParsePriceBound(row["p_lower_uset"]),
		PriceUpper: ParsePriceBound(row["p_upper_uset"]),
		Status:     Status(Stringify(row["status"])),
	}, nil
}

// NormalizeRows converts result rows to Positions, skipping rows without a
// token id and collapsing duplicate token ids last-write-wins. The returned
// skipped count lets the caller log the data-quality loss.
func NormalizeRows(rows []map[string]interface{}) ([]Position, int) {
	positions := make([]Position, 0, len(rows))
	index := make(map[string]int, len(rows))
	skipped := 0

	for _, row := range rows {
		pos, err := FromRow(row)
		if err != nil {
			skipped++
			continue
		}
		if at, ok := index[pos.TokenID]; ok {
			positions[at] = pos
			continue
		}
		index[pos.TokenID] = len(positions)
		positions = append(positions, pos)
	}

	return positions, skipped
}

func toFloat(v interface{}) float64 {
	switch typed := v.(type) {
	case float64:
		return typed
	case json.Number:
		f, err := typed.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0
		}
		return f
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	default:
		return 0
	}
}
