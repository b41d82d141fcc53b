package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Status is the in-range state reported for a position.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusOutOfRange Status = "OUT_OF_RANGE"
)

// Active reports whether the position is in range. Unknown values are
// treated as out of range.
func (s Status) Active() bool {
	return s == StatusActive
}

// BoundKind classifies a price bound value.
type BoundKind int

const (
	BoundNumber BoundKind = iota
	BoundUnbounded
	BoundUnparseable
)

// PriceBound is a price range endpoint normalized at the ingestion
// boundary. The source reports bounds as numbers, numeric strings, or a
// pseudo-scientific sentinel containing '+' that means "no bound". Raw keeps
// the wire form so stored snapshots round-trip unchanged.
type PriceBound struct {
	Kind  BoundKind
	Value float64
	Raw   string
}

// ParsePriceBound normalizes a loosely-typed price bound.
func ParsePriceBound(raw interface{}) PriceBound {
	switch v := raw.(type) {
	case nil:
		return PriceBound{Kind: BoundNumber, Value: 0, Raw: "0"}
	case float64:
		return PriceBound{Kind: BoundNumber, Value: v, Raw: strconv.FormatFloat(v, 'g', -1, 64)}
	case json.Number:
		return parseBoundString(v.String())
	case string:
		return parseBoundString(v)
	default:
		return PriceBound{Kind: BoundUnparseable, Raw: Stringify(raw)}
	}
}

func parseBoundString(s string) PriceBound {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriceBound{Kind: BoundNumber, Value: 0, Raw: "0"}
	}
	if strings.Contains(s, "+") {
		return PriceBound{Kind: BoundUnbounded, Raw: s}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return PriceBound{Kind: BoundNumber, Value: v, Raw: s}
	}
	return PriceBound{Kind: BoundUnparseable, Raw: s}
}

// SortValue maps the bound onto a total order: unbounded sorts greatest,
// unparseable sorts as zero.
func (b PriceBound) SortValue() float64 {
	switch b.Kind {
	case BoundUnbounded:
		return math.Inf(1)
	case BoundNumber:
		return b.Value
	default:
		return 0
	}
}

// MarshalJSON encodes the bound as its wire string.
func (b PriceBound) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Raw)
}

// UnmarshalJSON accepts either a string or a bare number.
func (b *PriceBound) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*b = ParsePriceBound(raw)
	return nil
}

// Position is one LP stake, keyed by its NFT token id. Liquidity and token
// amounts are kept as decimal strings so arbitrary-precision values survive
// storage untouched.
type Position struct {
	TokenID    string     `json:"token_id"`
	Liquidity  string     `json:"liquidity"`
	Amount0    string     `json:"amount0"`
	Amount1    string     `json:"amount1"`
	USDValue   float64    `json:"usd_value"`
	PriceLower PriceBound `json:"price_lower"`
	PriceUpper PriceBound `json:"price_upper"`
	Status     Status     `json:"status"`
}

// Stringify coerces a loosely-typed field to its canonical string form.
func Stringify(v interface{}) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return strings.Trim(string(data), `"`)
	}
}
