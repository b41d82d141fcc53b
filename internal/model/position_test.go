package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParsePriceBound(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		kind BoundKind
	}{
		{"number", 123.45, BoundNumber},
		{"numeric string", "0.0042", BoundNumber},
		{"unbounded sentinel", "1.7976931348623157e+308", BoundUnbounded},
		{"garbage", "not-a-price", BoundUnparseable},
		{"nil", nil, BoundNumber},
	}

	for _, tc := range cases {
		got := ParsePriceBound(tc.in)
		if got.Kind != tc.kind {
			t.Fatalf("%s: kind = %v, want %v", tc.name, got.Kind, tc.kind)
		}
	}
}

func TestPriceBoundSortValue(t *testing.T) {
	unbounded := ParsePriceBound("1e+400")
	if !math.IsInf(unbounded.SortValue(), 1) {
		t.Fatalf("unbounded should sort as +Inf, got %v", unbounded.SortValue())
	}

	broken := ParsePriceBound("???")
	if broken.SortValue() != 0 {
		t.Fatalf("unparseable should sort as 0, got %v", broken.SortValue())
	}

	num := ParsePriceBound("10")
	if num.SortValue() != 10 {
		t.Fatalf("number sort value = %v, want 10", num.SortValue())
	}
}

func TestPriceBoundJSONRoundTrip(t *testing.T) {
	original := ParsePriceBound("1.7976931348623157e+308")

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded PriceBound
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Kind != BoundUnbounded || decoded.Raw != original.Raw {
		t.Fatalf("round-trip mismatch: %+v != %+v", decoded, original)
	}
}

func TestPriceBoundUnmarshalBareNumber(t *testing.T) {
	var bound PriceBound
	if err := json.Unmarshal([]byte("42.5"), &bound); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if bound.Kind != BoundNumber || bound.Value != 42.5 {
		t.Fatalf("unexpected bound: %+v", bound)
	}
}

func TestFromRow(t *testing.T) {
	row := map[string]interface{}{
		"tokenId":      json.Number("12345"),
		"liquidity_L":  "5000000000000000000",
		"amount0":      json.Number("1.5"),
		"amount1":      "42",
		"usd_value":    json.Number("1234.56"),
		"p_lower_uset": json.Number("0.95"),
		"p_upper_uset": "1.7976931348623157e+308",
		"status":       "ACTIVE",
	}

	pos, err := FromRow(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pos.TokenID != "12345" {
		t.Fatalf("token id = %q", pos.TokenID)
	}
	if pos.Liquidity != "5000000000000000000" {
		t.Fatalf("liquidity = %q", pos.Liquidity)
	}
	if pos.USDValue != 1234.56 {
		t.Fatalf("usd value = %v", pos.USDValue)
	}
	if pos.PriceUpper.Kind != BoundUnbounded {
		t.Fatalf("upper bound should be unbounded: %+v", pos.PriceUpper)
	}
	if !pos.Status.Active() {
		t.Fatalf("status should be active")
	}
}

func TestFromRowMissingTokenID(t *testing.T) {
	if _, err := FromRow(map[string]interface{}{"usd_value": 10.0}); err == nil {
		t.Fatalf("expected error for missing tokenId")
	}
}

func TestNormalizeRowsSkipsAndDedupes(t *testing.T) {
	rows := []map[string]interface{}{
		{"tokenId": "1", "usd_value": 100.0},
		{"usd_value": 50.0},
		{"tokenId": "2", "usd_value": 20.0},
		{"tokenId": "1", "usd_value": 150.0},
	}

	positions, skipped := NormalizeRows(rows)
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
	if len(positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(positions))
	}
	if positions[0].TokenID != "1" || positions[0].USDValue != 150.0 {
		t.Fatalf("duplicate should be last-write-wins: %+v", positions[0])
	}
	if positions[1].TokenID != "2" {
		t.Fatalf("order not preserved: %+v", positions[1])
	}
}

func TestSnapshotAggregates(t *testing.T) {
	positions := []Position{
		{TokenID: "1", USDValue: 100, Status: StatusActive},
		{TokenID: "2", USDValue: 50, Status: "WEIRD"},
	}

	if got := TotalUSD(positions); got != 150 {
		t.Fatalf("total = %v, want 150", got)
	}
	if got := CountActive(positions); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
}

func TestUnknownStatusNotActive(t *testing.T) {
	if Status("PENDING").Active() {
		t.Fatalf("unknown status must not be active")
	}
}
