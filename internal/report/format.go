// Package report renders change sets into the Telegram alert text.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lpmonitor/internal/model"
)

const (
	maxExamples         = 3
	maxModifiedExamples = 2
	maxStateEntries     = 5
	sciNotationAbove    = 1_000_000
)

// Format renders a change alert followed by a current-state summary. The
// clock is passed in so identical inputs always produce byte-identical
// output. Entry order within each partition is the differ's order; only the
// current-state section re-sorts (by upper price bound, descending).
func Format(changes model.ChangeSet, current []model.Position, now time.Time) string {
	var b strings.Builder

	b.WriteString("🔔 LP头寸变动警报\n")
	fmt.Fprintf(&b, "⏰ 时间: %s\n\n", now.Format("2006-01-02 15:04:05"))

	if len(changes.Added) > 0 {
		fmt.Fprintf(&b, "🆕 新增头寸: %d个\n", len(changes.Added))
		writeExamples(&b, changes.Added)
		b.WriteString("\n")
	}

	if len(changes.Removed) > 0 {
		fmt.Fprintf(&b, "❌ 移除头寸: %d个\n", len(changes.Removed))
		writeExamples(&b, changes.Removed)
		b.WriteString("\n")
	}

	if len(changes.Modified) > 0 {
		fmt.Fprintf(&b, "📝 修改头寸: %d个\n", len(changes.Modified))
		for _, pair := range truncatePairs(changes.Modified) {
			fmt.Fprintf(&b, "  • NFT#%s\n", pair.Old.TokenID)
			fmt.Fprintf(&b, "    价值: $%s → $%s\n", formatUSD(pair.Old.USDValue), formatUSD(pair.New.USDValue))
		}
		if extra := len(changes.Modified) - maxModifiedExamples; extra > 0 {
			fmt.Fprintf(&b, "  ... 还有%d个\n", extra)
		}
		b.WriteString("\n")
	}

	b.WriteString("📊 当前状态:\n\n")

	if len(current) > 0 {
		top := topByUpperBound(current)
		for i, pos := range top {
			writePosition(&b, pos)
			if i < len(top)-1 {
				b.WriteString("\n\n")
			}
		}

		fmt.Fprintf(&b, "\n\n📈 统计: %d个头寸, %d个活跃, 总价值: $%s",
			len(current), model.CountActive(current), formatUSD(model.TotalUSD(current)))

		if len(current) > maxStateEntries {
			fmt.Fprintf(&b, "\n... 还有 %d 个头寸未显示", len(current)-maxStateEntries)
		}
	}

	return b.String()
}

func writeExamples(b *strings.Builder, positions []model.Position) {
	shown := positions
	if len(shown) > maxExamples {
		shown = shown[:maxExamples]
	}
	for _, pos := range shown {
		fmt.Fprintf(b, "  • NFT#%s - $%s\n", pos.TokenID, formatUSD(pos.USDValue))
	}
	if extra := len(positions) - maxExamples; extra > 0 {
		fmt.Fprintf(b, "  ... 还有%d个\n", extra)
	}
}

func writePosition(b *strings.Builder, pos model.Position) {
	glyph, text := "🟡", string(model.StatusOutOfRange)
	if pos.Status.Active() {
		glyph, text = "🟢", string(model.StatusActive)
	}

	fmt.Fprintf(b, "  • NFT#%s\n", pos.TokenID)
	fmt.Fprintf(b, "    💰 总价值: $%s\n", formatUSD(pos.USDValue))
	fmt.Fprintf(b, "    📈 价格区间: %s - %s USDT\n", formatPrice(pos.PriceLower), formatPrice(pos.PriceUpper))
	fmt.Fprintf(b, "    🎯 状态: %s %s", glyph, text)
}

func truncatePairs(pairs []model.ModifiedPair) []model.ModifiedPair {
	if len(pairs) > maxModifiedExamples {
		return pairs[:maxModifiedExamples]
	}
	return pairs
}

// topByUpperBound returns the highest-bounded positions without mutating the
// input: unbounded ranges sort first, unparseable bounds sort as zero.
func topByUpperBound(positions []model.Position) []model.Position {
	sorted := make([]model.Position, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriceUpper.SortValue() > sorted[j].PriceUpper.SortValue()
	})
	if len(sorted) > maxStateEntries {
		sorted = sorted[:maxStateEntries]
	}
	return sorted
}

func formatPrice(bound model.PriceBound) string {
	switch bound.Kind {
	case model.BoundUnbounded:
		return "∞"
	case model.BoundNumber:
		if bound.Value > sciNotationAbove {
			return fmt.Sprintf("%.2e", bound.Value)
		}
		return fmt.Sprintf("%.4f", bound.Value)
	default:
		return bound.Raw
	}
}

// formatUSD renders a dollar amount with thousands separators and two
// decimal places.
func formatUSD(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}

	fixed := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	out := grouped.String() + "." + fracPart
	if negative {
		out = "-" + out
	}
	return out
}
