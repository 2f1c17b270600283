package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Weekly Popularity Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Session: %s | Seed: %d\n\n", r.SessionID, r.Seed))
	sb.WriteString(fmt.Sprintf("Week: %d / %d (%s)\n\n", r.Week, r.MaxWeeks, r.Date.Format("2006-01-02")))

	// Catalog Summary
	sb.WriteString("## Catalog Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Machines | %d |\n", r.Summary.Machines))
	sb.WriteString(fmt.Sprintf("| Average Price | ¥%s |\n", formatYen(r.Summary.AveragePrice)))
	sb.WriteString(fmt.Sprintf("| Average Popularity | %.1f |\n", r.Summary.AverageScore))
	sb.WriteString("\n")

	// Tier Distribution
	sb.WriteString("## Tier Distribution\n\n")
	if len(r.Summary.TierDistribution) > 0 {
		sb.WriteString("| Tier | Machines |\n")
		sb.WriteString("|------|----------|\n")
		for _, tc := range r.Summary.TierDistribution {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", tc.Tier, tc.Count))
		}
	} else {
		sb.WriteString("No machines loaded.\n")
	}
	sb.WriteString("\n")

	// Makers
	sb.WriteString("## Makers\n\n")
	if len(r.Summary.MakerDistribution) > 0 {
		sb.WriteString("| Maker | Machines |\n")
		sb.WriteString("|-------|----------|\n")
		for _, mc := range r.Summary.MakerDistribution {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", escapeCell(mc.Maker), mc.Count))
		}
	} else {
		sb.WriteString("No makers.\n")
	}
	sb.WriteString("\n")

	// Rankings
	writeRanking(&sb, "## Most Popular", r.Top)
	writeRanking(&sb, "## Least Popular", r.Bottom)

	// Movers
	sb.WriteString("## Biggest Movers\n\n")
	if len(r.Movers) > 0 {
		sb.WriteString("| ID | Name | Score | Delta | Trend |\n")
		sb.WriteString("|----|------|-------|-------|-------|\n")
		for _, m := range r.Movers {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.1f | %+.1f | %s |\n",
				m.MachineID, escapeCell(m.Name), m.Score, m.Delta, m.Trend))
		}
	} else {
		sb.WriteString("No weekly changes yet.\n")
	}
	sb.WriteString("\n")

	// Digest
	sb.WriteString("## Weekly Digest\n\n")
	if len(r.Digest) > 0 {
		for _, d := range r.Digest {
			sb.WriteString(fmt.Sprintf("- **%s** (%+.1f): %s\n", d.Name, d.Delta, d.Narrative))
		}
	} else {
		sb.WriteString("Nothing notable this week.\n")
	}
	sb.WriteString("\n")

	// Portfolio
	sb.WriteString("## Portfolio\n\n")
	sb.WriteString(fmt.Sprintf("Money: ¥%s | Holdings value: ¥%s | Machines owned: %d\n\n",
		formatYen(r.Portfolio.Money), formatYen(r.Portfolio.Value), r.Portfolio.Owned))
	if len(r.Portfolio.Holdings) > 0 {
		sb.WriteString("| ID | Name | Quantity | Market Price | Resale Unit | Resale Total |\n")
		sb.WriteString("|----|------|----------|--------------|-------------|--------------|\n")
		for _, h := range r.Portfolio.Holdings {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | ¥%s | ¥%s | ¥%s |\n",
				h.MachineID, escapeCell(h.Name), h.Quantity,
				formatYen(h.MarketPrice), formatYen(h.UnitPrice), formatYen(h.Total)))
		}
		sb.WriteString("\n")
	}

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Seq | Week | Side | Machine | Quantity | Total | Money After |\n")
		sb.WriteString("|-----|------|------|---------|----------|-------|-------------|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %d | %d | %s | %s | %d | ¥%s | ¥%s |\n",
				t.Seq, t.Week, t.Side, escapeCell(t.MachineName), t.Quantity,
				formatYen(t.Total), formatYen(t.MoneyAfter)))
		}
	} else {
		sb.WriteString("No trades.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeRanking(sb *strings.Builder, title string, rows []MachineRow) {
	sb.WriteString(title + "\n\n")
	if len(rows) == 0 {
		sb.WriteString("No machines.\n\n")
		return
	}
	sb.WriteString("| ID | Name | Maker | Score | Tier | Price |\n")
	sb.WriteString("|----|------|-------|-------|------|-------|\n")
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.1f | %s | ¥%s |\n",
			m.MachineID, escapeCell(m.Name), escapeCell(m.Maker), m.Score, m.Tier, formatYen(m.BasePrice)))
	}
	sb.WriteString("\n")
}

// formatYen groups digits by thousands.
func formatYen(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := fmt.Sprintf("%d", v)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	return sign + sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
