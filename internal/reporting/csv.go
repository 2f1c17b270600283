package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"slot-parlor/internal/catalog"
	"slot-parlor/internal/domain"
)

// catalogExportColumns follows the catalog header, then the live popularity.
var catalogExportColumns = append(append([]string{}, catalog.Header...), "総合人気度", "人気度Tier")

// RenderCatalogCSV renders machines in the catalog column layout plus their
// current score and tier. The output parses back with catalog.ParseCSV.
// No machines render as an empty string.
func RenderCatalogCSV(machines []*domain.Machine) (string, error) {
	if len(machines) == 0 {
		return "", nil
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// Header
	if err := w.Write(catalogExportColumns); err != nil {
		return "", err
	}

	// Rows
	for _, m := range machines {
		release := ""
		if !m.ReleaseDate.IsZero() {
			release = m.ReleaseDate.Format("2006-01-02")
		}
		record := []string{
			strconv.FormatInt(m.ID, 10),
			m.Name,
			m.Maker,
			m.Series,
			m.IPType,
			m.MachineType,
			strconv.FormatInt(m.BasePrice, 10),
			formatFloat(m.ModelNumber),
			formatFloat(m.CoinUnitPrice),
			formatFloat(m.NetGain),
			formatFloat(m.CoinsPer1000),
			formatFloat(m.SpecScore),
			formatFloat(m.IPScore),
			formatFloat(m.ReleaseScore),
			release,
			m.Description,
			m.SpecSheet,
			strconv.FormatFloat(m.PopularityScore, 'f', 1, 64),
			string(m.PopularityTier),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderTradesCSV renders the trade journal as CSV string.
func RenderTradesCSV(trades []*domain.TradeRecord) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// Header
	if err := w.Write([]string{
		"trade_id", "session_id", "seq", "week", "side", "machine_id", "machine_name",
		"quantity", "unit_price", "market_price", "total", "savings", "money_after", "executed_at",
	}); err != nil {
		return "", err
	}

	// Rows
	for _, t := range trades {
		if err := w.Write([]string{
			t.TradeID,
			t.SessionID,
			strconv.Itoa(t.Seq),
			strconv.Itoa(t.Week),
			string(t.Side),
			strconv.FormatInt(t.MachineID, 10),
			t.MachineName,
			strconv.Itoa(t.Quantity),
			strconv.FormatInt(t.UnitPrice, 10),
			strconv.FormatInt(t.MarketPrice, 10),
			strconv.FormatInt(t.Total, 10),
			strconv.FormatInt(t.Savings, 10),
			strconv.FormatInt(t.MoneyAfter, 10),
			strconv.FormatInt(t.ExecutedAt, 10),
		}); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
