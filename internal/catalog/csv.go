package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrDataLoad is returned when the catalog source is unreachable or unparsable.
// No partial catalog is ever produced.
var ErrDataLoad = errors.New("catalog data load failed")

// Strictness selects how rows whose field count differs from the header are handled.
type Strictness int

const (
	// Lenient maps mismatched rows best-effort; missing trailing fields are empty.
	Lenient Strictness = iota
	// Strict skips mismatched rows.
	Strict
)

// String returns the mode name.
func (s Strictness) String() string {
	if s == Strict {
		return "strict"
	}
	return "lenient"
}

// Row is one parsed catalog line.
type Row struct {
	Line          int // 1-based source line, header is line 1
	ID            int64
	Name          string
	Maker         string
	Series        string
	IPType        string
	MachineType   string
	BasePrice     int64
	ModelNumber   float64
	CoinUnitPrice float64
	NetGain       float64
	CoinsPer1000  float64
	SpecScore     float64
	IPScore       float64
	ReleaseScore  float64
	ReleaseDate   time.Time // zero if missing or unparsable
	Description   string
	SpecSheet     string
}

// ParseReport summarises a parse.
type ParseReport struct {
	Rows       int   // rows returned
	Skipped    int   // rows dropped in Strict mode
	SkippedAt  []int // source lines of skipped rows
	Mismatched int   // rows mapped best-effort in Lenient mode
}

// Column keys.
const (
	colID            = "id"
	colName          = "name"
	colMaker         = "maker"
	colSeries        = "series"
	colIPType        = "ip_type"
	colMachineType   = "machine_type"
	colPrice         = "price"
	colModelNumber   = "model_number"
	colCoinUnitPrice = "coin_unit_price"
	colNetGain       = "net_gain"
	colCoinsPer1000  = "coins_per_1000"
	colSpecScore     = "spec_score"
	colIPScore       = "ip_score"
	colReleaseScore  = "release_score"
	colReleaseDate   = "release_date"
	colDescription   = "description"
	colSpecSheet     = "spec_sheet"
)

// Header is the canonical column order, as in the parlor's machine list.
var Header = []string{
	"ID", "名前", "メーカー", "シリーズ", "IPタイプ", "台タイプ", "価格", "何号機か", "コイン単価",
	"純増", "1000円当たりのコイン持ち", "人気度_スペック", "人気度_IP", "人気度_発売日", "発売日",
	"台の説明", "スペック表",
}

// headerAliases maps accepted header names to column keys.
var headerAliases = map[string]string{
	"ID": colID, "id": colID,
	"名前": colName, "name": colName,
	"メーカー": colMaker, "maker": colMaker,
	"シリーズ": colSeries, "series": colSeries,
	"IPタイプ": colIPType, "ip_type": colIPType, "ipType": colIPType,
	"台タイプ": colMachineType, "machine_type": colMachineType, "machineType": colMachineType,
	"価格": colPrice, "price": colPrice,
	"何号機か": colModelNumber, "model_number": colModelNumber, "model number": colModelNumber,
	"コイン単価": colCoinUnitPrice, "coin_unit_price": colCoinUnitPrice, "coin unit price": colCoinUnitPrice,
	"純増": colNetGain, "net_gain": colNetGain, "net gain": colNetGain,
	"1000円当たりのコイン持ち": colCoinsPer1000, "coins_per_1000": colCoinsPer1000, "coins per 1000": colCoinsPer1000,
	"人気度_スペック": colSpecScore, "spec_score": colSpecScore,
	"人気度_IP": colIPScore, "ip_score": colIPScore,
	"人気度_発売日": colReleaseScore, "release_score": colReleaseScore,
	"発売日": colReleaseDate, "release_date": colReleaseDate,
	"台の説明": colDescription, "description": colDescription,
	"スペック表": colSpecSheet, "spec_sheet": colSpecSheet,
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006/1/2", "2006-1-2", time.RFC3339}

// ReadFile opens path and parses it with ParseCSV.
func ReadFile(path string, mode Strictness) ([]Row, ParseReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseReport{}, fmt.Errorf("%w: open %s: %v", ErrDataLoad, path, err)
	}
	defer f.Close()

	return ParseCSV(f, mode)
}

// ParseCSV reads a header row followed by machine rows. Columns are matched
// by exact header name; unknown columns are ignored. Numeric fields default
// to 0 on parse failure.
func ParseCSV(r io.Reader, mode Strictness) ([]Row, ParseReport, error) {
	var report ParseReport

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, report, fmt.Errorf("%w: missing header row", ErrDataLoad)
		}
		return nil, report, fmt.Errorf("%w: read header: %v", ErrDataLoad, err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if key, ok := headerAliases[h]; ok {
			if _, dup := columns[key]; !dup {
				columns[key] = i
			}
		}
	}
	if _, ok := columns[colID]; !ok {
		return nil, report, fmt.Errorf("%w: header has no ID column", ErrDataLoad)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, report, fmt.Errorf("%w: read row: %v", ErrDataLoad, err)
		}
		line, _ := reader.FieldPos(0)

		if isBlank(record) {
			continue
		}
		if len(record) != len(header) {
			if mode == Strict {
				report.Skipped++
				report.SkippedAt = append(report.SkippedAt, line)
				continue
			}
			report.Mismatched++
		}

		rows = append(rows, buildRow(line, record, columns))
	}

	report.Rows = len(rows)
	return rows, report, nil
}

func buildRow(line int, record []string, columns map[string]int) Row {
	field := func(key string) string {
		i, ok := columns[key]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	return Row{
		Line:          line,
		ID:            int64(parseNumber(field(colID))),
		Name:          field(colName),
		Maker:         field(colMaker),
		Series:        field(colSeries),
		IPType:        field(colIPType),
		MachineType:   field(colMachineType),
		BasePrice:     int64(math.Round(parseNumber(field(colPrice)))),
		ModelNumber:   parseNumber(field(colModelNumber)),
		CoinUnitPrice: parseNumber(field(colCoinUnitPrice)),
		NetGain:       parseNumber(field(colNetGain)),
		CoinsPer1000:  parseNumber(field(colCoinsPer1000)),
		SpecScore:     parseNumber(field(colSpecScore)),
		IPScore:       parseNumber(field(colIPScore)),
		ReleaseScore:  parseNumber(field(colReleaseScore)),
		ReleaseDate:   parseDate(field(colReleaseDate)),
		Description:   field(colDescription),
		SpecSheet:     field(colSpecSheet),
	}
}

// parseNumber parses a float, tolerating thousands separators and a yen sign.
// Failures yield 0.
func parseNumber(s string) float64 {
	s = strings.NewReplacer(",", "", "¥", "", "円", "").Replace(s)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
