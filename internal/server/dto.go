package server

import (
	"time"

	"slot-parlor/internal/catalog"
	"slot-parlor/internal/domain"
	"slot-parlor/internal/session"
)

// MachineResponse is the JSON form of a machine.
type MachineResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Maker           string    `json:"maker"`
	Series          string    `json:"series,omitempty"`
	IPType          string    `json:"ip_type,omitempty"`
	MachineType     string    `json:"machine_type,omitempty"`
	ModelNumber     float64   `json:"model_number,omitempty"`
	BasePrice       int64     `json:"base_price"`
	CoinUnitPrice   float64   `json:"coin_unit_price,omitempty"`
	NetGain         float64   `json:"net_gain,omitempty"`
	CoinsPer1000    float64   `json:"coins_per_1000,omitempty"`
	SpecScore       float64   `json:"spec_score"`
	IPScore         float64   `json:"ip_score"`
	ReleaseScore    float64   `json:"release_score,omitempty"`
	ReleaseDate     time.Time `json:"release_date"`
	Description     string    `json:"description,omitempty"`
	SpecSheet       string    `json:"spec_sheet,omitempty"`
	PopularityScore float64   `json:"popularity_score"`
	PopularityTier  string    `json:"popularity_tier"`
	Band            string    `json:"band"`
}

// ForecastResponse is the JSON form of a forecast badge.
type ForecastResponse struct {
	PredictedDelta float64 `json:"predicted_delta"`
	Trend          string  `json:"trend"`
	Confidence     float64 `json:"confidence"`
	Narrative      string  `json:"narrative,omitempty"`
}

// ListItemResponse is one row of the machine list.
type ListItemResponse struct {
	MachineResponse
	Forecast *ForecastResponse `json:"forecast,omitempty"`
}

// HistoryResponse is one weekly history entry.
type HistoryResponse struct {
	Week    int             `json:"week"`
	Score   float64         `json:"score"`
	Delta   float64         `json:"delta"`
	Factors FactorsResponse `json:"factors"`
}

// FactorsResponse splits a weekly delta into its drivers.
type FactorsResponse struct {
	Base       float64 `json:"base"`
	IP         float64 `json:"ip"`
	Spec       float64 `json:"spec"`
	Release    float64 `json:"release"`
	Adjustment float64 `json:"adjustment"`
}

// BreakdownResponse is the a-priori composite split by input.
type BreakdownResponse struct {
	Spec         float64 `json:"spec"`
	IP           float64 `json:"ip"`
	Recency      float64 `json:"recency"`
	RecencyScore float64 `json:"recency_score"`
	DaysSince    int     `json:"days_since_release"`
	Total        float64 `json:"total"`
}

// DetailResponse is the full view of one machine.
type DetailResponse struct {
	Machine     MachineResponse   `json:"machine"`
	IPName      string            `json:"ip_name"`
	Breakdown   BreakdownResponse `json:"breakdown"`
	History     []HistoryResponse `json:"history"`
	Scores      []float64         `json:"scores"`
	SMA         []float64         `json:"sma"`
	SMAStart    int               `json:"sma_start"`
	Forecast    *ForecastResponse `json:"forecast,omitempty"`
	Owned       int               `json:"owned"`
	MarketPrice int64             `json:"market_price"`
	ResalePrice int64             `json:"resale_price"`
}

// StatusResponse is the game status.
type StatusResponse struct {
	SessionID     string `json:"session_id"`
	Week          int    `json:"week"`
	MaxWeeks      int    `json:"max_weeks"`
	Date          string `json:"date"`
	Money         int64  `json:"money"`
	OwnedMachines int    `json:"owned_machines"`
	Positions     int    `json:"positions"`
	Over          bool   `json:"over"`
}

// StatsResponse is the catalog summary.
type StatsResponse struct {
	Count             int            `json:"count"`
	AveragePrice      int64          `json:"average_price"`
	AverageScore      float64        `json:"average_score"`
	TierDistribution  map[string]int `json:"tier_distribution"`
	MakerDistribution map[string]int `json:"maker_distribution"`
	Makers            []string       `json:"makers"`
	IPTypes           []string       `json:"ip_types"`
}

// DigestItemResponse is one notable weekly change.
type DigestItemResponse struct {
	MachineID   int64   `json:"machine_id"`
	MachineName string  `json:"machine_name"`
	Score       float64 `json:"score"`
	Tier        string  `json:"tier"`
	Delta       float64 `json:"delta"`
	Trend       string  `json:"trend"`
	Narrative   string  `json:"narrative"`
}

// WeekResponse is the outcome of a week advance.
type WeekResponse struct {
	Week    int                  `json:"week"`
	Date    string               `json:"date"`
	Changed int                  `json:"changed"`
	Digest  []DigestItemResponse `json:"digest"`
}

// PurchaseQuoteResponse prices buying new machines.
type PurchaseQuoteResponse struct {
	MachineID     int64 `json:"machine_id"`
	Quantity      int   `json:"quantity"`
	UnitPrice     int64 `json:"unit_price"`
	ListTotal     int64 `json:"list_total"`
	Total         int64 `json:"total"`
	IslandApplied bool  `json:"island_applied"`
	Islands       int   `json:"islands"`
	Savings       int64 `json:"savings"`
}

// ResaleQuoteResponse prices selling owned machines.
type ResaleQuoteResponse struct {
	MachineID   int64 `json:"machine_id"`
	Quantity    int   `json:"quantity"`
	MarketPrice int64 `json:"market_price"`
	UnitPrice   int64 `json:"unit_price"`
	Total       int64 `json:"total"`
}

// TradeRequest is the body of a purchase or sale.
type TradeRequest struct {
	MachineID int64 `json:"machine_id"`
	Quantity  int   `json:"quantity"`
}

// TradeResponse is one executed trade.
type TradeResponse struct {
	TradeID     string `json:"trade_id"`
	Seq         int    `json:"seq"`
	Week        int    `json:"week"`
	Side        string `json:"side"`
	MachineID   int64  `json:"machine_id"`
	MachineName string `json:"machine_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	MarketPrice int64  `json:"market_price,omitempty"`
	Total       int64  `json:"total"`
	Savings     int64  `json:"savings,omitempty"`
	MoneyAfter  int64  `json:"money_after"`
}

// HoldingResponse is one owned position.
type HoldingResponse struct {
	MachineID   int64  `json:"machine_id"`
	MachineName string `json:"machine_name"`
	Quantity    int    `json:"quantity"`
	MarketPrice int64  `json:"market_price"`
	UnitPrice   int64  `json:"unit_price"`
	Value       int64  `json:"value"`
}

// PortfolioResponse is the wallet plus holdings.
type PortfolioResponse struct {
	Money    int64             `json:"money"`
	Value    int64             `json:"value"`
	Owned    int               `json:"owned"`
	Holdings []HoldingResponse `json:"holdings"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

const dateLayout = "2006-01-02"

func toMachine(m *domain.Machine) MachineResponse {
	return MachineResponse{
		ID:              m.ID,
		Name:            m.Name,
		Maker:           m.Maker,
		Series:          m.Series,
		IPType:          m.IPType,
		MachineType:     m.MachineType,
		ModelNumber:     m.ModelNumber,
		BasePrice:       m.BasePrice,
		CoinUnitPrice:   m.CoinUnitPrice,
		NetGain:         m.NetGain,
		CoinsPer1000:    m.CoinsPer1000,
		SpecScore:       m.SpecScore,
		IPScore:         m.IPScore,
		ReleaseScore:    m.ReleaseScore,
		ReleaseDate:     m.ReleaseDate,
		Description:     m.Description,
		SpecSheet:       m.SpecSheet,
		PopularityScore: m.PopularityScore,
		PopularityTier:  string(m.PopularityTier),
		Band:            string(m.PopularityTier.Band()),
	}
}

func toForecast(fc *domain.ForecastResult) *ForecastResponse {
	if fc == nil {
		return nil
	}
	return &ForecastResponse{
		PredictedDelta: fc.PredictedDelta,
		Trend:          string(fc.Trend),
		Confidence:     fc.Confidence,
		Narrative:      fc.Narrative,
	}
}

func toHistory(entries []*domain.HistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryResponse{
			Week:  e.Week,
			Score: e.Score,
			Delta: e.Delta,
			Factors: FactorsResponse{
				Base:       e.Factors.Base,
				IP:         e.Factors.IP,
				Spec:       e.Factors.Spec,
				Release:    e.Factors.Release,
				Adjustment: e.Factors.Adjustment,
			},
		}
	}
	return out
}

func toDetail(d *session.Detail) DetailResponse {
	return DetailResponse{
		Machine: toMachine(d.Machine),
		IPName:  d.IPName,
		Breakdown: BreakdownResponse{
			Spec:         d.Breakdown.Spec,
			IP:           d.Breakdown.IP,
			Recency:      d.Breakdown.Recency,
			RecencyScore: d.Breakdown.RecencyScore,
			DaysSince:    d.Breakdown.DaysSince,
			Total:        d.Breakdown.Total,
		},
		History:     toHistory(d.History),
		Scores:      d.Scores,
		SMA:         d.SMA,
		SMAStart:    d.SMAStart,
		Forecast:    toForecast(d.Forecast),
		Owned:       d.Owned,
		MarketPrice: d.MarketPrice,
		ResalePrice: d.ResalePrice,
	}
}

func toStatus(st session.Status) StatusResponse {
	return StatusResponse{
		SessionID:     st.SessionID,
		Week:          st.Week,
		MaxWeeks:      st.MaxWeeks,
		Date:          st.Date.Format(dateLayout),
		Money:         st.Money,
		OwnedMachines: st.OwnedMachines,
		Positions:     st.Positions,
		Over:          st.Over,
	}
}

func toStats(st catalog.Stats) StatsResponse {
	tiers := make(map[string]int, len(st.TierDistribution))
	for tier, n := range st.TierDistribution {
		tiers[string(tier)] = n
	}
	return StatsResponse{
		Count:             st.Count,
		AveragePrice:      st.AveragePrice,
		AverageScore:      st.AverageScore,
		TierDistribution:  tiers,
		MakerDistribution: st.MakerDistribution,
		Makers:            st.Makers,
		IPTypes:           st.IPTypes,
	}
}

func toDigest(items []session.DigestItem) []DigestItemResponse {
	out := make([]DigestItemResponse, len(items))
	for i, item := range items {
		out[i] = DigestItemResponse{
			MachineID:   item.MachineID,
			MachineName: item.MachineName,
			Score:       item.Score,
			Tier:        string(item.Tier),
			Delta:       item.Delta,
			Trend:       string(item.Trend),
			Narrative:   item.Narrative,
		}
	}
	return out
}

func toWeek(r *session.WeekReport) WeekResponse {
	changed := 0
	for _, res := range r.Results {
		if res.Delta != 0 {
			changed++
		}
	}
	return WeekResponse{
		Week:    r.Week,
		Date:    r.Date.Format(dateLayout),
		Changed: changed,
		Digest:  toDigest(r.Digest),
	}
}

func toTrade(t *domain.TradeRecord) TradeResponse {
	return TradeResponse{
		TradeID:     t.TradeID,
		Seq:         t.Seq,
		Week:        t.Week,
		Side:        string(t.Side),
		MachineID:   t.MachineID,
		MachineName: t.MachineName,
		Quantity:    t.Quantity,
		UnitPrice:   t.UnitPrice,
		MarketPrice: t.MarketPrice,
		Total:       t.Total,
		Savings:     t.Savings,
		MoneyAfter:  t.MoneyAfter,
	}
}

func toPortfolio(p *session.Portfolio) PortfolioResponse {
	out := PortfolioResponse{
		Money:    p.Money,
		Value:    p.Value,
		Owned:    p.Owned,
		Holdings: make([]HoldingResponse, 0, len(p.Holdings)),
	}
	for _, h := range p.Holdings {
		out.Holdings = append(out.Holdings, HoldingResponse{
			MachineID:   h.Machine.ID,
			MachineName: h.Machine.Name,
			Quantity:    h.Quantity,
			MarketPrice: h.Quote.MarketPrice,
			UnitPrice:   h.Quote.UnitPrice,
			Value:       h.Quote.Total,
		})
	}
	return out
}
