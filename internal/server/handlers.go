package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"slot-parlor/internal/catalog"
	"slot-parlor/internal/domain"
	"slot-parlor/internal/reporting"
	"slot-parlor/internal/session"
	"slot-parlor/internal/storage"
)

// errBadRequest marks malformed parameters.
var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.session.Status()
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, toStatus(status))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	stats := s.session.Catalog().Stats()
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, toStats(stats))
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	week := s.session.Week()
	digest := s.session.Digest()
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"week":   week,
		"digest": toDigest(digest),
	})
}

// machineQuery is the parsed filter of GET /api/machines.
type machineQuery struct {
	text     string
	fuzzy    bool
	maker    string
	tier     domain.Tier
	band     domain.Band
	minPrice int64
	maxPrice int64
	sort     string
	limit    int
}

var sortKeys = map[string]bool{
	"": true, "id": true, "score": true, "-score": true, "price": true, "-price": true,
	"release": true, "-release": true, "name": true,
}

func parseMachineQuery(r *http.Request) (machineQuery, error) {
	q := r.URL.Query()
	mq := machineQuery{
		text:  strings.TrimSpace(q.Get("q")),
		maker: q.Get("maker"),
		tier:  domain.Tier(q.Get("tier")),
		band:  domain.Band(q.Get("band")),
		sort:  q.Get("sort"),
	}

	var err error
	if v := q.Get("fuzzy"); v != "" {
		if mq.fuzzy, err = strconv.ParseBool(v); err != nil {
			return mq, fmt.Errorf("%w: fuzzy must be a boolean", errBadRequest)
		}
	}
	if mq.tier != "" && !mq.tier.Valid() {
		return mq, fmt.Errorf("%w: unknown tier %q", errBadRequest, mq.tier)
	}
	switch mq.band {
	case "", domain.BandHigh, domain.BandMedium, domain.BandLow:
	default:
		return mq, fmt.Errorf("%w: unknown band %q", errBadRequest, mq.band)
	}
	if !sortKeys[mq.sort] {
		return mq, fmt.Errorf("%w: unknown sort %q", errBadRequest, mq.sort)
	}
	if mq.minPrice, err = queryInt64(q.Get("min_price"), 0); err != nil {
		return mq, err
	}
	if mq.maxPrice, err = queryInt64(q.Get("max_price"), 0); err != nil {
		return mq, err
	}
	limit, err := queryInt64(q.Get("limit"), 0)
	if err != nil || limit < 0 {
		return mq, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest)
	}
	mq.limit = int(limit)
	return mq, nil
}

// selectMachines narrows the catalog with the cheapest index first, then
// applies the remaining predicates.
func selectMachines(cat *catalog.Catalog, mq machineQuery) []*domain.Machine {
	var base []*domain.Machine
	switch {
	case mq.text != "" && mq.fuzzy:
		base = cat.FuzzySearch(mq.text)
	case mq.text != "":
		base = cat.Search(mq.text)
	case mq.minPrice > 0 || mq.maxPrice > 0:
		upper := mq.maxPrice
		if upper <= 0 {
			upper = math.MaxInt64
		}
		base = cat.ByPriceRange(mq.minPrice, upper)
	case mq.band != "":
		base = cat.FilterByBand(mq.band)
	default:
		base = cat.Filter(mq.maker, mq.tier)
	}

	out := base[:0]
	for _, m := range base {
		if mq.maker != "" && m.Maker != mq.maker {
			continue
		}
		if mq.tier != "" && m.PopularityTier != mq.tier {
			continue
		}
		if mq.band != "" && m.PopularityTier.Band() != mq.band {
			continue
		}
		if mq.minPrice > 0 && m.BasePrice < mq.minPrice {
			continue
		}
		if mq.maxPrice > 0 && m.BasePrice > mq.maxPrice {
			continue
		}
		out = append(out, m)
	}

	sortMachines(out, mq.sort)
	if mq.limit > 0 && len(out) > mq.limit {
		out = out[:mq.limit]
	}
	return out
}

func sortMachines(machines []*domain.Machine, key string) {
	var less func(a, b *domain.Machine) bool
	switch key {
	case "id":
		less = func(a, b *domain.Machine) bool { return a.ID < b.ID }
	case "score":
		less = func(a, b *domain.Machine) bool { return a.PopularityScore > b.PopularityScore }
	case "-score":
		less = func(a, b *domain.Machine) bool { return a.PopularityScore < b.PopularityScore }
	case "price":
		less = func(a, b *domain.Machine) bool { return a.BasePrice < b.BasePrice }
	case "-price":
		less = func(a, b *domain.Machine) bool { return a.BasePrice > b.BasePrice }
	case "release":
		less = func(a, b *domain.Machine) bool { return a.ReleaseDate.After(b.ReleaseDate) }
	case "-release":
		less = func(a, b *domain.Machine) bool { return a.ReleaseDate.Before(b.ReleaseDate) }
	case "name":
		less = func(a, b *domain.Machine) bool { return a.Name < b.Name }
	default:
		// keep catalog or relevance order
		return
	}
	sort.SliceStable(machines, func(i, j int) bool { return less(machines[i], machines[j]) })
}

func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	mq, err := parseMachineQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	machines := selectMachines(s.session.Catalog(), mq)
	items, err := s.session.List(r.Context(), machines)
	s.mu.Unlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	out := make([]ListItemResponse, len(items))
	for i, item := range items {
		out[i] = ListItemResponse{
			MachineResponse: toMachine(item.Machine),
			Forecast:        toForecast(item.Forecast),
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"machines": out,
	})
}

func (s *Server) handleGetMachine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	detail, ok, err := s.session.Detail(r.Context(), id)
	s.mu.Unlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("machine %d not found", id))
		return
	}

	s.writeJSON(w, http.StatusOK, toDetail(detail))
}

func (s *Server) handleMachineHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.RLock()
	_, ok := s.session.Catalog().Get(id)
	var history []*domain.HistoryEntry
	if ok {
		history, err = s.session.Catalog().History(r.Context(), id)
	}
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("machine %d not found", id))
		return
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"machine_id": id,
		"history":    toHistory(history),
	})
}

func (s *Server) handleAdvanceWeek(w http.ResponseWriter, r *http.Request) {
	report, err := s.AdvanceWeek(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toWeek(report))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	status, err := s.Reset(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toStatus(status))
}

func (s *Server) handleQuotePurchase(w http.ResponseWriter, r *http.Request) {
	id, qty, err := quoteParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.RLock()
	q, err := s.session.QuotePurchase(id, qty)
	s.mu.RUnlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, PurchaseQuoteResponse{
		MachineID:     q.MachineID,
		Quantity:      q.Quantity,
		UnitPrice:     q.UnitPrice,
		ListTotal:     q.ListTotal,
		Total:         q.Total,
		IslandApplied: q.IslandApplied,
		Islands:       q.Islands,
		Savings:       q.Savings,
	})
}

func (s *Server) handleQuoteResale(w http.ResponseWriter, r *http.Request) {
	id, qty, err := quoteParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	q, err := s.session.QuoteResale(id, qty)
	s.mu.Unlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ResaleQuoteResponse{
		MachineID:   q.MachineID,
		Quantity:    q.Quantity,
		MarketPrice: q.MarketPrice,
		UnitPrice:   q.UnitPrice,
		Total:       q.Total,
	})
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	trades := s.session.Trades()
	s.mu.RUnlock()

	out := make([]TradeResponse, len(trades))
	for i, t := range trades {
		out[i] = toTrade(t)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"trades": out})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, domain.TradeSideBuy)
}

func (s *Server) handleSale(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, domain.TradeSideSell)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, side domain.TradeSide) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	var (
		trade *domain.TradeRecord
		err   error
	)
	if side == domain.TradeSideBuy {
		trade, err = s.session.Purchase(r.Context(), req.MachineID, req.Quantity)
	} else {
		trade, err = s.session.Sell(r.Context(), req.MachineID, req.Quantity)
	}
	s.mu.Unlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toTrade(trade))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, err := s.session.Portfolio()
	s.mu.Unlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPortfolio(p))
}

func (s *Server) handleExportCatalog(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	body, err := reporting.RenderCatalogCSV(s.session.Catalog().All())
	s.mu.RUnlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeText(w, "text/csv; charset=utf-8", "machines.csv", body)
}

func (s *Server) handleExportTrades(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	body, err := reporting.RenderTradesCSV(s.session.Trades())
	s.mu.RUnlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeText(w, "text/csv; charset=utf-8", "trades.csv", body)
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report, err := reporting.NewGenerator(s.session).Generate(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeText(w, "text/markdown; charset=utf-8", "report.md", reporting.RenderMarkdown(report))
}

func (s *Server) handleDigestStream(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	hello := Event{Type: EventHello, Payload: map[string]any{
		"status": toStatus(s.session.Status()),
		"digest": toDigest(s.session.Digest()),
	}}
	s.mu.RUnlock()

	s.hub.ServeWS(w, r, hello)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrUnknownMachine), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSimulationOver),
		errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, storage.ErrNonMonotonicWeek):
		return http.StatusConflict
	case errors.Is(err, session.ErrInsufficientFunds),
		errors.Is(err, session.ErrInsufficientInventory),
		errors.Is(err, session.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) writeText(w http.ResponseWriter, contentType, filename, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write response")
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: machine id must be an integer", errBadRequest)
	}
	return id, nil
}

func quoteParams(r *http.Request) (int64, int, error) {
	q := r.URL.Query()
	id, err := strconv.ParseInt(q.Get("id"), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: id must be an integer", errBadRequest)
	}
	qty, err := strconv.Atoi(q.Get("qty"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: qty must be an integer", errBadRequest)
	}
	return id, qty, nil
}

func queryInt64(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", errBadRequest, v)
	}
	return n, nil
}
