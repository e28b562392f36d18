// Package restapi is the REST ingress: a thin net/http wrapper decoding the
// spec.md §6 command envelope ({"cmd":"NEW"|"CANCEL"|"REPLAY",...}) into
// SubmissionPipeline calls, grounded in the retrieved matching engine's own
// internal/api/server.go.
package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"lobengine/internal/book"
	"lobengine/internal/manager"
	"lobengine/internal/metrics"
	"lobengine/internal/pipeline"
	"lobengine/internal/position"
	"lobengine/internal/types"
)

// Server is the HTTP front door onto a Pipeline.
type Server struct {
	listenAddr string
	pipe       *pipeline.Pipeline
	mgr        *manager.Manager
	ledger     *position.Ledger
	metrics    *metrics.Metrics
	startTime  time.Time
}

// New creates a Server. mgr/ledger are used only for read-only queries
// (orderbook, positions); all mutating calls go through pipe.
func New(listenAddr string, pipe *pipeline.Pipeline, mgr *manager.Manager, ledger *position.Ledger, m *metrics.Metrics) *Server {
	return &Server{listenAddr: listenAddr, pipe: pipe, mgr: mgr, ledger: ledger, metrics: m, startTime: time.Now()}
}

// Mux builds the route table described in SPEC_FULL.md §4.8: the single
// command envelope that is the wire-compatible §6 ingress, plus read-only
// REST affordances the envelope has no use for.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/commands", s.handleCommand)
	mux.HandleFunc("GET /api/v1/orderbook/{symbol}", s.handleOrderBook)
	mux.HandleFunc("GET /api/v1/positions", s.handlePositions)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	return mux
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	return http.ListenAndServe(s.listenAddr, s.Mux())
}

// orderPayload is the "order" object nested inside a NEW command envelope,
// matching spec.md §6's `{"symbol":S,"side":...,"type":...,"price":P,"quantity":Q}`.
// UserOwned is a REST-only extension (spec.md is silent on how a deployment
// marks its own orders) that routes fills into the PositionLedger.
type orderPayload struct {
	Symbol    string          `json:"symbol"`
	Side      types.Side      `json:"side"`
	Type      types.Kind      `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Quantity  uint32          `json:"quantity"`
	UserOwned bool            `json:"userOwned,omitempty"`
}

// commandEnvelope is the exact ingress wire shape from spec.md §6:
// {"cmd":"NEW","order":{...}}, {"cmd":"CANCEL","symbol":S,"orderId":I} or
// {"cmd":"REPLAY","symbol":S,"from":T0,"to":T1}.
type commandEnvelope struct {
	Cmd     string        `json:"cmd"`
	Order   *orderPayload `json:"order,omitempty"`
	Symbol  string        `json:"symbol,omitempty"`
	OrderID int64         `json:"orderId,omitempty"`
	From    int64         `json:"from,omitempty"`
	To      int64         `json:"to,omitempty"`
}

type tradeResponse struct {
	TradeID     int64  `json:"tradeId"`
	Price       string `json:"price"`
	Quantity    uint32 `json:"quantity"`
	BuyOrderID  int64  `json:"buyOrderId"`
	SellOrderID int64  `json:"sellOrderId"`
	Timestamp   int64  `json:"timestamp"`
}

type orderResponse struct {
	OrderID int64           `json:"orderId"`
	Trades  []tradeResponse `json:"trades,omitempty"`
}

// handleCommand decodes one spec.md §6 command envelope and dispatches it
// to the Pipeline. An unparseable body or an unrecognised cmd is a
// ProtocolError (spec.md §7): dropped with a 400, never a panic.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", types.ErrProtocol, err))
		return
	}

	switch req.Cmd {
	case "NEW":
		s.handleNew(w, req)
	case "CANCEL":
		s.handleCancel(w, req)
	case "REPLAY":
		s.handleReplay(w, req)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: unknown cmd %q", types.ErrProtocol, req.Cmd))
	}
}

func (s *Server) handleNew(w http.ResponseWriter, req commandEnvelope) {
	if req.Order == nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: NEW requires \"order\"", types.ErrProtocol))
		return
	}
	order := &types.Order{
		Symbol:    req.Order.Symbol,
		Side:      req.Order.Side,
		Kind:      req.Order.Type,
		Price:     types.TicksFromDecimal(req.Order.Price),
		Quantity:  req.Order.Quantity,
		UserOwned: req.Order.UserOwned,
	}

	start := time.Now()
	trades, err := s.pipe.Submit(order)
	s.observeLatency(start)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncOrdersRejected()
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.IncOrdersSubmitted()
		s.metrics.AddTrades(int64(len(trades)))
	}

	resp := orderResponse{OrderID: order.OrderID}
	resp.Trades = make([]tradeResponse, len(trades))
	for i, t := range trades {
		resp.Trades[i] = tradeResponse{
			TradeID:     t.TradeID,
			Price:       t.Price.Decimal().String(),
			Quantity:    t.Quantity,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
			Timestamp:   t.Timestamp,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, req commandEnvelope) {
	start := time.Now()
	outcome, err := s.pipe.Cancel(req.Symbol, req.OrderID)
	s.observeLatency(start)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if outcome == book.NotFound {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if s.metrics != nil {
		s.metrics.IncOrdersCancelled()
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderId": req.OrderID, "status": "CANCELLED"})
}

func (s *Server) handleReplay(w http.ResponseWriter, req commandEnvelope) {
	trades, err := s.pipe.Replay(req.Symbol, req.From, req.To)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// observeLatency records the elapsed wall time of a pipeline call, if a
// Metrics collector is configured.
func (s *Server) observeLatency(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveLatency(time.Since(start).Microseconds())
	}
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot())
}

type depthLevelResponse struct {
	Price    string `json:"price"`
	Quantity uint64 `json:"quantity"`
}

type orderBookResponse struct {
	Symbol string               `json:"symbol"`
	Bids   []depthLevelResponse `json:"bids"`
	Asks   []depthLevelResponse `json:"asks"`
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	maxLevels := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			maxLevels = v
		}
	}

	b := s.mgr.Book(symbol)
	resp := orderBookResponse{Symbol: symbol}
	if b != nil {
		resp.Bids = toDepthResponse(b.Depth(types.Buy, maxLevels))
		resp.Asks = toDepthResponse(b.Depth(types.Sell, maxLevels))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toDepthResponse(levels []book.DepthLevel) []depthLevelResponse {
	out := make([]depthLevelResponse, len(levels))
	for i, l := range levels {
		out[i] = depthLevelResponse{Price: l.Price.Decimal().String(), Quantity: l.Quantity}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
