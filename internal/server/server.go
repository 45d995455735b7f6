// Package server provides HTTP and WebSocket handlers for the dashboard
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/pr-poehali-dev/alpha-omega-bot/internal/config"
	apperrors "github.com/pr-poehali-dev/alpha-omega-bot/internal/errors"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/ledger"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/outcome"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/trace"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/tracker"
)

// Tracker is the session surface the handlers drive.
type Tracker interface {
	Observe(v outcome.Outcome, src tracker.Source) (*ledger.Record, []ledger.Resolution, ledger.Stats)
	Start()
	Stop()
	Reset()
	SetInterval(seconds int) error
	SetAutoCapture(on bool) error
	Status() tracker.Status
	Stats() ledger.Stats
	History(limit int) []*ledger.Record
	Observations(window int) []outcome.Outcome
	Frame() []byte
	Events() <-chan tracker.Event
}

// Inbound WebSocket messages.
type wsCommand struct {
	Type    string `json:"type"`
	Value   string `json:"value,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	trk        Tracker
	ratePerSec float64
	rateBurst  int

	mu       sync.RWMutex
	conns    map[*websocket.Conn]struct{}
	limiters map[*websocket.Conn]*rate.Limiter
}

// New creates a server and starts the event broadcaster.
func New(trk Tracker, cfg *config.Config) *Server {
	s := &Server{
		trk:        trk,
		ratePerSec: DefaultWSRatePerSecond,
		rateBurst:  DefaultWSRateBurst,
		conns:      make(map[*websocket.Conn]struct{}),
		limiters:   make(map[*websocket.Conn]*rate.Limiter),
	}
	if cfg != nil && cfg.WSRatePerSecond > 0 {
		s.ratePerSec = cfg.WSRatePerSecond
	}
	if cfg != nil && cfg.WSRateBurst > 0 {
		s.rateBurst = cfg.WSRateBurst
	}

	go s.broadcastEvents()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/observe", s.handleObserve)
	mux.HandleFunc("POST /api/loop/start", s.handleLoopStart)
	mux.HandleFunc("POST /api/loop/stop", s.handleLoopStop)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("PUT /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/observations", s.handleObservations)
	mux.HandleFunc("POST /api/capture/start", s.handleCaptureStart)
	mux.HandleFunc("POST /api/capture/stop", s.handleCaptureStop)
	mux.HandleFunc("GET /api/capture/frame", s.handleFrame)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeUnknown
	if appErr, ok := err.(*apperrors.AppError); ok {
		code = appErr.Code
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.StatusOf(err))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(code),
	})
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "invalid request body"))
		return
	}
	v, err := outcome.Parse(req.Value)
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "invalid outcome value"))
		return
	}

	log := trace.Logger(r.Context())
	log.Info("manual observation", "value", v.String())

	rec, resolutions, stats := s.trk.Observe(v, tracker.SourceManual)
	writeJSON(w, map[string]any{
		"record":      rec,
		"resolutions": resolutions,
		"stats":       stats,
	})
}

func (s *Server) handleLoopStart(w http.ResponseWriter, r *http.Request) {
	s.trk.Start()
	writeJSON(w, s.trk.Status())
}

func (s *Server) handleLoopStop(w http.ResponseWriter, r *http.Request) {
	s.trk.Stop()
	writeJSON(w, s.trk.Status())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.trk.Reset()
	writeJSON(w, s.trk.Status())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntervalSeconds int `json:"interval_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "invalid request body"))
		return
	}
	if err := s.trk.SetInterval(req.IntervalSeconds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.trk.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.trk.Status())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.trk.Stats())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", DefaultHistoryLimit)
	if limit <= 0 {
		// Records(limit<=0) means "everything"; the cap must still hold.
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	records := s.trk.History(limit)
	if records == nil {
		records = []*ledger.Record{}
	}
	writeJSON(w, map[string]any{"records": records})
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	window := queryInt(r, "window", DefaultObservationsWindow)
	if window <= 0 {
		window = DefaultObservationsWindow
	}
	obs := s.trk.Observations(window)
	if obs == nil {
		obs = []outcome.Outcome{}
	}
	writeJSON(w, map[string]any{"observations": obs})
}

func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if err := s.trk.SetAutoCapture(true); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.trk.Status())
}

func (s *Server) handleCaptureStop(w http.ResponseWriter, r *http.Request) {
	if err := s.trk.SetAutoCapture(false); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.trk.Status())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame := s.trk.Frame()
	if frame == nil {
		http.Error(w, "no frame captured", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(frame)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.limiters[conn] = rate.NewLimiter(rate.Limit(s.ratePerSec), s.rateBurst)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.limiters, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Initial state so the dashboard renders without a separate fetch.
	_ = wsjson.Write(baseCtx, conn, map[string]any{"type": "status", "status": s.trk.Status()})

	for {
		var raw json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &raw); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		limiter := s.limiters[conn]
		s.mu.RUnlock()

		if limiter != nil && !limiter.Allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, errorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}

		ctx := baseCtx
		if tc, ok := trace.ExtractFromJSON(raw); ok {
			ctx = trace.WithContext(ctx, tc)
		}
		s.handleCommand(ctx, conn, cmd)
	}
}

func (s *Server) handleCommand(ctx context.Context, conn *websocket.Conn, cmd wsCommand) {
	log := trace.Logger(ctx)

	switch cmd.Type {
	case "observe":
		v, err := outcome.Parse(cmd.Value)
		if err != nil {
			_ = wsjson.Write(ctx, conn, errorMessage{
				Type:    "error",
				Code:    string(apperrors.CodeInvalidArgument),
				Message: "invalid outcome value",
			})
			return
		}
		log.Info("websocket observation", "value", v.String())
		s.trk.Observe(v, tracker.SourceManual)
	case "start":
		s.trk.Start()
	case "stop":
		s.trk.Stop()
	case "reset":
		s.trk.Reset()
	default:
		log.Debug("unknown websocket command", "type", cmd.Type)
	}
}

func (s *Server) broadcastEvents() {
	for evt := range s.trk.Events() {
		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn, e tracker.Event) {
				_ = wsjson.Write(context.Background(), c, e)
			}(conn, evt)
		}
		s.mu.RUnlock()
	}
}
