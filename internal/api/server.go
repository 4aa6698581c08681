// Package api serves the fishing session over HTTP.
// GET endpoints are public (snapshot polling). POST endpoints carry captain
// decisions; reset and advance additionally require the operator bearer token.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/83ace42/fish-tycoon/internal/engine"
	"github.com/83ace42/fish-tycoon/internal/persistence"
	"github.com/83ace42/fish-tycoon/internal/session"
)

const maxBodyBytes = 64 << 10

// Server serves the session over HTTP.
type Server struct {
	Coord    *session.Coordinator
	DB       *persistence.DB // optional; history is unavailable without it
	Port     int
	AdminKey string // Bearer token for operator endpoints. Empty = disabled.
	Limiter  *RateLimiter

	started time.Time
}

// Handler builds the routed, rate-limited, CORS-aware handler.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	mux := http.NewServeMux()

	// Public observation.
	mux.HandleFunc("/api/v1/status", s.getOnly(s.handleStatus))
	mux.HandleFunc("/api/v1/snapshot", s.getOnly(s.handleSnapshot))
	mux.HandleFunc("/api/v1/history", s.getOnly(s.handleHistory))
	mux.HandleFunc("/api/v1/history/ledger", s.getOnly(s.handleHistoryLedger))
	mux.HandleFunc("/api/v1/history/years", s.getOnly(s.handleHistoryYears))

	// Captain actions.
	mux.HandleFunc("/api/v1/session", s.postOnly(s.handleCreateSession))
	mux.HandleFunc("/api/v1/join", s.postOnly(s.handleJoin))
	mux.HandleFunc("/api/v1/leave", s.postOnly(s.handleLeave))
	mux.HandleFunc("/api/v1/start", s.postOnly(s.handleStart))
	mux.HandleFunc("/api/v1/submit", s.postOnly(s.handleSubmit))
	mux.HandleFunc("/api/v1/retract", s.postOnly(s.handleRetract))

	// Operator endpoints.
	mux.HandleFunc("/api/v1/session/reset", s.postOnly(s.adminOnly(s.handleReset)))
	mux.HandleFunc("/api/v1/advance", s.postOnly(s.adminOnly(s.handleAdvance)))

	var h http.Handler = mux
	if s.Limiter != nil {
		h = RateLimitMiddleware(s.Limiter, h)
	}
	return corsMiddleware(h)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "", "history", s.DB != nil)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("HTTP API stopped")
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require the operator bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, ErrForbidden, "operator endpoints disabled (no HARBOR_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, ErrForbidden, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, ErrBadRequest, "method not allowed")
			return
		}
		next(w, r)
	}
}

func (s *Server) getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, ErrBadRequest, "method not allowed")
			return
		}
		next(w, r)
	}
}

type participantRequest struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name,omitempty"`
	MaxRounds     int    `json:"max_rounds,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":       "Fish Tycoon",
		"uptime_sec": int(time.Since(s.started).Seconds()),
		"active":     false,
	}
	if id, ok := s.Coord.Active(); ok {
		if snap, err := s.Coord.Snapshot(id); err == nil {
			status["active"] = true
			status["session_id"] = snap.SessionID
			status["phase"] = snap.Phase
			status["round"] = snap.Round
			status["max_rounds"] = snap.MaxRounds
			status["captains"] = len(snap.Participants)
			status["submitted"] = len(snap.Submitted)
			status["price"] = snap.Price
			status["event"] = snap.Ecology.Event.Name
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrBadRequest, "missing session_id")
		return
	}
	snap, err := s.Coord.Snapshot(id)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, ErrInternal, "database not available")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, ErrBadRequest, "limit must be 1-1000")
			return
		}
		limit = n
	}

	records, err := s.DB.History(limit)
	if err != nil {
		slog.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrInternal, "history query failed")
		return
	}

	out := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, newHistoryEntry(rec))
	}
	writeJSON(w, out)
}

// historyEntry flattens the nullable columns of a Record for JSON.
type historyEntry struct {
	persistence.Record
	Price      *float64 `json:"price,omitempty"`
	TotalCatch *float64 `json:"total_catch,omitempty"`
}

func newHistoryEntry(rec persistence.Record) historyEntry {
	e := historyEntry{Record: rec}
	if rec.Price.Valid {
		e.Price = &rec.Price.Float64
	}
	if rec.TotalCatch.Valid {
		e.TotalCatch = &rec.TotalCatch.Float64
	}
	return e
}

// handleHistoryLedger returns one stored resolution with its ledger and log.
func (s *Server) handleHistoryLedger(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, ErrInternal, "database not available")
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("resolution_id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, ErrBadRequest, "resolution_id must be a positive integer")
		return
	}
	rec, err := s.DB.Resolution(id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, ErrBadRequest, fmt.Sprintf("no resolution %d", id))
		return
	}
	if err != nil {
		slog.Error("resolution query failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, ErrInternal, "history query failed")
		return
	}
	ledger, err := s.DB.Ledger(id)
	if err == nil {
		var lines []string
		lines, err = s.DB.LogLines(id)
		if err == nil {
			writeJSON(w, map[string]any{
				"resolution": newHistoryEntry(rec),
				"ledger":     ledger,
				"log":        lines,
			})
			return
		}
	}
	slog.Error("ledger query failed", "id", id, "error", err)
	writeError(w, http.StatusInternalServerError, ErrInternal, "history query failed")
}

// handleHistoryYears exports each captain's books per closed year of a
// session, as JSON or (format=csv) as a CSV download.
func (s *Server) handleHistoryYears(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, ErrInternal, "database not available")
		return
	}
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, ErrBadRequest, "missing session_id")
		return
	}
	rows, err := s.DB.YearlyRecords(sessionID)
	if err != nil {
		slog.Error("yearly records query failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, ErrInternal, "history query failed")
		return
	}

	switch q.Get("format") {
	case "", "json":
		if rows == nil {
			rows = []persistence.YearRow{}
		}
		writeJSON(w, rows)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "fish-tycoon-"+sessionID+".csv"))
		if err := persistence.WriteYearlyCSV(w, rows); err != nil {
			slog.Warn("csv export failed", "session", sessionID, "error", err)
		}
	default:
		writeError(w, http.StatusBadRequest, ErrBadRequest, "format must be json or csv")
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !readJSON(w, r, &req) {
		return
	}
	id, err := s.Coord.CreateSession(req.MaxRounds)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	if s.DB != nil {
		if err := s.DB.SaveSession(id, s.Coord.Config().Rounds(req.MaxRounds)); err != nil {
			slog.Warn("save session failed", "session", id, "error", err)
		}
	}
	writeJSON(w, map[string]any{"session_id": id})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Coord.ResetSession()
	writeJSON(w, map[string]any{"reset": true})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !readJSON(w, r, &req) {
		return
	}
	id, err := s.Coord.Join(req.SessionID, req.Name)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, map[string]any{"participant_id": id})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.Coord.Leave(req.SessionID, req.ParticipantID); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, map[string]any{"left": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.Coord.Start(req.SessionID, req.ParticipantID, req.MaxRounds); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, map[string]any{"started": true})
}

func (s *Server) handleRetract(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.Coord.Retract(req.SessionID, req.ParticipantID); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, map[string]any{"retracted": true})
}

type submitResponse struct {
	Accepted   bool               `json:"accepted"`
	Resolution *engine.Resolution `json:"resolution,omitempty"`
	Code       string             `json:"code,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		msg := "could not read body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("body too large (limit %d bytes)", tooLarge.Limit)
		}
		writeStatusJSON(w, http.StatusBadRequest, submitResponse{Code: ErrBadRequest, Error: msg})
		return
	}
	req, d, err := decodeSubmit(body)
	if err != nil {
		writeStatusJSON(w, http.StatusBadRequest, submitResponse{Code: ErrBadRequest, Error: err.Error()})
		return
	}

	out, err := s.Coord.Submit(req.SessionID, req.ParticipantID, d)
	if err != nil {
		code, status := codeFor(err)
		writeStatusJSON(w, status, submitResponse{Code: code, Error: err.Error()})
		return
	}
	writeJSON(w, submitResponse{Accepted: out.Accepted, Resolution: out.Resolution})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if !readJSON(w, r, &req) {
		return
	}
	res, ok, err := s.Coord.TryAdvance(req.SessionID)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, map[string]any{"advanced": ok, "resolution": res})
}

// readJSON decodes a bounded request body, writing E_BAD_REQUEST on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrBadRequest, "invalid json")
		return false
	}
	return true
}

func writeCoordError(w http.ResponseWriter, err error) {
	code, status := codeFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("unexpected coordinator error", "error", err)
	}
	writeError(w, status, code, err.Error())
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeStatusJSON(w, status, map[string]any{"code": code, "error": msg})
}

func writeStatusJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeStatusJSON(w, http.StatusOK, data)
}
