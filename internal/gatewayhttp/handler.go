package gatewayhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ai-hr/interview-core/internal/metrics"
	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/retrieval"
	"github.com/ai-hr/interview-core/internal/roleprofile"
	"github.com/ai-hr/interview-core/internal/scenario"
	"github.com/ai-hr/interview-core/internal/scoring"
	"github.com/ai-hr/interview-core/internal/session"
	"github.com/ai-hr/interview-core/internal/turn"
)

const (
	asrWSPongWait  = 60 * time.Second
	asrWSPingEvery = (asrWSPongWait * 9) / 10
)

var asrUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// Handler wires the interview-core components to HTTP handlers.
type Handler struct {
	Scenarios    *scenario.Store
	Roles        *roleprofile.Store
	Sessions     *session.Manager
	Orchestrator *turn.Orchestrator
	Retrieval    *retrieval.Store
	Metrics      *metrics.Recorder
}

// NewMux builds the routed handler for every surface in spec.md §6 plus
// the supplementary endpoints SPEC_FULL.md adds. Grounded on
// internal/gateway/server/routes.go's ServeMux+CORS shape.
func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /turn", h.handleTurn)
	mux.HandleFunc("POST /session/start", h.handleSessionStart)
	mux.HandleFunc("POST /session/end", h.handleSessionEnd)
	mux.HandleFunc("GET /session/{id}", h.handleSessionGet)
	mux.HandleFunc("GET /session/{id}/events", h.handleSessionEvents)
	mux.HandleFunc("GET /session/{id}/asr", h.handleSessionASR)

	mux.HandleFunc("POST /scenario", h.handleScenarioLoad)
	mux.HandleFunc("GET /scenario/{id}", h.handleScenarioGet)
	mux.HandleFunc("GET /scenarios", h.handleScenarioList)

	mux.HandleFunc("POST /score/aggregate", h.handleScoreAggregate)
	mux.HandleFunc("POST /resume/index", h.handleResumeIndex)

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /metrics/summary", h.handleMetricsSummary)

	return CORS(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := model.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case model.KindInvalidInput:
		status = http.StatusBadRequest
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindConflict:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": string(kind)})
}

// --- Session lifecycle -----------------------------------------------------

type startSessionRequest struct {
	CandidateID   string `json:"candidate_id"`
	ScenarioID    string `json:"scenario_id"`
	RoleProfileID string `json:"role_profile_id"`
}

func (h *Handler) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewError(model.KindInvalidInput, "invalid request body", err))
		return
	}
	if req.CandidateID == "" || req.ScenarioID == "" {
		writeError(w, model.NewError(model.KindInvalidInput, "candidate_id and scenario_id are required", nil))
		return
	}
	sc, ok := h.Scenarios.GetStrict(r.Context(), req.ScenarioID)
	if !ok {
		writeError(w, model.ErrScenarioNotFound)
		return
	}
	id, sess := h.Sessions.Start(req.CandidateID, req.ScenarioID, req.RoleProfileID, sc.StartID)
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": id, "state": sess.State()})
}

func (h *Handler) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewError(model.KindInvalidInput, "invalid request body", err))
		return
	}
	h.Sessions.End(req.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, model.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

// handleSessionEvents streams E1/E2 events as Server-Sent Events.
func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, model.ErrSessionNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, model.NewError(model.KindFatal, "streaming unsupported", nil))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sess.Events():
			if !open {
				return
			}
			body, _ := json.Marshal(ev.Data)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, body)
			flusher.Flush()
		}
	}
}

// handleSessionASR streams ASR partial-transcript signals over a
// WebSocket, keeping the connection alive with a ping/pong heartbeat.
// Grounded on internal/gateway/handler/rpc/user_interaction.go's
// HandleInteractionWS.
func (h *Handler) handleSessionASR(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Sessions.Get(r.PathValue("id")); !ok {
		writeError(w, model.ErrSessionNotFound)
		return
	}
	conn, err := asrUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(asrWSPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(asrWSPongWait))
	})

	go func() {
		ticker := time.NewTicker(asrWSPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			return
		}
		// Partial-length signals feed the Backchannel Engine via the next
		// POST /turn call; this endpoint only keeps the ASR stream alive and
		// accepts frames, it does not itself trigger a turn.
	}
}

// --- Turn --------------------------------------------------------------

type turnRequest struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
	PartialLen int    `json:"partial_len,omitempty"`
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewError(model.KindInvalidInput, "invalid request body", err))
		return
	}
	sess, ok := h.Sessions.Get(req.SessionID)
	if !ok {
		writeError(w, model.ErrSessionNotFound)
		return
	}
	record, err := h.Orchestrator.HandleTurn(r.Context(), sess, turn.Input{Transcript: req.Transcript, PartialLen: req.PartialLen})
	if err != nil {
		if errors.Is(err, model.ErrCancelled) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "turn superseded"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// --- Scenario ------------------------------------------------------------

func (h *Handler) handleScenarioLoad(w http.ResponseWriter, r *http.Request) {
	var sc model.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, model.NewError(model.KindInvalidInput, "invalid scenario body", err))
		return
	}
	if err := h.Scenarios.Load(r.Context(), sc); err != nil {
		var verr *scenario.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"invalid": true, "reasons": verr.Reasons})
			return
		}
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleScenarioGet(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.Scenarios.GetStrict(r.Context(), r.PathValue("id"))
	if !ok {
		writeError(w, model.ErrScenarioNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) handleScenarioList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ids": h.Scenarios.List(r.Context())})
}

// --- Scoring ---------------------------------------------------------------

func (h *Handler) handleScoreAggregate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers      []model.QAnswer   `json:"answers"`
		BlockWeights map[string]float64 `json:"block_weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewError(model.KindInvalidInput, "invalid request body", err))
		return
	}
	writeJSON(w, http.StatusOK, scoring.Analyze(req.Answers, req.BlockWeights))
}

// --- Resume indexing (SPEC_FULL.md addition, backing C6) --------------------

func (h *Handler) handleResumeIndex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CVID   string          `json:"cv_id"`
		Chunks []model.CVChunk `json:"chunks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewError(model.KindInvalidInput, "invalid request body", err))
		return
	}
	if h.Retrieval == nil {
		writeError(w, model.NewError(model.KindFatal, "retrieval adapter not configured", nil))
		return
	}
	h.Retrieval.Index(req.CVID, req.Chunks)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(req.Chunks)})
}

// --- Health / metrics --------------------------------------------------

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"scenario_count":  len(h.Scenarios.List(r.Context())),
		"active_sessions": h.Sessions.Count(),
	})
}

func (h *Handler) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	if h.Metrics == nil {
		writeJSON(w, http.StatusOK, metrics.Summary{})
		return
	}
	writeJSON(w, http.StatusOK, h.Metrics.Summary(time.Now(), 0))
}
