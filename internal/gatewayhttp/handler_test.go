package gatewayhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ai-hr/interview-core/internal/llm"
	"github.com/ai-hr/interview-core/internal/llmclient"
	"github.com/ai-hr/interview-core/internal/metrics"
	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/retrieval"
	"github.com/ai-hr/interview-core/internal/roleprofile"
	"github.com/ai-hr/interview-core/internal/scenario"
	"github.com/ai-hr/interview-core/internal/scoring"
	"github.com/ai-hr/interview-core/internal/session"
	"github.com/ai-hr/interview-core/internal/tester"
	"github.com/ai-hr/interview-core/internal/turn"
)

func testScenario() model.Scenario {
	return model.Scenario{
		ID:      "sc1",
		StartID: "n1",
		Policy:  model.Policy{DrillThreshold: 0.7},
		Nodes: []model.Node{
			{ID: "n1", Category: "python", Weight: 1, Question: "Q1", SuccessCriteria: []string{"python"}, NextIfPass: "n2", NextIfFail: "n2"},
			{ID: "n2", Category: "closing", Weight: 1, Question: "Q2", SuccessCriteria: []string{"done"}},
		},
	}
}

func newTestHandler(t *testing.T) *Handler {
	scenarios := scenario.New("")
	tester.NoErr(t, scenarios.Load(context.Background(), testScenario()))

	roles := roleprofile.New()
	tester.NoErr(t, roles.LoadBytes([]byte(`
profiles:
  default:
    block_weights: {python: 0.5, closing: 0.5}
    pass_threshold: 0.7
`)))

	client := llmclient.NewFakeClient(json.RawMessage(`not json`))
	adapter := llm.NewAdapter(client, 0, llm.DefaultTemplateLibrary(), scoring.New())
	sessions := session.NewManager(0)
	rec := metrics.New(0, 0)

	orch := &turn.Orchestrator{
		Scenarios: scenarios,
		Roles:     roles,
		Scorer:    scoring.New(),
		Adapter:   adapter,
		Metrics:   rec,
	}

	return &Handler{
		Scenarios:    scenarios,
		Roles:        roles,
		Sessions:     sessions,
		Orchestrator: orch,
		Metrics:      rec,
	}
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0}, nil
}

func newTestHandlerWithRetrieval(t *testing.T) *Handler {
	h := newTestHandler(t)
	store, err := retrieval.New(stubEmbedder{}, 10, 0)
	tester.NoErr(t, err)
	h.Retrieval = store
	return h
}

func doJSON(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		tester.NoErr(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsScenarioCountAndActiveSessions(t *testing.T) {
	h := newTestHandler(t)
	mux := NewMux(h)

	rec := doJSON(t, mux, http.MethodGet, "/health", nil)
	tester.Eq(t, rec.Code, http.StatusOK)

	var body map[string]any
	tester.NoErr(t, json.Unmarshal(rec.Body.Bytes(), &body))
	tester.Eq(t, body["scenario_count"], any(float64(1)))
	tester.Eq(t, body["active_sessions"], any(float64(0)))
}

func TestSessionStartTurnLifecycle(t *testing.T) {
	h := newTestHandler(t)
	mux := NewMux(h)

	startRec := doJSON(t, mux, http.MethodPost, "/session/start", startSessionRequest{
		CandidateID: "cand1", ScenarioID: "sc1", RoleProfileID: "default",
	})
	tester.Eq(t, startRec.Code, http.StatusCreated)

	var started map[string]any
	tester.NoErr(t, json.Unmarshal(startRec.Body.Bytes(), &started))
	sessionID, _ := started["session_id"].(string)
	tester.True(t, sessionID != "", "expected a session id in the start response")

	turnRec := doJSON(t, mux, http.MethodPost, "/turn", turnRequest{
		SessionID: sessionID, Transcript: "some transcript about python",
	})
	tester.Eq(t, turnRec.Code, http.StatusOK)

	var record model.TurnRecord
	tester.NoErr(t, json.Unmarshal(turnRec.Body.Bytes(), &record))
	tester.True(t, record.NodeID == "n1", "expected the turn to have answered node n1")

	getRec := doJSON(t, mux, http.MethodGet, "/session/"+sessionID, nil)
	tester.Eq(t, getRec.Code, http.StatusOK)

	endRec := doJSON(t, mux, http.MethodPost, "/session/end", map[string]string{"session_id": sessionID})
	tester.Eq(t, endRec.Code, http.StatusNoContent)

	missingRec := doJSON(t, mux, http.MethodGet, "/session/"+sessionID, nil)
	tester.Eq(t, missingRec.Code, http.StatusNotFound)
}

func TestTurnUnknownSessionReturns404(t *testing.T) {
	h := newTestHandler(t)
	mux := NewMux(h)

	rec := doJSON(t, mux, http.MethodPost, "/turn", turnRequest{SessionID: "nope", Transcript: "hi"})
	tester.Eq(t, rec.Code, http.StatusNotFound)
}

func TestScenarioLoadRejectsInvalidScenario(t *testing.T) {
	h := newTestHandler(t)
	mux := NewMux(h)

	rec := doJSON(t, mux, http.MethodPost, "/scenario", model.Scenario{ID: "bad"})
	tester.Eq(t, rec.Code, http.StatusBadRequest)
}

func TestScenarioLoadThenGetRoundTrips(t *testing.T) {
	h := newTestHandler(t)
	mux := NewMux(h)

	sc := testScenario()
	sc.ID = "sc2"
	rec := doJSON(t, mux, http.MethodPost, "/scenario", sc)
	tester.Eq(t, rec.Code, http.StatusNoContent)

	getRec := doJSON(t, mux, http.MethodGet, "/scenario/sc2", nil)
	tester.Eq(t, getRec.Code, http.StatusOK)

	listRec := doJSON(t, mux, http.MethodGet, "/scenarios", nil)
	tester.Eq(t, listRec.Code, http.StatusOK)
	var listBody map[string][]string
	tester.NoErr(t, json.Unmarshal(listRec.Body.Bytes(), &listBody))
	tester.True(t, len(listBody["ids"]) == 2, "expected both the seeded and newly loaded scenarios")
}

func TestScoreAggregateComputesOverall(t *testing.T) {
	h := newTestHandler(t)
	mux := NewMux(h)

	rec := doJSON(t, mux, http.MethodPost, "/score/aggregate", map[string]any{
		"answers": []model.QAnswer{
			{QuestionID: "n1", Block: "python", Score: 0.8, Weight: 1},
			{QuestionID: "n2", Block: "closing", Score: 0.6, Weight: 1},
		},
		"block_weights": map[string]float64{"python": 0.5, "closing": 0.5},
	})
	tester.Eq(t, rec.Code, http.StatusOK)

	var analysis model.PerformanceAnalysis
	tester.NoErr(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	tester.InDelta(t, analysis.OverallScore, 0.7, 0.01)
}

func TestResumeIndexReturnsOKAndCount(t *testing.T) {
	h := newTestHandlerWithRetrieval(t)
	mux := NewMux(h)

	rec := doJSON(t, mux, http.MethodPost, "/resume/index", map[string]any{
		"cv_id": "cand1",
		"chunks": []model.CVChunk{
			{CVID: "cand1", ChunkText: "Python backend, 5 years.", Embedding: []float64{1, 0}},
		},
	})
	tester.Eq(t, rec.Code, http.StatusOK)

	var body map[string]any
	tester.NoErr(t, json.Unmarshal(rec.Body.Bytes(), &body))
	tester.Eq(t, body["ok"], true)
	tester.Eq(t, body["count"], any(float64(1)))
}

func TestCORSEchoesOriginHeader(t *testing.T) {
	h := newTestHandler(t)
	mux := NewMux(h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	tester.Eq(t, rec.Header().Get("Access-Control-Allow-Origin"), "https://example.com")
}
