package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ai-hr/interview-core/internal/llmclient"
	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/scoring"
)

// DefaultTokenCap is the output token ceiling from spec.md §4.5.
const DefaultTokenCap = 96

// ErrDeadlineExceeded is returned when the backend does not answer before
// the caller's context deadline.
var ErrDeadlineExceeded = errors.New("llm adapter: deadline exceeded")

// Reply is the result of GenerateReply, matching spec.md §4.5's contract.
type Reply struct {
	Text          string
	NextNodeID    string
	ScoringUpdate model.ScoringUpdate
	RedFlags      []string
	Source        model.Source
}

// PromptInput carries everything the system+user prompts are built from.
type PromptInput struct {
	Node          model.Node
	Transcript    string
	CurrentScores map[string]float64
	Role          model.RoleProfile
	CVContext     []string // optional passages from the Retrieval Adapter (C6)
}

// Adapter is the LLM Adapter (C5): a backend wrapped in retry/rate-limit/
// logging middleware, plus JSON-shape enforcement and heuristic fallback.
type Adapter struct {
	client    llmclient.Client
	tokenCap  int
	templates TemplateLibrary
	heuristic HeuristicScorer
}

// HeuristicScorer is the subset of the Scorer (C3) the adapter needs for
// its fallback path.
type HeuristicScorer interface {
	ScoreAnswer(transcript string, criteria []string) scoring.AnswerScore
}

// NewAdapter wraps client with the standard middleware chain: rate limit,
// then retry, then logging closest to the wire. tokenCap<=0 selects
// DefaultTokenCap.
func NewAdapter(client llmclient.Client, tokenCap int, templates TemplateLibrary, heuristic HeuristicScorer, mws ...Middleware) *Adapter {
	if tokenCap <= 0 {
		tokenCap = DefaultTokenCap
	}
	wrapped := Wrap(client, mws...)
	return &Adapter{client: wrapped, tokenCap: tokenCap, templates: templates, heuristic: heuristic}
}

// GenerateReply builds the system/user prompts from in, asks the backend
// for a JSON completion, and returns a Reply. On malformed output, a
// backend error, or a blown deadline it falls back to a heuristic-scored,
// template-based reply and never returns an error to the caller — the
// Turn Orchestrator always has something to commit.
func (a *Adapter) GenerateReply(ctx context.Context, in PromptInput) Reply {
	system := buildSystemPrompt(in.Role)
	user := buildUserPrompt(in)

	raw, err := a.client.GenerateJSON(ctx, system, user, a.tokenCap)
	if err == nil {
		if shape, ok := parseReplyShape(raw); ok && shape.NextNodeID != "" && shape.ScoringUpdate != nil &&
			shape.ScoringUpdate.Block == in.Node.Category {
			return Reply{
				Text:       strings.TrimSpace(shape.Reply),
				NextNodeID: shape.NextNodeID,
				ScoringUpdate: model.ScoringUpdate{
					Block: shape.ScoringUpdate.Block,
					Delta: shape.ScoringUpdate.Delta,
					Score: shape.ScoringUpdate.Score,
				},
				RedFlags: shape.RedFlags,
				Source:   model.SourceLLM,
			}
		}
	}

	return a.fallback(in)
}

// fallback constructs a heuristic-scored reply using the §4.3 scorer and a
// per-role template, per spec.md §4.5's post-processing rule. Red flags are
// derived deterministically from the transcript and the scorer's confidence
// (§8 boundary behaviours), not left empty: an LLM-only red_flags channel
// would make the empty-transcript and "не помню" boundary cases in §8
// unsatisfiable, since both take the heuristic path.
func (a *Adapter) fallback(in PromptInput) Reply {
	var as scoring.AnswerScore
	if a.heuristic != nil {
		as = a.heuristic.ScoreAnswer(in.Transcript, in.Node.SuccessCriteria)
	}
	text := a.templates.Pick(in.Role.ID, in.Node.Category, as.Score)
	return Reply{
		Text: text,
		ScoringUpdate: model.ScoringUpdate{
			Block: in.Node.Category,
			Score: as.Score,
		},
		RedFlags: scoring.RedFlags(in.Transcript, as.Confidence),
		Source:   model.SourceHeuristic,
	}
}

func buildSystemPrompt(role model.RoleProfile) string {
	return fmt.Sprintf(
		"You are an interviewer for role %q. Respond concisely. "+
			"Return JSON with fields reply, next_node_id, scoring_update, red_flags.",
		role.ID,
	)
}

func buildUserPrompt(in PromptInput) string {
	payload := map[string]any{
		"node": map[string]any{
			"id":               in.Node.ID,
			"category":         in.Node.Category,
			"question":         in.Node.Question,
			"success_criteria": in.Node.SuccessCriteria,
		},
		"transcript":     in.Transcript,
		"current_scores": in.CurrentScores,
		"role_profile":   in.Role.ID,
	}
	if len(in.CVContext) > 0 {
		payload["cv_context"] = in.CVContext
	}
	body, _ := json.Marshal(payload)
	return string(body)
}

// WithDeadline returns a context bounded by the turn's total SLA minus a
// safety margin (spec.md §4.8 step 4: default 5s - 300ms = 4.7s), and a
// cancel func the caller must invoke once the call returns.
func WithDeadline(ctx context.Context, totalSLA, safetyMargin time.Duration) (context.Context, context.CancelFunc) {
	if totalSLA <= 0 {
		totalSLA = 5 * time.Second
	}
	if safetyMargin <= 0 {
		safetyMargin = 300 * time.Millisecond
	}
	return context.WithTimeout(ctx, totalSLA-safetyMargin)
}
