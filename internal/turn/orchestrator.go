// Package turn implements the Turn Orchestrator (C8): the per-turn
// pipeline that forks a backchannel pick, a retrieval query, and a
// substantive LLM call, races them against their own deadlines, resolves a
// result (preferring a well-formed LLM reply over the heuristic floor), and
// commits it to the owning session. Grounded on the teacher's
// goroutine/channel fan-out shape (internal/pipeline/codebase/c4.go),
// generalized from a one-shot batch job into a per-turn concurrent
// pipeline with independent per-fork deadlines.
package turn

import (
	"context"
	"time"

	"github.com/ai-hr/interview-core/internal/backchannel"
	"github.com/ai-hr/interview-core/internal/behavior"
	"github.com/ai-hr/interview-core/internal/llm"
	"github.com/ai-hr/interview-core/internal/metrics"
	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/retrieval"
	"github.com/ai-hr/interview-core/internal/roleprofile"
	"github.com/ai-hr/interview-core/internal/scenario"
	"github.com/ai-hr/interview-core/internal/scoring"
	"github.com/ai-hr/interview-core/internal/selector"
	"github.com/ai-hr/interview-core/internal/session"
)

// Defaults from spec.md §4.8 step 4.
const (
	DefaultTotalSLA      = 5 * time.Second
	DefaultSafetyMargin  = 300 * time.Millisecond
	BackchannelDeadline  = 500 * time.Millisecond
	RetrievalDeadline    = 800 * time.Millisecond
	DefaultRetrievalTopK = 3
)

// Orchestrator wires the components a turn touches. Any of Backchannel or
// Retrieval may be nil, in which case that fork is skipped.
type Orchestrator struct {
	Scenarios    *scenario.Store
	Roles        *roleprofile.Store
	Scorer       *scoring.Scorer
	Adapter      *llm.Adapter
	Backchannel  *backchannel.Engine
	Retrieval    *retrieval.Store
	Metrics      *metrics.Recorder
	Behavior     *behavior.Analyzer
	TotalSLA     time.Duration
	SafetyMargin time.Duration

	// BackchannelDeadline and RetrievalDeadline bound the step-2/step-3
	// forks (spec.md §4.8 steps 2-3); <=0 selects the package default.
	// RetrievalTopK bounds how many CV chunks the context fetch fork keeps;
	// <=0 selects DefaultRetrievalTopK.
	BackchannelDeadline time.Duration
	RetrievalDeadline   time.Duration
	RetrievalTopK       int
}

// Input is what the caller (the HTTP/WS gateway) hands the orchestrator
// for a single finalized transcript turn.
type Input struct {
	Transcript string
	PartialLen int // ASR partial-length signal received earlier, if any
}

// HandleTurn runs the full §4.8 per-turn pipeline against sess and returns
// the committed TurnRecord. It never returns an error to the caller for a
// well-formed session: LLM and retrieval failures degrade to the heuristic
// floor, and a turn superseded by a newer one (newest-wins) returns
// model.ErrCancelled.
func (o *Orchestrator) HandleTurn(ctx context.Context, sess *session.Session, in Input) (model.TurnRecord, error) {
	t0 := time.Now()
	totalSLA := o.TotalSLA
	if totalSLA <= 0 {
		totalSLA = DefaultTotalSLA
	}
	safetyMargin := o.SafetyMargin
	if safetyMargin <= 0 {
		safetyMargin = DefaultSafetyMargin
	}

	turnCtx, cancel := context.WithCancel(ctx)
	turnSeq, currentNodeID := sess.AcquireTurn(cancel)
	defer cancel()

	state := sess.State()
	role := o.Roles.Get(state.RoleProfileID)
	node, err := o.Scenarios.Node(turnCtx, state.ScenarioID, currentNodeID)
	if err != nil {
		return model.TurnRecord{}, err
	}

	// Step 2: backchannel fork, hard deadline 500ms from t0. bcDone closes
	// once the fork has either published E1 or given up, and is joined
	// below before E2 is published: spec.md §8 Invariant 3 requires that
	// if E1 is emitted, it is emitted before E2 for the same turn_seq.
	bcDone := make(chan struct{})
	var backchannelText string
	go func() {
		defer close(bcDone)
		backchannelText = o.runBackchannel(turnCtx, sess, role.ID, in, t0, turnSeq)
	}()

	// Step 3: context fetch fork, 800ms deadline. Runs concurrently with the
	// substantive fork below; its result is only used if it lands before the
	// LLM call needs it, so we give the LLM fork a channel it can optionally
	// wait on with its own short grace period rather than blocking on it.
	retrievalDeadline := o.RetrievalDeadline
	if retrievalDeadline <= 0 {
		retrievalDeadline = RetrievalDeadline
	}
	retrievalTopK := o.RetrievalTopK
	if retrievalTopK <= 0 {
		retrievalTopK = DefaultRetrievalTopK
	}

	cvCtxCh := make(chan []string, 1)
	if o.Retrieval != nil {
		go func() {
			retrieveCtx, retrieveCancel := context.WithTimeout(turnCtx, retrievalDeadline)
			defer retrieveCancel()
			matches := o.Retrieval.Search(retrieveCtx, state.CandidateID, node.Question, retrievalTopK, 0)
			texts := make([]string, len(matches))
			for i, m := range matches {
				texts[i] = m.ChunkText
			}
			cvCtxCh <- texts
		}()
	} else {
		cvCtxCh <- nil
	}

	// Step 5: heuristic floor computed in parallel with the LLM fork.
	heuristicCh := make(chan scoring.AnswerScore, 1)
	go func() {
		heuristicCh <- o.Scorer.ScoreAnswer(in.Transcript, node.SuccessCriteria)
	}()

	// Step 4: substantive LLM fork.
	llmCtx, llmCancel := context.WithDeadline(turnCtx, t0.Add(totalSLA-safetyMargin))
	defer llmCancel()

	var cvContext []string
	select {
	case cvContext = <-cvCtxCh:
	case <-time.After(50 * time.Millisecond):
		// Proceed without CV context rather than stalling the substantive
		// fork on a slow retrieval; the fork below still races cvCtxCh.
	case <-llmCtx.Done():
	}

	llmStart := time.Now()
	reply := o.Adapter.GenerateReply(llmCtx, llm.PromptInput{
		Node:          node,
		Transcript:    in.Transcript,
		CurrentScores: state.BlockScores,
		Role:          role,
		CVContext:     cvContext,
	})
	llmMillis := time.Since(llmStart).Milliseconds()

	heuristicScore := <-heuristicCh

	// Step 6: resolution. GenerateReply already prefers a well-formed LLM
	// reply internally; when it fell back, fill in next_node_id via the
	// Selector using the heuristic score, since the backend didn't supply
	// one we can trust.
	if reply.Source == model.SourceHeuristic {
		decision := selector.Next(node, heuristicScore.Score, role, state.CriticalFail)
		reply.NextNodeID = decision.NextNodeID
		reply.ScoringUpdate.Score = heuristicScore.Score
		reply.RedFlags = scoring.RedFlags(in.Transcript, heuristicScore.Confidence)
	}

	criticalFail := role.IsCritical(node.Category) && reply.ScoringUpdate.Score < role.Thresholds.CriticalFail

	// Behavior incident screen: a toxic transcript raises a red flag
	// regardless of source, and at the critical tier ends the session the
	// way BehaviorPolicy.action="end" does in the original system.
	if o.Behavior != nil {
		toxScore, _ := o.Behavior.Score(in.Transcript)
		switch o.Behavior.ActionLevel(toxScore) {
		case behavior.ActionWarn:
			reply.RedFlags = append(reply.RedFlags, "toxicity_warning")
			reply.Text = behavior.Phrase(behavior.ActionWarn)
		case behavior.ActionCritical:
			reply.RedFlags = append(reply.RedFlags, "toxicity_critical")
			reply.Text = behavior.Phrase(behavior.ActionCritical)
			criticalFail = true
		}
	}

	// Join the backchannel fork before emitting E2: it must have published
	// E1 (or given up) first, per the §8 Invariant 3 ordering guarantee.
	<-bcDone

	// Step 7: commit under the session lock.
	answer := model.QAnswer{QuestionID: node.ID, Block: node.Category, Score: reply.ScoringUpdate.Score, Weight: node.Weight}
	timings := model.StageTimings{LLMMillis: llmMillis, TotalMillis: time.Since(t0).Milliseconds()}
	record := model.TurnRecord{
		TurnSeq:         turnSeq,
		SessionID:       state.SessionID,
		NodeID:          node.ID,
		Transcript:      in.Transcript,
		BackchannelText: backchannelText,
		ReplyText:       reply.Text,
		NextNodeID:      reply.NextNodeID,
		ScoringUpdate:   reply.ScoringUpdate,
		RedFlags:        reply.RedFlags,
		Source:          reply.Source,
		Timings:         timings,
	}

	if !sess.Commit(turnSeq, answer, reply.NextNodeID, criticalFail, record, role.BlockWeights) {
		return model.TurnRecord{}, model.ErrCancelled
	}

	if o.Metrics != nil {
		o.Metrics.RecordTurn(timings, reply.Source == model.SourceLLM, time.Now())
	}

	// Step 8: emit E2.
	sess.PublishTurnComplete(record)
	return record, nil
}

// runBackchannel picks and publishes E1 for turnSeq, returning the picked
// text (empty if none was published). It never runs past bcDeadline from
// t0, so joining on its completion bounds the extra latency HandleTurn
// pays to preserve E1-before-E2 ordering.
func (o *Orchestrator) runBackchannel(ctx context.Context, sess *session.Session, roleID string, in Input, t0 time.Time, turnSeq uint64) string {
	if o.Backchannel == nil {
		return ""
	}
	bcDeadline := o.BackchannelDeadline
	if bcDeadline <= 0 {
		bcDeadline = BackchannelDeadline
	}
	bcCtx, cancel := context.WithDeadline(ctx, t0.Add(bcDeadline))
	defer cancel()

	done := make(chan struct{})
	var text string
	var ok bool
	go func() {
		defer close(done)
		text, ok = o.Backchannel.Pick(sess.State().SessionID, roleID, backchannel.Signal{PartialLen: in.PartialLen}, t0)
	}()

	select {
	case <-done:
		if ok {
			sess.PublishBackchannel(turnSeq, text)
			return text
		}
		return ""
	case <-bcCtx.Done():
		// Failure is silent per §4.8 step 2.
		return ""
	}
}
