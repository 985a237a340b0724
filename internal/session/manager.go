// Package session implements the Session Manager (C9): an in-memory table
// of active interviews, each exclusively owned by its own mutex, with a
// single-slot newest-wins turn queue and an event bus per session.
// Grounded on the teacher's goroutine/channel/mutex fan-out shape
// (internal/pipeline/codebase/c4.go) generalized from a one-shot worker
// pool into a long-lived per-session coordinator.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/scoring"
)

// DefaultIdleTimeout is the §3 default: sessions idle for 30 minutes are
// evicted.
const DefaultIdleTimeout = 30 * time.Minute

// Event is published on a session's event channel. Kind is "backchannel"
// or "turn_complete" per spec.md §4.8's E1/E2.
type Event struct {
	Kind string
	Data any
}

// Session pairs a SessionState with the concurrency machinery that owns it:
// its own mutex, a size-1 newest-wins turn queue, and an event bus.
type Session struct {
	mu    sync.Mutex
	state model.SessionState

	events chan Event

	turnMu     sync.Mutex
	cancelPrev func()
}

// State returns a copy of the current state under lock.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events returns the session's event channel. Callers should drain it
// promptly; it is buffered but not unbounded.
func (s *Session) Events() <-chan Event { return s.events }

// publish is non-blocking: a slow subscriber must not stall the turn
// pipeline. A full channel drops the oldest pending event before pushing.
func (s *Session) publish(e Event) {
	select {
	case s.events <- e:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- e:
		default:
		}
	}
}

// BackchannelEvent is E1's payload. TurnSeq lets a subscriber correlate it
// with the E2 turn_complete event for the same turn (spec.md §8 Invariant
// 3: E1, if emitted, carries turn_seq == E2.turn_seq and is emitted first).
type BackchannelEvent struct {
	TurnSeq uint64 `json:"turn_seq"`
	Text    string `json:"text"`
}

// PublishBackchannel emits E1, tagged with the turn it belongs to.
func (s *Session) PublishBackchannel(turnSeq uint64, text string) {
	s.publish(Event{Kind: "backchannel", Data: BackchannelEvent{TurnSeq: turnSeq, Text: text}})
}

// PublishTurnComplete emits E2.
func (s *Session) PublishTurnComplete(record model.TurnRecord) {
	s.publish(Event{Kind: "turn_complete", Data: record})
}

// AcquireTurn implements §4.8 step 1 and the newest-wins cancellation rule:
// it cancels any in-flight turn for this session, increments turn_seq,
// snapshots current_node_id, and returns the new turn_seq, the snapshot,
// and a cancel func the caller must invoke when its own turn finishes (win
// or lose) to release the slot.
func (s *Session) AcquireTurn(newCancel func()) (turnSeq uint64, currentNodeID string) {
	s.turnMu.Lock()
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	s.cancelPrev = newCancel
	s.turnMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TurnSeq++
	s.state.LastTurnAt = time.Now()
	return s.state.TurnSeq, s.state.CurrentNodeID
}

// Commit implements §4.8 step 7: apply the scoring update, advance
// current_node_id, and append a TurnRecord, all under the session lock. It
// is a no-op if turnSeq is stale (a newer turn already committed), which is
// how cancellation-losers are silently discarded even if they race past
// their own ctx.Done() check.
func (s *Session) Commit(turnSeq uint64, update model.QAnswer, nextNodeID string, criticalFail bool, record model.TurnRecord, blockWeights map[string]float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turnSeq != s.state.TurnSeq {
		return false
	}
	s.state.Answers = append(s.state.Answers, update)
	s.state.BlockScores = recomputeBlockScores(s.state.Answers)
	s.state.OverallScore = scoring.ScoreOverall(s.state.BlockScores, blockWeights)
	s.state.CurrentNodeID = nextNodeID
	if criticalFail {
		s.state.CriticalFail = true
	}
	s.state.History = append(s.state.History, model.HistoryEntry{
		NodeID:     record.NodeID,
		Transcript: record.Transcript,
		Score:      update.Score,
		Block:      update.Block,
		Timestamp:  time.Now(),
	})
	return true
}

func recomputeBlockScores(answers []model.QAnswer) map[string]float64 {
	sums := map[string]float64{}
	weights := map[string]float64{}
	for _, a := range answers {
		sums[a.Block] += a.Score * a.Weight
		weights[a.Block] += a.Weight
	}
	out := make(map[string]float64, len(sums))
	for block, sum := range sums {
		if w := weights[block]; w > 0 {
			out[block] = sum / w
		}
	}
	return out
}

// Manager owns the process-wide table of active sessions.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
}

// NewManager builds a Manager. idleTimeout<=0 selects DefaultIdleTimeout.
func NewManager(idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Manager{sessions: make(map[string]*Session), idleTimeout: idleTimeout}
}

// Start creates a new session for candidateID against scenarioID/roleID,
// returning the session id and the *Session handle.
func (m *Manager) Start(candidateID, scenarioID, roleProfileID, startNodeID string) (string, *Session) {
	id := uuid.NewString()
	sess := &Session{
		state: model.SessionState{
			SessionID:     id,
			CandidateID:   candidateID,
			ScenarioID:    scenarioID,
			RoleProfileID: roleProfileID,
			CurrentNodeID: startNodeID,
			BlockScores:   map[string]float64{},
			CreatedAt:     time.Now(),
			LastTurnAt:    time.Now(),
		},
		events: make(chan Event, 16),
	}
	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	return id, sess
}

// Get returns the session for id, or (nil, false) if it doesn't exist or
// has already ended.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// End removes a session explicitly (spec.md §3: "destroyed on explicit end
// or idle timeout").
func (m *Manager) End(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of currently active sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle removes sessions whose last turn is older than the configured
// idle timeout relative to now. Intended to run on a periodic ticker.
func (m *Manager) EvictIdle(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []string
	for id, sess := range m.sessions {
		sess.mu.Lock()
		stale := now.Sub(sess.state.LastTurnAt) >= m.idleTimeout
		sess.mu.Unlock()
		if stale {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
