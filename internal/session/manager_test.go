package session

import (
	"testing"
	"time"

	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/tester"
)

func TestStartCreatesRetrievableSession(t *testing.T) {
	m := NewManager(0)
	id, sess := m.Start("cand1", "scenario1", "role1", "n1")
	got, ok := m.Get(id)
	tester.True(t, ok, "expected session to be retrievable")
	tester.Eq(t, got, sess)
	tester.Eq(t, sess.State().CurrentNodeID, "n1")
}

func TestAcquireTurnCancelsPriorInFlightTurn(t *testing.T) {
	_, sess := NewManager(0).Start("c", "s", "r", "n1")
	canceled := false
	seq1, _ := sess.AcquireTurn(func() { canceled = true })
	tester.Eq(t, seq1, uint64(1))

	seq2, _ := sess.AcquireTurn(func() {})
	tester.Eq(t, seq2, uint64(2))
	tester.True(t, canceled, "expected AcquireTurn to cancel the previous in-flight turn")
}

func TestCommitRejectsStaleTurnSeq(t *testing.T) {
	m := NewManager(0)
	_, sess := m.Start("c", "s", "r", "n1")
	seq, _ := sess.AcquireTurn(func() {})

	// Simulate a newer turn racing ahead and bumping turn_seq further.
	sess.AcquireTurn(func() {})

	ok := sess.Commit(seq, model.QAnswer{Block: "python", Score: 0.8, Weight: 1}, "n2", false, model.TurnRecord{NodeID: "n1"}, map[string]float64{"python": 1})
	tester.True(t, !ok, "expected commit with a stale turn_seq to be rejected")
	tester.Eq(t, sess.State().CurrentNodeID, "n1")
}

func TestCommitAppliesScoringAndAdvancesNode(t *testing.T) {
	m := NewManager(0)
	_, sess := m.Start("c", "s", "r", "n1")
	seq, _ := sess.AcquireTurn(func() {})

	ok := sess.Commit(seq, model.QAnswer{Block: "python", Score: 0.8, Weight: 1}, "n2", false, model.TurnRecord{NodeID: "n1", Transcript: "hi"}, map[string]float64{"python": 1})
	tester.True(t, ok, "expected commit to succeed")
	state := sess.State()
	tester.Eq(t, state.CurrentNodeID, "n2")
	tester.Eq(t, state.BlockScores["python"], 0.8)
	tester.Eq(t, len(state.History), 1)
}

func TestCommitOverallScoreUsesUnequalBlockWeights(t *testing.T) {
	m := NewManager(0)
	_, sess := m.Start("c", "s", "r", "n1")
	seq, _ := sess.AcquireTurn(func() {})
	sess.Commit(seq, model.QAnswer{Block: "python", Score: 1.0, Weight: 1}, "n2", false, model.TurnRecord{NodeID: "n1"}, map[string]float64{"python": 0.8, "communication": 0.2})

	seq2, _ := sess.AcquireTurn(func() {})
	sess.Commit(seq2, model.QAnswer{Block: "communication", Score: 0.0, Weight: 1}, "n3", false, model.TurnRecord{NodeID: "n2"}, map[string]float64{"python": 0.8, "communication": 0.2})

	// weighted overall = 1.0*0.8 + 0.0*0.2 = 0.8, not the unweighted average
	// of 0.5, which is what an unweighted mean over block_scores would give.
	tester.InDelta(t, sess.State().OverallScore, 0.8, 0.001)
}

func TestCommitCriticalFailMarksSessionEnded(t *testing.T) {
	m := NewManager(0)
	_, sess := m.Start("c", "s", "r", "n1")
	seq, _ := sess.AcquireTurn(func() {})
	sess.Commit(seq, model.QAnswer{Block: "security", Score: 0.1, Weight: 1}, "n2", true, model.TurnRecord{NodeID: "n1"}, map[string]float64{"security": 1})
	tester.True(t, sess.State().Ended(), "expected a critical fail to end the session")
}

func TestBackchannelEventPrecedesTurnCompleteForSameTurnSeq(t *testing.T) {
	_, sess := NewManager(0).Start("c", "s", "r", "n1")
	seq, _ := sess.AcquireTurn(func() {})

	sess.PublishBackchannel(seq, "mm-hm")
	sess.PublishTurnComplete(model.TurnRecord{TurnSeq: seq})

	e1 := <-sess.Events()
	tester.Eq(t, e1.Kind, "backchannel")
	bc, ok := e1.Data.(BackchannelEvent)
	tester.True(t, ok, "expected E1 payload to be a BackchannelEvent")
	tester.Eq(t, bc.TurnSeq, seq)

	e2 := <-sess.Events()
	tester.Eq(t, e2.Kind, "turn_complete")
	tr, ok := e2.Data.(model.TurnRecord)
	tester.True(t, ok, "expected E2 payload to be a TurnRecord")
	tester.Eq(t, tr.TurnSeq, bc.TurnSeq)
}

func TestEvictIdleRemovesStaleSessions(t *testing.T) {
	m := NewManager(time.Minute)
	id, sess := m.Start("c", "s", "r", "n1")
	sess.mu.Lock()
	sess.state.LastTurnAt = time.Now().Add(-2 * time.Minute)
	sess.mu.Unlock()

	evicted := m.EvictIdle(time.Now())
	tester.Eq(t, len(evicted), 1)
	tester.Eq(t, evicted[0], id)
	_, ok := m.Get(id)
	tester.True(t, !ok, "expected the session to be gone after eviction")
}

func TestEndRemovesSession(t *testing.T) {
	m := NewManager(0)
	id, _ := m.Start("c", "s", "r", "n1")
	m.End(id)
	_, ok := m.Get(id)
	tester.True(t, !ok, "expected explicit End to remove the session")
}
