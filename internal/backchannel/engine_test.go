package backchannel

import (
	"testing"
	"time"

	"github.com/ai-hr/interview-core/internal/tester"
)

func sampleTables() map[string]Table {
	return map[string]Table{
		"backend_engineer": {
			PositiveThreshold: 0.7,
			NegativeThreshold: 0.3,
			Utterances: map[Tone][]string{
				TonePositive: {"Nice.", "Great, go on."},
				ToneNeutral:  {"I see.", "Mm-hmm."},
				ToneNegative: {"Okay.", "Understood."},
			},
		},
	}
}

func TestPickUsesNeutralWhenOnlyPartialLenAvailable(t *testing.T) {
	e := New(sampleTables(), time.Second)
	text, ok := e.Pick("s1", "backend_engineer", Signal{PartialLen: 12}, time.Now())
	tester.True(t, ok, "expected an utterance")
	tester.Eq(t, text, "I see.")
}

func TestPickUsesPositiveToneAboveThreshold(t *testing.T) {
	e := New(sampleTables(), time.Second)
	score := 0.9
	text, ok := e.Pick("s1", "backend_engineer", Signal{Score: &score}, time.Now())
	tester.True(t, ok, "expected an utterance")
	tester.Eq(t, text, "Nice.")
}

func TestPickRoundRobinsWithinTone(t *testing.T) {
	e := New(sampleTables(), 0)
	now := time.Now()
	score := 0.9
	first, _ := e.Pick("s1", "backend_engineer", Signal{Score: &score}, now)
	second, _ := e.Pick("s1", "backend_engineer", Signal{Score: &score}, now.Add(time.Millisecond))
	tester.True(t, first != second, "expected round-robin to advance within the tone")
}

func TestPickRateLimitsWithinMinInterval(t *testing.T) {
	e := New(sampleTables(), 2*time.Second)
	now := time.Now()
	_, ok1 := e.Pick("s1", "backend_engineer", Signal{PartialLen: 1}, now)
	_, ok2 := e.Pick("s1", "backend_engineer", Signal{PartialLen: 1}, now.Add(500*time.Millisecond))
	tester.True(t, ok1, "first emit should succeed")
	tester.True(t, !ok2, "second emit within min_interval_ms should be suppressed")
}

func TestPickAllowsEmitAfterMinInterval(t *testing.T) {
	e := New(sampleTables(), 2*time.Second)
	now := time.Now()
	_, ok1 := e.Pick("s1", "backend_engineer", Signal{PartialLen: 1}, now)
	_, ok2 := e.Pick("s1", "backend_engineer", Signal{PartialLen: 1}, now.Add(3*time.Second))
	tester.True(t, ok1 && ok2, "expected both emits to succeed once min_interval_ms elapses")
}

func TestPickUnknownRoleReturnsFalse(t *testing.T) {
	e := New(sampleTables(), time.Second)
	_, ok := e.Pick("s1", "unknown-role", Signal{PartialLen: 1}, time.Now())
	tester.True(t, !ok, "expected unknown role to yield no utterance")
}
