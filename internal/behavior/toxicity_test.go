package behavior

import (
	"testing"

	"github.com/ai-hr/interview-core/internal/tester"
)

func TestScoreCleanTranscriptIsZero(t *testing.T) {
	a := New(0, 0)
	score, labels := a.Score("Работал с Python пять лет, руководил командой.")
	tester.Eq(t, score, 0.0)
	tester.Eq(t, len(labels), 0)
}

func TestScoreInsultRaisesWarnLevel(t *testing.T) {
	a := New(0, 0)
	score, labels := a.Score("Вы все тупые и вообще идиоты в этой компании.")
	tester.True(t, score > 0, "expected score > 0, got %v", score)
	tester.True(t, len(labels) > 0, "expected at least one label")
	tester.Eq(t, a.ActionLevel(score), ActionWarn)
}

func TestScoreMultipleCategoriesReachesCritical(t *testing.T) {
	a := New(0, 0)
	score, _ := a.Score("Идиоты, я вас ненавижу, убить вас мало, пошёл вон отсюда.")
	tester.Eq(t, a.ActionLevel(score), ActionCritical)
}

func TestActionLevelDefaultThresholds(t *testing.T) {
	a := New(0, 0)
	tester.Eq(t, a.ActionLevel(0.5), ActionNone)
	tester.Eq(t, a.ActionLevel(0.75), ActionWarn)
	tester.Eq(t, a.ActionLevel(0.9), ActionCritical)
}

func TestPhraseNonEmptyForActionableLevels(t *testing.T) {
	tester.True(t, Phrase(ActionWarn) != "", "expected a non-empty warn phrase")
	tester.True(t, Phrase(ActionCritical) != "", "expected a non-empty critical phrase")
	tester.Eq(t, Phrase(ActionNone), "")
}
