package scoring

import (
	"testing"

	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/tester"
)

func TestScoreAnswerHappyPass(t *testing.T) {
	s := New()
	res := s.ScoreAnswer("Работал с Python 5 лет, опыт больших проектов, микросервисы и асинхронность.",
		[]string{"python", "опыт", "проекты"})
	tester.True(t, res.Score >= 0.7, "expected score >= 0.7, got %v", res.Score)
}

func TestScoreAnswerFailPath(t *testing.T) {
	s := New()
	res := s.ScoreAnswer("не помню", []string{"python", "опыт", "проекты"})
	tester.True(t, res.Score <= 0.3, "expected score <= 0.3, got %v", res.Score)
}

func TestScoreAnswerEmptyTranscript(t *testing.T) {
	s := New()
	res := s.ScoreAnswer("", []string{"python"})
	tester.Eq(t, res.Score, 0.0)
}

func TestScoreAnswerFullMatchLongTranscript(t *testing.T) {
	s := New()
	long := "python опыт проекты " // repeat to exceed 120 runes with all criteria present
	for len([]rune(long)) < 130 {
		long += "с большим количеством микросервисов и асинхронного программирования "
	}
	res := s.ScoreAnswer(long, []string{"python", "опыт", "проекты"})
	tester.Eq(t, res.Score, 1.0)
}

func TestScoreBlockMonotoneNonDecreasing(t *testing.T) {
	answers := []model.QAnswer{
		{QuestionID: "q1", Block: "python", Score: 0.3, Weight: 1},
		{QuestionID: "q2", Block: "python", Score: 0.5, Weight: 1},
	}
	before := ScoreBlock(answers, "python")
	answers[0].Score = 0.6
	after := ScoreBlock(answers, "python")
	tester.True(t, after >= before, "increasing a criterion match must not decrease block score")
}

func TestScoreBlockMissingBlockIsZero(t *testing.T) {
	tester.Eq(t, ScoreBlock(nil, "anything"), 0.0)
}

func TestScoreOverallIgnoresUnweightedBlocks(t *testing.T) {
	blockScores := map[string]float64{"a": 1.0, "b": 0.0, "c": 1.0}
	weights := map[string]float64{"a": 0.5, "b": 0.5}
	tester.Eq(t, ScoreOverall(blockScores, weights), 0.5)
}

func TestAnalyzeOrderInvariantInAnswers(t *testing.T) {
	a1 := []model.QAnswer{
		{Block: "x", Score: 1.0, Weight: 1},
		{Block: "y", Score: 0.5, Weight: 1},
	}
	a2 := []model.QAnswer{a1[1], a1[0]}
	weights := map[string]float64{"x": 0.5, "y": 0.5}

	r1 := Analyze(a1, weights)
	r2 := Analyze(a2, weights)
	tester.Eq(t, r1.OverallScore, r2.OverallScore)
	tester.Eq(t, r1.BlockScores, r2.BlockScores)
}

func TestMatchScoreClampedToUnit(t *testing.T) {
	candidate := map[string]float64{"a": 2.0}
	required := map[string]float64{"a": 1.0}
	weights := map[string]float64{"a": 1.0}
	tester.Eq(t, MatchScore(candidate, required, weights), 1.0)
}

func TestRedFlagsEmptyTranscript(t *testing.T) {
	flags := RedFlags("", 0.0)
	tester.Eq(t, len(flags), 2)
	tester.Eq(t, flags[0], "empty_answer")
	tester.Eq(t, flags[1], "low_confidence")
}

func TestRedFlagsLowConfidenceOnly(t *testing.T) {
	flags := RedFlags("не помню", 0.1)
	tester.Eq(t, flags, []string{"low_confidence"})
}

func TestRedFlagsNoneWhenConfident(t *testing.T) {
	flags := RedFlags("a well matched confident answer with plenty of substance", 0.9)
	tester.Eq(t, len(flags), 0)
}

func TestOverallLevelBuckets(t *testing.T) {
	tester.Eq(t, OverallLevel(0.1), "Below")
	tester.Eq(t, OverallLevel(0.5), "Approaching")
	tester.Eq(t, OverallLevel(0.8), "Meets")
	tester.Eq(t, OverallLevel(0.9), "Exceeds")
}
