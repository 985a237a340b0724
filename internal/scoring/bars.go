// Package scoring implements the BARS Scorer (C3): turning a transcript and
// a node's success criteria into a 0..1 score, and aggregating scored
// answers into block and overall scores. Grounded on the behavior of
// original_source/ai-hr/services/api/scoring/bars.py, generalized to the
// role-profile-authoritative thresholds spec.md §4.3 defines.
package scoring

import (
	"strings"
	"unicode/utf8"
)

// AnswerScore is the result of scoring one transcript against one node's
// criteria.
type AnswerScore struct {
	Score            float64
	Confidence       float64
	MatchedCriteria  []string
}

// Scorer applies the BARS heuristic floor.
type Scorer struct{}

// New returns a ready-to-use Scorer. It carries no state: all inputs are
// passed per call.
func New() *Scorer { return &Scorer{} }

// ScoreAnswer implements the §4.3 heuristic algorithm: tokenize, match
// each criterion by exact substring / whole-word / stemmed match, compute
// coverage, then snap to the nearest BARS anchor using the length-aware
// rules spec.md defines.
func (s *Scorer) ScoreAnswer(transcript string, criteria []string) AnswerScore {
	transcript = strings.TrimSpace(transcript)
	length := utf8.RuneCountInString(transcript)

	if len(criteria) == 0 {
		return AnswerScore{Score: 0, Confidence: 0}
	}

	normTranscript := normalize(transcript)
	transcriptWords := tokenize(transcript)
	stemmedWords := stemAll(transcriptWords)
	stemSet := make(map[string]struct{}, len(stemmedWords))
	for _, w := range stemmedWords {
		stemSet[w] = struct{}{}
	}
	wordSet := make(map[string]struct{}, len(transcriptWords))
	for _, w := range transcriptWords {
		wordSet[w] = struct{}{}
	}

	var matched []string
	for _, raw := range criteria {
		c := normalize(strings.TrimSpace(raw))
		if c == "" {
			continue
		}
		if matchesCriterion(c, normTranscript, wordSet, stemSet) {
			matched = append(matched, raw)
		}
	}

	coverage := float64(len(matched)) / float64(len(criteria))
	score := anchor(coverage, length, len(matched))

	lengthFactor := float64(len(transcriptWords)) / 40.0
	if lengthFactor > 1 {
		lengthFactor = 1
	}
	confidence := coverage + lengthFactor*0.3
	if confidence > 1 {
		confidence = 1
	}

	return AnswerScore{Score: score, Confidence: confidence, MatchedCriteria: matched}
}

// LowConfidenceThreshold matches original_source/ai-hr/services/dm/main.py's
// calculate_confidence gate: below this, a heuristic-scored answer is
// flagged rather than trusted outright.
const LowConfidenceThreshold = 0.4

// RedFlags derives the deterministic red flags spec.md §8's boundary
// behaviours require on the heuristic path: an empty transcript always
// carries "empty_answer"; any answer (empty or not) scored below
// LowConfidenceThreshold carries "low_confidence".
func RedFlags(transcript string, confidence float64) []string {
	var flags []string
	if strings.TrimSpace(transcript) == "" {
		flags = append(flags, "empty_answer")
	}
	if confidence < LowConfidenceThreshold {
		flags = append(flags, "low_confidence")
	}
	return flags
}

// matchesCriterion checks a normalized criterion against the transcript by
// (a) exact substring, (b) whole-word match against the tokenized
// transcript, or (c) stemmed match — in that priority order, per §4.3.
func matchesCriterion(criterion, normTranscript string, wordSet, stemSet map[string]struct{}) bool {
	if criterion == "" {
		return false
	}
	if strings.Contains(normTranscript, criterion) {
		return true
	}
	// A multi-word criterion only makes sense as a substring match; word/stem
	// matching operates on single tokens.
	if strings.ContainsAny(criterion, " \t") {
		return false
	}
	if _, ok := wordSet[criterion]; ok {
		return true
	}
	if _, ok := stemSet[stem(criterion)]; ok {
		return true
	}
	return false
}

// anchor snaps (coverage, length) onto the four BARS anchors from §4.3:
//
//	0.0 no matches AND length < 20
//	0.3 coverage < 0.33 OR length < 60
//	0.7 0.33 <= coverage < 0.75
//	1.0 coverage >= 0.75 AND length >= 120
func anchor(coverage float64, length, matchedCount int) float64 {
	if matchedCount == 0 && length < 20 {
		return 0.0
	}
	if coverage < 0.33 || length < 60 {
		return 0.3
	}
	if coverage >= 0.75 && length >= 120 {
		return 1.0
	}
	// Covers both the explicit 0.33<=coverage<0.75 anchor and the edge case
	// of high coverage on a short transcript, which falls short of "exceeds"
	// on length alone.
	return 0.7
}
