// Package behavior implements a minimal Behavior Incident Monitor: a
// deterministic, pattern-based toxicity screen over the candidate's own
// transcript, feeding the orchestrator's red_flags channel and, at the
// critical threshold, its critical-fail machinery. Grounded on
// original_source/ai-hr/services/toxicity/main.py's ToxicityAnalyzer
// pattern-fallback path (the HF-API path calls an external inference
// service and is out of this core's scope) and
// services/behavior/schema.py's BehaviorPolicy action ladder
// (continue/micro_backchannel/pause_offer/warning/end).
package behavior

import "regexp"

// Action levels, mirroring BehaviorPolicy.severity from the original
// schema, collapsed to the three that map onto an orchestrator decision:
// nothing happens, a flag is raised, or the interview ends.
const (
	ActionNone     = "none"
	ActionWarn     = "warn"
	ActionCritical = "critical"
)

// Default thresholds, from BEHAVIOR_TOXICITY_WARN / BEHAVIOR_TOXICITY_HI
// in the original toxicity service.
const (
	DefaultWarnThreshold = 0.75
	DefaultHiThreshold   = 0.90
)

type category struct {
	label   string
	pattern *regexp.Regexp
}

// Analyzer scores a transcript for toxic/abusive content using the same
// word-list-driven fallback the original service used when no external
// model was configured. Each category match adds 0.2 to the score,
// capped at 1.0.
type Analyzer struct {
	categories    []category
	warnThreshold float64
	hiThreshold   float64
}

// New builds an Analyzer. warnThreshold/hiThreshold <=0 select the
// defaults; callers wire these from BEHAVIOR_TOXICITY_WARN/HI (spec.md
// §6 additions).
func New(warnThreshold, hiThreshold float64) *Analyzer {
	if warnThreshold <= 0 {
		warnThreshold = DefaultWarnThreshold
	}
	if hiThreshold <= 0 {
		hiThreshold = DefaultHiThreshold
	}
	return &Analyzer{
		categories: []category{
			{"insult", regexp.MustCompile(`(?i)\b(идиот\w*|дурак\w*|тупо\w*|дебил\w*|moron|idiot|stupid)\b`)},
			{"profanity", regexp.MustCompile(`(?i)\b(блять|сука|пизда|хуй|fuck\w*|shit)\b`)},
			{"threat", regexp.MustCompile(`(?i)\b(убить|убийство|kill you|i will hurt)\b`)},
			{"severe_toxicity", regexp.MustCompile(`(?i)\b(ненавижу|ненависть|hate you)\b`)},
			{"identity_attack", regexp.MustCompile(`(?i)\b(уйди|пошёл|вали|get lost)\b`)},
		},
		warnThreshold: warnThreshold,
		hiThreshold:   hiThreshold,
	}
}

// Score returns a toxicity score in [0,1] and the categories that fired.
func (a *Analyzer) Score(text string) (float64, []string) {
	var score float64
	var labels []string
	for _, c := range a.categories {
		if c.pattern.MatchString(text) {
			score += 0.2
			labels = append(labels, c.label)
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, labels
}

// ActionLevel maps a toxicity score onto the policy ladder's three
// orchestrator-relevant tiers.
func (a *Analyzer) ActionLevel(score float64) string {
	switch {
	case score >= a.hiThreshold:
		return ActionCritical
	case score >= a.warnThreshold:
		return ActionWarn
	default:
		return ActionNone
	}
}

// Phrase returns the canned intervention line for an action level,
// matching the tone of BehaviorPolicy's warning/end examples.
func Phrase(actionLevel string) string {
	switch actionLevel {
	case ActionWarn:
		return "Давайте соблюдаем деловой тон. Если продолжится, я буду вынужден завершить интервью."
	case ActionCritical:
		return "Вынужден завершить интервью из-за нарушения делового тона. Мы свяжемся с вами позже."
	default:
		return ""
	}
}
