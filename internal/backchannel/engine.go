// Package backchannel implements the Backchannel Engine (C7): short filler
// utterances ("mm-hmm", "I see") picked deterministically from a per-role
// tone table, rate limited per session. Grounded on the roleprofile.Store's
// YAML-document-plus-atomic-snapshot shape (internal/roleprofile/store.go),
// since both are process-wide read-mostly config loaded at startup.
package backchannel

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Tone partitions a role's utterance table.
type Tone string

const (
	TonePositive Tone = "generic_positive"
	ToneNeutral  Tone = "generic_neutral"
	ToneNegative Tone = "generic_negative"
)

// DefaultMinInterval is the §4.7 default: 2000ms between emits per session.
const DefaultMinInterval = 2000 * time.Millisecond

// Table is one role's backchannel configuration.
type Table struct {
	PositiveThreshold float64
	NegativeThreshold float64
	Utterances        map[Tone][]string
}

type tableDocument struct {
	Roles map[string]struct {
		PositiveThreshold float64             `yaml:"positive_threshold"`
		NegativeThreshold float64             `yaml:"negative_threshold"`
		Utterances        map[string][]string `yaml:"utterances"`
	} `yaml:"roles"`
}

// Engine picks utterances per §4.7's contract and rate limits per session.
type Engine struct {
	tables      map[string]Table
	minInterval time.Duration

	mu        sync.Mutex
	lastEmit map[string]time.Time
	counters map[string]int
}

// LoadBytes parses a YAML document of per-role tone tables:
//
//	roles:
//	  backend_engineer:
//	    positive_threshold: 0.7
//	    negative_threshold: 0.3
//	    utterances:
//	      generic_positive: ["Nice.", "Great, go on."]
//	      generic_neutral: ["I see.", "Mm-hmm."]
//	      generic_negative: ["Okay.", "Understood."]
//
// minInterval<=0 selects DefaultMinInterval; callers wire this from
// BACKCHANNEL_MIN_INTERVAL_MS (spec.md §6) rather than hardcoding it.
func LoadBytes(data []byte, minInterval time.Duration) (*Engine, error) {
	var doc tableDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse backchannel table: %w", err)
	}
	tables := make(map[string]Table, len(doc.Roles))
	for role, t := range doc.Roles {
		utterances := make(map[Tone][]string, len(t.Utterances))
		for k, v := range t.Utterances {
			utterances[Tone(k)] = v
		}
		tables[role] = Table{
			PositiveThreshold: t.PositiveThreshold,
			NegativeThreshold: t.NegativeThreshold,
			Utterances:        utterances,
		}
	}
	return New(tables, minInterval), nil
}

// New builds an Engine directly from parsed tables, used by tests and by
// LoadBytes.
func New(tables map[string]Table, minInterval time.Duration) *Engine {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Engine{
		tables:      tables,
		minInterval: minInterval,
		lastEmit:    make(map[string]time.Time),
		counters:    make(map[string]int),
	}
}

// Signal is the available evidence for choosing a tone: either a live
// partial-transcript score, or only a length hint when no score is
// available yet, per §4.7 ("if the available signal is only a partial
// transcript length, use neutral").
type Signal struct {
	PartialLen int
	Score      *float64
}

// Pick returns the next utterance for sessionID under role, or ("", false)
// if the rate limit blocks emission. now is passed explicitly so callers
// (and tests) control time.
func (e *Engine) Pick(sessionID, role string, sig Signal, now time.Time) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if last, ok := e.lastEmit[sessionID]; ok && now.Sub(last) < e.minInterval {
		return "", false
	}

	table, ok := e.tables[role]
	if !ok {
		return "", false
	}

	tone := e.tone(table, sig)
	options := table.Utterances[tone]
	if len(options) == 0 {
		return "", false
	}

	idx := e.counters[sessionID] % len(options)
	e.counters[sessionID]++
	e.lastEmit[sessionID] = now
	return options[idx], true
}

func (e *Engine) tone(table Table, sig Signal) Tone {
	if sig.Score == nil {
		return ToneNeutral
	}
	score := *sig.Score
	switch {
	case score >= table.PositiveThreshold:
		return TonePositive
	case score <= table.NegativeThreshold:
		return ToneNegative
	default:
		return ToneNeutral
	}
}
