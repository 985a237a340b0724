// Package metrics implements the Metrics Recorder (C10): fixed-capacity
// rings of recent per-stage timing samples used to compute latency
// percentiles and SLA compliance. Grounded on internal/cache/memory/lru_ttl.go's
// container/list-plus-mutex shape, repurposed here from an LRU eviction
// policy to one ring per stage (oldest sample evicted once a ring is full,
// regardless of access order).
package metrics

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"github.com/ai-hr/interview-core/internal/model"
)

// DefaultRingSize bounds memory use per stage; older samples are dropped
// once a stage's ring is full.
const DefaultRingSize = 4096

// Stage names match spec.md §3's TurnRecord timing fields (asr_ms, dm_ms,
// llm_ms, tts_ms, total_ms) minus the "_ms" suffix.
const (
	StageASR   = "asr"
	StageDM    = "dm"
	StageLLM   = "llm"
	StageTTS   = "tts"
	StageTotal = "total"
)

// sample is one recorded latency observation for a stage.
type sample struct {
	millis     int64
	ok         bool
	recordedAt time.Time
}

// Recorder accumulates per-stage latency samples and serves windowed
// summaries, per spec.md §4.10's record_latency(stage, ms, ok) /
// summary(window) contract.
type Recorder struct {
	mu       sync.Mutex
	rings    map[string]*list.List
	capacity int
	sla      time.Duration
}

// New builds a Recorder holding up to capacity samples per stage (<=0
// selects DefaultRingSize) and judging total-turn SLA compliance against
// sla (<=0 selects 5s, the default total turn SLA from spec.md §4.8).
func New(capacity int, sla time.Duration) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	if sla <= 0 {
		sla = 5 * time.Second
	}
	return &Recorder{rings: make(map[string]*list.List), capacity: capacity, sla: sla}
}

// RecordLatency stores one latency observation for stage. ok records
// whether that stage completed successfully (as opposed to erroring out or
// falling back), independent of whether it met any SLA.
func (r *Recorder) RecordLatency(stage string, millis int64, ok bool, recordedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ring, exists := r.rings[stage]
	if !exists {
		ring = list.New()
		r.rings[stage] = ring
	}
	ring.PushBack(sample{millis: millis, ok: ok, recordedAt: recordedAt})
	for ring.Len() > r.capacity {
		ring.Remove(ring.Front())
	}
}

// RecordTurn stores a completed turn's stage timings. ok marks whether the
// turn's substantive reply came from the LLM rather than the heuristic
// fallback. Only "total", "llm" and "dm" are recorded: ASR/TTS internals
// are out of this core's scope per spec.md's Non-goals and are never
// independently measured here, so their samples would just be a constant
// zero diluting the percentiles. "dm" is approximated as the turn's own
// overhead outside the LLM call (total_ms - llm_ms), since this
// orchestrator *is* the dialogue manager the original system names.
func (r *Recorder) RecordTurn(t model.StageTimings, ok bool, recordedAt time.Time) {
	r.RecordLatency(StageTotal, t.TotalMillis, ok, recordedAt)
	if t.LLMMillis > 0 {
		r.RecordLatency(StageLLM, t.LLMMillis, ok, recordedAt)
	}
	dm := t.TotalMillis - t.LLMMillis
	if dm < 0 {
		dm = 0
	}
	r.RecordLatency(StageDM, dm, true, recordedAt)
}

// StageSummary is the aggregate report for a single stage over a time
// window.
type StageSummary struct {
	Count     int     `json:"count"`
	OKRate    float64 `json:"ok_rate"`
	P50Millis int64   `json:"p50_ms"`
	P95Millis int64   `json:"p95_ms"`
	P99Millis int64   `json:"p99_ms"`
}

// Summary is the aggregate report across all stages over a time window.
type Summary struct {
	Stages        map[string]StageSummary `json:"stages"`
	SLACompliance float64                 `json:"sla_compliance"`
}

// Summary computes per-stage percentiles and total-turn SLA compliance over
// samples recorded within window of now. window<=0 covers the whole ring.
func (r *Recorder) Summary(now time.Time, window time.Duration) Summary {
	r.mu.Lock()
	stageValues := make(map[string][]int64, len(r.rings))
	stageOK := make(map[string]int, len(r.rings))
	for stage, ring := range r.rings {
		for e := ring.Front(); e != nil; e = e.Next() {
			s := e.Value.(sample)
			if window > 0 && now.Sub(s.recordedAt) > window {
				continue
			}
			stageValues[stage] = append(stageValues[stage], s.millis)
			if s.ok {
				stageOK[stage]++
			}
		}
	}
	r.mu.Unlock()

	stages := make(map[string]StageSummary, len(stageValues))
	for stage, values := range stageValues {
		sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
		stages[stage] = StageSummary{
			Count:     len(values),
			OKRate:    float64(stageOK[stage]) / float64(len(values)),
			P50Millis: percentile(values, 0.50),
			P95Millis: percentile(values, 0.95),
			P99Millis: percentile(values, 0.99),
		}
	}

	var slaCompliance float64
	if total, ok := stages[StageTotal]; ok && total.Count > 0 {
		var withinSLA int
		for _, ms := range stageValues[StageTotal] {
			if time.Duration(ms)*time.Millisecond <= r.sla {
				withinSLA++
			}
		}
		slaCompliance = float64(withinSLA) / float64(total.Count)
	}

	return Summary{Stages: stages, SLACompliance: slaCompliance}
}

// percentile expects values sorted ascending.
func percentile(values []int64, p float64) int64 {
	if len(values) == 0 {
		return 0
	}
	idx := int(p * float64(len(values)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
