package metrics

import (
	"testing"
	"time"

	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/tester"
)

func TestSummaryComputesPercentilesAndComplianceForTotalStage(t *testing.T) {
	r := New(100, 5*time.Second)
	now := time.Now()
	latencies := []int64{100, 200, 300, 400, 6000}
	for _, ms := range latencies {
		r.RecordLatency(StageTotal, ms, true, now)
	}
	summary := r.Summary(now, 0)
	total := summary.Stages[StageTotal]
	tester.Eq(t, total.Count, 5)
	tester.True(t, summary.SLACompliance < 1.0, "expected the 6s sample to violate the 5s SLA")
	tester.Eq(t, summary.SLACompliance, 0.8)
}

func TestSummaryExcludesSamplesOutsideWindow(t *testing.T) {
	r := New(100, 5*time.Second)
	now := time.Now()
	r.RecordLatency(StageTotal, 100, true, now.Add(-time.Hour))
	r.RecordLatency(StageTotal, 200, true, now)
	summary := r.Summary(now, time.Minute)
	total := summary.Stages[StageTotal]
	tester.Eq(t, total.Count, 1)
	tester.Eq(t, total.P50Millis, int64(200))
}

func TestRingEvictsOldestBeyondCapacity(t *testing.T) {
	r := New(3, 5*time.Second)
	now := time.Now()
	for i := int64(1); i <= 5; i++ {
		r.RecordLatency(StageTotal, i*100, true, now)
	}
	summary := r.Summary(now, 0)
	total := summary.Stages[StageTotal]
	tester.Eq(t, total.Count, 3)
	tester.Eq(t, total.P50Millis, int64(400))
}

func TestSummaryEmptyRingReturnsZeroValue(t *testing.T) {
	r := New(10, 5*time.Second)
	summary := r.Summary(time.Now(), 0)
	tester.Eq(t, len(summary.Stages), 0)
	tester.Eq(t, summary.SLACompliance, 0.0)
}

func TestSummaryTracksOKRatePerStage(t *testing.T) {
	r := New(10, 5*time.Second)
	now := time.Now()
	r.RecordLatency(StageLLM, 50, true, now)
	r.RecordLatency(StageLLM, 60, false, now)
	summary := r.Summary(now, 0)
	llm := summary.Stages[StageLLM]
	tester.Eq(t, llm.Count, 2)
	tester.Eq(t, llm.OKRate, 0.5)
}

func TestRecordTurnSplitsTotalLLMAndDMStages(t *testing.T) {
	r := New(10, 5*time.Second)
	now := time.Now()
	r.RecordTurn(model.StageTimings{LLMMillis: 300, TotalMillis: 500}, true, now)

	summary := r.Summary(now, 0)
	tester.Eq(t, summary.Stages[StageTotal].P50Millis, int64(500))
	tester.Eq(t, summary.Stages[StageLLM].P50Millis, int64(300))
	tester.Eq(t, summary.Stages[StageDM].P50Millis, int64(200))
	_, hasASR := summary.Stages[StageASR]
	tester.True(t, !hasASR, "expected no asr stage samples: ASR internals are out of core scope")
}
