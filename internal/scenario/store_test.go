package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ai-hr/interview-core/internal/model"
	"github.com/ai-hr/interview-core/internal/tester"
)

func sampleScenario(id string) model.Scenario {
	return model.Scenario{
		ID:            id,
		SchemaVersion: model.SchemaVersion,
		Policy:        model.Policy{DrillThreshold: 0.7},
		StartID:       "n1",
		Nodes: []model.Node{
			{ID: "n1", Category: "python_backend", Order: 1, Question: "q1", Weight: 1, SuccessCriteria: []string{"python"}, NextIfPass: "n3", NextIfFail: "n2"},
			{ID: "n2", Category: "python_backend", Order: 2, Question: "q2", Weight: 1, SuccessCriteria: []string{"python"}},
			{ID: "n3", Category: "python_backend", Order: 3, Question: "q3", Weight: 1, SuccessCriteria: []string{"python"}},
		},
	}
}

func TestLoadThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "scenarios"))
	sc := sampleScenario("python_backend")

	tester.NoErr(t, s.Load(context.Background(), sc))

	got, ok := s.GetStrict(context.Background(), "python_backend")
	tester.True(t, ok, "expected scenario to be found")
	tester.Eq(t, got.ID, sc.ID)
	tester.Eq(t, len(got.Nodes), len(sc.Nodes))
}

func TestValidateRejectsSelfLoop(t *testing.T) {
	sc := sampleScenario("bad")
	sc.Nodes[0].NextIfPass = sc.Nodes[0].ID
	reasons := sc.Validate()
	tester.True(t, len(reasons) > 0, "expected validation failure for self loop")
}

func TestValidateRejectsUnresolvedTransition(t *testing.T) {
	sc := sampleScenario("bad2")
	sc.Nodes[0].NextIfFail = "does-not-exist"
	reasons := sc.Validate()
	tester.True(t, len(reasons) > 0, "expected validation failure for dangling edge")
}

func TestGetFallbackSynthesizesThreeNodeChain(t *testing.T) {
	s := New(t.TempDir())
	sc := s.Get(context.Background(), "unknown_role")
	tester.Eq(t, len(sc.Nodes), 3)
	tester.Eq(t, sc.StartID, sc.Nodes[0].ID)
}

func TestGetStrictDoesNotFallback(t *testing.T) {
	s := New(t.TempDir())
	_, ok := s.GetStrict(context.Background(), "unknown_role")
	tester.False(t, ok, "GetStrict must not synthesize a fallback")
}

func TestLoadPersistsAtomicallyAndReloads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	s1 := New(dir)
	tester.NoErr(t, s1.Load(context.Background(), sampleScenario("persisted")))

	s2 := New(dir)
	got, ok := s2.GetStrict(context.Background(), "persisted")
	tester.True(t, ok, "expected scenario to survive reload from disk")
	tester.Eq(t, got.ID, "persisted")
}
