// Package roleprofile implements the Role Profile Store (C2): role-level
// block weights and scoring thresholds, loaded once from a YAML document at
// startup and held as a read-only, atomically-swapped snapshot so readers
// never take a lock.
package roleprofile

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/ai-hr/interview-core/internal/model"
)

// document mirrors the §6 role profile file format:
//
//	profiles:
//	  <id>:
//	    block_weights: {<block>: <weight>}
//	    drill_threshold: 0.7
//	    pass_threshold: 0.7
//	    critical_blocks: [...]
type document struct {
	Profiles map[string]profileEntry `yaml:"profiles"`
}

type profileEntry struct {
	BlockWeights        map[string]float64 `yaml:"block_weights"`
	DrillThreshold      float64            `yaml:"drill_threshold"`
	PassThreshold       float64            `yaml:"pass_threshold"`
	EquivalentThreshold float64            `yaml:"equivalent_threshold"`
	CriticalFailThresh  float64            `yaml:"critical_fail_threshold"`
	ScenarioID          string             `yaml:"scenario_id"`
	CriticalBlocks      []string           `yaml:"critical_blocks"`
}

type snapshot struct {
	byID map[string]model.RoleProfile
}

// Store holds the process-wide RoleProfile snapshot.
type Store struct {
	snap atomic.Pointer[snapshot]
}

// New returns an empty Store; callers must call LoadFile or LoadBytes
// before Get returns anything but the default profile.
func New() *Store {
	s := &Store{}
	s.snap.Store(&snapshot{byID: map[string]model.RoleProfile{}})
	return s
}

// LoadFile parses path as the §6 YAML document and atomically replaces the
// current snapshot. A parse or normalization failure leaves the previous
// snapshot untouched.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.LoadBytes(data)
}

// LoadBytes parses raw YAML bytes and swaps the snapshot.
func (s *Store) LoadBytes(data []byte) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("role profile document: %w", err)
	}

	byID := make(map[string]model.RoleProfile, len(doc.Profiles))
	for id, e := range doc.Profiles {
		rp := model.RoleProfile{
			ID:           id,
			BlockWeights: cloneWeights(e.BlockWeights),
			ScenarioID:   e.ScenarioID,
			Thresholds: model.Thresholds{
				Pass:         orDefault(e.PassThreshold, 0.7),
				Drill:        orDefault(e.DrillThreshold, 0.7),
				Equivalent:   orDefault(e.EquivalentThreshold, 0.6),
				CriticalFail: orDefault(e.CriticalFailThresh, 0.2),
			},
		}
		if len(e.CriticalBlocks) > 0 {
			rp.CriticalBlocks = make(map[string]struct{}, len(e.CriticalBlocks))
			for _, b := range e.CriticalBlocks {
				rp.CriticalBlocks[b] = struct{}{}
			}
		}
		if err := rp.Normalize(); err != nil {
			return fmt.Errorf("role profile %q: %w", id, err)
		}
		byID[id] = rp
	}

	s.snap.Store(&snapshot{byID: byID})
	return nil
}

func cloneWeights(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

// Get returns the role profile for id, or the process default if unknown.
func (s *Store) Get(id string) model.RoleProfile {
	snap := s.snap.Load()
	if snap != nil {
		if rp, ok := snap.byID[id]; ok {
			return rp
		}
	}
	return s.Default()
}

// Default returns the fallback profile used when a role id is unknown.
func (s *Store) Default() model.RoleProfile {
	return model.DefaultRoleProfile()
}
