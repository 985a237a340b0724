package model

import "fmt"

// Thresholds are the score cutoffs a RoleProfile uses to drive the Selector.
type Thresholds struct {
	Pass         float64 `yaml:"pass_threshold" json:"pass"`
	Drill        float64 `yaml:"drill_threshold" json:"drill"`
	Equivalent   float64 `yaml:"equivalent_threshold" json:"equivalent"`
	CriticalFail float64 `yaml:"critical_fail_threshold" json:"critical_fail"`
}

// RoleProfile maps an interview role onto block weights and thresholds.
type RoleProfile struct {
	ID             string             `yaml:"-" json:"id"`
	BlockWeights   map[string]float64 `yaml:"block_weights" json:"block_weights"`
	Thresholds     Thresholds         `yaml:"-" json:"thresholds"`
	ScenarioID     string             `yaml:"scenario_id,omitempty" json:"scenario_id,omitempty"`
	CriticalBlocks map[string]struct{} `yaml:"-" json:"-"`
}

// IsCritical reports whether a block's failure cannot be compensated by an
// equivalence edge for this role.
func (r RoleProfile) IsCritical(block string) bool {
	if r.CriticalBlocks == nil {
		return false
	}
	_, ok := r.CriticalBlocks[block]
	return ok
}

// Normalize rescales BlockWeights so they sum to 1.0, unless they are
// already within the ±0.01 tolerance the spec allows, in which case the
// values are kept as authored. Called once at load time.
func (r *RoleProfile) Normalize() error {
	if len(r.BlockWeights) == 0 {
		return fmt.Errorf("role profile %q has no block_weights", r.ID)
	}
	var sum float64
	for _, w := range r.BlockWeights {
		if w < 0 {
			return fmt.Errorf("role profile %q has negative block weight", r.ID)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("role profile %q block_weights sum to zero", r.ID)
	}
	if sum >= 0.99 && sum <= 1.01 {
		return nil
	}
	for k, w := range r.BlockWeights {
		r.BlockWeights[k] = w / sum
	}
	return nil
}

// DefaultRoleProfile is returned by the store when a role id is unknown.
func DefaultRoleProfile() RoleProfile {
	return RoleProfile{
		ID:           "default",
		BlockWeights: map[string]float64{"general": 1.0},
		Thresholds: Thresholds{
			Pass:         0.7,
			Drill:        0.7,
			Equivalent:   0.6,
			CriticalFail: 0.2,
		},
	}
}
