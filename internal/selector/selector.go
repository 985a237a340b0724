// Package selector implements the Selector (C4): given the current node, a
// score, and the active role profile, decides the next node id per the
// pass/fail/equivalence rules in spec.md §4.4.
package selector

import "github.com/ai-hr/interview-core/internal/model"

// Decision is the outcome of a selection: which edge fired and why, used by
// the orchestrator to decide whether a critical-block failure occurred.
type Decision struct {
	NextNodeID string
	Edge       Edge
	Terminal   bool
}

// Edge names which transition was taken.
type Edge string

const (
	EdgePass       Edge = "pass"
	EdgeFail       Edge = "fail"
	EdgeEquivalent Edge = "equivalent"
)

// Next implements §4.4:
//  1. if next_if_equivalent is set AND the block is non-critical AND
//     score >= thresholds.equivalent -> take the equivalence edge, unless a
//     critical-block fail was already recorded, in which case equivalence
//     is preferred over pass on tie (the tie-break rule).
//  2. else if score >= drill threshold -> next_if_pass
//  3. else -> next_if_fail
//
// priorCriticalFail is true when the session already recorded a
// critical-block failure earlier in the interview; it only affects the
// pass/equivalent tie-break, never whether the fail edge is taken.
func Next(node model.Node, score float64, role model.RoleProfile, priorCriticalFail bool) Decision {
	drillThreshold := role.Thresholds.Drill
	equivalentQualifies := node.NextIfEquivalent != "" &&
		!role.IsCritical(node.Category) &&
		score >= role.Thresholds.Equivalent

	passQualifies := score >= drillThreshold

	var edge Edge
	var next string
	switch {
	case equivalentQualifies && passQualifies:
		// Tie-break: prefer pass unless a critical-block fail was already
		// recorded, in which case prefer equivalent.
		if priorCriticalFail {
			edge, next = EdgeEquivalent, node.NextIfEquivalent
		} else {
			edge, next = EdgePass, node.NextIfPass
		}
	case equivalentQualifies:
		edge, next = EdgeEquivalent, node.NextIfEquivalent
	case passQualifies:
		edge, next = EdgePass, node.NextIfPass
	default:
		edge, next = EdgeFail, node.NextIfFail
	}

	return Decision{NextNodeID: next, Edge: edge, Terminal: next == ""}
}
