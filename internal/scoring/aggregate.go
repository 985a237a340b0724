package scoring

import (
	"sort"

	"github.com/ai-hr/interview-core/internal/model"
)

// ScoreBlock computes the weighted mean of a block's answers, normalized by
// that block's total weight. Missing block -> 0, per §4.3. Monotone
// non-decreasing in any single answer's score (invariant 5): raising one
// a.Score strictly increases weighted_sum while total_weight is unchanged,
// so the quotient cannot decrease.
func ScoreBlock(answers []model.QAnswer, block string) float64 {
	var weightedSum, totalWeight float64
	for _, a := range answers {
		if a.Block != block {
			continue
		}
		weightedSum += a.Score * a.Weight
		totalWeight += a.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return clamp01(weightedSum / totalWeight)
}

// ScoreOverall computes the block-weighted overall score, ignoring blocks
// absent from blockWeights.
func ScoreOverall(blockScores map[string]float64, blockWeights map[string]float64) float64 {
	var weightedSum, totalWeight float64
	for block, weight := range blockWeights {
		weightedSum += blockScores[block] * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return clamp01(weightedSum / totalWeight)
}

// MatchScore implements §4.3's candidate/requirement match formula:
//
//	match = clamp( Σ min(candidate[b], required[b]) * w[b] / Σ required[b] * w[b], 0, 1 )
func MatchScore(candidate, required, weights map[string]float64) float64 {
	var num, den float64
	for block, w := range weights {
		c := candidate[block]
		r := required[block]
		m := c
		if r < m {
			m = r
		}
		num += m * w
		den += r * w
	}
	if den == 0 {
		return 0
	}
	return clamp01(num / den)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// OverallLevel buckets an overall score per §4.3.
func OverallLevel(score float64) string {
	switch {
	case score < 0.3:
		return "Below"
	case score < 0.7:
		return "Approaching"
	case score < 0.85:
		return "Meets"
	default:
		return "Exceeds"
	}
}

// Analyze produces the full §4.3 performance report: block scores, overall
// score/level/percentage, strengths (blocks scoring >= 0.7) and weaknesses
// (< 0.7).
func Analyze(answers []model.QAnswer, blockWeights map[string]float64) model.PerformanceAnalysis {
	blocks := map[string]struct{}{}
	for _, a := range answers {
		blocks[a.Block] = struct{}{}
	}
	for b := range blockWeights {
		blocks[b] = struct{}{}
	}

	blockScores := make(map[string]float64, len(blocks))
	for b := range blocks {
		blockScores[b] = ScoreBlock(answers, b)
	}

	overall := ScoreOverall(blockScores, blockWeights)

	var strengths, weaknesses []string
	for b, sc := range blockScores {
		if sc >= 0.7 {
			strengths = append(strengths, b)
		} else {
			weaknesses = append(weaknesses, b)
		}
	}
	sort.Strings(strengths)
	sort.Strings(weaknesses)

	return model.PerformanceAnalysis{
		BlockScores:       blockScores,
		OverallScore:      overall,
		OverallPercentage: overall * 100,
		OverallLevel:      OverallLevel(overall),
		Strengths:         strengths,
		Weaknesses:        weaknesses,
	}
}
