package model

// QAnswer is one scored answer, attributable to a block for aggregation.
type QAnswer struct {
	QuestionID string  `json:"question_id"`
	Block      string  `json:"block"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
}

// ScoringUpdate is the delta a single turn applies to a session's scores.
type ScoringUpdate struct {
	Block string  `json:"block"`
	Delta float64 `json:"delta"`
	Score float64 `json:"score"`
}

// PerformanceAnalysis is the §4.3 aggregate report over a full answer set.
type PerformanceAnalysis struct {
	BlockScores       map[string]float64 `json:"block_scores"`
	OverallScore      float64            `json:"overall_score"`
	OverallPercentage float64            `json:"overall_percentage"`
	OverallLevel      string             `json:"overall_level"`
	Strengths         []string           `json:"strengths"`
	Weaknesses        []string           `json:"weaknesses"`
}
