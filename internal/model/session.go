package model

import "time"

// HistoryEntry records one committed turn's contribution to a session's
// transcript history.
type HistoryEntry struct {
	NodeID     string    `json:"node_id"`
	Transcript string    `json:"transcript"`
	Score      float64   `json:"score"`
	Block      string    `json:"block"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionState is the mutable, per-candidate interview state. It is owned
// exclusively by the session's coordinator (internal/session.Manager); every
// field here is read under that owner's lock.
type SessionState struct {
	SessionID     string             `json:"session_id"`
	CandidateID   string             `json:"candidate_id"`
	ScenarioID    string             `json:"scenario_id"`
	RoleProfileID string             `json:"role_profile_id"`
	CurrentNodeID string             `json:"current_node_id"`
	History       []HistoryEntry     `json:"history"`
	Answers       []QAnswer          `json:"-"`
	BlockScores   map[string]float64 `json:"block_scores"`
	OverallScore  float64            `json:"overall_score"`
	RedFlags      []string           `json:"red_flags"`
	TurnSeq       uint64             `json:"turn_seq"`
	CriticalFail  bool               `json:"critical_fail"`
	CreatedAt     time.Time          `json:"created_at"`
	LastTurnAt    time.Time          `json:"last_turn_at"`
}

// Ended reports whether the interview has reached a terminal state: either
// the scenario ran out of edges (CurrentNodeID == "") or a critical-block
// failure fired.
func (s SessionState) Ended() bool {
	return s.CurrentNodeID == "" || s.CriticalFail
}

// StageTimings captures per-stage latency for a single turn.
type StageTimings struct {
	ASRMillis   int64 `json:"asr_ms"`
	DMMillis    int64 `json:"dm_ms"`
	LLMMillis   int64 `json:"llm_ms"`
	TTSMillis   int64 `json:"tts_ms"`
	TotalMillis int64 `json:"total_ms"`
}

// Source records whether a turn's substantive reply came from the LLM or
// the heuristic fallback.
type Source string

const (
	SourceLLM       Source = "llm"
	SourceHeuristic Source = "heuristic"
)

// TurnRecord is the append-only artifact of one completed turn.
type TurnRecord struct {
	TurnSeq         uint64        `json:"turn_seq"`
	SessionID       string        `json:"session_id"`
	NodeID          string        `json:"node_id"`
	Transcript      string        `json:"transcript"`
	BackchannelText string        `json:"backchannel_text,omitempty"`
	ReplyText       string        `json:"reply_text"`
	NextNodeID      string        `json:"next_node_id,omitempty"`
	ScoringUpdate   ScoringUpdate `json:"scoring_update"`
	RedFlags        []string      `json:"red_flags"`
	Source          Source        `json:"source"`
	Timings         StageTimings  `json:"timings"`
}
