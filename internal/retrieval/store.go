// Package retrieval implements the Retrieval Adapter (C6): an in-process
// cosine-similarity search over a candidate's embedded resume chunks. The
// core treats the embedder as an external, read-only dependency and never
// lets a retrieval failure fail a turn — errors and timeouts collapse to an
// empty result set. Grounded on the teacher's LRU cache shape
// (internal/cache/memory/lru_ttl.go), using the pack's
// hashicorp/golang-lru/v2 for the index cache the way the Scenario Store
// does.
package retrieval

import (
	"context"
	"math"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ai-hr/interview-core/internal/model"
)

// DefaultTimeout is the §4.6 default: 800ms.
const DefaultTimeout = 800 * time.Millisecond

// Match is one search hit.
type Match struct {
	CVID      string  `json:"cv_id"`
	ChunkText string  `json:"chunk_text"`
	Score     float64 `json:"score"`
}

// Embedder turns free text into the same vector space the indexed CVChunks
// live in. Implementations call out to an external embedding service; the
// Store never assumes anything about how the vector was produced.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Store indexes CVChunks per candidate and searches them by cosine
// similarity against an embedded query.
type Store struct {
	embedder Embedder
	index    *lru.Cache[string, []model.CVChunk]
	timeout  time.Duration
}

// New builds a Store backed by embedder, caching up to maxCandidates
// candidates' chunk sets in memory at once. timeout<=0 selects
// DefaultTimeout; callers wire this from RETRIEVAL_TIMEOUT_MS (spec.md §6)
// rather than hardcoding it.
func New(embedder Embedder, maxCandidates int, timeout time.Duration) (*Store, error) {
	if maxCandidates <= 0 {
		maxCandidates = 256
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cache, err := lru.New[string, []model.CVChunk](maxCandidates)
	if err != nil {
		return nil, err
	}
	return &Store{embedder: embedder, index: cache, timeout: timeout}, nil
}

// Index replaces the chunk set for a candidate. Called once per resume
// upload/reprocess; not on the turn hot path.
func (s *Store) Index(candidateID string, chunks []model.CVChunk) {
	s.index.Add(candidateID, chunks)
}

// Search embeds query and returns the topK chunks for candidateID whose
// cosine similarity exceeds threshold, most similar first. On any error —
// embedder failure, missing index, or a deadline (default 800ms) — it
// returns an empty slice and a nil error: retrieval never fails a turn.
func (s *Store) Search(ctx context.Context, candidateID, query string, topK int, threshold float64) []Match {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	chunks, ok := s.index.Get(candidateID)
	if !ok || len(chunks) == 0 {
		return nil
	}

	type result struct {
		matches []Match
		err     error
	}
	done := make(chan result, 1)
	go func() {
		queryVec, err := s.embedder.Embed(ctx, query)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{matches: rank(chunks, queryVec, topK, threshold)}
	}()

	select {
	case <-ctx.Done():
		return nil
	case r := <-done:
		if r.err != nil {
			return nil
		}
		return r.matches
	}
}

func rank(chunks []model.CVChunk, query []float64, topK int, threshold float64) []Match {
	matches := make([]Match, 0, len(chunks))
	for _, c := range chunks {
		score := cosineSimilarity(c.Embedding, query)
		if score < threshold {
			continue
		}
		matches = append(matches, Match{CVID: c.CVID, ChunkText: c.ChunkText, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
