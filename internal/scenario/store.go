// Package scenario implements the Scenario Store (C1): loading, validating
// and persisting interview scenarios, and supplying node lookups to the
// rest of the core. Storage follows the dual file/Postgres shape used
// elsewhere in this codebase's data stores: an in-memory snapshot fronts
// reads, writes go through a single mutex, and file writes are atomic
// (write-temp + rename).
package scenario

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ai-hr/interview-core/internal/model"
)

// ValidationError is returned by Load when a scenario fails structural
// validation; Reasons lists every violation found, not just the first.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scenario invalid: %v", e.Reasons)
}

// Store owns the process-wide read-mostly Scenario snapshot. Readers take
// no lock (RLock only); writers exchange the map under a single mutex.
type Store struct {
	dir string
	db  *sql.DB

	mu   sync.RWMutex
	byID map[string]model.Scenario

	cache *lru.Cache[string, model.Scenario]

	// AllowFallback controls whether Get synthesizes a demo scenario for an
	// unknown id (§4.1). Defaults to true; callers doing strict lookups
	// (e.g. the HTTP GET /scenario/{id} handler) pass AllowFallback=false
	// semantics by calling GetStrict instead.
	AllowFallback bool
}

// New creates a file-backed Store rooted at dir. Postgres-backed storage is
// selected instead via NewFromEnv when SCENARIO_STORE_PG_DSN is set.
func New(dir string) *Store {
	return &Store{
		dir:           dir,
		byID:          make(map[string]model.Scenario),
		AllowFallback: true,
	}
}

// NewPostgres opens a Postgres-backed Store. Scenario bodies are stored as
// a single JSON blob per row in a `scenarios(id text primary key, body
// jsonb)` table; callers are expected to have that table migrated already
// (schema migration is out of scope for the core).
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, model.Scenario](256)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, byID: make(map[string]model.Scenario), cache: cache, AllowFallback: true}, nil
}

// NewFromEnv chooses Postgres when dsn is non-empty and reachable, falling
// back to the file-backed store otherwise.
func NewFromEnv(dir, dsn string) *Store {
	if dsn == "" {
		return New(dir)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(dir)
	}
	return s
}

// Load validates and persists a scenario, replacing any prior value for the
// same id atomically. It never partially applies a scenario: an invalid
// scenario is rejected before storage is touched.
func (s *Store) Load(ctx context.Context, sc model.Scenario) error {
	if sc.SchemaVersion == "" {
		sc.SchemaVersion = model.SchemaVersion
	}
	if reasons := sc.Validate(); len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}

	if s.db != nil {
		return s.loadDB(ctx, sc)
	}
	return s.loadFile(sc)
}

func (s *Store) loadFile(sc model.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		if err := writeScenarioFile(s.dir, sc); err != nil {
			return err
		}
	}
	s.byID[sc.ID] = sc
	return nil
}

func (s *Store) loadDB(ctx context.Context, sc model.Scenario) error {
	body, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenarios (id, body) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body
	`, sc.ID, body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.byID[sc.ID] = sc
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.Add(sc.ID, sc)
	}
	return nil
}

// writeScenarioFile persists sc to <dir>/<id>.json using write-temp +
// rename so a crash mid-write never leaves a torn scenario file behind.
func writeScenarioFile(dir string, sc model.Scenario) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	final := filepath.Join(dir, sc.ID+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}

// Get returns the scenario for id. If the id is unknown and AllowFallback
// is set, a three-node demo chain is synthesized (§4.1) rather than
// failing; this is meant for demos, not the strict HTTP GET /scenario/{id}
// surface, which calls GetStrict.
func (s *Store) Get(ctx context.Context, id string) model.Scenario {
	if sc, ok := s.GetStrict(ctx, id); ok {
		return sc
	}
	if s.AllowFallback {
		return fallbackScenario(id)
	}
	return model.Scenario{}
}

// GetStrict returns the scenario for id and whether it was found, without
// ever synthesizing a fallback.
func (s *Store) GetStrict(ctx context.Context, id string) (model.Scenario, bool) {
	if s.db != nil {
		return s.getDB(ctx, id)
	}
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.byID[id]
	return sc, ok
}

func (s *Store) getDB(ctx context.Context, id string) (model.Scenario, bool) {
	if s.cache != nil {
		if sc, ok := s.cache.Get(id); ok {
			return sc, true
		}
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM scenarios WHERE id = $1`, id).Scan(&body)
	if err != nil {
		return model.Scenario{}, false
	}
	var sc model.Scenario
	if err := json.Unmarshal(body, &sc); err != nil {
		return model.Scenario{}, false
	}
	if s.cache != nil {
		s.cache.Add(id, sc)
	}
	return sc, true
}

// List returns every known scenario id.
func (s *Store) List(ctx context.Context) []string {
	if s.db != nil {
		return s.listDB(ctx)
	}
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) listDB(ctx context.Context) []string {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM scenarios`)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if rows.Scan(&id) == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Node looks up a node within a scenario, returning model.ErrNodeNotFound
// (wrapped) if the scenario or node is missing.
func (s *Store) Node(ctx context.Context, scenarioID, nodeID string) (model.Node, error) {
	sc, ok := s.GetStrict(ctx, scenarioID)
	if !ok {
		return model.Node{}, model.ErrScenarioNotFound
	}
	n, ok := sc.Node(nodeID)
	if !ok {
		return model.Node{}, model.ErrNodeNotFound
	}
	return n, nil
}

var loadOnce sync.Map // dir -> *sync.Once, so multiple Stores over the same dir don't reload repeatedly

func (s *Store) ensureLoadedFile() {
	if s.db != nil || s.dir == "" {
		return
	}
	onceAny, _ := loadOnce.LoadOrStore(s.dir, &sync.Once{})
	once := onceAny.(*sync.Once)
	once.Do(func() {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}
			data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
			if err != nil {
				continue
			}
			var sc model.Scenario
			if err := json.Unmarshal(data, &sc); err != nil {
				continue
			}
			if len(sc.Validate()) == 0 {
				s.byID[sc.ID] = sc
			}
		}
	})
}

// fallbackScenario synthesizes the L1/L2/L3 demo chain described in §4.1,
// so a lookup miss never hard-fails a turn.
func fallbackScenario(id string) model.Scenario {
	category := id
	if category == "" {
		category = "general"
	}
	mk := func(order int, suffix, question, pass, fail string) model.Node {
		return model.Node{
			ID:              fmt.Sprintf("%s_%s", id, suffix),
			Category:        category,
			Order:           order,
			Question:        question,
			Weight:          1.0,
			SuccessCriteria: []string{category},
			NextIfPass:      pass,
			NextIfFail:      fail,
		}
	}
	l3 := mk(3, "l3_advanced", fmt.Sprintf("Tell me about advanced %s topics.", category), "", "")
	l2 := mk(2, "l2_basics", fmt.Sprintf("Tell me about %s basics.", category), l3.ID, "")
	l1 := mk(1, "l1_intro", fmt.Sprintf("Tell me about your experience with %s.", category), l3.ID, l2.ID)
	return model.Scenario{
		ID:            id,
		SchemaVersion: model.SchemaVersion,
		Policy:        model.Policy{DrillThreshold: 0.7},
		StartID:       l1.ID,
		Nodes:         []model.Node{l1, l2, l3},
	}
}
