// Package app wires every interview-core component into a running process,
// grounded on internal/gateway/app's config->stores->services->server shape.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ai-hr/interview-core/internal/backchannel"
	"github.com/ai-hr/interview-core/internal/behavior"
	"github.com/ai-hr/interview-core/internal/config"
	"github.com/ai-hr/interview-core/internal/gatewayhttp"
	"github.com/ai-hr/interview-core/internal/llm"
	"github.com/ai-hr/interview-core/internal/llmclient"
	"github.com/ai-hr/interview-core/internal/metrics"
	"github.com/ai-hr/interview-core/internal/retrieval"
	"github.com/ai-hr/interview-core/internal/roleprofile"
	"github.com/ai-hr/interview-core/internal/scenario"
	"github.com/ai-hr/interview-core/internal/scoring"
	"github.com/ai-hr/interview-core/internal/session"
	"github.com/ai-hr/interview-core/internal/turn"
)

// App owns every long-lived component of the orchestrator process.
type App struct {
	server *gatewayhttp.Server
}

// New loads configuration and wires the full dependency graph.
func New() (*App, error) {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	scenarios := scenario.NewFromEnv(cfg.ScenarioDir, cfg.ScenarioStorePGDSN)

	roles := roleprofile.New()
	if err := roles.LoadFile(cfg.RoleProfilePath); err != nil {
		log.Printf("role profiles: %v (continuing with an empty store)", err)
	}

	backchannelEngine, err := loadBackchannel(cfg.BackchannelTablePath, cfg.BackchannelMinInterval)
	if err != nil {
		log.Printf("backchannel table: %v (continuing with a table-less engine)", err)
		backchannelEngine = backchannel.New(nil, cfg.BackchannelMinInterval)
	}

	templates, err := loadTemplates(cfg.TemplateLibraryPath)
	if err != nil {
		log.Printf("reply templates: %v (falling back to the built-in default library)", err)
		templates = llm.DefaultTemplateLibrary()
	}

	client, err := buildLLMClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build LLM client: %w", err)
	}

	adapter := llm.NewAdapter(client, cfg.TokenCap, templates, scoring.New(),
		llm.WithLogging(log.Default()),
		llm.RateLimit(4, 8),
		llm.Retry(2, 200_000_000, 1_000_000_000), // 200ms base delay, 1s minimum remaining budget
	)

	retrievalStore, err := retrieval.New(nil, 256, cfg.RetrievalTimeout)
	if err != nil {
		log.Printf("retrieval adapter disabled: %v", err)
		retrievalStore = nil
	}

	sessions := session.NewManager(cfg.IdleTimeout)
	metricsRecorder := metrics.New(cfg.MetricsRingSize, cfg.TotalSLA)

	orchestrator := &turn.Orchestrator{
		Scenarios:           scenarios,
		Roles:               roles,
		Scorer:              scoring.New(),
		Adapter:             adapter,
		Backchannel:         backchannelEngine,
		Retrieval:           retrievalStore,
		Metrics:             metricsRecorder,
		Behavior:            behavior.New(cfg.BehaviorToxicityWarn, cfg.BehaviorToxicityHi),
		TotalSLA:            cfg.TotalSLA,
		SafetyMargin:        cfg.SafetyMargin,
		BackchannelDeadline: cfg.BackchannelDeadline,
		RetrievalDeadline:   cfg.RetrievalTimeout,
		RetrievalTopK:       cfg.RetrievalTopK,
	}

	mux := gatewayhttp.NewMux(&gatewayhttp.Handler{
		Scenarios:    scenarios,
		Roles:        roles,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Retrieval:    retrievalStore,
		Metrics:      metricsRecorder,
	})

	return &App{server: gatewayhttp.NewServer(cfg.Port, mux)}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func loadBackchannel(path string, minInterval time.Duration) (*backchannel.Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return backchannel.LoadBytes(data, minInterval)
}

func loadTemplates(path string) (llm.TemplateLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.TemplateLibrary{}, err
	}
	return llm.LoadTemplateLibraryBytes(data)
}

// buildLLMClient selects a backend by cfg.LLMProvider. "fake" is meant for
// demos and CI, never production traffic.
func buildLLMClient(cfg *config.Config) (llmclient.Client, error) {
	switch cfg.LLMProvider {
	case "local", "openai-compatible":
		return llmclient.NewLocalClient(cfg.LLMBaseURL, cfg.LLMModel, float32(cfg.LLMTemperature), cfg.LLMJSONSchemaEnforce), nil
	case "gemini":
		return llmclient.NewGeminiClient(context.Background(), cfg.LLMAPIKey, cfg.LLMModel, float32(cfg.LLMTemperature), cfg.LLMJSONSchemaEnforce)
	case "fake":
		fallthrough
	default:
		return llmclient.NewFakeClient(fakeGreeting()), nil
	}
}

func fakeGreeting() []byte {
	return []byte(`{"reply":"Thanks, let's continue.","next_node_id":"","scoring_update":{"block":"general","score":0.5}}`)
}
