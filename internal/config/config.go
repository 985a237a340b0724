// Package config implements the Config Loader (C12): env-var driven
// configuration for the orchestrator process, grounded on
// internal/gateway/config's flag+godotenv+os.Getenv shape.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is every knob spec.md §6 and its SPEC_FULL.md additions name.
type Config struct {
	Port string
	Env  string

	ScenarioDir          string
	ScenarioStorePGDSN   string
	RoleProfilePath      string
	BackchannelTablePath string
	TemplateLibraryPath  string

	LLMProvider          string // "fake" | "local" | "openai-compatible" | "gemini"
	LLMBaseURL           string
	LLMModel             string
	LLMAPIKey            string
	LLMTemperature       float64
	LLMJSONSchemaEnforce bool

	TotalSLA            time.Duration
	SafetyMargin        time.Duration
	BackchannelDeadline time.Duration
	TokenCap            int

	BackchannelMinInterval time.Duration
	RetrievalTimeout       time.Duration
	RetrievalTopK          int

	BehaviorToxicityWarn float64
	BehaviorToxicityHi   float64

	MetricsRingSize int
	IdleTimeout     time.Duration
}

// Load reads .env (if present), then flags, then environment variables,
// with environment variables taking precedence over flag defaults the way
// the teacher's config.Load does for PORT. It returns a *model.Error
// wrapping KindInvalidInput (mapped by main to exit code 2) when a
// required value is missing or malformed.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("orchestrator", flag.ContinueOnError)
	port := fs.String("port", ":8080", "HTTP server port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := firstNonEmpty(os.Getenv("APP_ENV"), "local")

	cfg := &Config{
		Port: *port,
		Env:  env,

		// SCENARIO_DIR is spec.md §6's own name; SCENARIO_STORE_DIR is kept
		// as an alias since it's what earlier builds of this config wrote.
		ScenarioDir:          firstNonEmpty(os.Getenv("SCENARIO_DIR"), os.Getenv("SCENARIO_STORE_DIR"), "data/scenarios"),
		ScenarioStorePGDSN:   os.Getenv("SCENARIO_STORE_PG_DSN"),
		RoleProfilePath:      firstNonEmpty(os.Getenv("ROLE_PROFILE_PATH"), "data/role_profiles.yaml"),
		BackchannelTablePath: firstNonEmpty(os.Getenv("BACKCHANNEL_TABLE_PATH"), "data/backchannel_table.yaml"),
		TemplateLibraryPath:  firstNonEmpty(os.Getenv("TEMPLATE_LIBRARY_PATH"), "data/reply_templates.yaml"),

		LLMProvider:          firstNonEmpty(os.Getenv("LLM_PROVIDER"), "fake"),
		LLMBaseURL:           os.Getenv("LLM_BASE_URL"),
		LLMModel:             firstNonEmpty(os.Getenv("LLM_MODEL"), "gemini-1.5-flash"),
		LLMAPIKey:            os.Getenv("LLM_API_KEY"),
		LLMTemperature:       floatOrDefault(0.7, "LLM_TEMPERATURE"),
		LLMJSONSchemaEnforce: boolOrDefault(true, "LLM_JSON_SCHEMA_ENFORCE"),

		// TURN_TOTAL_SLA_MS/TURN_SAFETY_MARGIN_MS are kept as aliases;
		// SLA_TURN_MS/SLA_SAFETY_MS are spec.md §6's own names.
		TotalSLA:            durationMillisOrDefault(5000*time.Millisecond, "SLA_TURN_MS", "TURN_TOTAL_SLA_MS"),
		SafetyMargin:        durationMillisOrDefault(300*time.Millisecond, "SLA_SAFETY_MS", "TURN_SAFETY_MARGIN_MS"),
		BackchannelDeadline: durationMillisOrDefault(500*time.Millisecond, "SLA_BACKCHANNEL_MS"),
		TokenCap:            intOrDefault(96, "LLM_MAX_TOKENS", "LLM_TOKEN_CAP"),

		BackchannelMinInterval: durationMillisOrDefault(2000*time.Millisecond, "BACKCHANNEL_MIN_INTERVAL_MS"),
		RetrievalTimeout:       durationMillisOrDefault(800*time.Millisecond, "RETRIEVAL_TIMEOUT_MS"),
		RetrievalTopK:          intOrDefault(3, "RETRIEVAL_TOP_K"),

		BehaviorToxicityWarn: floatOrDefault(0.75, "BEHAVIOR_TOXICITY_WARN"),
		BehaviorToxicityHi:   floatOrDefault(0.90, "BEHAVIOR_TOXICITY_HI"),

		MetricsRingSize: intOrDefault(4096, "METRICS_RING_SIZE"),
		IdleTimeout:     idleTimeoutOrDefault(30 * time.Minute),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case "fake", "local", "openai-compatible", "gemini":
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if (c.LLMProvider == "local" || c.LLMProvider == "openai-compatible") && c.LLMBaseURL == "" {
		return fmt.Errorf("config: LLM_BASE_URL is required for LLM_PROVIDER=%q", c.LLMProvider)
	}
	if c.TokenCap <= 0 {
		return fmt.Errorf("config: LLM_MAX_TOKENS must be positive, got %d", c.TokenCap)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("config: LLM_TEMPERATURE out of [0,2], got %v", c.LLMTemperature)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("config: RETRIEVAL_TOP_K must be positive, got %d", c.RetrievalTopK)
	}
	if c.BehaviorToxicityWarn <= 0 || c.BehaviorToxicityWarn > 1 {
		return fmt.Errorf("config: BEHAVIOR_TOXICITY_WARN out of (0,1], got %v", c.BehaviorToxicityWarn)
	}
	if c.BehaviorToxicityHi <= 0 || c.BehaviorToxicityHi > 1 || c.BehaviorToxicityHi < c.BehaviorToxicityWarn {
		return fmt.Errorf("config: BEHAVIOR_TOXICITY_HI must be in (0,1] and >= BEHAVIOR_TOXICITY_WARN, got %v", c.BehaviorToxicityHi)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// durationMillisOrDefault checks envVars in priority order and returns the
// first one that parses as a positive integer count of milliseconds.
func durationMillisOrDefault(def time.Duration, envVars ...string) time.Duration {
	for _, name := range envVars {
		raw := strings.TrimSpace(os.Getenv(name))
		if raw == "" {
			continue
		}
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			continue
		}
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

// idleTimeoutOrDefault honors spec.md §6's SESSION_IDLE_TIMEOUT_S (seconds)
// first, falling back to the millisecond SESSION_IDLE_TIMEOUT_MS alias.
func idleTimeoutOrDefault(def time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv("SESSION_IDLE_TIMEOUT_S")); raw != "" {
		if s, err := strconv.Atoi(raw); err == nil && s > 0 {
			return time.Duration(s) * time.Second
		}
	}
	return durationMillisOrDefault(def, "SESSION_IDLE_TIMEOUT_MS")
}

func intOrDefault(def int, envVars ...string) int {
	for _, name := range envVars {
		raw := strings.TrimSpace(os.Getenv(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			continue
		}
		return n
	}
	return def
}

func floatOrDefault(def float64, envVar string) float64 {
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func boolOrDefault(def bool, envVar string) bool {
	raw := strings.TrimSpace(os.Getenv(envVar))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
