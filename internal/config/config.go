package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_policy.yaml
var defaultPolicyYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Database  DatabaseConfig
	HRIS      HRISConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Assist    AssistConfig
	Timezone  string // IANA zone for day boundaries, defaults to Local
	Policy    PolicyDefaults
}

type EmbeddingConfig struct {
	Dim            int           // embedding dimension, fixed per deployment
	MatchThreshold float64       // minimum confidence for an accepted match
	Strict         bool          // reject poor-tier matches
	MatchTimeout   time.Duration // bound on a single probe match
	Model          string        // name of the embedding model, informational
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type HRISConfig struct {
	DatabaseURL string // MariaDB DSN of the HRIS employee directory (e.g. hris:hris@tcp(mariadb:3306)/hris)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type AssistConfig struct {
	Provider string // "openai", "gemini" or empty to disable digests
}

// PolicyDefaults is the embedded fallback attendance policy.
type PolicyDefaults struct {
	ShiftStart     string `yaml:"shift_start"`
	ShiftEnd       string `yaml:"shift_end"`
	LateThreshold  int    `yaml:"late_threshold_minutes"`
	EarlyLeave     int    `yaml:"early_leave_minutes"`
	BreakTotal     int    `yaml:"break_total_minutes"`
	BreakPaid      int    `yaml:"break_paid_minutes"`
	Overtime       struct {
		Enabled bool    `yaml:"enabled"`
		Rate    float64 `yaml:"rate"`
	} `yaml:"overtime"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	var policy PolicyDefaults
	if err := yaml.Unmarshal(defaultPolicyYAML, &policy); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded default_policy.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			Dim:            envInt("EMBEDDING_DIM", 128),
			MatchThreshold: envFloat("MATCH_THRESHOLD", 0.65),
			Strict:         os.Getenv("MATCH_STRICT") == "true",
			MatchTimeout:   envDuration("MATCH_TIMEOUT", 3*time.Second),
			Model:          os.Getenv("EMBEDDING_MODEL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		HRIS: HRISConfig{
			DatabaseURL: os.Getenv("HRIS_DATABASE_URL"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Assist: AssistConfig{
			Provider: os.Getenv("ASSIST_PROVIDER"),
		},
		Timezone: os.Getenv("TIMEZONE"),
		Policy:   policy,
	}
}

// Location resolves the configured timezone, falling back to Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
