package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the sentinel configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index and pagination settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding provider and cache settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 disables expiry
}

// ReasoningConfig holds chat completion provider settings.
type ReasoningConfig struct {
	Provider      string  `yaml:"provider"`
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	Temperature   float32 `yaml:"temperature"`
	CallTimeoutMS int     `yaml:"call_timeout_ms"`
	Retries       *int    `yaml:"retries"` // nil = default (1)
	BackoffMS     int     `yaml:"backoff_ms"`
	BackoffFactor float64 `yaml:"backoff_multiplier"`
}

// PipelineConfig tunes retrieval fusion and the analysis pipeline.
type PipelineConfig struct {
	RRFK                int `yaml:"rrf_k"`
	CandidateMultiplier int `yaml:"candidate_multiplier"`
	ModalityTimeoutMS   int `yaml:"modality_timeout_ms"`
	SoftBudgetMS        int `yaml:"soft_budget_ms"`
	DefaultTopK         int `yaml:"default_top_k"`
	SearchTopK          int `yaml:"search_top_k"`
	MaxPromptMatches    int `yaml:"max_prompt_matches"`
	MaxExcerptRunes     int `yaml:"max_excerpt_runes"`
	AnalysisMaxTokens   int `yaml:"analysis_max_tokens"`
	ActionMaxTokens     int `yaml:"action_max_tokens"`
}

// CallTimeout returns the per-attempt reasoning timeout.
func (r ReasoningConfig) CallTimeout() time.Duration {
	return time.Duration(r.CallTimeoutMS) * time.Millisecond
}

// Backoff returns the wait before the first retry.
func (r ReasoningConfig) Backoff() time.Duration {
	return time.Duration(r.BackoffMS) * time.Millisecond
}

// ModalityTimeout returns the per-modality retrieval timeout.
func (p PipelineConfig) ModalityTimeout() time.Duration {
	return time.Duration(p.ModalityTimeoutMS) * time.Millisecond
}

// SoftBudget returns the end-to-end latency target.
func (p PipelineConfig) SoftBudget() time.Duration {
	return time.Duration(p.SoftBudgetMS) * time.Millisecond
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.Name == "" {
		c.Index.Name = "sentinel:slices:idx"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.DefaultPageSize <= 0 {
		c.Index.DefaultPageSize = 20
	}
	if c.Index.MaxPageSize <= 0 {
		c.Index.MaxPageSize = 100
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "sentinel:"
	}
	c.applyProviderDefaults()
	c.applyPipelineDefaults()
}

func (c *Config) applyProviderDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Reasoning.Provider == "" {
		c.Reasoning.Provider = "openai"
	}
	if c.Reasoning.Model == "" {
		c.Reasoning.Model = "gpt-4o"
	}
	if c.Reasoning.APIKey == "" {
		c.Reasoning.APIKey = c.Embedding.APIKey
	}
	if c.Reasoning.CallTimeoutMS <= 0 {
		c.Reasoning.CallTimeoutMS = 3000
	}
	if c.Reasoning.Retries == nil {
		one := 1
		c.Reasoning.Retries = &one
	}
	if c.Reasoning.BackoffMS <= 0 {
		c.Reasoning.BackoffMS = 250
	}
	if c.Reasoning.BackoffFactor < 1 {
		c.Reasoning.BackoffFactor = 2
	}
}

func (c *Config) applyPipelineDefaults() {
	p := &c.Pipeline
	if p.RRFK <= 0 {
		p.RRFK = 60
	}
	if p.CandidateMultiplier <= 0 {
		p.CandidateMultiplier = 3
	}
	if p.ModalityTimeoutMS <= 0 {
		p.ModalityTimeoutMS = 1500
	}
	if p.SoftBudgetMS <= 0 {
		p.SoftBudgetMS = 4000
	}
	if p.DefaultTopK <= 0 {
		p.DefaultTopK = 3
	}
	if p.SearchTopK <= 0 {
		p.SearchTopK = 5
	}
	if p.MaxPromptMatches <= 0 {
		p.MaxPromptMatches = 5
	}
	if p.MaxExcerptRunes <= 0 {
		p.MaxExcerptRunes = 600
	}
	if p.AnalysisMaxTokens <= 0 {
		p.AnalysisMaxTokens = 300
	}
	if p.ActionMaxTokens <= 0 {
		p.ActionMaxTokens = 800
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "", "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if r := c.Reasoning.Retries; r != nil && *r < 0 {
		return fmt.Errorf("reasoning.retries must be >= 0, got %d", *c.Reasoning.Retries)
	}
	if c.Pipeline.SoftBudgetMS > 0 && c.Reasoning.CallTimeoutMS >= c.Pipeline.SoftBudgetMS {
		return fmt.Errorf(
			"reasoning.call_timeout_ms (%d) must be below pipeline.soft_budget_ms (%d)",
			c.Reasoning.CallTimeoutMS, c.Pipeline.SoftBudgetMS,
		)
	}
	if c.Pipeline.SoftBudgetMS > 0 && c.Pipeline.ModalityTimeoutMS >= c.Pipeline.SoftBudgetMS {
		return fmt.Errorf(
			"pipeline.modality_timeout_ms (%d) must be below pipeline.soft_budget_ms (%d)",
			c.Pipeline.ModalityTimeoutMS, c.Pipeline.SoftBudgetMS,
		)
	}
	if c.Pipeline.DefaultTopK > 20 || c.Pipeline.SearchTopK > 20 {
		return fmt.Errorf("pipeline top_k defaults must be <= 20")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
