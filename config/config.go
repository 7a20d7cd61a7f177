package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the QA service.
type Config struct {
	Source      SourceConfig      `yaml:"source" envPrefix:"SOURCE_"`
	Index       IndexConfig       `yaml:"index" envPrefix:"INDEX_"`
	Retrieve    RetrieveConfig    `yaml:"retrieve" envPrefix:"RETRIEVE_"`
	Embedding   EmbeddingConfig   `yaml:"embedding" envPrefix:"EMBEDDING_"`
	Generation  GenerationConfig  `yaml:"generation" envPrefix:"GENERATION_"`
	Translation TranslationConfig `yaml:"translation" envPrefix:"TRANSLATION_"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts" envPrefix:"TIMEOUTS_"`
	Storage     StorageConfig     `yaml:"storage" envPrefix:"STORAGE_"`
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Watch       WatchConfig       `yaml:"watch" envPrefix:"WATCH_"`
	Logging     LoggingConfig     `yaml:"logging" envPrefix:"LOGGING_"`
}

// SourceConfig points at the reference document. Path may be a single
// PDF, Markdown or text file, or a directory filtered by the globs.
type SourceConfig struct {
	Path     string   `yaml:"path" env:"PATH"`
	Includes []string `yaml:"includes" env:"INCLUDES" envSeparator:","`
	Excludes []string `yaml:"excludes" env:"EXCLUDES" envSeparator:","`
}

type IndexConfig struct {
	ChunkSize int `yaml:"chunk_size" env:"CHUNK_SIZE"`
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE"`
}

type RetrieveConfig struct {
	TopK        int           `yaml:"top_k" env:"TOP_K"`
	MaxDistance float64       `yaml:"max_distance" env:"MAX_DISTANCE"` // 0 = disabled
	CacheSize   int           `yaml:"cache_size" env:"CACHE_SIZE"`     // 0 = no cache
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" env:"PROVIDER"` // "openai", "ollama", "hash"
	Model     string `yaml:"model" env:"MODEL"`
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	APIKeyEnv string `yaml:"api_key_env" env:"API_KEY_ENV"` // Environment variable for API key
	Dimension int    `yaml:"dimension" env:"DIMENSION"`
}

type GenerationConfig struct {
	Provider    string  `yaml:"provider" env:"PROVIDER"` // "openrouter", "openai"
	Model       string  `yaml:"model" env:"MODEL"`
	BaseURL     string  `yaml:"base_url" env:"BASE_URL"`
	APIKeyEnv   string  `yaml:"api_key_env" env:"API_KEY_ENV"`
	Temperature float32 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int     `yaml:"max_tokens" env:"MAX_TOKENS"`
}

type TranslationConfig struct {
	Provider      string `yaml:"provider" env:"PROVIDER"` // "http", "none"
	BaseURL       string `yaml:"base_url" env:"BASE_URL"`
	PivotLanguage string `yaml:"pivot_language" env:"PIVOT_LANGUAGE"`
	// AllowDegraded answers with untranslated text plus a warning when
	// translation fails, instead of aborting.
	AllowDegraded bool `yaml:"allow_degraded" env:"ALLOW_DEGRADED"`
}

// TimeoutsConfig bounds each external call. Zero disables the bound.
type TimeoutsConfig struct {
	Embedding   time.Duration `yaml:"embedding" env:"EMBEDDING"`
	Generation  time.Duration `yaml:"generation" env:"GENERATION"`
	Translation time.Duration `yaml:"translation" env:"TRANSLATION"`
}

type StorageConfig struct {
	// Path of the bbolt file. Relative paths resolve against the
	// working directory. "memory" keeps everything in process.
	Path string `yaml:"path" env:"PATH"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" env:"ADDR"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // "text", "json"
}

// MemoryStorage selects the in-process store.
const MemoryStorage = "memory"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QARAG_"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path:     "data/kuye.pdf",
			Includes: []string{"**/*.pdf", "**/*.md", "**/*.markdown", "**/*.txt"},
			Excludes: []string{"**/.git/**", "**/.qarag/**"},
		},
		Index: IndexConfig{
			ChunkSize: 500,
			BatchSize: 64,
		},
		Retrieve: RetrieveConfig{
			TopK:      3,
			CacheSize: 256,
			CacheTTL:  10 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Generation: GenerationConfig{
			Provider:    "openrouter",
			Model:       "baidu/ernie-4.5-300b-a47b",
			APIKeyEnv:   "OPENROUTER_API_KEY",
			Temperature: 0.7,
			MaxTokens:   512,
		},
		Translation: TranslationConfig{
			Provider:      "http",
			BaseURL:       "http://localhost:7860",
			PivotLanguage: "en",
			AllowDegraded: false,
		},
		Timeouts: TimeoutsConfig{
			Embedding:   60 * time.Second,
			Generation:  90 * time.Second,
			Translation: 60 * time.Second,
		},
		Storage: StorageConfig{
			Path: filepath.Join(".qarag", "qarag.db"),
		},
		Server: ServerConfig{
			Addr:         ":8000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 3 * time.Minute,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, then applies QARAG_*
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for qarag.yaml,
// then .qarag/config.yaml). A .env file in the directory is loaded into
// the process environment first; variables already set win.
func LoadFromDir(dir string) (*Config, error) {
	if err := LoadDotEnv(dir); err != nil {
		return nil, err
	}

	// Try qarag.yaml in the directory
	path := filepath.Join(dir, "qarag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .qarag/config.yaml
	path = filepath.Join(dir, ".qarag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv reads dir/.env if present. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Source.Path == "" {
		errs = append(errs, errors.New("source.path is required"))
	}
	if c.Index.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize))
	}
	if c.Retrieve.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK))
	}
	if c.Retrieve.MaxDistance < 0 {
		errs = append(errs, errors.New("retrieve.max_distance must not be negative"))
	}
	if !oneOf(c.Embedding.Provider, "openai", "ollama", "hash") {
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	// A zero temperature is omitted from the request and the provider default applies.
	if c.Generation.Temperature <= 0 {
		errs = append(errs, fmt.Errorf("generation.temperature must be positive, got %g", c.Generation.Temperature))
	}
	if !oneOf(c.Generation.Provider, "openrouter", "openai") {
		errs = append(errs, fmt.Errorf("unknown generation.provider %q", c.Generation.Provider))
	}
	if !oneOf(c.Translation.Provider, "http", "none") {
		errs = append(errs, fmt.Errorf("unknown translation.provider %q", c.Translation.Provider))
	}
	if c.Translation.Provider == "http" && c.Translation.BaseURL == "" {
		errs = append(errs, errors.New("translation.base_url is required for the http provider"))
	}
	if strings.TrimSpace(c.Translation.PivotLanguage) == "" {
		errs = append(errs, errors.New("translation.pivot_language is required"))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}
	if !oneOf(strings.ToLower(c.Logging.Format), "text", "json") {
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolvePath anchors a relative config path at dir.
func ResolvePath(dir, path string) string {
	if path == "" || path == MemoryStorage || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
