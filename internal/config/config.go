package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents runtime configuration derived from environment variables
// and an optional YAML file.
type Config struct {
	Logging       LoggingConfig
	LLM           LLMConfig
	Dataset       DatasetConfig
	Summary       SummaryConfig
	Evaluation    EvaluationConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
	// File, when set, receives a rotated copy of the log stream. A path ending
	// in a separator is treated as a directory and gets an exp_<ts>.log file.
	File string
}

// LLMConfig selects and tunes the text-completion backend.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Seed        int
	MaxRetries  int
	TokenBudget int
}

// DatasetConfig locates price and tweet archives.
type DatasetConfig struct {
	Name       string
	Root       string
	PriceDir   string
	TweetDir   string
	SeqLen     int
	TrainRatio float64
	// DedupTweets drops repeated tweets (retweets, reposted links) within a
	// day before summarization.
	DedupTweets bool
}

// SummaryConfig controls summary generation and caching.
type SummaryConfig struct {
	Method       string
	CacheBackend string
	CacheDir     string
	MemorySize   int
	LogPath      string
}

// EvaluationConfig controls the prediction and scoring stage.
type EvaluationConfig struct {
	Split            string
	BatchSize        int
	Mode             string
	ResultsDir       string
	RelatedCompanies bool
}

// DatabaseConfig holds optional run-database settings. Either URL or
// InstanceConnectionName enables it.
type DatabaseConfig struct {
	URL                    string
	InstanceConnectionName string
	User                   string
	Password               string
	Name                   string
}

// Enabled reports whether a run database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.InstanceConnectionName != ""
}

// ObservabilityConfig holds metrics and tracing toggles.
type ObservabilityConfig struct {
	MetricsAddr    string
	TracingEnabled bool
}

const (
	defaultLogFormat = "json"

	defaultProvider    = "openai"
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 1024
	defaultLLMTimeout  = 60 * time.Second
	defaultSeed        = 42
	defaultMaxRetries  = 5
	defaultTokenBudget = 8192

	defaultDatasetName = "ACL18"
	defaultDataRoot    = "./data"
	defaultSeqLen      = 5
	defaultTrainRatio  = 0.8

	defaultSummaryMethod = "tdmllm"
	defaultCacheBackend  = "file"
	defaultCacheDir      = "./summaries"
	defaultMemorySize    = 100000

	defaultSplit      = "test"
	defaultBatchSize  = 8
	defaultMode       = "batch"
	defaultResultsDir = "./results"

	// ConfigFileEnv names the optional YAML file of default values.
	ConfigFileEnv = "STOCKCAST_CONFIG"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided. Invalid values are reported as errors.
func Load() (Config, error) {
	src, err := newSource(os.Getenv(ConfigFileEnv))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
			File:   src.get("LOG_FILE"),
		},
		LLM: LLMConfig{
			Provider:    src.getDefault("LLM_PROVIDER", defaultProvider),
			Model:       src.getDefault("LLM_MODEL", defaultModel),
			BaseURL:     src.get("LLM_BASE_URL"),
			MaxTokens:   defaultMaxTokens,
			Timeout:     defaultLLMTimeout,
			Seed:        defaultSeed,
			MaxRetries:  defaultMaxRetries,
			TokenBudget: defaultTokenBudget,
		},
		Dataset: DatasetConfig{
			Name:       src.getDefault("DATASET_NAME", defaultDatasetName),
			Root:       src.getDefault("DATA_ROOT", defaultDataRoot),
			PriceDir:   src.get("PRICE_DIR"),
			TweetDir:   src.get("TWEET_DIR"),
			SeqLen:     defaultSeqLen,
			TrainRatio: defaultTrainRatio,
		},
		Summary: SummaryConfig{
			Method:       src.getDefault("SUMMARY_METHOD", defaultSummaryMethod),
			CacheBackend: src.getDefault("CACHE_BACKEND", defaultCacheBackend),
			CacheDir:     src.getDefault("CACHE_DIR", defaultCacheDir),
			MemorySize:   defaultMemorySize,
			LogPath:      src.get("SUMMARY_LOG_PATH"),
		},
		Evaluation: EvaluationConfig{
			Split:      src.getDefault("EVAL_SPLIT", defaultSplit),
			BatchSize:  defaultBatchSize,
			Mode:       src.getDefault("INFERENCE_MODE", defaultMode),
			ResultsDir: src.getDefault("RESULTS_DIR", defaultResultsDir),
		},
		Database: DatabaseConfig{
			URL:                    src.get("DATABASE_URL"),
			InstanceConnectionName: src.get("INSTANCE_CONNECTION_NAME"),
			User:                   src.get("DB_USER"),
			Password:               src.get("DB_PASSWORD"),
			Name:                   src.get("DB_NAME"),
		},
		Observability: ObservabilityConfig{
			MetricsAddr: src.get("METRICS_ADDR"),
		},
	}

	if v := src.get("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := src.get("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if err := loadLLM(src, &cfg.LLM); err != nil {
		return Config{}, err
	}

	if v := src.get("SEQ_LEN"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SEQ_LEN: %w", err)
		}
		cfg.Dataset.SeqLen = n
	}

	if v := src.get("TRAIN_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil || ratio <= 0 || ratio >= 1 {
			return Config{}, fmt.Errorf("invalid TRAIN_RATIO: must be a number between 0 and 1")
		}
		cfg.Dataset.TrainRatio = ratio
	}

	switch cfg.Summary.Method {
	case "tdmllm", "sep":
	default:
		return Config{}, fmt.Errorf("invalid SUMMARY_METHOD: must be 'tdmllm' or 'sep'")
	}

	switch cfg.Summary.CacheBackend {
	case "file", "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("invalid CACHE_BACKEND: must be 'file', 'sqlite' or 'memory'")
	}

	if v := src.get("CACHE_MEMORY_SIZE"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_MEMORY_SIZE: %w", err)
		}
		cfg.Summary.MemorySize = n
	}

	if cfg.Evaluation.Split != "train" && cfg.Evaluation.Split != "test" {
		return Config{}, fmt.Errorf("invalid EVAL_SPLIT: must be 'train' or 'test'")
	}

	if v := src.get("BATCH_SIZE"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BATCH_SIZE: %w", err)
		}
		cfg.Evaluation.BatchSize = n
	}

	switch cfg.Evaluation.Mode {
	case "batch", "serial":
	default:
		return Config{}, fmt.Errorf("invalid INFERENCE_MODE: must be 'batch' or 'serial'")
	}

	if v := src.get("TWEET_DEDUP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TWEET_DEDUP: %w", err)
		}
		cfg.Dataset.DedupTweets = b
	}

	if v := src.get("RELATED_COMPANIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELATED_COMPANIES: %w", err)
		}
		cfg.Evaluation.RelatedCompanies = b
	}

	if cfg.Database.InstanceConnectionName != "" && cfg.Database.URL == "" {
		if cfg.Database.User == "" || cfg.Database.Name == "" {
			return Config{}, fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
		}
	}

	if v := src.get("TRACING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRACING_ENABLED: %w", err)
		}
		cfg.Observability.TracingEnabled = b
	}

	return cfg, nil
}

func loadLLM(src source, llm *LLMConfig) error {
	switch llm.Provider {
	case "openai":
		llm.APIKey = src.getDefault("LLM_API_KEY", src.get("OPENAI_API_KEY"))
		if llm.APIKey == "" && llm.BaseURL == "" {
			return fmt.Errorf("LLM_API_KEY or OPENAI_API_KEY is required for the openai provider")
		}
	case "anthropic":
		llm.APIKey = src.getDefault("LLM_API_KEY", src.get("ANTHROPIC_API_KEY"))
		if llm.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY or ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "stub":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER: must be 'openai', 'anthropic' or 'stub'")
	}

	if v := src.get("LLM_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 32)
		if err != nil || temp < 0 || temp > 2 {
			return fmt.Errorf("invalid LLM_TEMPERATURE: must be a number between 0 and 2")
		}
		llm.Temperature = float32(temp)
	}

	if v := src.get("LLM_MAX_TOKENS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
		}
		llm.MaxTokens = n
	}

	if v := src.get("LLM_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_TIMEOUT_SECONDS: %w", err)
		}
		llm.Timeout = d
	}

	if v := src.get("LLM_SEED"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_SEED: must be an integer")
		}
		llm.Seed = n
	}

	if v := src.get("LLM_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid LLM_MAX_RETRIES: must be a non-negative integer")
		}
		llm.MaxRetries = n
	}

	if v := src.get("LLM_TOKEN_BUDGET"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("invalid LLM_TOKEN_BUDGET: %w", err)
		}
		llm.TokenBudget = n
	}

	return nil
}

// source resolves a key from the environment first, then from the optional
// YAML file. Empty values count as unset.
type source struct {
	file map[string]string
}

func newSource(path string) (source, error) {
	src := source{file: map[string]string{}}
	if path == "" {
		return src, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("failed to read %s: %w", ConfigFileEnv, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return source{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for key, value := range raw {
		if value == nil {
			continue
		}
		src.file[strings.ToUpper(key)] = fmt.Sprint(value)
	}

	return src, nil
}

func (s source) get(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) getDefault(key, fallback string) string {
	if value := s.get(key); value != "" {
		return value
	}
	return fallback
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
