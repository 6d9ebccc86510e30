package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/smallnest/ragrouter/log"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RAGROUTER"

// Retriever backends.
const (
	BackendMemory   = "memory"
	BackendPGVector = "pgvector"
)

// Settings are the process wide settings of the ragrouter command.
type Settings struct {
	QueryModel     string `mapstructure:"query_model"`
	ResponseModel  string `mapstructure:"response_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`

	OpenAIBaseURL   string `mapstructure:"openai_base_url"`
	OpenAIToken     string `mapstructure:"openai_api_key"`
	OllamaServerURL string `mapstructure:"ollama_server_url"`

	Retriever   string `mapstructure:"retriever"`
	TopK        int    `mapstructure:"top_k"`
	PostgresURL string `mapstructure:"postgres_url"`
	Collection  string `mapstructure:"collection"`

	// RedisURL enables the retrieval result cache when set.
	RedisURL string        `mapstructure:"redis_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	LogLevel string `mapstructure:"log_level"`

	RouterTemplateFile   string `mapstructure:"router_template_file"`
	ResponseTemplateFile string `mapstructure:"response_template_file"`
}

// Agent returns the default agent configuration.
func (s Settings) Agent() AgentConfiguration {
	return AgentConfiguration{QueryModel: s.QueryModel, ResponseModel: s.ResponseModel}
}

// Level parses LogLevel.
func (s Settings) Level() (log.LogLevel, error) {
	return log.ParseLevel(s.LogLevel)
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	var errs []error
	if s.QueryModel == "" {
		errs = append(errs, ErrNoQueryModel)
	}
	switch s.Retriever {
	case BackendMemory:
	case BackendPGVector:
		if s.PostgresURL == "" {
			errs = append(errs, errors.New("retriever pgvector needs postgres_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown retriever backend %q", s.Retriever))
	}
	if s.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", s.TopK))
	}
	if s.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", s.CacheTTL))
	}
	if s.ChunkSize <= 0 || s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		errs = append(errs, fmt.Errorf("invalid chunking: size %d overlap %d", s.ChunkSize, s.ChunkOverlap))
	}
	if _, err := s.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// EnvFile is loaded into the environment first; a missing file is ignored.
	EnvFile string

	// ConfigFile is an explicit config file. When empty, ragrouter.{yaml,json,toml}
	// is searched in the working directory and $HOME/.config/ragrouter.
	ConfigFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("query_model", "openai/gpt-4o-mini")
	v.SetDefault("response_model", "")
	v.SetDefault("embedding_model", "openai/text-embedding-3-small")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("ollama_server_url", "")
	v.SetDefault("retriever", BackendMemory)
	v.SetDefault("top_k", 5)
	v.SetDefault("postgres_url", "")
	v.SetDefault("collection", "ragrouter")
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("log_level", "info")
	v.SetDefault("router_template_file", "")
	v.SetDefault("response_template_file", "")
}

// Load reads settings from, in increasing priority: defaults, the config
// file, and RAGROUTER_* environment variables (including those from the
// .env file).
func Load(opts LoadOptions) (Settings, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("ragrouter")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ragrouter")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("loaded settings from %s", used)
	}
	return s, nil
}
