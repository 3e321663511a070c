package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pressroomlabs/pressroom/internal/schema"
)

// Config holds all configuration for the pipeline service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Email     EmailConfig     `mapstructure:"email"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type    string              `mapstructure:"type"` // openai, anthropic, etc.
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Retries int                 `mapstructure:"retries"`
	Timeout time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for different stages
type LLMRoutingConfig struct {
	Selection   string `mapstructure:"selection"`   // topic selection and ranking
	Matching    string `mapstructure:"matching"`    // expert matching
	Composition string `mapstructure:"composition"` // freeform email formatting
	Fallback    string `mapstructure:"fallback"`    // fallback model
}

// SourcesConfig groups the news providers
type SourcesConfig struct {
	SerpAPI SerpAPIConfig `mapstructure:"serpapi"`
	NewsAPI NewsAPIConfig `mapstructure:"newsapi"`
}

// SerpAPIConfig configures the Google News search provider
type SerpAPIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	MaxResults int           `mapstructure:"max_results"`
	Window     string        `mapstructure:"window"` // SerpAPI time window token, d1 = last 24h
	Timeout    time.Duration `mapstructure:"timeout"`
}

// NewsAPIConfig configures the newsapi.org fallback provider
type NewsAPIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	MaxResults int    `mapstructure:"max_results"`
}

// PipelineConfig carries the cardinality and reliability knobs for the stages
type PipelineConfig struct {
	// TopicCount, ExpertsPerTopic and QuestionsPerExpert must agree with
	// the cardinalities the schema contracts pin; Validate enforces this.
	TopicCount         int `mapstructure:"topic_count"`
	ExpertsPerTopic    int `mapstructure:"experts_per_topic"`
	QuestionsPerExpert int `mapstructure:"questions_per_expert"`
	// MinExpertsPerSet is the floor below which a partial expert set is an
	// error rather than a degraded success.
	MinExpertsPerSet   int `mapstructure:"min_experts_per_set"`
	RepairAttempts     int `mapstructure:"repair_attempts"`
	FetchRetries       int `mapstructure:"fetch_retries"`
	MaxConcurrentCalls int `mapstructure:"max_concurrent_calls"`
	PromptTokenBudget  int `mapstructure:"prompt_token_budget"`
}

func (p PipelineConfig) Validate() error {
	if p.TopicCount != schema.TopicCount {
		return fmt.Errorf("pipeline.topic_count must be %d to match the topics contract", schema.TopicCount)
	}
	if p.ExpertsPerTopic != schema.ExpertsPerSet {
		return fmt.Errorf("pipeline.experts_per_topic must be %d to match the expert_set contract", schema.ExpertsPerSet)
	}
	if p.QuestionsPerExpert != schema.QuestionsPerExpert {
		return fmt.Errorf("pipeline.questions_per_expert must be %d to match the expert_set contract", schema.QuestionsPerExpert)
	}
	if p.MinExpertsPerSet < 0 || p.MinExpertsPerSet > p.ExpertsPerTopic {
		return fmt.Errorf("pipeline.min_experts_per_set must be within [0, experts_per_topic]")
	}
	if p.RepairAttempts < 0 {
		return fmt.Errorf("pipeline.repair_attempts cannot be negative")
	}
	if p.MaxConcurrentCalls <= 0 {
		return fmt.Errorf("pipeline.max_concurrent_calls must be > 0")
	}
	return nil
}

// EmailConfig controls the deterministic outreach template
type EmailConfig struct {
	ResponseWindowHours int    `mapstructure:"response_window_hours"`
	SenderName          string `mapstructure:"sender_name"`
	SenderTitle         string `mapstructure:"sender_title"`
	SenderOutlet        string `mapstructure:"sender_outlet"`
	SenderContact       string `mapstructure:"sender_contact"`
}

func (e EmailConfig) Validate() error {
	if e.ResponseWindowHours <= 0 {
		return fmt.Errorf("email.response_window_hours must be > 0")
	}
	return nil
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads config from file, falling back to defaults plus
// PRESSROOM_* environment overrides when no file is present.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.request_timeout", "120s")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("llm.routing.fallback", "gpt-4o-mini")
	viper.SetDefault("sources.serpapi.endpoint", "https://serpapi.com")
	viper.SetDefault("sources.serpapi.max_results", 10)
	viper.SetDefault("sources.serpapi.window", "d1")
	viper.SetDefault("sources.serpapi.timeout", "15s")
	viper.SetDefault("sources.newsapi.endpoint", "https://newsapi.org/v2/top-headlines")
	viper.SetDefault("sources.newsapi.max_results", 10)
	viper.SetDefault("pipeline.topic_count", 3)
	viper.SetDefault("pipeline.experts_per_topic", 3)
	viper.SetDefault("pipeline.questions_per_expert", 2)
	viper.SetDefault("pipeline.min_experts_per_set", 1)
	viper.SetDefault("pipeline.repair_attempts", 1)
	viper.SetDefault("pipeline.fetch_retries", 1)
	viper.SetDefault("pipeline.max_concurrent_calls", 3)
	viper.SetDefault("pipeline.prompt_token_budget", 6000)
	viper.SetDefault("email.response_window_hours", 6)
	viper.SetDefault("email.sender_name", "News Desk")
	viper.SetDefault("email.sender_title", "Editor")
	viper.SetDefault("email.sender_outlet", "Pressroom")
	viper.SetDefault("email.sender_contact", "newsdesk@pressroom.local")
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PRESSROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
		// no config file: defaults + environment are enough for this service
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if config.LLM.Providers == nil {
		config.LLM.Providers = defaultProviders()
	}

	if err := config.Pipeline.Validate(); err != nil {
		panic(err)
	}
	if err := config.Email.Validate(); err != nil {
		panic(err)
	}
	return &config
}

// defaultProviders wires an env-keyed OpenAI provider when no provider block
// is configured, mirroring how the rest of the config degrades gracefully.
func defaultProviders() map[string]LLMProvider {
	model := "gpt-4o-mini"
	return map[string]LLMProvider{
		"openai": {
			Type:    "openai",
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Retries: 1,
			Timeout: 60 * time.Second,
			Models: map[string]LLMModel{
				model: {
					Name:        model,
					APIName:     model,
					MaxTokens:   5000,
					Temperature: 0.7,
				},
			},
		},
	}
}
