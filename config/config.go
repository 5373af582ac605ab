package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research pipeline
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Search    SearchConfig    `mapstructure:"search"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Report    ReportConfig    `mapstructure:"report"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug        bool   `mapstructure:"debug"`
	LogLevel     string `mapstructure:"log_level"`
	UserID       string `mapstructure:"user_id"`
	DefaultTopic string `mapstructure:"default_topic"`
}

// LLMConfig selects and tunes the generation backend
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // gemini, openai
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxToolTurns int           `mapstructure:"max_tool_turns"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Models       StageModels   `mapstructure:"models"`
}

// StageModels routes each pipeline stage to a model id
type StageModels struct {
	Discover  string `mapstructure:"discover"`
	Retrieve  string `mapstructure:"retrieve"`
	Summarize string `mapstructure:"summarize"`
	Compare   string `mapstructure:"compare"`
}

// PipelineConfig contains orchestration settings
type PipelineConfig struct {
	MaxResults        int           `mapstructure:"max_results"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	StageTimeout      time.Duration `mapstructure:"stage_timeout"`
	SummaryInputChars int           `mapstructure:"summary_input_chars"`
}

// FetchConfig contains settings for both retrieval paths
type FetchConfig struct {
	Tool           string        `mapstructure:"tool"` // readable, chromedp
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxChars       int           `mapstructure:"max_chars"`
	ToolTimeout    time.Duration `mapstructure:"tool_timeout"`
	ToolMaxChars   int           `mapstructure:"tool_max_chars"`
	PrimaryTimeout time.Duration `mapstructure:"primary_timeout"`
	ExtractText    bool          `mapstructure:"extract_text"`
}

// SearchConfig contains discovery tool settings
type SearchConfig struct {
	Provider     string `mapstructure:"provider"` // google, brave, serper
	BraveAPIKey  string `mapstructure:"brave_api_key"`
	SerperAPIKey string `mapstructure:"serper_api_key"`
	MaxResults   int    `mapstructure:"max_results"`
}

// MCPConfig points at an optional remote tool endpoint
type MCPConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// ReportConfig controls console rendering of the final report
type ReportConfig struct {
	Render       string `mapstructure:"render"` // plain, markdown
	SummaryLimit int    `mapstructure:"summary_limit"`
	WordWrap     int    `mapstructure:"word_wrap"`
}

// LoadConfig loads configuration from an optional file, an optional .env file
// and the environment. Missing credentials never fail loading; the components
// that need them report it when they are built.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	if path == "" {
		v.SetConfigName("research_config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults and environment cover everything
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

const DefaultModel = "gemini-2.5-flash-lite"

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.user_id", "user_1")
	v.SetDefault("general.default_topic", "agentic AI")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "2m")
	v.SetDefault("llm.max_tool_turns", 4)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.models.discover", DefaultModel)
	v.SetDefault("llm.models.retrieve", DefaultModel)
	v.SetDefault("llm.models.summarize", DefaultModel)
	v.SetDefault("llm.models.compare", DefaultModel)

	v.SetDefault("pipeline.max_results", 3)
	v.SetDefault("pipeline.max_concurrency", 1)
	v.SetDefault("pipeline.stage_timeout", "2m")
	v.SetDefault("pipeline.summary_input_chars", 10000)

	v.SetDefault("fetch.tool", "readable")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; ResearchAgent/1.0)")
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.max_chars", 12000)
	v.SetDefault("fetch.tool_timeout", "20s")
	v.SetDefault("fetch.tool_max_chars", 20000)
	v.SetDefault("fetch.primary_timeout", "90s")
	v.SetDefault("fetch.extract_text", true)

	v.SetDefault("search.provider", "google")
	v.SetDefault("search.brave_api_key", "")
	v.SetDefault("search.serper_api_key", "")
	v.SetDefault("search.max_results", 3)

	v.SetDefault("mcp.url", "")
	v.SetDefault("mcp.timeout", "30s")

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics_port", 0)

	v.SetDefault("report.render", "plain")
	v.SetDefault("report.summary_limit", 1000)
	v.SetDefault("report.word_wrap", 100)
}

// overrideFromEnv maps the conventional, unprefixed variable names
func overrideFromEnv(v *viper.Viper) {
	provider := strings.ToLower(v.GetString("llm.provider"))
	if v.GetString("llm.api_key") == "" {
		switch provider {
		case "openai":
			if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
				v.Set("llm.api_key", apiKey)
			}
		default:
			if apiKey := firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY"); apiKey != "" {
				v.Set("llm.api_key", apiKey)
			}
		}
	}

	if apiKey := os.Getenv("BRAVE_SEARCH_KEY"); apiKey != "" {
		v.Set("search.brave_api_key", apiKey)
	}
	if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		v.Set("search.serper_api_key", apiKey)
	}
	if url := os.Getenv("MCP_URL"); url != "" {
		v.Set("mcp.url", url)
	}
}

// Validate checks values that would make the pipeline misbehave
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}
	if c.Pipeline.MaxResults < 1 {
		return fmt.Errorf("pipeline.max_results must be at least 1")
	}
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("pipeline.max_concurrency must be at least 1")
	}
	if c.Fetch.MaxChars < 1 || c.Fetch.ToolMaxChars < 1 {
		return fmt.Errorf("fetch.max_chars and fetch.tool_max_chars must be positive")
	}
	switch c.Fetch.Tool {
	case "readable", "chromedp":
	default:
		return fmt.Errorf("unsupported fetch.tool %q", c.Fetch.Tool)
	}
	switch c.Search.Provider {
	case "google", "brave", "serper":
	default:
		return fmt.Errorf("unsupported search.provider %q", c.Search.Provider)
	}
	switch c.Report.Render {
	case "plain", "markdown":
	default:
		return fmt.Errorf("unsupported report.render %q", c.Report.Render)
	}
	return nil
}

// HasCredentials reports whether the selected generation backend has a key
func (c LLMConfig) HasCredentials() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// loadDotEnv exports KEY=VALUE pairs from path without overriding variables
// already present in the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	for _, key := range dv.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, dv.GetString(key)); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}
