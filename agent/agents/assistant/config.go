package assistant

import (
	"time"

	toolx "github.com/tanpawarit/Product-Shopping-Assistant/agent/tool"
)

const (
	DefaultRequestTimeout  = 2 * time.Minute
	DefaultMaxIterations   = 5
	DefaultHistoryWindow   = 10
	DefaultToolTimeout     = 30 * time.Second
	DefaultAnalyzerTimeout = 15 * time.Second
	DefaultFallbackAnswer  = "Sorry, I could not finish looking that up. Could you rephrase or narrow the request?"
)

// Config is read from AGENT_* variables. Empty prompts fall back to the embedded templates.
type Config struct {
	SystemPrompt     string        `split_words:"true"`
	ComparisonPrompt string        `split_words:"true"`
	RequestTimeout   time.Duration `split_words:"true" default:"2m"`
	MaxIterations    int           `split_words:"true" default:"5"`
	HistoryWindow    int           `split_words:"true" default:"10"`
	ToolTimeout      time.Duration `split_words:"true" default:"30s"`
	AnalyzerTimeout  time.Duration `split_words:"true" default:"15s"`
	FallbackAnswer   string        `split_words:"true"`
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = DefaultHistoryWindow
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	if c.AnalyzerTimeout <= 0 {
		c.AnalyzerTimeout = DefaultAnalyzerTimeout
	}
	if c.FallbackAnswer == "" {
		c.FallbackAnswer = DefaultFallbackAnswer
	}
	return c
}

// RegistryConfig returns the tool registry settings derived from the agent options.
func (c Config) RegistryConfig() toolx.RegistryConfig {
	return toolx.RegistryConfig{Timeout: c.withDefaults().ToolTimeout}
}
