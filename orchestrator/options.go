package orchestrator

import (
	"time"

	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/prompts"
	"github.com/effective-security/mcphub/pkg/schema"
	"github.com/effective-security/mcphub/store"
)

// Defaults of the run loop
const (
	DefaultMaxRounds      = 10
	DefaultMaxTokens      = 1000
	DefaultTemperature    = 0.2
	DefaultRequestTimeout = 2 * time.Minute
	DefaultToolTimeout    = time.Minute

	// DefaultFinalMaxTokens and DefaultFinalTemperature are used
	// for the forced final answer.
	DefaultFinalMaxTokens   = 4096
	DefaultFinalTemperature = 1.0
)

// DefaultSystemPrompt is the go-template of the system prompt.
// The template receives the tool names as .tools and the current date as .date.
const DefaultSystemPrompt = `You are an agent that analyzes the user's request, selects the appropriate tools and runs them.
{{- if .tools }}
Available tools: {{ join ", " .tools }}.
Before using a tool, summarize the request and explain which tool you use and why.
{{- end }}
Give the final answer in natural language, based on the results of the tools.`

// Option is a function that can be used to modify the behavior of the run.
type Option func(*Config)

// Config of the run loop.
type Config struct {
	// SystemPrompt is the template of the system message.
	SystemPrompt prompts.PromptTemplate
	// PromptInput is added to the system prompt input.
	PromptInput map[string]any

	// MaxRounds is the limit of tool rounds in one run.
	MaxRounds int

	// Model overrides the model name of the provider.
	Model string
	// MaxTokens is the maximum number of tokens to generate in a tool round.
	MaxTokens int
	// Temperature is the temperature for sampling in a tool round.
	Temperature float64
	// ToolChoice is the tool choice of a tool round.
	ToolChoice llms.ToolChoice

	// FinalMaxTokens and FinalTemperature are used for the forced final answer.
	FinalMaxTokens   int
	FinalTemperature float64

	// RequestTimeout bounds each provider request.
	RequestTimeout time.Duration
	// ToolTimeout bounds each tool invocation.
	ToolTimeout time.Duration

	// Callback is notified about the progress of the run.
	Callback Callback
	// Store keeps the history between runs of the same chat.
	Store store.MessageStore
}

// NewConfig returns the config with defaults and the options applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		SystemPrompt:     prompts.NewPromptTemplate(DefaultSystemPrompt, nil),
		MaxRounds:        DefaultMaxRounds,
		MaxTokens:        DefaultMaxTokens,
		Temperature:      DefaultTemperature,
		ToolChoice:       llms.ToolChoiceAuto,
		FinalMaxTokens:   DefaultFinalMaxTokens,
		FinalTemperature: DefaultFinalTemperature,
		RequestTimeout:   DefaultRequestTimeout,
		ToolTimeout:      DefaultToolTimeout,
	}
	cfg.Apply(opts...)
	return cfg
}

// Apply applies the options.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Clone returns a copy of the config with the options applied.
func (c *Config) Clone(opts ...Option) *Config {
	clone := *c
	clone.Apply(opts...)
	return &clone
}

// GetCallOptions returns the provider options of a tool round.
func (c *Config) GetCallOptions(tools []llms.Tool) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithMaxTokens(c.MaxTokens),
		llms.WithTemperature(c.Temperature),
	}
	if c.Model != "" {
		opts = append(opts, llms.WithModel(c.Model))
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools), llms.WithToolChoice(c.ToolChoice))
	}
	return opts
}

// GetFinalCallOptions returns the provider options of the forced final answer:
// tools are declared but disabled, and the answer is plain text.
func (c *Config) GetFinalCallOptions(tools []llms.Tool) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithMaxTokens(c.FinalMaxTokens),
		llms.WithTemperature(c.FinalTemperature),
		llms.WithResponseFormat(schema.ResponseFormatText),
	}
	if c.Model != "" {
		opts = append(opts, llms.WithModel(c.Model))
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools), llms.WithToolChoice(llms.ToolChoiceNone))
	}
	return opts
}

// WithSystemPrompt sets the go-template of the system prompt.
func WithSystemPrompt(template string) Option {
	return func(o *Config) {
		o.SystemPrompt = prompts.NewPromptTemplate(template, nil)
	}
}

// WithPromptTemplate sets the system prompt template.
func WithPromptTemplate(tpl prompts.PromptTemplate) Option {
	return func(o *Config) {
		o.SystemPrompt = tpl
	}
}

// WithPromptInput is an option that allows the user to specify the system prompt input.
func WithPromptInput(input map[string]any) Option {
	return func(o *Config) {
		o.PromptInput = input
	}
}

// WithMaxRounds sets the limit of tool rounds.
func WithMaxRounds(n int) Option {
	return func(o *Config) {
		o.MaxRounds = n
	}
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
	}
}

// WithMaxTokens sets the max tokens of a tool round.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature sets the temperature of a tool round.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
	}
}

// WithToolChoice sets the tool choice of a tool round.
func WithToolChoice(choice llms.ToolChoice) Option {
	return func(o *Config) {
		o.ToolChoice = choice
	}
}

// WithFinalAnswer sets the options of the forced final answer.
func WithFinalAnswer(maxTokens int, temperature float64) Option {
	return func(o *Config) {
		o.FinalMaxTokens = maxTokens
		o.FinalTemperature = temperature
	}
}

// WithRequestTimeout bounds each provider request.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Config) {
		o.RequestTimeout = d
	}
}

// WithToolTimeout bounds each tool invocation.
func WithToolTimeout(d time.Duration) Option {
	return func(o *Config) {
		o.ToolTimeout = d
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callback Callback) Option {
	return func(o *Config) {
		o.Callback = callback
	}
}

// WithStore sets the history store.
func WithStore(st store.MessageStore) Option {
	return func(o *Config) {
		o.Store = st
	}
}
