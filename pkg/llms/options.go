package llms

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/pkg/schema"
)

// CallOption is a function that configures a CallOptions.
type CallOption func(*CallOptions)

// CallOptions is a set of options for calling models. Not all models support
// all options.
type CallOptions struct {
	// Model is the model to use.
	Model string
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int
	// Temperature is the temperature for sampling, between 0 and 2.
	Temperature float64
	// temperatureSet is true when WithTemperature was applied,
	// so zero is sent instead of the provider default.
	temperatureSet bool

	// Tools is the tool catalog presented to the model.
	Tools []Tool
	// ToolChoice is either "auto" (the default behavior) or "none".
	ToolChoice ToolChoice

	// ResponseFormat is a custom response format.
	// If it's not set the response is text.
	ResponseFormat *schema.ResponseFormat
}

// Tool is a tool that can be used by the model.
type Tool struct {
	// Type is the type of the tool.
	Type string `json:"type"`
	// Function is the function to call.
	Function *FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition is a definition of a function that can be called by the model.
type FunctionDefinition struct {
	// Name is the name of the function.
	Name string `json:"name"`
	// Description is a description of the function.
	Description string `json:"description"`
	// Parameters is the JSON schema of the function input.
	Parameters any `json:"parameters,omitempty"`
	// Strict is a flag to indicate if the function should be called strictly. Only used for openai llm structured output.
	Strict bool `json:"strict,omitempty"`
}

// ToolChoice controls whether the model may call tools.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone disables tool calls for the turn.
	ToolChoiceNone ToolChoice = "none"
)

// Validate returns an error if the options are out of range.
func (o *CallOptions) Validate() error {
	if o.MaxTokens <= 0 {
		return errors.Newf("max tokens must be positive: %d", o.MaxTokens)
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		return errors.Newf("temperature must be in [0,2]: %v", o.Temperature)
	}
	switch o.ToolChoice {
	case "", ToolChoiceAuto, ToolChoiceNone:
	default:
		return errors.Newf("unsupported tool choice: %q", o.ToolChoice)
	}
	return nil
}

// HasTemperature returns true if the temperature was set with WithTemperature.
func (o *CallOptions) HasTemperature() bool {
	return o.temperatureSet
}

// WithModel specifies which model name to use.
func WithModel(model string) CallOption {
	return func(o *CallOptions) {
		o.Model = model
	}
}

// WithMaxTokens specifies the max number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = maxTokens
	}
}

// WithTemperature specifies the model temperature, a hyperparameter that
// regulates the randomness, or creativity, of the AI's responses.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithOptions specifies options.
func WithOptions(options CallOptions) CallOption {
	return func(o *CallOptions) {
		(*o) = options
	}
}

// WithToolChoice will add an option to set the choice of tool to use.
func WithToolChoice(choice ToolChoice) CallOption {
	return func(o *CallOptions) {
		o.ToolChoice = choice
	}
}

// WithTools will add an option to set the tools to use.
func WithTools(tools []Tool) CallOption {
	return func(o *CallOptions) {
		o.Tools = tools
	}
}

// WithResponseFormat allows setting a custom response format.
func WithResponseFormat(responseFormat *schema.ResponseFormat) CallOption {
	return func(o *CallOptions) {
		o.ResponseFormat = responseFormat
	}
}
