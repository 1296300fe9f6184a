package llms

import (
	"context"
)

//go:generate mockgen -source=llms.go -destination=../../mocks/mockllms/llms_mock.gen.go -package mockllms

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderAzure is Azure OpenAI chat completions.
	ProviderAzure ProviderType = "AZURE"
	// ProviderBedrock is AWS Bedrock Converse.
	ProviderBedrock ProviderType = "BEDROCK"
	// ProviderOpenAI is OpenAI chat completions.
	ProviderOpenAI ProviderType = "OPENAI"
)

// Model is an interface a provider adapter implements.
type Model interface {
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GetName returns the model name or deployment ID.
	GetName() string
	// GenerateContent sends one turn of the conversation to the model:
	// the full message history plus the tool catalog in options.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// Basic text or chat generation
	CapabilityText Capability = 1 << iota

	// Structured response formats
	CapabilityJSONResponse
	CapabilityJSONSchema

	// Function/tool calling
	CapabilityFunctionCalling
	CapabilityMultiToolCalling
	// CapabilityToolChoiceNone means the provider can be asked
	// to answer without calling tools while tools are declared.
	CapabilityToolChoiceNone

	// CapabilityForcedFinalAnswer means the provider needs an extra turn
	// with tools disabled to produce a clean answer after tool rounds.
	CapabilityForcedFinalAnswer

	// System prompt support
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityJSONResponse |
		CapabilityJSONSchema |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilityToolChoiceNone |
		CapabilityForcedFinalAnswer |
		CapabilitySystemPrompt,

	ProviderAzure: CapabilityText |
		CapabilityJSONResponse |
		CapabilityJSONSchema |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilityToolChoiceNone |
		CapabilityForcedFinalAnswer |
		CapabilitySystemPrompt,

	// Converse API
	ProviderBedrock: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,
}

// ProviderCapabilities returns the capabilities of the provider.
func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

// Supports returns true if the provider supports the capability.
func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}
