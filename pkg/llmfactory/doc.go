// Package llmfactory creates provider adapters from configuration, supporting
// OpenAI, Azure OpenAI and Bedrock, and model selection by name or provider type.
package llmfactory
