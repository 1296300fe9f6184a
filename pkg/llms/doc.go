// Package llms provides the provider-agnostic conversation model shared by the
// orchestrator and the provider adapters.
//
// Each subpackage includes a provider adapter that converts the messages and
// call options into the provider's request shape and decomposes the response
// back into text segments and tool calls.
//
// The `llms.go` file contains the types and interfaces for interacting with different LLMs.
//
// The `options.go` file provides various options and functions to configure the LLMs.
package llms
