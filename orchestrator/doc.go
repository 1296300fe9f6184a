// Package orchestrator runs the conversation loop between a language model
// and the tools of connected tool servers.
//
// A run asks the model, invokes the tools it requested, feeds the results back
// and asks again until the model answers without tools. Progress is streamed
// to the caller as a sequence of chatmodel.StreamEvent values that always ends
// with exactly one done event.
package orchestrator
