package orchestrator

import (
	"context"

	"github.com/effective-security/mcphub/pkg/llms"
)

// Callback receives notifications about the progress of a run.
// The callback is invoked synchronously from the run loop.
type Callback interface {
	OnRunStart(ctx context.Context, query string)
	OnRunEnd(ctx context.Context, query string, answer string, messages []llms.Message)
	OnRunError(ctx context.Context, query string, err error, messages []llms.Message)

	OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message)
	OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse)
	OnLLMCallError(ctx context.Context, llm llms.Model, err error)

	OnToolStart(ctx context.Context, tool string, input string)
	OnToolEnd(ctx context.Context, tool string, input string, output string)
	OnToolError(ctx context.Context, tool string, input string, err error)
	OnToolNotFound(ctx context.Context, tool string)
}
