// Package callbacks provides implementations of orchestrator.Callback:
// printing, logging, fan-out to many callbacks, and per-run transcripts.
package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/mcphub/orchestrator"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ orchestrator.Callback = (*Noop)(nil)
	_ orchestrator.Callback = (*Printer)(nil)
	_ orchestrator.Callback = (*PackageLogger)(nil)
	_ orchestrator.Callback = (*Fanout)(nil)
	_ orchestrator.Callback = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []orchestrator.Callback
}

func NewFanout(callbacks ...orchestrator.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback orchestrator.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnRunStart(ctx context.Context, query string) {
	for _, callback := range l.callbacks {
		callback.OnRunStart(ctx, query)
	}
}

func (l *Fanout) OnRunEnd(ctx context.Context, query string, answer string, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnRunEnd(ctx, query, answer, messages)
	}
}

func (l *Fanout) OnRunError(ctx context.Context, query string, err error, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnRunError(ctx, query, err, messages)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, llm, messages)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, llm, resp)
	}
}

func (l *Fanout) OnLLMCallError(ctx context.Context, llm llms.Model, err error) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallError(ctx, llm, err)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool string, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, input)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool string, input string, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, input, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool string, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, input, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, tool string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, tool)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnRunStart(ctx context.Context, query string)                                   {}
func (l *Noop) OnRunEnd(ctx context.Context, query string, answer string, msgs []llms.Message) {}
func (l *Noop) OnRunError(ctx context.Context, query string, err error, msgs []llms.Message)   {}
func (l *Noop) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message)    {}
func (l *Noop) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse)   {}
func (l *Noop) OnLLMCallError(ctx context.Context, llm llms.Model, err error)                  {}
func (l *Noop) OnToolStart(ctx context.Context, tool string, input string)                     {}
func (l *Noop) OnToolEnd(ctx context.Context, tool string, input string, output string)        {}
func (l *Noop) OnToolError(ctx context.Context, tool string, input string, err error)          {}
func (l *Noop) OnToolNotFound(ctx context.Context, tool string)                                {}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnRunStart(ctx context.Context, query string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run Start: %s\n", query)
}

func (l *Printer) OnRunEnd(ctx context.Context, query string, answer string, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run End: %d messages\n", len(messages))
	if l.Mode == ModeVerbose && answer != "" {
		fmt.Fprintf(l.Out, "Answer: %s\n", answer)
	}
}

func (l *Printer) OnRunError(ctx context.Context, query string, err error, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Run Error: %s\n", err.Error())
}

func (l *Printer) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s %s model, %d messages\n", llm.GetProviderType(), llm.GetName(), len(messages))
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call End: %s model, %d choices\n", llm.GetName(), len(resp.Choices))
	if l.Mode == ModeVerbose {
		for _, choice := range resp.Choices {
			if choice.Content != "" {
				fmt.Fprintln(l.Out, choice.Content)
			}
			for _, tc := range choice.ToolCalls {
				fmt.Fprintln(l.Out, tc.String())
			}
		}
	}
}

func (l *Printer) OnLLMCallError(ctx context.Context, llm llms.Model, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call Error: %s model: %s\n", llm.GetName(), err.Error())
}

func (l *Printer) OnToolStart(ctx context.Context, tool string, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s\n", tool)
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnToolEnd(ctx context.Context, tool string, input string, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s\n", tool)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", output)
	}
}

func (l *Printer) OnToolError(ctx context.Context, tool string, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", tool, err.Error())
}

func (l *Printer) OnToolNotFound(ctx context.Context, tool string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", tool)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnRunStart(ctx context.Context, query string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "run_start",
		"query", slices.StringUpto(query, 64),
	)
}

func (l *PackageLogger) OnRunEnd(ctx context.Context, query string, answer string, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "run_end",
		"messages", len(messages),
		"answer", slices.StringUpto(answer, 64),
	)
}

func (l *PackageLogger) OnRunError(ctx context.Context, query string, err error, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "run_error",
		"messages", len(messages),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"provider", llm.GetProviderType(),
		"model", llm.GetName(),
		"messages", len(messages),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"provider", llm.GetProviderType(),
		"model", llm.GetName(),
		"choices", len(resp.Choices),
	)
}

func (l *PackageLogger) OnLLMCallError(ctx context.Context, llm llms.Model, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "llm_call_error",
		"provider", llm.GetProviderType(),
		"model", llm.GetName(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool string, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", tool,
		"input", input,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool string, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", tool,
		"output", slices.StringUpto(output, 64),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool string, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", tool,
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, tool string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_not_found",
		"tool", tool,
	)
}
