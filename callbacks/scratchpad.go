package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/llmutils"
)

var TimeNowFn = time.Now

// RunStats are the counters of one run.
type RunStats struct {
	ChatID string
	RunID  string

	Duration            time.Duration
	TotalMessages       uint32
	LLMBytesOut         uint64
	LLMBytesIn          uint64
	LLMInputTokens      uint64
	LLMOutputTokens     uint64
	LLMTotalTokens      uint64
	LLMCalls            uint32
	LLMCallsFailed      uint32
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
	ToolNotFound        uint32
}

// Scratchpad records the transcript and the stats of runs, per chat.
type Scratchpad struct {
	runs  map[string]*run
	count map[string]int
	mode  Mode
	lock  sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs:  make(map[string]*run),
		count: make(map[string]int),
		mode:  mode,
	}
}

// StartRun starts recording the run of the chat in ctx.
func (l *Scratchpad) StartRun(ctx context.Context) {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return
	}

	l.lock.Lock()
	l.count[chatID]++
	r := &run{
		stats: RunStats{
			ChatID: chatID,
			RunID:  strconv.Itoa(l.count[chatID]),
		},
		started: TimeNowFn(),
	}
	l.runs[chatID] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
}

// EndRun stops recording and returns the stats and the transcript of the run.
func (l *Scratchpad) EndRun(ctx context.Context) (*RunStats, []byte) {
	run := l.getRun(ctx)
	if run == nil {
		return nil, nil
	}

	stats := run.stats
	stats.Duration = TimeNowFn().Sub(run.started)

	run.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		stats.ToolsCalls,
		stats.ToolsCallsFailed,
		stats.ToolNotFound,
	))
	run.print(fmt.Sprintf("LLM calls: %d, Failed: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Bytes Total: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		stats.LLMCalls,
		stats.LLMCallsFailed,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
		stats.LLMBytesOut+stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))

	run.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	l.lock.Lock()
	delete(l.runs, stats.ChatID)
	l.lock.Unlock()

	return &stats, run.w.Bytes()
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatID]
}

func (l *Scratchpad) OnRunStart(ctx context.Context, query string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.print("Query:", query)
}

func (l *Scratchpad) OnRunEnd(ctx context.Context, query string, answer string, messages []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.print("Answer:", answer)
	if l.mode == ModeVerbose {
		run.print(l.printMessages(messages))
	}
}

func (l *Scratchpad) OnRunError(ctx context.Context, query string, err error, messages []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	run.print("*** Error ***", err.Error())
	run.print(l.printMessages(messages))
}

func (l *Scratchpad) printMessages(messages []llms.Message) string {
	var buf strings.Builder
	buf.WriteString("Messages:\n")
	for idx, msg := range messages {
		fmt.Fprintf(&buf, "[%d] %s:\n", idx, msg.Role)
		textParts := 0
		toolParts := 0
		toolResponseParts := 0
		for _, part := range msg.Parts {
			switch typ := part.(type) {
			case llms.TextContent:
				textParts++
			case llms.ToolCall:
				toolParts++
				buf.WriteString("  - ")
				buf.WriteString(typ.String())
				buf.WriteString("\n")
			case llms.ToolCallResponse:
				toolResponseParts++
				buf.WriteString("  - ")
				buf.WriteString(typ.String())
				buf.WriteString("\n")
			}
		}

		fmt.Fprintf(&buf, "  - %d texts, %d tool calls, %d tool responses\n", textParts, toolParts, toolResponseParts)
	}
	return buf.String()
}

func (l *Scratchpad) OnLLMCallStart(ctx context.Context, llm llms.Model, messages []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesOut, llmutils.CountMessagesContentSize(messages))
	atomic.AddUint32(&run.stats.LLMCalls, 1)
	count := uint32(len(messages))
	atomic.AddUint32(&run.stats.TotalMessages, count)

	run.print("*** LLM Call ***", fmt.Sprintf("%s model, %d messages", llm.GetName(), count))
	if l.mode == ModeVerbose {
		run.print(l.printMessages(messages))
	}
}

func (l *Scratchpad) OnLLMCallEnd(ctx context.Context, llm llms.Model, resp *llms.ContentResponse) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesIn, llmutils.CountResponseContentSize(resp))
	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	atomic.AddUint64(&run.stats.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&run.stats.LLMOutputTokens, uint64(tokensOut))
	atomic.AddUint64(&run.stats.LLMTotalTokens, uint64(tokensTotal))

	run.print("*** LLM Call End ***", fmt.Sprintf("%s model, %d input tokens, %d output tokens, %d total tokens", llm.GetName(), tokensIn, tokensOut, tokensTotal))
	if l.mode == ModeVerbose {
		for _, choice := range resp.Choices {
			if choice.Content != "" {
				run.print("Output:", choice.Content)
			}
		}
	}
}

func (l *Scratchpad) OnLLMCallError(ctx context.Context, llm llms.Model, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.LLMCallsFailed, 1)
	run.print("*** LLM Call Error ***", llm.GetName(), err.Error())
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool string, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCalls, 1)
	run.print(tool, "*** Tool Start ***")
	run.print(tool, "Input:", input)
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool string, input string, output string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		run.print(tool, "Output:", output)
	}
	run.print(tool, "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool string, input string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsFailed, 1)
	run.print(tool, "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, tool string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolNotFound, 1)
	run.print("*** Tool Not Found ***", tool)
}

type run struct {
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// timestamp chatID.runID entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.stats.ChatID)
	_, _ = r.w.WriteString(".")
	_, _ = r.w.WriteString(r.stats.RunID)
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
