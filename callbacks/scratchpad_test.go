package callbacks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testModel struct{}

func (m *testModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }
func (m *testModel) GetName() string                    { return "gpt-test" }
func (m *testModel) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}

func newTestChatContext() (context.Context, chatmodel.ChatContext) {
	chatCtx := chatmodel.NewChatContext("chatid")
	ctx := chatmodel.WithChatContext(context.Background(), chatCtx)
	return ctx, chatCtx
}

func TestScratchpad_StartRun_EndRun(t *testing.T) {
	t.Parallel()
	sp := NewScratchpad(ModeVerbose)
	ctx, cctx := newTestChatContext()
	sp.StartRun(ctx)
	r := sp.runs[cctx.GetChatID()]
	require.NotNil(t, r)
	assert.Equal(t, "1", r.stats.RunID)
	r.stats.ToolsCalls = 3
	r.stats.ToolsCallsFailed = 2
	r.stats.ToolNotFound = 1
	r.stats.LLMCalls = 1
	r.stats.TotalMessages = 4
	r.stats.LLMBytesOut = 10
	r.stats.LLMBytesIn = 11

	stats, buf := sp.EndRun(ctx)
	require.NotNil(t, stats)
	out := string(buf)
	assert.Contains(t, out, "Run Started")
	assert.Contains(t, out, "Run Ended")
	assert.Contains(t, out, "Tool calls: 3, Failed: 2, Not Found: 1")
	assert.Contains(t, out, "LLM calls: 1, Failed: 0, Messages: 4, Bytes Out: 10, Bytes In: 11, Bytes Total: 21")
	_, ok := sp.runs[cctx.GetChatID()]
	assert.False(t, ok)

	// EndRun with no run
	s2, _ := sp.EndRun(ctx)
	assert.Nil(t, s2)

	// the next run of the chat
	sp.StartRun(ctx)
	assert.Equal(t, "2", sp.runs[cctx.GetChatID()].stats.RunID)
}

func TestScratchpad_getRun_nil(t *testing.T) {
	t.Parallel()
	sp := NewScratchpad(ModeDefault)
	assert.Nil(t, sp.getRun(context.Background()))
	ctx, _ := newTestChatContext()
	assert.Nil(t, sp.getRun(ctx))

	// no chat context
	sp.StartRun(context.Background())
	assert.Empty(t, sp.runs)
}

func TestScratchpad_OnCallbacks(t *testing.T) {
	t.Parallel()
	sp := NewScratchpad(ModeVerbose)
	ctx, _ := newTestChatContext()
	sp.StartRun(ctx)

	llm := &testModel{}
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "foo"),
		llms.MessageFromToolCalls(llms.RoleAI, "", llms.ToolCall{ID: "c1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "T1", Arguments: "{}"}}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "c1", Name: "T1", Content: "ok"}),
	}
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:        "Answer 1",
			GenerationInfo: map[string]any{"InputTokens": int64(5), "OutputTokens": int64(3), "TotalTokens": int64(8)},
		}},
	}

	sp.OnRunStart(ctx, "input")
	sp.OnLLMCallStart(ctx, llm, msgs)
	sp.OnLLMCallEnd(ctx, llm, resp)
	sp.OnLLMCallError(ctx, llm, errors.New("llmerr"))
	sp.OnToolStart(ctx, "T1", "tinput")
	sp.OnToolEnd(ctx, "T1", "tinput", "toutput")
	sp.OnToolError(ctx, "T1", "tinput", errors.New("terr"))
	sp.OnToolNotFound(ctx, "T2")
	sp.OnRunEnd(ctx, "input", "Answer 1", msgs)
	sp.OnRunError(ctx, "input", errors.New("fail"), msgs)

	stats, output := sp.EndRun(ctx)
	require.NotNil(t, stats)
	assert.Equal(t, uint32(1), stats.LLMCalls)
	assert.Equal(t, uint32(1), stats.LLMCallsFailed)
	assert.Equal(t, uint32(3), stats.TotalMessages)
	assert.Equal(t, uint64(5), stats.LLMInputTokens)
	assert.Equal(t, uint64(3), stats.LLMOutputTokens)
	assert.Equal(t, uint64(8), stats.LLMTotalTokens)
	assert.Equal(t, uint32(1), stats.ToolsCalls)
	assert.Equal(t, uint32(1), stats.ToolsCallsSucceeded)
	assert.Equal(t, uint32(1), stats.ToolsCallsFailed)
	assert.Equal(t, uint32(1), stats.ToolNotFound)

	outStr := string(output)
	assert.Contains(t, outStr, "Query: input")
	assert.Contains(t, outStr, "T1 *** Tool Start ***")
	assert.Contains(t, outStr, "T1 Output: toutput")
	assert.Contains(t, outStr, "T1 *** Tool End ***")
	assert.Contains(t, outStr, "*** LLM Call *** gpt-test model, 3 messages")
	assert.Contains(t, outStr, "5 input tokens, 3 output tokens, 8 total tokens")
	assert.Contains(t, outStr, "*** LLM Call Error *** gpt-test llmerr")
	assert.Contains(t, outStr, "*** Tool Not Found *** T2")
	assert.Contains(t, outStr, "Answer: Answer 1")
	assert.Contains(t, outStr, "*** Error *** fail")
	assert.Contains(t, outStr, "0 texts, 1 tool calls, 0 tool responses")
	assert.Contains(t, outStr, "ToolCallResponse: c1 (T1), response size: 2")

	// no run: the callbacks are ignored
	sp.OnRunStart(ctx, "input")
	sp.OnLLMCallStart(ctx, llm, nil)
	sp.OnLLMCallEnd(ctx, llm, resp)
	sp.OnLLMCallError(ctx, llm, errors.New("llmerr"))
	sp.OnToolStart(ctx, "T1", "tinput")
	sp.OnToolEnd(ctx, "T1", "tinput", "toutput")
	sp.OnToolError(ctx, "T1", "tinput", errors.New("terr2"))
	sp.OnToolNotFound(ctx, "T3")
	sp.OnRunEnd(ctx, "input", "", nil)
	sp.OnRunError(ctx, "input", errors.New("fail2"), nil)
}

func Test_run_print_format(t *testing.T) {
	r := &run{stats: RunStats{ChatID: "chatid", RunID: "3"}}
	oldTimeFn := TimeNowFn
	TimeNowFn = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { TimeNowFn = oldTimeFn }()

	r.print("hello", "again")
	lines := strings.Split(r.w.String(), "\n")
	assert.Equal(t, "2024-01-01 12:00:00 chatid.3 hello again", lines[0])
}
