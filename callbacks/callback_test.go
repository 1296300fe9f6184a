package callbacks_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/effective-security/mcphub/callbacks"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
)

type fakeModel struct{}

func (m *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderBedrock }
func (m *fakeModel) GetName() string                    { return "test-model" }
func (m *fakeModel) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}

func testResponse() *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content: "test output",
				ToolCalls: []llms.ToolCall{
					{ID: "c1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "top_song", Arguments: `{"genre":"pop"}`}},
				},
			},
		},
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)
	ctx := context.Background()
	llm := &fakeModel{}
	msgs := []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "test input")}

	cb.OnRunStart(ctx, "test input")
	cb.OnLLMCallStart(ctx, llm, msgs)
	cb.OnLLMCallEnd(ctx, llm, testResponse())
	cb.OnLLMCallError(ctx, llm, errors.New("throttled"))
	cb.OnToolStart(ctx, "top_song", `{"genre":"pop"}`)
	cb.OnToolEnd(ctx, "top_song", `{"genre":"pop"}`, "Blinding Lights - The Weeknd")
	cb.OnToolError(ctx, "top_song", `{"genre":"pop"}`, errors.New("test error"))
	cb.OnToolNotFound(ctx, "top_songs")
	cb.OnRunEnd(ctx, "test input", "the answer", msgs)
	cb.OnRunError(ctx, "test input", errors.New("run failed"), msgs)

	res := buf.String()
	assert.Contains(t, res, "Run Start: test input\n")
	assert.Contains(t, res, "LLM Call: BEDROCK test-model model, 1 messages\n")
	assert.Contains(t, res, "LLM Call End: test-model model, 1 choices\ntest output\nToolCall: c1 (top_song), input: {\"genre\":\"pop\"}\n")
	assert.Contains(t, res, "LLM Call Error: test-model model: throttled\n")
	assert.Contains(t, res, "Tool Start: top_song\nInput: {\"genre\":\"pop\"}\n")
	assert.Contains(t, res, "Tool End: top_song\nOutput: Blinding Lights - The Weeknd\n")
	assert.Contains(t, res, "Tool Error: top_song: test error\n")
	assert.Contains(t, res, "Tool Not Found: top_songs\n")
	assert.Contains(t, res, "Run End: 1 messages\nAnswer: the answer\n")
	assert.Contains(t, res, "Run Error: run failed\n")

	buf.Reset()
	cb = callbacks.NewPrinter(&buf, callbacks.ModeDefault)
	cb.OnToolEnd(ctx, "top_song", "", "Blinding Lights - The Weeknd")
	assert.Equal(t, "Tool End: top_song\n", buf.String())
}

func TestFanout(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	ctx := context.Background()
	llm := &fakeModel{}

	fanout := callbacks.NewFanout(callbacks.NewPrinter(&buf1, callbacks.ModeDefault))
	fanout.Add(callbacks.NewPrinter(&buf2, callbacks.ModeDefault))
	fanout.Add(callbacks.NewNoop())
	fanout.Add(callbacks.NewPackageLogger(xlog.NewPackageLogger("github.com/effective-security/mcphub", "callbacks_test")))

	fanout.OnRunStart(ctx, "q")
	fanout.OnLLMCallStart(ctx, llm, nil)
	fanout.OnLLMCallEnd(ctx, llm, testResponse())
	fanout.OnLLMCallError(ctx, llm, errors.New("e"))
	fanout.OnToolStart(ctx, "t", "i")
	fanout.OnToolEnd(ctx, "t", "i", "o")
	fanout.OnToolError(ctx, "t", "i", errors.New("e"))
	fanout.OnToolNotFound(ctx, "x")
	fanout.OnRunEnd(ctx, "q", "a", nil)
	fanout.OnRunError(ctx, "q", errors.New("e"), nil)

	assert.NotEmpty(t, buf1.String())
	assert.Equal(t, buf1.String(), buf2.String())
	assert.Contains(t, buf1.String(), "Tool Not Found: x")
}
