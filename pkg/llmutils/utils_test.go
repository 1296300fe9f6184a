package llmutils_test

import (
	"strings"
	"testing"

	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func Test_EnsureNewline(t *testing.T) {
	assert.Equal(t, "", llmutils.EnsureEndsWithNewline(" \n"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline(" \nHello"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline("\nHello\n"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline("Hello\n\n"))
	assert.Equal(t, "Hello\n", llmutils.EnsureEndsWithNewline("Hello\n\n\n"))
}

func Test_ToJSON(t *testing.T) {
	type Person struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	p := Person{Name: "John", Age: 30}
	assert.Equal(t, `{"name":"John","age":30}`, llmutils.ToJSON(p))
	assert.Equal(t, "{\n\t\"name\": \"John\",\n\t\"age\": 30\n}", llmutils.ToJSONIndent(p))
}

func Test_ToYAML(t *testing.T) {
	type Person struct {
		Name string `yaml:"name"`
		Age  int    `yaml:"age"`
	}
	p := Person{Name: "John", Age: 30}
	assert.Equal(t, "name: John\nage: 30\n", llmutils.ToYAML(p))
}

func Test_CountMessagesContentSize(t *testing.T) {
	msgs := []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "Hello"),
		llms.MessageFromToolCalls(llms.RoleAI, "", llms.ToolCall{
			ID:           "1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: "top_song", Arguments: `{}`},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "1", Name: "top_song", Content: "ok"}),
	}
	// human(5)+Hello(5) + ai(2)+1+function(8)+top_song(8)+{}(2) + tool(4)+1+top_song(8)+ok(2)
	assert.Equal(t, uint64(46), llmutils.CountMessagesContentSize(msgs))
	assert.Equal(t, uint64(0), llmutils.CountMessagesContentSize(nil))
}

func Test_CountResponseContentSize(t *testing.T) {
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content: "Hello world",
				ToolCalls: []llms.ToolCall{
					{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "x", Arguments: "{}"}},
				},
			},
		},
	}
	assert.Equal(t, uint64(11+1+8+1+2), llmutils.CountResponseContentSize(resp))
	assert.Equal(t, uint64(0), llmutils.CountResponseContentSize(nil))
}

func Test_CountTokens(t *testing.T) {
	in, out, total := llmutils.CountTokens(&llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{GenerationInfo: map[string]any{"InputTokens": 10, "OutputTokens": 5, "TotalTokens": 15}},
			{GenerationInfo: map[string]any{"PromptTokens": 3, "CompletionTokens": 2, "TotalTokens": 5}},
		},
	})
	assert.Equal(t, int64(13), in)
	assert.Equal(t, int64(7), out)
	assert.Equal(t, int64(20), total)

	in, out, total = llmutils.CountTokens(nil)
	assert.Zero(t, in+out+total)
}

func TestPrintMessages(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		messages []llms.Message
		expected string
	}{
		{
			name:     "No messages",
			messages: []llms.Message{},
			expected: "",
		},
		{
			name: "Mixed messages",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleSystem, "Please be polite."),
				llms.MessageFromTextParts(llms.RoleHuman, "Hello, how are you?"),
				llms.MessageFromToolCalls(llms.RoleAI, "Let me check", llms.ToolCall{ID: "1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "tool1", Arguments: "{}"}}),
				llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "1", Name: "tool1", Content: "tool1 result"}),
				llms.MessageFromTextParts(llms.RoleAI, "I'm doing great!"),
			},
			expected: `System: Please be polite.
Human: Hello, how are you?
AI: Let me check
Tool Call: {"type":"tool_call","tool_call":{"id":"1","type":"function","function":{"name":"tool1","arguments":"{}"}}}
Tool: Response: {"type":"tool_response","tool_response":{"tool_call_id":"1","name":"tool1","content":"tool1 result"}}
AI: I'm doing great!
`, //nolint:lll
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf strings.Builder
			llmutils.PrintMessages(&buf, tc.messages)
			assert.Equal(t, tc.expected, buf.String())
		})
	}
}
