package llms_test

import (
	"encoding/json"
	"testing"

	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParts(t *testing.T) {
	t.Parallel()
	type args struct {
		role  llms.Role
		parts []string
	}
	tests := []struct {
		name string
		args args
		want llms.Message
	}{
		{
			"basics",
			args{
				llms.RoleHuman,
				[]string{"a", "b", "c"},
			},
			llms.Message{
				Role: llms.RoleHuman,
				Parts: []llms.ContentPart{
					llms.TextContent{Text: "a"},
					llms.TextContent{Text: "b"},
					llms.TextContent{Text: "c"},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mc := llms.MessageFromTextParts(tt.args.role, tt.args.parts...)
			assert.Equal(t, tt.want, mc)
			assert.Equal(t, "a\nb\nc", mc.GetText())
		})
	}
}

func TestMessageFromToolCalls(t *testing.T) {
	t.Parallel()
	fc := &llms.FunctionCall{Name: "top_song", Arguments: `{"genre":"pop"}`}
	calls := []llms.ToolCall{{ID: "1", Type: "function", FunctionCall: fc}}

	msg := llms.MessageFromToolCalls(llms.RoleAI, "checking", calls...)
	assert.Equal(t, llms.RoleAI, msg.Role)
	assert.Len(t, msg.Parts, 2)
	assert.Equal(t, "checking", msg.GetText())

	// the function call is copied
	tc := msg.Parts[1].(llms.ToolCall)
	fc.Name = "changed"
	assert.Equal(t, "top_song", tc.FunctionCall.Name)

	msg = llms.MessageFromToolCalls(llms.RoleAI, "", calls...)
	assert.Len(t, msg.Parts, 1)
	assert.True(t, llms.HasToolParts([]llms.Message{msg}))
	assert.False(t, llms.HasToolParts([]llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")}))
}

func TestContentChoice(t *testing.T) {
	t.Parallel()
	c := &llms.ContentChoice{}
	c.AddText("")
	c.AddText("one")
	c.AddText("two")
	assert.Equal(t, []string{"one", "two"}, c.TextParts)
	assert.Equal(t, "one\ntwo", c.Content)
	assert.False(t, c.WantsTools())

	c.ToolCalls = []llms.ToolCall{{ID: "1", FunctionCall: &llms.FunctionCall{Name: "x"}}}
	assert.False(t, c.WantsTools())
	c.StopReason = llms.StopReasonToolUse
	assert.True(t, c.WantsTools())
}

func TestMessageJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		msg     llms.Message
		js      string
		content string
	}{
		{
			"single_text",
			llms.MessageFromTextParts(llms.RoleHuman, "a"),
			`{"role":"human","text":"a"}`,
			"a\n",
		},
		{
			"text",
			llms.MessageFromTextParts(llms.RoleHuman, "a", "b"),
			`{"role":"human","parts":[{"text":"a","type":"text"},{"text":"b","type":"text"}]}`,
			"a\nb\n",
		},
		{
			"tool_call",
			llms.MessageFromToolCalls(llms.RoleAI, "", llms.ToolCall{
				ID:           "1",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "top_song", Arguments: `{}`},
			}),
			`{"role":"ai","parts":[{"type":"tool_call","tool_call":{"id":"1","type":"function","function":{"name":"top_song","arguments":"{}"}}}]}`,
			`Tool Call: {"type":"tool_call","tool_call":{"id":"1","type":"function","function":{"name":"top_song","arguments":"{}"}}}` + "\n",
		},
		{
			"tool_response",
			llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
				ToolCallID: "1",
				Name:       "top_song",
				Content:    "boom",
				IsError:    true,
			}),
			`{"role":"tool","parts":[{"type":"tool_response","tool_response":{"tool_call_id":"1","name":"top_song","content":"boom","is_error":true}}]}`,
			`Response: {"type":"tool_response","tool_response":{"tool_call_id":"1","name":"top_song","content":"boom","is_error":true}}` + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			js, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.js, string(js))
			assert.Equal(t, tt.content, tt.msg.GetContent())

			var m llms.Message
			require.NoError(t, json.Unmarshal(js, &m))
			assert.Equal(t, tt.msg, m)
		})
	}

	var m llms.Message
	err := json.Unmarshal([]byte(`{"role":"ai","parts":[{"type":"video"}]}`), &m)
	assert.EqualError(t, err, "unknown content part type: video")
	err = json.Unmarshal([]byte(`{"role":"ai","parts":[{"type":"tool_call"}]}`), &m)
	assert.EqualError(t, err, "tool_call field is required for tool_call type")
}
