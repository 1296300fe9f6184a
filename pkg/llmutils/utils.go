package llmutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/x/values"
	"gopkg.in/yaml.v3"
)

func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

func ToJSONIndent(val any) string {
	js, _ := json.MarshalIndent(val, "", "\t")
	return string(js)
}

func ToYAML(val any) string {
	js, _ := yaml.Marshal(val)
	return string(js)
}

var roleLabels = map[llms.Role]string{
	llms.RoleSystem: "System",
	llms.RoleHuman:  "Human",
	llms.RoleAI:     "AI",
	llms.RoleTool:   "Tool",
}

// PrintMessages writes a readable transcript of the messages.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, mc := range msgs {
		label, ok := roleLabels[mc.Role]
		if !ok {
			label = string(mc.Role)
		}
		fmt.Fprintf(w, "%s: %s", label, mc.GetContent())
	}
}

// CountMessagesContentSize counts the size of the content in the messages
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, mc := range msgs {
		size += uint64(len(mc.Role))
		for _, p := range mc.Parts {
			switch pp := p.(type) {
			case llms.TextContent:
				size += uint64(len(pp.Text))
			case llms.ToolCall:
				size += uint64(len(pp.ID))
				size += uint64(len(pp.Type))
				if pp.FunctionCall != nil {
					size += uint64(len(pp.FunctionCall.Name))
					size += uint64(len(pp.FunctionCall.Arguments))
				}
			case llms.ToolCallResponse:
				size += uint64(len(pp.ToolCallID))
				size += uint64(len(pp.Name))
				size += uint64(len(pp.Content))
			}
		}
	}
	return size
}

// CountResponseContentSize counts the size of the content in the content response
func CountResponseContentSize(resp *llms.ContentResponse) uint64 {
	var size uint64
	if resp == nil {
		return size
	}
	for _, choice := range resp.Choices {
		size += uint64(len(choice.Content))
		for _, toolCall := range choice.ToolCalls {
			size += uint64(len(toolCall.ID))
			size += uint64(len(toolCall.Type))
			if toolCall.FunctionCall != nil {
				size += uint64(len(toolCall.FunctionCall.Name))
				size += uint64(len(toolCall.FunctionCall.Arguments))
			}
		}
	}
	return size
}

// CountTokens returns the token usage reported in GenerationInfo,
// Converse reports Input/Output tokens, chat completions reports Prompt/Completion tokens.
func CountTokens(resp *llms.ContentResponse) (in, out, total int64) {
	if resp == nil {
		return
	}
	for _, choice := range resp.Choices {
		ma := values.MapAny(choice.GenerationInfo)
		in += ma.Int64("InputTokens") + ma.Int64("PromptTokens")
		out += ma.Int64("OutputTokens") + ma.Int64("CompletionTokens")
		total += ma.Int64("TotalTokens")
	}
	return
}

// EnsureEndsWithNewline ensures the message ends with a newline,
// it also removes any extra leading and trailing spaces.
func EnsureEndsWithNewline(s string) string {
	s = strings.TrimSpace(s)
	c := len(s)
	if c == 0 {
		return s
	}
	if s[c-1] != '\n' {
		return s + "\n"
	}
	return s
}
