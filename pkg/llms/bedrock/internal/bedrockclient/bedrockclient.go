package bedrockclient

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/google/uuid"
)

// ConverseAPI is the part of the Bedrock runtime client used by the adapter.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client is a Bedrock client.
type Client struct {
	client ConverseAPI
}

// Message is a chunk of text, a tool use or a tool result
// that will be sent to the provider.
type Message struct {
	Role    llms.Role
	Content string
	// Type may be "text", "tool_use", "tool_result"
	Type string
	// Tool-specific fields
	ToolCallID string // For tool use and tool results
	ToolName   string // For tool use
	ToolInput  string // For tool use (JSON)
	IsError    bool   // For tool results
}

// Type attribute for the message.
const (
	MessageTypeText       = "text"
	MessageTypeToolUse    = "tool_use"
	MessageTypeToolResult = "tool_result"
)

var regionPrefixes = map[string]bool{
	"us":     true,
	"eu":     true,
	"apac":   true,
	"jp":     true,
	"au":     true,
	"ca":     true,
	"global": true,
}

// getProvider returns the vendor of the model for direct model IDs
// (e.g., "anthropic.claude-3-sonnet-20240229-v1:0") and inference profiles
// (e.g., "us.anthropic.claude-3-5-sonnet-20241022-v2:0")
func getProvider(modelID string) string {
	parts := strings.Split(modelID, ".")
	if len(parts) >= 2 && regionPrefixes[parts[0]] {
		return parts[1]
	}
	return parts[0]
}

// NewClient creates a new Bedrock client.
func NewClient(client ConverseAPI) *Client {
	return &Client{
		client: client,
	}
}

// CreateCompletion sends the messages with the Converse API
// and decomposes the response into text segments and tool calls.
func (c *Client) CreateCompletion(ctx context.Context,
	modelID string,
	messages []Message,
	options llms.CallOptions,
) (*llms.ContentResponse, error) {
	if rf := options.ResponseFormat; rf != nil && rf.Type != "" && rf.Type != "text" {
		return nil, errors.Newf("bedrock: response format %q is not supported", rf.Type)
	}

	inputMessages, system, err := processInputMessages(messages)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: inputMessages,
		System:   system,
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(options.Temperature)),
		},
	}
	if options.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(options.MaxTokens))
	}

	toolConfig, err := getToolConfig(messages, options)
	if err != nil {
		return nil, err
	}
	input.ToolConfig = toolConfig

	output, err := c.client.Converse(ctx, input)
	if err != nil {
		return nil, err
	}
	return processOutput(modelID, output)
}

// getToolConfig returns the tool configuration for the request.
// Converse has no "none" tool choice: the tools are omitted,
// unless the history contains tool blocks which require the tool configuration.
func getToolConfig(messages []Message, options llms.CallOptions) (*types.ToolConfiguration, error) {
	if len(options.Tools) == 0 {
		return nil, nil
	}
	if options.ToolChoice == llms.ToolChoiceNone && !hasToolBlocks(messages) {
		return nil, nil
	}

	tools := make([]types.Tool, 0, len(options.Tools))
	for _, tool := range options.Tools {
		if tool.Function == nil {
			continue
		}
		schema, err := toSchemaMap(tool.Function.Parameters)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid schema for tool %q", tool.Function.Name)
		}
		tools = append(tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Function.Name),
				Description: aws.String(tool.Function.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(schema),
				},
			},
		})
	}
	if len(tools) == 0 {
		return nil, nil
	}
	return &types.ToolConfiguration{Tools: tools}, nil
}

func hasToolBlocks(messages []Message) bool {
	for _, m := range messages {
		if m.Type == MessageTypeToolUse || m.Type == MessageTypeToolResult {
			return true
		}
	}
	return false
}

func toSchemaMap(params any) (map[string]any, error) {
	m := map[string]any{}
	if params != nil {
		js, err := json.Marshal(params)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err = json.Unmarshal(js, &m); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	if m == nil {
		m = map[string]any{}
	}
	if _, ok := m["type"]; !ok {
		m["type"] = "object"
	}
	return m, nil
}

func processOutput(modelID string, output *bedrockruntime.ConverseOutput) (*llms.ContentResponse, error) {
	msg, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, errors.New("bedrock: no message in response")
	}

	choice := &llms.ContentChoice{
		StopReason:     string(output.StopReason),
		GenerationInfo: map[string]any{"Provider": getProvider(modelID)},
	}
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			choice.AddText(b.Value)
		case *types.ContentBlockMemberToolUse:
			args := "{}"
			if b.Value.Input != nil {
				js, err := b.Value.Input.MarshalSmithyDocument()
				if err != nil {
					return nil, errors.Wrap(err, "bedrock: failed to read tool input")
				}
				args = string(js)
			}
			id := aws.ToString(b.Value.ToolUseId)
			if id == "" {
				id = uuid.NewString()
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   id,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      aws.ToString(b.Value.Name),
					Arguments: args,
				},
			})
		}
	}

	if output.StopReason == types.StopReasonToolUse && len(choice.ToolCalls) > 0 {
		choice.StopReason = llms.StopReasonToolUse
	}

	if u := output.Usage; u != nil {
		in := int(aws.ToInt32(u.InputTokens))
		out := int(aws.ToInt32(u.OutputTokens))
		choice.GenerationInfo["InputTokens"] = in
		choice.GenerationInfo["OutputTokens"] = out
		choice.GenerationInfo["TotalTokens"] = in + out
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{choice},
	}, nil
}
