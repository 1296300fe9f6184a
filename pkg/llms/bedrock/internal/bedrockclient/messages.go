package bedrockclient

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/pkg/llms"
)

// roleSystem is not a conversation role in Converse
const roleSystem types.ConversationRole = "system"

// processInputMessages converts the messages to the Converse messages,
// merging adjacent messages of the same role.
// Returns the messages and the system prompt.
func processInputMessages(messages []Message) ([]types.Message, []types.SystemContentBlock, error) {
	var chunks [][]Message
	var current []Message
	var lastRole types.ConversationRole
	for _, message := range messages {
		role, err := getRole(message.Role)
		if err != nil {
			return nil, nil, err
		}
		if role != lastRole && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
		}
		current = append(current, message)
		lastRole = role
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}

	var system []types.SystemContentBlock
	res := make([]types.Message, 0, len(chunks))
	for _, chunk := range chunks {
		role, _ := getRole(chunk[0].Role)
		if role == roleSystem {
			for _, message := range chunk {
				if message.Type != MessageTypeText {
					return nil, nil, errors.New("bedrock: system prompt must be text")
				}
				system = append(system, &types.SystemContentBlockMemberText{Value: message.Content})
			}
			continue
		}

		content := make([]types.ContentBlock, 0, len(chunk))
		for _, message := range chunk {
			block, err := getContentBlock(message)
			if err != nil {
				return nil, nil, err
			}
			if block != nil {
				content = append(content, block)
			}
		}
		if len(content) == 0 {
			continue
		}
		res = append(res, types.Message{
			Role:    role,
			Content: content,
		})
	}
	return res, system, nil
}

func getRole(role llms.Role) (types.ConversationRole, error) {
	switch role {
	case llms.RoleSystem:
		return roleSystem, nil
	case llms.RoleAI:
		return types.ConversationRoleAssistant, nil
	case llms.RoleHuman, llms.RoleTool:
		return types.ConversationRoleUser, nil
	default:
		return "", errors.Wrapf(llms.ErrUnexpectedRole, "bedrock: role %q", role)
	}
}

func getContentBlock(message Message) (types.ContentBlock, error) {
	switch message.Type {
	case MessageTypeText:
		if message.Content == "" {
			return nil, nil
		}
		return &types.ContentBlockMemberText{Value: message.Content}, nil
	case MessageTypeToolUse:
		input := map[string]any{}
		if message.ToolInput != "" {
			if err := json.Unmarshal([]byte(message.ToolInput), &input); err != nil || input == nil {
				// the model sent malformed arguments, which were reported to it in the tool result
				input = map[string]any{}
			}
		}
		return &types.ContentBlockMemberToolUse{
			Value: types.ToolUseBlock{
				ToolUseId: aws.String(message.ToolCallID),
				Name:      aws.String(message.ToolName),
				Input:     document.NewLazyDocument(input),
			},
		}, nil
	case MessageTypeToolResult:
		block := types.ToolResultBlock{
			ToolUseId: aws.String(message.ToolCallID),
			Content: []types.ToolResultContentBlock{
				&types.ToolResultContentBlockMemberText{Value: message.Content},
			},
		}
		if message.IsError {
			block.Status = types.ToolResultStatusError
		}
		return &types.ContentBlockMemberToolResult{Value: block}, nil
	default:
		return nil, errors.Newf("bedrock: unsupported message type %q", message.Type)
	}
}
