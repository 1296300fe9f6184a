package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// JSON models following OpenAI schema

// MessageJSON represents the JSON structure for Message
type MessageJSON struct {
	Role  Role              `json:"role"`
	Text  string            `json:"text,omitempty"`
	Parts []json.RawMessage `json:"parts,omitempty"`
}

// ContentPartJSON represents the JSON structure for content parts
type ContentPartJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ToolCall     *ToolCallJSON     `json:"tool_call,omitempty"`
	ToolResponse *ToolResponseJSON `json:"tool_response,omitempty"`
}

// ToolCallJSON represents the JSON structure for tool call content
type ToolCallJSON struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	FunctionCall *FunctionCall `json:"function"`
}

// ToolResponseJSON represents the JSON structure for tool response content
type ToolResponseJSON struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// TextContentJSON represents the JSON structure for text content
type TextContentJSON struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// ToolCallContentJSON represents the JSON structure for tool call content
type ToolCallContentJSON struct {
	Type     string       `json:"type"`
	ToolCall ToolCallJSON `json:"tool_call"`
}

// ToolResponseContentJSON represents the JSON structure for tool response content
type ToolResponseContentJSON struct {
	Type         string           `json:"type"`
	ToolResponse ToolResponseJSON `json:"tool_response"`
}

// MarshalJSON implements json.Marshaler for TextContent
func (tc TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(TextContentJSON{Text: tc.Text, Type: "text"})
}

// MarshalJSON implements json.Marshaler for ToolCall
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToolCallContentJSON{
		Type: "tool_call",
		ToolCall: ToolCallJSON{
			ID:           tc.ID,
			Type:         tc.Type,
			FunctionCall: tc.FunctionCall,
		},
	})
}

// MarshalJSON implements json.Marshaler for ToolCallResponse
func (tc ToolCallResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToolResponseContentJSON{
		Type: "tool_response",
		ToolResponse: ToolResponseJSON{
			ToolCallID: tc.ToolCallID,
			Name:       tc.Name,
			Content:    tc.Content,
			IsError:    tc.IsError,
		},
	})
}

// MarshalJSON implements json.Marshaler for Message
func (m Message) MarshalJSON() ([]byte, error) {
	// Special case: single text part can be simplified
	if len(m.Parts) == 1 {
		if tp, ok := m.Parts[0].(TextContent); ok {
			return json.Marshal(struct {
				Role Role   `json:"role"`
				Text string `json:"text"`
			}{Role: m.Role, Text: tp.Text})
		}
	}
	return json.Marshal(struct {
		Role  Role          `json:"role"`
		Parts []ContentPart `json:"parts"`
	}{Role: m.Role, Parts: m.Parts})
}

// UnmarshalJSON implements json.Unmarshaler for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	var msgJSON MessageJSON
	if err := json.Unmarshal(data, &msgJSON); err != nil {
		return err
	}

	m.Role = msgJSON.Role
	m.Parts = nil

	if msgJSON.Text != "" {
		m.Parts = []ContentPart{TextContent{Text: msgJSON.Text}}
		return nil
	}

	for _, raw := range msgJSON.Parts {
		var partJSON ContentPartJSON
		if err := json.Unmarshal(raw, &partJSON); err != nil {
			return err
		}
		part, err := unmarshalContentPart(partJSON)
		if err != nil {
			return err
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

// unmarshalContentPart converts ContentPartJSON to ContentPart
func unmarshalContentPart(partJSON ContentPartJSON) (ContentPart, error) {
	switch partJSON.Type {
	case "text", "":
		return TextContent{Text: partJSON.Text}, nil
	case "tool_call":
		if partJSON.ToolCall == nil {
			return nil, errors.New("tool_call field is required for tool_call type")
		}
		return ToolCall{
			ID:           partJSON.ToolCall.ID,
			Type:         partJSON.ToolCall.Type,
			FunctionCall: partJSON.ToolCall.FunctionCall,
		}, nil
	case "tool_response":
		if partJSON.ToolResponse == nil {
			return nil, errors.New("tool_response field is required for tool_response type")
		}
		return ToolCallResponse{
			ToolCallID: partJSON.ToolResponse.ToolCallID,
			Name:       partJSON.ToolResponse.Name,
			Content:    partJSON.ToolResponse.Content,
			IsError:    partJSON.ToolResponse.IsError,
		}, nil
	default:
		return nil, errors.Newf("unknown content part type: %s", partJSON.Type)
	}
}
