package chatmodel

import (
	"fmt"
)

// EventType is the kind of the stream event.
type EventType string

// Stream event types
const (
	EventText       EventType = "text"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventError      EventType = "error"
	EventDone       EventType = "done"
)

// StreamEvent is one unit of observable output of a conversation run.
// Only the fields of the event Type are set.
type StreamEvent struct {
	Type EventType `json:"type" yaml:"type" toml:"type"`

	// Content and Final are set for text events.
	// Final is false for text that precedes tool calls or a forced final answer.
	Content string `json:"content,omitempty" yaml:"content,omitempty" toml:"content,omitempty"`
	Final   bool   `json:"final,omitempty" yaml:"final,omitempty" toml:"final,omitempty"`

	// Name and CallID are set for tool_call and tool_result events.
	Name   string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	CallID string `json:"call_id,omitempty" yaml:"call_id,omitempty" toml:"call_id,omitempty"`
	// Args are the parsed arguments of a tool call,
	// RawArgs is the serialized form sent by the model.
	Args    map[string]any `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
	RawArgs string         `json:"raw_args,omitempty" yaml:"raw_args,omitempty" toml:"raw_args,omitempty"`
	// Result is set for tool_result events.
	Result string `json:"result,omitempty" yaml:"result,omitempty" toml:"result,omitempty"`

	// Message is set for error events.
	Message string `json:"message,omitempty" yaml:"message,omitempty" toml:"message,omitempty"`
}

// TextEvent returns a text event.
func TextEvent(content string, final bool) StreamEvent {
	return StreamEvent{Type: EventText, Content: content, Final: final}
}

// ToolCallEvent returns a tool_call event.
func ToolCallEvent(callID, name, rawArgs string, args map[string]any) StreamEvent {
	return StreamEvent{Type: EventToolCall, CallID: callID, Name: name, RawArgs: rawArgs, Args: args}
}

// ToolResultEvent returns a tool_result event.
func ToolResultEvent(callID, name, result string) StreamEvent {
	return StreamEvent{Type: EventToolResult, CallID: callID, Name: name, Result: result}
}

// ErrorEvent returns an error event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}

// DoneEvent returns the terminal event.
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

func (e StreamEvent) String() string {
	switch e.Type {
	case EventText:
		if e.Final {
			return fmt.Sprintf("text(final): %s", e.Content)
		}
		return fmt.Sprintf("text: %s", e.Content)
	case EventToolCall:
		return fmt.Sprintf("tool_call: %s %s", e.Name, e.RawArgs)
	case EventToolResult:
		return fmt.Sprintf("tool_result: %s: %s", e.Name, e.Result)
	case EventError:
		return fmt.Sprintf("error: %s", e.Message)
	default:
		return string(e.Type)
	}
}
