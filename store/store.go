// Package store keeps the conversation history of chats between runs.
// The chat is identified by the chat context of the request.
package store

import (
	"context"
	"time"

	"github.com/effective-security/mcphub/pkg/llms"
)

// ChatInfo describes a stored chat.
type ChatInfo struct {
	ChatID    string    `json:"chat_id" yaml:"chat_id"`
	Messages  int       `json:"messages" yaml:"messages"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// MessageStore is the history of chats.
// All methods return chatmodel.ErrInvalidChatContext if ctx has no chat.
type MessageStore interface {
	// Messages returns the history of the chat.
	Messages(ctx context.Context) []llms.Message
	// Add appends messages to the history of the chat.
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset removes the history of the chat.
	Reset(ctx context.Context) error
	// GetChatInfo returns the info of the chat,
	// the chat of ctx is used if chatID is empty.
	GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error)
	// ListChats returns IDs of stored chats.
	ListChats(ctx context.Context) ([]string, error)
}
