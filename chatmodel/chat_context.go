package chatmodel

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ChatContext identifies a conversation across runs.
type ChatContext interface {
	// GetChatID returns the conversation ID
	GetChatID() string
	// NextRun increments and returns the number of runs in the chat
	NextRun() uint32
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	chatID   string
	runs     atomic.Uint32
	metadata sync.Map
}

func (c *chatContext) GetChatID() string {
	return c.chatID
}

func (c *chatContext) NextRun() uint32 {
	return c.runs.Add(1)
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewChatContext returns a chat context,
// a new chat ID is generated if chatID is empty.
func NewChatContext(chatID string) ChatContext {
	return &chatContext{
		chatID: values.StringsCoalesce(chatID, NewChatID()),
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// GetChatID retrieves the chat ID from the provided context.
// If the context does not contain a ChatContext, it returns an empty string.
func GetChatID(ctx context.Context) string {
	if v := GetChatContext(ctx); v != nil {
		return v.GetChatID()
	}
	return ""
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
