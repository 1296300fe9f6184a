package orchestrator

import (
	"context"
	"iter"
	"slices"

	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/store"
)

// Session is a multi-turn chat: each query sees the previous
// queries and answers of the session.
type Session struct {
	orch    *Orchestrator
	chatCtx chatmodel.ChatContext
	store   store.MessageStore
}

// NewSession returns a chat session, a new chat ID is generated if chatID is empty.
// The memory store is used if st is nil.
func (o *Orchestrator) NewSession(chatID string, st store.MessageStore) *Session {
	if st == nil {
		st = store.NewMemoryStore()
	}
	return &Session{
		orch:    o,
		chatCtx: chatmodel.NewChatContext(chatID),
		store:   st,
	}
}

// ChatID returns the ID of the chat.
func (s *Session) ChatID() string {
	return s.chatCtx.GetChatID()
}

// Context returns ctx with the chat context of the session.
func (s *Session) Context(ctx context.Context) context.Context {
	return chatmodel.WithChatContext(ctx, s.chatCtx)
}

// Run returns the events of the query in the chat.
func (s *Session) Run(ctx context.Context, query string, opts ...Option) iter.Seq[chatmodel.StreamEvent] {
	return s.orch.Run(s.Context(ctx), query, slices.Concat(opts, []Option{WithStore(s.store)})...)
}

// History returns the completed turns of the chat.
func (s *Session) History(ctx context.Context) []llms.Message {
	return s.store.Messages(s.Context(ctx))
}

// Reset clears the history of the chat.
func (s *Session) Reset(ctx context.Context) error {
	return s.store.Reset(s.Context(ctx))
}
