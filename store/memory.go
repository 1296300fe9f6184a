package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/x/values"
)

// TimeNowFn is used for the chat timestamps.
var TimeNowFn = time.Now

type chat struct {
	info     ChatInfo
	messages []llms.Message
}

type inMemory struct {
	mu      sync.RWMutex
	storage map[string]*chat
}

// NewMemoryStore returns the store that keeps the history in memory.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func chatID(ctx context.Context) (string, error) {
	id := chatmodel.GetChatID(ctx)
	if id == "" {
		return "", errors.WithStack(chatmodel.ErrInvalidChatContext)
	}
	return id, nil
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	id, err := chatID(ctx)
	if err != nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c := m.storage[id]; c != nil {
		return slices.Clone(c.messages)
	}
	return nil
}

func (m *inMemory) Add(ctx context.Context, msgs ...llms.Message) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	now := TimeNowFn()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string]*chat)
	}
	c := m.storage[id]
	if c == nil {
		c = &chat{info: ChatInfo{ChatID: id, CreatedAt: now}}
		m.storage[id] = c
	}
	c.messages = append(c.messages, msgs...)
	c.info.Messages = len(c.messages)
	c.info.UpdatedAt = now
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	id, err := chatID(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, id)
	return nil
}

func (m *inMemory) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	id := values.StringsCoalesce(chatID, chatmodel.GetChatID(ctx))
	if id == "" {
		return nil, errors.WithStack(chatmodel.ErrInvalidChatContext)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.storage[id]
	if c == nil {
		return nil, errors.Newf("chat %q not found", id)
	}
	info := c.info
	return &info, nil
}

func (m *inMemory) ListChats(ctx context.Context) ([]string, error) {
	if _, err := chatID(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]string, 0, len(m.storage))
	for id := range m.storage {
		list = append(list, id)
	}
	sort.Strings(list)
	return list, nil
}
