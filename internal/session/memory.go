package session

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"chat-assistant/internal/models"
)

// MemoryStore keeps sessions in a size-bounded LRU. Idle sessions are
// dropped lazily when read.
type MemoryStore struct {
	cache *lru.Cache[string, *models.Session]
	opts  Options
}

func NewMemoryStore(opts Options) (*MemoryStore, error) {
	size := opts.MaxEntries
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[string, *models.Session](size)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &MemoryStore{cache: cache, opts: opts}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*models.Session, bool, error) {
	s, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if s.Expired(m.opts.now(), m.opts.IdleTimeout) {
		m.cache.Remove(key)
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *MemoryStore) Save(_ context.Context, s *models.Session) error {
	m.cache.Add(s.Key, s.Clone())
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.cache.Remove(key)
	return nil
}

func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
