package cache

import (
	"context"
	"sync"
	"time"

	"chess-puzzle-bot/internal/domain"
)

// Memory реализует domain.Cache в памяти процесса, когда Redis не настроен.
type Memory struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

var _ domain.Cache = (*Memory)(nil)

// NewMemory создаёт пустой кэш.
func NewMemory() *Memory {
	return &Memory{keys: make(map[string]time.Time), now: time.Now}
}

// Once выполняет fn, если ключа нет или он истёк. При ошибке fn ключ снимается.
func (m *Memory) Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	now := m.now()
	if expires, ok := m.keys[key]; ok && now.Before(expires) {
		m.mu.Unlock()
		return nil
	}
	m.keys[key] = now.Add(ttl)
	m.mu.Unlock()

	if err := fn(); err != nil {
		m.mu.Lock()
		delete(m.keys, key)
		m.mu.Unlock()
		return err
	}
	return nil
}
