package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore 进程内会话存储，访问时淘汰过期条目
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// MemoryOption MemoryStore 的可选项
type MemoryOption func(*MemoryStore)

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// NewMemoryStore 创建内存存储，ttl <= 0 表示永不过期
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) expiry(now time.Time) time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(m.ttl)
}

// evictLocked 清理过期条目，调用方持有锁
func (m *MemoryStore) evictLocked(now time.Time) {
	for id, e := range m.items {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.items, id)
		}
	}
}

// Create 新建会话
func (m *MemoryStore) Create(ctx context.Context) (*Session, error) {
	now := m.now()
	s, err := New(now)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(now)
	m.items[s.ID] = memoryEntry{session: s.Clone(), expiresAt: m.expiry(now)}
	return s, nil
}

// Get 读取会话，返回副本
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(now)
	e, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.session.Clone(), nil
}

// Save 保存会话并刷新过期时间，会话必须已存在
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(now)
	if _, ok := m.items[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = now
	m.items[s.ID] = memoryEntry{session: s.Clone(), expiresAt: m.expiry(now)}
	return nil
}

// Reset 清空会话状态，保留 ID
func (m *MemoryStore) Reset(ctx context.Context, id string) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(now)
	e, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	s := e.session.Clone()
	s.Clear(now)
	m.items[id] = memoryEntry{session: s.Clone(), expiresAt: m.expiry(now)}
	return s, nil
}

// Delete 删除会话
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Len 当前未过期的会话数
func (m *MemoryStore) Len() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(now)
	return len(m.items)
}

var _ Store = (*MemoryStore)(nil)
