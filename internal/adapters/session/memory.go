package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tg-gate-bot/internal/domain"
)

// MemoryStore хранит сессии в памяти процесса.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64][]byte
}

var _ domain.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore создаёт таблицу сессий. ttl <= 0 отключает истечение.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[int64][]byte)}
}

// Get возвращает копию сессии пользователя.
func (m *MemoryStore) Get(_ context.Context, userID int64) (domain.Session, bool, error) {
	m.mu.Lock()
	raw, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return domain.Session{}, false, nil
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, false, err
	}
	if m.ttl > 0 && m.now().Sub(sess.UpdatedAt) > m.ttl {
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

// Put перезаписывает сессию целиком.
func (m *MemoryStore) Put(ctx context.Context, sess domain.Session) error {
	if sess.Empty() {
		return m.Delete(ctx, sess.UserID)
	}
	sess.UpdatedAt = m.now().UTC()
	// Храним сериализованную копию, чтобы вызывающий не менял сессию в обход Put.
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[sess.UserID] = raw
	m.mu.Unlock()
	return nil
}

// Delete удаляет сессию.
func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}
