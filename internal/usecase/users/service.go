package users

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
)

// Service ведёт список пользователей, нажавших /start.
type Service struct {
	store domain.DocumentStore
	log   zerolog.Logger
	now   func() time.Time

	mu    sync.RWMutex
	users domain.Users
}

// NewService загружает пользователей из хранилища.
func NewService(ctx context.Context, store domain.DocumentStore, log zerolog.Logger) (*Service, error) {
	users, err := store.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка пользователей: %w", err)
	}
	if users == nil {
		users = domain.Users{}
	}
	return &Service{store: store, log: log, now: time.Now, users: users}, nil
}

// Register добавляет пользователя, если его ещё нет. Существующая запись не меняется.
func (s *Service) Register(ctx context.Context, user domain.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Key()]; ok {
		return false, nil
	}
	if user.JoinedAt.IsZero() {
		user.JoinedAt = domain.Timestamp{Time: s.now().UTC()}
	}
	s.users[user.Key()] = user

	snapshot := make(domain.Users, len(s.users))
	for k, v := range s.users {
		snapshot[k] = v
	}
	if err := s.store.SaveUsers(ctx, snapshot); err != nil {
		metrics.PersistErrors.WithLabelValues("users").Inc()
		s.log.Error().Err(err).Int64("user", user.ID).Msg("не удалось сохранить пользователей")
	}
	return true, nil
}

// Count возвращает число пользователей.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// IDs возвращает идентификаторы всех пользователей по возрастанию.
func (s *Service) IDs() []int64 {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.users))
	for _, u := range s.users {
		ids = append(ids, u.ID)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// JoinNotice — текст уведомления о новом пользователе.
func JoinNotice(user domain.User, total int) string {
	name := user.FirstName
	if user.Username != "" {
		name += " (@" + user.Username + ")"
	}
	return fmt.Sprintf("🆕 Новый пользователь: %s\nID: %d\nВсего пользователей: %d", name, user.ID, total)
}
