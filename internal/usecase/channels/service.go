package channels

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
)

var (
	ErrHandleInvalid    = errors.New("алиас должен начинаться с @")
	ErrPrivateIDInvalid = errors.New("id приватного канала должен быть отрицательным числом")
)

var handleRegex = regexp.MustCompile(`^@[A-Za-z0-9_]+$`)

// ParsePublic проверяет алиас публичного канала.
func ParsePublic(input string) (domain.Channel, error) {
	trim := strings.TrimSpace(input)
	if !handleRegex.MatchString(trim) {
		return domain.Channel{}, ErrHandleInvalid
	}
	return domain.PublicChannel(trim), nil
}

// ParsePrivate проверяет идентификатор приватного канала.
func ParsePrivate(input string) (domain.Channel, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || id >= 0 {
		return domain.Channel{}, ErrPrivateIDInvalid
	}
	return domain.PrivateChannel(id), nil
}

// Registry — упорядоченное множество обязательных каналов.
// Каждое изменение сразу записывает коллекцию целиком.
type Registry struct {
	store domain.DocumentStore
	log   zerolog.Logger

	mu       sync.RWMutex
	channels []domain.Channel
}

// NewRegistry загружает каналы из хранилища.
func NewRegistry(ctx context.Context, store domain.DocumentStore, log zerolog.Logger) (*Registry, error) {
	channels, err := store.LoadChannels(ctx)
	if err != nil {
		return nil, err
	}
	return &Registry{store: store, log: log, channels: channels}, nil
}

// List возвращает каналы в порядке добавления.
func (r *Registry) List() []domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Channel(nil), r.channels...)
}

// Contains проверяет наличие канала по значению.
func (r *Registry) Contains(ch domain.Channel) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(ch) >= 0
}

func (r *Registry) indexOf(ch domain.Channel) int {
	for i, existing := range r.channels {
		if existing == ch {
			return i
		}
	}
	return -1
}

// Add добавляет канал в конец списка.
func (r *Registry) Add(ctx context.Context, ch domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(ch) >= 0 {
		return domain.ErrDuplicate
	}
	r.channels = append(r.channels, ch)
	r.persist(ctx)
	return nil
}

// Remove удаляет канал из списка.
func (r *Registry) Remove(ctx context.Context, ch domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(ch)
	if idx < 0 {
		return domain.ErrNotFound
	}
	r.channels = append(r.channels[:idx:idx], r.channels[idx+1:]...)
	r.persist(ctx)
	return nil
}

// persist вызывается под r.mu. Ошибка записи не откатывает изменение в памяти.
func (r *Registry) persist(ctx context.Context) {
	if err := r.store.SaveChannels(ctx, append([]domain.Channel(nil), r.channels...)); err != nil {
		metrics.PersistErrors.WithLabelValues("channels").Inc()
		r.log.Error().Err(err).Int("channels", len(r.channels)).Msg("не удалось сохранить каналы")
	}
}
