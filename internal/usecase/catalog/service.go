package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
)

// Service держит каталог в памяти и пишет его целиком после каждого изменения.
// Чтение-изменение-запись выполняются под одним мьютексом.
type Service struct {
	store domain.DocumentStore
	log   zerolog.Logger

	mu    sync.RWMutex
	items domain.Catalog
}

// NewService загружает каталог из хранилища.
func NewService(ctx context.Context, store domain.DocumentStore, log zerolog.Logger) (*Service, error) {
	items, err := store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка каталога: %w", err)
	}
	if items == nil {
		items = domain.Catalog{}
	}
	return &Service{store: store, log: log, items: items}, nil
}

// Resolve возвращает копию тайтла по номеру.
func (s *Service) Resolve(number string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[number]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item.Clone(), nil
}

// Exists сообщает, занят ли номер.
func (s *Service) Exists(number string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[number]
	return ok
}

// Add сохраняет новый тайтл.
func (s *Service) Add(ctx context.Context, item domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.Number]; ok {
		return domain.ErrDuplicate
	}
	item = item.Clone()
	item.Views = 0
	s.items[item.Number] = item
	s.persist(ctx)
	return nil
}

// AppendPart дописывает серию в конец многосерийного тайтла.
func (s *Service) AppendPart(ctx context.Context, number string, part domain.Part) (domain.Item, error) {
	if part.URL == "" {
		return domain.Item{}, fmt.Errorf("серия без видео: %w", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[number]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	if !item.IsPaginated() {
		return domain.Item{}, fmt.Errorf("тайтл %s не многосерийный: %w", number, domain.ErrValidation)
	}
	item = item.Clone()
	item.PartData = append(item.PartData, part)
	if item.Parts < len(item.PartData) {
		item.Parts = len(item.PartData)
	}
	s.items[number] = item
	s.persist(ctx)
	return item.Clone(), nil
}

// Delete удаляет тайтл.
func (s *Service) Delete(ctx context.Context, number string) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[number]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	delete(s.items, number)
	s.persist(ctx)
	return item, nil
}

// RecordView увеличивает счётчик просмотров и возвращает обновлённую копию.
func (s *Service) RecordView(ctx context.Context, number string) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[number]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	item.Views++
	s.items[number] = item
	s.persist(ctx)
	return item.Clone(), nil
}

// ReserveView увеличивает счётчик в памяти и возвращает номер просмотра для подписи.
// Резерв подтверждается CommitView после успешной отправки или снимается CancelView.
func (s *Service) ReserveView(number string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[number]
	if !ok {
		return 0, domain.ErrNotFound
	}
	item.Views++
	s.items[number] = item
	return item.Views, nil
}

// CommitView сохраняет зарезервированный просмотр.
func (s *Service) CommitView(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist(ctx)
}

// CancelView снимает резерв после неудачной отправки.
func (s *Service) CancelView(ctx context.Context, number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[number]
	if !ok || item.Views == 0 {
		return
	}
	item.Views--
	s.items[number] = item
	s.persist(ctx)
}

// List возвращает все тайтлы, упорядоченные по номеру.
func (s *Service) List() []domain.Item {
	return s.filter(func(domain.Item) bool { return true })
}

// ListPaginated возвращает только многосерийные тайтлы.
func (s *Service) ListPaginated() []domain.Item {
	return s.filter(domain.Item.IsPaginated)
}

func (s *Service) filter(keep func(domain.Item) bool) []domain.Item {
	s.mu.RLock()
	out := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if keep(item) {
			out = append(out, item.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return lessNumber(out[i].Number, out[j].Number) })
	return out
}

// lessNumber сравнивает числовые номера как числа, остальные как строки.
func lessNumber(a, b string) bool {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// persist вызывается под s.mu. Ошибка записи не откатывает изменение в памяти.
func (s *Service) persist(ctx context.Context) {
	snapshot := make(domain.Catalog, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v.Clone()
	}
	if err := s.store.SaveCatalog(ctx, snapshot); err != nil {
		metrics.PersistErrors.WithLabelValues("catalog").Inc()
		s.log.Error().Err(err).Int("items", len(snapshot)).Msg("не удалось сохранить каталог")
	}
}
