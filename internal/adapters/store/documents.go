package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/metrics"
)

// Имена коллекций.
const (
	CollectionUsers    = "users"
	CollectionChannels = "channels"
	CollectionCatalog  = "catalog"
)

// Backend хранит сырые документы по имени коллекции.
// Get возвращает nil без ошибки, если коллекции ещё нет.
type Backend interface {
	Get(ctx context.Context, collection string) ([]byte, error)
	Put(ctx context.Context, collection string, body []byte) error
}

// Documents реализует domain.DocumentStore поверх любого Backend, храня коллекции в JSON.
type Documents struct {
	backend Backend
	driver  string
}

var _ domain.DocumentStore = (*Documents)(nil)

// New создаёт хранилище документов. driver используется только в метриках.
func New(backend Backend, driver string) *Documents {
	return &Documents{backend: backend, driver: driver}
}

// LoadUsers реализует domain.DocumentStore. Идентификатор берётся из ключа, если его нет в записи.
func (d *Documents) LoadUsers(ctx context.Context) (domain.Users, error) {
	users := domain.Users{}
	if err := d.load(ctx, CollectionUsers, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = domain.Users{}
	}
	for key, user := range users {
		if user.ID == 0 {
			if id, err := strconv.ParseInt(key, 10, 64); err == nil {
				user.ID = id
				users[key] = user
			}
		}
	}
	return users, nil
}

// SaveUsers реализует domain.DocumentStore.
func (d *Documents) SaveUsers(ctx context.Context, users domain.Users) error {
	return d.save(ctx, CollectionUsers, users)
}

// LoadChannels реализует domain.DocumentStore.
func (d *Documents) LoadChannels(ctx context.Context) ([]domain.Channel, error) {
	var channels []domain.Channel
	if err := d.load(ctx, CollectionChannels, &channels); err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	return channels, nil
}

// SaveChannels реализует domain.DocumentStore.
func (d *Documents) SaveChannels(ctx context.Context, channels []domain.Channel) error {
	if channels == nil {
		channels = []domain.Channel{}
	}
	return d.save(ctx, CollectionChannels, channels)
}

// LoadCatalog реализует domain.DocumentStore. Номер тайтла восстанавливается из ключа.
func (d *Documents) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	catalog := domain.Catalog{}
	if err := d.load(ctx, CollectionCatalog, &catalog); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = domain.Catalog{}
	}
	for number, item := range catalog {
		item.Number = number
		catalog[number] = item
	}
	return catalog, nil
}

// SaveCatalog реализует domain.DocumentStore.
func (d *Documents) SaveCatalog(ctx context.Context, catalog domain.Catalog) error {
	return d.save(ctx, CollectionCatalog, catalog)
}

func (d *Documents) load(ctx context.Context, collection string, dst any) error {
	start := time.Now()
	body, err := d.backend.Get(ctx, collection)
	metrics.ObserveNetworkRequest(d.driver, "load", collection, start, err)
	if err != nil {
		return fmt.Errorf("чтение коллекции %s: %w", collection, err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("разбор коллекции %s: %w", collection, err)
	}
	return nil
}

func (d *Documents) save(ctx context.Context, collection string, doc any) error {
	body, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("сериализация коллекции %s: %w", collection, err)
	}
	start := time.Now()
	err = d.backend.Put(ctx, collection, body)
	metrics.ObserveNetworkRequest(d.driver, "save", collection, start, err)
	if err != nil {
		return fmt.Errorf("запись коллекции %s: %w: %w", collection, domain.ErrPersistence, err)
	}
	return nil
}
