package channels

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"tg-gate-bot/internal/adapters/store"
	"tg-gate-bot/internal/domain"
)

func TestParsePublic(t *testing.T) {
	cases := map[string]string{
		"@Example":       "@Example",
		" @anime_uz ":    "@anime_uz",
		"example":        "",
		"https://t.me/A": "",
		"@":              "",
		"@with space":    "",
	}
	for input, expected := range cases {
		ch, err := ParsePublic(input)
		if expected == "" {
			if !errors.Is(err, ErrHandleInvalid) {
				t.Fatalf("ожидали ошибку для %q, получили %v", input, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("не ожидали ошибку для %q: %v", input, err)
		}
		if ch.Handle != expected {
			t.Fatalf("ожидали %s, получили %s", expected, ch.Handle)
		}
	}
}

func TestParsePrivate(t *testing.T) {
	cases := map[string]int64{
		"-1001234567890": -1001234567890,
		" -5 ":           -5,
		"0":              0,
		"100":            0,
		"abc":            0,
	}
	for input, expected := range cases {
		ch, err := ParsePrivate(input)
		if expected == 0 {
			if !errors.Is(err, ErrPrivateIDInvalid) {
				t.Fatalf("ожидали ошибку для %q, получили %v", input, err)
			}
			continue
		}
		if err != nil || ch.ID != expected {
			t.Fatalf("для %q получили %+v, %v", input, ch, err)
		}
	}
}

type failingChannels struct {
	domain.DocumentStore
}

func (failingChannels) SaveChannels(context.Context, []domain.Channel) error {
	return domain.ErrPersistence
}

func TestRegistrySetSemantics(t *testing.T) {
	ctx := context.Background()
	docs := store.New(store.NewMemoryBackend(), "memory")
	reg, err := NewRegistry(ctx, docs, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	a := domain.PublicChannel("@a")
	b := domain.PrivateChannel(-100)
	if err := reg.Add(ctx, a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := reg.Add(ctx, b); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := reg.Add(ctx, domain.PublicChannel("@a")); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("ожидали ErrDuplicate, получили %v", err)
	}
	if got := reg.List(); len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("порядок нарушен: %+v", got)
	}

	if err := reg.Remove(ctx, domain.PublicChannel("@x")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
	if len(reg.List()) != 2 {
		t.Fatal("удаление отсутствующего канала изменило реестр")
	}

	if err := reg.Remove(ctx, a); err != nil {
		t.Fatalf("remove: %v", err)
	}
	persisted, err := docs.LoadChannels(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(persisted) != 1 || persisted[0] != b {
		t.Fatalf("ожидали сохранённый [-100], получили %+v", persisted)
	}
	if !reg.Contains(b) || reg.Contains(a) {
		t.Fatal("Contains не совпадает со списком")
	}
}

func TestRegistryKeepsMemoryOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	docs := failingChannels{store.New(store.NewMemoryBackend(), "memory")}
	reg, err := NewRegistry(ctx, docs, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.Add(ctx, domain.PublicChannel("@a")); err != nil {
		t.Fatalf("ошибка записи не должна возвращаться: %v", err)
	}
	if !reg.Contains(domain.PublicChannel("@a")) {
		t.Fatal("изменение в памяти должно сохраниться")
	}
}
