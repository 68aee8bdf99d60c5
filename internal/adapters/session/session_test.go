package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tg-gate-bot/internal/domain"
)

func stores(t *testing.T) (map[string]domain.SessionStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]domain.SessionStore{
		"memory": NewMemoryStore(time.Hour),
		"redis":  NewRedisStore(client, time.Hour),
	}, s
}

func TestSessionOverwriteAndDiscard(t *testing.T) {
	all, _ := stores(t)
	for name, store := range all {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, ok, err := store.Get(ctx, 1); err != nil || ok {
				t.Fatalf("expected no session, got ok=%v err=%v", ok, err)
			}

			first := domain.Session{UserID: 1, Workflow: &domain.Workflow{
				Flow:   domain.FlowAddSimple,
				Step:   domain.StepSimpleURL,
				Fields: map[string]string{"title": "A"},
			}}
			if err := store.Put(ctx, first); err != nil {
				t.Fatalf("put: %v", err)
			}
			second := domain.Session{UserID: 1, Delivery: &domain.Delivery{
				Number:   "7",
				Page:     1,
				Selected: 6,
				Controls: domain.MessageRef{ChatID: 1, MessageID: 99},
			}}
			if err := store.Put(ctx, second); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, ok, err := store.Get(ctx, 1)
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if got.Workflow != nil {
				t.Fatal("overwrite must replace the whole record")
			}
			if got.Delivery == nil || got.Delivery.Selected != 6 || got.Delivery.Controls.MessageID != 99 {
				t.Fatalf("unexpected delivery: %+v", got.Delivery)
			}

			if err := store.Put(ctx, domain.Session{UserID: 1}); err != nil {
				t.Fatalf("put empty: %v", err)
			}
			if _, ok, _ := store.Get(ctx, 1); ok {
				t.Fatal("empty session must be discarded")
			}
		})
	}
}

func TestRedisStoreAppliesTTL(t *testing.T) {
	all, s := stores(t)
	ctx := context.Background()
	store := all["redis"]
	if err := store.Put(ctx, domain.Session{UserID: 5, Workflow: &domain.Workflow{Flow: domain.FlowBroadcast, Step: domain.StepBroadcastText}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.FastForward(2 * time.Hour)
	if _, ok, err := store.Get(ctx, 5); err != nil || ok {
		t.Fatalf("expected expired session, ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()
	if err := store.Put(ctx, domain.Session{UserID: 3, Workflow: &domain.Workflow{Flow: domain.FlowBroadcast}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, 3); ok {
		t.Fatal("expected expired session")
	}
}
