package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-gate-bot/internal/adapters/store"
	"tg-gate-bot/internal/domain"
)

func newService(t *testing.T) (*Service, *store.Documents) {
	t.Helper()
	docs := store.New(store.NewMemoryBackend(), "memory")
	svc, err := NewService(context.Background(), docs, zerolog.Nop())
	require.NoError(t, err)
	return svc, docs
}

func TestAddRejectsDuplicatesAndInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.Add(ctx, domain.Item{Number: "5", Title: "Naruto", VideoURL: "file"}))
	assert.ErrorIs(t, svc.Add(ctx, domain.Item{Number: "5", Title: "Other", VideoURL: "x"}), domain.ErrDuplicate)
	assert.ErrorIs(t, svc.Add(ctx, domain.Item{Number: "6", Title: "No video"}), domain.ErrValidation)

	item, err := svc.Resolve("5")
	require.NoError(t, err)
	assert.Equal(t, "Naruto", item.Title)

	_, err = svc.Resolve("404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordViewPersists(t *testing.T) {
	ctx := context.Background()
	svc, docs := newService(t)
	require.NoError(t, svc.Add(ctx, domain.Item{Number: "1", Title: "A", VideoURL: "v"}))

	item, err := svc.RecordView(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Views)
	_, err = svc.RecordView(ctx, "1")
	require.NoError(t, err)

	persisted, err := docs.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, persisted["1"].Views)
	assert.Equal(t, "1", persisted["1"].Number)
}

func TestConcurrentViewsAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc, docs := newService(t)
	require.NoError(t, svc.Add(ctx, domain.Item{Number: "9", Title: "Hot", VideoURL: "v"}))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordView(ctx, "9")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	item, err := svc.Resolve("9")
	require.NoError(t, err)
	assert.Equal(t, workers, item.Views)
	persisted, err := docs.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers, persisted["9"].Views)
}

func TestReservedViewsAreDistinct(t *testing.T) {
	ctx := context.Background()
	svc, docs := newService(t)
	require.NoError(t, svc.Add(ctx, domain.Item{Number: "1", Title: "A", VideoURL: "v"}))

	first, err := svc.ReserveView("1")
	require.NoError(t, err)
	second, err := svc.ReserveView("1")
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)

	svc.CancelView(ctx, "1")
	svc.CommitView(ctx)
	persisted, err := docs.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, persisted["1"].Views)

	_, err = svc.ReserveView("404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendPartGrowsCount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	require.NoError(t, svc.Add(ctx, domain.Item{
		Number: "7", Title: "Series", Parts: 2,
		PartData: []domain.Part{{Name: "1-part", URL: "a"}, {Name: "2-part", URL: "b"}},
	}))

	item, err := svc.AppendPart(ctx, "7", domain.Part{Name: "3-part", URL: "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, item.Parts)
	assert.Len(t, item.PartData, 3)
	assert.Equal(t, "3-part", item.PartData[2].Name)

	require.NoError(t, svc.Add(ctx, domain.Item{Number: "8", Title: "Film", VideoURL: "v"}))
	_, err = svc.AppendPart(ctx, "8", domain.Part{Name: "x", URL: "y"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AppendPart(ctx, "9", domain.Part{Name: "x", URL: "y"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveReturnsCopy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	require.NoError(t, svc.Add(ctx, domain.Item{
		Number: "7", Title: "Series", Parts: 1, PartData: []domain.Part{{Name: "1-part", URL: "a"}},
	}))
	item, err := svc.Resolve("7")
	require.NoError(t, err)
	item.PartData[0].URL = "mutated"

	again, err := svc.Resolve("7")
	require.NoError(t, err)
	assert.Equal(t, "a", again.PartData[0].URL)
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	svc, docs := newService(t)
	require.NoError(t, svc.Add(ctx, domain.Item{Number: "10", Title: "Ten", VideoURL: "v"}))
	require.NoError(t, svc.Add(ctx, domain.Item{Number: "9", Title: "Nine", VideoURL: "v"}))
	require.NoError(t, svc.Add(ctx, domain.Item{Number: "2", Title: "Two", Parts: 1, PartData: []domain.Part{{Name: "1", URL: "a"}}}))

	var numbers []string
	for _, item := range svc.List() {
		numbers = append(numbers, item.Number)
	}
	assert.Equal(t, []string{"2", "9", "10"}, numbers)

	paginated := svc.ListPaginated()
	require.Len(t, paginated, 1)
	assert.Equal(t, "2", paginated[0].Number)

	_, err := svc.Delete(ctx, "9")
	require.NoError(t, err)
	assert.False(t, svc.Exists("9"))
	_, err = svc.Delete(ctx, "9")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	persisted, err := docs.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.NotContains(t, persisted, "9")
	assert.Len(t, persisted, 2)
}
