package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"tg-gate-bot/internal/domain"
)

func makeParts(n int) []domain.Part {
	parts := make([]domain.Part, n)
	for i := range parts {
		parts[i] = domain.Part{Name: fmt.Sprintf("%d-part", i+1), URL: fmt.Sprintf("file-%d", i+1)}
	}
	return parts
}

func indexes(p Page) []int {
	out := make([]int, 0, len(p.Parts))
	for _, ref := range p.Parts {
		out = append(out, ref.Index)
	}
	return out
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 5))
	assert.Equal(t, 1, TotalPages(1, 5))
	assert.Equal(t, 1, TotalPages(5, 5))
	assert.Equal(t, 2, TotalPages(6, 5))
	assert.Equal(t, 3, TotalPages(12, 5))
}

func TestWindowExcludesSelected(t *testing.T) {
	parts := makeParts(12)

	first := Window(parts, 0, 5, 0)
	assert.Equal(t, []int{1, 2, 3, 4}, indexes(first))
	assert.False(t, first.HasPrev)
	assert.True(t, first.HasNext)

	second := Window(parts, 1, 5, 0)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, indexes(second))
	assert.True(t, second.HasPrev)
	assert.True(t, second.HasNext)

	last := Window(parts, 2, 5, 10)
	assert.Equal(t, []int{11}, indexes(last))
	assert.True(t, last.HasPrev)
	assert.False(t, last.HasNext)
}

func TestWindowClampsPage(t *testing.T) {
	parts := makeParts(7)
	assert.Equal(t, 1, Window(parts, 9, 5, 0).Index)
	assert.Equal(t, 0, Window(parts, -3, 5, 0).Index)
}

func TestSinglePageHasNoNavigation(t *testing.T) {
	page := Window(makeParts(3), 0, 5, 1)
	kb := page.Keyboard("42")
	assert.Equal(t, []string{domain.PartAction("42", 0), domain.PartAction("42", 2)}, kb.Actions())
}

func TestKeyboardNavigationRow(t *testing.T) {
	kb := Window(makeParts(12), 1, 5, 0).Keyboard("7")
	actions := kb.Actions()
	assert.Len(t, actions, 7)
	assert.Equal(t, domain.PageAction("7", domain.DirectionBackward), actions[5])
	assert.Equal(t, domain.PageAction("7", domain.DirectionForward), actions[6])
	assert.Len(t, kb[len(kb)-1], 2)
}

func TestPageOf(t *testing.T) {
	assert.Equal(t, 0, PageOf(4, 5))
	assert.Equal(t, 1, PageOf(5, 5))
	assert.Equal(t, 2, PageOf(11, 5))
}
