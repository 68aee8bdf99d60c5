package catalog

import "tg-gate-bot/internal/domain"

// DefaultPageSize — число кнопок серий на одной странице.
const DefaultPageSize = 5

// TotalPages возвращает ceil(n/size).
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// ClampPage удерживает номер страницы в [0, total-1].
func ClampPage(page, n, size int) int {
	total := TotalPages(n, size)
	if page < 0 || total == 0 {
		return 0
	}
	if page >= total {
		return total - 1
	}
	return page
}

// PageOf возвращает страницу, на которой находится серия.
func PageOf(index, size int) int {
	if index < 0 || size <= 0 {
		return 0
	}
	return index / size
}

// PartRef — серия в окне страницы вместе с её индексом в тайтле.
type PartRef struct {
	Index int
	Part  domain.Part
}

// Page — окно кнопок серий.
type Page struct {
	Index   int
	Total   int
	Parts   []PartRef
	HasPrev bool
	HasNext bool
}

// Window строит окно страницы page, исключая выбранную серию.
func Window(parts []domain.Part, page, size, selected int) Page {
	n := len(parts)
	page = ClampPage(page, n, size)
	total := TotalPages(n, size)
	start := page * size
	end := min(start+size, n)

	p := Page{Index: page, Total: total, HasPrev: page > 0, HasNext: page < total-1}
	for i := start; i < end; i++ {
		if i == selected {
			continue
		}
		p.Parts = append(p.Parts, PartRef{Index: i, Part: parts[i]})
	}
	return p
}

// Keyboard превращает окно в кнопки: по серии в ряд, навигация последним рядом.
func (p Page) Keyboard(number string) domain.Keyboard {
	kb := make(domain.Keyboard, 0, len(p.Parts)+1)
	for _, ref := range p.Parts {
		kb = append(kb, domain.Row(domain.ActionControl(ref.Part.Name, domain.PartAction(number, ref.Index))))
	}
	var nav []domain.Control
	if p.HasPrev {
		nav = append(nav, domain.ActionControl("⬅️ Назад", domain.PageAction(number, domain.DirectionBackward)))
	}
	if p.HasNext {
		nav = append(nav, domain.ActionControl("Вперёд ➡️", domain.PageAction(number, domain.DirectionForward)))
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	return kb
}
