package keyboard

import (
	"strconv"

	"github.com/Proton-105/emerans-bots/internal/i18n"
)

// Page is one zero-based page of a list: items[Start:End].
type Page struct {
	Number  int
	Start   int
	End     int
	HasPrev bool
	HasNext bool
}

// Paginate clamps page into range and returns its bounds. An empty list has one
// empty page.
func Paginate(total, page, perPage int) Page {
	if perPage < 1 {
		perPage = 1
	}
	if total < 0 {
		total = 0
	}
	last := 0
	if total > 0 {
		last = (total - 1) / perPage
	}
	page = min(max(page, 0), last)

	start := min(page*perPage, total)
	end := min(start+perPage, total)
	return Page{Number: page, Start: start, End: end, HasPrev: page > 0, HasNext: end < total}
}

// PaginationButtons returns the arrows around p. They carry action as callback
// unique and the target page as data; a missing neighbour gets no arrow.
func PaginationButtons(t i18n.Translator, action string, p Page) []InlineButton {
	buttons := make([]InlineButton, 0, 2)
	if p.HasPrev {
		buttons = append(buttons, InlineButton{
			Text:   label(t, "pagination.prev", "⬅️"),
			Unique: action,
			Data:   strconv.Itoa(p.Number - 1),
		})
	}
	if p.HasNext {
		buttons = append(buttons, InlineButton{
			Text:   label(t, "pagination.next", "➡️"),
			Unique: action,
			Data:   strconv.Itoa(p.Number + 1),
		})
	}
	return buttons
}

func label(t i18n.Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}
	if text := t.T(key); text != "" && text != key {
		return text
	}
	return fallback
}
