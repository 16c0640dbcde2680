package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Proton-105/emerans-bots/internal/bot/keyboard"
)

type mockTranslator map[string]string

func (m mockTranslator) T(key string) string {
	if val, ok := m[key]; ok {
		return val
	}
	return key
}

func (mockTranslator) Lang() string { return "ru" }

func TestPaginate(t *testing.T) {
	assert.Equal(t, keyboard.Page{Number: 0, Start: 0, End: 8, HasNext: true}, keyboard.Paginate(20, 0, 8))
	assert.Equal(t, keyboard.Page{Number: 2, Start: 16, End: 20, HasPrev: true}, keyboard.Paginate(20, 2, 8))
	assert.Equal(t, 2, keyboard.Paginate(20, 9, 8).Number, "past the end is clamped")
	assert.Equal(t, 0, keyboard.Paginate(20, -1, 8).Number)
	assert.Equal(t, keyboard.Page{}, keyboard.Paginate(0, 3, 8))
	assert.Equal(t, keyboard.Page{Number: 0, Start: 0, End: 8}, keyboard.Paginate(8, 1, 8))
}

func TestPaginationButtons(t *testing.T) {
	tr := mockTranslator{"pagination.prev": "◀️", "pagination.next": "▶️"}

	testCases := []struct {
		name      string
		page      int
		total     int
		wantTexts []string
		wantData  []string
	}{
		{name: "first page", page: 0, total: 24, wantTexts: []string{"▶️"}, wantData: []string{"1"}},
		{name: "middle page", page: 1, total: 24, wantTexts: []string{"◀️", "▶️"}, wantData: []string{"0", "2"}},
		{name: "last page", page: 2, total: 24, wantTexts: []string{"◀️"}, wantData: []string{"1"}},
		{name: "single page", page: 0, total: 5},
		{name: "page past the end", page: 9, total: 16, wantTexts: []string{"◀️"}, wantData: []string{"0"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buttons := keyboard.PaginationButtons(tr, "models:page", keyboard.Paginate(tc.total, tc.page, 8))
			var texts, data []string
			for _, b := range buttons {
				assert.Equal(t, "models:page", b.Unique)
				texts = append(texts, b.Text)
				data = append(data, b.Data)
			}
			assert.Equal(t, tc.wantTexts, texts)
			assert.Equal(t, tc.wantData, data)
		})
	}
}

func TestPaginationButtons_DefaultLabels(t *testing.T) {
	buttons := keyboard.PaginationButtons(nil, "admin:models_page", keyboard.Paginate(24, 1, 8))
	assert.Len(t, buttons, 2)
	assert.Equal(t, "⬅️", buttons[0].Text)
	assert.Equal(t, "➡️", buttons[1].Text)
}
