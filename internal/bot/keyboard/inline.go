package keyboard

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"
)

// InlineButton is a lightweight inline button definition used by the builder.
// Exactly one of callback (Unique/Data), URL or inline query is rendered.
type InlineButton struct {
	Text   string
	Unique string // Identifier that differentiates callback handlers.
	Data   string // Payload appended to Unique in the callback data.

	URL string
	// SwitchQuery opens inline mode in the current chat with this query.
	SwitchQuery *string
}

// Callback returns a button whose callback data is "unique:data".
func Callback(text, unique, data string) InlineButton {
	return InlineButton{Text: text, Unique: unique, Data: data}
}

// Link returns a button that opens url.
func Link(text, url string) InlineButton {
	return InlineButton{Text: text, URL: url}
}

// InlineSearch returns a button that starts an inline query in the current chat.
func InlineSearch(text, query string) InlineButton {
	return InlineButton{Text: text, SwitchQuery: &query}
}

// InlineKeyboardBuilder accumulates rows of InlineButton definitions before rendering telebot markup.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

// NewInlineKeyboard creates an empty builder.
func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{rows: make([][]InlineButton, 0)}
}

// AddRow appends a row. Empty rows are skipped.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// AddGrid lays buttons out perRow to a row.
func (b *InlineKeyboardBuilder) AddGrid(perRow int, buttons ...InlineButton) *InlineKeyboardBuilder {
	if perRow < 1 {
		perRow = 1
	}
	for start := 0; start < len(buttons); start += perRow {
		end := start + perRow
		if end > len(buttons) {
			end = len(buttons)
		}
		b.AddRow(buttons[start:end]...)
	}
	return b
}

// Empty reports whether no row was added.
func (b *InlineKeyboardBuilder) Empty() bool {
	return len(b.rows) == 0
}

// Build renders the markup. It fails when a callback payload exceeds Telegram's limit.
func (b *InlineKeyboardBuilder) Build() (*telebot.ReplyMarkup, error) {
	inlineKeyboard := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			rendered := telebot.InlineButton{Text: btn.Text}
			switch {
			case btn.URL != "":
				rendered.URL = btn.URL
			case btn.SwitchQuery != nil:
				rendered.InlineQueryChat = *btn.SwitchQuery
			default:
				data, err := EncodeCallback(btn.Unique, btn.Data)
				if err != nil {
					return nil, fmt.Errorf("button %q: %w", btn.Text, err)
				}
				// Unique stays unset: telebot would prefix the data with "\f".
				rendered.Data = data
			}
			inlineKeyboard[i][j] = rendered
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}, nil
}

// MustBuild is Build for keyboards whose callback data is bounded by construction
// (fixed prefixes plus ids and indices).
func (b *InlineKeyboardBuilder) MustBuild() *telebot.ReplyMarkup {
	markup, err := b.Build()
	if err != nil {
		panic(err)
	}
	return markup
}
