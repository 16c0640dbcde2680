package escort

import (
	"html"
	"strconv"
	"strings"

	"github.com/Proton-105/emerans-bots/internal/catalog"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/ledger"
)

// ModelText renders the HTML card of a model.
func ModelText(t i18n.Translator, item catalog.Item) string {
	price := item.Price
	if price == "" {
		price = "—"
	}

	var b strings.Builder
	b.WriteString("<b>" + html.EscapeString(item.Title()) + "</b>\n")
	b.WriteString(t.T("escort.model_price") + ": <code>" + html.EscapeString(price) + "</code>")

	switch {
	case item.AllowsEveryCity():
		b.WriteString("\n" + t.T("escort.model_cities") + ": <code>" + t.T("escort.model_all_cities") + "</code>")
	case len(item.Cities) > 0:
		b.WriteString("\n" + t.T("escort.model_cities") + ": <code>" + html.EscapeString(strings.Join(item.Cities, ", ")) + "</code>")
	}

	if desc := strings.TrimSpace(item.Desc); desc != "" {
		b.WriteString("\n\n" + html.EscapeString(desc))
	}
	return b.String()
}

// ProfileText renders the viewer's profile.
func ProfileText(t i18n.Translator, p *ledger.Profile) string {
	username := p.Username
	if username == "" {
		username = strconv.FormatInt(p.UserID, 10)
	}
	city := p.City
	if city == "" {
		city = t.T("escort.city_unset")
	}
	return i18n.Format(t, "escort.profile",
		"username", html.EscapeString(username),
		"id", strconv.FormatInt(p.UserID, 10),
		"city", html.EscapeString(city),
		"balance", strconv.FormatInt(p.BalanceRub, 10),
		"orders", strconv.Itoa(p.OrdersCount),
	)
}

// SearchResults answers an inline query with plain-text model cards.
func SearchResults(t i18n.Translator, items []catalog.Item, query string) []flow.InlineResult {
	found := catalog.Search(items, query)
	results := make([]flow.InlineResult, 0, len(found))
	for _, entry := range found {
		item := entry.Item
		price := item.Price
		if price == "" {
			price = "—"
		}

		text := "💞 " + item.Title() + "\n" + t.T("escort.model_price") + ": " + price
		if item.Link != "" {
			text += "\n" + t.T("escort.inline_link") + ": " + item.Link
		}
		if item.Desc != "" {
			text += "\n\n" + item.Desc
		}

		results = append(results, flow.InlineResult{
			ID:    strconv.Itoa(entry.Index),
			Title: item.Title(),
			Text:  text,
		})
	}
	return results
}
