package escort

import (
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/emerans-bots/internal/bot/keyboard"
	"github.com/Proton-105/emerans-bots/internal/catalog"
	"github.com/Proton-105/emerans-bots/internal/i18n"
)

// Callback data understood by the catalog bot.
const (
	cbMenu          = "menu"
	cbModelsPage    = "models:page"
	cbModelsBack    = "models:back"
	cbModel         = "model"
	cbModelBack     = "model:back"
	cbProfile       = "profile"
	cbTopupBack     = "topup:back"
	cbPay           = "pay"
	cbAdmin         = "admin"
	cbAdminModelsPg = "admin:models_page"
)

// MainMenu shows the enabled sections in three rows. With every section disabled a
// single button still leads to the catalog.
func MainMenu(t i18n.Translator, s *Settings) *telebot.ReplyMarkup {
	kb := keyboard.NewInlineKeyboard()
	sections := s.MenuSections

	var row1, row2, row3 []keyboard.InlineButton
	if sections.Has(SectionModels) {
		row1 = append(row1, keyboard.Callback(s.Label("btn_models", "Модели"), cbMenu, "models"))
	}
	if sections.Has(SectionProfile) {
		row1 = append(row1, keyboard.Callback(s.Label("btn_profile", "Профиль"), cbMenu, "profile"))
	}
	if sections.Has(SectionInlineSearch) {
		row2 = append(row2, keyboard.InlineSearch(s.Label("btn_inline_search", "Найти модель"), ""))
	}
	if sections.Has(SectionSupport) {
		row2 = append(row2, keyboard.Callback(s.Label("btn_support", "Поддержка"), cbMenu, "support"))
	}
	if sections.Has(SectionInfo) {
		row3 = append(row3, keyboard.Callback(s.Label("btn_info", "Информация"), cbMenu, "info"))
	}
	if sections.Has(SectionCity) {
		row3 = append(row3, keyboard.Callback(s.Label("btn_city", "Сменить город"), cbMenu, "city"))
	}
	kb.AddRow(row1...).AddRow(row2...).AddRow(row3...)

	if kb.Empty() {
		kb.AddRow(keyboard.Callback(t.T("escort.menu_fallback"), cbMenu, "models"))
	}
	return kb.MustBuild()
}

func back(s *Settings) string {
	return s.Label("btn_back", "⬅️ Назад")
}

// ProfileMenu offers top-up and favorites.
func ProfileMenu(t i18n.Translator, s *Settings) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(keyboard.Callback(t.T("escort.topup_button"), cbProfile, "topup")).
		AddRow(keyboard.Callback(t.T("escort.favorites_button"), cbProfile, "favorites")).
		AddRow(keyboard.Callback(back(s), cbProfile, "back")).
		MustBuild()
}

// TopupMenu is shown while the amount is awaited.
func TopupMenu(s *Settings) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(keyboard.Callback(back(s), cbTopupBack, "")).
		MustBuild()
}

// PaymentMenu lists the payment methods.
func PaymentMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("escort.pay_card_button"), cbPay, "card"),
			keyboard.Callback(t.T("escort.pay_cash_button"), cbPay, "cash"),
		).
		AddRow(keyboard.Callback(t.T("common.back"), cbTopupBack, "")).
		MustBuild()
}

// ModelList shows one page of the models visible in the viewer's city. Each button
// carries the catalog index and the page to come back to.
func ModelList(t i18n.Translator, s *Settings, visible []catalog.Indexed, page int) *telebot.ReplyMarkup {
	p := keyboard.Paginate(len(visible), page, catalog.PageSize)

	kb := keyboard.NewInlineKeyboard()
	for _, entry := range visible[p.Start:p.End] {
		kb.AddRow(keyboard.Callback(entry.Item.Title(), cbModel, strconv.Itoa(entry.Index)+":"+strconv.Itoa(p.Number)))
	}
	kb.AddRow(keyboard.PaginationButtons(t, cbModelsPage, p)...)
	kb.AddRow(keyboard.Callback(back(s), cbModelsBack, ""))
	return kb.MustBuild()
}

// ModelDetail links to the model when its link is openable and returns to page.
func ModelDetail(t i18n.Translator, s *Settings, item catalog.Item, page int) *telebot.ReplyMarkup {
	kb := keyboard.NewInlineKeyboard()
	if url := item.LinkURL(); url != "" {
		kb.AddRow(keyboard.Link(t.T("escort.model_open"), url))
	}
	kb.AddRow(keyboard.Callback(back(s), cbModelBack, strconv.Itoa(page)))
	return kb.MustBuild()
}

// AdminMenu is the root of the admin panel.
func AdminMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("escort.admin.models_button"), cbAdmin, "models"),
			keyboard.Callback(t.T("escort.admin.design_button"), cbAdmin, "design"),
		).
		AddRow(keyboard.Callback(t.T("common.close"), cbAdmin, "close")).
		MustBuild()
}

// AdminModels pages through the whole catalog, regardless of city.
func AdminModels(t i18n.Translator, items []catalog.Item, page int) *telebot.ReplyMarkup {
	p := keyboard.Paginate(len(items), page, catalog.PageSize)

	kb := keyboard.NewInlineKeyboard()
	for idx := p.Start; idx < p.End; idx++ {
		name := items[idx].Name
		if name == "" {
			name = i18n.Format(t, "escort.admin.model_unnamed", "index", strconv.Itoa(idx))
		}
		kb.AddRow(keyboard.Callback("✏️ "+name, "admin:model", strconv.Itoa(idx)))
	}
	kb.AddRow(keyboard.PaginationButtons(t, cbAdminModelsPg, p)...)
	kb.AddRow(keyboard.Callback(t.T("escort.admin.model_add_button"), cbAdmin, "model_add"))
	kb.AddRow(keyboard.Callback(t.T("common.back"), cbAdmin, "back"))
	return kb.MustBuild()
}

// AdminModel lists the editable fields of one model.
func AdminModel(t i18n.Translator, index int) *telebot.ReplyMarkup {
	edit := func(field string) keyboard.InlineButton {
		return keyboard.Callback(t.T("escort.admin.field_"+field), "admin:edit", strconv.Itoa(index)+":"+field)
	}
	return keyboard.NewInlineKeyboard().
		AddRow(edit("name"), edit("price")).
		AddRow(edit("link"), edit("cities")).
		AddRow(edit("desc")).
		AddRow(keyboard.Callback(t.T("escort.admin.delete_button"), "admin:delete", strconv.Itoa(index))).
		AddRow(keyboard.Callback(t.T("common.back"), cbAdmin, "models")).
		MustBuild()
}

// designKeys are the texts editable from the design screen.
var designKeys = []string{"title", "channel_link", "welcome_text", "menu_text", "support_username"}

// AdminDesign lists the design texts and the nested screens.
func AdminDesign(t i18n.Translator) *telebot.ReplyMarkup {
	kb := keyboard.NewInlineKeyboard()
	for _, key := range designKeys {
		kb.AddRow(keyboard.Callback(t.T("escort.admin.design_"+key), "admin:design_set", key))
	}
	return kb.
		AddRow(keyboard.Callback(t.T("escort.admin.design_buttons_button"), cbAdmin, "design_buttons")).
		AddRow(keyboard.Callback(t.T("escort.admin.design_sections_button"), cbAdmin, "design_sections")).
		AddRow(keyboard.Callback(t.T("common.back"), cbAdmin, "back")).
		MustBuild()
}

// buttonKeys maps label settings to the section name used in their title.
var buttonKeys = []struct{ key, title string }{
	{"btn_models", "models"},
	{"btn_profile", "profile"},
	{"btn_support", "support"},
	{"btn_info", "info"},
	{"btn_city", "city"},
	{"btn_back", "back"},
	{"btn_inline_search", "inline_search"},
}

// AdminButtons lists the button labels with their current value.
func AdminButtons(t i18n.Translator, s *Settings) *telebot.ReplyMarkup {
	kb := keyboard.NewInlineKeyboard()
	for _, b := range buttonKeys {
		label := t.T("escort.admin.button_prefix") + t.T("escort.admin.section_"+b.title)
		if current := s.Get(b.key); current != "" {
			label += " — <" + current + ">"
		}
		kb.AddRow(keyboard.Callback(label, "admin:btn_set", b.key))
	}
	kb.AddRow(keyboard.Callback(t.T("common.back"), cbAdmin, "design"))
	return kb.MustBuild()
}

// AdminSections shows a toggle per main menu section.
func AdminSections(t i18n.Translator, s *Settings) *telebot.ReplyMarkup {
	kb := keyboard.NewInlineKeyboard()
	for _, section := range AllSections {
		mark := "❌"
		if s.MenuSections.Has(section) {
			mark = "✅"
		}
		kb.AddRow(keyboard.Callback(mark+" "+t.T("escort.admin.section_"+section), "admin:toggle_section", section))
	}
	kb.AddRow(keyboard.Callback(t.T("common.back"), cbAdmin, "design"))
	return kb.MustBuild()
}

// AdminInput is attached to every admin text prompt. backTo is full callback data.
func AdminInput(t i18n.Translator, backTo string) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(keyboard.Callback(t.T("common.back"), backTo, "")).
		AddRow(keyboard.Callback(t.T("common.close"), cbAdmin, "close")).
		MustBuild()
}
