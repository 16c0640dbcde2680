package team

import (
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/emerans-bots/internal/bot/keyboard"
	"github.com/Proton-105/emerans-bots/internal/i18n"
)

// Callback prefixes understood by the team bot.
const (
	cbMenu       = "menu"
	cbApply      = "apply"
	cbOrigin     = "origin"
	cbTime       = "time"
	cbProfile    = "profile"
	cbWallet     = "wallet"
	cbWithdraw   = "withdraw"
	cbDirection  = "direction"
	cbAbout      = "about"
	cbAdmin      = "admin"
	cbDesign     = "design"
	cbLinks      = "links"
	cbProfitSvc  = "profit:service"
	cbProfitRate = "profit:rate"
	cbProfitMent = "profit:mentor"
	cbProfitMult = "profit:multiplier"
)

// Profit services and payout rates offered by the profit wizard.
var (
	services    = []string{"escort", "trade", "nft", "direct"}
	payoutRates = []int{80, 70, 65, 100}
)

// MainMenu is the member menu; admins get an extra row.
func MainMenu(t i18n.Translator, isAdmin bool) *telebot.ReplyMarkup {
	kb := keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("team.menu_profile"), cbMenu, "profile"),
			keyboard.Callback(t.T("team.menu_tracks"), cbMenu, "tracks"),
		).
		AddRow(
			keyboard.Callback(t.T("team.menu_mentors"), cbMenu, "mentors"),
			keyboard.Callback(t.T("team.menu_about"), cbMenu, "about"),
		)
	if isAdmin {
		kb.AddRow(keyboard.Callback(t.T("team.admin_button"), cbMenu, "admin"))
	}
	return kb.MustBuild()
}

// ApplyMenu is shown to visitors who are not in the team yet.
func ApplyMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(keyboard.Callback(t.T("team.apply_button"), cbApply, "start")).
		MustBuild()
}

// OriginMenu answers "where did you hear about us".
func OriginMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("team.origin_ad"), cbOrigin, "ad"),
			keyboard.Callback(t.T("team.origin_tiktok"), cbOrigin, "tiktok"),
		).
		MustBuild()
}

// TimeMenu answers "how much time can you spend".
func TimeMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("team.time_4h"), cbTime, "4h"),
			keyboard.Callback(t.T("team.time_8h"), cbTime, "8h+"),
		).
		MustBuild()
}

// DecisionMenu is attached to the application posted in the admin chat.
func DecisionMenu(t i18n.Translator, userID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(userID, 10)
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("team.accept_button"), "admin:accept", id),
			keyboard.Callback(t.T("team.reject_button"), "admin:reject", id),
		).
		MustBuild()
}

// ProfileMenu shows the profile actions and the current profit visibility.
func ProfileMenu(t i18n.Translator, showNickname bool) *telebot.ReplyMarkup {
	toggle := t.T("team.profits_off")
	if showNickname {
		toggle = t.T("team.profits_on")
	}
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("team.nickname_button"), cbProfile, "nickname"),
			keyboard.Callback(t.T("team.description_button"), cbProfile, "description"),
		).
		AddRow(
			keyboard.Callback(t.T("team.wallet_button"), cbProfile, "wallet"),
			keyboard.Callback(toggle, cbProfile, "profits_toggle"),
		).
		AddRow(keyboard.Callback(t.T("common.back"), cbProfile, "back")).
		MustBuild()
}

// WalletMenu offers withdrawal and history.
func WalletMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("team.withdraw_button"), cbWallet, "withdraw"),
			keyboard.Callback(t.T("team.history_button"), cbWallet, "history"),
		).
		AddRow(keyboard.Callback(t.T("common.back"), cbWallet, "back")).
		MustBuild()
}

// WithdrawRequestMenu lets an admin take a withdrawal request.
func WithdrawRequestMenu(t i18n.Translator, userID int64, amount string) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(keyboard.Callback(t.T("team.take_button"), "withdraw:take", keyboard.Args(strconv.FormatInt(userID, 10), amount))).
		MustBuild()
}

// DirectionsMenu lists the work directions.
func DirectionsMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("team.direction_escort_button"), cbDirection, "escort"),
			keyboard.Callback(t.T("team.direction_trade_button"), cbDirection, "trade"),
		).
		AddRow(
			keyboard.Callback(t.T("team.direction_nft_button"), cbDirection, "nft"),
			keyboard.Callback(t.T("common.back"), cbDirection, "back"),
		).
		MustBuild()
}

// linkSections orders the about-screen links.
var linkSections = []string{LinkInfo, LinkManuals, LinkProfits, LinkChat}

// AboutMenu shows a URL button per configured link.
func AboutMenu(t i18n.Translator, links map[string]string) *telebot.ReplyMarkup {
	kb := keyboard.NewInlineKeyboard()
	for _, section := range linkSections {
		if url := links[section]; url != "" {
			kb.AddRow(keyboard.Link(t.T("team.link_"+section), url))
		}
	}
	kb.AddRow(keyboard.Callback(t.T("common.back"), cbAbout, "back"))
	return kb.MustBuild()
}

// BackMenu is a single back button with full callback data.
func BackMenu(t i18n.Translator, data string) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(keyboard.Callback(t.T("common.back"), data, "")).
		MustBuild()
}

// AdminMenu is the root of the admin panel.
func AdminMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return keyboard.NewInlineKeyboard().
		AddRow(
			keyboard.Callback(t.T("team.admin.design_button"), cbAdmin, "design"),
			keyboard.Callback(t.T("team.admin.mentor_add_button"), cbAdmin, "mentor_add"),
		).
		AddRow(
			keyboard.Callback(t.T("team.admin.profits_button"), cbAdmin, "profits"),
			keyboard.Callback(t.T("team.admin.balance_button"), cbAdmin, "balance_grant"),
		).
		AddRow(
			keyboard.Callback(t.T("team.admin.profit_channel_button"), cbAdmin, "profit_channel"),
			keyboard.Callback(t.T("team.admin.links_button"), cbAdmin, "links"),
		).
		AddRow(keyboard.Callback(t.T("common.back"), cbAdmin, "back")).
		MustBuild()
}

// bannerSections orders the design screen.
var bannerSections = []string{SectionMain, SectionDirections, SectionMentors, SectionAbout, SectionProfile}

// DesignMenu picks the section whose banner is replaced.
func DesignMenu(t i18n.Translator) *telebot.ReplyMarkup {
	buttons := make([]keyboard.InlineButton, 0, len(bannerSections))
	for _, section := range bannerSections {
		buttons = append(buttons, keyboard.Callback(t.T("team.admin.section_"+section), cbDesign, section))
	}
	return keyboard.NewInlineKeyboard().
		AddGrid(2, buttons...).
		AddRow(keyboard.Callback(t.T("common.back"), cbDesign, "back")).
		MustBuild()
}

// LinksMenu picks the section whose link is replaced.
func LinksMenu(t i18n.Translator) *telebot.ReplyMarkup {
	buttons := make([]keyboard.InlineButton, 0, len(linkSections))
	for _, section := range linkSections {
		buttons = append(buttons, keyboard.Callback(t.T("team.link_"+section), cbLinks, section))
	}
	return keyboard.NewInlineKeyboard().
		AddGrid(2, buttons...).
		AddRow(keyboard.Callback(t.T("common.back"), cbLinks, "back")).
		MustBuild()
}

// ServiceMenu is the first choice of the profit wizard.
func ServiceMenu(t i18n.Translator) *telebot.ReplyMarkup {
	buttons := make([]keyboard.InlineButton, 0, len(services))
	for _, service := range services {
		buttons = append(buttons, keyboard.Callback(t.T("team.admin.service_"+service), cbProfitSvc, service))
	}
	return keyboard.NewInlineKeyboard().AddGrid(2, buttons...).MustBuild()
}

// RateMenu lists the payout rates.
func RateMenu() *telebot.ReplyMarkup {
	buttons := make([]keyboard.InlineButton, 0, len(payoutRates))
	for _, rate := range payoutRates {
		buttons = append(buttons, keyboard.Callback(strconv.Itoa(rate)+"%", cbProfitRate, strconv.Itoa(rate)))
	}
	return keyboard.NewInlineKeyboard().AddGrid(2, buttons...).MustBuild()
}

// MentorMenu lists the mentors two per row plus "no mentor".
func MentorMenu(t i18n.Translator, mentors []int64) *telebot.ReplyMarkup {
	buttons := make([]keyboard.InlineButton, 0, len(mentors))
	for _, id := range mentors {
		raw := strconv.FormatInt(id, 10)
		buttons = append(buttons, keyboard.Callback("🧑‍🏫 "+raw, cbProfitMent, raw))
	}
	return keyboard.NewInlineKeyboard().
		AddGrid(2, buttons...).
		AddRow(keyboard.Callback(t.T("team.admin.profit_no_mentor_button"), cbProfitMent, "none")).
		MustBuild()
}

// MultiplierMenu offers x1..x10.
func MultiplierMenu() *telebot.ReplyMarkup {
	buttons := make([]keyboard.InlineButton, 0, 10)
	for m := 1; m <= 10; m++ {
		buttons = append(buttons, keyboard.Callback("х"+strconv.Itoa(m), cbProfitMult, strconv.Itoa(m)))
	}
	return keyboard.NewInlineKeyboard().AddGrid(2, buttons...).MustBuild()
}
