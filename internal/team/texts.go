package team

import (
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/Proton-105/emerans-bots/internal/banner"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/ledger"
)

// historySize is how many recent profits the wallet history shows.
const historySize = 10

// userLink renders an HTML mention of userID labelled with label.
func userLink(userID int64, label string) string {
	return `<a href="tg://user?id=` + strconv.FormatInt(userID, 10) + `">` + html.EscapeString(label) + `</a>`
}

// displayName picks the nickname, then the Telegram name, then "ID <id>".
func displayName(p *ledger.Profile, in flow.Input) string {
	switch {
	case p.Nickname != "":
		return p.Nickname
	case in.FullName() != "":
		return in.FullName()
	case in.Username != "":
		return in.Username
	default:
		return "ID " + strconv.FormatInt(p.UserID, 10)
	}
}

func profitSummary(t i18n.Translator, p *ledger.Profile) string {
	return i18n.Format(t, "team.card_profit",
		"total", p.ProfitTotalRub.Format(),
		"count", strconv.Itoa(p.ProfitCount),
	)
}

// ProfileText renders the worker profile as HTML.
func ProfileText(t i18n.Translator, p *ledger.Profile, name string, now time.Time) string {
	daily, weekly, monthly := ledger.Windows(p, now)
	description := p.Description
	if description == "" {
		description = t.T("team.description_unset")
	}
	return i18n.Format(t, "team.profile",
		"nickname", userLink(p.UserID, name),
		"status", html.EscapeString(p.StatusLabel()),
		"count", strconv.Itoa(p.ProfitCount),
		"total", p.ProfitTotalRub.Format(),
		"daily", strconv.Itoa(daily),
		"weekly", strconv.Itoa(weekly),
		"monthly", strconv.Itoa(monthly),
		"description", html.EscapeString(description),
		"days", strconv.Itoa(p.DaysWithUs(now)),
	)
}

// ProfileCard is what the banner renderer writes on the profile banner.
func ProfileCard(t i18n.Translator, p *ledger.Profile, name string, now time.Time) banner.Card {
	return banner.Card{
		Nickname: name,
		Profit:   profitSummary(t, p),
		Days:     strconv.Itoa(p.DaysWithUs(now)),
	}
}

// WalletText shows the balance and withdrawal terms.
func WalletText(t i18n.Translator, p *ledger.Profile) string {
	return i18n.Format(t, "team.wallet", "balance", strconv.FormatInt(p.BalanceRub, 10))
}

// HistoryText lists the most recent profits, newest first.
func HistoryText(t i18n.Translator, p *ledger.Profile) string {
	if len(p.ProfitHistory) == 0 {
		return t.T("team.history_empty")
	}

	lines := make([]string, 0, historySize)
	for i := len(p.ProfitHistory) - 1; i >= 0 && len(lines) < historySize; i-- {
		entry := p.ProfitHistory[i]
		ts := entry.Timestamp
		if parsed, ok := ledger.ParseTimestamp(entry.Timestamp); ok {
			ts = parsed.Format("02.01.2006 15:04")
		}
		lines = append(lines, i18n.Format(t, "team.history_entry",
			"ts", ts,
			"amount", entry.Amount.Format(),
			"rate", strconv.Itoa(entry.Rate),
		))
	}
	return i18n.Format(t, "team.history", "entries", strings.Join(lines, "\n"))
}

// AboutText shows the team totals.
func AboutText(t i18n.Translator, doc *Document) string {
	return i18n.Format(t, "team.about",
		"total", doc.ProfitTotalRub.Format(),
		"count", strconv.Itoa(doc.ProfitCount),
	)
}

// MentorsText lists mentors as mentions, or says the section is not ready.
func MentorsText(t i18n.Translator, mentors []int64) string {
	if len(mentors) == 0 {
		return t.T("common.in_progress")
	}
	lines := make([]string, 0, len(mentors))
	for _, id := range mentors {
		lines = append(lines, "• "+userLink(id, strconv.FormatInt(id, 10)))
	}
	return i18n.Format(t, "team.mentors", "list", strings.Join(lines, "\n"))
}

// ApplicationText is the notice posted to the admin chat.
func ApplicationText(t i18n.Translator, app Application) string {
	username := app.Username
	if username == "" {
		username = t.T("team.no_username")
	}
	return i18n.Format(t, "team.application",
		"name", app.FullName,
		"username", username,
		"id", strconv.FormatInt(app.UserID, 10),
		"origin", app.Origin,
		"time", app.Time,
		"about", app.About,
	)
}

// ServiceLabel names a profit service.
func ServiceLabel(t i18n.Translator, service string) string {
	key := "team.admin.service_" + service
	if label := t.T(key); label != key {
		return label
	}
	return t.T("team.admin.service_unknown")
}

// ProfitPost is the message published to the profit channel.
type ProfitPost struct {
	Worker     *ledger.Profile
	Amount     ledger.Amount
	Service    string
	MentorID   int64
	Multiplier string
}

// Render formats the post as HTML. Workers who hid their nickname stay anonymous.
func (p ProfitPost) Render(t i18n.Translator) string {
	worker := t.T("team.admin.profit_hidden")
	if p.Worker.ShowsNickname() {
		name := p.Worker.Nickname
		if name == "" {
			name = "ID " + strconv.FormatInt(p.Worker.UserID, 10)
		}
		worker = i18n.Format(t, "team.admin.profit_worker",
			"worker", userLink(p.Worker.UserID, name),
			"status", html.EscapeString(p.Worker.StatusLabel()),
		)
	}

	mentor := ""
	if p.MentorID != 0 {
		raw := strconv.FormatInt(p.MentorID, 10)
		mentor = i18n.Format(t, "team.admin.profit_mentor_line", "mentor", userLink(p.MentorID, raw))
	}

	return i18n.Format(t, "team.admin.profit_post",
		"worker", worker,
		"amount", p.Amount.Format(),
		"service", ServiceLabel(t, p.Service),
		"mentor", mentor,
		"multiplier", html.EscapeString(p.Multiplier),
	)
}
