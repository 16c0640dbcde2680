package bot

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/emerans-bots/internal/i18n"
)

// Command names shared by the bots, without the slash.
const (
	CommandStart  = "start"
	CommandCancel = "cancel"
	CommandAdmin  = "admin"
	CommandCity   = "city"
)

// CommandMenu returns the command list published to Telegram for names, described from
// the "commands" translations.
func CommandMenu(t i18n.Translator, names ...string) []telebot.Command {
	menu := make([]telebot.Command, 0, len(names))
	for _, name := range names {
		menu = append(menu, telebot.Command{
			Text:        name,
			Description: t.T("commands." + name),
		})
	}
	return menu
}
