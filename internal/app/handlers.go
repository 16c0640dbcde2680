package app

import (
	"context"
	"fmt"

	"github.com/Proton-105/emerans-bots/internal/banner"
	"github.com/Proton-105/emerans-bots/internal/escort"
	"github.com/Proton-105/emerans-bots/internal/health"
	"github.com/Proton-105/emerans-bots/internal/store"
	"github.com/Proton-105/emerans-bots/internal/support"
	"github.com/Proton-105/emerans-bots/internal/team"
	"github.com/Proton-105/emerans-bots/pkg/config"
)

const defaultLang = "ru"

// openStore loads the bot document and writes it straight back, which creates the
// data directory on first start and fails early when it is not writable.
func openStore[D any](ctx context.Context, a *App, name, path string, newDoc func() *D) (*store.Store[D], error) {
	st, err := store.Open(ctx, name, path, newDoc, a.log)
	if err != nil {
		return nil, err
	}
	if err := st.Save(ctx); err != nil {
		return nil, err
	}

	a.checker.AddCheck("store", health.NewFileChecker(st.Path()))
	a.shutdown.Register("store", st.Save)
	return st, nil
}

func (a *App) buildHandlers(ctx context.Context, common config.BotConfig) (Handlers, error) {
	tr := a.tr

	switch a.name {
	case config.BotEscort:
		st, err := openStore(ctx, a, escort.StoreName, common.DataFile, escort.NewDocument)
		if err != nil {
			return nil, err
		}
		return escort.New(escort.Deps{
			Store:      st,
			Engine:     a.engine,
			Translator: tr,
			Admins:     a.admins,
			Log:        a.log,
		})

	case config.BotTeam:
		st, err := openStore(ctx, a, team.StoreName, common.DataFile, team.NewDocument)
		if err != nil {
			return nil, err
		}
		return team.New(team.Deps{
			Store:       st,
			Engine:      a.engine,
			Translator:  tr,
			Admins:      a.admins,
			AdminChatID: a.cfg.Team.AdminChatID,
			CatalogBot:  a.cfg.Team.CatalogBot,
			Media:       a.bot.Gateway(),
			Renderer:    banner.New(a.cfg.Banner.FontPath, a.log),
			Log:         a.log,
		})

	case config.BotSupport:
		st, err := openStore(ctx, a, support.StoreName, common.DataFile, support.NewDocument)
		if err != nil {
			return nil, err
		}
		return support.New(support.Deps{
			Store:      st,
			Translator: tr,
			Topics:     a.bot.Gateway(),
			ChatID:     a.cfg.Support.SupportChatID,
			Greeting:   a.cfg.Support.GreetingText,
			IconColor:  a.cfg.Support.TopicIconColor,
			Log:        a.log,
		})

	default:
		return nil, fmt.Errorf("unknown bot %q", a.name)
	}
}
