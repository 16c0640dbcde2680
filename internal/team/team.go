package team

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/emerans-bots/internal/banner"
	"github.com/Proton-105/emerans-bots/internal/bot"
	apperrors "github.com/Proton-105/emerans-bots/internal/errors"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/store"
)

// StoreName labels the team bot document in logs and metrics.
const StoreName = "team"

// DefaultCatalogBot is the catalog bot username used in referral links.
const DefaultCatalogBot = "EmeransClub_bot"

// Media downloads banners and avatars. *transport.Gateway implements it.
type Media interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
	Avatar(ctx context.Context, userID int64) ([]byte, error)
}

// CardRenderer draws the profile card. *banner.Renderer implements it.
type CardRenderer interface {
	Render(base []byte, card banner.Card, avatar []byte) ([]byte, error)
}

// Deps are the collaborators of the team bot handlers.
type Deps struct {
	Store      *store.Store[Document]
	Engine     *flow.Engine
	Translator i18n.Translator
	Admins     *bot.Admins
	// AdminChatID receives applications and withdrawal requests; zero disables both notices.
	AdminChatID int64
	CatalogBot  string
	// Media and Renderer are optional; without them the profile is plain text.
	Media    Media
	Renderer CardRenderer
	Log      *slog.Logger
	Now      func() time.Time
}

// Handlers serves every command, callback and flow of the team bot.
type Handlers struct {
	store       *store.Store[Document]
	engine      *flow.Engine
	t           i18n.Translator
	admins      *bot.Admins
	adminChatID int64
	catalogBot  string
	media       Media
	renderer    CardRenderer
	log         *slog.Logger
	now         func() time.Time
}

// New wires the handlers and registers the team bot flows with the engine.
func New(deps Deps) (*Handlers, error) {
	if deps.Store == nil || deps.Engine == nil || deps.Translator == nil {
		return nil, fmt.Errorf("team: store, engine and translator are required")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.CatalogBot == "" {
		deps.CatalogBot = DefaultCatalogBot
	}

	h := &Handlers{
		store:       deps.Store,
		engine:      deps.Engine,
		t:           deps.Translator,
		admins:      deps.Admins,
		adminChatID: deps.AdminChatID,
		catalogBot:  deps.CatalogBot,
		media:       deps.Media,
		renderer:    deps.Renderer,
		log:         deps.Log,
		now:         deps.Now,
	}
	if err := h.engine.Register(h.flows()...); err != nil {
		return nil, fmt.Errorf("team: register flows: %w", err)
	}
	return h, nil
}

// Register binds the handlers to r.
func (h *Handlers) Register(r *bot.Router) {
	r.RegisterCommand(bot.CommandStart, h.Start)
	r.RegisterCommand(bot.CommandAdmin, h.Admin)
	r.RegisterCommand(bot.CommandCancel, h.Cancel)

	r.RegisterCallback("apply:", h.Apply)
	r.RegisterCallback("admin:accept:", h.Decide)
	r.RegisterCallback("admin:reject:", h.Decide)
	r.RegisterCallback("menu:", h.Menu)
	r.RegisterCallback("profile:", h.Profile)
	r.RegisterCallback("wallet:", h.Wallet)
	r.RegisterCallback("withdraw:take:", h.TakeWithdrawal)
	r.RegisterCallback("direction:", h.Direction)
	r.RegisterCallback("about:", h.About)
	r.RegisterCallback("admin:", h.AdminCallback)
	r.RegisterCallback("design:", h.Design)
	r.RegisterCallback("links:", h.Links)

	for _, prefix := range []string{"origin:", "time:", "profit:"} {
		r.RegisterCallback(prefix, h.Expired)
	}
}

// Commands lists the commands published to Telegram clients.
func (h *Handlers) Commands() []string {
	return []string{bot.CommandStart, bot.CommandCancel}
}

func (h *Handlers) isAdmin(userID int64) bool {
	return h.admins.Contains(userID)
}

// isMember reports whether the user may use the member menu.
func (h *Handlers) isMember(userID int64) bool {
	if h.isAdmin(userID) {
		return true
	}
	var approved bool
	h.store.View(func(doc *Document) { approved = doc.IsApproved(userID) })
	return approved
}

func (h *Handlers) banner(section string) string {
	var id string
	h.store.View(func(doc *Document) { id = doc.Banners[section] })
	return id
}

// update runs fn against the document and maps save failures to storage errors.
// Errors returned by fn itself pass through unchanged.
func (h *Handlers) update(ctx context.Context, fn func(doc *Document) error) error {
	var fnErr error
	err := h.store.Update(ctx, func(doc *Document) error {
		fnErr = fn(doc)
		return fnErr
	})
	if err == nil || fnErr != nil {
		return err
	}
	return apperrors.NewStorageError(err)
}

// withBanner shows e over the section banner when one is configured.
func withBanner(e flow.Effect, bannerID string) flow.Effect {
	if bannerID == "" {
		return e
	}
	return e.WithPhoto(bannerID)
}
