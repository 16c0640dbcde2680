package escort

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/emerans-bots/internal/bot"
	apperrors "github.com/Proton-105/emerans-bots/internal/errors"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/ledger"
	"github.com/Proton-105/emerans-bots/internal/store"
)

// StoreName labels the catalog bot document in logs and metrics.
const StoreName = "escort"

// Deps are the collaborators of the catalog bot handlers.
type Deps struct {
	Store      *store.Store[Document]
	Engine     *flow.Engine
	Translator i18n.Translator
	Admins     *bot.Admins
	Log        *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handlers serves every command, callback and flow of the catalog bot.
type Handlers struct {
	store  *store.Store[Document]
	engine *flow.Engine
	t      i18n.Translator
	admins *bot.Admins
	log    *slog.Logger
	now    func() time.Time
}

// New wires the handlers and registers the catalog bot flows with the engine.
func New(deps Deps) (*Handlers, error) {
	if deps.Store == nil || deps.Engine == nil || deps.Translator == nil {
		return nil, fmt.Errorf("escort: store, engine and translator are required")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	h := &Handlers{
		store:  deps.Store,
		engine: deps.Engine,
		t:      deps.Translator,
		admins: deps.Admins,
		log:    deps.Log,
		now:    deps.Now,
	}
	if err := h.engine.Register(h.flows()...); err != nil {
		return nil, fmt.Errorf("escort: register flows: %w", err)
	}
	return h, nil
}

// Register binds the handlers to r.
func (h *Handlers) Register(r *bot.Router) {
	r.RegisterCommand(bot.CommandStart, h.Start)
	r.RegisterCommand(bot.CommandCity, h.City)
	r.RegisterCommand(bot.CommandAdmin, h.Admin)
	r.RegisterCommand(bot.CommandCancel, h.Cancel)

	r.RegisterCallback("menu:", h.Menu)
	r.RegisterCallback("models:", h.Models)
	r.RegisterCallback("model:", h.Model)
	r.RegisterCallback("profile:", h.Profile)
	r.RegisterCallback(cbTopupBack, h.TopupBack)
	r.RegisterCallback("pay:", h.Pay)
	r.RegisterCallback("admin:", h.AdminCallback)

	r.SetDefault(h.Text)
	r.SetInline(h.Inline)
}

// Commands lists the commands published to Telegram clients.
func (h *Handlers) Commands() []string {
	return []string{bot.CommandStart, bot.CommandCity, bot.CommandCancel}
}

func (h *Handlers) isAdmin(userID int64) bool {
	return h.admins.Contains(userID)
}

// viewer returns a copy of the user's profile and the current settings, creating the
// profile on first contact.
func (h *Handlers) viewer(ctx context.Context, in flow.Input) (ledger.Profile, Settings, error) {
	var (
		profile  ledger.Profile
		settings Settings
		missing  bool
	)
	h.store.View(func(doc *Document) {
		p := doc.Profiles.Get(in.UserID)
		if p == nil || (in.DisplayHint() != "" && p.Username != in.DisplayHint()) {
			missing = true
			return
		}
		profile = *p
		settings = doc.Settings.Clone()
	})
	if !missing {
		return profile, settings, nil
	}

	err := h.store.Update(ctx, func(doc *Document) error {
		profile = *doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
		settings = doc.Settings.Clone()
		return nil
	})
	if err != nil {
		return profile, settings, apperrors.NewStorageError(err)
	}
	return profile, settings, nil
}

func (h *Handlers) settings() Settings {
	var s Settings
	h.store.View(func(doc *Document) { s = doc.Settings.Clone() })
	return s
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
