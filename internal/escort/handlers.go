package escort

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Proton-105/emerans-bots/internal/bot/handlers"
	"github.com/Proton-105/emerans-bots/internal/catalog"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/ledger"
)

// Start registers the visitor, binds the referring worker from the payload once and
// either shows the menu or asks for the city.
func (h *Handlers) Start(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	workerID, hasWorker := parseWorkerID(in.Payload)

	var (
		profile ledger.Profile
		s       Settings
	)
	err := h.update(ctx, func(doc *Document) error {
		p := doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
		if hasWorker && ledger.BindReferrer(p, workerID) {
			h.log.InfoContext(ctx, "visitor bound to worker",
				slog.Int64("user_id", in.UserID),
				slog.Int64("worker_id", workerID),
			)
		}
		profile = *p
		s = doc.Settings.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	effects := []flow.Effect{flow.Log(h.startLog(in, profile))}

	if profile.City != "" {
		return append(effects, flow.Reply(s.MenuText).WithMarkup(MainMenu(h.t, &s))), nil
	}

	prompt, err := h.engine.Begin(ctx, in, FlowCity, flow.Bag{keyPrompt: s.WelcomeText})
	if err != nil {
		return effects, err
	}
	return append(effects, prompt...), nil
}

func (h *Handlers) startLog(in flow.Input, p ledger.Profile) string {
	worker := h.t.T("escort.not_bound")
	if p.WorkerID != nil {
		worker = strconv.FormatInt(*p.WorkerID, 10)
	}
	username := in.Username
	if username == "" {
		username = h.t.T("escort.no_username")
	}
	return i18n.Format(h.t, "escort.start_log",
		"worker", worker,
		"id", strconv.FormatInt(in.UserID, 10),
		"username", username,
	)
}

// parseWorkerID accepts only a plain decimal user id.
func parseWorkerID(payload string) (int64, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0, false
	}
	for _, r := range payload {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// City starts the city flow, replacing a stored city on answer.
func (h *Handlers) City(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	return h.engine.Begin(ctx, in, FlowCity, flow.Bag{keyPrompt: h.t.T("escort.city_prompt")})
}

// Cancel confirms that the running flow was dropped and shows the menu.
func (h *Handlers) Cancel(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	return handlers.NewCancelHandler(h.t, h.menu)(ctx, in)
}

func (h *Handlers) menu(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	_, s, err := h.viewer(ctx, in)
	if err != nil {
		return nil, err
	}
	return []flow.Effect{flow.Respond(in, s.MenuText).WithMarkup(MainMenu(h.t, &s))}, nil
}

// Text handles free text outside of any flow: without a city the text becomes the
// city, otherwise the menu is shown again.
func (h *Handlers) Text(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if in.Kind != flow.KindText || !in.Private() {
		return nil, nil
	}

	profile, _, err := h.viewer(ctx, in)
	if err != nil {
		return nil, err
	}
	if profile.City == "" {
		outcome, err := h.handleCity(ctx, in, nil)
		if err != nil {
			return nil, err
		}
		return outcome.Effects(), nil
	}
	return h.menu(ctx, in)
}

// Menu serves the main menu buttons.
func (h *Handlers) Menu(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	action, _ := in.CallbackArg("menu:")

	profile, s, err := h.viewer(ctx, in)
	if err != nil {
		return nil, err
	}

	switch action {
	case "profile":
		return []flow.Effect{flow.Edit(ProfileText(h.t, &profile)).AsHTML().WithMarkup(ProfileMenu(h.t, &s))}, nil

	case "support":
		support := s.Label("support_username", "@EmeransClubSupport_bot")
		return []flow.Effect{flow.Edit(i18n.Format(h.t, "escort.support", "support", support)).WithMarkup(MainMenu(h.t, &s))}, nil

	case "info":
		channel := s.ChannelLink
		if channel == "" {
			channel = h.t.T("escort.channel_unset")
		}
		text := i18n.Format(h.t, "escort.info",
			"title", html.EscapeString(s.Label("title", "Emerans Club")),
			"channel", html.EscapeString(channel),
		)
		return []flow.Effect{flow.Edit(text).AsHTML().WithMarkup(MainMenu(h.t, &s))}, nil

	case "city":
		return h.engine.Begin(ctx, in, FlowCity, flow.Bag{keyPrompt: h.t.T("escort.city_prompt")})

	case "models":
		return h.modelList(ctx, in, profile, s, 0)

	default:
		return nil, nil
	}
}

// modelList shows page of the models visible in the viewer's city, asking for the
// city first when it is unknown.
func (h *Handlers) modelList(ctx context.Context, in flow.Input, profile ledger.Profile, s Settings, page int) ([]flow.Effect, error) {
	if profile.City == "" {
		return h.engine.Begin(ctx, in, FlowCity, flow.Bag{keyPrompt: h.t.T("escort.city_first")})
	}

	var visible []catalog.Indexed
	h.store.View(func(doc *Document) {
		visible = catalog.ListFor(doc.Models, profile.City)
	})
	if len(visible) == 0 {
		return []flow.Effect{flow.Edit(h.t.T("escort.models_empty")).WithMarkup(MainMenu(h.t, &s))}, nil
	}

	text := i18n.Format(h.t, "escort.models_title", "city", html.EscapeString(profile.City))
	return []flow.Effect{flow.Edit(text).AsHTML().WithMarkup(ModelList(h.t, &s, visible, page))}, nil
}

// Models serves list pagination and the way back to the menu.
func (h *Handlers) Models(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	profile, s, err := h.viewer(ctx, in)
	if err != nil {
		return nil, err
	}

	if in.Data == cbModelsBack {
		return []flow.Effect{flow.Edit(s.MenuText).WithMarkup(MainMenu(h.t, &s))}, nil
	}
	if raw, ok := in.CallbackArg(cbModelsPage + ":"); ok {
		return h.modelList(ctx, in, profile, s, atoiOrZero(raw))
	}
	return nil, nil
}

// Model opens a model card ("model:<index>:<page>") or goes back to the list
// ("model:back:<page>").
func (h *Handlers) Model(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	profile, s, err := h.viewer(ctx, in)
	if err != nil {
		return nil, err
	}

	if raw, ok := in.CallbackArg(cbModelBack); ok {
		return h.modelList(ctx, in, profile, s, atoiOrZero(strings.TrimPrefix(raw, ":")))
	}

	raw, _ := in.CallbackArg("model:")
	indexPart, pagePart, _ := strings.Cut(raw, ":")
	index, err := strconv.Atoi(indexPart)
	if err != nil {
		return nil, nil
	}
	page := atoiOrZero(pagePart)

	if profile.City == "" {
		return h.engine.Begin(ctx, in, FlowCity, flow.Bag{keyPrompt: h.t.T("escort.city_first")})
	}

	var (
		item    catalog.Item
		lookErr error
		visible []catalog.Indexed
	)
	h.store.View(func(doc *Document) {
		item, lookErr = catalog.Get(doc.Models, index)
		visible = catalog.ListFor(doc.Models, profile.City)
	})
	if errors.Is(lookErr, catalog.ErrNotFound) {
		return []flow.Effect{flow.Edit(h.t.T("escort.model_not_found")).WithMarkup(ModelList(h.t, &s, visible, page))}, nil
	}

	return []flow.Effect{flow.Edit(ModelText(h.t, item)).AsHTML().WithMarkup(ModelDetail(h.t, &s, item, page))}, nil
}

// Profile serves the profile screen buttons.
func (h *Handlers) Profile(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	action, _ := in.CallbackArg("profile:")

	switch action {
	case "topup":
		return h.engine.Begin(ctx, in, FlowTopup, nil)
	case "favorites":
		s := h.settings()
		return []flow.Effect{flow.Edit(h.t.T("escort.favorites")).WithMarkup(ProfileMenu(h.t, &s))}, nil
	case "back":
		return h.menu(ctx, in)
	default:
		return nil, nil
	}
}

// TopupBack returns to the menu when no top-up is in progress.
func (h *Handlers) TopupBack(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	return h.menu(ctx, in)
}

// Pay answers the payment method buttons with the amount chosen last.
func (h *Handlers) Pay(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	method, _ := in.CallbackArg("pay:")
	if method != "card" && method != "cash" {
		return nil, nil
	}

	profile, _, err := h.viewer(ctx, in)
	if err != nil {
		return nil, err
	}
	var amount int64
	if profile.TopupAmount != nil {
		amount = *profile.TopupAmount
	}

	text := i18n.Format(h.t, "escort.pay_"+method, "amount", strconv.FormatInt(amount, 10))
	return []flow.Effect{flow.Edit(text)}, nil
}

// Inline answers inline queries with matching models from the whole catalog.
func (h *Handlers) Inline(_ context.Context, in flow.Input) ([]flow.Effect, error) {
	var results []flow.InlineResult
	h.store.View(func(doc *Document) {
		results = SearchResults(h.t, doc.Models, in.Query)
	})
	return []flow.Effect{flow.Inline(results)}, nil
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
