package team

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Proton-105/emerans-bots/internal/bot/handlers"
	"github.com/Proton-105/emerans-bots/internal/bot/keyboard"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/ledger"
	"github.com/Proton-105/emerans-bots/internal/transport"
)

// Start greets visitors with the application button and members with the menu.
func (h *Handlers) Start(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	err := h.update(ctx, func(doc *Document) error {
		doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if h.isMember(in.UserID) {
		return []flow.Effect{h.mainMenu(in, flow.Reply(h.t.T("team.welcome")))}, nil
	}
	return []flow.Effect{flow.Reply(h.t.T("team.greeting")).AsHTML().WithMarkup(ApplyMenu(h.t))}, nil
}

func (h *Handlers) mainMenu(in flow.Input, e flow.Effect) flow.Effect {
	return withBanner(e.WithMarkup(MainMenu(h.t, h.isAdmin(in.UserID))), h.banner(SectionMain))
}

func (h *Handlers) menu(_ context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isMember(in.UserID) {
		return nil, nil
	}
	return []flow.Effect{h.mainMenu(in, flow.Respond(in, h.t.T("team.welcome")))}, nil
}

// Cancel confirms that the running flow was dropped and shows the menu to members.
func (h *Handlers) Cancel(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	return handlers.NewCancelHandler(h.t, h.menu)(ctx, in)
}

// Apply starts the application questionnaire.
func (h *Handlers) Apply(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if h.isMember(in.UserID) {
		return []flow.Effect{flow.Toast(h.t.T("team.apply_already_member"), false), h.mainMenu(in, flow.Edit(h.t.T("team.welcome")))}, nil
	}

	var filed bool
	h.store.View(func(doc *Document) { filed = doc.Application(in.UserID) != nil })
	if filed {
		return []flow.Effect{flow.Toast(h.t.T("team.apply_already_filed"), true)}, nil
	}
	return h.engine.Begin(ctx, in, FlowApply, nil)
}

// Decide accepts or rejects an application from the admin chat.
func (h *Handlers) Decide(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isAdmin(in.UserID) && (h.adminChatID == 0 || in.ChatID != h.adminChatID) {
		return []flow.Effect{flow.Toast(h.t.T("team.decision_admins_only"), true)}, nil
	}

	action, _ := in.CallbackArg("admin:")
	verb, raw, _ := strings.Cut(action, ":")
	userID, ok := parseUserID(raw)
	if !ok {
		return []flow.Effect{flow.Edit(h.t.T("team.application_not_found"))}, nil
	}
	accept := verb == "accept"

	err := h.update(ctx, func(doc *Document) error {
		return doc.Decide(userID, accept)
	})
	switch {
	case errors.Is(err, errApplicationNotFound):
		return []flow.Effect{flow.Edit(h.t.T("team.application_not_found"))}, nil
	case errors.Is(err, ErrAlreadyDecided):
		return []flow.Effect{flow.Toast(h.t.T("team.application_decided"), true)}, nil
	case err != nil:
		return nil, err
	}

	h.log.InfoContext(ctx, "application decided",
		slog.Int64("user_id", userID),
		slog.Int64("admin_id", in.UserID),
		slog.Bool("accepted", accept),
	)

	result, notice := "team.rejected", "team.rejected_notice"
	if accept {
		result, notice = "team.accepted", "team.accepted_notice"
	}
	return []flow.Effect{
		flow.Edit(i18n.Format(h.t, result, "id", strconv.FormatInt(userID, 10))),
		flow.Send(userID, h.t.T(notice)),
	}, nil
}

// Menu serves the member menu.
func (h *Handlers) Menu(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isMember(in.UserID) {
		return []flow.Effect{flow.Toast(h.t.T("team.not_member"), true)}, nil
	}

	action, _ := in.CallbackArg("menu:")
	switch action {
	case "profile":
		p, err := h.profile(ctx, in)
		if err != nil {
			return nil, err
		}
		return []flow.Effect{h.profileView(ctx, in, &p)}, nil

	case "tracks":
		e := flow.Edit(h.t.T("team.directions")).WithMarkup(DirectionsMenu(h.t))
		return []flow.Effect{withBanner(e, h.banner(SectionDirections))}, nil

	case "mentors":
		var mentors []int64
		h.store.View(func(doc *Document) { mentors = append(mentors, doc.Mentors...) })
		e := flow.Edit(MentorsText(h.t, mentors)).AsHTML().WithMarkup(BackMenu(h.t, "menu:home"))
		return []flow.Effect{withBanner(e, h.banner(SectionMentors))}, nil

	case "about":
		var (
			text  string
			links = map[string]string{}
		)
		h.store.View(func(doc *Document) {
			text = AboutText(h.t, doc)
			for k, v := range doc.Links {
				links[k] = v
			}
		})
		e := flow.Edit(text).AsHTML().WithMarkup(AboutMenu(h.t, links))
		return []flow.Effect{withBanner(e, h.banner(SectionAbout))}, nil

	case "admin":
		if !h.isAdmin(in.UserID) {
			return []flow.Effect{flow.Edit(h.t.T("common.access_denied"))}, nil
		}
		return []flow.Effect{flow.Edit(h.t.T("team.admin.menu")).WithMarkup(AdminMenu(h.t))}, nil

	case "home":
		return []flow.Effect{h.mainMenu(in, flow.Edit(h.t.T("team.welcome")))}, nil

	default:
		return nil, nil
	}
}

// profile returns a copy of the caller's profile, creating it when missing.
func (h *Handlers) profile(ctx context.Context, in flow.Input) (ledger.Profile, error) {
	var profile ledger.Profile
	err := h.update(ctx, func(doc *Document) error {
		profile = *doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
		return nil
	})
	return profile, err
}

// profileView renders the profile. With a profile banner configured the card is drawn
// over it; any rendering failure falls back to the bare banner or plain text.
func (h *Handlers) profileView(ctx context.Context, in flow.Input, p *ledger.Profile) flow.Effect {
	now := h.now()
	name := displayName(p, in)
	e := flow.Respond(in, ProfileText(h.t, p, name, now)).AsHTML().WithMarkup(ProfileMenu(h.t, p.ShowsNickname()))

	bannerID := h.banner(SectionProfile)
	if bannerID == "" {
		return e
	}
	if h.media == nil || h.renderer == nil {
		return e.WithPhoto(bannerID)
	}

	base, err := h.media.Download(ctx, bannerID)
	if err != nil {
		h.log.WarnContext(ctx, "profile banner download failed", slog.Any("error", err))
		return e
	}
	avatar, err := h.media.Avatar(ctx, in.UserID)
	if err != nil && !errors.Is(err, transport.ErrNoAvatar) {
		h.log.DebugContext(ctx, "avatar unavailable", slog.Int64("user_id", in.UserID), slog.Any("error", err))
	}
	card, err := h.renderer.Render(base, ProfileCard(h.t, p, name, now), avatar)
	if err != nil {
		h.log.WarnContext(ctx, "profile card render failed", slog.Any("error", err))
		return e
	}
	return e.WithRendered(card)
}

// Profile serves the profile buttons.
func (h *Handlers) Profile(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isMember(in.UserID) {
		return []flow.Effect{flow.Toast(h.t.T("team.not_member"), true)}, nil
	}

	action, _ := in.CallbackArg("profile:")
	switch action {
	case "back":
		return []flow.Effect{h.mainMenu(in, flow.Edit(h.t.T("team.welcome")))}, nil

	case "wallet":
		p, err := h.profile(ctx, in)
		if err != nil {
			return nil, err
		}
		return []flow.Effect{flow.Edit(WalletText(h.t, &p)).WithMarkup(WalletMenu(h.t))}, nil

	case "profits_toggle":
		var profile ledger.Profile
		err := h.update(ctx, func(doc *Document) error {
			p := doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
			p.ToggleNickname()
			profile = *p
			return nil
		})
		if err != nil {
			return nil, err
		}
		return []flow.Effect{h.profileView(ctx, in, &profile)}, nil

	case "nickname":
		return h.engine.Begin(ctx, in, FlowNickname, nil)

	case "description":
		return h.engine.Begin(ctx, in, FlowDescription, nil)

	default:
		return nil, nil
	}
}

// Wallet serves the wallet buttons.
func (h *Handlers) Wallet(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isMember(in.UserID) {
		return []flow.Effect{flow.Toast(h.t.T("team.not_member"), true)}, nil
	}

	action, _ := in.CallbackArg("wallet:")
	switch action {
	case "withdraw":
		return h.engine.Begin(ctx, in, FlowWithdraw, nil)

	case "history":
		p, err := h.profile(ctx, in)
		if err != nil {
			return nil, err
		}
		return []flow.Effect{flow.Edit(HistoryText(h.t, &p)).WithMarkup(BackMenu(h.t, "profile:wallet"))}, nil

	case "back":
		p, err := h.profile(ctx, in)
		if err != nil {
			return nil, err
		}
		return []flow.Effect{h.profileView(ctx, in, &p)}, nil

	default:
		return nil, nil
	}
}

// TakeWithdrawal deducts a requested withdrawal once an admin takes it.
func (h *Handlers) TakeWithdrawal(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isAdmin(in.UserID) {
		return []flow.Effect{flow.Toast(h.t.T("common.no_access"), true)}, nil
	}

	args, ok := keyboard.SplitArgs(in.Data, "withdraw:take:", 2)
	if !ok {
		return []flow.Effect{flow.Edit(h.t.T("team.withdraw_invalid"))}, nil
	}
	userID, ok := parseUserID(args[0])
	if !ok {
		return []flow.Effect{flow.Edit(h.t.T("team.withdraw_invalid"))}, nil
	}
	amount, err := ledger.ParseAmount(args[1])
	if err != nil || !amount.IsInteger() {
		return []flow.Effect{flow.Edit(h.t.T("team.withdraw_invalid"))}, nil
	}

	var balance int64
	err = h.update(ctx, func(doc *Document) error {
		p := doc.Profiles.GetOrCreate(userID, "", h.now())
		balance = p.BalanceRub
		return ledger.Deduct(p, amount.Rubles())
	})
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		text := i18n.Format(h.t, "team.withdraw_short", "balance", strconv.FormatInt(balance, 10))
		return []flow.Effect{flow.Toast(text, true)}, nil
	case errors.Is(err, ledger.ErrInvalidAmount):
		return []flow.Effect{flow.Edit(h.t.T("team.withdraw_invalid"))}, nil
	case err != nil:
		return nil, err
	}

	h.log.InfoContext(ctx, "withdrawal taken",
		slog.Int64("user_id", userID),
		slog.Int64("admin_id", in.UserID),
		slog.Int64("amount", amount.Rubles()),
	)
	return []flow.Effect{
		flow.Edit(i18n.Format(h.t, "team.withdraw_taken", "amount", amount.Format())),
		flow.Send(userID, h.t.T("team.withdraw_notice")).AsHTML(),
	}, nil
}

// Direction shows a work direction; escort carries the caller's referral link.
func (h *Handlers) Direction(_ context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isMember(in.UserID) {
		return []flow.Effect{flow.Toast(h.t.T("team.not_member"), true)}, nil
	}

	action, _ := in.CallbackArg("direction:")
	switch action {
	case "back":
		return []flow.Effect{h.mainMenu(in, flow.Edit(h.t.T("team.welcome")))}, nil
	case "escort":
		link := "https://t.me/" + h.catalogBot + "?start=" + strconv.FormatInt(in.UserID, 10)
		text := i18n.Format(h.t, "team.direction_escort", "bot", h.catalogBot, "link", link)
		return []flow.Effect{flow.Edit(text).AsHTML().WithMarkup(BackMenu(h.t, "menu:tracks"))}, nil
	default:
		return []flow.Effect{flow.Toast(h.t.T("common.in_progress"), false)}, nil
	}
}

// About handles the about screen back button.
func (h *Handlers) About(_ context.Context, in flow.Input) ([]flow.Effect, error) {
	if action, _ := in.CallbackArg("about:"); action != "back" {
		return nil, nil
	}
	return []flow.Effect{h.mainMenu(in, flow.Edit(h.t.T("team.welcome")))}, nil
}

// Expired answers buttons of a questionnaire or wizard that is no longer running.
func (h *Handlers) Expired(_ context.Context, _ flow.Input) ([]flow.Effect, error) {
	return []flow.Effect{flow.Toast(h.t.T("common.expired"), false)}, nil
}
