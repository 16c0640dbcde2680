package team

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/ledger"
	"github.com/Proton-105/emerans-bots/internal/state"
)

// Flow names.
const (
	FlowApply         = "apply"
	FlowNickname      = "nickname"
	FlowDescription   = "description"
	FlowWithdraw      = "withdraw"
	FlowMentorAdd     = "mentor_add"
	FlowProfitChannel = "profit_channel"
	FlowBalanceGrant  = "balance_grant"
	FlowBanner        = "banner"
	FlowLink          = "link"
	FlowProfit        = "profit"
)

const (
	stateOrigin           state.State = "team:origin"
	stateTime             state.State = "team:time"
	stateAbout            state.State = "team:about"
	stateNickname         state.State = "team:nickname"
	stateDescription      state.State = "team:description"
	stateWithdrawAmount   state.State = "team:withdraw_amount"
	stateMentorID         state.State = "team:mentor_id"
	stateProfitChannel    state.State = "team:profit_channel"
	stateGrantUser        state.State = "team:grant_user"
	stateGrantAmount      state.State = "team:grant_amount"
	stateBanner           state.State = "team:banner"
	stateLink             state.State = "team:link"
	stateProfitUser       state.State = "team:profit_user"
	stateProfitService    state.State = "team:profit_service"
	stateProfitAmount     state.State = "team:profit_amount"
	stateProfitRate       state.State = "team:profit_rate"
	stateProfitMentor     state.State = "team:profit_mentor"
	stateProfitMultiplier state.State = "team:profit_multiplier"
)

// Bag keys.
const (
	keyOrigin  = "origin"
	keyTime    = "time"
	keySection = "section"
	keyTarget  = "target"
	keyWorker  = "worker"
	keyService = "service"
	keyAmount  = "amount"
	keyRate    = "rate"
	keyMentor  = "mentor"
)

// Length limits of profile texts, in characters.
const (
	maxNickname    = 15
	maxDescription = 50
)

// prompt renders a fixed text.
func (h *Handlers) prompt(key string) flow.Prompt {
	return func(in flow.Input, _ flow.Bag) []flow.Effect {
		return []flow.Effect{flow.Respond(in, h.t.T(key))}
	}
}

func (h *Handlers) flows() []flow.Flow {
	return []flow.Flow{
		{Name: FlowApply, Steps: []flow.Step{
			{
				State:     stateOrigin,
				Accept:    flow.AcceptCallback,
				Callbacks: []string{cbOrigin + ":"},
				Prompt: func(in flow.Input, _ flow.Bag) []flow.Effect {
					return []flow.Effect{flow.Respond(in, h.t.T("team.apply_origin")).WithMarkup(OriginMenu(h.t))}
				},
				Handle: h.choice(cbOrigin+":", keyOrigin, stateTime),
			},
			{
				State:     stateTime,
				Accept:    flow.AcceptCallback,
				Callbacks: []string{cbTime + ":"},
				Prompt: func(in flow.Input, _ flow.Bag) []flow.Effect {
					return []flow.Effect{flow.Respond(in, h.t.T("team.apply_time")).WithMarkup(TimeMenu(h.t))}
				},
				Handle: h.choice(cbTime+":", keyTime, stateAbout),
			},
			{
				State:  stateAbout,
				Accept: flow.AcceptText,
				Prompt: h.prompt("team.apply_about"),
				Handle: h.handleAbout,
			},
		}},
		{Name: FlowNickname, Steps: []flow.Step{{
			State:  stateNickname,
			Accept: flow.AcceptText,
			Prompt: h.prompt("team.nickname_prompt"),
			Handle: h.profileField(maxNickname, "team.nickname_invalid", func(p *ledger.Profile, v string) { p.Nickname = v }),
		}}},
		{Name: FlowDescription, Steps: []flow.Step{{
			State:  stateDescription,
			Accept: flow.AcceptText,
			Prompt: h.prompt("team.description_prompt"),
			Handle: h.profileField(maxDescription, "team.description_invalid", func(p *ledger.Profile, v string) { p.Description = v }),
		}}},
		{Name: FlowWithdraw, Steps: []flow.Step{{
			State:  stateWithdrawAmount,
			Accept: flow.AcceptText,
			Prompt: h.prompt("team.withdraw_prompt"),
			Handle: h.handleWithdraw,
		}}},
		{Name: FlowMentorAdd, Steps: []flow.Step{{
			State:  stateMentorID,
			Accept: flow.AcceptText,
			Prompt: h.prompt("team.admin.mentor_prompt"),
			Handle: h.adminOnly(h.handleMentor),
		}}},
		{Name: FlowProfitChannel, Steps: []flow.Step{{
			State:  stateProfitChannel,
			Accept: flow.AcceptText,
			Prompt: h.prompt("team.admin.channel_prompt"),
			Handle: h.adminOnly(h.handleProfitChannel),
		}}},
		{Name: FlowBalanceGrant, Steps: []flow.Step{
			{
				State:  stateGrantUser,
				Accept: flow.AcceptText,
				Prompt: h.prompt("team.admin.grant_user_prompt"),
				Handle: h.adminOnly(h.userID(keyTarget, "team.admin.grant_user_invalid", stateGrantAmount)),
			},
			{
				State:  stateGrantAmount,
				Accept: flow.AcceptText,
				Prompt: h.prompt("team.admin.grant_amount_prompt"),
				Handle: h.adminOnly(h.handleGrant),
			},
		}},
		{Name: FlowBanner, Steps: []flow.Step{{
			State:  stateBanner,
			Accept: flow.AcceptText | flow.AcceptPhoto,
			Prompt: h.prompt("team.admin.banner_prompt"),
			Handle: h.adminOnly(h.handleBanner),
		}}},
		{Name: FlowLink, Steps: []flow.Step{{
			State:  stateLink,
			Accept: flow.AcceptText,
			Prompt: h.prompt("team.admin.link_prompt"),
			Handle: h.adminOnly(h.handleLink),
		}}},
		{Name: FlowProfit, Steps: h.profitSteps()},
	}
}

// adminOnly aborts the flow when the admin was removed while it was running.
func (h *Handlers) adminOnly(next flow.Handler) flow.Handler {
	return func(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
		if !h.isAdmin(in.UserID) {
			return flow.Abort(flow.Respond(in, h.t.T("common.access_denied"))), nil
		}
		return next(ctx, in, bag)
	}
}

// choice stores the callback value after prefix under key and moves on.
func (h *Handlers) choice(prefix, key string, next state.State) flow.Handler {
	return func(_ context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
		value, _ := in.CallbackArg(prefix)
		if value == "" {
			return flow.Stay(), nil
		}
		bag[key] = value
		return flow.Advance(next), nil
	}
}

// userID reads a numeric Telegram id into key.
func (h *Handlers) userID(key, invalidKey string, next state.State) flow.Handler {
	return func(_ context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
		id, ok := parseUserID(in.TrimmedText())
		if !ok {
			return flow.Invalid(h.t.T(invalidKey)), nil
		}
		bag[key] = id
		return flow.Advance(next), nil
	}
}

// parseUserID accepts digits only.
func parseUserID(text string) (int64, bool) {
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (h *Handlers) handleAbout(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	about := in.TrimmedText()
	if about == "" {
		return flow.Invalid(h.t.T("team.apply_about_empty")), nil
	}

	app := Application{
		UserID:   in.UserID,
		Username: in.Username,
		FullName: in.FullName(),
		Origin:   bag.String(keyOrigin),
		Time:     bag.String(keyTime),
		About:    about,
	}
	err := h.update(ctx, func(doc *Document) error {
		return doc.Submit(app)
	})
	if errors.Is(err, ErrAlreadyApplied) {
		return flow.Abort(flow.Reply(h.t.T("team.apply_already_filed"))), nil
	}
	if err != nil {
		return flow.Outcome{}, err
	}

	effects := []flow.Effect{flow.Reply(h.t.T("team.apply_sent"))}
	if h.adminChatID == 0 {
		h.log.WarnContext(ctx, "admin chat is not configured, application not announced",
			slog.Int64("user_id", in.UserID),
		)
		return flow.Finish(effects...), nil
	}
	effects = append(effects, flow.Send(h.adminChatID, ApplicationText(h.t, app)).WithMarkup(DecisionMenu(h.t, in.UserID)))
	return flow.Finish(effects...), nil
}

// profileField validates a 1..limit character text, stores it with set and shows the
// updated profile.
func (h *Handlers) profileField(limit int, invalidKey string, set func(p *ledger.Profile, value string)) flow.Handler {
	return func(ctx context.Context, in flow.Input, _ flow.Bag) (flow.Outcome, error) {
		value := in.TrimmedText()
		if n := utf8.RuneCountInString(value); n < 1 || n > limit {
			return flow.Invalid(h.t.T(invalidKey)), nil
		}

		var profile ledger.Profile
		err := h.update(ctx, func(doc *Document) error {
			p := doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
			set(p, value)
			profile = *p
			return nil
		})
		if err != nil {
			return flow.Outcome{}, err
		}
		return flow.Finish(h.profileView(ctx, in, &profile)), nil
	}
}

func (h *Handlers) handleWithdraw(ctx context.Context, in flow.Input, _ flow.Bag) (flow.Outcome, error) {
	amount, err := ledger.ParseAmount(in.Text)
	if err != nil {
		return flow.Invalid(h.t.T("team.amount_invalid")), nil
	}
	if !amount.IsPositive() {
		return flow.Invalid(h.t.T("team.amount_not_positive")), nil
	}
	// balances are whole rubles
	if !amount.IsInteger() {
		return flow.Invalid(h.t.T("team.amount_not_whole")), nil
	}
	if h.adminChatID == 0 {
		return flow.Abort(flow.Reply(h.t.T("team.admin_chat_unset"))), nil
	}

	var (
		profile  ledger.Profile
		checkErr error
	)
	err = h.update(ctx, func(doc *Document) error {
		p := doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
		checkErr = ledger.CheckWithdrawal(p, amount)
		profile = *p
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}
	if errors.Is(checkErr, ledger.ErrInsufficientFunds) {
		return flow.Invalid(h.t.T("team.insufficient_funds")), nil
	}
	if checkErr != nil {
		return flow.Invalid(h.t.T("team.amount_invalid")), nil
	}

	request := i18n.Format(h.t, "team.withdraw_request",
		"amount", amount.Format(),
		"worker", userLink(in.UserID, displayName(&profile, in)),
		"rate", strconv.Itoa(profile.PayoutRate),
	)
	h.log.InfoContext(ctx, "withdrawal requested",
		slog.Int64("user_id", in.UserID),
		slog.String("amount", amount.Format()),
	)
	return flow.Finish(
		flow.Send(h.adminChatID, request).AsHTML().WithMarkup(WithdrawRequestMenu(h.t, in.UserID, amount.Format())),
		flow.Reply(h.t.T("team.withdraw_sent")),
	), nil
}

func (h *Handlers) handleMentor(ctx context.Context, in flow.Input, _ flow.Bag) (flow.Outcome, error) {
	id, ok := parseUserID(in.TrimmedText())
	if !ok {
		return flow.Invalid(h.t.T("team.admin.mentor_invalid")), nil
	}
	err := h.update(ctx, func(doc *Document) error {
		doc.AddMentor(id)
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}
	return flow.Finish(flow.Reply(h.t.T("team.admin.mentor_added")).WithMarkup(AdminMenu(h.t))), nil
}

func (h *Handlers) handleProfitChannel(ctx context.Context, in flow.Input, _ flow.Bag) (flow.Outcome, error) {
	id, err := strconv.ParseInt(in.TrimmedText(), 10, 64)
	if err != nil || id == 0 {
		return flow.Invalid(h.t.T("team.admin.channel_invalid")), nil
	}
	err = h.update(ctx, func(doc *Document) error {
		doc.ProfitChannelID = &id
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}
	return flow.Finish(flow.Reply(h.t.T("team.admin.channel_saved")).WithMarkup(AdminMenu(h.t))), nil
}

func (h *Handlers) handleGrant(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	amount, err := ledger.ParseAmount(in.Text)
	if err != nil {
		return flow.Invalid(h.t.T("team.amount_invalid")), nil
	}
	target, ok := bag.Int64(keyTarget)
	if !ok {
		return flow.Abort(flow.Reply(h.t.T("team.admin.grant_user_invalid"))), nil
	}

	var delta int64
	err = h.update(ctx, func(doc *Document) error {
		delta = ledger.Grant(doc.Profiles.GetOrCreate(target, "", h.now()), amount)
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}
	h.log.InfoContext(ctx, "balance granted",
		slog.Int64("admin_id", in.UserID),
		slog.Int64("user_id", target),
		slog.Int64("amount", delta),
	)
	return flow.Finish(flow.Reply(h.t.T("team.admin.grant_saved")).WithMarkup(AdminMenu(h.t))), nil
}

func (h *Handlers) handleBanner(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	if in.Kind != flow.KindPhoto || in.PhotoFileID == "" {
		return flow.Invalid(h.t.T("team.admin.banner_need_photo")), nil
	}
	section := bag.String(keySection)
	if !slices.Contains(bannerSections, section) {
		return flow.Abort(flow.Reply(h.t.T("common.expired"))), nil
	}

	err := h.update(ctx, func(doc *Document) error {
		doc.Banners[section] = in.PhotoFileID
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}

	caption := i18n.Format(h.t, "team.admin.banner_saved", "section", h.t.T("team.admin.section_"+section))
	return flow.Finish(flow.Reply(caption).WithPhoto(in.PhotoFileID).WithMarkup(AdminMenu(h.t))), nil
}

func (h *Handlers) handleLink(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	link, ok := normalizeLink(in.TrimmedText())
	if !ok {
		return flow.Invalid(h.t.T("team.admin.link_invalid")), nil
	}
	section := bag.String(keySection)
	if !slices.Contains(linkSections, section) {
		return flow.Abort(flow.Reply(h.t.T("common.expired"))), nil
	}

	err := h.update(ctx, func(doc *Document) error {
		doc.Links[section] = link
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}

	text := i18n.Format(h.t, "team.admin.link_saved", "section", h.t.T("team.admin.section_"+section))
	return flow.Finish(flow.Reply(text).WithMarkup(AdminMenu(h.t))), nil
}

// normalizeLink accepts http(s) URLs and bare t.me links, which get an https scheme.
func normalizeLink(text string) (string, bool) {
	if strings.HasPrefix(text, "t.me/") {
		text = "https://" + text
	}
	u, err := url.Parse(text)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return text, true
}
