package team

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"

	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/ledger"
)

// Admin opens the admin panel for admins only.
func (h *Handlers) Admin(_ context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isAdmin(in.UserID) {
		return []flow.Effect{flow.Reply(h.t.T("common.access_denied"))}, nil
	}
	return []flow.Effect{flow.Reply(h.t.T("team.admin.menu")).WithMarkup(AdminMenu(h.t))}, nil
}

// denied answers an admin button pressed by someone else.
func (h *Handlers) denied(ctx context.Context, in flow.Input) []flow.Effect {
	h.log.WarnContext(ctx, "admin action denied",
		slog.Int64("user_id", in.UserID),
		slog.String("action", in.Data),
	)
	return []flow.Effect{flow.Toast(h.t.T("common.no_access"), true)}
}

// AdminCallback serves the admin menu. Any admin prompt waiting for input is dropped.
func (h *Handlers) AdminCallback(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isAdmin(in.UserID) {
		return h.denied(ctx, in), nil
	}
	if _, err := h.engine.Cancel(ctx, in.UserID); err != nil {
		return nil, err
	}

	action, _ := in.CallbackArg("admin:")
	switch action {
	case "back":
		return []flow.Effect{h.mainMenu(in, flow.Edit(h.t.T("team.welcome")))}, nil
	case "design":
		return []flow.Effect{flow.Edit(h.t.T("team.admin.design")).WithMarkup(DesignMenu(h.t))}, nil
	case "links":
		return []flow.Effect{flow.Edit(h.t.T("team.admin.links")).WithMarkup(LinksMenu(h.t))}, nil
	case "mentor_add":
		return h.engine.Begin(ctx, in, FlowMentorAdd, nil)
	case "profit_channel":
		return h.engine.Begin(ctx, in, FlowProfitChannel, nil)
	case "balance_grant":
		return h.engine.Begin(ctx, in, FlowBalanceGrant, nil)
	case "profits":
		return h.engine.Begin(ctx, in, FlowProfit, nil)
	default:
		return nil, nil
	}
}

// Design picks the section whose banner is replaced next.
func (h *Handlers) Design(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	return h.sectionPicker(ctx, in, "design:", bannerSections, FlowBanner)
}

// Links picks the section whose link is replaced next.
func (h *Handlers) Links(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	return h.sectionPicker(ctx, in, "links:", linkSections, FlowLink)
}

func (h *Handlers) sectionPicker(ctx context.Context, in flow.Input, prefix string, sections []string, name string) ([]flow.Effect, error) {
	if !h.isAdmin(in.UserID) {
		return h.denied(ctx, in), nil
	}
	if _, err := h.engine.Cancel(ctx, in.UserID); err != nil {
		return nil, err
	}

	section, _ := in.CallbackArg(prefix)
	if section == "back" {
		return []flow.Effect{flow.Edit(h.t.T("team.admin.menu")).WithMarkup(AdminMenu(h.t))}, nil
	}
	if !slices.Contains(sections, section) {
		return nil, nil
	}
	return h.engine.Begin(ctx, in, name, flow.Bag{keySection: section})
}

func (h *Handlers) profitSteps() []flow.Step {
	return []flow.Step{
		{
			State:  stateProfitUser,
			Accept: flow.AcceptText,
			Prompt: h.prompt("team.admin.profit_user_prompt"),
			Handle: h.adminOnly(h.userID(keyWorker, "team.admin.profit_user_invalid", stateProfitService)),
		},
		{
			State:     stateProfitService,
			Accept:    flow.AcceptCallback,
			Callbacks: []string{cbProfitSvc + ":"},
			Prompt: func(in flow.Input, _ flow.Bag) []flow.Effect {
				return []flow.Effect{flow.Respond(in, h.t.T("team.admin.profit_service_prompt")).WithMarkup(ServiceMenu(h.t))}
			},
			Handle: h.adminOnly(h.choice(cbProfitSvc+":", keyService, stateProfitAmount)),
		},
		{
			State:  stateProfitAmount,
			Accept: flow.AcceptText,
			Prompt: h.prompt("team.admin.profit_amount_prompt"),
			Handle: h.adminOnly(h.handleProfitAmount),
		},
		{
			State:     stateProfitRate,
			Accept:    flow.AcceptCallback,
			Callbacks: []string{cbProfitRate + ":"},
			Prompt: func(in flow.Input, _ flow.Bag) []flow.Effect {
				return []flow.Effect{flow.Respond(in, h.t.T("team.admin.profit_rate_prompt")).WithMarkup(RateMenu())}
			},
			Handle: h.adminOnly(h.handleProfitRate),
		},
		{
			State:     stateProfitMentor,
			Accept:    flow.AcceptCallback,
			Callbacks: []string{cbProfitMent + ":"},
			Prompt: func(in flow.Input, _ flow.Bag) []flow.Effect {
				var mentors []int64
				h.store.View(func(doc *Document) { mentors = append(mentors, doc.Mentors...) })
				text := h.t.T("team.admin.profit_mentor_prompt")
				if len(mentors) == 0 {
					text = h.t.T("team.admin.profit_no_mentors")
				}
				return []flow.Effect{flow.Respond(in, text).WithMarkup(MentorMenu(h.t, mentors))}
			},
			Handle: h.adminOnly(h.handleProfitMentor),
		},
		{
			State:     stateProfitMultiplier,
			Accept:    flow.AcceptCallback,
			Callbacks: []string{cbProfitMult + ":"},
			Prompt: func(in flow.Input, _ flow.Bag) []flow.Effect {
				return []flow.Effect{flow.Respond(in, h.t.T("team.admin.profit_multiplier_prompt")).WithMarkup(MultiplierMenu())}
			},
			Handle: h.adminOnly(h.commitProfit),
		},
	}
}

func (h *Handlers) handleProfitAmount(_ context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	amount, err := ledger.ParseAmount(in.Text)
	if err != nil {
		return flow.Invalid(h.t.T("team.amount_invalid")), nil
	}
	if !amount.IsPositive() {
		return flow.Invalid(h.t.T("team.amount_not_positive")), nil
	}
	bag[keyAmount] = amount.String()
	return flow.Advance(stateProfitRate), nil
}

func (h *Handlers) handleProfitRate(_ context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	raw, _ := in.CallbackArg(cbProfitRate + ":")
	rate, err := strconv.Atoi(raw)
	if err != nil || !slices.Contains(payoutRates, rate) {
		return flow.Stay(), nil
	}
	bag[keyRate] = rate
	return flow.Advance(stateProfitMentor), nil
}

func (h *Handlers) handleProfitMentor(_ context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	raw, _ := in.CallbackArg(cbProfitMent + ":")
	if raw == "none" {
		bag[keyMentor] = int64(0)
		return flow.Advance(stateProfitMultiplier), nil
	}
	id, ok := parseUserID(raw)
	if !ok {
		return flow.Stay(), nil
	}
	bag[keyMentor] = id
	return flow.Advance(stateProfitMultiplier), nil
}

// commitProfit credits the worker, bumps the team totals and publishes the post.
func (h *Handlers) commitProfit(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	multiplier, _ := in.CallbackArg(cbProfitMult + ":")
	factor, err := strconv.Atoi(multiplier)
	if err != nil || factor < 1 || factor > 10 {
		return flow.Stay(), nil
	}

	workerID, _ := bag.Int64(keyWorker)
	rate, _ := bag.Int(keyRate)
	mentorID, _ := bag.Int64(keyMentor)
	amount, err := ledger.ParseAmount(bag.String(keyAmount))
	if err != nil || workerID == 0 {
		return flow.Abort(flow.Edit(h.t.T("common.expired")).WithMarkup(AdminMenu(h.t))), nil
	}

	var (
		channelID int64
		post      string
		payout    int64
	)
	err = h.update(ctx, func(doc *Document) error {
		if doc.ProfitChannelID == nil || *doc.ProfitChannelID == 0 {
			return errNoProfitChannel
		}
		channelID = *doc.ProfitChannelID

		var err error
		payout, err = doc.RecordProfit(workerID, amount, rate, factor, h.now())
		if err != nil {
			return err
		}
		post = ProfitPost{
			Worker:     doc.Profiles.Get(workerID),
			Amount:     amount,
			Service:    bag.String(keyService),
			MentorID:   mentorID,
			Multiplier: multiplier,
		}.Render(h.t)
		return nil
	})
	switch {
	case errors.Is(err, errNoProfitChannel):
		return flow.Abort(flow.Edit(h.t.T("team.admin.profit_channel_unset")).WithMarkup(AdminMenu(h.t))), nil
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidRate):
		return flow.Abort(flow.Edit(h.t.T("common.expired")).WithMarkup(AdminMenu(h.t))), nil
	case err != nil:
		return flow.Outcome{}, err
	}

	h.log.InfoContext(ctx, "profit recorded",
		slog.Int64("worker_id", workerID),
		slog.Int64("admin_id", in.UserID),
		slog.String("amount", amount.Format()),
		slog.Int("rate", rate),
		slog.Int64("payout", payout),
	)
	return flow.Finish(
		flow.Send(channelID, post).AsHTML(),
		flow.Edit(h.t.T("team.admin.profit_posted")).WithMarkup(AdminMenu(h.t)),
	), nil
}

var errNoProfitChannel = errors.New("profit channel is not configured")
