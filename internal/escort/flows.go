package escort

import (
	"context"
	"errors"
	"strconv"

	"github.com/Proton-105/emerans-bots/internal/catalog"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/ledger"
	"github.com/Proton-105/emerans-bots/internal/state"
)

// Flow names.
const (
	FlowCity        = "city"
	FlowTopup       = "topup"
	FlowModelAdd    = "model_add"
	FlowModelEdit   = "model_edit"
	FlowSettingEdit = "setting_edit"
)

const (
	stateCity        state.State = "escort:city"
	stateTopupAmount state.State = "escort:topup_amount"
	stateAddName     state.State = "escort:add_name"
	stateAddPrice    state.State = "escort:add_price"
	stateAddLink     state.State = "escort:add_link"
	stateAddCities   state.State = "escort:add_cities"
	stateAddDesc     state.State = "escort:add_desc"
	stateEditValue   state.State = "escort:edit_value"
	stateSettingText state.State = "escort:setting_value"
)

// Bag keys.
const (
	keyPrompt = "prompt"
	keyIndex  = "index"
	keyField  = "field"
	keyKey    = "key"
	keyBack   = "back"
	keyLabel  = "label"
)

func (h *Handlers) flows() []flow.Flow {
	return []flow.Flow{
		{Name: FlowCity, Steps: []flow.Step{{
			State:  stateCity,
			Accept: flow.AcceptText,
			Prompt: func(in flow.Input, bag flow.Bag) []flow.Effect {
				return []flow.Effect{flow.Respond(in, bag.String(keyPrompt))}
			},
			Handle: h.handleCity,
		}}},
		{Name: FlowTopup, Steps: []flow.Step{{
			State:     stateTopupAmount,
			Accept:    flow.AcceptText | flow.AcceptCallback,
			Callbacks: []string{cbTopupBack},
			Prompt: func(in flow.Input, _ flow.Bag) []flow.Effect {
				s := h.settings()
				text := i18n.Format(h.t, "escort.topup_prompt", "min", strconv.Itoa(MinTopup))
				return []flow.Effect{flow.Respond(in, text).AsHTML().WithMarkup(TopupMenu(&s))}
			},
			Handle: h.handleTopup,
		}}},
		{Name: FlowModelAdd, Steps: []flow.Step{
			h.addStep(stateAddName, "name", "escort.admin.add_name", true),
			h.addStep(stateAddPrice, "price", "escort.admin.add_price", false),
			h.addStep(stateAddLink, "link", "escort.admin.add_link", false),
			h.addStep(stateAddCities, "cities", "escort.admin.add_cities", false),
			h.addStep(stateAddDesc, "desc", "escort.admin.add_desc", false),
		}},
		{Name: FlowModelEdit, Steps: []flow.Step{{
			State:  stateEditValue,
			Accept: flow.AcceptText,
			Prompt: func(in flow.Input, bag flow.Bag) []flow.Effect {
				index, _ := bag.Int(keyIndex)
				field := bag.String(keyField)
				hint := h.t.T("escort.admin.edit_" + field)
				if hint == "escort.admin.edit_"+field {
					hint = h.t.T("escort.admin.edit_other")
				}
				return []flow.Effect{flow.Respond(in, hint).AsHTML().
					WithMarkup(AdminInput(h.t, "admin:model:"+strconv.Itoa(index)))}
			},
			Handle: h.handleModelEdit,
		}}},
		{Name: FlowSettingEdit, Steps: []flow.Step{{
			State:  stateSettingText,
			Accept: flow.AcceptText,
			Prompt: func(in flow.Input, bag flow.Bag) []flow.Effect {
				key := "escort.admin.set_value"
				if bag.String(keyLabel) != "" {
					key = "escort.admin.set_label"
				}
				text := i18n.Format(h.t, key, "key", bag.String(keyKey))
				return []flow.Effect{flow.Respond(in, text).AsHTML().WithMarkup(AdminInput(h.t, bag.String(keyBack)))}
			},
			Handle: h.handleSettingEdit,
		}}},
	}
}

func (h *Handlers) handleCity(ctx context.Context, in flow.Input, _ flow.Bag) (flow.Outcome, error) {
	city := in.TrimmedText()
	if city == "" {
		return flow.Invalid(h.t.T("escort.city_empty")), nil
	}

	var s Settings
	err := h.update(ctx, func(doc *Document) error {
		p := doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
		ledger.SetCity(p, city, true)
		s = doc.Settings.Clone()
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}
	return flow.Finish(flow.Reply(s.MenuText).WithMarkup(MainMenu(h.t, &s))), nil
}

func (h *Handlers) handleTopup(ctx context.Context, in flow.Input, _ flow.Bag) (flow.Outcome, error) {
	if in.Kind == flow.KindCallback {
		s := h.settings()
		return flow.Abort(flow.Edit(s.MenuText).WithMarkup(MainMenu(h.t, &s))), nil
	}

	amount, err := ledger.ParseAmount(in.Text)
	if err != nil {
		return flow.Invalid(h.t.T("escort.topup_invalid")), nil
	}
	if amount.LessThan(ledger.NewAmount(MinTopup).Decimal) {
		return flow.Invalid(i18n.Format(h.t, "escort.topup_too_small", "min", strconv.Itoa(MinTopup))), nil
	}

	rubles := amount.IntPart()
	err = h.update(ctx, func(doc *Document) error {
		p := doc.Profiles.GetOrCreate(in.UserID, in.DisplayHint(), h.now())
		p.TopupAmount = &rubles
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}

	text := i18n.Format(h.t, "escort.topup_methods", "amount", strconv.FormatInt(rubles, 10))
	return flow.Finish(flow.Reply(text).AsHTML().WithMarkup(PaymentMenu(h.t))), nil
}

// addStep builds one step of the catalog-add wizard. Each answer is kept in the bag
// under field; the last step appends the model.
func (h *Handlers) addStep(st state.State, field, promptKey string, first bool) flow.Step {
	return flow.Step{
		State:  st,
		Accept: flow.AcceptText,
		Prompt: func(in flow.Input, _ flow.Bag) []flow.Effect {
			text := h.t.T(promptKey)
			if first {
				return []flow.Effect{flow.Respond(in, text).AsHTML().WithMarkup(AdminInput(h.t, "admin:models"))}
			}
			return []flow.Effect{flow.Reply(text)}
		},
		Handle: func(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
			if !h.isAdmin(in.UserID) {
				return flow.Abort(flow.Reply(h.t.T("common.access_denied"))), nil
			}
			text := in.TrimmedText()
			if text == "" {
				return flow.Invalid(h.t.T("common.empty_value")), nil
			}
			bag[field] = text

			switch field {
			case "name":
				return flow.Advance(stateAddPrice), nil
			case "price":
				return flow.Advance(stateAddLink), nil
			case "link":
				return flow.Advance(stateAddCities), nil
			case "cities":
				return flow.Advance(stateAddDesc), nil
			}
			return h.commitModel(ctx, bag)
		},
	}
}

func (h *Handlers) commitModel(ctx context.Context, bag flow.Bag) (flow.Outcome, error) {
	var item catalog.Item
	for _, field := range []string{"name", "price", "link", "cities"} {
		item.Set(field, bag.String(field))
	}
	if desc := bag.String("desc"); desc != "-" {
		item.Set("desc", desc)
	}

	err := h.update(ctx, func(doc *Document) error {
		doc.Models = append(doc.Models, item)
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}
	return flow.Finish(flow.Reply(h.t.T("escort.admin.model_added"))), nil
}

func (h *Handlers) handleModelEdit(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	if !h.isAdmin(in.UserID) {
		return flow.Abort(flow.Reply(h.t.T("common.access_denied"))), nil
	}
	text := in.TrimmedText()
	if text == "" {
		return flow.Invalid(h.t.T("common.empty_value")), nil
	}

	index, _ := bag.Int(keyIndex)
	field := bag.String(keyField)
	err := h.update(ctx, func(doc *Document) error {
		if _, err := catalog.Get(doc.Models, index); err != nil {
			return err
		}
		doc.Models[index].Set(field, text)
		return nil
	})
	if errors.Is(err, catalog.ErrNotFound) {
		return flow.Finish(flow.Reply(h.t.T("escort.model_not_found"))), nil
	}
	if err != nil {
		return flow.Outcome{}, err
	}
	return flow.Finish(flow.Reply(h.t.T("escort.admin.model_updated"))), nil
}

func (h *Handlers) handleSettingEdit(ctx context.Context, in flow.Input, bag flow.Bag) (flow.Outcome, error) {
	if !h.isAdmin(in.UserID) {
		return flow.Abort(flow.Reply(h.t.T("common.access_denied"))), nil
	}
	text := in.TrimmedText()
	if text == "" {
		return flow.Invalid(h.t.T("common.empty_value")), nil
	}

	key := bag.String(keyKey)
	err := h.update(ctx, func(doc *Document) error {
		doc.Settings.Set(key, text)
		return nil
	})
	if err != nil {
		return flow.Outcome{}, err
	}
	return flow.Finish(flow.Reply(h.t.T("common.updated"))), nil
}
