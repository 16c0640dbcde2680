package escort

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Proton-105/emerans-bots/internal/catalog"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
)

// Admin opens the admin panel for admins only.
func (h *Handlers) Admin(_ context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isAdmin(in.UserID) {
		return []flow.Effect{flow.Reply(h.t.T("common.access_denied"))}, nil
	}
	return []flow.Effect{flow.Reply(h.t.T("escort.admin.menu")).WithMarkup(AdminMenu(h.t))}, nil
}

// AdminCallback serves every "admin:" button. Leaving a screen drops any admin text
// prompt that was waiting for input.
func (h *Handlers) AdminCallback(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if !h.isAdmin(in.UserID) {
		h.log.WarnContext(ctx, "admin action denied",
			slog.Int64("user_id", in.UserID),
			slog.String("action", in.Data),
		)
		return []flow.Effect{flow.Toast(h.t.T("common.no_access"), true)}, nil
	}

	if _, err := h.engine.Cancel(ctx, in.UserID); err != nil {
		return nil, err
	}

	action, _ := in.CallbackArg("admin:")
	name, arg, _ := strings.Cut(action, ":")

	switch name {
	case "close":
		return []flow.Effect{flow.Edit(h.t.T("escort.admin.closed"))}, nil

	case "back", "home":
		return []flow.Effect{flow.Edit(h.t.T("escort.admin.menu")).WithMarkup(AdminMenu(h.t))}, nil

	case "models":
		return h.adminModels(0, ""), nil

	case "models_page":
		return h.adminModels(atoiOrZero(arg), ""), nil

	case "model_add":
		return h.engine.Begin(ctx, in, FlowModelAdd, nil)

	case "model":
		return h.adminModel(arg), nil

	case "delete":
		return h.adminDelete(ctx, arg)

	case "edit":
		return h.adminEdit(ctx, in, arg)

	case "design":
		return []flow.Effect{flow.Edit(h.t.T("escort.admin.design")).WithMarkup(AdminDesign(h.t))}, nil

	case "design_buttons":
		s := h.settings()
		return []flow.Effect{flow.Edit(h.t.T("escort.admin.buttons")).WithMarkup(AdminButtons(h.t, &s))}, nil

	case "design_sections":
		s := h.settings()
		return []flow.Effect{flow.Edit(h.t.T("escort.admin.sections")).WithMarkup(AdminSections(h.t, &s))}, nil

	case "toggle_section":
		return h.adminToggle(ctx, arg)

	case "design_set":
		return h.engine.Begin(ctx, in, FlowSettingEdit, flow.Bag{keyKey: arg, keyBack: "admin:design"})

	case "btn_set":
		return h.engine.Begin(ctx, in, FlowSettingEdit, flow.Bag{keyKey: arg, keyBack: "admin:design_buttons", keyLabel: "1"})

	default:
		return nil, nil
	}
}

// adminModels lists the catalog, optionally headed by a notice.
func (h *Handlers) adminModels(page int, notice string) []flow.Effect {
	var items []catalog.Item
	h.store.View(func(doc *Document) {
		items = append(items, doc.Models...)
	})

	text := h.t.T("escort.admin.models")
	if notice != "" {
		text = notice
	}
	return []flow.Effect{flow.Edit(text).WithMarkup(AdminModels(h.t, items, page))}
}

func (h *Handlers) adminModel(arg string) []flow.Effect {
	index, err := strconv.Atoi(arg)
	if err != nil {
		index = -1
	}

	var (
		item    catalog.Item
		lookErr error
	)
	h.store.View(func(doc *Document) {
		item, lookErr = catalog.Get(doc.Models, index)
	})
	if lookErr != nil {
		return h.adminModels(0, h.t.T("escort.model_not_found"))
	}

	text := i18n.Format(h.t, "escort.admin.model_card",
		"index", strconv.Itoa(index),
		"text", ModelText(h.t, item),
	)
	return []flow.Effect{flow.Edit(text).AsHTML().WithMarkup(AdminModel(h.t, index))}
}

// adminDelete removes a model by index. Later models shift down by one; a stale index
// only re-renders the list.
func (h *Handlers) adminDelete(ctx context.Context, arg string) ([]flow.Effect, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return h.adminModels(0, ""), nil
	}

	err = h.update(ctx, func(doc *Document) error {
		models, err := catalog.Delete(doc.Models, index)
		if err != nil {
			return err
		}
		doc.Models = models
		return nil
	})
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}
	return h.adminModels(0, ""), nil
}

// adminEdit starts the single-field edit prompt for "admin:edit:<index>:<field>".
func (h *Handlers) adminEdit(ctx context.Context, in flow.Input, arg string) ([]flow.Effect, error) {
	indexPart, field, ok := strings.Cut(arg, ":")
	if !ok || field == "" || strings.Contains(field, ":") {
		return nil, nil
	}
	index, err := strconv.Atoi(indexPart)
	if err != nil {
		return nil, nil
	}

	var lookErr error
	h.store.View(func(doc *Document) {
		_, lookErr = catalog.Get(doc.Models, index)
	})
	if lookErr != nil {
		return h.adminModels(0, h.t.T("escort.model_not_found")), nil
	}

	return h.engine.Begin(ctx, in, FlowModelEdit, flow.Bag{keyIndex: index, keyField: field})
}

func (h *Handlers) adminToggle(ctx context.Context, section string) ([]flow.Effect, error) {
	var s Settings
	err := h.update(ctx, func(doc *Document) error {
		if section != "" {
			doc.Settings.ToggleSection(section)
		}
		s = doc.Settings.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []flow.Effect{flow.Edit(h.t.T("escort.admin.sections")).WithMarkup(AdminSections(h.t, &s))}, nil
}
