package escort

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/emerans-bots/internal/bot"
	"github.com/Proton-105/emerans-bots/internal/catalog"
	apperrors "github.com/Proton-105/emerans-bots/internal/errors"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/state"
	"github.com/Proton-105/emerans-bots/internal/store"
	"github.com/Proton-105/emerans-bots/internal/testutil"
)

const adminID int64 = 1000

type harness struct {
	t      *testing.T
	ctx    context.Context
	router *bot.Router
	engine *flow.Engine
	store  *store.Store[Document]
	tr     i18n.Translator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, StoreName, testutil.DataFile(t, "escort.json"), NewDocument, testutil.Logger())
	require.NoError(t, err)

	engine := flow.NewEngine(state.NewMemoryStorage(), testutil.Logger())
	tr := i18n.MustLoad("ru").Translator("ru")

	h, err := New(Deps{
		Store:      st,
		Engine:     engine,
		Translator: tr,
		Admins:     bot.NewAdmins([]int64{adminID}),
		Log:        testutil.Logger(),
		Now:        func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	router := bot.NewRouter(bot.NewDispatcher(engine, testutil.Logger()), nil, testutil.Logger())
	errHandler := apperrors.NewHandler(testutil.Logger(), false)
	router.Use(bot.CorrelationMiddleware())
	router.Use(bot.RecoveryMiddleware(testutil.Logger(), errHandler))
	router.Use(bot.ErrorHandlingMiddleware(errHandler))
	h.Register(router)

	return &harness{t: t, ctx: ctx, router: router, engine: engine, store: st, tr: tr}
}

func (h *harness) send(in flow.Input) []flow.Effect {
	h.t.Helper()
	effects, err := h.router.Dispatch(h.ctx, in)
	require.NoError(h.t, err)
	return effects
}

func (h *harness) text(userID int64, text string) []flow.Effect {
	return h.send(flow.Input{Kind: flow.KindText, UserID: userID, ChatID: userID, ChatType: "private", Username: "user", Text: text})
}

func (h *harness) command(userID int64, name, payload string) []flow.Effect {
	return h.send(flow.Input{Kind: flow.KindCommand, UserID: userID, ChatID: userID, ChatType: "private", Username: "user", Command: name, Payload: payload})
}

func (h *harness) press(userID int64, data string) []flow.Effect {
	return h.send(flow.Input{Kind: flow.KindCallback, UserID: userID, ChatID: userID, ChatType: "private", Username: "user", CallbackID: "cb", MessageID: 7, Data: data})
}

func (h *harness) activeState(userID int64) state.State {
	h.t.Helper()
	st, err := h.engine.Active(h.ctx, userID)
	require.NoError(h.t, err)
	if st == nil {
		return state.StateIdle
	}
	return st.CurrentState
}

func (h *harness) models() []string {
	var names []string
	h.store.View(func(doc *Document) {
		for _, m := range doc.Models {
			names = append(names, m.Name)
		}
	})
	return names
}

// buttons flattens a markup into callback data (or URL for link buttons).
func buttons(markup *telebot.ReplyMarkup) []string {
	if markup == nil {
		return nil
	}
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			switch {
			case b.URL != "":
				out = append(out, b.URL)
			case b.Data != "":
				out = append(out, b.Data)
			default:
				out = append(out, "inline:"+b.InlineQueryChat)
			}
		}
	}
	return out
}

func labels(markup *telebot.ReplyMarkup) []string {
	if markup == nil {
		return nil
	}
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Text)
		}
	}
	return out
}

func last(effects []flow.Effect) flow.Effect {
	if len(effects) == 0 {
		return flow.Effect{}
	}
	return effects[len(effects)-1]
}

func newItem(fields map[string]string) catalog.Item {
	var it catalog.Item
	for key, value := range fields {
		it.Set(key, value)
	}
	return it
}

func seedModels(t *testing.T, h *harness, raw ...map[string]string) {
	t.Helper()
	require.NoError(t, h.store.Update(h.ctx, func(doc *Document) error {
		for _, fields := range raw {
			doc.Models = append(doc.Models, newItem(fields))
		}
		return nil
	}))
}

func TestCatalogEndToEnd(t *testing.T) {
	h := newHarness(t)
	seedModels(t, h,
		map[string]string{"name": "Anna", "cities": "Berlin"},
		map[string]string{"name": "Marie", "cities": "Paris"},
		map[string]string{"name": "Everywhere", "cities": "all"},
	)

	const berliner, parisian int64 = 1, 2

	effects := h.command(berliner, bot.CommandStart, "")
	require.Len(t, effects, 2)
	assert.Equal(t, flow.EffectLog, effects[0].Kind)
	assert.Equal(t, flow.Reply(DefaultSettings().WelcomeText), effects[1])
	assert.Equal(t, stateCity, h.activeState(berliner))

	effects = h.text(berliner, "  Berlin ")
	require.Len(t, effects, 1)
	assert.Equal(t, "Главное меню:", effects[0].Text)
	assert.Equal(t, state.StateIdle, h.activeState(berliner))

	effects = h.press(berliner, "menu:models")
	require.Len(t, effects, 1)
	assert.Equal(t, flow.EffectEdit, effects[0].Kind)
	assert.Contains(t, effects[0].Text, "<code>Berlin</code>")
	assert.Equal(t, []string{"model:0:0", "model:2:0", "models:back"}, buttons(effects[0].Markup))

	h.command(adminID, bot.CommandAdmin, "")
	h.press(adminID, "admin:model_add")
	assert.Equal(t, stateAddName, h.activeState(adminID))
	h.text(adminID, "Lena")
	h.text(adminID, "5000₽")
	h.text(adminID, "t.me/lena")
	h.text(adminID, "Berlin, Munich")
	effects = h.text(adminID, "-")
	assert.Equal(t, []flow.Effect{flow.Reply("✅ Модель добавлена.")}, effects)
	assert.Equal(t, state.StateIdle, h.activeState(adminID))

	effects = h.press(berliner, "menu:models")
	assert.Equal(t, []string{"model:0:0", "model:2:0", "model:3:0", "models:back"}, buttons(effects[0].Markup))

	h.command(parisian, bot.CommandStart, "")
	h.text(parisian, "Paris")
	effects = h.press(parisian, "menu:models")
	assert.Equal(t, []string{"model:1:0", "model:2:0", "models:back"}, buttons(effects[0].Markup))

	effects = h.press(berliner, "model:3:0")
	require.Len(t, effects, 1)
	assert.Equal(t, "<b>Lena</b>\nЦена: <code>5000₽</code>\nГорода: <code>Berlin, Munich</code>", effects[0].Text)
	assert.Equal(t, []string{"https://t.me/lena", "model:back:0"}, buttons(effects[0].Markup))
}

func TestStart_BindsReferrerOnce(t *testing.T) {
	h := newHarness(t)

	effects := h.command(5, bot.CommandStart, "42")
	assert.Equal(t, "Новый мамонт! Привязан к воркеру: 42 (id: 5, username: @user)", effects[0].Text)

	h.command(5, bot.CommandStart, "77")
	h.command(5, bot.CommandStart, "abc")

	h.store.View(func(doc *Document) {
		p := doc.Profiles.Get(5)
		require.NotNil(t, p)
		require.NotNil(t, p.WorkerID)
		assert.Equal(t, int64(42), *p.WorkerID)
	})

	effects = h.command(6, bot.CommandStart, "12x")
	assert.Contains(t, effects[0].Text, "не привязан")
}

func TestStart_KnownCityShowsMenu(t *testing.T) {
	h := newHarness(t)
	h.command(1, bot.CommandStart, "")
	h.text(1, "Berlin")

	effects := h.command(1, bot.CommandStart, "")
	require.Len(t, effects, 2)
	assert.Equal(t, "Главное меню:", effects[1].Text)
	assert.Equal(t, state.StateIdle, h.activeState(1))
}

func TestFreeTextWithoutCityBecomesCity(t *testing.T) {
	h := newHarness(t)

	effects := h.text(3, "Munich")
	require.Len(t, effects, 1)
	assert.Equal(t, "Главное меню:", effects[0].Text)

	h.store.View(func(doc *Document) {
		assert.Equal(t, "Munich", doc.Profiles.Get(3).City)
	})

	effects = h.text(3, "hello")
	assert.Equal(t, "Главное меню:", effects[0].Text)
	h.store.View(func(doc *Document) {
		assert.Equal(t, "Munich", doc.Profiles.Get(3).City)
	})
}

func TestCityCommandReplacesCity(t *testing.T) {
	h := newHarness(t)
	h.text(3, "Munich")

	effects := h.command(3, bot.CommandCity, "")
	assert.Equal(t, []flow.Effect{flow.Reply("Введите ваш город (он будет сохранён):")}, effects)

	effects = h.text(3, "   ")
	assert.Equal(t, []flow.Effect{flow.Reply("Введите город текстом.")}, effects)
	assert.Equal(t, stateCity, h.activeState(3))

	h.text(3, "Rotterdam")
	h.store.View(func(doc *Document) {
		assert.Equal(t, "Rotterdam", doc.Profiles.Get(3).City)
	})
}

func TestModelsWithoutCityAsksForCity(t *testing.T) {
	h := newHarness(t)

	effects := h.press(9, "menu:models")
	assert.Equal(t, []flow.Effect{flow.Edit("Для начала введи город:")}, effects)
	assert.Equal(t, stateCity, h.activeState(9))
}

func TestModelsEmptyCity(t *testing.T) {
	h := newHarness(t)
	seedModels(t, h, map[string]string{"name": "Anna", "cities": "Berlin"})
	h.text(9, "Oslo")

	effects := h.press(9, "menu:models")
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].Text, "Пока нет моделей")
}

func TestModelPaginationKeepsPage(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 10; i++ {
		seedModels(t, h, map[string]string{"name": "M" + string(rune('a'+i)), "cities": "all"})
	}
	h.text(1, "Berlin")

	effects := h.press(1, "menu:models")
	got := buttons(effects[0].Markup)
	assert.Contains(t, got, "models:page:1")
	assert.Len(t, got, 8+1+1)

	effects = h.press(1, "models:page:1")
	got = buttons(effects[0].Markup)
	assert.Equal(t, []string{"model:8:1", "model:9:1", "models:page:0", "models:back"}, got)

	effects = h.press(1, "model:9:1")
	assert.Equal(t, []string{"model:back:1"}, buttons(effects[0].Markup))

	effects = h.press(1, "model:back:1")
	assert.Equal(t, []string{"model:8:1", "model:9:1", "models:page:0", "models:back"}, buttons(effects[0].Markup))

	effects = h.press(1, "model:99:1")
	assert.Equal(t, "Модель не найдена.", effects[0].Text)
}

func TestTopupFlow(t *testing.T) {
	h := newHarness(t)
	h.text(4, "Berlin")

	effects := h.press(4, "profile:topup")
	require.Len(t, effects, 1)
	assert.Equal(t, flow.EffectEdit, effects[0].Kind)
	assert.Contains(t, effects[0].Text, "<code>2000₽</code>")
	assert.Equal(t, stateTopupAmount, h.activeState(4))

	for i := 0; i < 2; i++ {
		effects = h.text(4, "много")
		assert.Equal(t, []flow.Effect{flow.Reply("Введите корректную сумму.")}, effects)
		assert.Equal(t, stateTopupAmount, h.activeState(4))
	}

	effects = h.text(4, "1 999,99 ₽")
	assert.Equal(t, []flow.Effect{flow.Reply("Минимальная сумма пополнения — 2000₽. Введите другую сумму:")}, effects)

	effects = h.text(4, "2 500,75₽")
	require.Len(t, effects, 1)
	assert.Equal(t, "Пополнение: <b>2500₽</b>\nВыберите метод оплаты:", effects[0].Text)
	assert.Equal(t, []string{"pay:card", "pay:cash", "topup:back"}, buttons(effects[0].Markup))
	assert.Equal(t, state.StateIdle, h.activeState(4))

	effects = h.press(4, "pay:card")
	assert.Equal(t, []flow.Effect{flow.Edit("Оплата картой (сумма: 2500₽) — в разработке.\n\nНапиши администратору для реквизитов.")}, effects)
}

func TestTopupBackIsConsumedByFlow(t *testing.T) {
	h := newHarness(t)
	h.text(4, "Berlin")
	h.press(4, "profile:topup")

	effects := h.press(4, "topup:back")
	require.Len(t, effects, 1)
	assert.Equal(t, flow.Edit("Главное меню:").Kind, effects[0].Kind)
	assert.Equal(t, "Главное меню:", effects[0].Text)
	assert.Equal(t, state.StateIdle, h.activeState(4))
}

func TestCommandInterruptsTopup(t *testing.T) {
	h := newHarness(t)
	h.text(4, "Berlin")
	h.press(4, "profile:topup")

	effects := h.command(4, bot.CommandCancel, "")
	assert.Equal(t, "Действие отменено.", effects[0].Text)
	assert.Equal(t, state.StateIdle, h.activeState(4))

	effects = h.text(4, "5000")
	assert.Equal(t, "Главное меню:", last(effects).Text)
}

func TestInlineSearch(t *testing.T) {
	h := newHarness(t)
	seedModels(t, h,
		map[string]string{"name": "Anna", "price": "5000", "link": "t.me/anna", "desc": "Blonde"},
		map[string]string{"name": "Marie"},
	)

	effects := h.send(flow.Input{Kind: flow.KindInline, UserID: 1, InlineID: "q", Query: "ann"})
	require.Len(t, effects, 1)
	require.Len(t, effects[0].Results, 1)
	assert.Equal(t, flow.InlineResult{
		ID:    "0",
		Title: "Anna",
		Text:  "💞 Anna\nЦена: 5000\nСсылка: t.me/anna\n\nBlonde",
	}, effects[0].Results[0])

	effects = h.send(flow.Input{Kind: flow.KindInline, UserID: 1, InlineID: "q"})
	assert.Len(t, effects[0].Results, 2)
}

func TestAdminGuard(t *testing.T) {
	h := newHarness(t)

	effects := h.command(7, bot.CommandAdmin, "")
	assert.Equal(t, []flow.Effect{flow.Reply("Доступ ограничен.")}, effects)

	effects = h.press(7, "admin:models")
	assert.Equal(t, []flow.Effect{flow.Toast("Нет доступа", true)}, effects)

	effects = h.command(adminID, bot.CommandAdmin, "")
	assert.Equal(t, []string{"admin:models", "admin:design", "admin:close"}, buttons(effects[0].Markup))
}

func TestAdminDeleteShiftsIndices(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		seedModels(t, h, map[string]string{"name": name})
	}

	effects := h.press(adminID, "admin:delete:2")
	assert.Equal(t, "Модели:", effects[0].Text)
	assert.Equal(t, []string{"a", "b", "d", "e"}, h.models())

	effects = h.press(adminID, "admin:model:2")
	assert.Contains(t, effects[0].Text, "<b>d</b>")

	effects = h.press(adminID, "admin:model:4")
	assert.Equal(t, "Модель не найдена.", effects[0].Text)

	h.press(adminID, "admin:delete:9")
	assert.Equal(t, []string{"a", "b", "d", "e"}, h.models())
}

func TestAdminEditModel(t *testing.T) {
	h := newHarness(t)
	seedModels(t, h, map[string]string{"name": "Anna", "cities": "Berlin"})

	effects := h.press(adminID, "admin:edit:0:cities")
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].Text, "<code>all</code>")
	assert.Equal(t, []string{"admin:model:0", "admin:close"}, buttons(effects[0].Markup))

	effects = h.text(adminID, "")
	assert.Equal(t, []flow.Effect{flow.Reply("Пустое значение. Отправьте текст.")}, effects)

	effects = h.text(adminID, "все")
	assert.Equal(t, []flow.Effect{flow.Reply("✅ Модель обновлена.")}, effects)
	h.store.View(func(doc *Document) {
		assert.Equal(t, []string{"*"}, doc.Models[0].Cities)
	})
}

func TestAdminEditStaleIndex(t *testing.T) {
	h := newHarness(t)
	seedModels(t, h, map[string]string{"name": "Anna"}, map[string]string{"name": "Marie"})

	h.press(adminID, "admin:edit:1:name")
	require.NoError(t, h.store.Update(h.ctx, func(doc *Document) error {
		doc.Models = doc.Models[:1]
		return nil
	}))

	effects := h.text(adminID, "Zoe")
	assert.Equal(t, []flow.Effect{flow.Reply("Модель не найдена.")}, effects)
	assert.Equal(t, []string{"Anna"}, h.models())
}

func TestAdminBackLeavesTextPrompt(t *testing.T) {
	h := newHarness(t)

	h.press(adminID, "admin:design_set:title")
	assert.Equal(t, stateSettingText, h.activeState(adminID))

	h.press(adminID, "admin:design")
	assert.Equal(t, state.StateIdle, h.activeState(adminID))
}

func TestAdminSettingsAndSections(t *testing.T) {
	h := newHarness(t)
	h.text(1, "Berlin")

	effects := h.press(adminID, "admin:btn_set:btn_models")
	assert.Equal(t, "Отправьте новую подпись для <code>btn_models</code>:", effects[0].Text)
	effects = h.text(adminID, "Каталог")
	assert.Equal(t, []flow.Effect{flow.Reply("✅ Обновлено.")}, effects)

	effects = h.press(adminID, "admin:toggle_section:inline_search")
	assert.Contains(t, labels(effects[0].Markup), "✅ Инлайн поиск")
	h.press(adminID, "admin:toggle_section:support")

	effects = h.text(1, "hi")
	assert.Equal(t, []string{"menu:models", "menu:profile", "inline:", "menu:info", "menu:city"}, buttons(effects[0].Markup))
	assert.Equal(t, "Каталог", labels(effects[0].Markup)[0])

	for _, section := range []string{"models", "profile", "info", "city", "inline_search"} {
		h.press(adminID, "admin:toggle_section:"+section)
	}
	effects = h.text(1, "hi")
	assert.Equal(t, []string{"menu:models"}, buttons(effects[0].Markup))
	assert.Equal(t, []string{"Меню"}, labels(effects[0].Markup))
}
