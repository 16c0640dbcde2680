package support

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/Proton-105/emerans-bots/internal/bot"
	apperrors "github.com/Proton-105/emerans-bots/internal/errors"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/store"
)

// StoreName labels the support bot document in logs and metrics.
const StoreName = "support"

// Topics opens forum topics. *transport.Gateway implements it.
type Topics interface {
	CreateTopic(ctx context.Context, chatID int64, name string, iconColor int) (int, error)
}

// Deps are the collaborators of the support bot handlers.
type Deps struct {
	Store      *store.Store[Document]
	Translator i18n.Translator
	Topics     Topics
	// ChatID is the forum supergroup holding one topic per client.
	ChatID int64
	// Greeting replaces the default /start text when set.
	Greeting  string
	IconColor int
	Log       *slog.Logger
}

// Handlers relays messages between clients and the support chat.
type Handlers struct {
	store     *store.Store[Document]
	t         i18n.Translator
	topics    Topics
	chatID    int64
	greeting  string
	iconColor int
	log       *slog.Logger

	// creating serializes topic creation so a burst of first messages opens one topic.
	creating sync.Mutex
}

// New validates deps and returns the handlers.
func New(deps Deps) (*Handlers, error) {
	if deps.Store == nil || deps.Translator == nil || deps.Topics == nil {
		return nil, fmt.Errorf("support: store, translator and topics are required")
	}
	if deps.ChatID == 0 {
		return nil, fmt.Errorf("support: support chat id is required")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Greeting == "" {
		deps.Greeting = deps.Translator.T("support.greeting")
	}

	return &Handlers{
		store:     deps.Store,
		t:         deps.Translator,
		topics:    deps.Topics,
		chatID:    deps.ChatID,
		greeting:  deps.Greeting,
		iconColor: deps.IconColor,
		log:       deps.Log,
	}, nil
}

// Register binds the handlers to r.
func (h *Handlers) Register(r *bot.Router) {
	r.RegisterCommand(bot.CommandStart, h.Start)
	r.SetDefault(h.Message)
}

// Commands lists the commands published to Telegram clients.
func (h *Handlers) Commands() []string {
	return []string{bot.CommandStart}
}

// Start greets the client and notes the visit in the log chat.
func (h *Handlers) Start(_ context.Context, in flow.Input) ([]flow.Effect, error) {
	if !in.Private() {
		return nil, nil
	}
	note := i18n.Format(h.t, "support.start_log",
		"id", strconv.FormatInt(in.UserID, 10),
		"username", h.username(in),
	)
	return []flow.Effect{flow.Log(note), flow.Reply(h.greeting)}, nil
}

// Message routes plain messages: private ones go to the client's topic, topic
// messages in the support chat go back to the client.
func (h *Handlers) Message(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	switch {
	case in.Private():
		return h.fromClient(ctx, in)
	case in.ChatID == h.chatID && in.Topic && in.ThreadID != 0:
		return h.fromSupport(ctx, in)
	default:
		return nil, nil
	}
}

func (h *Handlers) fromClient(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	if in.Kind != flow.KindPhoto && in.Text == "" {
		return nil, nil
	}
	threadID, err := h.topic(ctx, in)
	if err != nil {
		return nil, err
	}

	if in.Kind == flow.KindPhoto {
		caption := h.header(in, in.Caption)
		return []flow.Effect{flow.Photo(in.PhotoFileID, caption).To(h.chatID, threadID)}, nil
	}
	return []flow.Effect{flow.Send(h.chatID, h.header(in, in.Text)).To(h.chatID, threadID)}, nil
}

func (h *Handlers) fromSupport(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	var userID int64
	h.store.View(func(doc *Document) { userID = doc.User(in.ThreadID) })
	if userID == 0 {
		h.log.DebugContext(ctx, "message in unknown topic", slog.Int("thread_id", in.ThreadID))
		return nil, nil
	}

	switch {
	case in.Kind == flow.KindPhoto:
		return []flow.Effect{flow.Photo(in.PhotoFileID, in.Caption).To(userID, 0)}, nil
	case in.Text != "":
		return []flow.Effect{flow.Send(userID, in.Text)}, nil
	default:
		return nil, nil
	}
}

// topic returns the client's thread, opening and persisting a new one on first contact.
func (h *Handlers) topic(ctx context.Context, in flow.Input) (int, error) {
	h.creating.Lock()
	defer h.creating.Unlock()

	var threadID int
	h.store.View(func(doc *Document) { threadID = doc.Topic(in.UserID) })
	if threadID != 0 {
		return threadID, nil
	}

	threadID, err := h.topics.CreateTopic(ctx, h.chatID, h.title(in), h.iconColor)
	if err != nil {
		return 0, apperrors.NewTransportError("create_topic", err)
	}

	err = h.store.Update(ctx, func(doc *Document) error {
		doc.Bind(in.UserID, threadID)
		return nil
	})
	if err != nil {
		return 0, apperrors.NewStorageError(err)
	}

	h.log.InfoContext(ctx, "support topic opened",
		slog.Int64("user_id", in.UserID),
		slog.Int("thread_id", threadID),
	)
	return threadID, nil
}

// title is "username | id", falling back to the first name.
func (h *Handlers) title(in flow.Input) string {
	name := in.Username
	if name == "" {
		name = in.FirstName
	}
	if name == "" {
		name = h.t.T("support.client_fallback")
	}
	return name + " | " + strconv.FormatInt(in.UserID, 10)
}

func (h *Handlers) header(in flow.Input, text string) string {
	return i18n.Format(h.t, "support.client_message",
		"id", strconv.FormatInt(in.UserID, 10),
		"username", h.username(in),
		"text", text,
	)
}

func (h *Handlers) username(in flow.Input) string {
	if in.Username == "" {
		return h.t.T("support.no_username")
	}
	return in.Username
}
