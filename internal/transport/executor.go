package transport

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/emerans-bots/internal/errors"
	"github.com/Proton-105/emerans-bots/internal/flow"
)

// Executor applies handler effects through a Chat. Transport failures are logged and
// degraded: an edit that fails becomes a new message, a failed log post is dropped.
type Executor struct {
	chat      Chat
	logChatID int64
	breaker   *apperrors.CircuitBreaker
	log       *slog.Logger
}

// NewExecutor creates an executor. logChatID may be zero to disable the log chat.
func NewExecutor(chat Chat, logChatID int64, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	breaker := apperrors.NewCircuitBreaker(apperrors.WithStateChange(func(from, to apperrors.State) {
		log.Warn("log chat circuit changed",
			slog.Int64("chat_id", logChatID),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	}))
	return &Executor{
		chat:      chat,
		logChatID: logChatID,
		breaker:   breaker,
		log:       log,
	}
}

// Run applies effects in order. A pending callback query is always answered, once.
func (x *Executor) Run(ctx context.Context, in flow.Input, effects []flow.Effect) {
	if in.Kind == flow.KindCallback && in.CallbackID != "" {
		resp := &telebot.CallbackResponse{}
		for _, e := range effects {
			if e.Kind == flow.EffectToast {
				resp.Text = e.Text
				resp.ShowAlert = e.Alert
				break
			}
		}
		if err := x.chat.Respond(&telebot.Callback{ID: in.CallbackID}, resp); err != nil {
			x.fail(ctx, "answer_callback", err)
		}
	}

	for _, e := range effects {
		var err error
		switch e.Kind {
		case flow.EffectReply:
			err = x.send(in.ChatID, in.ThreadID, e)
		case flow.EffectEdit:
			err = x.edit(ctx, in, e)
		case flow.EffectSend, flow.EffectPhoto:
			chatID, threadID := e.ChatID, e.ThreadID
			if chatID == 0 {
				chatID, threadID = in.ChatID, in.ThreadID
			}
			err = x.send(chatID, threadID, e)
		case flow.EffectRemove:
			if in.MessageID != 0 {
				err = x.chat.Delete(storedMessage(in))
			}
		case flow.EffectInline:
			err = x.answerInline(in, e)
		case flow.EffectLog:
			x.postLog(ctx, e.Text)
			continue
		case flow.EffectToast:
			continue
		}
		if err != nil {
			x.fail(ctx, effectName(e.Kind), err)
		}
	}
}

// Log posts text to the log chat outside of any update.
func (x *Executor) Log(ctx context.Context, text string) {
	x.postLog(ctx, text)
}

func (x *Executor) send(chatID int64, threadID int, e flow.Effect) error {
	opts := sendOptions(e, threadID)
	to := telebot.ChatID(chatID)

	if e.HasPhoto() {
		_, err := x.chat.Send(to, photoOf(e), opts)
		return err
	}
	_, err := x.chat.Send(to, e.Text, opts)
	return err
}

func (x *Executor) edit(ctx context.Context, in flow.Input, e flow.Effect) error {
	if in.MessageID == 0 {
		return x.send(in.ChatID, in.ThreadID, e)
	}

	msg := storedMessage(in)
	opts := sendOptions(e, 0)

	var err error
	switch {
	case e.HasPhoto() && in.HasPhoto:
		_, err = x.chat.EditMedia(msg, photoOf(e), opts)
	case e.HasPhoto():
		if err = x.send(in.ChatID, in.ThreadID, e); err == nil {
			if delErr := x.chat.Delete(msg); delErr != nil {
				x.fail(ctx, "delete", delErr)
			}
		}
		return err
	case in.HasPhoto:
		_, err = x.chat.EditCaption(msg, e.Text, opts)
	default:
		_, err = x.chat.Edit(msg, e.Text, opts)
	}

	if err == nil || stderrors.Is(err, telebot.ErrMessageNotModified) {
		return nil
	}

	x.log.DebugContext(ctx, "edit failed, sending instead",
		slog.Int64("chat_id", in.ChatID),
		slog.String("error", err.Error()),
	)
	return x.send(in.ChatID, in.ThreadID, e)
}

func (x *Executor) answerInline(in flow.Input, e flow.Effect) error {
	results := make(telebot.Results, 0, len(e.Results))
	for _, r := range e.Results {
		article := &telebot.ArticleResult{Title: r.Title, Text: r.Text}
		article.SetResultID(r.ID)
		results = append(results, article)
	}
	return x.chat.Answer(&telebot.Query{ID: in.InlineID}, &telebot.QueryResponse{
		Results:   results,
		CacheTime: 1,
	})
}

func (x *Executor) postLog(ctx context.Context, text string) {
	if x.logChatID == 0 || text == "" {
		return
	}

	err := x.breaker.Call(func() error {
		_, err := x.chat.Send(telebot.ChatID(x.logChatID), text)
		return err
	})
	if err != nil {
		x.fail(ctx, "log_chat", err)
	}
}

func (x *Executor) fail(ctx context.Context, op string, err error) {
	appErr := apperrors.NewTransportError(op, err)
	x.log.WarnContext(ctx, "transport failure",
		slog.String("op", op),
		slog.String("code", appErr.Code),
		slog.String("error", err.Error()),
	)
}

func sendOptions(e flow.Effect, threadID int) *telebot.SendOptions {
	opts := &telebot.SendOptions{ThreadID: threadID}
	if e.Markup != nil {
		opts.ReplyMarkup = e.Markup
	}
	if e.HTML {
		opts.ParseMode = telebot.ModeHTML
	}
	return opts
}

func photoOf(e flow.Effect) *telebot.Photo {
	photo := &telebot.Photo{Caption: e.Text}
	if len(e.PhotoBytes) > 0 {
		photo.File = telebot.FromReader(bytes.NewReader(e.PhotoBytes))
	} else {
		photo.File = telebot.File{FileID: e.PhotoID}
	}
	return photo
}

func storedMessage(in flow.Input) telebot.StoredMessage {
	return telebot.StoredMessage{
		MessageID: strconv.Itoa(in.MessageID),
		ChatID:    in.ChatID,
	}
}

func effectName(kind flow.EffectKind) string {
	switch kind {
	case flow.EffectReply:
		return "reply"
	case flow.EffectEdit:
		return "edit"
	case flow.EffectSend:
		return "send"
	case flow.EffectPhoto:
		return "photo"
	case flow.EffectRemove:
		return "delete"
	case flow.EffectInline:
		return "inline"
	default:
		return "unknown"
	}
}
