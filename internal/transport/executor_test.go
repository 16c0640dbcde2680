package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/emerans-bots/internal/flow"
)

type call struct {
	op   string
	to   string
	what interface{}
	opts *telebot.SendOptions
}

type fakeChat struct {
	calls     []call
	responses []*telebot.CallbackResponse
	editErr   error
	sendErr   error
	files     map[string][]byte
	photos    []telebot.Photo
}

func optsOf(opts []interface{}) *telebot.SendOptions {
	for _, o := range opts {
		if so, ok := o.(*telebot.SendOptions); ok {
			return so
		}
	}
	return nil
}

func (f *fakeChat) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	f.calls = append(f.calls, call{op: "send", to: to.Recipient(), what: what, opts: optsOf(opts)})
	return &telebot.Message{}, f.sendErr
}

func (f *fakeChat) Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	f.calls = append(f.calls, call{op: "edit", what: what, opts: optsOf(opts)})
	return &telebot.Message{}, f.editErr
}

func (f *fakeChat) EditCaption(msg telebot.Editable, caption string, opts ...interface{}) (*telebot.Message, error) {
	f.calls = append(f.calls, call{op: "edit_caption", what: caption, opts: optsOf(opts)})
	return &telebot.Message{}, f.editErr
}

func (f *fakeChat) EditMedia(msg telebot.Editable, media telebot.Inputtable, opts ...interface{}) (*telebot.Message, error) {
	f.calls = append(f.calls, call{op: "edit_media", what: media, opts: optsOf(opts)})
	return &telebot.Message{}, f.editErr
}

func (f *fakeChat) Delete(msg telebot.Editable) error {
	f.calls = append(f.calls, call{op: "delete"})
	return nil
}

func (f *fakeChat) Respond(c *telebot.Callback, resp ...*telebot.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func (f *fakeChat) Answer(query *telebot.Query, resp *telebot.QueryResponse) error {
	f.calls = append(f.calls, call{op: "answer", what: resp})
	return nil
}

func (f *fakeChat) CreateTopic(chat *telebot.Chat, topic *telebot.Topic) (*telebot.Topic, error) {
	f.calls = append(f.calls, call{op: "topic", what: topic.Name})
	return &telebot.Topic{Name: topic.Name, ThreadID: 77}, nil
}

func (f *fakeChat) FileByID(fileID string) (telebot.File, error) {
	if _, ok := f.files[fileID]; !ok {
		return telebot.File{}, errors.New("file not found")
	}
	return telebot.File{FileID: fileID}, nil
}

func (f *fakeChat) File(file *telebot.File) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.files[file.FileID])), nil
}

func (f *fakeChat) ProfilePhotosOf(user *telebot.User) ([]telebot.Photo, error) {
	return f.photos, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func callbackInput() flow.Input {
	return flow.Input{
		Kind:       flow.KindCallback,
		UserID:     1,
		ChatID:     1,
		ChatType:   "private",
		MessageID:  10,
		CallbackID: "cb-1",
		Data:       "menu:profile",
	}
}

func TestExecutor_AnswersCallbackWithToast(t *testing.T) {
	chat := &fakeChat{}
	x := NewExecutor(chat, 0, quietLogger())

	x.Run(context.Background(), callbackInput(), []flow.Effect{flow.Toast("Нет доступа", true)})

	require.Len(t, chat.responses, 1)
	assert.Equal(t, "Нет доступа", chat.responses[0].Text)
	assert.True(t, chat.responses[0].ShowAlert)
	assert.Empty(t, chat.calls)
}

func TestExecutor_AnswersCallbackEvenWithoutEffects(t *testing.T) {
	chat := &fakeChat{}
	x := NewExecutor(chat, 0, quietLogger())

	x.Run(context.Background(), callbackInput(), nil)

	require.Len(t, chat.responses, 1)
	assert.Empty(t, chat.responses[0].Text)
}

func TestExecutor_EditFallsBackToSend(t *testing.T) {
	chat := &fakeChat{editErr: errors.New("message to edit not found")}
	x := NewExecutor(chat, 0, quietLogger())

	x.Run(context.Background(), callbackInput(), []flow.Effect{flow.Edit("<b>Профиль</b>").AsHTML()})

	require.Len(t, chat.calls, 2)
	assert.Equal(t, "edit", chat.calls[0].op)
	assert.Equal(t, "send", chat.calls[1].op)
	assert.Equal(t, "<b>Профиль</b>", chat.calls[1].what)
	assert.Equal(t, telebot.ModeHTML, chat.calls[1].opts.ParseMode)
}

func TestExecutor_NotModifiedIsNotAFailure(t *testing.T) {
	chat := &fakeChat{editErr: telebot.ErrMessageNotModified}
	x := NewExecutor(chat, 0, quietLogger())

	x.Run(context.Background(), callbackInput(), []flow.Effect{flow.Edit("same")})

	require.Len(t, chat.calls, 1)
	assert.Equal(t, "edit", chat.calls[0].op)
}

func TestExecutor_EditTargetsCaptionOfPhotoMessages(t *testing.T) {
	chat := &fakeChat{}
	x := NewExecutor(chat, 0, quietLogger())

	in := callbackInput()
	in.HasPhoto = true
	x.Run(context.Background(), in, []flow.Effect{flow.Edit("caption")})

	require.Len(t, chat.calls, 1)
	assert.Equal(t, "edit_caption", chat.calls[0].op)
}

func TestExecutor_EditWithPhotoOnTextMessageReplaces(t *testing.T) {
	chat := &fakeChat{}
	x := NewExecutor(chat, 0, quietLogger())

	x.Run(context.Background(), callbackInput(), []flow.Effect{flow.Edit("banner").WithPhoto("file-1")})

	require.Len(t, chat.calls, 2)
	assert.Equal(t, "send", chat.calls[0].op)
	photo, ok := chat.calls[0].what.(*telebot.Photo)
	require.True(t, ok)
	assert.Equal(t, "file-1", photo.FileID)
	assert.Equal(t, "banner", photo.Caption)
	assert.Equal(t, "delete", chat.calls[1].op)
}

func TestExecutor_SendHonoursThread(t *testing.T) {
	chat := &fakeChat{}
	x := NewExecutor(chat, 0, quietLogger())

	in := flow.Input{Kind: flow.KindText, UserID: 5, ChatID: 5, ChatType: "private"}
	x.Run(context.Background(), in, []flow.Effect{
		flow.Send(-100, "relayed").To(-100, 42),
		flow.Reply("ok"),
	})

	require.Len(t, chat.calls, 2)
	assert.Equal(t, "-100", chat.calls[0].to)
	assert.Equal(t, 42, chat.calls[0].opts.ThreadID)
	assert.Equal(t, "5", chat.calls[1].to)
	assert.Equal(t, 0, chat.calls[1].opts.ThreadID)
}

func TestExecutor_LogChat(t *testing.T) {
	in := flow.Input{Kind: flow.KindCommand, UserID: 5, ChatID: 5}

	disabled := &fakeChat{}
	NewExecutor(disabled, 0, quietLogger()).Run(context.Background(), in, []flow.Effect{flow.Log("new user")})
	assert.Empty(t, disabled.calls)

	enabled := &fakeChat{sendErr: errors.New("chat not found")}
	x := NewExecutor(enabled, -500, quietLogger())
	x.Run(context.Background(), in, []flow.Effect{flow.Log("new user"), flow.Reply("hi")})

	require.Len(t, enabled.calls, 2)
	assert.Equal(t, "-500", enabled.calls[0].to)
	assert.Equal(t, "5", enabled.calls[1].to, "a failed log post does not stop later effects")
}

func TestExecutor_InlineAnswer(t *testing.T) {
	chat := &fakeChat{}
	x := NewExecutor(chat, 0, quietLogger())

	in := flow.Input{Kind: flow.KindInline, UserID: 5, InlineID: "q1", Query: "Anna"}
	x.Run(context.Background(), in, []flow.Effect{flow.Inline([]flow.InlineResult{{ID: "0", Title: "Anna", Text: "Anna 5000"}})})

	require.Len(t, chat.calls, 1)
	resp, ok := chat.calls[0].what.(*telebot.QueryResponse)
	require.True(t, ok)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "0", resp.Results[0].ResultID())
	assert.Equal(t, 1, resp.CacheTime)
}

func TestGateway(t *testing.T) {
	chat := &fakeChat{
		files:  map[string][]byte{"bg": []byte("jpeg"), "ava": []byte("face")},
		photos: []telebot.Photo{{File: telebot.File{FileID: "ava"}}},
	}
	gw := NewGateway(chat)
	ctx := context.Background()

	data, err := gw.Download(ctx, "bg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	_, err = gw.Download(ctx, "missing")
	assert.Error(t, err)

	data, err = gw.Avatar(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("face"), data)

	chat.photos = nil
	_, err = gw.Avatar(ctx, 5)
	assert.ErrorIs(t, err, ErrNoAvatar)

	thread, err := gw.CreateTopic(ctx, -100, "anna | 5", 0)
	require.NoError(t, err)
	assert.Equal(t, 77, thread)
}

func TestParseCommand(t *testing.T) {
	cmd, payload := ParseCommand("/start@EmeransClub_bot 12345")
	assert.Equal(t, "start", cmd)
	assert.Equal(t, "12345", payload)

	cmd, payload = ParseCommand("/Admin")
	assert.Equal(t, "admin", cmd)
	assert.Empty(t, payload)

	cmd, _ = ParseCommand("hello")
	assert.Empty(t, cmd)
}
