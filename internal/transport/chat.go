// Package transport connects the pure conversation handlers to Telegram.
package transport

import (
	"io"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/emerans-bots/internal/flow"
)

// Chat is the subset of *telebot.Bot the bots use.
type Chat interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error)
	EditCaption(msg telebot.Editable, caption string, opts ...interface{}) (*telebot.Message, error)
	EditMedia(msg telebot.Editable, media telebot.Inputtable, opts ...interface{}) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
	Respond(c *telebot.Callback, resp ...*telebot.CallbackResponse) error
	Answer(query *telebot.Query, resp *telebot.QueryResponse) error
	CreateTopic(chat *telebot.Chat, topic *telebot.Topic) (*telebot.Topic, error)
	FileByID(fileID string) (telebot.File, error)
	File(file *telebot.File) (io.ReadCloser, error)
	ProfilePhotosOf(user *telebot.User) ([]telebot.Photo, error)
}

var _ Chat = (*telebot.Bot)(nil)

// InputFrom converts a telebot update into a flow input.
func InputFrom(c telebot.Context) flow.Input {
	var in flow.Input

	if sender := c.Sender(); sender != nil {
		in.UserID = sender.ID
		in.Username = sender.Username
		in.FirstName = sender.FirstName
		in.LastName = sender.LastName
	}

	if q := c.Query(); q != nil {
		in.Kind = flow.KindInline
		in.InlineID = q.ID
		in.Query = q.Text
		return in
	}

	msg := c.Message()
	if msg != nil {
		if msg.Chat != nil {
			in.ChatID = msg.Chat.ID
			in.ChatType = string(msg.Chat.Type)
		}
		in.MessageID = msg.ID
		in.ThreadID = msg.ThreadID
		in.Topic = msg.TopicMessage
		in.HasPhoto = msg.Photo != nil
	}

	if cb := c.Callback(); cb != nil {
		in.Kind = flow.KindCallback
		in.CallbackID = cb.ID
		in.Data = cb.Data
		if in.ChatID == 0 {
			in.ChatID = in.UserID
		}
		return in
	}

	if msg == nil {
		return in
	}

	in.Text = msg.Text
	in.Caption = msg.Caption

	switch {
	case msg.Photo != nil:
		in.Kind = flow.KindPhoto
		in.PhotoFileID = msg.Photo.FileID
	case msg.Document != nil && strings.HasPrefix(msg.Document.MIME, "image/"):
		in.Kind = flow.KindPhoto
		in.PhotoFileID = msg.Document.FileID
	case strings.HasPrefix(msg.Text, "/"):
		in.Kind = flow.KindCommand
		in.Command, in.Payload = ParseCommand(msg.Text)
	default:
		in.Kind = flow.KindText
	}
	return in
}

// ParseCommand splits "/start@bot 123" into ("start", "123").
func ParseCommand(text string) (command, payload string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest)
}
