package flow

import (
	telebot "gopkg.in/telebot.v3"
)

// EffectKind names what the transport should do.
type EffectKind int

const (
	// EffectReply sends a new message to the chat the input came from.
	EffectReply EffectKind = iota + 1
	// EffectEdit rewrites the message a callback was pressed on; failures fall back to EffectReply.
	EffectEdit
	// EffectSend sends a message to an explicit chat and optional forum topic.
	EffectSend
	// EffectPhoto sends a photo, by file id or rendered bytes.
	EffectPhoto
	// EffectToast answers the callback query with a short notice.
	EffectToast
	// EffectRemove deletes the message the input refers to.
	EffectRemove
	// EffectInline answers an inline query.
	EffectInline
	// EffectLog posts to the bot's log chat.
	EffectLog
)

// InlineResult is one article in an inline query answer.
type InlineResult struct {
	ID    string
	Title string
	Text  string
}

// Effect is one transport action produced by a handler.
type Effect struct {
	Kind EffectKind

	// ChatID and ThreadID address EffectSend and EffectPhoto; zero means the input's chat.
	ChatID   int64
	ThreadID int

	Text   string
	HTML   bool
	Markup *telebot.ReplyMarkup

	PhotoID    string
	PhotoBytes []byte

	Alert   bool
	Results []InlineResult
}

// Reply sends text to the current chat.
func Reply(text string) Effect {
	return Effect{Kind: EffectReply, Text: text}
}

// Edit replaces the text (or caption) of the current message.
func Edit(text string) Effect {
	return Effect{Kind: EffectEdit, Text: text}
}

// Respond edits the pressed message for button presses and sends a new message otherwise.
func Respond(in Input, text string) Effect {
	if in.Kind == KindCallback {
		return Edit(text)
	}
	return Reply(text)
}

// Send sends text to another chat.
func Send(chatID int64, text string) Effect {
	return Effect{Kind: EffectSend, ChatID: chatID, Text: text}
}

// Photo sends a stored photo by file id.
func Photo(fileID, caption string) Effect {
	return Effect{Kind: EffectPhoto, PhotoID: fileID, Text: caption}
}

// RenderedPhoto sends freshly encoded image bytes.
func RenderedPhoto(data []byte, caption string) Effect {
	return Effect{Kind: EffectPhoto, PhotoBytes: data, Text: caption}
}

// Toast answers the pending callback query.
func Toast(text string, alert bool) Effect {
	return Effect{Kind: EffectToast, Text: text, Alert: alert}
}

// Remove deletes the current message.
func Remove() Effect {
	return Effect{Kind: EffectRemove}
}

// Inline answers the current inline query.
func Inline(results []InlineResult) Effect {
	return Effect{Kind: EffectInline, Results: results}
}

// Log posts text to the configured log chat.
func Log(text string) Effect {
	return Effect{Kind: EffectLog, Text: text}
}

// WithMarkup attaches a keyboard.
func (e Effect) WithMarkup(markup *telebot.ReplyMarkup) Effect {
	e.Markup = markup
	return e
}

// AsHTML marks the text as HTML.
func (e Effect) AsHTML() Effect {
	e.HTML = true
	return e
}

// WithPhoto shows a stored photo with Text as its caption. On EffectEdit the current
// message's media is replaced, or a new photo is sent when it had none.
func (e Effect) WithPhoto(fileID string) Effect {
	e.PhotoID = fileID
	return e
}

// WithRendered is WithPhoto for freshly encoded image bytes.
func (e Effect) WithRendered(data []byte) Effect {
	e.PhotoBytes = data
	return e
}

// HasPhoto reports whether the effect carries an image.
func (e Effect) HasPhoto() bool {
	return e.PhotoID != "" || len(e.PhotoBytes) > 0
}

// To redirects the effect to another chat and topic.
func (e Effect) To(chatID int64, threadID int) Effect {
	e.ChatID = chatID
	e.ThreadID = threadID
	return e
}
