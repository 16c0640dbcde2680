// Package flow runs multi-step conversations. Steps are pure: they read an Input and the
// session's answer bag and return effects for the transport to apply.
package flow

import (
	"strings"
)

// Kind classifies an inbound update.
type Kind int

const (
	KindText Kind = iota + 1
	KindCommand
	KindCallback
	KindPhoto
	KindInline
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCommand:
		return "command"
	case KindCallback:
		return "callback"
	case KindPhoto:
		return "photo"
	case KindInline:
		return "inline"
	default:
		return "unknown"
	}
}

// Input is the transport-independent view of one update.
type Input struct {
	Kind Kind

	UserID    int64
	Username  string
	FirstName string
	LastName  string

	ChatID    int64
	ChatType  string
	ThreadID  int
	Topic     bool
	MessageID int
	// HasPhoto is set when the message the input refers to carries a photo,
	// so edits must target its caption.
	HasPhoto bool

	// Command is the command name without the slash; Payload is what follows it.
	Command string
	Payload string

	// CallbackID and Data are set for button presses.
	CallbackID string
	Data       string

	Text        string
	Caption     string
	PhotoFileID string

	// InlineID and Query are set for inline queries.
	InlineID string
	Query    string
}

// Private reports whether the update came from a one-to-one chat.
func (in Input) Private() bool {
	return in.ChatType == "private"
}

// FullName joins first and last name.
func (in Input) FullName() string {
	return strings.TrimSpace(in.FirstName + " " + in.LastName)
}

// DisplayHint is the name stored on first contact: username, else full name.
func (in Input) DisplayHint() string {
	if in.Username != "" {
		return in.Username
	}
	return in.FullName()
}

// CallbackArg returns the callback data after prefix, or false when Data does not start with it.
func (in Input) CallbackArg(prefix string) (string, bool) {
	if in.Kind != KindCallback || !strings.HasPrefix(in.Data, prefix) {
		return "", false
	}
	return strings.TrimPrefix(in.Data, prefix), true
}

// TrimmedText returns the message text without surrounding whitespace.
func (in Input) TrimmedText() string {
	return strings.TrimSpace(in.Text)
}

// Action names the update for logs and metrics without leaking free text:
// "/start", the callback prefix before the first colon, or the kind.
func (in Input) Action() string {
	switch in.Kind {
	case KindCommand:
		return "/" + in.Command
	case KindCallback:
		if in.Data == "" {
			return "callback"
		}
		unique, _, _ := strings.Cut(in.Data, ":")
		return unique
	default:
		return in.Kind.String()
	}
}
