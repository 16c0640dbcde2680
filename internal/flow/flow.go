package flow

import (
	"context"
	"strings"

	"github.com/Proton-105/emerans-bots/internal/state"
)

// Accept is a bit set of input kinds a step consumes.
type Accept int

const (
	AcceptText Accept = 1 << iota
	AcceptCallback
	AcceptPhoto
)

// Handler processes one input for the active step. Validation failures are not errors:
// they are reported with Stay. A returned error leaves the session untouched.
type Handler func(ctx context.Context, in Input, bag Bag) (Outcome, error)

// Prompt renders the message that asks for a step's input.
type Prompt func(in Input, bag Bag) []Effect

// Step is one named state of a flow.
type Step struct {
	State  state.State
	Accept Accept
	// Callbacks lists the callback data prefixes the step consumes when it accepts callbacks.
	Callbacks []string
	Prompt    Prompt
	Handle    Handler
	// Next lists the states this step may advance to. Empty means the following step.
	Next []state.State
}

// Accepts reports whether the input is meant for this step.
func (s Step) Accepts(in Input) bool {
	switch in.Kind {
	case KindText:
		return s.Accept&AcceptText != 0
	case KindPhoto:
		return s.Accept&AcceptPhoto != 0
	case KindCallback:
		if s.Accept&AcceptCallback == 0 {
			return false
		}
		for _, prefix := range s.Callbacks {
			if strings.HasPrefix(in.Data, prefix) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Flow is an ordered list of steps collecting input toward one side effect.
type Flow struct {
	Name  string
	Steps []Step
}

type outcomeKind int

const (
	outcomeStay outcomeKind = iota + 1
	outcomeAdvance
	outcomeFinish
	outcomeAbort
)

// Outcome tells the engine where the session goes after a step.
type Outcome struct {
	kind    outcomeKind
	next    state.State
	effects []Effect
}

// Stay keeps the session on the current step, e.g. after invalid input.
func Stay(effects ...Effect) Outcome {
	return Outcome{kind: outcomeStay, effects: effects}
}

// Invalid is Stay with a corrective reply.
func Invalid(message string) Outcome {
	return Stay(Reply(message))
}

// Advance moves the session to next; the engine appends next's prompt to effects.
func Advance(next state.State, effects ...Effect) Outcome {
	return Outcome{kind: outcomeAdvance, next: next, effects: effects}
}

// Finish ends the flow after its side effect was committed.
func Finish(effects ...Effect) Outcome {
	return Outcome{kind: outcomeFinish, effects: effects}
}

// Abort ends the flow without committing, e.g. when an authorization check fails.
func Abort(effects ...Effect) Outcome {
	return Outcome{kind: outcomeAbort, effects: effects}
}

// Effects returns the effects carried by the outcome.
func (o Outcome) Effects() []Effect {
	return o.effects
}
