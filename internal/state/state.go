package state

import "time"

// State is a step tag inside a conversation flow, e.g. "topup:amount".
type State string

const (
	// StateIdle means no conversation is active; stateless menu handlers own the user's input.
	StateIdle State = "idle"
)

// UserState captures the active conversation of a Telegram user.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	Flow         string                 `json:"flow"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Clone returns a deep enough copy for the answer bag to be mutated independently.
func (s *UserState) Clone() *UserState {
	if s == nil {
		return nil
	}

	copyState := *s
	if s.Context != nil {
		ctxCopy := make(map[string]interface{}, len(s.Context))
		for k, v := range s.Context {
			ctxCopy[k] = v
		}
		copyState.Context = ctxCopy
	}
	return &copyState
}
