// Package ledger holds per-user profile records and the pure mutations applied to them.
// Callers persist the owning document after every mutation.
package ledger

import (
	"encoding/json"
	"time"

	"github.com/Proton-105/emerans-bots/internal/store"
)

// DefaultStatus is shown for workers whose status was never changed by an admin.
const DefaultStatus = "обычный"

// ProfitEntry is one recorded profit. Entries are append-only. Multiplier is recorded
// for the post and does not scale the payout.
type ProfitEntry struct {
	Timestamp  string `json:"ts"`
	Amount     Amount `json:"amount"`
	Rate       int    `json:"rate"`
	Multiplier int    `json:"multiplier,omitempty"`
}

// Profile is one end user of one bot. Fields only one bot uses are omitted when empty.
type Profile struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstSeen string `json:"first_seen,omitempty"`

	BalanceRub  int64  `json:"balance_rub"`
	OrdersCount int    `json:"orders_count,omitempty"`
	City        string `json:"city,omitempty"`
	WorkerID    *int64 `json:"worker_id,omitempty"`
	TopupAmount *int64 `json:"topup_amount,omitempty"`

	Nickname              string        `json:"nickname,omitempty"`
	Description           string        `json:"description,omitempty"`
	Status                string        `json:"status,omitempty"`
	ShowNicknameInProfits *bool         `json:"show_nickname_in_profits,omitempty"`
	ProfitCount           int           `json:"profit_count,omitempty"`
	ProfitTotalRub        Amount        `json:"profit_total_rub"`
	ProfitHistory         []ProfitEntry `json:"profit_history,omitempty"`
	PayoutRate            int           `json:"payout_rate,omitempty"`

	Extra store.Extra `json:"-"`
}

// MarshalJSON keeps keys written by other builds.
func (p Profile) MarshalJSON() ([]byte, error) {
	type plain Profile
	return store.MarshalWithExtra(plain(p), p.Extra)
}

// UnmarshalJSON captures keys this build does not know.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	extra, err := store.SplitUnknown(data, decoded)
	if err != nil {
		return err
	}
	*p = Profile(decoded)
	p.Extra = extra
	return nil
}

// StatusLabel returns the admin-assigned status or the default one.
func (p *Profile) StatusLabel() string {
	if p.Status == "" {
		return DefaultStatus
	}
	return p.Status
}

// ShowsNickname reports whether profit posts may name this worker. Defaults to true.
func (p *Profile) ShowsNickname() bool {
	return p.ShowNicknameInProfits == nil || *p.ShowNicknameInProfits
}

// ToggleNickname flips nickname visibility in profit posts and returns the new value.
func (p *Profile) ToggleNickname() bool {
	show := !p.ShowsNickname()
	p.ShowNicknameInProfits = &show
	return show
}

// DisplayName picks nickname, then username, then "ID <id>".
func (p *Profile) DisplayName() string {
	switch {
	case p.Nickname != "":
		return p.Nickname
	case p.Username != "":
		return p.Username
	default:
		return "ID " + formatID(p.UserID)
	}
}

// DaysWithUs counts whole days since FirstSeen; malformed timestamps count as zero.
func (p *Profile) DaysWithUs(now time.Time) int {
	created, ok := ParseTimestamp(p.FirstSeen)
	if !ok {
		return 0
	}
	days := int(now.Sub(created) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}
