package ledger

import (
	"errors"
	"strconv"
	"time"
)

var (
	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidRate is returned for payout rates outside 0..100.
	ErrInvalidRate = errors.New("invalid payout rate")
)

// Ledger maps user ids to profiles. Keys are unique per bot; bots never share a ledger.
type Ledger map[int64]*Profile

// GetOrCreate returns the profile for userID, creating a zeroed one stamped with now.
// A non-empty hint refreshes the stored username.
func (l Ledger) GetOrCreate(userID int64, hint string, now time.Time) *Profile {
	if p, ok := l[userID]; ok && p != nil {
		if hint != "" {
			p.Username = hint
		}
		return p
	}

	p := &Profile{
		UserID:    userID,
		Username:  hint,
		FirstSeen: FormatTimestamp(now),
	}
	l[userID] = p
	return p
}

// Get returns the profile or nil.
func (l Ledger) Get(userID int64) *Profile {
	return l[userID]
}

// RecordProfit credits the worker's payout, adds amount to the lifetime total, bumps the
// counter, remembers the rate and appends a history entry. Inputs are validated first so
// either all five changes happen or none do.
func RecordProfit(p *Profile, amount Amount, rate int, now time.Time) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if rate < 0 || rate > 100 {
		return 0, ErrInvalidRate
	}

	payout := Payout(amount, rate)
	p.BalanceRub += payout
	p.ProfitTotalRub = Amount{p.ProfitTotalRub.Add(amount.Decimal)}
	p.ProfitCount++
	p.PayoutRate = rate
	p.ProfitHistory = append(p.ProfitHistory, ProfitEntry{
		Timestamp: FormatTimestamp(now),
		Amount:    amount,
		Rate:      rate,
	})
	return payout, nil
}

// Grant adds an admin grant rounded to whole rubles. Negative grants are accepted.
func Grant(p *Profile, amount Amount) int64 {
	delta := amount.Rubles()
	p.BalanceRub += delta
	return delta
}

// CheckWithdrawal validates a withdrawal request without changing the balance.
func CheckWithdrawal(p *Profile, amount Amount) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(NewAmount(p.BalanceRub).Decimal) {
		return ErrInsufficientFunds
	}
	return nil
}

// Deduct removes a confirmed withdrawal from the balance.
func Deduct(p *Profile, rubles int64) error {
	if rubles <= 0 {
		return ErrInvalidAmount
	}
	if rubles > p.BalanceRub {
		return ErrInsufficientFunds
	}
	p.BalanceRub -= rubles
	return nil
}

// BindReferrer records the referring worker once; later calls are ignored.
func BindReferrer(p *Profile, workerID int64) bool {
	if p.WorkerID != nil {
		return false
	}
	p.WorkerID = &workerID
	return true
}

// SetCity stores the viewer's city. An existing city is only replaced when force is set.
func SetCity(p *Profile, city string, force bool) bool {
	if p.City != "" && !force {
		return false
	}
	p.City = city
	return true
}

// Windows counts profits in the last 1, 7 and 30 days. Entries with missing or
// unparseable timestamps are skipped.
func Windows(p *Profile, now time.Time) (daily, weekly, monthly int) {
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	for _, entry := range p.ProfitHistory {
		created, ok := ParseTimestamp(entry.Timestamp)
		if !ok {
			continue
		}
		if !created.Before(dayAgo) {
			daily++
		}
		if !created.Before(weekAgo) {
			weekly++
		}
		if !created.Before(monthAgo) {
			monthly++
		}
	}
	return daily, weekly, monthly
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp reads ISO-8601 timestamps; values without a zone are UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders now as RFC 3339 in UTC.
func FormatTimestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
