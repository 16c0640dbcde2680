package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func mustAmount(t *testing.T, text string) Amount {
	t.Helper()
	a, err := ParseAmount(text)
	require.NoError(t, err)
	return a
}

func TestPayout(t *testing.T) {
	testCases := []struct {
		name   string
		amount string
		rate   int
		want   int64
	}{
		{name: "rounds down below half", amount: "999", rate: 65, want: 649},
		{name: "exact", amount: "1000", rate: 80, want: 800},
		{name: "half rounds away from zero", amount: "1001", rate: 50, want: 501},
		{name: "fractional amount", amount: "12,5", rate: 100, want: 13},
		{name: "zero rate", amount: "5000", rate: 0, want: 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Payout(mustAmount(t, tc.amount), tc.rate))
		})
	}
}

func TestRecordProfit_AppliesAllMutations(t *testing.T) {
	l := Ledger{}
	p := l.GetOrCreate(7, "", testNow)

	payout, err := RecordProfit(p, mustAmount(t, "999"), 65, testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(649), payout)
	assert.Equal(t, int64(649), p.BalanceRub)
	assert.Equal(t, 1, p.ProfitCount)
	assert.Equal(t, 65, p.PayoutRate)
	assert.Equal(t, "999", p.ProfitTotalRub.Format())
	require.Len(t, p.ProfitHistory, 1)
	assert.Equal(t, 65, p.ProfitHistory[0].Rate)
}

func TestRecordProfit_InvalidInputChangesNothing(t *testing.T) {
	p := &Profile{UserID: 1, BalanceRub: 10}

	_, err := RecordProfit(p, mustAmount(t, "0"), 80, testNow)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = RecordProfit(p, mustAmount(t, "100"), 120, testNow)
	assert.ErrorIs(t, err, ErrInvalidRate)

	assert.Equal(t, int64(10), p.BalanceRub)
	assert.Zero(t, p.ProfitCount)
	assert.Empty(t, p.ProfitHistory)
}

func TestRecordProfit_TotalIsExactSum(t *testing.T) {
	p := &Profile{UserID: 1}
	amounts := []string{"999", "1000.5", "333,25", "1"}
	rates := []int{65, 80, 70, 100}

	var sum Amount
	for i, text := range amounts {
		a := mustAmount(t, text)
		sum = Amount{sum.Add(a.Decimal)}
		_, err := RecordProfit(p, a, rates[i], testNow)
		require.NoError(t, err)
	}

	assert.True(t, sum.Equal(p.ProfitTotalRub.Decimal), "total %s, sum %s", p.ProfitTotalRub, sum)
	assert.Equal(t, len(amounts), p.ProfitCount)
}

func TestGetOrCreate(t *testing.T) {
	l := Ledger{}
	p := l.GetOrCreate(5, "anna", testNow)
	assert.Equal(t, "anna", p.Username)
	assert.Equal(t, "2024-06-15T12:00:00Z", p.FirstSeen)
	assert.Zero(t, p.BalanceRub)

	p.BalanceRub = 100
	again := l.GetOrCreate(5, "", testNow.Add(time.Hour))
	assert.Same(t, p, again)
	assert.Equal(t, "anna", again.Username)
	assert.Equal(t, "2024-06-15T12:00:00Z", again.FirstSeen)

	refreshed := l.GetOrCreate(5, "anna_new", testNow)
	assert.Equal(t, "anna_new", refreshed.Username)
	assert.Equal(t, int64(100), refreshed.BalanceRub)
}

func TestBindReferrer_SetOnce(t *testing.T) {
	p := &Profile{UserID: 1}

	assert.True(t, BindReferrer(p, 77))
	assert.False(t, BindReferrer(p, 88))
	require.NotNil(t, p.WorkerID)
	assert.Equal(t, int64(77), *p.WorkerID)
}

func TestSetCity(t *testing.T) {
	p := &Profile{UserID: 1}

	assert.True(t, SetCity(p, "Berlin", false))
	assert.False(t, SetCity(p, "Paris", false))
	assert.Equal(t, "Berlin", p.City)
	assert.True(t, SetCity(p, "Paris", true))
	assert.Equal(t, "Paris", p.City)
}

func TestWithdrawal(t *testing.T) {
	p := &Profile{UserID: 1, BalanceRub: 500}

	assert.NoError(t, CheckWithdrawal(p, mustAmount(t, "500")))
	assert.ErrorIs(t, CheckWithdrawal(p, mustAmount(t, "500.01")), ErrInsufficientFunds)
	assert.ErrorIs(t, CheckWithdrawal(p, mustAmount(t, "-1")), ErrInvalidAmount)

	require.NoError(t, Deduct(p, 200))
	assert.Equal(t, int64(300), p.BalanceRub)
	assert.ErrorIs(t, Deduct(p, 301), ErrInsufficientFunds)
}

func TestGrant_Rounds(t *testing.T) {
	p := &Profile{UserID: 1}
	assert.Equal(t, int64(11), Grant(p, mustAmount(t, "10.5")))
	assert.Equal(t, int64(11), p.BalanceRub)
}

func TestWindows_SkipsMalformedTimestamps(t *testing.T) {
	p := &Profile{ProfitHistory: []ProfitEntry{
		{Timestamp: FormatTimestamp(testNow.Add(-2 * time.Hour))},
		{Timestamp: "2024-06-12T12:00:00.123456+00:00"},
		{Timestamp: "2024-05-20T12:00:00"},
		{Timestamp: FormatTimestamp(testNow.Add(-40 * 24 * time.Hour))},
		{Timestamp: "yesterday"},
		{Timestamp: ""},
	}}

	daily, weekly, monthly := Windows(p, testNow)
	assert.Equal(t, 1, daily)
	assert.Equal(t, 2, weekly)
	assert.Equal(t, 3, monthly)
}

func TestDaysWithUs(t *testing.T) {
	p := &Profile{FirstSeen: "2024-06-05T11:00:00+00:00"}
	assert.Equal(t, 10, p.DaysWithUs(testNow))

	p.FirstSeen = "garbage"
	assert.Zero(t, p.DaysWithUs(testNow))
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "5 000₽", want: "5000"},
		{input: " 2000 ", want: "2000"},
		{input: "12,5", want: "12.5"},
		{input: "1000 руб", want: "1000"},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range testCases {
		got, err := ParseAmount(tc.input)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAmount, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got.Format(), tc.input)
	}
}

func TestProfile_JSONCompatibility(t *testing.T) {
	raw := `{"user_id":5,"nickname":"Neo","balance_rub":120,"profit_count":2,"profit_total_rub":3000,
		"profit_history":[{"ts":"2024-06-01T00:00:00+00:00","amount":1500.0,"rate":80}],"legacy_flag":true}`

	var p Profile
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, "Neo", p.DisplayName())
	assert.Equal(t, DefaultStatus, p.StatusLabel())
	assert.True(t, p.ShowsNickname())
	assert.Equal(t, int64(3000), p.ProfitTotalRub.Rubles())

	encoded, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"legacy_flag":true`)
	assert.Contains(t, string(encoded), `"profit_total_rub":3000`)
	assert.Contains(t, string(encoded), `"amount":1500`)
	assert.NotContains(t, string(encoded), `"multiplier"`)

	assert.False(t, p.ToggleNickname())
	assert.False(t, p.ShowsNickname())
}

func TestDisplayName_FallsBackToID(t *testing.T) {
	p := &Profile{UserID: 42}
	assert.Equal(t, "ID 42", p.DisplayName())
}
