// Package team implements the worker team bot: applications, worker profiles with the
// banner card, withdrawals and the admin panel that records profits.
package team

import (
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/Proton-105/emerans-bots/internal/ledger"
	"github.com/Proton-105/emerans-bots/internal/store"
)

// Status of an application. Only pending applications can be decided.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ErrAlreadyDecided is returned when an accepted or rejected application is decided again.
var ErrAlreadyDecided = errors.New("application already decided")

// ErrAlreadyApplied is returned when a user files a second application.
var ErrAlreadyApplied = errors.New("application already filed")

// Application is one request to join the team.
type Application struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Origin   string `json:"origin"`
	Time     string `json:"time"`
	About    string `json:"about"`
	Status   Status `json:"status"`

	Extra store.Extra `json:"-"`
}

// MarshalJSON keeps keys written by other builds.
func (a Application) MarshalJSON() ([]byte, error) {
	type plain Application
	return store.MarshalWithExtra(plain(a), a.Extra)
}

// UnmarshalJSON captures keys this build does not know.
func (a *Application) UnmarshalJSON(data []byte) error {
	type plain Application
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	extra, err := store.SplitUnknown(data, decoded)
	if err != nil {
		return err
	}
	*a = Application(decoded)
	a.Extra = extra
	return nil
}

// Decide moves a pending application to accepted or rejected.
func (a *Application) Decide(accept bool) error {
	if a.Status != StatusPending {
		return ErrAlreadyDecided
	}
	if accept {
		a.Status = StatusAccepted
	} else {
		a.Status = StatusRejected
	}
	return nil
}

// Banner and link sections.
const (
	SectionMain       = "main"
	SectionDirections = "directions"
	SectionMentors    = "mentors"
	SectionAbout      = "about"
	SectionProfile    = "profile"

	LinkInfo    = "info"
	LinkManuals = "manuals"
	LinkProfits = "profits"
	LinkChat    = "chat"
)

// Document is the whole persisted state of the team bot.
type Document struct {
	ApprovedUsers   []int64                 `json:"approved_users"`
	Applications    map[string]*Application `json:"applications"`
	Profiles        ledger.Ledger           `json:"profiles"`
	Mentors         []int64                 `json:"mentors"`
	Banners         map[string]string       `json:"banners"`
	ProfitChannelID *int64                  `json:"profit_channel_id"`
	Links           map[string]string       `json:"links"`
	ProfitCount     int                     `json:"profit_count"`
	ProfitTotalRub  ledger.Amount           `json:"profit_total_rub"`

	Extra store.Extra `json:"-"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	d := &Document{}
	d.Normalize()
	return d
}

// Normalize backfills collections missing from older files.
func (d *Document) Normalize() {
	if d.ApprovedUsers == nil {
		d.ApprovedUsers = []int64{}
	}
	if d.Applications == nil {
		d.Applications = map[string]*Application{}
	}
	for key, app := range d.Applications {
		if app == nil {
			delete(d.Applications, key)
		}
	}
	if d.Profiles == nil {
		d.Profiles = ledger.Ledger{}
	}
	for id, p := range d.Profiles {
		if p == nil {
			delete(d.Profiles, id)
			continue
		}
		if p.UserID == 0 {
			p.UserID = id
		}
	}
	if d.Mentors == nil {
		d.Mentors = []int64{}
	}
	if d.Banners == nil {
		d.Banners = map[string]string{}
	}
	if d.Links == nil {
		d.Links = map[string]string{}
	}
}

// MarshalJSON keeps top-level keys this build does not know.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return store.MarshalWithExtra(plain(d), d.Extra)
}

// UnmarshalJSON decodes the document and captures unknown keys.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	extra, err := store.SplitUnknown(data, decoded)
	if err != nil {
		return err
	}
	*d = Document(decoded)
	d.Extra = extra
	return nil
}

// IsApproved reports whether the user was accepted into the team.
func (d *Document) IsApproved(userID int64) bool {
	return slices.Contains(d.ApprovedUsers, userID)
}

// Application returns the application filed by userID, or nil.
func (d *Document) Application(userID int64) *Application {
	return d.Applications[strconv.FormatInt(userID, 10)]
}

// Submit files a pending application. A user applies once: a pending or decided
// application is never replaced.
func (d *Document) Submit(app Application) error {
	if d.Application(app.UserID) != nil {
		return ErrAlreadyApplied
	}
	app.Status = StatusPending
	d.Applications[strconv.FormatInt(app.UserID, 10)] = &app
	return nil
}

// Decide settles the user's pending application; accepting also approves the user.
func (d *Document) Decide(userID int64, accept bool) error {
	app := d.Application(userID)
	if app == nil {
		return errApplicationNotFound
	}
	if err := app.Decide(accept); err != nil {
		return err
	}
	if accept && !d.IsApproved(userID) {
		d.ApprovedUsers = append(d.ApprovedUsers, userID)
	}
	return nil
}

var errApplicationNotFound = errors.New("application not found")

// AddMentor appends a mentor id once and reports whether it was new.
func (d *Document) AddMentor(id int64) bool {
	if slices.Contains(d.Mentors, id) {
		return false
	}
	d.Mentors = append(d.Mentors, id)
	return true
}

// RecordProfit credits the worker through the ledger, keeps the multiplier on the new
// history entry and bumps the team totals.
func (d *Document) RecordProfit(workerID int64, amount ledger.Amount, rate, multiplier int, now time.Time) (int64, error) {
	p := d.Profiles.GetOrCreate(workerID, "", now)
	payout, err := ledger.RecordProfit(p, amount, rate, now)
	if err != nil {
		return 0, err
	}
	p.ProfitHistory[len(p.ProfitHistory)-1].Multiplier = multiplier
	d.ProfitCount++
	d.ProfitTotalRub = ledger.Amount{Decimal: d.ProfitTotalRub.Add(amount.Decimal)}
	return payout, nil
}
