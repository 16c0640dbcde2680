// Package escort implements the catalog bot: city capture, the city-filtered model
// catalog, balance top-up, inline search and the admin panel.
package escort

import (
	"encoding/json"

	"github.com/Proton-105/emerans-bots/internal/catalog"
	"github.com/Proton-105/emerans-bots/internal/ledger"
	"github.com/Proton-105/emerans-bots/internal/store"
)

// MinTopup is the smallest accepted top-up, in rubles.
const MinTopup = 2000

// Document is the whole persisted state of the catalog bot.
type Document struct {
	Profiles ledger.Ledger `json:"profiles"`
	Models   []catalog.Item `json:"models"`
	Settings Settings       `json:"settings"`

	Extra store.Extra `json:"-"`
}

// NewDocument returns an empty document with default settings.
func NewDocument() *Document {
	return &Document{
		Profiles: ledger.Ledger{},
		Models:   []catalog.Item{},
		Settings: DefaultSettings(),
	}
}

// Normalize backfills collections missing from the file.
func (d *Document) Normalize() {
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
	if d.Models == nil {
		d.Models = []catalog.Item{}
	}
}

// MarshalJSON keeps top-level keys this build does not know.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return store.MarshalWithExtra(plain(d), d.Extra)
}

// UnmarshalJSON decodes the document; a missing settings object yields the defaults.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	decoded := plain{Settings: DefaultSettings()}
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
