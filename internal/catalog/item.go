// Package catalog holds the listings shown by the catalog bot and the city filter applied to them.
package catalog

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Proton-105/emerans-bots/internal/store"
)

// AllCities is the city filter sentinel matching every viewer.
const AllCities = "*"

// Item is one catalog listing. Items have no id: they are addressed by their
// position in the catalog, so deleting one shifts the indices after it.
type Item struct {
	Name   string   `json:"name,omitempty"`
	Price  string   `json:"price,omitempty"`
	Link   string   `json:"link,omitempty"`
	Desc   string   `json:"desc,omitempty"`
	Cities []string `json:"cities,omitempty"`

	// Extra keeps keys this build does not know, plus known keys whose stored
	// shape could not be read (a "cities" object, a numeric "link" array, ...).
	Extra store.Extra `json:"-"`

	// opaque is set when the stored entry is not an object at all; it is written back as is.
	opaque json.RawMessage
}

// MarshalJSON writes the item back with every key it was loaded with.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.opaque != nil {
		return it.opaque, nil
	}
	type plain Item
	return store.MarshalWithExtra(plain(it), it.Extra)
}

// UnmarshalJSON is lenient: malformed fields are kept verbatim instead of failing
// the whole document, so a single broken listing never hides the others.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*it = Item{opaque: append(json.RawMessage(nil), data...)}
		return nil
	}

	var out Item
	for key, value := range raw {
		var ok bool
		switch key {
		case "name":
			out.Name, ok = text(value)
		case "price":
			out.Price, ok = text(value)
		case "link":
			out.Link, ok = text(value)
		case "desc":
			out.Desc, ok = text(value)
		case "cities":
			out.Cities, ok = cities(value)
		}
		if ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(store.Extra)
		}
		out.Extra[key] = value
	}

	*it = out
	return nil
}

// Title is the button label for the item.
func (it Item) Title() string {
	if it.Name == "" {
		return "Модель"
	}
	return it.Name
}

// AllowsEveryCity reports whether the filter carries the "*" sentinel.
func (it Item) AllowsEveryCity() bool {
	for _, c := range it.Cities {
		if normalizeCity(c) == AllCities {
			return true
		}
	}
	return false
}

// MatchesCity reports whether a viewer in city may see the item. Items without a
// readable filter match everyone.
func (it Item) MatchesCity(city string) bool {
	if len(it.Cities) == 0 {
		return true
	}

	target := normalizeCity(city)
	for _, c := range it.Cities {
		norm := normalizeCity(c)
		if norm == AllCities || norm == target {
			return true
		}
	}
	return false
}

// LinkURL returns the link as an openable URL, or "" when it is not one.
// Bare "t.me/..." links get an https scheme.
func (it Item) LinkURL() string {
	link := strings.TrimSpace(it.Link)
	switch {
	case strings.HasPrefix(link, "http://"), strings.HasPrefix(link, "https://"):
		return link
	case strings.HasPrefix(link, "t.me/"):
		return "https://" + link
	default:
		return ""
	}
}

// Set assigns a field addressed by its document key. Unknown fields are stored in Extra.
func (it *Item) Set(field, value string) {
	it.opaque = nil
	switch field {
	case "name":
		it.Name = value
	case "price":
		it.Price = value
	case "link":
		it.Link = value
	case "desc":
		it.Desc = value
	case "cities":
		it.Cities = ParseCities(value)
		delete(it.Extra, "cities")
	default:
		encoded, _ := json.Marshal(value)
		if it.Extra == nil {
			it.Extra = make(store.Extra)
		}
		it.Extra[field] = encoded
	}
}

// ParseCities reads an admin-entered city list: "all", "*" or "все" select every
// city, anything else is split on commas.
func ParseCities(input string) []string {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "all", AllCities, "все":
		return []string{AllCities}
	}

	var out []string
	for _, part := range strings.Split(input, ",") {
		if city := strings.TrimSpace(part); city != "" {
			out = append(out, city)
		}
	}
	return out
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

func text(value json.RawMessage) (string, bool) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return "", true
	}

	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s, true
	}

	// Prices typed as numbers are read as text and written back as strings.
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// cities accepts a list of scalars. Non-list filters are reported as unreadable and
// leave Cities empty, which matches every viewer.
func cities(value json.RawMessage) ([]string, bool) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || bytes.Equal(value, []byte("null")) {
		return nil, true
	}

	var list []json.RawMessage
	if err := json.Unmarshal(value, &list); err != nil {
		return nil, false
	}

	out := make([]string, 0, len(list))
	for _, entry := range list {
		s, ok := text(entry)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
