package catalog

import (
	"errors"
	"strings"
)

const (
	// PageSize is the number of listings per catalog page.
	PageSize = 8
	// MaxSearchResults caps inline search answers.
	MaxSearchResults = 50
)

// ErrNotFound is returned for an index that does not address a listing.
var ErrNotFound = errors.New("catalog item not found")

// Indexed pairs a listing with its current position in the catalog.
type Indexed struct {
	Index int
	Item  Item
}

// ListFor returns, in catalog order, the listings visible to a viewer in city.
func ListFor(items []Item, city string) []Indexed {
	out := make([]Indexed, 0, len(items))
	for i, it := range items {
		if it.MatchesCity(city) {
			out = append(out, Indexed{Index: i, Item: it})
		}
	}
	return out
}

// Get returns the listing at index.
func Get(items []Item, index int) (Item, error) {
	if index < 0 || index >= len(items) {
		return Item{}, ErrNotFound
	}
	return items[index], nil
}

// Delete removes the listing at index; every later listing moves down by one.
func Delete(items []Item, index int) ([]Item, error) {
	if index < 0 || index >= len(items) {
		return items, ErrNotFound
	}
	return append(items[:index], items[index+1:]...), nil
}

// Search matches query case-insensitively against names and descriptions.
// An empty query returns everything, up to MaxSearchResults.
func Search(items []Item, query string) []Indexed {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]Indexed, 0, min(len(items), MaxSearchResults))
	for i, it := range items {
		if len(out) == MaxSearchResults {
			break
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(it.Title()), q) &&
			!strings.Contains(strings.ToLower(it.Desc), q) {
			continue
		}
		out = append(out, Indexed{Index: i, Item: it})
	}
	return out
}
