package catalog

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesCity(t *testing.T) {
	everywhere := Item{Name: "a", Cities: []string{"*"}}
	for _, city := range []string{"Berlin", "", "   ", " ROTTERDAM "} {
		assert.True(t, everywhere.MatchesCity(city), city)
	}

	rotterdam := Item{Name: "b", Cities: []string{"Rotterdam"}}
	assert.True(t, rotterdam.MatchesCity("rotterdam"))
	assert.True(t, rotterdam.MatchesCity(" ROTTERDAM "))
	assert.False(t, rotterdam.MatchesCity("Amsterdam"))

	assert.True(t, Item{Name: "c"}.MatchesCity("Paris"))
}

func TestUnmarshal_MalformedFilterMatchesEveryone(t *testing.T) {
	var items []Item
	raw := `[{"name":"obj","cities":{"city":"Berlin"}},{"name":"str","cities":"Berlin"},{"name":"ok","cities":["Berlin"]}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	require.Len(t, items, 3)

	visible := ListFor(items, "Paris")
	require.Len(t, visible, 2)
	assert.Equal(t, "obj", visible[0].Item.Name)
	assert.Equal(t, "str", visible[1].Item.Name)
}

func TestItem_RoundTripKeepsUnknownAndMalformed(t *testing.T) {
	raw := `{"name":"Anna","price":5000,"cities":{"weird":true},"photo":"abc"}`

	var it Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))
	assert.Equal(t, "5000", it.Price)
	assert.Empty(t, it.Cities)

	out, err := json.Marshal(it)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "Anna", back["name"])
	assert.Equal(t, "abc", back["photo"])
	assert.Equal(t, map[string]any{"weird": true}, back["cities"])
}

func TestListFor_KeepsCatalogIndices(t *testing.T) {
	items := []Item{
		{Name: "berlin", Cities: []string{"Berlin"}},
		{Name: "paris", Cities: []string{"Paris"}},
		{Name: "all", Cities: []string{"*"}},
	}

	visible := ListFor(items, "berlin")
	require.Len(t, visible, 2)
	assert.Equal(t, 0, visible[0].Index)
	assert.Equal(t, 2, visible[1].Index)
}

func TestDelete_ShiftsLaterItems(t *testing.T) {
	items := make([]Item, 5)
	for i := range items {
		items[i] = Item{Name: fmt.Sprintf("item-%d", i)}
	}

	items, err := Delete(items, 2)
	require.NoError(t, err)
	require.Len(t, items, 4)

	shifted, err := Get(items, 2)
	require.NoError(t, err)
	assert.Equal(t, "item-3", shifted.Name)

	_, err = Get(items, 4)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Delete(items, 7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = Get(items, -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseCities(t *testing.T) {
	assert.Equal(t, []string{"*"}, ParseCities("all"))
	assert.Equal(t, []string{"*"}, ParseCities(" Все "))
	assert.Equal(t, []string{"*"}, ParseCities("*"))
	assert.Equal(t, []string{"Berlin", "Munich"}, ParseCities("Berlin, Munich,, "))
	assert.Empty(t, ParseCities(" , "))
}

func TestAdminAddedItemVisibility(t *testing.T) {
	items := []Item{
		{Name: "global", Cities: []string{"*"}},
		{Name: "amsterdam", Cities: []string{"Amsterdam"}},
	}

	added := Item{}
	added.Set("name", "new")
	added.Set("cities", "Berlin, Munich")
	items = append(items, added)

	names := func(list []Indexed) []string {
		out := make([]string, 0, len(list))
		for _, entry := range list {
			out = append(out, entry.Item.Name)
		}
		return out
	}

	assert.Equal(t, []string{"global", "new"}, names(ListFor(items, "Berlin")))
	assert.Equal(t, []string{"global"}, names(ListFor(items, "Paris")))
}

func TestSearch(t *testing.T) {
	items := make([]Item, 0, 60)
	for i := 0; i < 60; i++ {
		items = append(items, Item{Name: fmt.Sprintf("Model %d", i)})
	}
	items = append(items, Item{Name: "Zoe", Desc: "Blonde, Rotterdam"})

	assert.Len(t, Search(items, ""), MaxSearchResults)

	found := Search(items, "rotterdam")
	require.Len(t, found, 1)
	assert.Equal(t, 60, found[0].Index)
}

func TestLinkURL(t *testing.T) {
	assert.Equal(t, "https://t.me/anna", Item{Link: "t.me/anna"}.LinkURL())
	assert.Equal(t, "http://x.y", Item{Link: "http://x.y"}.LinkURL())
	assert.Empty(t, Item{Link: "@anna"}.LinkURL())
}
