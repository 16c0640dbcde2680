package escort

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Proton-105/emerans-bots/internal/store"
)

// Main menu sections an admin can switch on and off.
const (
	SectionModels       = "models"
	SectionProfile      = "profile"
	SectionSupport      = "support"
	SectionInfo         = "info"
	SectionCity         = "city"
	SectionInlineSearch = "inline_search"
)

// AllSections lists the toggleable sections in the order the admin sees them.
var AllSections = []string{
	SectionModels,
	SectionProfile,
	SectionSupport,
	SectionInfo,
	SectionCity,
	SectionInlineSearch,
}

// Sections is the list of visible main menu sections. Older documents store it as a
// comma separated string.
type Sections []string

// UnmarshalJSON accepts a list or a comma separated string.
func (s *Sections) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := Sections{}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*s = out
		return nil
	}

	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	out := make(Sections, 0, len(list))
	for _, v := range list {
		if str, ok := v.(string); ok {
			out = append(out, str)
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out = append(out, string(encoded))
	}
	*s = out
	return nil
}

// Has reports whether section is visible.
func (s Sections) Has(section string) bool {
	for _, v := range s {
		if v == section {
			return true
		}
	}
	return false
}

// Settings are the admin-editable texts and layout of the catalog bot.
type Settings struct {
	Title           string `json:"title"`
	WelcomeText     string `json:"welcome_text"`
	MenuText        string `json:"menu_text"`
	SupportUsername string `json:"support_username"`
	ChannelLink     string `json:"channel_link"`
	CardNumber      string `json:"card_number"`

	BtnModels       string `json:"btn_models"`
	BtnProfile      string `json:"btn_profile"`
	BtnSupport      string `json:"btn_support"`
	BtnInfo         string `json:"btn_info"`
	BtnCity         string `json:"btn_city"`
	BtnAdmin        string `json:"btn_admin"`
	BtnBack         string `json:"btn_back"`
	BtnInlineSearch string `json:"btn_inline_search"`

	MenuSections Sections `json:"menu_sections"`

	Extra store.Extra `json:"-"`
}

// DefaultSettings returns a fresh copy of the defaults every loaded document is backfilled with.
func DefaultSettings() Settings {
	return Settings{
		Title:           "Emerans Club",
		WelcomeText:     "Привет! Для подбора моделей напишите ваш город.",
		MenuText:        "Главное меню:",
		SupportUsername: "@EmeransClubSupport_bot",
		ChannelLink:     "",
		CardNumber:      "",

		BtnModels:       "Модели",
		BtnProfile:      "Профиль",
		BtnSupport:      "Поддержка",
		BtnInfo:         "Информация",
		BtnCity:         "Сменить город",
		BtnAdmin:        "⚙️ Админка",
		BtnBack:         "⬅️ Назад",
		BtnInlineSearch: "Найти модель",

		MenuSections: Sections{SectionModels, SectionProfile, SectionSupport, SectionInfo, SectionCity},
	}
}

// MarshalJSON writes the named fields followed by the keys only older or newer builds know.
func (s Settings) MarshalJSON() ([]byte, error) {
	type plain Settings
	if s.MenuSections == nil {
		s.MenuSections = Sections{}
	}
	return store.MarshalWithExtra(plain(s), s.Extra)
}

// UnmarshalJSON decodes on top of the defaults, so keys missing from the file keep
// their default value.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	decoded := plain(DefaultSettings())
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	extra, err := store.SplitUnknown(data, decoded)
	if err != nil {
		return err
	}
	*s = Settings(decoded)
	s.Extra = extra
	return nil
}

// fields addresses the text settings by their document key.
func (s *Settings) fields() map[string]*string {
	return map[string]*string{
		"title":             &s.Title,
		"welcome_text":      &s.WelcomeText,
		"menu_text":         &s.MenuText,
		"support_username":  &s.SupportUsername,
		"channel_link":      &s.ChannelLink,
		"card_number":       &s.CardNumber,
		"btn_models":        &s.BtnModels,
		"btn_profile":       &s.BtnProfile,
		"btn_support":       &s.BtnSupport,
		"btn_info":          &s.BtnInfo,
		"btn_city":          &s.BtnCity,
		"btn_admin":         &s.BtnAdmin,
		"btn_back":          &s.BtnBack,
		"btn_inline_search": &s.BtnInlineSearch,
	}
}

// Get returns the text stored under key, including keys kept in Extra.
func (s *Settings) Get(key string) string {
	if field, ok := s.fields()[key]; ok {
		return *field
	}
	raw, ok := s.Extra[key]
	if !ok {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return string(raw)
	}
	return str
}

// Set stores value under key. Keys without a named field go to Extra.
func (s *Settings) Set(key, value string) {
	if field, ok := s.fields()[key]; ok {
		*field = value
		return
	}
	if key == "menu_sections" {
		var sections Sections
		encoded, _ := json.Marshal(value)
		if err := sections.UnmarshalJSON(encoded); err == nil {
			s.MenuSections = sections
		}
		return
	}

	encoded, _ := json.Marshal(value)
	if s.Extra == nil {
		s.Extra = make(store.Extra)
	}
	s.Extra[key] = encoded
}

// ToggleSection shows a hidden section or hides a visible one and reports whether it
// is visible afterwards.
func (s *Settings) ToggleSection(section string) bool {
	if s.MenuSections.Has(section) {
		kept := make(Sections, 0, len(s.MenuSections))
		for _, v := range s.MenuSections {
			if v != section {
				kept = append(kept, v)
			}
		}
		s.MenuSections = kept
		return false
	}
	s.MenuSections = append(s.MenuSections, section)
	return true
}

// Label returns the text under key, or fallback when it is empty.
func (s *Settings) Label(key, fallback string) string {
	if v := s.Get(key); v != "" {
		return v
	}
	return fallback
}

// Clone returns a copy that shares nothing with s.
func (s Settings) Clone() Settings {
	s.MenuSections = append(Sections(nil), s.MenuSections...)
	if s.Extra != nil {
		extra := make(store.Extra, len(s.Extra))
		for k, v := range s.Extra {
			extra[k] = v
		}
		s.Extra = extra
	}
	return s
}
