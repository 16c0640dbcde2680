// Package i18n holds the bots' user-facing texts. Catalogs are YAML files keyed by
// language, nested keys are addressed with dots ("escort.city_prompt").
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Translator resolves a key to text. Unknown keys come back unchanged.
type Translator interface {
	T(key string) string
	Lang() string
}

// Catalog maps language to flattened key to text.
type Catalog struct {
	texts       map[string]map[string]string
	defaultLang string
}

// Load reads the catalog compiled into the binary.
func Load(defaultLang string) (*Catalog, error) {
	return LoadFromFS(embedded, "locales", defaultLang)
}

// MustLoad is Load for the embedded catalog, which is known to parse.
func MustLoad(defaultLang string) *Catalog {
	c, err := Load(defaultLang)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFromFS merges every .yaml/.yml file in dir. Later files override earlier keys.
func LoadFromFS(fsys fs.FS, dir, defaultLang string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read %s: %w", dir, err)
	}

	c := &Catalog{texts: make(map[string]map[string]string), defaultLang: defaultLang}
	for _, entry := range entries {
		ext := strings.ToLower(path.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if err := c.parseFile(fsys, path.Join(dir, entry.Name())); err != nil {
			return nil, err
		}
	}

	if _, ok := c.texts[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing in %s", defaultLang, dir)
	}
	return c, nil
}

func (c *Catalog) parseFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("i18n: read %s: %w", name, err)
	}

	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("i18n: parse %s: %w", name, err)
	}

	for lang, tree := range raw {
		lang = strings.ToLower(strings.TrimSpace(lang))
		texts := c.texts[lang]
		if texts == nil {
			texts = make(map[string]string)
			c.texts[lang] = texts
		}
		if err := flatten("", tree, texts); err != nil {
			return fmt.Errorf("i18n: %s: %w", name, err)
		}
	}
	return nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) error {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			out[full] = v
		case map[string]any:
			if err := flatten(full, v, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("key %s: expected text or section, got %T", full, value)
		}
	}
	return nil
}

// Languages lists the loaded languages in order.
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.texts))
	for lang := range c.texts {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// Translator returns texts in lang, falling back to the default language per key.
func (c *Catalog) Translator(lang string) Translator {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := c.texts[lang]; !ok {
		lang = c.defaultLang
	}
	return translator{lang: lang, primary: c.texts[lang], fallback: c.texts[c.defaultLang]}
}

type translator struct {
	lang     string
	primary  map[string]string
	fallback map[string]string
}

func (t translator) Lang() string { return t.lang }

func (t translator) T(key string) string {
	if text, ok := t.primary[key]; ok {
		return text
	}
	if text, ok := t.fallback[key]; ok {
		return text
	}
	return key
}

// Format resolves key and substitutes {name} placeholders from name, value pairs.
func Format(t Translator, key string, pairs ...string) string {
	text := key
	if t != nil {
		text = t.T(key)
	}
	if len(pairs) < 2 {
		return text
	}

	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(text)
}
