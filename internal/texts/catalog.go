// Package texts provides the localized message catalog.
package texts

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when the configured locale has no catalog.
const DefaultLocale = "ru"

//go:embed locales/*.yaml
var localesFS embed.FS

// Catalog maps message keys to text. Lookups fall back to the default
// locale and finally to the key itself.
type Catalog struct {
	locale   string
	messages map[string]string
	fallback map[string]string
}

// Load reads the embedded catalog for locale.
func Load(locale string) (*Catalog, error) {
	return LoadFS(localesFS, locale)
}

// LoadFS reads locales/<locale>.yaml from fsys.
func LoadFS(fsys fs.FS, locale string) (*Catalog, error) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		locale = DefaultLocale
	}
	fallback, err := readLocale(fsys, DefaultLocale)
	if err != nil {
		return nil, err
	}
	if locale == DefaultLocale {
		return &Catalog{locale: locale, messages: fallback}, nil
	}
	messages, err := readLocale(fsys, locale)
	if err != nil {
		return nil, err
	}
	return &Catalog{locale: locale, messages: messages, fallback: fallback}, nil
}

func readLocale(fsys fs.FS, locale string) (map[string]string, error) {
	file := path.Join("locales", locale+".yaml")
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("texts: read %s: %w", file, err)
	}
	var messages map[string]string
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("texts: parse %s: %w", file, err)
	}
	return messages, nil
}

// Locale returns the catalog language.
func (c *Catalog) Locale() string {
	return c.locale
}

// T returns the text for key, formatted with args when given.
func (c *Catalog) T(key string, args ...any) string {
	format, ok := c.messages[key]
	if !ok {
		format, ok = c.fallback[key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Has reports whether key is defined in the catalog or its fallback.
func (c *Catalog) Has(key string) bool {
	if _, ok := c.messages[key]; ok {
		return true
	}
	_, ok := c.fallback[key]
	return ok
}
