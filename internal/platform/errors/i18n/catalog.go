// Package i18n renders localized, player-facing error messages.
//
// Messages live in the "errors" namespace of the embedded locale catalogs;
// keys are the error codes from the errors package. A locale missing a code
// borrows the base locale's message.
package i18n

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	i18ncatalog "github.com/louisbranch/campaign-viewer/internal/platform/i18n/catalog"
)

// Namespace is the catalog namespace that holds error messages.
const Namespace = "errors"

// Code is a machine-readable error code. It is a plain string so the errors
// package can import this one.
type Code = string

// Catalog maps error codes to message templates for one locale.
type Catalog struct {
	locale    string
	messages  map[Code]string
	fallback  *Catalog
	templates sync.Map // Code -> *template.Template
}

var (
	catalogsMu sync.Mutex
	catalogs   = map[string]*Catalog{}
)

// GetCatalog returns the catalog for locale. Unknown or empty locales get
// the base locale catalog.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" || !i18ncatalog.Default().HasLocale(requested) {
		if c, ok := lookupCatalog(requested); ok {
			return c
		}
		requested = i18ncatalog.BaseLocale
	}

	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	return loadLocked(requested)
}

func loadLocked(locale string) *Catalog {
	if c, ok := catalogs[locale]; ok {
		return c
	}
	c := NewCatalog(locale, i18ncatalog.Default().NamespaceMessages(locale, Namespace))
	if locale != i18ncatalog.BaseLocale {
		c.fallback = loadLocked(i18ncatalog.BaseLocale)
	}
	catalogs[locale] = c
	return c
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template for code with metadata. Unknown codes
// render as the code itself; broken templates render raw.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	owner := c
	for owner != nil {
		if _, ok := owner.messages[code]; ok {
			break
		}
		owner = owner.fallback
	}
	if owner == nil {
		return code
	}
	return owner.render(code, metadata)
}

func (c *Catalog) render(code Code, metadata map[string]string) string {
	raw := c.messages[code]
	if metadata == nil {
		metadata = map[string]string{}
	}
	var tmpl *template.Template
	if cached, ok := c.templates.Load(code); ok {
		tmpl = cached.(*template.Template)
	} else {
		parsed, err := template.New(code).Option("missingkey=zero").Parse(raw)
		if err != nil {
			return raw
		}
		c.templates.Store(code, parsed)
		tmpl = parsed
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return raw
	}
	return buf.String()
}

// RegisterCatalog installs cat for locale, replacing any catalog built from
// the embedded bundle. Intended for tests and init code.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[locale] = cat
}

// NewCatalog creates a catalog with the given locale and messages and no
// fallback.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{locale: locale, messages: cloned}
}

func lookupCatalog(locale string) (*Catalog, bool) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	cat, ok := catalogs[locale]
	return cat, ok
}
