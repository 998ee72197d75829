// Package i18n resolves language tags against the locales shipped in the
// embedded catalogs.
package i18n

import (
	"strings"

	"github.com/louisbranch/campaign-viewer/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	supportedTags = buildSupportedTags()
	matcher       = language.NewMatcher(supportedTags)
)

func buildSupportedTags() []language.Tag {
	base := language.MustParse(catalog.BaseLocale)
	tags := []language.Tag{base}
	for _, locale := range catalog.Default().Locales() {
		tag, err := language.Parse(locale)
		if err != nil || tag == base {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

// SupportedTags returns the supported language tags, base locale first.
func SupportedTags() []language.Tag {
	out := make([]language.Tag, len(supportedTags))
	copy(out, supportedTags)
	return out
}

// DefaultTag returns the base locale tag.
func DefaultTag() language.Tag {
	return supportedTags[0]
}

// MatchTags picks the best supported tag for the preferred tags.
func MatchTags(preferred []language.Tag) language.Tag {
	if len(preferred) == 0 {
		return DefaultTag()
	}
	_, index, confidence := matcher.Match(preferred...)
	if confidence == language.No {
		return DefaultTag()
	}
	return supportedTags[index]
}

// ParseTag parses value and reports whether it maps onto a supported tag.
func ParseTag(value string) (language.Tag, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return language.Tag{}, false
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return language.Tag{}, false
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.Tag{}, false
	}
	return supportedTags[index], true
}

// ResolveAcceptLanguage matches an Accept-Language header value.
func ResolveAcceptLanguage(header string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(header))
	if err != nil {
		return DefaultTag()
	}
	return MatchTags(tags)
}

// Printer returns a message printer for the locale string, falling back to
// the base locale when the locale is unsupported.
func Printer(locale string) *message.Printer {
	tag, ok := ParseTag(locale)
	if !ok {
		tag = DefaultTag()
	}
	return message.NewPrinter(tag)
}
