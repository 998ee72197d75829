// Package main reports how complete each locale catalog is against the base
// locale.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	i18ncatalog "github.com/louisbranch/campaign-viewer/internal/platform/i18n/catalog"
)

type report struct {
	BaseLocale string         `json:"base_locale"`
	Locales    []localeStatus `json:"locales"`
}

type localeStatus struct {
	Locale      string            `json:"locale"`
	BaseKeys    int               `json:"base_keys"`
	Translated  int               `json:"translated"`
	Completion  float64           `json:"completion"`
	Namespaces  []namespaceStatus `json:"namespaces"`
	MissingKeys []string          `json:"missing_keys"`
	ExtraKeys   []string          `json:"extra_keys"`
}

type namespaceStatus struct {
	Namespace  string  `json:"namespace"`
	BaseKeys   int     `json:"base_keys"`
	Missing    int     `json:"missing"`
	Completion float64 `json:"completion"`
}

func main() {
	var (
		baseLocale string
		format     string
		check      bool
	)
	flag.StringVar(&baseLocale, "base-locale", i18ncatalog.BaseLocale, "locale used as the source of truth")
	flag.StringVar(&format, "format", "markdown", "output format: markdown or json")
	flag.BoolVar(&check, "check", false, "exit non-zero when any locale is missing keys")
	flag.Parse()

	bundle, err := i18ncatalog.LoadEmbedded()
	if err != nil {
		fatalf("load i18n catalogs: %v", err)
	}
	if !bundle.HasLocale(baseLocale) {
		fatalf("base locale %q is missing from catalogs", baseLocale)
	}

	rep := buildReport(bundle, baseLocale)
	switch format {
	case "json":
		err = writeJSON(os.Stdout, rep)
	case "markdown":
		err = writeMarkdown(os.Stdout, rep)
	default:
		err = fmt.Errorf("format %q is not supported", format)
	}
	if err != nil {
		fatalf("%v", err)
	}
	if check && !rep.complete() {
		os.Exit(1)
	}
}

func buildReport(bundle *i18ncatalog.Bundle, baseLocale string) report {
	baseMessages := bundle.LocaleMessages(baseLocale)
	baseNamespaces := bundle.Namespaces(baseLocale)

	var statuses []localeStatus
	for _, locale := range bundle.Locales() {
		if locale == baseLocale {
			continue
		}
		localeMessages := bundle.LocaleMessages(locale)
		missing := diffKeys(baseMessages, localeMessages)
		translated := len(baseMessages) - len(missing)

		namespaces := make([]namespaceStatus, 0, len(baseNamespaces))
		for _, namespace := range baseNamespaces {
			baseNS := bundle.NamespaceMessages(baseLocale, namespace)
			nsMissing := diffKeys(baseNS, bundle.NamespaceMessages(locale, namespace))
			namespaces = append(namespaces, namespaceStatus{
				Namespace:  namespace,
				BaseKeys:   len(baseNS),
				Missing:    len(nsMissing),
				Completion: percent(len(baseNS)-len(nsMissing), len(baseNS)),
			})
		}

		statuses = append(statuses, localeStatus{
			Locale:      locale,
			BaseKeys:    len(baseMessages),
			Translated:  translated,
			Completion:  percent(translated, len(baseMessages)),
			Namespaces:  namespaces,
			MissingKeys: missing,
			ExtraKeys:   diffKeys(localeMessages, baseMessages),
		})
	}
	return report{BaseLocale: baseLocale, Locales: statuses}
}

func (r report) complete() bool {
	for _, locale := range r.Locales {
		if len(locale.MissingKeys) > 0 {
			return false
		}
	}
	return true
}

func writeJSON(w io.Writer, rep report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func writeMarkdown(w io.Writer, rep report) error {
	var b strings.Builder
	b.WriteString("# I18n Status\n\n")
	fmt.Fprintf(&b, "Base locale: `%s`.\n\n", rep.BaseLocale)
	b.WriteString("| Locale | Base Keys | Translated | Completion |\n")
	b.WriteString("| --- | ---: | ---: | ---: |\n")
	for _, locale := range rep.Locales {
		fmt.Fprintf(&b, "| `%s` | %d | %d | %.1f%% |\n", locale.Locale, locale.BaseKeys, locale.Translated, locale.Completion)
	}

	for _, locale := range rep.Locales {
		fmt.Fprintf(&b, "\n## `%s`\n\n", locale.Locale)
		for _, ns := range locale.Namespaces {
			fmt.Fprintf(&b, "- `%s`: %d of %d missing (%.1f%%)\n", ns.Namespace, ns.Missing, ns.BaseKeys, ns.Completion)
		}
		writeKeyList(&b, "Missing Keys", locale.MissingKeys)
		writeKeyList(&b, "Extra Keys", locale.ExtraKeys)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeKeyList(b *strings.Builder, title string, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, key := range keys {
		fmt.Fprintf(b, "- `%s`\n", key)
	}
}

// diffKeys returns the keys of base absent from target, sorted.
func diffKeys(base map[string]string, target map[string]string) []string {
	out := make([]string, 0)
	for key := range base {
		if _, ok := target[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func percent(numerator int, denominator int) float64 {
	if denominator <= 0 {
		return 100
	}
	value := float64(numerator) * 100 / float64(denominator)
	return math.Round(value*10) / 10
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
