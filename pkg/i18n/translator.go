// Package i18n provides the labels of the wizard in Czech and English.
//
// A Translator is chosen per request from the locale the operator picked and passed to
// the presentation layer explicitly; there is no process-wide current language. Before a
// language is chosen a bilingual catalog is used.
package i18n

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/openfroyo/migrator/pkg/fault"
)

// Supported lists the selectable locales; the first one is the default.
var Supported = []string{"cs", "en"}

var supportedTags = []language.Tag{language.Czech, language.English}

// localized is one language's labels compiled into an x/text catalog.
type localized struct {
	printer *message.Printer
	keys    map[string]struct{}
}

func newLocalized(tag language.Tag, labels map[string]string) *localized {
	b := catalog.NewBuilder(catalog.Fallback(tag))
	keys := make(map[string]struct{}, len(labels))
	for key, msg := range labels {
		// labels are static, SetString only fails on malformed messages
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
		keys[key] = struct{}{}
	}
	return &localized{
		printer: message.NewPrinter(tag, message.Catalog(b)),
		keys:    keys,
	}
}

func (l *localized) lookup(key string, args ...interface{}) (string, bool) {
	if _, ok := l.keys[key]; !ok {
		return "", false
	}
	return l.printer.Sprintf(key, args...), true
}

// Catalog holds the compiled labels of every language.
type Catalog struct {
	none    *localized
	locales map[string]*localized
	matcher language.Matcher
}

// NewCatalog compiles the built-in labels.
func NewCatalog() *Catalog {
	return &Catalog{
		none: newLocalized(language.Und, labelsNone),
		locales: map[string]*localized{
			"cs": newLocalized(language.Czech, labelsCS),
			"en": newLocalized(language.English, labelsEN),
		},
		matcher: language.NewMatcher(supportedTags),
	}
}

// Translator returns the translator for locale. An unknown or empty locale yields the
// bilingual translator used before a language is chosen.
func (c *Catalog) Translator(locale string) *Translator {
	if l, ok := c.locales[locale]; ok {
		return &Translator{locale: locale, chain: []*localized{l}}
	}
	return &Translator{chain: []*localized{c.none, c.locales["en"]}}
}

// Match picks the supported locale that best fits an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) string {
	_, index := language.MatchStrings(c.matcher, acceptLanguage)
	if index < 0 || index >= len(Supported) {
		return Supported[0]
	}
	return Supported[index]
}

// Translator looks up labels in one language.
type Translator struct {
	locale string
	chain  []*localized
}

// Locale returns the translator's locale, empty before a language is chosen.
func (t *Translator) Locale() string {
	return t.locale
}

// Has reports whether key has a label.
func (t *Translator) Has(key string) bool {
	for _, l := range t.chain {
		if _, ok := l.keys[key]; ok {
			return true
		}
	}
	return false
}

// T returns the label for key formatted with args, or key itself when there is no label.
func (t *Translator) T(key string, args ...interface{}) string {
	for _, l := range t.chain {
		if s, ok := l.lookup(key, args...); ok {
			return s
		}
	}
	return key
}

// Error returns the label for an error recorded by the step with the given key. Labels
// are looked up as "<step>.error.<code>" and then "step.error.<code>"; errors without a
// label are shown as they are.
func (t *Translator) Error(stepKey string, err error) string {
	var fe *fault.Error
	if !errors.As(err, &fe) {
		return err.Error()
	}

	for _, key := range []string{stepKey + ".error." + fe.Code, "step.error." + fe.Code} {
		if t.Has(key) {
			return t.T(key, fe.Args...)
		}
	}
	return fe.Error()
}
