package steps

import (
	"context"
	"slices"

	"github.com/openfroyo/migrator/pkg/i18n"
	"github.com/openfroyo/migrator/pkg/wizard"
)

// VarLanguage is the wizard variable holding the chosen language.
const VarLanguage = "language"

// LanguageStep lets the operator choose the wizard language.
type LanguageStep struct {
	session *Session
}

// NewLanguageStep creates the language step.
func NewLanguageStep(session *Session) *LanguageStep {
	return &LanguageStep{session: session}
}

func (s *LanguageStep) Key() string { return "language" }

func (s *LanguageStep) VarNames() []string { return []string{VarLanguage} }

func (s *LanguageStep) Submittable() bool { return true }

// Submit has nothing to process; the language arrives as a wizard variable.
func (s *LanguageStep) Submit(context.Context, *wizard.Frame) {}

// Satisfied reports whether a supported language was chosen.
func (s *LanguageStep) Satisfied(_ context.Context, f *wizard.Frame) bool {
	lang, ok := f.Vars.Get(VarLanguage)
	return ok && slices.Contains(i18n.Supported, lang)
}

// AfterComplete switches the request to the chosen language.
func (s *LanguageStep) AfterComplete(_ context.Context, f *wizard.Frame) {
	f.Request.Locale = f.Vars.Value(VarLanguage)
}

// ViewData lists the languages and preselects the one the browser prefers.
func (s *LanguageStep) ViewData(_ context.Context, f *wizard.Frame) map[string]interface{} {
	selected := f.Vars.Value(VarLanguage)
	if !slices.Contains(i18n.Supported, selected) {
		selected = i18n.Supported[0]
		if s.session.env.Catalog != nil && s.session.acceptLanguage != "" {
			selected = s.session.env.Catalog.Match(s.session.acceptLanguage)
		}
	}

	return map[string]interface{}{
		"Languages": languageOptions,
		"Selected":  selected,
	}
}

// LanguageOption is one entry of the language list.
type LanguageOption struct {
	Code string
	Name string
}

var languageOptions = []LanguageOption{
	{Code: "cs", Name: "Čeština"},
	{Code: "en", Name: "English"},
}
