package steps

import (
	"context"
	"strings"

	"github.com/openfroyo/migrator/pkg/wizard"
)

// CompleteStep is the final page. It never completes, so the wizard stays on it.
type CompleteStep struct {
	session *Session
}

// NewCompleteStep creates the final step.
func NewCompleteStep(session *Session) *CompleteStep {
	return &CompleteStep{session: session}
}

func (s *CompleteStep) Key() string { return "complete" }

func (s *CompleteStep) VarNames() []string { return nil }

func (s *CompleteStep) Submittable() bool { return false }

func (s *CompleteStep) Submit(context.Context, *wizard.Frame) {}

func (s *CompleteStep) Satisfied(context.Context, *wizard.Frame) bool { return false }

func (s *CompleteStep) AfterComplete(context.Context, *wizard.Frame) {}

// ViewData links to the site and its administration.
func (s *CompleteStep) ViewData(context.Context, *wizard.Frame) map[string]interface{} {
	base := strings.TrimSuffix(s.session.env.BaseURL, "/")
	return map[string]interface{}{
		"WebURL":   base + "/",
		"AdminURL": base + "/admin/",
	}
}
