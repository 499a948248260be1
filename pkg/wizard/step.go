package wizard

import (
	"context"
	"fmt"
	"net/url"
)

// Form field names shared by the runner and the presentation layer.
const (
	FieldStepNumber = "step_number"
	FieldStepSubmit = "step_submit"
)

// Step is one stage of the wizard.
//
// A step is constructed for a single request. Submit is only called when the step's own
// form was posted. Satisfied and Inspect are called on every request that reaches the
// step and must not change the target. AfterComplete runs each time the runner advances
// past the step, including when the step completed by inspection alone, so it must be
// idempotent.
type Step interface {
	// Key identifies the step and prefixes its labels.
	Key() string

	// VarNames lists the form variables the step reads.
	VarNames() []string

	// Submittable reports whether the step has a form to submit.
	Submittable() bool

	// Submit processes the step's form. Failures are recorded with Frame.AddError.
	Submit(ctx context.Context, f *Frame)

	// Satisfied is the step's own completion condition.
	Satisfied(ctx context.Context, f *Frame) bool

	// AfterComplete runs when the runner moves past the completed step.
	AfterComplete(ctx context.Context, f *Frame)
}

// Inspector is implemented by steps that can be complete purely by inspecting the target,
// without a submission in this request.
type Inspector interface {
	Inspect(ctx context.Context, f *Frame) bool
}

// Viewer is implemented by steps that supply data for rendering.
type Viewer interface {
	ViewData(ctx context.Context, f *Frame) map[string]interface{}
}

// Request is state shared by all frames of one request.
type Request struct {
	// Locale is the language chosen by the operator, empty until chosen.
	Locale string
}

// Frame is the per-request state of one step.
type Frame struct {
	// Number is the 1-based position of the step.
	Number int

	// SubmittedNumber is the position addressed by the posted form, 0 if none.
	SubmittedNumber int

	// Vars holds all posted wizard variables.
	Vars Variables

	// Form is the raw posted form.
	Form url.Values

	// Request is shared by all frames of the request.
	Request *Request

	submitted bool
	errors    []error
}

// AddError records a failure for the step.
func (f *Frame) AddError(err error) {
	f.errors = append(f.errors, err)
}

// Errors returns the recorded failures.
func (f *Frame) Errors() []error {
	return f.errors
}

// HasErrors reports whether any failure was recorded.
func (f *Frame) HasErrors() bool {
	return len(f.errors) > 0
}

// Submitted reports whether the step's own form was processed in this request.
func (f *Frame) Submitted() bool {
	return f.submitted
}

// Passed reports whether the operator has already moved past the step.
func (f *Frame) Passed() bool {
	return f.SubmittedNumber > f.Number
}

// FormKey returns the name of the field marking the step's own form.
func (f *Frame) FormKey() string {
	return fmt.Sprintf("%s_%d", FieldStepSubmit, f.Number)
}

// Field returns a raw form field.
func (f *Frame) Field(name string) string {
	return f.Form.Get(name)
}

// HasField reports whether a form field was posted.
func (f *Frame) HasField(name string) bool {
	_, ok := f.Form[name]
	return ok
}
