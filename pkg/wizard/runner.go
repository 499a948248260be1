// Package wizard runs an ordered, fixed sequence of steps statelessly.
//
// Every request rebuilds the wizard position from the posted form: the declared variables
// are replayed into each step, the step addressed by step_number processes its own
// submission, and the first step that is not complete is the one to render. Nothing is
// kept between requests; steps decide completion by inspecting the target.
package wizard

import (
	"context"
	"fmt"
	"net/url"
	"runtime/debug"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/migrator/pkg/fault"
)

// Observer receives the state of every evaluated step.
type Observer interface {
	StepEvaluated(key string, state string)
}

// Result is the outcome of one request.
type Result struct {
	// Current is the step to render, nil when the wizard finished.
	Current Step

	// Frame is the frame of Current.
	Frame *Frame

	// States holds the state of every step by position.
	States []StepState

	// Vars holds all posted wizard variables.
	Vars Variables

	// Request is the shared request state after the run.
	Request *Request

	// Total is the number of steps.
	Total int

	// Err is set when a step panicked.
	Err error
}

// Finished reports whether every step is complete.
func (r *Result) Finished() bool {
	return r.Current == nil && r.Err == nil
}

// Runner runs the wizard steps.
type Runner struct {
	steps    []Step
	logger   zerolog.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithObserver sets an observer notified of step states.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// NewRunner creates a runner. Steps are numbered from 1 in the given order.
func NewRunner(steps []Step, opts ...Option) *Runner {
	r := &Runner{
		steps:  steps,
		logger: zerolog.Nop(),
		tracer: otel.Tracer("github.com/openfroyo/migrator/pkg/wizard"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Total returns the number of steps.
func (r *Runner) Total() int {
	return len(r.steps)
}

// Run processes one request.
func (r *Runner) Run(ctx context.Context, form url.Values) (result *Result) {
	submitted := SubmittedNumber(form)

	var names []string
	for _, step := range r.steps {
		names = append(names, step.VarNames()...)
	}

	req := &Request{}
	result = &Result{
		States:  make([]StepState, len(r.steps)),
		Vars:    collectVariables(form, names),
		Request: req,
		Total:   len(r.steps),
	}

	ctx, span := r.tracer.Start(ctx, "wizard.run", trace.WithAttributes(
		attribute.Int("wizard.submitted_step", submitted),
	))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			err := fault.Internal(fault.CodePanic, fmt.Sprintf("step panicked: %v", p), nil).
				WithDetail("stack", string(debug.Stack()))
			if result.Current != nil {
				err = err.WithDetail("step", result.Current.Key())
			}
			result.Err = err

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Message)
			r.logger.Error().Interface("panic", p).Msg("Step panicked")
		}
	}()

	for i, step := range r.steps {
		frame := &Frame{
			Number:          i + 1,
			SubmittedNumber: submitted,
			Vars:            result.Vars,
			Form:            form,
			Request:         req,
		}
		result.Current = step
		result.Frame = frame

		if step.Submittable() && frame.Number == submitted {
			step.Submit(ctx, frame)
			frame.submitted = true
		}

		state := r.evaluate(ctx, step, frame)
		result.States[i] = state
		if r.observer != nil {
			r.observer.StepEvaluated(step.Key(), state.String())
		}

		r.logger.Debug().
			Str("step", step.Key()).
			Int("number", frame.Number).
			Str("state", state.String()).
			Int("errors", len(frame.errors)).
			Msg("Step evaluated")

		if !state.Done() {
			for j := i + 1; j < len(r.steps); j++ {
				result.States[j] = Pending
			}
			span.SetAttributes(attribute.String("wizard.current_step", step.Key()))
			return result
		}

		step.AfterComplete(ctx, frame)
	}

	result.Current = nil
	result.Frame = nil
	span.SetAttributes(attribute.Bool("wizard.finished", true))

	return result
}

// evaluate derives the state of a step after its submission was handled.
func (r *Runner) evaluate(ctx context.Context, step Step, f *Frame) StepState {
	if f.HasErrors() {
		return Failed
	}

	done := false
	if inspector, ok := step.(Inspector); ok && inspector.Inspect(ctx, f) {
		done = true
	} else if (!step.Submittable() || f.submitted || f.Passed()) && step.Satisfied(ctx, f) {
		done = true
	}

	switch {
	case !done:
		return AwaitingSubmission
	case f.Passed() && !f.submitted:
		return Skipped
	default:
		return Complete
	}
}

// SubmittedNumber parses the addressed step position. Missing, malformed or negative
// values yield 0.
func SubmittedNumber(form url.Values) int {
	n, err := strconv.Atoi(form.Get(FieldStepNumber))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
