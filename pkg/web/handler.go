// Package web serves the wizard over HTTP.
//
// Every request runs the wizard from scratch: the posted form is handed to a fresh
// runner, and the step it stops at is rendered as one HTML document carrying the wizard
// variables as hidden fields. A panic inside a step is rendered as a diagnostic page.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/i18n"
	"github.com/openfroyo/migrator/pkg/steps"
	"github.com/openfroyo/migrator/pkg/telemetry"
	"github.com/openfroyo/migrator/pkg/wizard"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// RequestIDHeader carries the request id in responses.
const RequestIDHeader = "X-Request-Id"

// Options configures the handler.
type Options struct {
	// Env holds the collaborators of the wizard steps.
	Env *steps.Env

	// Metrics records requests and step states. Nil disables metrics.
	Metrics *telemetry.Metrics

	// BasePath is the path the wizard is mounted at, used by the start over link.
	BasePath string

	// SystemName is shown in the page header.
	SystemName string
}

// Handler serves the wizard.
type Handler struct {
	opts    Options
	catalog *i18n.Catalog
	logger  zerolog.Logger
	tracer  trace.Tracer
	mux     *http.ServeMux
}

// NewHandler creates the wizard handler with its routes.
func NewHandler(opts Options, logger zerolog.Logger) *Handler {
	if opts.BasePath == "" {
		opts.BasePath = "/"
	}
	if opts.SystemName == "" {
		opts.SystemName = "Migrator"
	}

	catalog := opts.Env.Catalog
	if catalog == nil {
		catalog = i18n.NewCatalog()
		opts.Env.Catalog = catalog
	}

	h := &Handler{
		opts:    opts,
		catalog: catalog,
		logger:  logger.With().Str("component", "web").Logger(),
		tracer:  otel.Tracer("github.com/openfroyo/migrator/pkg/web"),
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /healthz", h.healthz)
	if opts.Metrics != nil {
		h.mux.Handle("GET /metrics", opts.Metrics.Handler())
	}
	h.mux.HandleFunc("GET /{$}", h.wizard)
	h.mux.HandleFunc("POST /{$}", h.wizard)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (h *Handler) wizard(w http.ResponseWriter, r *http.Request) {
	timer := telemetry.NewTimer()
	requestID := uuid.New().String()

	ctx, span := h.tracer.Start(r.Context(), "wizard.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			telemetry.AttrRequestID.String(requestID),
			attribute.String("http.method", r.Method),
		),
	)
	defer span.End()

	logCtx := h.logger.With().Str("request_id", requestID)
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		logCtx = logCtx.Str("trace_id", traceID)
	}
	logger := logCtx.Logger()

	w.Header().Set(RequestIDHeader, requestID)

	if err := r.ParseForm(); err != nil {
		telemetry.RecordError(span, err)
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	session := steps.NewSession(h.opts.Env, r.Header.Get("Accept-Language"))
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close session")
		}
	}()

	runnerOpts := []wizard.Option{wizard.WithLogger(logger)}
	if h.opts.Metrics != nil {
		runnerOpts = append(runnerOpts, wizard.WithObserver(h.opts.Metrics))
	}
	result := wizard.NewRunner(session.Steps(), runnerOpts...).Run(ctx, r.Form)

	p := h.buildPage(ctx, result)

	status := http.StatusOK
	stepKey := "finished"
	switch {
	case result.Err != nil:
		status = http.StatusInternalServerError
		stepKey = "exception"
		telemetry.RecordError(span, result.Err)
		logger.Error().Err(result.Err).Msg("Wizard failed")
	case result.Current != nil:
		stepKey = result.Current.Key()
		span.SetAttributes(
			telemetry.AttrStep.String(stepKey),
			telemetry.AttrStepState.String(result.States[result.Frame.Number-1].String()),
		)
		span.SetStatus(codes.Ok, "")
	}

	if h.opts.Metrics != nil {
		h.recordErrors(result)
		defer func() {
			h.opts.Metrics.RecordRequest(r.Method, stepKey, timer.Duration())
		}()
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "page", p); err != nil {
		telemetry.RecordError(span, err)
		logger.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)

	logger.Debug().
		Str("method", r.Method).
		Str("step", stepKey).
		Int("status", status).
		Dur("duration", timer.Duration()).
		Msg("Request handled")
}

func (h *Handler) recordErrors(result *wizard.Result) {
	if result.Err != nil {
		h.recordError(result.Err)
	}
	if result.Frame == nil {
		return
	}
	for _, err := range result.Frame.Errors() {
		h.recordError(err)
	}
}

func (h *Handler) recordError(err error) {
	code := ""
	var fe *fault.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	h.opts.Metrics.RecordError(string(fault.ClassOf(err)), code)
}

// hiddenField is a wizard variable echoed into the form.
type hiddenField struct {
	Name  string
	Value string
}

// page is the view model of one rendered document.
type page struct {
	tr *i18n.Translator

	Lang        string
	Title       string
	StepTitle   string
	SystemName  string
	Number      int
	Total       int
	StepKey     string
	Text        string
	Errors      []string
	Data        map[string]interface{}
	Hidden      []hiddenField
	Submittable bool
	Confirmed   bool
	FormKey     string
	ResetURL    string
	Exception   string
}

// T translates a label for the page's language.
func (p *page) T(key string, args ...interface{}) string {
	return p.tr.T(key, args...)
}

func (h *Handler) buildPage(ctx context.Context, result *wizard.Result) *page {
	tr := h.catalog.Translator(result.Request.Locale)

	p := &page{
		tr:         tr,
		Lang:       tr.Locale(),
		SystemName: h.opts.SystemName,
		Total:      result.Total,
		ResetURL:   h.opts.BasePath,
	}
	if p.Lang == "" {
		p.Lang = "en"
	}

	if result.Err != nil {
		p.StepTitle = tr.T("step.exception")
		p.Title = p.StepTitle
		p.Exception = describe(result.Err)
		return p
	}

	if result.Current == nil {
		return p
	}

	step := result.Current
	frame := result.Frame

	p.Number = frame.Number
	p.StepKey = step.Key()
	p.StepTitle = tr.T(step.Key() + ".title")
	p.Title = fmt.Sprintf("[%d/%d]: %s", p.Number, p.Total, p.StepTitle)
	p.Submittable = step.Submittable()
	p.FormKey = frame.FormKey()
	p.Confirmed = frame.HasField(frame.FormKey()) && frame.HasField(steps.FieldConfirm)

	if viewer, ok := step.(wizard.Viewer); ok {
		p.Data = viewer.ViewData(ctx, frame)
	}
	if p.Data == nil {
		p.Data = map[string]interface{}{}
	}

	if key := step.Key() + ".text"; tr.Has(key) {
		args, _ := p.Data["TextArgs"].([]interface{})
		p.Text = tr.T(key, args...)
	}

	for _, err := range frame.Errors() {
		p.Errors = append(p.Errors, tr.Error(step.Key(), err))
	}

	for _, name := range result.Vars.Names() {
		p.Hidden = append(p.Hidden, hiddenField{Name: name, Value: result.Vars.Value(name)})
	}

	return p
}

// describe renders an error with its classification details for the diagnostic page.
func describe(err error) string {
	var b strings.Builder
	b.WriteString(err.Error())

	var fe *fault.Error
	if errors.As(err, &fe) {
		if step, ok := fe.Details["step"]; ok {
			fmt.Fprintf(&b, "\n\nstep: %v", step)
		}
		if stack, ok := fe.Details["stack"]; ok {
			fmt.Fprintf(&b, "\n\n%v", stack)
		}
	}

	return b.String()
}
