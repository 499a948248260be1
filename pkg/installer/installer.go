// Package installer guards destructive actions with a verify, install, re-verify contract.
//
// An Installer pairs a Gate, which inspects the target to decide whether the work is
// done, with an Action that performs it. Install refuses to run the action when the gate
// is already satisfied and always reports the state the target shows afterwards, so a
// crashed or repeated attempt is detected on the next request instead of being trusted
// from memory.
package installer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/migrator/pkg/fault"
)

// Action performs an installation. It runs at most once per Installer.
type Action func(ctx context.Context) error

// Observer receives installer outcomes, typically for metrics.
type Observer interface {
	GateChecked(unit string, satisfied bool, err error)
	InstallFinished(unit string, installed bool, err error, duration time.Duration)
}

// state is the memoized gate result.
type state int

const (
	stateUnknown state = iota
	stateInstalled
	stateNotInstalled
)

func (s state) String() string {
	switch s {
	case stateInstalled:
		return "installed"
	case stateNotInstalled:
		return "not_installed"
	default:
		return "unknown"
	}
}

// Installer runs an action at most once, guarded by a gate. It is meant to live for
// a single request.
type Installer struct {
	unit     string
	gate     Gate
	action   Action
	state    state
	logger   zerolog.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the installer logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *Installer) {
		i.logger = logger
	}
}

// WithObserver sets an observer notified of gate checks and installs.
func WithObserver(o Observer) Option {
	return func(i *Installer) {
		i.observer = o
	}
}

// New creates an installer for unit.
func New(unit string, gate Gate, action Action, opts ...Option) *Installer {
	i := &Installer{
		unit:   unit,
		gate:   gate,
		action: action,
		logger: zerolog.Nop(),
		tracer: otel.Tracer("github.com/openfroyo/migrator/pkg/installer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With().Str("unit", unit).Logger()
	return i
}

// Unit returns the name of the installable unit.
func (i *Installer) Unit() string {
	return i.unit
}

// IsInstalled reports whether the gate is satisfied. The first successful check is
// memoized until the next Install; failed checks are not.
func (i *Installer) IsInstalled(ctx context.Context) (bool, error) {
	if i.state != stateUnknown {
		return i.state == stateInstalled, nil
	}

	ok, err := i.gate.Satisfied(ctx)
	if i.observer != nil {
		i.observer.GateChecked(i.unit, ok, err)
	}
	if err != nil {
		return false, err
	}

	if ok {
		i.state = stateInstalled
	} else {
		i.state = stateNotInstalled
	}
	i.logger.Debug().Str("state", i.state.String()).Msg("Gate checked")

	return ok, nil
}

// Install runs the action unless the unit is already installed, then re-verifies the
// target. When the action fails, the returned state is what the target shows together
// with the action error.
func (i *Installer) Install(ctx context.Context) (bool, error) {
	installed, err := i.IsInstalled(ctx)
	if err != nil {
		return false, err
	}
	if installed {
		return true, fault.AlreadyInstalled(fault.CodeAlreadyInstalled, fmt.Sprintf("%s is already installed", i.unit)).
			WithDetail("unit", i.unit)
	}

	ctx, span := i.tracer.Start(ctx, "installer.install", trace.WithAttributes(
		attribute.String("installer.unit", i.unit),
	))
	defer span.End()

	start := time.Now()
	i.state = stateUnknown
	actionErr := i.action(ctx)
	i.state = stateUnknown

	installed, verifyErr := i.IsInstalled(ctx)
	duration := time.Since(start)

	err = actionErr
	if err == nil {
		err = verifyErr
	}

	if i.observer != nil {
		i.observer.InstallFinished(i.unit, installed, err, duration)
	}

	span.SetAttributes(attribute.Bool("installer.installed", installed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.logger.Error().Err(err).Bool("installed", installed).Dur("duration", duration).Msg("Install failed")
		return installed, err
	}
	span.SetStatus(codes.Ok, "")

	i.logger.Info().Bool("installed", installed).Dur("duration", duration).Msg("Install finished")
	return installed, nil
}
