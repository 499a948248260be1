package steps

import (
	"context"
	"strconv"
	"strings"

	"github.com/openfroyo/migrator/pkg/config"
	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/target"
	"github.com/openfroyo/migrator/pkg/wizard"
)

// Form fields of the configuration step.
const (
	FieldDriver   = "config_db_driver"
	FieldServer   = "config_db_server"
	FieldPort     = "config_db_port"
	FieldUser     = "config_db_user"
	FieldPassword = "config_db_password"
	FieldName     = "config_db_name"
	FieldPrefix   = "config_db_prefix"
)

// DefaultDriver is used when the form does not name a database type.
const DefaultDriver = "mysql"

// ConfigurationStep collects the database settings, creates the database if needed and
// writes the configuration file.
type ConfigurationStep struct {
	session   *Session
	validator *config.Validator
}

// NewConfigurationStep creates the configuration step.
func NewConfigurationStep(session *Session) *ConfigurationStep {
	return &ConfigurationStep{
		session:   session,
		validator: config.NewValidator(),
	}
}

func (s *ConfigurationStep) Key() string { return "config" }

// VarNames carries the posted settings to later requests so that going back to this
// step shows what the operator entered.
func (s *ConfigurationStep) VarNames() []string {
	return []string{FieldDriver, FieldServer, FieldPort, FieldUser, FieldPassword, FieldName, FieldPrefix}
}

func (s *ConfigurationStep) Submittable() bool { return true }

// Submit validates the posted settings, checks that the server accepts them, creates
// the database and writes the configuration file. Each stage runs only if the previous
// one succeeded.
func (s *ConfigurationStep) Submit(ctx context.Context, f *wizard.Frame) {
	sub := readSubmission(f)

	if errs := s.validator.Submission(sub); len(errs) > 0 {
		for _, err := range errs {
			f.AddError(err)
		}
		return
	}

	env := sub.Environment()
	params := env.Params()

	server, err := s.session.env.Connector.ConnectServer(ctx, params)
	if err != nil {
		f.AddError(err)
		return
	}
	defer server.Close()

	if err := server.CreateDatabase(ctx, params.Database); err != nil {
		f.AddError(fault.EnvironmentUnavailable("db.create.error", "failed to create database", err).WithArgs(err.Error()))
		return
	}

	if err := s.session.env.Store.Write(config.NewFile(env)); err != nil {
		f.AddError(err)
		return
	}

	// the connection of this request was made with the old settings
	s.session.Reset()

	s.session.logger.Info().
		Str("adapter", env.Adapter).
		Str("database", env.Name).
		Str("prefix", env.TablePrefix).
		Str("path", s.session.env.Store.Path()).
		Msg("Configuration written")
}

// Satisfied reports whether the configuration file exists and its target is reachable.
func (s *ConfigurationStep) Satisfied(ctx context.Context, _ *wizard.Frame) bool {
	_, err := s.session.DB(ctx)
	return err == nil
}

// Inspect completes the step without a submission when the configuration file exists
// and its target is reachable, so a configured target resumes past this step.
func (s *ConfigurationStep) Inspect(ctx context.Context, _ *wizard.Frame) bool {
	if !s.session.env.Store.Exists() {
		return false
	}
	_, err := s.session.DB(ctx)
	return err == nil
}

func (s *ConfigurationStep) AfterComplete(context.Context, *wizard.Frame) {}

// ViewData restores the posted values, falling back to the configuration file and then
// to defaults. The password is only restored from the form.
func (s *ConfigurationStep) ViewData(_ context.Context, f *wizard.Frame) map[string]interface{} {
	env, _, err := s.session.env.Store.LoadDefault()
	if err != nil {
		env = config.Environment{}
	}

	port := ""
	if env.Port > 0 {
		port = strconv.Itoa(env.Port)
	}

	return map[string]interface{}{
		"ConfigPath": s.session.env.Store.Path(),
		"TextArgs":   []interface{}{s.session.env.Store.Path()},
		"Drivers":    target.Dialects(),
		"Driver":     restore(f, FieldDriver, env.Adapter, DefaultDriver),
		"Server":     restore(f, FieldServer, env.Host, config.DefaultHost),
		"Port":       restore(f, FieldPort, port, ""),
		"User":       restore(f, FieldUser, env.User, ""),
		"Password":   restore(f, FieldPassword, "", ""),
		"Name":       restore(f, FieldName, env.Name, ""),
		"Prefix":     restore(f, FieldPrefix, env.TablePrefix, config.DefaultPrefix),
	}
}

// readSubmission reads the posted settings. An unparsable or negative port is mapped
// to -1 so that validation rejects it; an empty port means the default one.
func readSubmission(f *wizard.Frame) config.Submission {
	field := func(name string) string {
		return strings.TrimSpace(f.Field(name))
	}

	port := 0
	if raw := field(FieldPort); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			n = -1
		}
		port = n
	}

	driver := field(FieldDriver)
	if driver == "" {
		driver = DefaultDriver
	}

	return config.Submission{
		Driver:   driver,
		Server:   field(FieldServer),
		Port:     port,
		User:     field(FieldUser),
		Password: field(FieldPassword),
		Name:     field(FieldName),
		Prefix:   field(FieldPrefix),
	}
}

func restore(f *wizard.Frame, field, configured, def string) string {
	if f.HasField(field) {
		return f.Field(field)
	}
	if configured != "" {
		return configured
	}
	return def
}
