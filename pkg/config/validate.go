package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/openfroyo/migrator/pkg/fault"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Submission holds the database settings posted by the configuration step.
type Submission struct {
	Driver   string `validate:"required,oneof=mysql sqlite"`
	Server   string
	Port     int `validate:"gte=0,lte=65535"`
	User     string
	Password string
	Name     string `validate:"required"`
	Prefix   string `validate:"required,identifier"`
}

// Environment converts the submission into a configuration environment.
func (s Submission) Environment() Environment {
	return Environment{
		Adapter:     s.Driver,
		Host:        s.Server,
		Port:        s.Port,
		User:        s.User,
		Pass:        s.Password,
		Name:        s.Name,
		TablePrefix: s.Prefix,
	}
}

// Validator validates configuration values.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the identifier rule registered.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Submission validates posted database settings. Each failed field yields one
// validation error carrying the wizard error code.
func (v *Validator) Submission(s Submission) []error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []error{fault.Internal("config.validate", "failed to validate settings", err)}
	}

	var errs []error
	for _, fe := range fieldErrs {
		errs = append(errs, fault.Validation(submissionCode(fe), fe.Error()).WithDetail("field", fe.Field()))
	}
	return errs
}

// File validates a configuration file.
func (v *Validator) File(f *File) error {
	if err := v.validate.Struct(f); err != nil {
		return fault.Validation("config.invalid", fmt.Sprintf("invalid configuration: %v", err)).WithArgs(err.Error())
	}
	if _, err := f.Default(); err != nil {
		return err
	}
	return nil
}

func submissionCode(fe validator.FieldError) string {
	switch fe.Field() {
	case "Driver":
		return "db.driver.invalid"
	case "Port":
		return "db.port.invalid"
	case "Name":
		return "db.name.empty"
	case "Prefix":
		if fe.Tag() == "required" {
			return "db.prefix.empty"
		}
		return "db.prefix.invalid"
	default:
		return "config.invalid"
	}
}
