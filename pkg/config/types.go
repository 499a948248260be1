package config

import (
	"fmt"
	"sort"

	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/target"
)

const (
	// DefaultPath is the configuration file used when none is given.
	DefaultPath = "migrator.yaml"

	// DefaultEnvironment is the environment written by the wizard.
	DefaultEnvironment = "production"

	// DefaultHost is offered when no host is configured.
	DefaultHost = "localhost"

	// DefaultPrefix is offered when no table prefix is configured.
	DefaultPrefix = "sunlight"

	defaultCharset   = "utf8mb4"
	defaultCollation = "utf8mb4_unicode_ci"
)

// File is the configuration file.
type File struct {
	// DefaultEnvironment names the environment the migrator uses.
	DefaultEnvironment string `yaml:"default_environment" validate:"required"`

	// Environments maps environment names to their target databases.
	Environments map[string]Environment `yaml:"environments" validate:"required,min=1,dive"`
}

// Environment holds the connection parameters of a target database.
type Environment struct {
	Adapter     string `yaml:"adapter" validate:"required,oneof=mysql sqlite"`
	Host        string `yaml:"host,omitempty"`
	Port        int    `yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	User        string `yaml:"user,omitempty"`
	Pass        string `yaml:"pass,omitempty"`
	Name        string `yaml:"name" validate:"required"`
	TablePrefix string `yaml:"table_prefix" validate:"required,identifier"`
	Charset     string `yaml:"charset,omitempty"`
	Collation   string `yaml:"collation,omitempty"`
}

// NewFile creates a configuration file with env as its only, default environment.
func NewFile(env Environment) *File {
	if env.Adapter == "mysql" {
		if env.Charset == "" {
			env.Charset = defaultCharset
		}
		if env.Collation == "" {
			env.Collation = defaultCollation
		}
	}

	return &File{
		DefaultEnvironment: DefaultEnvironment,
		Environments: map[string]Environment{
			DefaultEnvironment: env,
		},
	}
}

// Default returns the default environment.
func (f *File) Default() (Environment, error) {
	env, ok := f.Environments[f.DefaultEnvironment]
	if !ok {
		return Environment{}, fault.Validation("config.environment.missing",
			fmt.Sprintf("environment %q is not defined", f.DefaultEnvironment)).WithArgs(f.DefaultEnvironment)
	}
	return env, nil
}

// EnvironmentNames returns the defined environment names in sorted order.
func (f *File) EnvironmentNames() []string {
	names := make([]string, 0, len(f.Environments))
	for name := range f.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Params converts the environment into connection parameters.
func (e Environment) Params() target.Params {
	return target.Params{
		Driver:   e.Adapter,
		Host:     e.Host,
		Port:     e.Port,
		User:     e.User,
		Password: e.Pass,
		Database: e.Name,
		Prefix:   e.TablePrefix,
	}
}

// FromParams converts connection parameters into an environment.
func FromParams(p target.Params) Environment {
	return Environment{
		Adapter:     p.Driver,
		Host:        p.Host,
		Port:        p.Port,
		User:        p.User,
		Pass:        p.Password,
		Name:        p.Database,
		TablePrefix: p.Prefix,
	}
}
