package i18n

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openfroyo/migrator/pkg/fault"
)

func TestTranslator(t *testing.T) {
	c := NewCatalog()

	assert.Equal(t, "Continue", c.Translator("en").T("step.submit"))
	assert.Equal(t, "Pokračovat", c.Translator("cs").T("step.submit"))
	assert.Equal(t, "Pokračovat / Continue", c.Translator("").T("step.submit"))
	assert.Equal(t, "Pokračovat / Continue", c.Translator("de").T("step.submit"))

	// labels missing from the bilingual catalog fall back to English
	assert.Equal(t, "Start over", c.Translator("").T("step.reset"))

	assert.Equal(t, "no.such.key", c.Translator("en").T("no.such.key"))
	assert.Equal(t, "This step will generate / overwrite the migrator.yaml file.",
		c.Translator("en").T("config.text", "migrator.yaml"))
}

func TestTranslatorError(t *testing.T) {
	tr := NewCatalog().Translator("en")

	tests := []struct {
		name string
		step string
		err  error
		want string
	}{
		{
			name: "step label",
			step: "config",
			err:  fault.Validation("db.name.empty", "name is empty"),
			want: "database name must not be empty",
		},
		{
			name: "label with argument",
			step: "config",
			err:  fault.EnvironmentUnavailable(fault.CodeConnect, "connect", nil).WithArgs("connection refused"),
			want: "could not connect to the database, error: connection refused",
		},
		{
			name: "shared label",
			step: "migration",
			err:  fault.AlreadyInstalled(fault.CodeAlreadyInstalled, "schema is already installed"),
			want: "This step has already been carried out.",
		},
		{
			name: "no label",
			step: "config",
			err:  fault.Validation("unknown.code", "something odd"),
			want: "[validation] something odd",
		},
		{
			name: "plain error",
			step: "config",
			err:  errors.New("plain"),
			want: "plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Error(tt.step, tt.err))
		})
	}
}

func TestMatch(t *testing.T) {
	c := NewCatalog()

	assert.Equal(t, "en", c.Match("en-US,en;q=0.9"))
	assert.Equal(t, "cs", c.Match("cs-CZ,cs;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", c.Match("de-DE,en;q=0.5"))
	assert.Equal(t, "cs", c.Match(""))
}

func TestCatalogsComplete(t *testing.T) {
	for key := range labelsEN {
		_, ok := labelsCS[key]
		assert.True(t, ok, "missing czech label %s", key)
	}
	for key := range labelsCS {
		_, ok := labelsEN[key]
		assert.True(t, ok, "missing english label %s", key)
	}
}
