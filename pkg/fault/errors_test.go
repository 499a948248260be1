package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := EnvironmentUnavailable(CodeConnect, "could not connect", cause)

	assert.Equal(t, "[environment_unavailable] could not connect: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := Validation("db.name.empty", "")
	assert.Equal(t, "[validation] db.name.empty", bare.Error())
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("install: %w", AlreadyInstalled(CodeAlreadyInstalled, "done"))

	assert.True(t, errors.Is(err, &Error{Class: ClassAlreadyInstalled}))
	assert.True(t, errors.Is(err, &Error{Class: ClassAlreadyInstalled, Code: CodeAlreadyInstalled}))
	assert.False(t, errors.Is(err, &Error{Class: ClassAlreadyInstalled, Code: "other"}))
	assert.False(t, errors.Is(err, &Error{Class: ClassAlreadyCompleted}))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		validation  bool
		recoverable bool
		class       Class
	}{
		{
			name:        "validation",
			err:         Validation("db.port.invalid", "invalid port"),
			validation:  true,
			recoverable: true,
			class:       ClassValidation,
		},
		{
			name:        "confirmation is a validation subtype",
			err:         ConfirmationRequired("confirmation.required", "confirm"),
			validation:  true,
			recoverable: true,
			class:       ClassConfirmationRequired,
		},
		{
			name:        "connectivity",
			err:         EnvironmentUnavailable(CodeConnect, "down", nil),
			recoverable: true,
			class:       ClassEnvironmentUnavailable,
		},
		{
			name:  "already installed",
			err:   AlreadyInstalled(CodeAlreadyInstalled, "twice"),
			class: ClassAlreadyInstalled,
		},
		{
			name:  "plain error",
			err:   errors.New("boom"),
			class: ClassInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.validation, IsValidation(tt.err))
			assert.Equal(t, tt.recoverable, IsRecoverable(tt.err))
			assert.Equal(t, tt.class, ClassOf(tt.err))
		})
	}
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil, "x"))

	classified := IO(CodeWriteFailed, "write", nil)
	assert.Same(t, classified, From(fmt.Errorf("wrapped: %w", classified), "x"))

	converted := From(errors.New("boom"), CodePanic)
	require.NotNil(t, converted)
	assert.Equal(t, ClassInternal, converted.Class)
	assert.Equal(t, CodePanic, converted.Code)
}

func TestWithArgsAndDetail(t *testing.T) {
	err := IO(CodeWriteFailed, "write", nil).WithArgs("/etc/migrator.yaml").WithDetail("mode", "0644")

	assert.Equal(t, []interface{}{"/etc/migrator.yaml"}, err.Args)
	assert.Equal(t, "0644", err.Details["mode"])
}
