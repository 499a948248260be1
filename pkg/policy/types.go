package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings shown to the operator that do not block the migration.
	SeverityWarning Severity = "warning"

	// SeverityError blocks the migration.
	SeverityError Severity = "error"

	// SeverityCritical blocks the migration.
	SeverityCritical Severity = "critical"
)

// Blocking reports whether violations of this severity prevent the migration.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. Violations are read from its deny set.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result represents the result of a preflight evaluation.
type Result struct {
	// Allowed indicates if the migration may run.
	Allowed bool `json:"allowed"`

	// Violations lists the blocking violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists violations that do not block the migration.
	Warnings []Violation `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the policies were evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Messages returns the messages of the blocking violations.
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		msgs[i] = v.Message
	}
	return msgs
}

// Input is the document policies are evaluated against.
type Input struct {
	// Operation is the operation being checked (e.g. "migrate").
	Operation string `json:"operation"`

	// Adapter is the database type (mysql, sqlite).
	Adapter string `json:"adapter"`

	// Database is the target database name.
	Database string `json:"database"`

	// Prefix is the configured table prefix without separator.
	Prefix string `json:"prefix"`

	// Tables lists the existing tables carrying the prefix.
	Tables []string `json:"tables"`

	// MissingTables lists the base tables the migrated schema needs that do not exist yet.
	MissingTables []string `json:"missing_tables"`

	// Version is the current schema version marker, empty if absent.
	Version string `json:"version"`

	// TargetVersion is the version the migration produces.
	TargetVersion string `json:"target_version"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`
}
