package installer

import (
	"context"
	"io"

	"github.com/openfroyo/migrator/pkg/target"
)

// Schema provides inspection and scaffolding helpers over a prefixed target database.
// All table arguments are base names; the configured prefix is added here.
type Schema struct {
	db *target.DB
}

// NewSchema creates schema helpers for db.
func NewSchema(db *target.DB) *Schema {
	return &Schema{db: db}
}

// MissingTables returns the base tables that do not exist in the target.
func (s *Schema) MissingTables(ctx context.Context, bases []string) ([]string, error) {
	tables, err := s.db.ListTables(ctx, s.db.Prefix())
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		present[t] = struct{}{}
	}

	var missing []string
	for _, base := range bases {
		if _, ok := present[s.db.Table(base)]; !ok {
			missing = append(missing, base)
		}
	}
	return missing, nil
}

// MissingColumns returns the columns of base that do not exist. Every column is missing
// when the table itself does not exist.
func (s *Schema) MissingColumns(ctx context.Context, base string, columns []string) ([]string, error) {
	existing, err := s.db.ListColumns(ctx, s.db.Table(base))
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		present[c] = struct{}{}
	}

	var missing []string
	for _, c := range columns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

// DropTables drops the given base tables if they exist.
func (s *Schema) DropTables(ctx context.Context, bases []string) error {
	return s.db.DropTables(ctx, s.db.Tables(bases))
}

// LoadDump executes a SQL dump, rewriting the from prefix token to the configured prefix.
// An empty from token disables rewriting.
func (s *Schema) LoadDump(ctx context.Context, r io.Reader, from string) (int, error) {
	return target.LoadDump(ctx, s.db, r, from, s.db.Prefix())
}
