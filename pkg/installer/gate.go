package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/openfroyo/migrator/pkg/fault"
	"github.com/openfroyo/migrator/pkg/target"
)

// Gate decides by inspecting live state whether a unit of work is already done.
// Implementations must be side-effect free and safe to call repeatedly. Connectivity
// failures are returned as environment_unavailable errors.
type Gate interface {
	Satisfied(ctx context.Context) (bool, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context) (bool, error)

// Satisfied calls f.
func (f GateFunc) Satisfied(ctx context.Context) (bool, error) {
	return f(ctx)
}

// All returns a gate satisfied only when every gate is. Evaluation stops at the first
// unsatisfied gate or error.
func All(gates ...Gate) Gate {
	return GateFunc(func(ctx context.Context) (bool, error) {
		for _, g := range gates {
			ok, err := g.Satisfied(ctx)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}

// FileExists is satisfied when a regular file exists at path.
func FileExists(path string) Gate {
	return GateFunc(func(context.Context) (bool, error) {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fault.IO(fault.CodeReadFailed, fmt.Sprintf("failed to stat %s", path), err).WithArgs(path)
		}
		return info.Mode().IsRegular(), nil
	})
}

// VersionMarker is satisfied when the key/value table holds want under key.
// A missing table or row counts as not satisfied.
func VersionMarker(db *target.DB, base, key, want string) Gate {
	return GateFunc(func(ctx context.Context) (bool, error) {
		version, found, err := ReadVersion(ctx, db, base, key)
		if err != nil || !found {
			return false, err
		}
		return version == want, nil
	})
}

// ReadVersion reads the value stored under key in the prefixed key/value table base.
func ReadVersion(ctx context.Context, db *target.DB, base, key string) (string, bool, error) {
	table := db.Table(base)

	exists, err := db.TableExists(ctx, table)
	if err != nil || !exists {
		return "", false, err
	}

	query := fmt.Sprintf("SELECT val FROM %s WHERE var = ?", db.QuoteIdent(table))
	return db.ReadValue(ctx, query, key)
}

// TablesPresent is satisfied when every base table exists with the configured prefix.
func TablesPresent(db *target.DB, bases []string) Gate {
	schema := NewSchema(db)
	return GateFunc(func(ctx context.Context) (bool, error) {
		missing, err := schema.MissingTables(ctx, bases)
		if err != nil {
			return false, err
		}
		return len(missing) == 0, nil
	})
}
