// Package target provides connectivity to the database the wizard configures and migrates.
//
// Every object the migrator manages lives in one shared database under a namespace prefix, so all
// table names handed to this package are either fully prefixed or built with DB.Table.
package target

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openfroyo/migrator/pkg/fault"
)

// Params holds the connection parameters for a target database.
type Params struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string
}

// TablePrefix returns the prefix including its separator (e.g. "sunlight_").
func (p Params) TablePrefix() string {
	return p.Prefix + "_"
}

// Dialect hides the differences between the supported database servers.
type Dialect interface {
	// Name is the adapter name used in configuration files.
	Name() string

	// DriverName is the database/sql driver name.
	DriverName() string

	// DSN builds the data source name. withDatabase selects the configured database.
	DSN(p Params, withDatabase bool) string

	// QuoteIdent quotes an identifier.
	QuoteIdent(name string) string

	// ListTablesQuery returns a query yielding one table name per row.
	ListTablesQuery() string

	// ListColumnsQuery returns a query yielding one column name per row for the table bound to ?.
	ListColumnsQuery() string

	// CreateDatabaseStatement returns the statement creating the database, or "" if the
	// dialect creates databases on open.
	CreateDatabaseStatement(name string) string

	// Syntax describes how the server lexes comments and string escapes.
	Syntax() SQLSyntax
}

// SQLSyntax holds the lexical rules SplitStatements needs to find statement boundaries.
type SQLSyntax struct {
	// HashComments makes # start a line comment.
	HashComments bool

	// DashNeedsSpace makes -- start a comment only when followed by whitespace, a
	// control character or the end of input.
	DashNeedsSpace bool

	// BackslashEscapes lets a backslash escape the next character inside string literals.
	BackslashEscapes bool
}

var dialects = map[string]Dialect{}

func registerDialect(d Dialect) {
	dialects[d.Name()] = d
}

// LookupDialect returns the dialect for an adapter name.
func LookupDialect(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported database adapter: %s", name)
	}
	return d, nil
}

// Dialects returns the names of all supported adapters.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connector opens target connections. Implementations must report connectivity failures as
// fault errors of class environment_unavailable.
type Connector interface {
	// Connect opens a connection to the configured database.
	Connect(ctx context.Context, p Params) (*DB, error)

	// ConnectServer opens a connection to the server without selecting a database.
	ConnectServer(ctx context.Context, p Params) (*DB, error)
}

// SQLConnector is the Connector backed by database/sql.
type SQLConnector struct {
	// PingTimeout bounds the connectivity check.
	PingTimeout time.Duration
}

// NewConnector creates a new SQL connector.
func NewConnector() *SQLConnector {
	return &SQLConnector{PingTimeout: 5 * time.Second}
}

// Connect opens a connection to the configured database.
func (c *SQLConnector) Connect(ctx context.Context, p Params) (*DB, error) {
	return c.open(ctx, p, true)
}

// ConnectServer opens a connection to the server without selecting a database.
func (c *SQLConnector) ConnectServer(ctx context.Context, p Params) (*DB, error) {
	return c.open(ctx, p, false)
}

func (c *SQLConnector) open(ctx context.Context, p Params, withDatabase bool) (*DB, error) {
	dialect, err := LookupDialect(p.Driver)
	if err != nil {
		return nil, fault.Validation("db.driver.invalid", err.Error())
	}

	db, err := Open(dialect, p, withDatabase)
	if err != nil {
		return nil, fault.EnvironmentUnavailable(fault.CodeConnect, "failed to open database", err).WithArgs(err.Error())
	}

	timeout := c.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.sql.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fault.EnvironmentUnavailable(fault.CodeConnect, "failed to ping database", err).WithArgs(err.Error())
	}

	return db, nil
}

// Open opens a database handle without checking connectivity.
func Open(dialect Dialect, p Params, withDatabase bool) (*DB, error) {
	sqlDB, err := sql.Open(dialect.DriverName(), dialect.DSN(p, withDatabase))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A wizard request needs at most a couple of connections.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		sql:     sqlDB,
		dialect: dialect,
		params:  p,
	}, nil
}

// DB is a connection to a target database.
type DB struct {
	sql     *sql.DB
	dialect Dialect
	params  Params
}

// SQL returns the underlying database handle.
func (d *DB) SQL() *sql.DB {
	return d.sql
}

// Dialect returns the database dialect.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Params returns the connection parameters.
func (d *DB) Params() Params {
	return d.params
}

// Prefix returns the table prefix including its separator.
func (d *DB) Prefix() string {
	return d.params.TablePrefix()
}

// Table returns the prefixed name of a base table.
func (d *DB) Table(base string) string {
	return d.params.TablePrefix() + base
}

// Tables returns the prefixed names of the given base tables.
func (d *DB) Tables(bases []string) []string {
	names := make([]string, len(bases))
	for i, base := range bases {
		names[i] = d.Table(base)
	}
	return names
}

// QuoteIdent quotes an identifier for the connected dialect.
func (d *DB) QuoteIdent(name string) string {
	return d.dialect.QuoteIdent(name)
}

// Close closes the connection.
func (d *DB) Close() error {
	if d.sql != nil {
		return d.sql.Close()
	}
	return nil
}

// Exec executes a statement.
func (d *DB) Exec(ctx context.Context, stmt string, args ...interface{}) (sql.Result, error) {
	result, err := d.sql.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, classify(err, "failed to execute statement")
	}
	return result, nil
}

// ListTables returns the tables whose name starts with prefix, sorted by name.
func (d *DB) ListTables(ctx context.Context, prefix string) ([]string, error) {
	names, err := d.queryStrings(ctx, d.dialect.ListTablesQuery())
	if err != nil {
		return nil, err
	}

	matched := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)

	return matched, nil
}

// ListColumns returns the column names of a table. A missing table yields no columns.
func (d *DB) ListColumns(ctx context.Context, table string) ([]string, error) {
	return d.queryStrings(ctx, d.dialect.ListColumnsQuery(), table)
}

// TableExists checks whether a table exists.
func (d *DB) TableExists(ctx context.Context, table string) (bool, error) {
	tables, err := d.ListTables(ctx, table)
	if err != nil {
		return false, err
	}
	for _, name := range tables {
		if name == table {
			return true, nil
		}
	}
	return false, nil
}

// ReadValue reads a single value. The boolean is false when the query returned no row or NULL.
func (d *DB) ReadValue(ctx context.Context, query string, args ...interface{}) (string, bool, error) {
	var value sql.NullString
	err := d.sql.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify(err, "failed to read value")
	}
	return value.String, value.Valid, nil
}

// CreateDatabase creates the configured database if it does not exist.
func (d *DB) CreateDatabase(ctx context.Context, name string) error {
	stmt := d.dialect.CreateDatabaseStatement(name)
	if stmt == "" {
		return nil
	}
	if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// DropTables drops the given tables if they exist.
func (d *DB) DropTables(ctx context.Context, tables []string) error {
	for _, table := range tables {
		if _, err := d.Exec(ctx, "DROP TABLE IF EXISTS "+d.QuoteIdent(table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

func (d *DB) queryStrings(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "failed to query")
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate rows")
	}

	return values, nil
}

// classify turns connectivity failures into environment_unavailable errors and leaves
// statement errors wrapped as they are.
func classify(err error, message string) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) || isConnError(err) {
		return fault.EnvironmentUnavailable(fault.CodeConnect, message, err).WithArgs(err.Error())
	}
	return fmt.Errorf("%s: %w", message, err)
}

func isConnError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "invalid connection") ||
		strings.Contains(msg, "broken pipe")
}
