package target

import (
	"fmt"
	"strings"

	// SQLite driver
	_ "modernc.org/sqlite"
)

// sqliteDialect targets a single database file. Host, port and credentials are ignored and
// Database is the file path.
type sqliteDialect struct{}

func init() {
	registerDialect(sqliteDialect{})
}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) DSN(p Params, _ bool) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", p.Database)
}

func (sqliteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) ListTablesQuery() string {
	return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"
}

func (sqliteDialect) ListColumnsQuery() string {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid"
}

// Syntax follows the SQLite tokenizer: -- always starts a comment, # does not, and
// backslashes are ordinary characters.
func (sqliteDialect) Syntax() SQLSyntax {
	return SQLSyntax{}
}

func (sqliteDialect) CreateDatabaseStatement(string) string {
	return ""
}
