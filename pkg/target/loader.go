package target

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// PrefixToken is the table prefix used by bundled SQL definitions.
const PrefixToken = "sunlight_"

// RewritePrefix replaces every occurrence of the from token with the to token.
// An empty from token leaves the definition untouched.
func RewritePrefix(definition, from, to string) string {
	if from == "" || from == to {
		return definition
	}
	return strings.ReplaceAll(definition, from, to)
}

// LoadDump executes every statement of a SQL dump against the target, rewriting the
// from prefix token to the to token first. The statements run in one transaction, so a
// failed dump leaves no rows behind. MySQL commits DDL implicitly; dumps loaded there
// should only hold data statements.
func LoadDump(ctx context.Context, db *DB, r io.Reader, from, to string) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read dump: %w", err)
	}

	statements := SplitStatements(RewritePrefix(string(data), from, to), db.Dialect().Syntax())

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "failed to begin transaction")
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("statement %d failed: %w", i+1, classify(err, "failed to execute statement"))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(err, "failed to commit dump")
	}
	return len(statements), nil
}

// SplitStatements splits a SQL script into statements on semicolons that are outside of
// quotes and comments. Comments are dropped and empty statements are skipped.
func SplitStatements(script string, syntax SQLSyntax) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if quote != 0 {
			current.WriteRune(c)
			switch {
			case syntax.BackslashEscapes && c == '\\' && quote != '`' && i+1 < len(runes):
				i++
				current.WriteRune(runes[i])
			case c == quote && i+1 < len(runes) && runes[i+1] == quote:
				// doubled quote
				i++
				current.WriteRune(runes[i])
			case c == quote:
				quote = 0
			}
			continue
		}

		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			current.WriteRune(c)
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-' && dashComment(runes, i, syntax):
			i = skipLine(runes, i)
		case c == '#' && syntax.HashComments:
			i = skipLine(runes, i)
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			j := i + 2
			for j+1 < len(runes) && !(runes[j] == '*' && runes[j+1] == '/') {
				j++
			}
			i = j + 1
			current.WriteRune(' ')
		case c == ';':
			flush()
		default:
			current.WriteRune(c)
		}
	}
	flush()

	return statements
}

// dashComment reports whether the -- at i starts a comment.
func dashComment(runes []rune, i int, syntax SQLSyntax) bool {
	if !syntax.DashNeedsSpace || i+2 >= len(runes) {
		return true
	}
	next := runes[i+2]
	return unicode.IsSpace(next) || unicode.IsControl(next)
}

// skipLine returns the index just before the newline ending the line that starts at i,
// so the newline itself is kept as whitespace.
func skipLine(runes []rune, i int) int {
	for i < len(runes) && runes[i] != '\n' {
		i++
	}
	return i - 1
}
