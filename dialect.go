package selq

import (
	"strings"

	"github.com/Masterminds/squirrel"
)

// Dialect is the small part of a SQL dialect the builder needs: identifier
// quoting and bind variable style. Everything else is rendered by squirrel.
type Dialect interface {
	Name() string
	QuoteIdentifier(s string) string
	PlaceholderFormat() squirrel.PlaceholderFormat
}

type dialect struct {
	name      string
	quote     string
	format    squirrel.PlaceholderFormat
	unbounded string
}

var (
	// Postgres quotes with double quotes and binds $1, $2, ...
	Postgres Dialect = dialect{name: "postgres", quote: `"`, format: squirrel.Dollar}

	// SQLite quotes with double quotes and binds ?.
	SQLite Dialect = dialect{name: "sqlite", quote: `"`, format: squirrel.Question, unbounded: "-1"}

	// MySQL quotes with backticks and binds ?.
	MySQL Dialect = dialect{name: "mysql", quote: "`", format: squirrel.Question, unbounded: "18446744073709551615"}
)

// DialectByName maps driver and dialect names to a Dialect.
func DialectByName(name string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx", "pg":
		return Postgres, true
	case "sqlite", "sqlite3":
		return SQLite, true
	case "mysql", "mariadb":
		return MySQL, true
	}

	return nil, false
}

func (d dialect) Name() string {
	return d.name
}

func (d dialect) QuoteIdentifier(s string) string {
	return d.quote + strings.ReplaceAll(s, d.quote, d.quote+d.quote) + d.quote
}

func (d dialect) PlaceholderFormat() squirrel.PlaceholderFormat {
	return d.format
}

func (d dialect) unboundedLimit() string {
	return d.unbounded
}
