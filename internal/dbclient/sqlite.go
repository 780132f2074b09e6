package dbclient

import (
	"strings"

	_ "modernc.org/sqlite"
)

// buildSQLiteDSN maps SQLAlchemy-style paths: "/app.db" is relative,
// "//tmp/app.db" absolute, "/:memory:" or "" in-memory. File databases get
// a busy timeout so a concurrent reader does not fail a write.
func buildSQLiteDSN(rest string) string {
	path := strings.TrimPrefix(rest, "/")
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)"
}

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) QuoteIdent(name string) string { return quoteDouble(name) }

func (sqliteDialect) ColumnType(logical string) string {
	switch logical {
	case "integer":
		return "INTEGER"
	case "float":
		return "REAL"
	case "date":
		return "DATE"
	default:
		return "TEXT"
	}
}
