package dbclient

import (
	"strconv"
	"strings"

	_ "github.com/lib/pq"
)

// buildPostgresDSN turns the part after "scheme://" into a URL lib/pq
// accepts. sslmode defaults to disable like the psql CLI on localhost.
func buildPostgresDSN(rest string) string {
	dsn := "postgres://" + rest
	if !containsParam(rest, "sslmode") {
		dsn += paramSep(rest) + "sslmode=disable"
	}
	return dsn
}

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) QuoteIdent(name string) string { return quoteDouble(name) }

func (postgresDialect) ColumnType(logical string) string {
	switch logical {
	case "integer":
		return "BIGINT"
	case "float":
		return "DOUBLE PRECISION"
	case "date":
		return "DATE"
	default:
		return "TEXT"
	}
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
