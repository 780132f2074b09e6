package dbclient

import (
	"net/url"

	"github.com/go-sql-driver/mysql"

	"jobfeed/internal/errors"
)

// buildMySQLDSN converts "user:pass@host:port/db?params" into the
// go-sql-driver DSN format (user:pass@tcp(host:port)/db?parseTime=true).
func buildMySQLDSN(rest string) (string, error) {
	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql descriptor")
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Hostname() + ":3306"
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = trimSlash(u.Path)
	cfg.ParseTime = true
	for k, vs := range u.Query() {
		if len(vs) == 0 {
			continue
		}
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		cfg.Params[k] = vs[0]
	}
	return cfg.FormatDSN(), nil
}

type mysqlDialect struct{}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) QuoteIdent(name string) string { return "`" + name + "`" }

func (mysqlDialect) ColumnType(logical string) string {
	switch logical {
	case "integer":
		return "BIGINT"
	case "float":
		return "DOUBLE"
	case "date":
		return "DATE"
	default:
		return "TEXT"
	}
}
