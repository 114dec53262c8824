package store

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/dvc-connector/internal/config"
)

// dialect describes how to reach one database flavour through database/sql.
type dialect struct {
	name string
	// driver is the database/sql driver name registered by the imported package.
	driver string
	// network dialects need a host and a database name.
	network     bool
	placeholder func(n int) string
	dsn         func(cfg config.DatabaseConfig) string
}

var dialects = map[string]dialect{
	config.DriverSQLServer: {
		name:        config.DriverSQLServer,
		driver:      "sqlserver",
		network:     true,
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		dsn:         sqlServerDSN,
	},
	config.DriverPostgres: {
		name:        config.DriverPostgres,
		driver:      "pgx",
		network:     true,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		dsn:         postgresDSN,
	},
	config.DriverSQLite: {
		name:        config.DriverSQLite,
		driver:      "sqlite",
		placeholder: func(int) string { return "?" },
		dsn:         sqliteDSN,
	},
}

func lookupDialect(name string) (dialect, error) {
	if name == "" {
		name = config.DriverSQLServer
	}
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
	return d, nil
}

func seconds(d time.Duration) string {
	s := int(d / time.Second)
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

func hostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// sqlServerDSN builds a go-mssqldb URL. connect_timeout maps to "connection
// timeout" (dial plus login handshake) and login_timeout to "dial timeout"
// (TCP connect only). Query time is bounded by the context, not the DSN.
func sqlServerDSN(cfg config.DatabaseConfig) string {
	q := url.Values{}
	q.Set("database", cfg.Name)
	q.Set("connection timeout", seconds(cfg.ConnectTimeout))
	q.Set("dial timeout", seconds(cfg.LoginTimeout))
	q.Set("app name", "dvc-connector")

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password.Value()),
		Host:     hostPort(cfg.Host, cfg.Port),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func postgresDSN(cfg config.DatabaseConfig) string {
	q := url.Values{}
	q.Set("connect_timeout", seconds(cfg.ConnectTimeout))
	q.Set("application_name", "dvc-connector")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password.Value()),
		Host:     hostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// sqliteDSN treats the database name as a file path.
func sqliteDSN(cfg config.DatabaseConfig) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.LoginTimeout.Milliseconds()))
	return "file:" + cfg.Name + "?" + q.Encode()
}
