package store

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/dvc-connector/internal/config"
)

func testDBConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:           "sql.example.org",
		User:           "geo",
		Password:       config.Secret("p@ss word"),
		Name:           "NMGRL",
		ConnectTimeout: 15 * time.Second,
		LoginTimeout:   5 * time.Second,
	}
}

func TestSQLServerDSN(t *testing.T) {
	u, err := url.Parse(sqlServerDSN(testDBConfig()))
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "sql.example.org", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)

	q := u.Query()
	assert.Equal(t, "NMGRL", q.Get("database"))
	assert.Equal(t, "15", q.Get("connection timeout"))
	assert.Equal(t, "5", q.Get("dial timeout"))
}

func TestPostgresDSN(t *testing.T) {
	cfg := testDBConfig()
	cfg.Port = 5433

	u, err := url.Parse(postgresDSN(cfg))
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "sql.example.org:5433", u.Host)
	assert.Equal(t, "/NMGRL", u.Path)
	assert.Equal(t, "15", u.Query().Get("connect_timeout"))
}

func TestSQLiteDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Name: "/var/lib/dvc/geo.db", LoginTimeout: 2 * time.Second}
	assert.Equal(t, "file:/var/lib/dvc/geo.db?_pragma=busy_timeout%282000%29", sqliteDSN(cfg))
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, "1", seconds(0))
	assert.Equal(t, "1", seconds(300*time.Millisecond))
	assert.Equal(t, "15", seconds(15*time.Second))
}

func TestLookupDialect(t *testing.T) {
	d, err := lookupDialect("")
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", d.driver)

	d, err = lookupDialect(config.DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "pgx", d.driver)
	assert.Equal(t, "$3", d.placeholder(3))

	_, err = lookupDialect("mysql")
	assert.Error(t, err)
}
