package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/dvc-connector/internal/config"
	"github.com/fyrsmithlabs/dvc-connector/internal/logging"
	"github.com/fyrsmithlabs/dvc-connector/internal/telemetry"
)

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Short, cmd.Name())
	}
	for _, want := range []string{"serve", "sync", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "Version:    dev")
}

// commitSamples creates a source repository holding the given sample files.
func commitSamples(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("add samples", &git.CommitOptions{
		Author: &object.Signature{Name: "lab", Email: "lab@example.org", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func testConfig(t *testing.T, dbPath string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Mirror.Root = filepath.Join(t.TempDir(), "repositories")
	cfg.Database = config.DatabaseConfig{
		Driver:         config.DriverSQLite,
		Name:           dbPath,
		Table:          "nm_geochronology",
		ConnectTimeout: 5 * time.Second,
		LoginTimeout:   time.Second,
	}
	return cfg
}

func TestApp_EndToEnd(t *testing.T) {
	src := commitSamples(t, map[string]string{
		"ia/ia/s100.json":      `{"sample":"S100","age":28.2,"age_err":0.1,"mswd":1.2,"material":"sanidine"}`,
		"ia/ia/s101.json":      `{"sample":"S101","age":"1.05"}`,
		"ia/ia/.hidden.json":   `{"sample":"HIDDEN"}`,
		"ia/ia/broken.json":    `{"sample":`,
		"ia/notes/readme.json": `{"sample":"NOTE"}`,
	})

	dbPath := filepath.Join(t.TempDir(), "geochron.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE nm_geochronology (
		SampleNo_Orig TEXT NOT NULL, Method TEXT, Description TEXT, Lab INTEGER,
		Age REAL, Error REAL, Sigma INTEGER, MSWD REAL, Material TEXT,
		Formation TEXT, Latitude REAL, Longitude REAL)`)
	require.NoError(t, err)

	logger := logging.NewTestLogger()
	a, err := newApp(context.Background(), testConfig(t, dbPath), logger.Logger)
	require.NoError(t, err)

	req := map[string]any{"name": "ages", "clone_url": src}
	require.NoError(t, a.dispatcher.Handle(context.Background(), req))
	require.NoError(t, a.dispatcher.Handle(context.Background(), req))

	var samples []string
	rows, err := db.Query("SELECT SampleNo_Orig FROM nm_geochronology ORDER BY SampleNo_Orig")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		samples = append(samples, s)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"S100", "S101"}, samples)

	assert.Equal(t, 2, logger.CountMessage("sample already exists"))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.metrics.RowsTotal.WithLabelValues("inserted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.metrics.FilesSkipped))
	assert.Len(t, a.dispatcher.LogList(), 2)
}

func TestApp_DatabaseUnsetFailsOpen(t *testing.T) {
	src := commitSamples(t, map[string]string{"ia/a.json": `{"sample":"A1"}`})

	cfg := testConfig(t, "")
	cfg.Database = config.DatabaseConfig{Driver: config.DriverSQLServer, Table: "dbo.nm_geochronology"}

	a, err := newApp(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)

	err = a.dispatcher.Handle(context.Background(), map[string]any{"name": "ages", "clone_url": src})
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.UploadFailures.WithLabelValues("connection")))
}

func TestApp_ActivityDisabled(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "x.db"))
	cfg.Activity.Disabled = true

	a, err := newApp(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Empty(t, a.dispatcher.LogList())
}

func TestApp_TelemetryInsecureRemoteRejected(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "x.db"))
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Insecure = true
	cfg.Telemetry.Endpoint = "collector.example.org:4317"

	_, err := newApp(context.Background(), cfg, logging.NewNop())
	assert.ErrorIs(t, err, telemetry.ErrInsecureRemote)
}

func TestApp_TelemetryDisabledByDefault(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t, filepath.Join(t.TempDir(), "x.db")), logging.NewNop())
	require.NoError(t, err)
	assert.False(t, a.telemetry.Enabled())
	a.close(context.Background())
}
