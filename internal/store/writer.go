// Package store writes extracted records into the target table without
// creating duplicates.
//
// Deduplication is by the natural key column: each record is looked up
// first and inserted only when absent. There is no transaction around a
// batch; rows inserted before a failure stay.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/config"
	"github.com/fyrsmithlabs/dvc-connector/internal/extract"
	"github.com/fyrsmithlabs/dvc-connector/internal/logging"
)

// ErrConnection indicates the database could not be reached or is not configured.
var ErrConnection = errors.New("database connection failed")

// UploadResult counts what happened to each record of a batch.
type UploadResult struct {
	Inserted int
	Existing int
}

// Writer performs insert-if-absent uploads against one table.
type Writer struct {
	cfg     config.DatabaseConfig
	dialect dialect
	logger  *logging.Logger
}

// NewWriter validates cfg and selects the dialect. It does not connect.
func NewWriter(cfg config.DatabaseConfig, logger *logging.Logger) (*Writer, error) {
	if !config.ValidTable(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		cfg:     cfg,
		dialect: d,
		logger:  logger.Named("store"),
	}, nil
}

// Upload inserts every record whose key is not yet present. A connection
// failure returns ErrConnection before anything is written; a query failure
// aborts the remaining records and is returned with the partial counts.
func (w *Writer) Upload(ctx context.Context, schema []extract.Column, records []extract.Record) (*UploadResult, error) {
	if len(schema) == 0 || schema[0].Name != extract.KeyColumn {
		return nil, fmt.Errorf("schema must start with %s", extract.KeyColumn)
	}

	db, conn, err := w.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	defer conn.Close()

	selectSQL := w.selectStatement()
	insertSQL := w.insertStatement(schema)
	res := &UploadResult{}

	for i := range records {
		rec := &records[i]

		values := rec.Values()
		if len(values) != len(schema) {
			return res, fmt.Errorf("record %s has %d values for %d columns", rec.Sample, len(values), len(schema))
		}

		exists, err := w.exists(ctx, conn, selectSQL, rec.Sample)
		if err != nil {
			return res, fmt.Errorf("checking sample %s: %w", rec.Sample, err)
		}
		if exists {
			w.logger.Info(ctx, "sample already exists", zap.String("sample", rec.Sample))
			res.Existing++
			continue
		}

		if _, err := conn.ExecContext(ctx, insertSQL, values...); err != nil {
			return res, fmt.Errorf("inserting sample %s: %w", rec.Sample, err)
		}
		w.logger.Debug(ctx, "sample inserted", zap.String("sample", rec.Sample))
		res.Inserted++
	}

	w.logger.Info(ctx, "upload complete",
		zap.String("table", w.cfg.Table),
		zap.Int("inserted", res.Inserted),
		zap.Int("existing", res.Existing),
	)
	return res, nil
}

// connect opens a pool and pins one connection, bounded by the connect and
// login timeouts together.
func (w *Writer) connect(ctx context.Context) (*sql.DB, *sql.Conn, error) {
	if w.cfg.Name == "" || (w.dialect.network && w.cfg.Host == "") {
		return nil, nil, fmt.Errorf("%w: %s host or database name not configured", ErrConnection, w.dialect.name)
	}

	db, err := sql.Open(w.dialect.driver, w.dialect.dsn(w.cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	timeout := w.cfg.ConnectTimeout + w.cfg.LoginTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := db.Conn(cctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if err := conn.PingContext(cctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	w.logger.Debug(ctx, "database connected",
		zap.String("driver", w.dialect.name),
		zap.String("host", w.cfg.Host),
		zap.String("database", w.cfg.Name),
	)
	return db, conn, nil
}

func (w *Writer) exists(ctx context.Context, conn *sql.Conn, query, sample string) (bool, error) {
	var one int
	err := conn.QueryRowContext(ctx, query, sample).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (w *Writer) selectStatement() string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s",
		w.cfg.Table, extract.KeyColumn, w.dialect.placeholder(1))
}

func (w *Writer) insertStatement(schema []extract.Column) string {
	names := make([]string, len(schema))
	marks := make([]string, len(schema))
	for i, c := range schema {
		names[i] = c.Name
		marks[i] = w.dialect.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		w.cfg.Table, strings.Join(names, ", "), strings.Join(marks, ", "))
}
