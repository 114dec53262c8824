// Package extract turns the per-sample result files of a mirrored
// repository into database-ready records.
//
// Sample files live under <mirror>/ia. Only directories literally named
// "ia" (the start directory included) are collection points; every visible
// file directly inside one is parsed as a JSON document. Files that cannot
// be parsed are skipped and reported in Result.Skipped.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/logging"
)

const (
	// DefaultDir is the collection directory name and the walk root under a mirror.
	DefaultDir         = "ia"
	DefaultMethod      = "AA"
	DefaultDescription = "40/39 Argon-Argon"
	DefaultLab         = 6
)

// Options fills the columns that are constant for a deployment.
type Options struct {
	Dir         string
	Method      string
	Description string
	Lab         int
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = DefaultDir
	}
	if o.Method == "" {
		o.Method = DefaultMethod
	}
	if o.Description == "" {
		o.Description = DefaultDescription
	}
	if o.Lab == 0 {
		o.Lab = DefaultLab
	}
	return o
}

// Result is the outcome of one extraction.
type Result struct {
	Schema  []Column
	Records []Record
	Skipped []*ParseError
}

// Extractor scans mirrors for sample files.
type Extractor struct {
	opts   Options
	logger *logging.Logger
}

// New creates an Extractor.
func New(opts Options, logger *logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		opts:   opts.withDefaults(),
		logger: logger.Named("extract"),
	}
}

// Extract walks <mirrorRoot>/<dir> in lexical order and parses every
// candidate file. A missing start directory yields an empty result.
func (e *Extractor) Extract(ctx context.Context, mirrorRoot string) (*Result, error) {
	res := &Result{Schema: Schema()}

	start := filepath.Join(mirrorRoot, e.opts.Dir)
	info, err := os.Stat(start)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Debug(ctx, "no sample directory", zap.String("path", start))
			return res, nil
		}
		return nil, fmt.Errorf("stat %s: %w", start, err)
	}
	if !info.IsDir() {
		return res, nil
	}

	err = filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isCandidate(path, d, filepath.Base(e.opts.Dir)) {
			return nil
		}

		rec, err := ParseFile(path, e.opts)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				e.logger.Warn(ctx, "skipping sample file",
					zap.String("path", path),
					zap.Error(perr.Err),
				)
				res.Skipped = append(res.Skipped, perr)
				return nil
			}
			return err
		}
		res.Records = append(res.Records, *rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", start, err)
	}

	e.logger.Debug(ctx, "extraction complete",
		zap.Int("records", len(res.Records)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// isCandidate reports whether a file sits directly in a collection
// directory and is not hidden.
func isCandidate(path string, d fs.DirEntry, collection string) bool {
	if strings.HasPrefix(d.Name(), ".") {
		return false
	}
	return filepath.Base(filepath.Dir(path)) == collection
}
