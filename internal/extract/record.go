package extract

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrParse indicates a sample file that could not be turned into a record.
var ErrParse = errors.New("parse error")

// ParseError records which file failed and why.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrParse and the underlying cause to errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Record is one interpreted age ready for insertion.
type Record struct {
	Sample      string
	Method      string
	Description string
	Lab         int
	Age         *float64
	Error       *float64
	Sigma       int
	MSWD        *float64
	Material    *string
	Formation   *string
	Latitude    *float64
	Longitude   *float64
}

// Values returns the record's values in Schema order. Absent values are nil.
func (r *Record) Values() []any {
	return []any{
		r.Sample,
		r.Method,
		r.Description,
		r.Lab,
		floatValue(r.Age),
		floatValue(r.Error),
		r.Sigma,
		floatValue(r.MSWD),
		stringValue(r.Material),
		stringValue(r.Formation),
		floatValue(r.Latitude),
		floatValue(r.Longitude),
	}
}

func floatValue(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func stringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// ParseFile reads one sample file into a Record. Every failure is a *ParseError.
func ParseFile(path string, opts Options) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	rec, err := parse(data, opts.withDefaults())
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return rec, nil
}

func parse(data []byte, opts Options) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("malformed JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New("document is not an object")
	}

	sample, err := textField(doc, "sample")
	if err != nil {
		return nil, err
	}
	if sample == nil || strings.TrimSpace(*sample) == "" {
		return nil, errors.New("sample is missing or empty")
	}

	rec := &Record{
		Sample:      *sample,
		Method:      opts.Method,
		Description: opts.Description,
		Lab:         opts.Lab,
		Sigma:       1,
	}

	for _, f := range []struct {
		key string
		dst **float64
	}{
		{"age", &rec.Age},
		{"age_err", &rec.Error},
		{"mswd", &rec.MSWD},
		{"latitude", &rec.Latitude},
		{"longitude", &rec.Longitude},
	} {
		if *f.dst, err = numberField(doc, f.key); err != nil {
			return nil, err
		}
	}

	if rec.Material, err = textField(doc, "material"); err != nil {
		return nil, err
	}
	if rec.Formation, err = textField(doc, "formation"); err != nil {
		return nil, err
	}

	return rec, nil
}

// numberField accepts JSON numbers and numeric strings.
func numberField(doc gjson.Result, key string) (*float64, error) {
	v := doc.Get(key)
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		f := v.Float()
		return &f, nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: %q is not a number", key, v.Str)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("field %q: expected number, got %s", key, v.Raw)
	}
}

// textField accepts JSON strings and numbers, keeping a number's literal form.
func textField(doc gjson.Result, key string) (*string, error) {
	v := doc.Get(key)
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.String:
		s := v.Str
		return &s, nil
	case gjson.Number:
		s := v.Raw
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q: expected text, got %s", key, v.Raw)
	}
}
