package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FieldTypes(t *testing.T) {
	opts := Options{}.withDefaults()

	tests := []struct {
		name    string
		doc     string
		wantErr string
		check   func(t *testing.T, r *Record)
	}{
		{
			name: "all fields",
			doc:  `{"sample":"S1","age":28.2,"age_err":0.05,"mswd":0.9,"material":"sanidine","formation":"Bandelier Tuff","latitude":35.8,"longitude":-106.5}`,
			check: func(t *testing.T, r *Record) {
				assert.Equal(t, "sanidine", *r.Material)
				assert.Equal(t, "Bandelier Tuff", *r.Formation)
				assert.InDelta(t, -106.5, *r.Longitude, 1e-9)
				assert.Equal(t, 1, r.Sigma)
			},
		},
		{
			name: "nulls stay nil",
			doc:  `{"sample":"S2","age":null,"material":null}`,
			check: func(t *testing.T, r *Record) {
				assert.Nil(t, r.Age)
				assert.Nil(t, r.Material)
			},
		},
		{
			name: "numeric sample keeps literal",
			doc:  `{"sample":10045}`,
			check: func(t *testing.T, r *Record) {
				assert.Equal(t, "10045", r.Sample)
			},
		},
		{
			name: "numeric string",
			doc:  `{"sample":"S3","mswd":" 1.5 "}`,
			check: func(t *testing.T, r *Record) {
				assert.InDelta(t, 1.5, *r.MSWD, 1e-9)
			},
		},
		{name: "array document", doc: `[{"sample":"S4"}]`, wantErr: "not an object"},
		{name: "boolean number", doc: `{"sample":"S5","age":true}`, wantErr: "expected number"},
		{name: "object text", doc: `{"sample":"S6","formation":{"a":1}}`, wantErr: "expected text"},
		{name: "word as number", doc: `{"sample":"S7","latitude":"north"}`, wantErr: "not a number"},
		{name: "missing sample", doc: `{"age":1}`, wantErr: "sample is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := parse([]byte(tt.doc), opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, rec)
		})
	}
}

func TestParseFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ParseFile(filepath.Join(dir, "missing.json"), Options{})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = ParseFile(bad, Options{})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, bad, perr.Path)
	assert.Contains(t, err.Error(), bad)
}

func TestSchema(t *testing.T) {
	s := Schema()
	require.Len(t, s, 12)
	assert.Equal(t, KeyColumn, s[0].Name)
	assert.Equal(t, KindText, s[0].Kind)
	assert.Equal(t, "%d", s[3].Kind.Marker())
	assert.Equal(t, "%s", s[4].Kind.Marker())

	s[0].Name = "mutated"
	assert.Equal(t, KeyColumn, Schema()[0].Name)
}
