package extract

// Kind is the SQL value class of a column.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindDecimal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	default:
		return "unknown"
	}
}

// Marker returns the printf-style format marker historically used for the kind.
func (k Kind) Marker() string {
	if k == KindInteger {
		return "%d"
	}
	return "%s"
}

// Column is one target table column.
type Column struct {
	Name string
	Kind Kind
}

// KeyColumn is the natural key used for deduplication.
const KeyColumn = "SampleNo_Orig"

var schema = []Column{
	{Name: KeyColumn, Kind: KindText},
	{Name: "Method", Kind: KindText},
	{Name: "Description", Kind: KindText},
	{Name: "Lab", Kind: KindInteger},
	{Name: "Age", Kind: KindDecimal},
	{Name: "Error", Kind: KindDecimal},
	{Name: "Sigma", Kind: KindInteger},
	{Name: "MSWD", Kind: KindDecimal},
	{Name: "Material", Kind: KindText},
	{Name: "Formation", Kind: KindText},
	{Name: "Latitude", Kind: KindDecimal},
	{Name: "Longitude", Kind: KindDecimal},
}

// Schema returns the ordered column list every Record conforms to.
// The key column is always first.
func Schema() []Column {
	out := make([]Column, len(schema))
	copy(out, schema)
	return out
}
