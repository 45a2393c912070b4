// Package statement classifies reconstructed grids and maps them onto a
// canonical field schema, producing a summary mapping and uniform
// transaction records.
//
// Everything here is a pure function of the grids and the Profile. Data
// quality problems (ragged rows, unmatched headers, empty records) are
// handled by omission; nothing in this package returns an error.
package statement

// DefaultMinTransactionFields is the number of canonical fields a header row
// must resolve before its grid is treated as a transaction table.
const DefaultMinTransactionFields = 4

// Field is one canonical output field and the synonyms that identify it in
// a source header. Earlier synonyms are preferred.
type Field struct {
	Name     string
	Synonyms []string
}

// Schema is the ordered canonical field list.
type Schema []Field

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Profile parameterizes extraction for one document type.
type Profile struct {
	Name   string
	Schema Schema

	// SummaryIndicators are lowercase substrings that mark a header row as
	// belonging to a key/value summary table.
	SummaryIndicators []string

	// MinTransactionFields defaults to DefaultMinTransactionFields when zero.
	MinTransactionFields int
}

func (p Profile) minTransactionFields() int {
	if p.MinTransactionFields > 0 {
		return p.MinTransactionFields
	}
	return DefaultMinTransactionFields
}
