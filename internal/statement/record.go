package statement

import (
	"strings"

	"github.com/jackzampolin/tablescan/internal/tables"
)

// SummaryKey normalizes the key cell of a summary row.
func SummaryKey(cell string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(cell), ":"))
}

// SummaryPairs reads every row of a summary grid with at least two cells as
// a key/value pair. Rows with an empty key or value are skipped.
func SummaryPairs(g tables.Grid, into *Fields) int {
	n := 0
	for _, row := range g.Rows {
		if len(row) < 2 {
			continue
		}
		key := SummaryKey(row[0])
		value := strings.TrimSpace(row[1])
		if key == "" || value == "" {
			continue
		}
		into.Set(key, value)
		n++
	}
	return n
}

// TransactionRecords projects every data row of g through m. Rows whose
// width differs from the header row are dropped, as are records with no
// non-empty value.
func TransactionRecords(g tables.Grid, m Mapping, schema Schema) []*Fields {
	if len(g.Rows) < 2 {
		return nil
	}
	width := len(g.Rows[0])

	var out []*Fields
	for _, row := range g.Rows[1:] {
		if len(row) != width {
			continue
		}
		rec := NewFields()
		for _, field := range schema {
			value := ""
			if mt, ok := m.Lookup(field.Name); ok && mt.Column < len(row) {
				value = strings.TrimSpace(row[mt.Column])
			}
			rec.Set(field.Name, value)
		}
		if rec.Empty() {
			continue
		}
		out = append(out, rec)
	}
	return out
}
