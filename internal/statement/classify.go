package statement

import (
	"strings"

	"github.com/jackzampolin/tablescan/internal/tables"
)

// Kind is the classification of one grid.
type Kind int

const (
	Unclassified Kind = iota
	Summary
	Transaction
)

func (k Kind) String() string {
	switch k {
	case Summary:
		return "SUMMARY"
	case Transaction:
		return "TRANSACTION"
	default:
		return "UNCLASSIFIED"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classification is the outcome of classifying a grid.
type Classification struct {
	Kind Kind
	// Indicator is the summary indicator that matched, for Summary.
	Indicator string
	// Mapping is the header canonicalization, for Transaction and Unclassified.
	Mapping Mapping
}

// Classify inspects the header row of g. A header cell containing a summary
// indicator makes the grid a Summary, even if its headers would also map
// onto the schema. Otherwise the grid is a Transaction when at least the
// profile's minimum number of canonical fields resolve. Empty grids are
// Unclassified.
func Classify(g tables.Grid, p Profile) Classification {
	if g.Empty() {
		return Classification{Kind: Unclassified}
	}

	if ind, ok := summaryIndicator(g.Rows[0], p.SummaryIndicators); ok {
		return Classification{Kind: Summary, Indicator: ind}
	}

	m := Canonicalize(g.Header(), p.Schema)
	if m.Len() >= p.minTransactionFields() {
		return Classification{Kind: Transaction, Mapping: m}
	}
	return Classification{Kind: Unclassified, Mapping: m}
}

func summaryIndicator(header []string, indicators []string) (string, bool) {
	for _, cell := range header {
		lc := strings.ToLower(cell)
		for _, ind := range indicators {
			li := strings.ToLower(ind)
			if li != "" && strings.Contains(lc, li) {
				return ind, true
			}
		}
	}
	return "", false
}
