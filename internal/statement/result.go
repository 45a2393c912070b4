package statement

// Result is the extraction output for one document.
type Result struct {
	Summary      *Fields   `json:"summary" yaml:"summary"`
	Transactions []*Fields `json:"transactions" yaml:"transactions"`

	// Columns is the canonical field order of every transaction record.
	Columns []string `json:"-" yaml:"-"`
}

// NewResult returns an empty result for schema.
func NewResult(schema Schema) *Result {
	return &Result{
		Summary:      NewFields(),
		Transactions: []*Fields{},
		Columns:      schema.Names(),
	}
}
