package statement

import (
	"log/slog"

	"github.com/jackzampolin/tablescan/internal/blocks"
	"github.com/jackzampolin/tablescan/internal/tables"
)

// TableReport describes how one grid was handled.
type TableReport struct {
	Index     int      `json:"index" yaml:"index"`
	Page      int      `json:"page" yaml:"page"`
	Rows      int      `json:"rows" yaml:"rows"`
	Columns   int      `json:"columns" yaml:"columns"`
	Kind      Kind     `json:"kind" yaml:"kind"`
	Header    []string `json:"header" yaml:"header"`
	Indicator string   `json:"indicator,omitempty" yaml:"indicator,omitempty"`
	Matches   []Match  `json:"matches,omitempty" yaml:"matches,omitempty"`
	Extracted int      `json:"extracted" yaml:"extracted"`
}

// Extractor runs classification and record building for one profile.
type Extractor struct {
	profile Profile
	logger  *slog.Logger
}

// NewExtractor creates an extractor. A nil logger uses slog.Default().
func NewExtractor(p Profile, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{profile: p, logger: logger}
}

// Profile returns the profile the extractor was built with.
func (e *Extractor) Profile() Profile {
	return e.profile
}

// Extract assembles grids from bs and folds them into a Result.
func (e *Extractor) Extract(bs []blocks.Block) *Result {
	res, _ := e.fold(tables.Assemble(bs))
	return res
}

// Fold folds already assembled grids into a Result, in grid order.
func (e *Extractor) Fold(grids []tables.Grid) *Result {
	res, _ := e.fold(grids)
	return res
}

// Explain is Extract plus a per-table report of the decisions taken.
func (e *Extractor) Explain(bs []blocks.Block) (*Result, []TableReport) {
	return e.fold(tables.Assemble(bs))
}

func (e *Extractor) fold(grids []tables.Grid) (*Result, []TableReport) {
	res := NewResult(e.profile.Schema)
	reports := make([]TableReport, 0, len(grids))

	for i, g := range grids {
		if g.Empty() {
			continue
		}
		c := Classify(g, e.profile)
		rep := TableReport{
			Index:     i,
			Page:      g.Page,
			Rows:      len(g.Rows),
			Columns:   g.Width(),
			Kind:      c.Kind,
			Header:    g.Header(),
			Indicator: c.Indicator,
			Matches:   c.Mapping.Matches(),
		}

		switch c.Kind {
		case Summary:
			rep.Extracted = SummaryPairs(g, res.Summary)
		case Transaction:
			recs := TransactionRecords(g, c.Mapping, e.profile.Schema)
			res.Transactions = append(res.Transactions, recs...)
			rep.Extracted = len(recs)
		}

		e.logger.Debug("classified table",
			"table", i,
			"page", g.Page,
			"kind", c.Kind.String(),
			"headers", rep.Header,
			"indicator", c.Indicator,
			"matched", c.Mapping.Len(),
			"extracted", rep.Extracted)
		for _, mt := range rep.Matches {
			e.logger.Debug("header match",
				"table", i,
				"field", mt.Field,
				"header", mt.Header,
				"column", mt.Column,
				"synonym", mt.Synonym)
		}
		reports = append(reports, rep)
	}

	e.logger.Debug("extraction complete",
		"profile", e.profile.Name,
		"tables", len(grids),
		"summary_items", res.Summary.Len(),
		"transactions", len(res.Transactions))
	return res, reports
}

// Extract is a convenience wrapper using the default logger.
func Extract(bs []blocks.Block, p Profile) *Result {
	return NewExtractor(p, nil).Extract(bs)
}
