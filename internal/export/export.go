// Package export writes extraction results to JSON, YAML or XLSX files.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/tablescan/internal/statement"
)

// Format is a result file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

const (
	SummarySheet      = "Summary"
	TransactionsSheet = "Transactions"
)

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// FormatFromPath picks the format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return FormatJSON
}

// Save writes res to path. An empty format is taken from the extension.
func Save(path string, res *statement.Result, format Format) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, res, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Write encodes res to w.
func Write(w io.Writer, res *statement.Result, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatYAML:
		return WriteYAML(w, res)
	case FormatXLSX:
		return WriteXLSX(w, res)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteJSON writes res with two-space indentation and unescaped UTF-8.
func WriteJSON(w io.Writer, res *statement.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// WriteYAML writes res as YAML, keeping field order.
func WriteYAML(w io.Writer, res *statement.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}

// WriteXLSX writes a workbook with a Summary sheet of key/value rows and a
// Transactions sheet with one column per canonical field.
func WriteXLSX(w io.Writer, res *statement.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("xlsx summary sheet: %w", err)
	}
	writeRow(f, SummarySheet, 1, []string{"Key", "Value"})
	for i, key := range res.Summary.Keys() {
		writeRow(f, SummarySheet, i+2, []string{key, res.Summary.Value(key)})
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 28)
	_ = f.SetColWidth(SummarySheet, "B", "B", 40)

	if _, err := f.NewSheet(TransactionsSheet); err != nil {
		return fmt.Errorf("xlsx transactions sheet: %w", err)
	}
	columns := transactionColumns(res)
	writeRow(f, TransactionsSheet, 1, columns)
	for i, tx := range res.Transactions {
		values := make([]string, len(columns))
		for c, name := range columns {
			values[c] = tx.Value(name)
		}
		writeRow(f, TransactionsSheet, i+2, values)
	}
	if len(columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(columns))
		_ = f.SetColWidth(TransactionsSheet, "A", last, 18)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// transactionColumns prefers the result's schema order and falls back to the
// key order of the first record.
func transactionColumns(res *statement.Result) []string {
	if len(res.Columns) > 0 {
		return res.Columns
	}
	if len(res.Transactions) > 0 {
		return res.Transactions[0].Keys()
	}
	return nil
}

// Describe prints a short report: summary item count, transaction count and
// the non-empty fields of the first transaction.
func Describe(w io.Writer, res *statement.Result) {
	fmt.Fprintf(w, "Summary items: %d\n", res.Summary.Len())
	fmt.Fprintf(w, "Transactions: %d\n", len(res.Transactions))
	if len(res.Transactions) == 0 {
		return
	}
	fmt.Fprintln(w, "First transaction:")
	first := res.Transactions[0]
	for _, k := range first.Keys() {
		if v := first.Value(k); v != "" {
			fmt.Fprintf(w, "  %s: %s\n", k, v)
		}
	}
}
