package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/tablescan/internal/blocks"
	"github.com/jackzampolin/tablescan/internal/statement"
)

func TestBankStatementIsValid(t *testing.T) {
	if err := Validate(BankStatement()); err != nil {
		t.Fatalf("built-in profile invalid: %v", err)
	}
	p := BankStatement().Profile()
	want := "Date,Reference,Description,Value Date,Deposit,Withdrawal,Balance"
	if got := strings.Join(p.Schema.Names(), ","); got != want {
		t.Errorf("got fields %s, want %s", got, want)
	}
	if p.MinTransactionFields != 4 {
		t.Errorf("expected min fields 4, got %d", p.MinTransactionFields)
	}
}

func TestBankStatementExtraction(t *testing.T) {
	cells := [][]string{
		{"Create Date", "Effective Date", "Description/Payee/Memo", "Balance"},
		{"2024-01-01", "2024-01-02", "Coffee Shop", "1000.00"},
	}
	bs := []blocks.Block{{ID: "t", Type: blocks.TypeTable, Page: 1}}
	for r, row := range cells {
		for c, text := range row {
			id := string(rune('a'+r)) + string(rune('a'+c))
			bs = append(bs,
				blocks.Block{ID: id, Type: blocks.TypeCell, Page: 1, RowIndex: r + 1, ColumnIndex: c + 1,
					Relationships: []blocks.Relationship{{Type: blocks.RelationshipChild, IDs: []string{id + "-w"}}}},
				blocks.Block{ID: id + "-w", Type: blocks.TypeWord, Page: 1, Text: text},
			)
		}
	}

	res := statement.Extract(bs, BankStatement().Profile())
	if len(res.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(res.Transactions))
	}
	tx := res.Transactions[0]
	want := map[string]string{
		"Date": "2024-01-01", "Reference": "", "Description": "Coffee Shop", "Value Date": "2024-01-02",
		"Deposit": "", "Withdrawal": "", "Balance": "1000.00",
	}
	for k, v := range want {
		if got := tx.Value(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
}

func TestValidate(t *testing.T) {
	base := func() Spec {
		return Spec{
			Name:   "invoice",
			Fields: []FieldSpec{{Name: "Item", Synonyms: []string{"item"}}, {Name: "Amount", Synonyms: []string{"amount"}}},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr bool
	}{
		{"valid", func(*Spec) {}, false},
		{"missing name", func(s *Spec) { s.Name = "" }, true},
		{"bad name", func(s *Spec) { s.Name = "Bank Statement" }, true},
		{"no fields", func(s *Spec) { s.Fields = nil }, true},
		{"field without synonyms", func(s *Spec) { s.Fields[0].Synonyms = nil }, true},
		{"empty synonym", func(s *Spec) { s.Fields[0].Synonyms = []string{""} }, true},
		{"duplicate field", func(s *Spec) { s.Fields[1].Name = "item" }, true},
		{"min fields too high", func(s *Spec) { s.MinTransactionFields = 3 }, true},
		{"negative min fields", func(s *Spec) { s.MinTransactionFields = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			err := Validate(s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("expected ErrInvalidProfile, got %v", err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(BankStatementName); err != nil {
		t.Fatalf("expected built-in profile: %v", err)
	}
	if _, err := r.Get("receipt"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile, got %v", err)
	}

	err := r.Register(Spec{
		Name:              "receipt",
		Fields:            []FieldSpec{{Name: "Item", Synonyms: []string{"item", "product"}}},
		SummaryIndicators: []string{"MERCHANT"},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got := strings.Join(r.Names(), ","); got != "bank_statement,receipt" {
		t.Errorf("unexpected names %s", got)
	}
	p, err := r.Get("receipt")
	if err != nil {
		t.Fatal(err)
	}
	if p.SummaryIndicators[0] != "merchant" {
		t.Errorf("expected lowercased indicator, got %q", p.SummaryIndicators[0])
	}

	if err := r.Register(Spec{Name: "broken"}); err == nil {
		t.Error("expected invalid spec to be rejected")
	}
	if _, err := r.Spec("broken"); !errors.Is(err, ErrUnknownProfile) {
		t.Error("rejected spec should not be registered")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"receipt.yaml": `
name: receipt
description: Store receipts
fields:
  - name: Item
    synonyms: [Item, Product]
  - name: Price
    synonyms: [Price, Amount]
summary_indicators: [merchant, store]
min_transaction_fields: 2
`,
		"invoice.json": `{"name":"invoice","fields":[{"name":"Line","synonyms":["line"]}]}`,
		"unknown_key.yaml": `
name: bad
fields:
  - name: Item
    synonyms: [item]
colour: blue
`,
		"no_fields.json": `{"name":"empty","fields":[]}`,
		"garbage.yaml":   "name: [unclosed",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		file    string
		wantErr bool
		check   func(t *testing.T, s Spec)
	}{
		{"receipt.yaml", false, func(t *testing.T, s Spec) {
			if s.Name != "receipt" || len(s.Fields) != 2 || s.MinTransactionFields != 2 {
				t.Errorf("unexpected spec %+v", s)
			}
			if s.Fields[1].Synonyms[1] != "Amount" {
				t.Errorf("unexpected synonyms %v", s.Fields[1].Synonyms)
			}
		}},
		{"invoice.json", false, func(t *testing.T, s Spec) {
			if s.Name != "invoice" || s.Fields[0].Name != "Line" {
				t.Errorf("unexpected spec %+v", s)
			}
		}},
		{"unknown_key.yaml", true, nil},
		{"no_fields.json", true, nil},
		{"garbage.yaml", true, nil},
		{"missing.yaml", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			s, err := LoadFile(filepath.Join(dir, tt.file))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}

	r := NewRegistry()
	if err := r.LoadFiles(filepath.Join(dir, "receipt.yaml"), filepath.Join(dir, "invoice.json")); err != nil {
		t.Fatalf("LoadFiles() error = %v", err)
	}
	if len(r.Names()) != 3 {
		t.Errorf("expected 3 profiles, got %v", r.Names())
	}
}
