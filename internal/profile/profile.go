// Package profile holds document-type profiles: the canonical field schema
// and summary indicator words that parameterize extraction.
package profile

import (
	"errors"
	"strings"

	"github.com/jackzampolin/tablescan/internal/statement"
)

// BankStatementName is the document type of the built-in profile.
const BankStatementName = "bank_statement"

var (
	// ErrUnknownProfile is returned when no profile is registered under a name.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrInvalidProfile is returned when a profile spec fails validation.
	ErrInvalidProfile = errors.New("invalid profile")
)

// FieldSpec is one canonical field in a profile file.
type FieldSpec struct {
	Name     string   `json:"name" yaml:"name" mapstructure:"name"`
	Synonyms []string `json:"synonyms" yaml:"synonyms" mapstructure:"synonyms"`
}

// Spec is the serializable form of a profile.
type Spec struct {
	Name                 string      `json:"name" yaml:"name" mapstructure:"name"`
	Description          string      `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Fields               []FieldSpec `json:"fields" yaml:"fields" mapstructure:"fields"`
	SummaryIndicators    []string    `json:"summary_indicators,omitempty" yaml:"summary_indicators,omitempty" mapstructure:"summary_indicators"`
	MinTransactionFields int         `json:"min_transaction_fields,omitempty" yaml:"min_transaction_fields,omitempty" mapstructure:"min_transaction_fields"`
}

// Profile converts the spec into the form the extractor consumes.
// Indicators are lowercased.
func (s Spec) Profile() statement.Profile {
	schema := make(statement.Schema, len(s.Fields))
	for i, f := range s.Fields {
		syn := make([]string, len(f.Synonyms))
		copy(syn, f.Synonyms)
		schema[i] = statement.Field{Name: f.Name, Synonyms: syn}
	}
	indicators := make([]string, 0, len(s.SummaryIndicators))
	for _, ind := range s.SummaryIndicators {
		indicators = append(indicators, strings.ToLower(ind))
	}
	return statement.Profile{
		Name:                 s.Name,
		Schema:               schema,
		SummaryIndicators:    indicators,
		MinTransactionFields: s.MinTransactionFields,
	}
}

// BankStatement returns the built-in bank statement profile.
func BankStatement() Spec {
	return Spec{
		Name:        BankStatementName,
		Description: "Bank account statements: account summary plus transaction ledger",
		Fields: []FieldSpec{
			{Name: "Date", Synonyms: []string{"Date", "Transaction Date", "Value Date", "Tran Date", "Create Date"}},
			{Name: "Reference", Synonyms: []string{"Reference", "Reference No", "Ref No", "Transaction ID", "Trans ID", "Trans Ref"}},
			{Name: "Description", Synonyms: []string{"Description", "Narration", "Transaction Description", "Details", "Particulars", "Description/Payee/Memo"}},
			{Name: "Value Date", Synonyms: []string{"Value Date", "Val Date", "Settlement Date", "Effective Date"}},
			{Name: "Deposit", Synonyms: []string{"Deposit", "Credit", "Credit Amount", "Amount (CR)", "Deposits"}},
			{Name: "Withdrawal", Synonyms: []string{"Withdrawal", "Debit", "Debit Amount", "Amount (DR)", "Withdrawals"}},
			{Name: "Balance", Synonyms: []string{"Balance", "Running Balance", "Closing Balance", "Current Balance"}},
		},
		SummaryIndicators:    []string{"account", "currency", "balance:", "period", "statement", "branch"},
		MinTransactionFields: statement.DefaultMinTransactionFields,
	}
}
