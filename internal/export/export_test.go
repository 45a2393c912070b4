package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/tablescan/internal/statement"
)

func sampleResult() *statement.Result {
	res := statement.NewResult(statement.Schema{
		{Name: "Date"}, {Name: "Description"}, {Name: "Deposit"}, {Name: "Balance"},
	})
	res.Summary.Set("Account Name", "Acme & Sons")
	res.Summary.Set("Currency", "EUR")

	tx := statement.NewFields()
	tx.Set("Date", "2024-01-01")
	tx.Set("Description", "Café <Main>")
	tx.Set("Deposit", "")
	tx.Set("Balance", "1000.00")
	res.Transactions = append(res.Transactions, tx)

	tx2 := statement.NewFields()
	tx2.Set("Date", "2024-01-02")
	tx2.Set("Description", "Rent")
	tx2.Set("Deposit", "5.00")
	tx2.Set("Balance", "1005.00")
	res.Transactions = append(res.Transactions, tx2)
	return res
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{".JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xlsx", FormatXLSX, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
	if FormatFromPath("out/bank_statement_data.txt") != FormatJSON {
		t.Error("expected unknown extension to fall back to json")
	}
	if FormatFromPath("out.xlsx") != FormatXLSX {
		t.Error("expected xlsx from extension")
	}
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bank_statement_data.json")
	if err := Save(path, sampleResult(), ""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, `"Account Name": "Acme & Sons"`) || !strings.Contains(text, "Café <Main>") {
		t.Errorf("expected unescaped text, got:\n%s", text)
	}
	if strings.Index(text, `"Date"`) > strings.Index(text, `"Balance"`) {
		t.Error("expected schema field order in output")
	}

	var back statement.Result
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(back.Transactions) != 2 || back.Summary.Value("Currency") != "EUR" {
		t.Errorf("unexpected round trip %+v", back)
	}
}

func TestSaveYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.yaml")
	if err := Save(path, sampleResult(), ""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"summary:", "Account Name: Acme & Sons", "transactions:", "Balance: \"1000.00\""} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}
}

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")
	if err := Save(path, sampleResult(), FormatXLSX); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	summary, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary) != 3 || summary[0][0] != "Key" || summary[1][0] != "Account Name" || summary[2][1] != "EUR" {
		t.Errorf("unexpected summary rows %q", summary)
	}

	txs, err := f.GetRows(TransactionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(txs))
	}
	if strings.Join(txs[0], ",") != "Date,Description,Deposit,Balance" {
		t.Errorf("unexpected header %q", txs[0])
	}
	if txs[1][1] != "Café <Main>" || txs[2][2] != "5.00" {
		t.Errorf("unexpected transaction rows %q", txs[1:])
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, sampleResult(), Format("csv")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	Describe(&buf, sampleResult())
	want := "Summary items: 2\nTransactions: 2\nFirst transaction:\n  Date: 2024-01-01\n  Description: Café <Main>\n  Balance: 1000.00\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	Describe(&buf, statement.NewResult(nil))
	if buf.String() != "Summary items: 0\nTransactions: 0\n" {
		t.Errorf("unexpected empty description %q", buf.String())
	}
}
