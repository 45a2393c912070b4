package output

import (
	"bytes"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"", Default, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetFormat(t *testing.T) {
	defer SetFormat(string(Default))

	SetFormat("json")
	if CurrentFormat() != FormatJSON {
		t.Errorf("expected json, got %s", CurrentFormat())
	}
	SetFormat("bogus")
	if CurrentFormat() != Default {
		t.Errorf("expected default, got %s", CurrentFormat())
	}
}

func TestTo(t *testing.T) {
	data := map[string]any{"job_id": "abc", "pages": 3, "note": "a & b"}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := To(&buf, FormatJSON, data); err != nil {
			t.Fatal(err)
		}
		want := "{\n  \"job_id\": \"abc\",\n  \"note\": \"a & b\",\n  \"pages\": 3\n}\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := To(&buf, FormatYAML, data); err != nil {
			t.Fatal(err)
		}
		want := "job_id: abc\nnote: a & b\npages: 3\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := To(&bytes.Buffer{}, Format("csv"), data); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}
