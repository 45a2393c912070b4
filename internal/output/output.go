// Package output renders command results as JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Default is the default output format.
var Default Format = FormatYAML

// global is set by the root command's --output flag.
var global Format = FormatYAML

// ParseFormat maps a flag value to a Format.
func ParseFormat(format string) (Format, error) {
	switch format {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "":
		return Default, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

// SetFormat sets the global output format. Unknown values select Default.
func SetFormat(format string) {
	f, err := ParseFormat(format)
	if err != nil {
		f = Default
	}
	global = f
}

// CurrentFormat returns the global output format.
func CurrentFormat() Format {
	return global
}

// Print writes data to stdout in the configured format.
func Print(data any) error {
	return To(os.Stdout, global, data)
}

// To writes data to the given writer in the specified format.
func To(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
