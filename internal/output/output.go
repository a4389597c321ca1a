// Package output renders command results for the terminal.
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

// globalFormat is set by the root command's --output flag.
var globalFormat Format = FormatYAML

// SetFormat sets the global output format.
func SetFormat(format string) {
	switch format {
	case "json":
		globalFormat = FormatJSON
	default:
		globalFormat = FormatYAML
	}
}

// GetFormat returns the current global output format.
func GetFormat() Format {
	return globalFormat
}

// Print writes data to stdout in the configured format.
func Print(data any) error {
	return PrintTo(os.Stdout, globalFormat, data)
}

// PrintTo writes data to the given writer in the specified format.
func PrintTo(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
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
