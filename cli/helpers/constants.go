package helpers

import (
	"fmt"
	"strings"
)

// OutputFormat represents different output formats
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatJSONL OutputFormat = "jsonl"
	OutputFormatTable OutputFormat = "table"
	OutputFormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates a --format value against the allowed formats.
func ParseOutputFormat(value string, allowed ...OutputFormat) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(value)))
	for _, candidate := range allowed {
		if format == candidate {
			return format, nil
		}
	}
	names := make([]string, len(allowed))
	for i := range allowed {
		names[i] = string(allowed[i])
	}
	return "", NewCliError(
		"INVALID_FORMAT",
		fmt.Sprintf("unsupported output format %q", value),
		"expected one of: "+strings.Join(names, ", "),
	)
}
