package helpers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"
)

// Table is tabular command output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// OutputWriter handles different output formats
type OutputWriter struct {
	writer io.Writer
	format OutputFormat
	color  bool
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(writer io.Writer, format OutputFormat, color bool) *OutputWriter {
	return &OutputWriter{
		writer: writer,
		format: format,
		color:  color,
	}
}

// Format returns the writer's output format.
func (ow *OutputWriter) Format() OutputFormat {
	return ow.format
}

// WriteData writes data in the writer's format. Table output needs a *Table.
func (ow *OutputWriter) WriteData(data any) error {
	switch ow.format {
	case OutputFormatJSON:
		return ow.writeJSON(data)
	case OutputFormatJSONL:
		return ow.WriteJSONLine(data)
	case OutputFormatYAML:
		return ow.writeYAML(data)
	case OutputFormatTable:
		t, ok := data.(*Table)
		if !ok {
			return fmt.Errorf("table output needs *helpers.Table, got %T", data)
		}
		return ow.writeTable(t)
	default:
		return fmt.Errorf("unsupported output format: %s", ow.format)
	}
}

func (ow *OutputWriter) writeJSON(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	out := pretty.Pretty(raw)
	if ow.color {
		out = pretty.Color(out, nil)
	}
	_, err = ow.writer.Write(out)
	return err
}

// WriteJSONLine writes data as one compact JSON document followed by a newline.
func (ow *OutputWriter) WriteJSONLine(data any) error {
	return json.NewEncoder(ow.writer).Encode(data)
}

func (ow *OutputWriter) writeYAML(data any) error {
	encoder := yaml.NewEncoder(ow.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode yaml output: %w", err)
	}
	return encoder.Close()
}

func (ow *OutputWriter) writeTable(t *Table) error {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Headers...).
		Rows(t.Rows...)
	if ow.color {
		header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
		cell := lipgloss.NewStyle().Padding(0, 1)
		tbl = tbl.StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	}
	_, err := fmt.Fprintln(ow.writer, tbl.String())
	return err
}
