// Package importer parses uploaded CSV files and feeds their rows, one at a
// time, to a caller-supplied handler.
//
// A file is parsed completely before the first row is handed over, so a
// structurally broken file never causes a write. Rows are then independent:
// a rejected row is collected with its reason and the rest keep going.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrFileMalformed is returned when the file cannot be read against its schema
var ErrFileMalformed = errors.New("import file is malformed")

// Kind names the entity a file imports
type Kind string

const (
	KindMenuItems Kind = "menu_items"
	KindEmployees Kind = "employees"
)

// Column is one header of a schema
type Column struct {
	Name     string
	Required bool
}

// Schema describes the header a file of Kind must carry
type Schema struct {
	Kind    Kind
	Columns []Column
}

// MenuItemSchema is the header of a menu item file
var MenuItemSchema = Schema{
	Kind: KindMenuItems,
	Columns: []Column{
		{Name: "name", Required: true},
		{Name: "price", Required: true},
	},
}

// EmployeeSchema is the header of an employee file
var EmployeeSchema = Schema{
	Kind: KindEmployees,
	Columns: []Column{
		{Name: "name", Required: true},
		{Name: "email", Required: true},
		{Name: "mobile_number", Required: true},
	},
}

// SchemaFor returns the schema of kind
func SchemaFor(kind Kind) (Schema, bool) {
	switch kind {
	case KindMenuItems:
		return MenuItemSchema, true
	case KindEmployees:
		return EmployeeSchema, true
	}
	return Schema{}, false
}

func (s Schema) column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Header returns the schema's column names in order
func (s Schema) Header() []string {
	header := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c.Name
	}
	return header
}

// Row is one data line of a file
type Row struct {
	// Line is the 1-based line number in the file, header included
	Line   int
	Fields []string

	header []string
}

// Get returns the trimmed value of column, or "" when absent
func (r Row) Get(column string) string {
	for i, name := range r.header {
		if name == column && i < len(r.Fields) {
			return strings.TrimSpace(r.Fields[i])
		}
	}
	return ""
}

// Sheet is a fully parsed file
type Sheet struct {
	Schema Schema
	Header []string
	Rows   []Row
}

// Parse reads the whole file of r against schema. Any structural problem
// (unreadable CSV, ragged rows, missing, duplicate or unknown columns)
// returns an error wrapping ErrFileMalformed.
func Parse(r io.Reader, schema Schema) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	raw, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ErrFileMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileMalformed, err)
	}

	header, err := parseHeader(raw, schema)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Schema: schema, Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFileMalformed, err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		sheet.Rows = append(sheet.Rows, Row{Line: line, Fields: record, header: header})
	}
	return sheet, nil
}

func parseHeader(raw []string, schema Schema) ([]string, error) {
	header := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))

	for i, name := range raw {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := schema.column(name); !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrFileMalformed, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrFileMalformed, name)
		}
		seen[name] = true
		header[i] = name
	}

	for _, c := range schema.Columns {
		if c.Required && !seen[c.Name] {
			return nil, fmt.Errorf("%w: missing column %q", ErrFileMalformed, c.Name)
		}
	}
	return header, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// RowHandler persists one row. Returning an error rejects the row; its
// message becomes the rejection reason.
type RowHandler func(ctx context.Context, row Row) error

// RejectedRow is a row that was not imported
type RejectedRow struct {
	Line   int      `json:"line"`
	Values []string `json:"values"`
	Reason string   `json:"reason"`
}

// Result is the outcome of running a sheet
type Result struct {
	Kind     Kind          `json:"kind"`
	Header   []string      `json:"header"`
	Imported int           `json:"imported_count"`
	Rejected []RejectedRow `json:"rejected_rows"`
}

// HasRejections reports whether any row was rejected
func (r *Result) HasRejections() bool {
	return len(r.Rejected) > 0
}

// Run hands every row of sheet to handle in file order. A failing row never
// stops its siblings; a cancelled ctx rejects the rows not yet attempted.
func Run(ctx context.Context, sheet *Sheet, handle RowHandler) *Result {
	result := &Result{
		Kind:     sheet.Schema.Kind,
		Header:   sheet.Header,
		Rejected: []RejectedRow{},
	}

	for _, row := range sheet.Rows {
		err := ctx.Err()
		if err == nil {
			err = handle(ctx, row)
		}
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRow{
				Line:   row.Line,
				Values: append([]string(nil), row.Fields...),
				Reason: err.Error(),
			})
			continue
		}
		result.Imported++
	}
	return result
}

// RejectedCSV rebuilds the rejected rows under the original header
func (r *Result) RejectedCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(r.Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range r.Rejected {
		if err := w.Write(row.Values); err != nil {
			return nil, fmt.Errorf("failed to write line %d: %w", row.Line, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// SampleCSV returns a header plus one example row for kind
func SampleCSV(kind Kind) ([]byte, error) {
	schema, ok := SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}

	var example []string
	switch kind {
	case KindMenuItems:
		example = []string{"Veg Thali", "120.00"}
	case KindEmployees:
		example = []string{"Jane Doe", "jane.doe@example.com", "9876543210"}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(schema.Header())
	_ = w.Write(example)
	w.Flush()
	return buf.Bytes(), w.Error()
}
