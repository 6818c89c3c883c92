package core

import "strings"

// Default header names of the contact table.
const (
	DefaultPhoneColumn = "phone Number"
	DefaultNameColumn  = "nurse Name"
)

// Columns names the contact-table headers that carry the required fields.
// Matching is exact and case-sensitive after trimming the header cell.
type Columns struct {
	Phone string
	Name  string
}

// DefaultColumns returns the reference header names.
func DefaultColumns() Columns {
	return Columns{Phone: DefaultPhoneColumn, Name: DefaultNameColumn}
}

// ContactRow is one data row of the contact table mapped onto its header.
type ContactRow struct {
	Index  int // 0-based position among data rows
	Fields map[string]string
	Phone  string
	Name   string
}

// Skippable reports whether the row lacks a phone number or a name.
func (r ContactRow) Skippable() bool {
	return r.Phone == "" || r.Name == ""
}

// MapRow maps row cells to header names by position.
// Header names are trimmed. Cells beyond the header are ignored and
// header columns without a cell map to "". A repeated header name keeps
// the last column.
func MapRow(index int, header, row []string, cols Columns) ContactRow {
	fields := make(map[string]string, len(header))
	for i, h := range header {
		var v string
		if i < len(row) {
			v = row[i]
		}
		fields[strings.TrimSpace(h)] = v
	}
	return ContactRow{
		Index:  index,
		Fields: fields,
		Phone:  strings.TrimSpace(fields[cols.Phone]),
		Name:   strings.TrimSpace(fields[cols.Name]),
	}
}
