// Package table loads delimited point observations from CSV and XLSX files
// into uniform records keyed by column name.
package table

import (
	"strings"
)

// Record is one row of named scalar fields.
type Record map[string]string

// Table holds parsed rows along with the column order of the source file.
type Table struct {
	Columns []string
	Records []Record
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// DropMissing returns a new table containing only records where every named
// column is present and non-empty. Record order is preserved.
func (t *Table) DropMissing(cols ...string) *Table {
	out := &Table{Columns: t.Columns}
	for _, rec := range t.Records {
		if recordComplete(rec, cols) {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

func recordComplete(rec Record, cols []string) bool {
	for _, c := range cols {
		v, ok := rec[c]
		if !ok || strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// fromRows builds a table from a header row plus data rows. Short rows are
// padded with empty fields; extra fields beyond the header are dropped.
func fromRows(header []string, rows [][]string) *Table {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}

	t := &Table{Columns: cols}
	for _, row := range rows {
		rec := make(Record, len(cols))
		for i, c := range cols {
			if i < len(row) {
				rec[c] = strings.TrimSpace(row[i])
			} else {
				rec[c] = ""
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t
}
