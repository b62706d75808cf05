package dynamo

import (
	"strconv"
	"strings"
)

// Record is a stored record. It implements tablemap.StorageRecord.
type Record struct {
	id    string
	name  string
	table *Table
	cells map[string]any
}

func (r *Record) ID() string   { return r.id }
func (r *Record) Name() string { return r.name }

func (r *Record) rawCell(fieldID string) any { return r.cells[fieldID] }

// CellValue returns the cell of a field given by id or name.
func (r *Record) CellValue(fieldIDOrName string) any {
	return r.cells[r.table.fieldID(fieldIDOrName)]
}

// CellValueAsString renders the cell as display text.
func (r *Record) CellValueAsString(fieldIDOrName string) string {
	return renderCell(r.CellValue(fieldIDOrName))
}

// renderCell: strings as is, numbers in shortest form, booleans "checked"
// or empty, objects by name (attachments by filename or url), lists joined
// with ", ".
func renderCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		if c {
			return "checked"
		}
		return ""
	case map[string]any:
		for _, k := range []string{"name", "filename", "url", "id"} {
			if s, ok := c[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	case []any:
		parts := make([]string, 0, len(c))
		for _, e := range c {
			if s := renderCell(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// compareCells orders numbers numerically and everything else by display
// text. Empty cells sort first.
func compareCells(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		}
		return 1
	}
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(renderCell(a), renderCell(b))
}
