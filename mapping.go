/*
Package tablemap – mapping configuration and the mapping index.

A mapping configuration is a list of groups. Each group maps configuration
keys ("due-date") to field bindings, at most one per table. The Index is
built once from the configuration and is read-only afterwards.
*/
package tablemap

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FieldMapping is one declared field binding.
type FieldMapping struct {
	TableID   string    `yaml:"tableId" json:"tableId"`
	FieldID   string    `yaml:"fieldId,omitempty" json:"fieldId,omitempty"`
	FieldName string    `yaml:"fieldName,omitempty" json:"fieldName,omitempty"`
	FieldType FieldType `yaml:"fieldType,omitempty" json:"fieldType,omitempty"`
	// RefName is derived from the configuration key by NewIndex.
	RefName string `yaml:"-" json:"refName,omitempty"`
}

// MappingEntry is one configuration key with its bindings.
type MappingEntry struct {
	Key    string
	Fields []FieldMapping
}

// MappingGroup is an ordered set of configuration keys.
type MappingGroup []MappingEntry

// Mappings is the full mapping configuration.
type Mappings []MappingGroup

// Group builds a MappingGroup from a plain map. Keys are sorted so the
// resulting order is deterministic.
func Group(m map[string][]FieldMapping) MappingGroup {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	g := make(MappingGroup, 0, len(keys))
	for _, k := range keys {
		g = append(g, MappingEntry{Key: k, Fields: m[k]})
	}
	return g
}

// FormatKey derives a reference name from a kebab-case configuration key:
// "due-date" → "dueDate". The first segment is kept as is, later segments
// get their first letter upper-cased.
func FormatKey(key string) string {
	parts := strings.Split(key, "-")
	var b strings.Builder
	for i, p := range parts {
		if i == 0 || p == "" {
			b.WriteString(p)
			continue
		}
		r, size := utf8.DecodeRuneInString(p)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(p[size:])
	}
	return b.String()
}

type tableIndex struct {
	fields []FieldMapping
	byRef  map[string]int
	byID   map[string]int
}

// Index resolves the field bindings of a table. It is immutable once built
// and safe for concurrent use.
type Index struct {
	tables map[string]*tableIndex
}

// NewIndex flattens the configuration, derives every reference name and
// validates the uniqueness of field ids and reference names per table.
func NewIndex(mappings Mappings) (*Index, error) {
	idx := &Index{tables: map[string]*tableIndex{}}
	for gi, group := range mappings {
		for _, entry := range group {
			seen := map[string]bool{}
			for _, fm := range entry.Fields {
				if fm.TableID == "" {
					return nil, NewError(fmt.Sprintf("Mapping %q in group %d has no table id", entry.Key, gi),
						WithCode(ErrConfig))
				}
				ti := idx.tables[fm.TableID]
				if ti == nil {
					ti = &tableIndex{byRef: map[string]int{}, byID: map[string]int{}}
					idx.tables[fm.TableID] = ti
				}
				// only the first binding with a field id counts for a table
				if fm.FieldID == "" || seen[fm.TableID] {
					continue
				}
				seen[fm.TableID] = true
				if _, err := ParseFieldType(string(fm.FieldType)); err != nil {
					return nil, NewError(fmt.Sprintf("Invalid field type %s for %s", fm.FieldType, entry.Key),
						WithCode(ErrInvalidFieldType),
						WithContext(map[string]any{"tableId": fm.TableID, "fieldId": fm.FieldID}))
				}
				fm.RefName = FormatKey(entry.Key)
				if _, dup := ti.byID[fm.FieldID]; dup {
					return nil, NewError(fmt.Sprintf("Duplicate field id %s in table %s", fm.FieldID, fm.TableID),
						WithCode(ErrConfig))
				}
				if _, dup := ti.byRef[fm.RefName]; dup {
					return nil, NewError(fmt.Sprintf("Duplicate reference name %s in table %s", fm.RefName, fm.TableID),
						WithCode(ErrConfig))
				}
				ti.byID[fm.FieldID] = len(ti.fields)
				ti.byRef[fm.RefName] = len(ti.fields)
				ti.fields = append(ti.fields, fm)
			}
		}
	}
	return idx, nil
}

// FieldsForTable returns the bindings of tableID in configuration order.
// When refNames are given the result is restricted to those names.
func (idx *Index) FieldsForTable(tableID string, refNames ...string) ([]FieldMapping, error) {
	ti, ok := idx.tables[tableID]
	if !ok {
		return nil, tableError(tableID)
	}
	if len(refNames) == 0 {
		out := make([]FieldMapping, len(ti.fields))
		copy(out, ti.fields)
		return out, nil
	}
	want := make(map[string]bool, len(refNames))
	for _, r := range refNames {
		want[r] = true
	}
	out := make([]FieldMapping, 0, len(refNames))
	for _, fm := range ti.fields {
		if want[fm.RefName] {
			out = append(out, fm)
		}
	}
	return out, nil
}

// Field returns the binding of refName in tableID.
func (idx *Index) Field(tableID, refName string) (FieldMapping, bool) {
	ti, ok := idx.tables[tableID]
	if !ok {
		return FieldMapping{}, false
	}
	i, ok := ti.byRef[refName]
	if !ok {
		return FieldMapping{}, false
	}
	return ti.fields[i], true
}

// FieldByID returns the binding of fieldID in tableID.
func (idx *Index) FieldByID(tableID, fieldID string) (FieldMapping, bool) {
	ti, ok := idx.tables[tableID]
	if !ok {
		return FieldMapping{}, false
	}
	i, ok := ti.byID[fieldID]
	if !ok {
		return FieldMapping{}, false
	}
	return ti.fields[i], true
}

// Tables lists every table referenced by the configuration, sorted.
func (idx *Index) Tables() []string {
	out := make([]string, 0, len(idx.tables))
	for id := range idx.tables {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
