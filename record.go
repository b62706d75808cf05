/*
Package tablemap – record shapes on both sides of the mapping.
*/
package tablemap

import (
	"encoding/json"
	"sort"
)

// RecordFields is the application-side flat record, keyed by reference name
// (or field id when EncodeOptions.UseFieldID / DecodeOptions.UseIDs is set).
//
// Values may be string, any numeric type, bool, SelectField, []SelectField,
// Collaborator, []Attachment, time.Time, or their generic JSON equivalents
// (map[string]any, []any).
type RecordFields map[string]any

// SelectField is a select option or a linked record reference.
type SelectField struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// Collaborator is a user of the base.
type Collaborator struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Thumbnail is one rendered size of an attachment.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Attachment is a file attached to a record.
type Attachment struct {
	ID         string               `json:"id,omitempty"`
	URL        string               `json:"url"`
	Filename   string               `json:"filename,omitempty"`
	Size       int64                `json:"size,omitempty"`
	Type       string               `json:"type,omitempty"`
	Thumbnails map[string]Thumbnail `json:"thumbnails,omitempty"`
}

// LockedRecordFields is the storage-side record keyed by field id. It is
// read-only once produced by the encoder.
type LockedRecordFields struct {
	m map[string]any
}

// Get returns the value stored for fieldID.
func (l LockedRecordFields) Get(fieldID string) (any, bool) {
	v, ok := l.m[fieldID]
	return v, ok
}

// Len is the number of fields.
func (l LockedRecordFields) Len() int { return len(l.m) }

// Keys returns the field ids, sorted.
func (l LockedRecordFields) Keys() []string {
	keys := make([]string, 0, len(l.m))
	for k := range l.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the underlying field map.
func (l LockedRecordFields) Map() map[string]any {
	out := make(map[string]any, len(l.m))
	for k, v := range l.m {
		out[k] = v
	}
	return out
}

func (l LockedRecordFields) MarshalJSON() ([]byte, error) {
	if l.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(l.m)
}

// AppRecord is the application-facing read result.
type AppRecord struct {
	ID      string       `json:"id"`
	Name    string       `json:"name,omitempty"`
	TableID string       `json:"tableId,omitempty"`
	Fields  RecordFields `json:"fields"`
}

// UnmarshalFields decodes the record fields into v, typically a struct with
// json tags named after the reference names.
func (r AppRecord) UnmarshalFields(v any) error {
	b, err := json.Marshal(r.Fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// RecordUpdate is one update sent to the local storage collaborator.
type RecordUpdate struct {
	ID     string
	Fields LockedRecordFields
}

// RemoteRecord is the wire record of the remote API. Fields are keyed by
// field name on read and by field id on write.
type RemoteRecord struct {
	ID          string         `json:"id,omitempty"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

// DeletedRecord is one entry of a remote delete response.
type DeletedRecord struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// StorageRecord is a record read from the local storage collaborator.
type StorageRecord interface {
	ID() string
	Name() string
	CellValue(fieldID string) any
	CellValueAsString(fieldID string) string
}
