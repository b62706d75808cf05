/*
Package tablemap – the local storage collaborator.

Base and Table are implemented by the record store; the dynamo package
provides one backed by DynamoDB.
*/
package tablemap

import "context"

// Field is the metadata of a storage field.
type Field struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Type        FieldType `yaml:"type" json:"type"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// ViewType names the kind of a view.
type ViewType string

const (
	ViewGrid     ViewType = "grid"
	ViewForm     ViewType = "form"
	ViewCalendar ViewType = "calendar"
	ViewGallery  ViewType = "gallery"
	ViewKanban   ViewType = "kanban"
)

// View is the metadata of a table view.
type View struct {
	ID                string   `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	Type              ViewType `yaml:"type" json:"type"`
	PersonalForUserID string   `yaml:"personalForUserId,omitempty" json:"personalForUserId,omitempty"`
}

// QuerySort orders selected records by a field.
type QuerySort struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"` // "asc" (default) or "desc"
}

// RecordColorMode selects how record colors are computed.
type RecordColorMode string

const (
	ColorNone          RecordColorMode = "none"
	ColorBySelectField RecordColorMode = "bySelectField"
	ColorByView        RecordColorMode = "byView"
)

// SelectOptions restricts and orders a record selection. Zero values are
// not forwarded.
type SelectOptions struct {
	Fields          []string
	Sorts           []QuerySort
	RecordColorMode RecordColorMode
}

// QueryResult is the outcome of a record selection.
type QueryResult struct {
	RecordIDs []string
	Records   []StorageRecord
}

// Record returns the record with the given id.
func (q *QueryResult) Record(id string) (StorageRecord, bool) {
	for _, r := range q.Records {
		if !isNil(r) && r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// Base is a collection of tables.
type Base interface {
	Name() string
	// Table resolves a table by id or name.
	Table(idOrName string) (Table, error)
}

// Table is one table of a Base. Write operations accept at most
// LocalChunkSize records per call.
type Table interface {
	ID() string
	Name() string
	PrimaryFieldID() string
	Field(idOrName string) (Field, error)
	View(idOrName string) (View, error)
	SelectRecords(ctx context.Context, opts SelectOptions) (*QueryResult, error)
	CreateRecords(ctx context.Context, records []LockedRecordFields) ([]string, error)
	UpdateRecords(ctx context.Context, updates []RecordUpdate) error
	DeleteRecords(ctx context.Context, ids []string) error
}
