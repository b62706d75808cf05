package tablemap_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tm "github.com/cloudxsgmbh/tablemap-go"
)

// ─── mapping fixture ──────────────────────────────────────────────────────────

func bind(table, id, name string, typ tm.FieldType) tm.FieldMapping {
	return tm.FieldMapping{TableID: table, FieldID: id, FieldName: name, FieldType: typ}
}

var productMappings = tm.Mappings{
	{
		{Key: "name", Fields: []tm.FieldMapping{
			bind("tbl1", "fld_name", "Name", tm.SingleLineText),
			bind("tblErrors", "fld_err_name", "Name", tm.SingleLineText),
		}},
		{Key: "price", Fields: []tm.FieldMapping{bind("tbl1", "fld_price", "Price", tm.Number)}},
		{Key: "in-stock", Fields: []tm.FieldMapping{bind("tbl1", "fld_stock", "In Stock", tm.Checkbox)}},
		{Key: "due-date", Fields: []tm.FieldMapping{bind("tbl1", "fld_due", "Due", tm.Date)}},
		{Key: "shipped-at", Fields: []tm.FieldMapping{bind("tbl1", "fld_shipped", "Shipped", tm.DateTime)}},
		{Key: "suppliers", Fields: []tm.FieldMapping{bind("tbl1", "fld_suppliers", "Suppliers", tm.MultipleRecordLinks)}},
		{Key: "tags", Fields: []tm.FieldMapping{bind("tbl1", "fld_tags", "Tags", tm.MultipleSelects)}},
		{Key: "status", Fields: []tm.FieldMapping{bind("tbl1", "fld_status", "Status", tm.SingleSelect)}},
		{Key: "owner", Fields: []tm.FieldMapping{bind("tbl1", "fld_owner", "Owner", tm.SingleCollaborator)}},
		{Key: "photos", Fields: []tm.FieldMapping{bind("tbl1", "fld_photos", "Photos", tm.MultipleAttachments)}},
		{Key: "notes", Fields: []tm.FieldMapping{bind("tbl1", "fld_notes", "Notes", tm.RichText)}},
		{Key: "created", Fields: []tm.FieldMapping{bind("tbl1", "fld_created", "Created", tm.CreatedTime)}},
		{Key: "total", Fields: []tm.FieldMapping{bind("tbl1", "fld_total", "Total", tm.Formula)}},
	},
	{
		{Key: "error-type", Fields: []tm.FieldMapping{bind("tblErrors", "fld_err_type", "Type", tm.SingleLineText)}},
		{Key: "error-message", Fields: []tm.FieldMapping{bind("tblErrors", "fld_err_msg", "Message", tm.MultilineText)}},
	},
}

// simpleMappings only holds scalar field types.
var simpleMappings = tm.Mappings{
	tm.Group(map[string][]tm.FieldMapping{
		"title":       {bind("tblSimple", "fldTitle", "Title", tm.SingleLineText)},
		"description": {bind("tblSimple", "fldDesc", "Description", tm.MultilineText)},
		"quantity":    {bind("tblSimple", "fldQty", "Quantity", tm.Number)},
		"done":        {bind("tblSimple", "fldDone", "Done", tm.Checkbox)},
		"created-on":  {bind("tblSimple", "fldCreated", "Created", tm.CreatedTime)},
	}),
}

func eastern(t *testing.T) *tm.Converter {
	t.Helper()
	c, err := tm.NewConverter(tm.DefaultTimeZone)
	require.NoError(t, err)
	c.Now = func() time.Time { return time.Date(2024, 3, 5, 12, 0, 0, 0, c.Location) }
	return c
}

func newMapper(t *testing.T, mappings tm.Mappings) *tm.Mapper {
	t.Helper()
	m, err := tm.NewMapper(tm.MapperParams{Mappings: mappings, Dates: eastern(t), Logger: tm.NopLogger{}})
	require.NoError(t, err)
	return m
}

func bg() context.Context { return context.Background() }

// logRecorder captures log lines by level.
type logRecorder struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newLogRecorder() (*logRecorder, tm.FuncLogger) {
	r := &logRecorder{lines: map[string][]string{}}
	return r, tm.FuncLogger{Fn: func(level, msg string, _ map[string]any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.lines[level] = append(r.lines[level], msg)
	}}
}

func (r *logRecorder) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines[level])
}

// ─── local storage fake ───────────────────────────────────────────────────────

type fakeRecord struct {
	id    string
	name  string
	cells map[string]any
}

func (r *fakeRecord) ID() string { return r.id }
func (r *fakeRecord) Name() string { return r.name }
func (r *fakeRecord) CellValue(id string) any { return r.cells[id] }
func (r *fakeRecord) CellValueAsString(id string) string {
	v := r.cells[id]
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "rendered"
}

type fakeTable struct {
	id        string
	records   []*fakeRecord
	calls     map[string][]int // operation → chunk sizes
	failAfter int              // fail the n-th create call (1-based), 0 = never
	updated   []tm.RecordUpdate
	deleted   []string
	nextID    int
	lastSel   tm.SelectOptions
}

func newFakeTable(id string) *fakeTable {
	return &fakeTable{id: id, calls: map[string][]int{}}
}

func (t *fakeTable) ID() string             { return t.id }
func (t *fakeTable) Name() string           { return t.id + " name" }
func (t *fakeTable) PrimaryFieldID() string { return "fld_name" }

func (t *fakeTable) Field(id string) (tm.Field, error) {
	return tm.Field{ID: id, Name: id, Type: tm.SingleLineText}, nil
}

func (t *fakeTable) View(id string) (tm.View, error) {
	return tm.View{ID: id, Name: id, Type: tm.ViewGrid}, nil
}

func (t *fakeTable) SelectRecords(_ context.Context, opts tm.SelectOptions) (*tm.QueryResult, error) {
	t.lastSel = opts
	res := &tm.QueryResult{}
	for _, r := range t.records {
		res.RecordIDs = append(res.RecordIDs, r.id)
		res.Records = append(res.Records, r)
	}
	return res, nil
}

func (t *fakeTable) CreateRecords(_ context.Context, recs []tm.LockedRecordFields) ([]string, error) {
	t.calls["create"] = append(t.calls["create"], len(recs))
	if t.failAfter > 0 && len(t.calls["create"]) == t.failAfter {
		return nil, tm.NewError("storage down", tm.WithCode(tm.ErrTransport))
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		t.nextID++
		ids[i] = fmt.Sprintf("rec%05d", t.nextID)
		name, _ := r.Get("fld_name")
		s, _ := name.(string)
		t.records = append(t.records, &fakeRecord{id: ids[i], name: s, cells: r.Map()})
	}
	return ids, nil
}

func (t *fakeTable) UpdateRecords(_ context.Context, updates []tm.RecordUpdate) error {
	t.calls["update"] = append(t.calls["update"], len(updates))
	t.updated = append(t.updated, updates...)
	return nil
}

func (t *fakeTable) DeleteRecords(_ context.Context, ids []string) error {
	t.calls["delete"] = append(t.calls["delete"], len(ids))
	t.deleted = append(t.deleted, ids...)
	return nil
}

type fakeBase struct {
	tables map[string]*fakeTable
}

func (b *fakeBase) Name() string { return "Test Base" }

func (b *fakeBase) Table(id string) (tm.Table, error) {
	if t, ok := b.tables[id]; ok {
		return t, nil
	}
	return nil, tm.NewError("no such table "+id, tm.WithCode(tm.ErrInvalidTable))
}
