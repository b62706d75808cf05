package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	tablemap "github.com/cloudxsgmbh/tablemap-go"
)

// Table is one table of a Store. It implements tablemap.Table.
type Table struct {
	store   *Store
	def     TableDef
	fields  map[string]tablemap.Field
	byFName map[string]tablemap.Field
}

func newTable(s *Store, def TableDef) *Table {
	t := &Table{
		store:   s,
		def:     def,
		fields:  make(map[string]tablemap.Field, len(def.Fields)),
		byFName: make(map[string]tablemap.Field, len(def.Fields)),
	}
	for _, f := range def.Fields {
		t.fields[f.ID] = f
		t.byFName[f.Name] = f
	}
	return t
}

func (t *Table) ID() string             { return t.def.ID }
func (t *Table) Name() string           { return t.def.Name }
func (t *Table) PrimaryFieldID() string { return t.def.PrimaryFieldID }

// Field resolves a field by id, then by name.
func (t *Table) Field(idOrName string) (tablemap.Field, error) {
	if f, ok := t.fields[idOrName]; ok {
		return f, nil
	}
	if f, ok := t.byFName[idOrName]; ok {
		return f, nil
	}
	return tablemap.Field{}, tablemap.NewError(fmt.Sprintf("Field %s does not exist in table %s", idOrName, t.def.ID),
		tablemap.WithCode(tablemap.ErrArgument))
}

// View resolves a view by id, then by name.
func (t *Table) View(idOrName string) (tablemap.View, error) {
	for _, v := range t.def.Views {
		if v.ID == idOrName || v.Name == idOrName {
			return v, nil
		}
	}
	return tablemap.View{}, tablemap.NewError(fmt.Sprintf("View %s does not exist in table %s", idOrName, t.def.ID),
		tablemap.WithCode(tablemap.ErrArgument))
}

func (t *Table) fieldID(idOrName string) string {
	if f, err := t.Field(idOrName); err == nil {
		return f.ID
	}
	return idOrName
}

// SelectRecords loads the records of the table. opts.Fields restricts the
// loaded cells; opts.Sorts orders the result, first sort first.
func (t *Table) SelectRecords(ctx context.Context, opts tablemap.SelectOptions) (*tablemap.QueryResult, error) {
	items, err := t.store.query(ctx, t.def.ID)
	if err != nil {
		return nil, err
	}
	var keep map[string]bool
	if len(opts.Fields) > 0 {
		keep = make(map[string]bool, len(opts.Fields)+1)
		for _, f := range opts.Fields {
			keep[t.fieldID(f)] = true
		}
	}
	records := make([]*Record, 0, len(items))
	for _, it := range items {
		rec := &Record{id: it.SK, table: t, cells: it.Fields}
		// the name is computed before the cells are restricted
		rec.name = rec.CellValueAsString(t.def.PrimaryFieldID)
		if keep != nil {
			cells := make(map[string]any, len(keep))
			for id, v := range it.Fields {
				if keep[id] {
					cells[id] = v
				}
			}
			rec.cells = cells
		}
		records = append(records, rec)
	}
	if len(opts.Sorts) > 0 {
		t.sortRecords(records, opts.Sorts)
	}
	res := &tablemap.QueryResult{
		RecordIDs: make([]string, len(records)),
		Records:   make([]tablemap.StorageRecord, len(records)),
	}
	for i, r := range records {
		res.RecordIDs[i] = r.id
		res.Records[i] = r
	}
	t.store.log.Trace("Selected records", map[string]any{"tableId": t.def.ID, "count": len(records)})
	return res, nil
}

func (t *Table) sortRecords(records []*Record, sorts []tablemap.QuerySort) {
	ids := make([]string, len(sorts))
	for i, s := range sorts {
		ids[i] = t.fieldID(s.Field)
	}
	sort.SliceStable(records, func(i, j int) bool {
		for k, s := range sorts {
			c := compareCells(records[i].rawCell(ids[k]), records[j].rawCell(ids[k]))
			if c == 0 {
				continue
			}
			if strings.EqualFold(s.Direction, "desc") {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func (t *Table) checkChunk(n int) error {
	if n > tablemap.LocalChunkSize {
		return tablemap.NewError(fmt.Sprintf("At most %d records per call, got %d", tablemap.LocalChunkSize, n),
			tablemap.WithCode(tablemap.ErrArgument))
	}
	return nil
}

// CreateRecords stores new records and returns their generated ids.
func (t *Table) CreateRecords(ctx context.Context, records []tablemap.LockedRecordFields) ([]string, error) {
	if err := t.checkChunk(len(records)); err != nil {
		return nil, err
	}
	ids := make([]string, len(records))
	reqs := make([]types.WriteRequest, len(records))
	for i, r := range records {
		cells := r.Map()
		for k, v := range cells {
			if v == nil {
				delete(cells, k)
			}
		}
		ids[i] = newRecordID()
		av, err := attributevalue.MarshalMap(item{PK: t.def.ID, SK: ids[i], Fields: cells})
		if err != nil {
			return nil, tablemap.NewError("Could not marshal record", tablemap.WithCode(tablemap.ErrInvalidRecord), tablemap.WithCause(err))
		}
		reqs[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: av}}
	}
	if err := t.store.writeChunks(ctx, reqs); err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateRecords sets the given cells of existing records. Nil values clear
// the cell.
func (t *Table) UpdateRecords(ctx context.Context, updates []tablemap.RecordUpdate) error {
	if err := t.checkChunk(len(updates)); err != nil {
		return err
	}
	for _, u := range updates {
		input, err := t.buildUpdate(u)
		if err != nil {
			return err
		}
		if input == nil {
			continue
		}
		if _, err := t.store.client.UpdateItem(ctx, input); err != nil {
			if isConditionalFailed(err) {
				return tablemap.NewError(fmt.Sprintf("Record %s does not exist in table %s", u.ID, t.def.ID),
					tablemap.WithCode(tablemap.ErrInvalidRecord), tablemap.WithCause(err))
			}
			return tablemap.NewError("UpdateItem failed", tablemap.WithCode(tablemap.ErrTransport), tablemap.WithCause(err))
		}
	}
	return nil
}

// buildUpdate renders "SET #fields.#f0 = :v0, ... REMOVE #fields.#f1, ...".
func (t *Table) buildUpdate(u tablemap.RecordUpdate) (*ddb.UpdateItemInput, error) {
	if u.ID == "" {
		return nil, tablemap.NewError("Update without record id", tablemap.WithCode(tablemap.ErrInvalidRecord))
	}
	names := map[string]string{"#pk": "pk", "#fields": "fields"}
	values := map[string]types.AttributeValue{}
	var set, remove []string
	for i, id := range u.Fields.Keys() {
		name := fmt.Sprintf("#f%d", i)
		names[name] = id
		v, _ := u.Fields.Get(id)
		if v == nil {
			remove = append(remove, "#fields."+name)
			continue
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, tablemap.NewError("Could not marshal cell "+id, tablemap.WithCode(tablemap.ErrInvalidRecord), tablemap.WithCause(err))
		}
		val := fmt.Sprintf(":v%d", i)
		values[val] = av
		set = append(set, fmt.Sprintf("#fields.%s = %s", name, val))
	}
	if len(set) == 0 && len(remove) == 0 {
		return nil, nil
	}
	var expr []string
	if len(set) > 0 {
		expr = append(expr, "SET "+strings.Join(set, ", "))
	}
	if len(remove) > 0 {
		expr = append(expr, "REMOVE "+strings.Join(remove, ", "))
	}
	input := &ddb.UpdateItemInput{
		TableName:                aws.String(t.store.name),
		Key:                      key(t.def.ID, u.ID),
		UpdateExpression:         aws.String(strings.Join(expr, " ")),
		ConditionExpression:      aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames: names,
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}
	return input, nil
}

// DeleteRecords removes records by id.
func (t *Table) DeleteRecords(ctx context.Context, ids []string) error {
	if err := t.checkChunk(len(ids)); err != nil {
		return err
	}
	reqs := make([]types.WriteRequest, len(ids))
	for i, id := range ids {
		reqs[i] = types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key(t.def.ID, id)}}
	}
	return t.store.writeChunks(ctx, reqs)
}

// GetRecord reads one record by id.
func (t *Table) GetRecord(ctx context.Context, id string) (*Record, error) {
	out, err := t.store.client.GetItem(ctx, &ddb.GetItemInput{
		TableName:      aws.String(t.store.name),
		Key:            key(t.def.ID, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, tablemap.NewError("GetItem failed", tablemap.WithCode(tablemap.ErrTransport), tablemap.WithCause(err))
	}
	if len(out.Item) == 0 {
		return nil, tablemap.NewError(fmt.Sprintf("Record %s does not exist in table %s", id, t.def.ID),
			tablemap.WithCode(tablemap.ErrInvalidRecord))
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, tablemap.NewError("Invalid stored record", tablemap.WithCode(tablemap.ErrInvalidRecord), tablemap.WithCause(err))
	}
	rec := &Record{id: it.SK, table: t, cells: it.Fields}
	rec.name = rec.CellValueAsString(t.def.PrimaryFieldID)
	return rec, nil
}
