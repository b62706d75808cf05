/*
Package tablemap – Client type.

Client orchestrates record operations against a local storage Base: it
encodes application records through the Mapper and throttles writes to
LocalChunkSize records per storage call.
*/
package tablemap

import (
	"context"
	"fmt"
)

// ClientParams configures a Client.
type ClientParams struct {
	Base   Base
	Mapper *Mapper
	Logger Logger // nil → the Mapper's logger
	// ChunkSize overrides LocalChunkSize.
	ChunkSize int
}

// Client performs mapped record operations on a local Base.
type Client struct {
	base   Base
	mapper *Mapper
	log    Logger
	chunk  int
}

// NewClient creates a Client.
func NewClient(params ClientParams) (*Client, error) {
	if params.Base == nil {
		return nil, NewError("Missing base", WithCode(ErrArgument))
	}
	if params.Mapper == nil {
		return nil, NewError("Missing mapper", WithCode(ErrArgument))
	}
	c := &Client{base: params.Base, mapper: params.Mapper, log: params.Logger, chunk: params.ChunkSize}
	if c.log == nil {
		c.log = params.Mapper.Logger()
	}
	if c.chunk <= 0 {
		c.chunk = LocalChunkSize
	}
	return c, nil
}

// SelectTable resolves a table of the base by id or name.
func (c *Client) SelectTable(tableID string) (Table, error) {
	t, err := c.base.Table(tableID)
	if err != nil {
		return nil, NewError(fmt.Sprintf("Table id %s does not exist in base %s", tableID, c.base.Name()),
			WithCode(ErrInvalidTable), WithCause(err))
	}
	if t == nil {
		return nil, NewError(fmt.Sprintf("Table id %s does not exist in base %s", tableID, c.base.Name()),
			WithCode(ErrInvalidTable))
	}
	return t, nil
}

// SelectView returns a view of a table.
func (c *Client) SelectView(tableID, viewID string) (View, error) {
	t, err := c.SelectTable(tableID)
	if err != nil {
		return View{}, err
	}
	return t.View(viewID)
}

// SelectField returns a field of a table.
func (c *Client) SelectField(tableID, fieldID string) (Field, error) {
	t, err := c.SelectTable(tableID)
	if err != nil {
		return Field{}, err
	}
	return t.Field(fieldID)
}

// SelectTableAndRecords loads the records of a table.
func (c *Client) SelectTableAndRecords(ctx context.Context, tableID string, opts SelectOptions) (*QueryResult, error) {
	t, err := c.SelectTable(tableID)
	if err != nil {
		return nil, err
	}
	var sel SelectOptions
	if len(opts.Fields) > 0 {
		sel.Fields = opts.Fields
	}
	if len(opts.Sorts) > 0 {
		sel.Sorts = opts.Sorts
	}
	sel.RecordColorMode = opts.RecordColorMode
	c.log.Trace("Select records", map[string]any{"tableId": tableID, "fields": len(sel.Fields)})
	return t.SelectRecords(ctx, sel)
}

// SelectRecords loads and decodes the records of a table. refNames restricts
// the loaded fields; empty loads every mapped field.
func (c *Client) SelectRecords(ctx context.Context, tableID string, refNames []string, sorts []QuerySort, opts *DecodeOptions) ([]AppRecord, error) {
	fields, err := c.mapper.FieldsForTable(tableID, refNames...)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(fields))
	for i, fm := range fields {
		ids[i] = fm.FieldID
	}
	res, err := c.SelectTableAndRecords(ctx, tableID, SelectOptions{Fields: ids, Sorts: sorts})
	if err != nil {
		return nil, err
	}
	return c.mapper.DecodeRecords(tableID, res.Records, fields, opts)
}

// CreateRecords creates already encoded records and returns their ids in
// input order.
func (c *Client) CreateRecords(ctx context.Context, tableID string, records []LockedRecordFields) ([]string, error) {
	t, err := c.SelectTable(tableID)
	if err != nil {
		return nil, err
	}
	return Throttle(ctx, records, c.chunk, func(ctx context.Context, chunk []LockedRecordFields) ([]string, error) {
		c.log.Trace("Create records", map[string]any{"tableId": tableID, "count": len(chunk)})
		return t.CreateRecords(ctx, chunk)
	})
}

// CreateAppRecords encodes and creates application records. Records that
// fail to encode are skipped; their input positions are returned in skipped.
func (c *Client) CreateAppRecords(ctx context.Context, tableID string, records []RecordFields, opts *EncodeOptions) (ids []string, skipped []int, err error) {
	encoded := make([]LockedRecordFields, 0, len(records))
	for i, r := range records {
		locked, err := c.mapper.EncodeFields(tableID, r, opts)
		if err != nil {
			if IsCode(err, ErrInvalidTable) {
				return nil, nil, err
			}
			skipped = append(skipped, i)
			continue
		}
		encoded = append(encoded, locked)
	}
	ids, err = c.CreateRecords(ctx, tableID, encoded)
	return ids, skipped, err
}

// CreateErrorRecord writes an error report into tableID, which must map the
// reference names name, errorType and errorMessage.
func (c *Client) CreateErrorRecord(ctx context.Context, tableID, errorName, errorType, errorMessage string) error {
	record, err := c.mapper.EncodeFields(tableID, RecordFields{
		"name":         errorName,
		"errorType":    errorType,
		"errorMessage": errorMessage,
	}, nil)
	if err != nil {
		return err
	}
	_, err = c.CreateRecords(ctx, tableID, []LockedRecordFields{record})
	return err
}

// UpdateRecords applies already encoded updates.
func (c *Client) UpdateRecords(ctx context.Context, tableID string, updates []RecordUpdate) error {
	t, err := c.SelectTable(tableID)
	if err != nil {
		return err
	}
	_, err = Throttle(ctx, updates, c.chunk, func(ctx context.Context, chunk []RecordUpdate) ([]struct{}, error) {
		c.log.Trace("Update records", map[string]any{"tableId": tableID, "count": len(chunk)})
		return nil, t.UpdateRecords(ctx, chunk)
	})
	return err
}

// UpdateAppRecords encodes and applies updates given as application records.
// Records that fail to encode are skipped; their positions are returned.
func (c *Client) UpdateAppRecords(ctx context.Context, tableID string, records []AppRecord, opts *EncodeOptions) (skipped []int, err error) {
	updates := make([]RecordUpdate, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			skipped = append(skipped, i)
			continue
		}
		locked, err := c.mapper.EncodeFields(tableID, r.Fields, opts)
		if err != nil {
			if IsCode(err, ErrInvalidTable) {
				return nil, err
			}
			skipped = append(skipped, i)
			continue
		}
		updates = append(updates, RecordUpdate{ID: r.ID, Fields: locked})
	}
	return skipped, c.UpdateRecords(ctx, tableID, updates)
}

// RemoveRecords deletes records by id.
func (c *Client) RemoveRecords(ctx context.Context, tableID string, ids []string) error {
	t, err := c.SelectTable(tableID)
	if err != nil {
		return err
	}
	_, err = Throttle(ctx, ids, c.chunk, func(ctx context.Context, chunk []string) ([]struct{}, error) {
		c.log.Trace("Delete records", map[string]any{"tableId": tableID, "count": len(chunk)})
		return nil, t.DeleteRecords(ctx, chunk)
	})
	return err
}
