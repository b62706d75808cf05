/*
Package tablemap – decoding storage records into application records.
*/
package tablemap

import "fmt"

// DecodeOptions tunes DecodeRecords. All options default to false.
type DecodeOptions struct {
	// UseIDs keys the output by field id instead of reference name.
	UseIDs bool
	// IgnoreLinkedFields leaves linked record fields out of the output.
	IgnoreLinkedFields bool
}

func (o *DecodeOptions) key(fm FieldMapping) string {
	if o.UseIDs {
		return fm.FieldID
	}
	return fm.RefName
}

func (m *Mapper) decodeFields(tableID string, fields []FieldMapping) ([]FieldMapping, error) {
	if len(fields) > 0 {
		return fields, nil
	}
	return m.index.FieldsForTable(tableID)
}

// DecodeRecords converts records read from the local storage collaborator.
// fields restricts the decoded fields; empty means every binding of the
// table. An empty records list yields nil.
func (m *Mapper) DecodeRecords(tableID string, records []StorageRecord, fields []FieldMapping, opts *DecodeOptions) ([]AppRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if opts == nil {
		opts = &DecodeOptions{}
	}
	fields, err := m.decodeFields(tableID, fields)
	if err != nil {
		return nil, err
	}
	out := make([]AppRecord, 0, len(records))
	for i, rec := range records {
		if isNil(rec) {
			return nil, invalidRecord(tableID, i)
		}
		values := make(RecordFields, len(fields))
		for _, fm := range fields {
			if opts.IgnoreLinkedFields && fm.FieldType == MultipleRecordLinks {
				continue
			}
			key := opts.key(fm)
			raw := rec.CellValue(fm.FieldID)
			if raw == nil {
				values[key] = nil
				continue
			}
			switch fm.FieldType {
			case Number:
				n, err := toNumber(raw)
				if err != nil {
					return nil, valueError(fm.RefName, "Invalid number in record %s field %s: %v", rec.ID(), fm.RefName, err)
				}
				values[key] = n
			case RichText, Checkbox, SingleSelect, SingleCollaborator:
				values[key] = raw
			case MultipleRecordLinks, MultipleSelects, MultipleAttachments:
				values[key] = wrapList(raw)
			default:
				values[key] = rec.CellValueAsString(fm.FieldID)
			}
		}
		out = append(out, AppRecord{ID: rec.ID(), Name: rec.Name(), TableID: tableID, Fields: values})
	}
	return out, nil
}

// DecodeRemoteRecords converts records read from the remote API, whose
// fields are keyed by field name. Values without a dedicated rule pass
// through unchanged.
func (m *Mapper) DecodeRemoteRecords(tableID string, records []RemoteRecord, fields []FieldMapping, opts *DecodeOptions) ([]AppRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if opts == nil {
		opts = &DecodeOptions{}
	}
	fields, err := m.decodeFields(tableID, fields)
	if err != nil {
		return nil, err
	}
	out := make([]AppRecord, 0, len(records))
	for i, rec := range records {
		if rec.ID == "" && rec.Fields == nil {
			return nil, invalidRecord(tableID, i)
		}
		values := make(RecordFields, len(fields))
		for _, fm := range fields {
			if opts.IgnoreLinkedFields && fm.FieldType == MultipleRecordLinks {
				continue
			}
			key := opts.key(fm)
			raw := rec.Fields[fm.FieldName]
			if raw == nil {
				values[key] = nil
				continue
			}
			switch fm.FieldType {
			case Number:
				n, err := toNumber(raw)
				if err != nil {
					return nil, valueError(fm.RefName, "Invalid number in record %s field %s: %v", rec.ID, fm.RefName, err)
				}
				values[key] = n
			case MultipleRecordLinks, MultipleSelects, MultipleAttachments:
				values[key] = wrapList(raw)
			default:
				values[key] = raw
			}
		}
		out = append(out, AppRecord{ID: rec.ID, TableID: tableID, Fields: values})
	}
	return out, nil
}

func invalidRecord(tableID string, i int) *Error {
	return NewError(fmt.Sprintf("Records array has an invalid item at %d", i),
		WithCode(ErrInvalidRecord), WithContext(map[string]any{"tableId": tableID, "index": i}))
}
