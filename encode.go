/*
Package tablemap – encoding application records into storage records.
*/
package tablemap

// EncodeOptions tunes EncodeFields. All options default to false.
type EncodeOptions struct {
	// UseFieldID reads the application record by field id instead of
	// reference name.
	UseFieldID bool
	// NoNull omits fields whose value is nil instead of writing null.
	NoNull bool
	// FieldsOnly skips fields absent from the application record instead of
	// writing null. Explicit nil values are still written unless NoNull.
	FieldsOnly bool
}

// EncodeFields converts fields into a storage record for tableID. Any field
// failing its type contract fails the whole record; the failure is logged
// and returned, and no partial record is produced.
func (m *Mapper) EncodeFields(tableID string, fields RecordFields, opts *EncodeOptions) (LockedRecordFields, error) {
	if opts == nil {
		opts = &EncodeOptions{}
	}
	mappings, err := m.index.FieldsForTable(tableID)
	if err != nil {
		m.log.Error(err.Error(), map[string]any{"tableId": tableID})
		return LockedRecordFields{}, err
	}
	out := make(map[string]any, len(mappings))
	for _, fm := range mappings {
		key := fm.RefName
		if opts.UseFieldID {
			key = fm.FieldID
		}
		value, present := fields[key]
		if isNil(value) {
			switch {
			case !present && opts.FieldsOnly:
			case fm.FieldType.class() == classReadOnly:
			case !opts.NoNull:
				out[fm.FieldID] = nil
			}
			continue
		}
		encoded, skip, err := m.encodeValue(fm, value)
		if err != nil {
			ctx := map[string]any{"tableId": tableID, "field": fm.RefName, "fieldId": fm.FieldID, "type": fm.FieldType}
			m.log.Error("Could not encode record: "+err.Error(), ctx)
			if e, ok := err.(*Error); ok && e.Context == nil {
				e.Context = ctx
			}
			return LockedRecordFields{}, err
		}
		if !skip {
			out[fm.FieldID] = encoded
		}
	}
	m.log.Data("Encoded record", map[string]any{"tableId": tableID, "fields": out})
	return LockedRecordFields{m: out}, nil
}

// encodeValue applies the write rule of the field type. skip reports a
// read-only field that must not be written.
func (m *Mapper) encodeValue(fm FieldMapping, value any) (encoded any, skip bool, err error) {
	ref := fm.RefName
	switch fm.FieldType.class() {
	case classText:
		return stringify(value), false, nil

	case classNumber:
		n, err := toNumber(value)
		if err != nil {
			return nil, false, valueError(ref, "Invalid number value for %s: %v", ref, err)
		}
		return n, false, nil

	case classCheckbox:
		return encodeCheckbox(ref, value)

	case classDate:
		s, err := m.dates.Date(value)
		if err != nil {
			return nil, false, valueError(ref, "Invalid date value for %s: %v", ref, err)
		}
		return s, false, nil

	case classDateTime:
		s, err := m.dates.DateTime(value)
		if err != nil {
			return nil, false, valueError(ref, "Invalid date time value for %s: %v", ref, err)
		}
		return s, false, nil

	case classRecordLinks:
		return encodeRecordLinks(ref, value)

	case classSingleSelect:
		if _, isList := asList(value); isList {
			return nil, false, valueError(ref, "%s can not be an array", ref)
		}
		sel, err := encodeSelect(ref, value)
		return sel, false, err

	case classMultiSelect:
		return encodeMultiSelect(ref, value)

	case classAttachments:
		return encodeAttachments(ref, value)

	case classReadOnly:
		return nil, true, nil
	}
	return nil, false, NewError("Invalid field type "+string(fm.FieldType),
		WithCode(ErrInvalidFieldType), WithContext(map[string]any{"field": ref}))
}

func encodeCheckbox(ref string, value any) (any, bool, error) {
	switch v := value.(type) {
	case bool:
		return v, false, nil
	case string:
		switch v {
		case "checked", "true":
			return true, false, nil
		case "unchecked", "false", "":
			return false, false, nil
		}
	}
	return nil, false, valueError(ref, "Invalid checkbox value: %v for %s", value, ref)
}

func encodeRecordLinks(ref string, value any) (any, bool, error) {
	list, ok := asList(value)
	if !ok {
		return nil, false, valueError(ref, "%s is required to be an array", ref)
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		if _, bare := item.(string); bare {
			return nil, false, valueError(ref, "%s must be an object, not a bare identifier", ref)
		}
		obj, ok := asObject(item)
		if !ok || str(obj, "id") == "" {
			return nil, false, valueError(ref, "%s linked records require an id", ref)
		}
		out = append(out, map[string]any{"id": str(obj, "id")})
	}
	return out, false, nil
}

func encodeSelect(ref string, value any) (map[string]any, error) {
	if s, ok := value.(string); ok {
		return map[string]any{"name": s}, nil
	}
	obj, ok := asObject(value)
	if !ok {
		return nil, valueError(ref, "Invalid select value: %v for %s", value, ref)
	}
	if id := str(obj, "id"); id != "" {
		return map[string]any{"id": id}, nil
	}
	if name := str(obj, "name"); name != "" {
		return map[string]any{"name": name}, nil
	}
	return nil, valueError(ref, "%s requires an id or a name", ref)
}

func encodeMultiSelect(ref string, value any) (any, bool, error) {
	list, ok := asList(value)
	if !ok {
		return nil, false, valueError(ref, "%s must be an array with either an ID or Name", ref)
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case nil:
			continue
		case string:
			if v != "" {
				out = append(out, map[string]any{"name": v})
			}
			continue
		}
		obj, ok := asObject(item)
		if !ok {
			return nil, false, valueError(ref, "Invalid select value: %v for %s", item, ref)
		}
		if id := str(obj, "id"); id != "" {
			out = append(out, map[string]any{"id": id})
		} else if name := str(obj, "name"); name != "" {
			out = append(out, map[string]any{"name": name})
		}
	}
	return out, false, nil
}

func encodeAttachments(ref string, value any) (any, bool, error) {
	list, ok := asList(value)
	if !ok || len(list) == 0 {
		return nil, false, valueError(ref, "%s must be a non-empty array of attachments", ref)
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		obj, ok := asObject(item)
		if !ok || str(obj, "url") == "" {
			return nil, false, valueError(ref, "Every attachment of %s requires a url", ref)
		}
		att := map[string]any{"url": str(obj, "url")}
		if fn := str(obj, "filename"); fn != "" {
			att["filename"] = fn
		}
		out = append(out, att)
	}
	return out, false, nil
}
