package tablemap

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// stringify renders a text field value.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// toNumber is a numeric coercion: numbers pass, numeric strings parse, the
// empty string is zero and booleans are 0/1.
func toNumber(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, err
		}
	case bool:
		if n {
			f = 1
		}
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", v)
	}
	return f, nil
}

// isNil reports whether v is nil or a nil pointer, map or slice held in an
// interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// asList returns the elements of any slice or array value.
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asObject returns the keys of an object-shaped value: the record structs of
// this package or a generic JSON object.
func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case map[string]string:
		out := make(map[string]any, len(o))
		for k, s := range o {
			out[k] = s
		}
		return out, true
	case SelectField:
		return map[string]any{"id": o.ID, "name": o.Name, "color": o.Color}, true
	case *SelectField:
		if o == nil {
			return nil, false
		}
		return asObject(*o)
	case Collaborator:
		return map[string]any{"id": o.ID, "name": o.Name, "email": o.Email}, true
	case *Collaborator:
		if o == nil {
			return nil, false
		}
		return asObject(*o)
	case Attachment:
		return map[string]any{"id": o.ID, "url": o.URL, "filename": o.Filename}, true
	case *Attachment:
		if o == nil {
			return nil, false
		}
		return asObject(*o)
	}
	return nil, false
}

// str returns the non-empty string stored under key.
func str(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// wrapList normalizes a decoded multi-valued cell to a list.
func wrapList(v any) []any {
	if l, ok := asList(v); ok {
		return l
	}
	return []any{v}
}
