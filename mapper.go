/*
Package tablemap – Mapper type.

The Mapper holds the mapping index and the date formatter and converts
records between the application representation and the storage
representation.
*/
package tablemap

// MapperParams configures a Mapper. Either Index or Mappings must be set.
type MapperParams struct {
	Mappings Mappings
	Index    *Index
	Dates    DateFormatter // nil → Converter in DefaultTimeZone
	Logger   Logger        // nil → default (info+error only)
	Verbose  bool          // true → also log trace/data
}

// Mapper converts records in both directions. It is safe for concurrent use.
type Mapper struct {
	index *Index
	dates DateFormatter
	log   Logger
}

// NewMapper builds a Mapper, indexing Mappings when no Index is given.
func NewMapper(params MapperParams) (*Mapper, error) {
	m := &Mapper{index: params.Index, dates: params.Dates}
	if m.index == nil {
		if params.Mappings == nil {
			return nil, NewError("Missing mappings", WithCode(ErrArgument))
		}
		idx, err := NewIndex(params.Mappings)
		if err != nil {
			return nil, err
		}
		m.index = idx
	}
	if m.dates == nil {
		c, err := NewConverter(DefaultTimeZone)
		if err != nil {
			return nil, err
		}
		m.dates = c
	}
	if params.Logger != nil {
		m.log = params.Logger
	} else {
		m.log = defaultLogger(params.Verbose)
	}
	return m, nil
}

// Index returns the mapping index.
func (m *Mapper) Index() *Index { return m.index }

// Logger returns the logger in use.
func (m *Mapper) Logger() Logger { return m.log }

// FieldsForTable returns the bindings of tableID, optionally restricted to
// refNames.
func (m *Mapper) FieldsForTable(tableID string, refNames ...string) ([]FieldMapping, error) {
	return m.index.FieldsForTable(tableID, refNames...)
}
