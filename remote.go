/*
Package tablemap – RemoteClient type.

RemoteClient talks to the remote REST API of a base. Reads follow offset
pagination; writes are sent in envelopes of RemoteChunkSize records, one
envelope per call, one call at a time.
*/
package tablemap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// RemoteParams configures a RemoteClient.
type RemoteParams struct {
	Fetcher Fetcher
	Mapper  *Mapper
	BaseID  string
	Logger  Logger // nil → the Mapper's logger
	// ChunkSize overrides RemoteChunkSize.
	ChunkSize int
	// Typecast asks the API to convert string values for select fields.
	Typecast bool
}

// RemoteClient performs mapped record operations over the remote API.
type RemoteClient struct {
	fetcher  Fetcher
	mapper   *Mapper
	baseID   string
	log      Logger
	chunk    int
	typecast bool
}

// NewRemoteClient creates a RemoteClient.
func NewRemoteClient(params RemoteParams) (*RemoteClient, error) {
	if params.Fetcher == nil {
		return nil, NewError("Missing fetcher", WithCode(ErrArgument))
	}
	if params.Mapper == nil {
		return nil, NewError("Missing mapper", WithCode(ErrArgument))
	}
	if params.BaseID == "" {
		return nil, NewError("Missing base id", WithCode(ErrArgument))
	}
	r := &RemoteClient{
		fetcher:  params.Fetcher,
		mapper:   params.Mapper,
		baseID:   params.BaseID,
		log:      params.Logger,
		chunk:    params.ChunkSize,
		typecast: params.Typecast,
	}
	if r.log == nil {
		r.log = params.Mapper.Logger()
	}
	if r.chunk <= 0 {
		r.chunk = RemoteChunkSize
	}
	return r, nil
}

// Query holds the read parameters of Get. Zero values are not sent.
type Query struct {
	View            string
	Fields          []string
	FilterByFormula string
	MaxRecords      int
	PageSize        int
	Sort            []QuerySort
}

type queryParam struct{ key, value string }

// queryString serializes params in order. Keys are written verbatim so
// array keys keep their brackets; values are escaped.
func queryString(params []queryParam) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func (q *Query) params(offset string) []queryParam {
	var ps []queryParam
	if q != nil {
		if q.View != "" {
			ps = append(ps, queryParam{"view", q.View})
		}
		for _, f := range q.Fields {
			ps = append(ps, queryParam{"fields[]", f})
		}
		if q.FilterByFormula != "" {
			ps = append(ps, queryParam{"filterByFormula", q.FilterByFormula})
		}
		if q.MaxRecords > 0 {
			ps = append(ps, queryParam{"maxRecords", strconv.Itoa(q.MaxRecords)})
		}
		if q.PageSize > 0 {
			ps = append(ps, queryParam{"pageSize", strconv.Itoa(q.PageSize)})
		}
		for i, s := range q.Sort {
			ps = append(ps, queryParam{fmt.Sprintf("sort[%d][field]", i), s.Field})
			if s.Direction != "" {
				ps = append(ps, queryParam{fmt.Sprintf("sort[%d][direction]", i), s.Direction})
			}
		}
	}
	if offset != "" {
		ps = append(ps, queryParam{"offset", offset})
	}
	return ps
}

func (r *RemoteClient) path(tableID string) string {
	return "/v0/" + url.PathEscape(r.baseID) + "/" + url.PathEscape(tableID)
}

type listResponse struct {
	Records []RemoteRecord `json:"records"`
	Offset  string         `json:"offset,omitempty"`
}

type writeEnvelope struct {
	Records  []RemoteRecord `json:"records"`
	Typecast bool           `json:"typecast,omitempty"`
}

type writeOne struct {
	Fields   map[string]any `json:"fields"`
	Typecast bool           `json:"typecast,omitempty"`
}

type deleteResponse struct {
	Records []DeletedRecord `json:"records"`
}

func decodeBody(raw json.RawMessage, v any, method, path string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return NewError(fmt.Sprintf("%s %s: invalid response body", method, path),
			WithCode(ErrTransport), WithCause(err))
	}
	return nil
}

// Get reads every record of tableID matching q, following pagination until
// a page carries no offset. Pages are concatenated in order.
func (r *RemoteClient) Get(ctx context.Context, tableID string, q *Query) ([]RemoteRecord, error) {
	var (
		out    []RemoteRecord
		offset string
	)
	for {
		path := r.path(tableID) + queryString(q.params(offset))
		raw, err := r.fetcher.Fetch(ctx, path, http.MethodGet, nil)
		if err != nil {
			return out, err
		}
		var page listResponse
		if err := decodeBody(raw, &page, http.MethodGet, path); err != nil {
			return out, err
		}
		out = append(out, page.Records...)
		if page.Offset == "" {
			return out, nil
		}
		offset = page.Offset
	}
}

// Post creates records, RemoteChunkSize per call.
func (r *RemoteClient) Post(ctx context.Context, tableID string, records []RemoteRecord) ([]RemoteRecord, error) {
	return r.doUpdateRequest(ctx, http.MethodPost, tableID, records)
}

// PostOne creates a single record with one direct call.
func (r *RemoteClient) PostOne(ctx context.Context, tableID string, record RemoteRecord) (RemoteRecord, error) {
	return r.doSingleRequest(ctx, http.MethodPost, tableID, record)
}

// Patch updates the given fields of records, RemoteChunkSize per call.
func (r *RemoteClient) Patch(ctx context.Context, tableID string, records []RemoteRecord) ([]RemoteRecord, error) {
	return r.doUpdateRequest(ctx, http.MethodPatch, tableID, records)
}

// PatchOne updates a single record with one direct call.
func (r *RemoteClient) PatchOne(ctx context.Context, tableID string, record RemoteRecord) (RemoteRecord, error) {
	return r.doSingleRequest(ctx, http.MethodPatch, tableID, record)
}

// Put replaces records, clearing fields not sent, RemoteChunkSize per call.
func (r *RemoteClient) Put(ctx context.Context, tableID string, records []RemoteRecord) ([]RemoteRecord, error) {
	return r.doUpdateRequest(ctx, http.MethodPut, tableID, records)
}

// PutOne replaces a single record with one direct call.
func (r *RemoteClient) PutOne(ctx context.Context, tableID string, record RemoteRecord) (RemoteRecord, error) {
	return r.doSingleRequest(ctx, http.MethodPut, tableID, record)
}

// doUpdateRequest groups records into envelopes and throttles them one
// envelope, hence one call, at a time.
func (r *RemoteClient) doUpdateRequest(ctx context.Context, method, tableID string, records []RemoteRecord) ([]RemoteRecord, error) {
	path := r.path(tableID)
	envelopes := Envelopes(records, r.chunk)
	return Throttle(ctx, envelopes, 1, func(ctx context.Context, chunk [][]RemoteRecord) ([]RemoteRecord, error) {
		env := chunk[0]
		r.log.Trace("Remote write", map[string]any{"method": method, "tableId": tableID, "count": len(env)})
		raw, err := r.fetcher.Fetch(ctx, path, method, writeEnvelope{Records: env, Typecast: r.typecast})
		if err != nil {
			return nil, err
		}
		var resp listResponse
		if err := decodeBody(raw, &resp, method, path); err != nil {
			return nil, err
		}
		return resp.Records, nil
	})
}

func (r *RemoteClient) doSingleRequest(ctx context.Context, method, tableID string, record RemoteRecord) (RemoteRecord, error) {
	path := r.path(tableID)
	if method != http.MethodPost {
		if record.ID == "" {
			return RemoteRecord{}, NewError(method+" requires a record id", WithCode(ErrArgument))
		}
		path += "/" + url.PathEscape(record.ID)
	}
	raw, err := r.fetcher.Fetch(ctx, path, method, writeOne{Fields: record.Fields, Typecast: r.typecast})
	if err != nil {
		return RemoteRecord{}, err
	}
	var out RemoteRecord
	if err := decodeBody(raw, &out, method, path); err != nil {
		return RemoteRecord{}, err
	}
	return out, nil
}

// Delete removes records by id, RemoteChunkSize ids per call.
func (r *RemoteClient) Delete(ctx context.Context, tableID string, ids []string) ([]DeletedRecord, error) {
	base := r.path(tableID)
	return Throttle(ctx, ids, r.chunk, func(ctx context.Context, chunk []string) ([]DeletedRecord, error) {
		params := make([]queryParam, len(chunk))
		for i, id := range chunk {
			params[i] = queryParam{"records[]", id}
		}
		path := base + queryString(params)
		r.log.Trace("Remote delete", map[string]any{"tableId": tableID, "count": len(chunk)})
		raw, err := r.fetcher.Fetch(ctx, path, http.MethodDelete, nil)
		if err != nil {
			return nil, err
		}
		var resp deleteResponse
		if err := decodeBody(raw, &resp, http.MethodDelete, path); err != nil {
			return nil, err
		}
		return resp.Records, nil
	})
}

// GetRecords reads and decodes the records of tableID.
func (r *RemoteClient) GetRecords(ctx context.Context, tableID string, q *Query, opts *DecodeOptions) ([]AppRecord, error) {
	fields, err := r.mapper.FieldsForTable(tableID)
	if err != nil {
		return nil, err
	}
	recs, err := r.Get(ctx, tableID, q)
	if err != nil {
		return nil, err
	}
	return r.mapper.DecodeRemoteRecords(tableID, recs, fields, opts)
}

// encodeAll encodes records for a remote write. Records failing to encode
// are left out and reported by position.
func (r *RemoteClient) encodeAll(tableID string, ids []string, records []RecordFields, opts *EncodeOptions) ([]RemoteRecord, []int, error) {
	out := make([]RemoteRecord, 0, len(records))
	var skipped []int
	for i, fields := range records {
		locked, err := r.mapper.EncodeFields(tableID, fields, opts)
		if err != nil {
			if IsCode(err, ErrInvalidTable) {
				return nil, nil, err
			}
			skipped = append(skipped, i)
			continue
		}
		rec := RemoteRecord{Fields: locked.Map()}
		if ids != nil {
			rec.ID = ids[i]
		}
		out = append(out, rec)
	}
	return out, skipped, nil
}

// CreateRecords encodes and creates application records and returns the
// created records decoded. Positions of records that failed to encode are
// returned in skipped.
func (r *RemoteClient) CreateRecords(ctx context.Context, tableID string, records []RecordFields, opts *EncodeOptions) ([]AppRecord, []int, error) {
	recs, skipped, err := r.encodeAll(tableID, nil, records, opts)
	if err != nil {
		return nil, nil, err
	}
	created, err := r.Post(ctx, tableID, recs)
	if err != nil {
		return nil, skipped, err
	}
	decoded, err := r.mapper.DecodeRemoteRecords(tableID, created, nil, nil)
	return decoded, skipped, err
}

// UpdateRecords patches application records. Only encoded fields are sent,
// so pass EncodeOptions.FieldsOnly to leave absent fields untouched.
// Records without an id or failing to encode are skipped and their positions
// returned.
func (r *RemoteClient) UpdateRecords(ctx context.Context, tableID string, records []AppRecord, opts *EncodeOptions) ([]AppRecord, []int, error) {
	return r.writeAppRecords(ctx, http.MethodPatch, tableID, records, opts)
}

// ReplaceRecords puts application records, clearing unsent fields.
func (r *RemoteClient) ReplaceRecords(ctx context.Context, tableID string, records []AppRecord, opts *EncodeOptions) ([]AppRecord, []int, error) {
	return r.writeAppRecords(ctx, http.MethodPut, tableID, records, opts)
}

func (r *RemoteClient) writeAppRecords(ctx context.Context, method, tableID string, records []AppRecord, opts *EncodeOptions) ([]AppRecord, []int, error) {
	var (
		ids     []string
		fields  []RecordFields
		pos     []int
		skipped []int
	)
	for i, rec := range records {
		if rec.ID == "" {
			skipped = append(skipped, i)
			continue
		}
		ids = append(ids, rec.ID)
		fields = append(fields, rec.Fields)
		pos = append(pos, i)
	}
	recs, failed, err := r.encodeAll(tableID, ids, fields, opts)
	if err != nil {
		return nil, nil, err
	}
	for _, i := range failed {
		skipped = append(skipped, pos[i])
	}
	sort.Ints(skipped)
	written, err := r.doUpdateRequest(ctx, method, tableID, recs)
	if err != nil {
		return nil, skipped, err
	}
	decoded, err := r.mapper.DecodeRemoteRecords(tableID, written, nil, nil)
	return decoded, skipped, err
}

// DeleteRecords removes records by id and returns the ids the API reports
// as deleted.
func (r *RemoteClient) DeleteRecords(ctx context.Context, tableID string, ids []string) ([]string, error) {
	res, err := r.Delete(ctx, tableID, ids)
	out := make([]string, 0, len(res))
	for _, d := range res {
		if d.Deleted {
			out = append(out, d.ID)
		}
	}
	return out, err
}
