/*
Package tablemap – HTTP transport for the remote API.
*/
package tablemap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the root of the remote API.
const DefaultAPIURL = "https://api.airtable.com"

// Fetcher issues one call to the remote API and returns the JSON response
// body. body is marshalled to JSON when non-nil.
type Fetcher interface {
	Fetch(ctx context.Context, path, method string, body any) (json.RawMessage, error)
}

// TransportParams configures an HTTPTransport.
type TransportParams struct {
	URL    string       // "" → DefaultAPIURL
	Token  string       // bearer token, required for every call
	Client *http.Client // nil → client with a 30s timeout
	Logger Logger       // nil → default
}

// HTTPTransport is the default Fetcher.
type HTTPTransport struct {
	url    string
	token  string
	client *http.Client
	log    Logger
}

// NewHTTPTransport creates an HTTPTransport. A missing token is reported by
// the first Fetch, before any network activity.
func NewHTTPTransport(params TransportParams) *HTTPTransport {
	t := &HTTPTransport{
		url:    strings.TrimRight(params.URL, "/"),
		token:  params.Token,
		client: params.Client,
		log:    params.Logger,
	}
	if t.url == "" {
		t.url = DefaultAPIURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}
	if t.log == nil {
		t.log = defaultLogger(false)
	}
	return t
}

// apiError is the error body returned by the remote API.
type apiError struct {
	Error json.RawMessage `json:"error"`
}

func (t *HTTPTransport) Fetch(ctx context.Context, path, method string, body any) (json.RawMessage, error) {
	if t.token == "" {
		return nil, NewError("Missing API token", WithCode(ErrMissingCredential))
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, NewError("Could not encode request body", WithCode(ErrArgument), WithCause(err))
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.url+path, reader)
	if err != nil {
		return nil, NewError("Could not build request", WithCode(ErrArgument), WithCause(err))
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	t.log.Trace("Remote call", map[string]any{"method": method, "path": path})
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, NewError(fmt.Sprintf("%s %s failed", method, path), WithCode(ErrTransport), WithCause(err))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(fmt.Sprintf("%s %s: could not read response", method, path),
			WithCode(ErrTransport), WithCause(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		info := map[string]any{"method": method, "path": path, "status": resp.StatusCode}
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && len(ae.Error) > 0 {
			info["error"] = string(ae.Error)
		}
		t.log.Error("Remote call failed", info)
		return nil, NewError(fmt.Sprintf("%s %s", method, path),
			WithCode(ErrTransport), WithStatus(resp.StatusCode, text), WithContext(info))
	}
	return json.RawMessage(data), nil
}
