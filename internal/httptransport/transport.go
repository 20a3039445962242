// Package httptransport implements the dataset Transport contract over
// HTTP. Requests follow the /dataset/{name}/... endpoint conventions:
// parameters travel in the query string, bodies as JSON.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/formset/pkg/dataset"
)

// requestIDHeader correlates client requests with server logs.
const requestIDHeader = "X-Request-Id"

// StatusError reports a non-2xx response with the server's body preserved.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Transport talks to a dataset service at BaseURL.
type Transport struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// Option adjusts a Transport at construction.
type Option func(*Transport)

// WithClient overrides the HTTP client.
func WithClient(client *http.Client) Option {
	return func(t *Transport) { t.client = client }
}

// WithHeader adds a header to every request.
func WithHeader(name, value string) Option {
	return func(t *Transport) { t.headers[name] = value }
}

// New creates a Transport against baseURL.
func New(baseURL string, opts ...Option) *Transport {
	t := &Transport{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do implements dataset.Transport.
func (t *Transport) Do(ctx context.Context, req *dataset.Request) (map[string]any, error) {
	target, err := t.buildURL(req)
	if err != nil {
		return nil, err
	}
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	var body io.Reader
	if req.Data != nil {
		buf, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(requestIDHeader, uuid.NewString())
	for name, value := range t.headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(payload)}
	}
	if len(payload) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return decodeResponse(payload)
}

func (t *Transport) buildURL(req *dataset.Request) (string, error) {
	u, err := url.Parse(t.baseURL + req.URL)
	if err != nil {
		return "", err
	}
	query := u.Query()
	for name, value := range req.Params {
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				query.Add(name, item)
			}
		case []any:
			for _, item := range v {
				query.Add(name, fmt.Sprint(item))
			}
		default:
			query.Set(name, fmt.Sprint(v))
		}
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// decodeResponse normalizes the response shape. Servers may answer a
// validate probe with a bare bool or bool array; those wrap under "valid"
// so the engine always sees an object.
func decodeResponse(payload []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case bool:
		return map[string]any{"valid": v}, nil
	case []any:
		if allBools(v) {
			return map[string]any{"valid": v}, nil
		}
		return map[string]any{"rows": v}, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected response shape %T", raw)
	}
}

func allBools(items []any) bool {
	for _, item := range items {
		if _, ok := item.(bool); !ok {
			return false
		}
	}
	return len(items) > 0
}
