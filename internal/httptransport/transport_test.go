package httptransport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/formset/pkg/dataset"
)

func TestTransportReadRequestShape(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[{"code":"A"}],"total":1}`))
	}))
	defer server.Close()

	transport := New(server.URL, WithHeader("Authorization", "Bearer token"))
	resp, err := transport.Do(context.Background(), &dataset.Request{
		Operation: dataset.OpRead,
		URL:       "/dataset/items/queries",
		Params:    map[string]any{"page": 2, "pagesize": 10, "codeLike": "A"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/dataset/items/queries", got.URL.Path)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "10", got.URL.Query().Get("pagesize"))
	assert.Equal(t, "A", got.URL.Query().Get("codeLike"))
	assert.Equal(t, "Bearer token", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get("X-Request-Id"))
	assert.Empty(t, gotBody, "reads carry no body")

	rows, _ := resp["rows"].([]any)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, resp["total"].(float64))
}

func TestTransportSubmitBody(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	transport := New(server.URL)
	resp, err := transport.Do(context.Background(), &dataset.Request{
		Operation: dataset.OpCreate,
		URL:       "/dataset/items/mutations",
		Data:      []map[string]any{{"code": "A", "__status": "add"}},
	})

	require.NoError(t, err)
	assert.Nil(t, resp, "no content means nothing to merge")
	assert.JSONEq(t, `[{"code":"A","__status":"add"}]`, string(gotBody))
}

func TestTransportStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	transport := New(server.URL)
	_, err := transport.Do(context.Background(), &dataset.Request{
		Operation: dataset.OpRead,
		URL:       "/dataset/items/queries",
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestDecodeResponseShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    map[string]any
	}{
		{
			name:    "object passes through",
			payload: `{"rows":[]}`,
			want:    map[string]any{"rows": []any{}},
		},
		{
			name:    "bare bool wraps under valid",
			payload: `false`,
			want:    map[string]any{"valid": false},
		},
		{
			name:    "bool array wraps under valid",
			payload: `[true,false]`,
			want:    map[string]any{"valid": []any{true, false}},
		},
		{
			name:    "row array wraps under rows",
			payload: `[{"code":"A"}]`,
			want:    map[string]any{"rows": []any{map[string]any{"code": "A"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeResponse([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
