package dataset

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records every request and answers from a canned handler.
type fakeTransport struct {
	requests []*Request
	handler  func(req *Request) (map[string]any, error)
}

func (f *fakeTransport) Do(_ context.Context, req *Request) (map[string]any, error) {
	f.requests = append(f.requests, req)
	if f.handler == nil {
		return nil, nil
	}
	return f.handler(req)
}

func (f *fakeTransport) byOperation(operation string) []*Request {
	var out []*Request
	for _, req := range f.requests {
		if req.Operation == operation {
			out = append(out, req)
		}
	}
	return out
}

// pagedRows answers read requests with slices of a fixed row set.
func pagedRows(rows []map[string]any) func(req *Request) (map[string]any, error) {
	return func(req *Request) (map[string]any, error) {
		if req.Operation != OpRead {
			return nil, nil
		}
		page, _ := req.Params["page"].(int)
		size, _ := req.Params["pagesize"].(int)
		if page < 1 {
			page = 1
		}
		start := (page - 1) * size
		end := start + size
		if size <= 0 || start > len(rows) {
			return map[string]any{"rows": []any{}, "total": len(rows)}, nil
		}
		if end > len(rows) {
			end = len(rows)
		}
		out := make([]any, 0, end-start)
		for _, row := range rows[start:end] {
			out = append(out, row)
		}
		return map[string]any{"rows": out, "total": len(rows)}, nil
	}
}

func numberedRows(n int) []map[string]any {
	rows := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, map[string]any{"id": i, "code": fmt.Sprintf("R%d", i)})
	}
	return rows
}

func TestDataSetQueryPaging(t *testing.T) {
	transport := &fakeTransport{handler: pagedRows(numberedRows(5))}
	ds := New(Props{
		Name:      "items",
		Fields:    []FieldProps{{"name": "id"}, {"name": "code"}},
		Transport: transport,
		PageSize:  2,
	}, nil)
	ctx := context.Background()

	require.NoError(t, ds.Query(ctx, 1))
	assert.Equal(t, 2, ds.Length())
	assert.Equal(t, 5, ds.TotalCount())
	assert.Equal(t, 3, ds.TotalPage())
	assert.Equal(t, "R1", ds.Get(0).Get("code"))

	require.NoError(t, ds.NextPage(ctx))
	assert.Equal(t, 2, ds.CurrentPage())
	assert.Equal(t, "R3", ds.Get(0).Get("code"))
	assert.Equal(t, "R4", ds.Get(1).Get("code"))

	last := transport.requests[len(transport.requests)-1]
	assert.Equal(t, 2, last.Params["page"])
	assert.Equal(t, 2, last.Params["pagesize"])

	require.NoError(t, ds.LastPage(ctx))
	assert.Equal(t, 3, ds.CurrentPage())
	assert.Equal(t, 1, ds.Length())
	require.NoError(t, ds.NextPage(ctx), "next page beyond the last is a no-op")
	assert.Equal(t, 3, ds.CurrentPage())
}

func TestDataSetQueryVeto(t *testing.T) {
	transport := &fakeTransport{handler: pagedRows(numberedRows(3))}
	ds := New(Props{
		Name:      "items",
		Transport: transport,
		Events: map[string]Listener{
			EventQuery: func(e *Event) bool { return false },
		},
	}, nil)

	require.NoError(t, ds.Query(context.Background(), 1))
	assert.Empty(t, transport.requests, "a vetoed query must not hit the transport")
}

func TestDataSetQueryMergesQueryDataSetValues(t *testing.T) {
	transport := &fakeTransport{handler: pagedRows(numberedRows(1))}
	ds := New(Props{
		Name:        "items",
		Transport:   transport,
		QueryFields: []FieldProps{{"name": "codeLike"}},
		QueryParameter: map[string]any{
			"tenant": "t1",
		},
	}, nil)
	ds.QueryDataSet().Current().Set("codeLike", "R")

	require.NoError(t, ds.Query(context.Background(), 1))

	req := transport.requests[0]
	assert.Equal(t, "R", req.Params["codeLike"])
	assert.Equal(t, "t1", req.Params["tenant"])
}

func TestDataSetQueryInvalidQueryDataSet(t *testing.T) {
	transport := &fakeTransport{handler: pagedRows(numberedRows(1))}
	ds := New(Props{
		Name:        "items",
		Transport:   transport,
		QueryFields: []FieldProps{{"name": "from", "required": true}},
	}, nil)

	err := ds.Query(context.Background(), 1)

	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Empty(t, transport.requests)
}

func TestDataSetRemoveSemantics(t *testing.T) {
	t.Run("new record is removed physically", func(t *testing.T) {
		ds := newTestDataSet(nil)
		r := ds.Create(map[string]any{"code": "A"}, -1)

		ds.Remove(r)

		assert.Equal(t, 0, ds.Length())
		assert.Empty(t, ds.Destroyed())
	})

	t.Run("persisted record moves to delete status", func(t *testing.T) {
		ds := newTestDataSet([]map[string]any{{"code": "A"}, {"code": "B"}})
		r := ds.Get(0)

		ds.Remove(r)

		assert.Equal(t, 1, ds.Length())
		require.Len(t, ds.Destroyed(), 1)
		assert.Equal(t, StatusDelete, r.Status())
		assert.Equal(t, "B", ds.Current().Get("code"), "currency relocates off the removed record")
	})

	t.Run("before-remove veto keeps the record", func(t *testing.T) {
		ds := newTestDataSet([]map[string]any{{"code": "A"}})
		ds.AddEventListener(EventBeforeRemove, func(e *Event) bool { return false })

		ds.Remove(ds.Get(0))

		assert.Equal(t, 1, ds.Length())
	})
}

func TestDataSetResetRestoresRemovedRecords(t *testing.T) {
	ds := newTestDataSet([]map[string]any{{"code": "A"}, {"code": "B"}})
	ds.Get(0).Set("code", "X")
	ds.Remove(ds.Get(1))
	require.True(t, ds.Dirty())

	ds.Reset()

	assert.Equal(t, 2, ds.Length())
	assert.Equal(t, "A", ds.Get(0).Get("code"))
	assert.False(t, ds.Dirty())
}

func TestDataSetSubmitGroups(t *testing.T) {
	transport := &fakeTransport{handler: func(req *Request) (map[string]any, error) {
		rows, _ := req.Data.([]map[string]any)
		var echoed []any
		for _, row := range rows {
			out := deepCopyMap(row)
			delete(out, "__status")
			out["id"] = 99
			echoed = append(echoed, out)
		}
		return map[string]any{"rows": echoed}, nil
	}}
	ds := New(Props{
		Name:      "items",
		Fields:    []FieldProps{{"name": "id"}, {"name": "code"}},
		Transport: transport,
		Data:      []map[string]any{{"id": 1, "code": "A"}},
	}, nil)
	created := ds.Create(map[string]any{"code": "B"}, -1)

	resp, err := ds.Submit(context.Background())

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Len(t, transport.byOperation(OpCreate), 1, "one request for the created group")
	assert.Empty(t, transport.byOperation(OpUpdate), "clean records submit nothing")
	assert.Empty(t, transport.byOperation(OpDestroy))
	assert.Equal(t, StatusSync, created.Status())
	assert.EqualValues(t, 99, created.Get("id"), "server-assigned key merges back")
}

func TestDataSetSubmitNothingToDo(t *testing.T) {
	transport := &fakeTransport{}
	ds := New(Props{
		Name:      "items",
		Transport: transport,
		Data:      []map[string]any{{"code": "A"}},
	}, nil)

	resp, err := ds.Submit(context.Background())

	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, transport.requests)
}

func TestDataSetSubmitValidationFailure(t *testing.T) {
	transport := &fakeTransport{}
	ds := New(Props{
		Name:      "items",
		Fields:    []FieldProps{{"name": "code", "required": true, "label": "Code"}},
		Transport: transport,
	}, nil)
	ds.Create(nil, -1)

	_, err := ds.Submit(context.Background())

	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, transport.requests)

	errs := ds.GetValidationErrors()
	require.Len(t, errs, 1)
	require.Len(t, errs[0].Errors, 1)
	require.Len(t, errs[0].Errors[0].Errors, 1)
	assert.Equal(t, RuleValueMissing, errs[0].Errors[0].Errors[0].RuleName)
}

func TestDataSetSubmitDestroy(t *testing.T) {
	transport := &fakeTransport{handler: func(req *Request) (map[string]any, error) {
		return nil, nil
	}}
	ds := New(Props{
		Name:      "items",
		Fields:    []FieldProps{{"name": "code"}},
		Transport: transport,
		Data:      []map[string]any{{"code": "A"}, {"code": "B"}},
	}, nil)
	ds.Remove(ds.Get(0))

	_, err := ds.Submit(context.Background())

	require.NoError(t, err)
	assert.Len(t, transport.byOperation(OpDestroy), 1)
	assert.Equal(t, 1, ds.Length())
	assert.Equal(t, 1, ds.TotalCount(), "destroy decrements the total")
	assert.False(t, ds.Dirty())
}

func TestDataSetSubmitFailureRestoresDestroyed(t *testing.T) {
	transport := &fakeTransport{handler: func(req *Request) (map[string]any, error) {
		return nil, errors.New("backend down")
	}}
	ds := New(Props{
		Name:      "items",
		Fields:    []FieldProps{{"name": "code"}},
		Transport: transport,
		Data:      []map[string]any{{"code": "A"}},
	}, nil)
	r := ds.Get(0)
	ds.Remove(r)

	_, err := ds.Submit(context.Background())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, StatusSync, r.Status(), "failed destroy rolls the record back")
	assert.True(t, r.IsSelected(), "failed destroy re-selects for retry")
	assert.Equal(t, StatusReady, ds.Status())
}

func TestDataSetDeleteConfirmGate(t *testing.T) {
	transport := &fakeTransport{}
	declined := &Config{
		Confirm: func(ctx context.Context, message string) (bool, error) {
			return false, nil
		},
	}
	ds := New(Props{
		Name:      "items",
		Transport: transport,
		Data:      []map[string]any{{"code": "A"}},
	}, declined)

	resp, err := ds.Delete(context.Background(), ds.Get(0))

	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 1, ds.Length())
	assert.Empty(t, transport.requests)
}

func TestDataSetSortToggle(t *testing.T) {
	ds := New(Props{
		Name:   "items",
		Fields: []FieldProps{{"name": "quantity", "type": FieldNumber}},
		Data: []map[string]any{
			{"quantity": 3}, {"quantity": 1}, {"quantity": 2},
		},
	}, nil)

	ds.Sort("quantity")
	assert.Equal(t, SortAsc, ds.GetField("quantity").Order())
	assert.EqualValues(t, 1, toNumber(ds.Get(0).Get("quantity")))

	ds.Sort("quantity")
	assert.Equal(t, SortDesc, ds.GetField("quantity").Order())
	assert.EqualValues(t, 3, toNumber(ds.Get(0).Get("quantity")))
}

func TestDataSetSpliceAndSlice(t *testing.T) {
	ds := newTestDataSet([]map[string]any{{"code": "A"}, {"code": "B"}, {"code": "C"}})

	removed := ds.Splice(1, 1)
	require.Len(t, removed, 1)
	assert.Equal(t, "B", removed[0].Get("code"))
	assert.Equal(t, 2, ds.Length())

	window := ds.Slice(0, 2)
	require.Len(t, window, 2)
	assert.Equal(t, "A", window[0].Get("code"))
	assert.Equal(t, "C", window[1].Get("code"))
}

func TestDataSetLocateModifiedCheck(t *testing.T) {
	confirms := 0
	cfg := &Config{
		Confirm: func(ctx context.Context, message string) (bool, error) {
			confirms++
			return false, nil
		},
	}
	ds := New(Props{
		Name:          "items",
		Fields:        []FieldProps{{"name": "code"}},
		Data:          []map[string]any{{"code": "A"}, {"code": "B"}},
		ModifiedCheck: true,
	}, cfg)
	ds.Get(0).Set("code", "X")

	record, err := ds.Locate(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 1, confirms)
	assert.Equal(t, "X", record.Get("code"), "declined confirm keeps the current record")
	assert.Equal(t, ds.Get(0), ds.Current())
}

func TestDataSetFunctionalAccessors(t *testing.T) {
	ds := newTestDataSet([]map[string]any{{"code": "A"}, {"code": "B"}, {"code": "C"}})
	isB := func(r *Record) bool { return r.Get("code") == "B" }

	assert.Equal(t, "B", ds.Find(isB).Get("code"))
	assert.Equal(t, 1, ds.FindIndex(isB))
	assert.Nil(t, ds.Find(func(r *Record) bool { return false }))
	assert.Equal(t, -1, ds.FindIndex(func(r *Record) bool { return false }))

	assert.True(t, ds.Some(isB))
	assert.False(t, ds.Every(isB))
	assert.True(t, ds.Every(func(r *Record) bool { return r.Get("code") != "" }))

	assert.Len(t, ds.Filter(isB), 1)

	codes := ds.Map(func(r *Record) any { return r.Get("code") })
	assert.Equal(t, []any{"A", "B", "C"}, codes)

	visited := 0
	ds.ForEach(func(r *Record) { visited++ })
	assert.Equal(t, 3, visited)

	joined := ds.Reduce(func(acc any, r *Record) any {
		return acc.(string) + r.Get("code").(string)
	}, "")
	assert.Equal(t, "ABC", joined)
}

func TestDataSetSubmitCreateRaisesTotal(t *testing.T) {
	transport := &fakeTransport{handler: func(req *Request) (map[string]any, error) {
		rows, _ := req.Data.([]map[string]any)
		var echoed []any
		for _, row := range rows {
			out := deepCopyMap(row)
			delete(out, "__status")
			out["id"] = 7
			echoed = append(echoed, out)
		}
		return map[string]any{"rows": echoed}, nil
	}}
	ds := New(Props{
		Name:      "items",
		Fields:    []FieldProps{{"name": "id"}, {"name": "code"}},
		Transport: transport,
		Data:      []map[string]any{{"id": 1, "code": "A"}},
	}, nil)
	require.Equal(t, 1, ds.TotalCount())
	ds.Create(map[string]any{"code": "B"}, -1)

	_, err := ds.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, ds.Length())
	assert.Equal(t, 2, ds.TotalCount(), "committed create raises the total")
}

func TestDataSetPageWithPagingDisabled(t *testing.T) {
	transport := &fakeTransport{handler: pagedRows(numberedRows(5))}
	ds := New(Props{
		Name:      "items",
		Transport: transport,
		Paging:    boolPtr(false),
	}, nil)

	require.NoError(t, ds.Page(context.Background(), 2))

	assert.Equal(t, 1, ds.CurrentPage())
	assert.Empty(t, transport.requests, "page change on a non-paging dataset is a no-op")
}

func TestDataSetSubmitWithSelectedOnly(t *testing.T) {
	transport := &fakeTransport{handler: func(req *Request) (map[string]any, error) {
		rows, _ := req.Data.([]map[string]any)
		var echoed []any
		for i, row := range rows {
			out := deepCopyMap(row)
			delete(out, "__status")
			out["id"] = 100 + i
			echoed = append(echoed, out)
		}
		return map[string]any{"rows": echoed}, nil
	}}
	ds := New(Props{
		Name:      "items",
		Fields:    []FieldProps{{"name": "id"}, {"name": "code"}},
		Transport: transport,
	}, nil)
	picked := ds.Create(map[string]any{"code": "A"}, -1)
	skipped := ds.Create(map[string]any{"code": "B"}, -1)
	ds.Select(picked)

	_, err := ds.SubmitWith(context.Background(), true, false)

	require.NoError(t, err)
	creates := transport.byOperation(OpCreate)
	require.Len(t, creates, 1)
	rows, _ := creates[0].Data.([]map[string]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0]["code"])
	assert.Equal(t, StatusSync, picked.Status())
	assert.Equal(t, StatusAdd, skipped.Status(), "unselected records stay behind")
}

func TestDataSetSubmitPropagatesStatusToChildren(t *testing.T) {
	var child *DataSet
	var observed string
	transport := &fakeTransport{handler: func(req *Request) (map[string]any, error) {
		observed = child.Status()
		rows, _ := req.Data.([]map[string]any)
		var echoed []any
		for _, row := range rows {
			out := deepCopyMap(row)
			delete(out, "__status")
			echoed = append(echoed, out)
		}
		return map[string]any{"rows": echoed}, nil
	}}
	master := New(Props{
		Name:      "orders",
		Fields:    []FieldProps{{"name": "code"}},
		Transport: transport,
		Data:      []map[string]any{{"code": "A", "lines": []any{}}},
	}, nil)
	child = New(Props{
		Name:   "lines",
		Fields: []FieldProps{{"name": "sku"}},
	}, nil)
	master.Bind(child, "lines")
	master.Get(0).Set("code", "B")

	_, err := master.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusSubmitting, observed, "children submit alongside the master")
	assert.Equal(t, StatusReady, child.Status())
	assert.Equal(t, StatusReady, master.Status())
}
