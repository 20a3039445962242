package sqlitetransport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/formset/pkg/dataset"
)

func attachedBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(t.TempDir()))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func widgetDataSet(b *Backend) *dataset.DataSet {
	return dataset.New(dataset.Props{
		Name: "widgets",
		Fields: []dataset.FieldProps{
			{"name": "id"},
			{"name": "code"},
			{"name": "quantity", "type": dataset.FieldNumber},
		},
		Transport: b,
		PageSize:  2,
	}, nil)
}

func TestBackendLifecycle(t *testing.T) {
	b := NewBackend()
	dir := t.TempDir()

	require.NoError(t, b.Attach(dir))
	assert.ErrorIs(t, b.Attach(dir), ErrAlreadyAttached)
	require.NoError(t, b.Detach())
	assert.ErrorIs(t, b.Detach(), ErrNotAttached)
}

func TestBackendRejectsDetachedRequests(t *testing.T) {
	b := NewBackend()

	_, err := b.Do(context.Background(), &dataset.Request{
		Operation: dataset.OpRead,
		URL:       "/dataset/widgets/queries",
	})

	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestBackendRejectsBadDatasetName(t *testing.T) {
	b := attachedBackend(t)

	_, err := b.Do(context.Background(), &dataset.Request{
		Operation: dataset.OpRead,
		URL:       "/dataset/bad name;drop/queries",
	})

	assert.ErrorIs(t, err, ErrBadDatasetName)
}

func TestBackendSubmitQueryRoundTrip(t *testing.T) {
	b := attachedBackend(t)
	ctx := context.Background()

	ds := widgetDataSet(b)
	ds.Create(map[string]any{"code": "A", "quantity": 1}, -1)
	ds.Create(map[string]any{"code": "B", "quantity": 2}, -1)
	ds.Create(map[string]any{"code": "C", "quantity": 3}, -1)

	_, err := ds.Submit(ctx)
	require.NoError(t, err)
	assert.False(t, ds.Dirty())
	assert.NotNil(t, ds.Get(0).Get("id"), "server ids merge back on commit")

	fresh := widgetDataSet(b)
	require.NoError(t, fresh.Query(ctx, 1))
	assert.Equal(t, 3, fresh.TotalCount())
	assert.Equal(t, 2, fresh.Length(), "page size bounds the page")
	assert.Equal(t, "A", fresh.Get(0).Get("code"))

	require.NoError(t, fresh.NextPage(ctx))
	assert.Equal(t, 1, fresh.Length())
	assert.Equal(t, "C", fresh.Get(0).Get("code"))
}

func TestBackendUpdateAndDestroy(t *testing.T) {
	b := attachedBackend(t)
	ctx := context.Background()

	ds := widgetDataSet(b)
	ds.Create(map[string]any{"code": "A"}, -1)
	_, err := ds.Submit(ctx)
	require.NoError(t, err)

	ds.Get(0).Set("code", "A2")
	_, err = ds.Submit(ctx)
	require.NoError(t, err)

	fresh := widgetDataSet(b)
	require.NoError(t, fresh.Query(ctx, 1))
	require.Equal(t, 1, fresh.Length())
	assert.Equal(t, "A2", fresh.Get(0).Get("code"))

	fresh.Remove(fresh.Get(0))
	_, err = fresh.Submit(ctx)
	require.NoError(t, err)

	emptied := widgetDataSet(b)
	require.NoError(t, emptied.Query(ctx, 1))
	assert.Equal(t, 0, emptied.TotalCount())
}

func TestBackendQueryFilters(t *testing.T) {
	b := attachedBackend(t)
	ctx := context.Background()

	ds := widgetDataSet(b)
	ds.Create(map[string]any{"code": "A", "quantity": 1}, -1)
	ds.Create(map[string]any{"code": "B", "quantity": 2}, -1)
	_, err := ds.Submit(ctx)
	require.NoError(t, err)

	filtered := dataset.New(dataset.Props{
		Name:           "widgets",
		Fields:         []dataset.FieldProps{{"name": "id"}, {"name": "code"}},
		Transport:      b,
		QueryParameter: map[string]any{"code": "B"},
	}, nil)
	require.NoError(t, filtered.Query(ctx, 1))

	require.Equal(t, 1, filtered.Length())
	assert.Equal(t, "B", filtered.Get(0).Get("code"))
}

func TestBackendUniqueValidation(t *testing.T) {
	b := attachedBackend(t)
	ctx := context.Background()

	seed := dataset.New(dataset.Props{
		Name:      "widgets",
		Fields:    []dataset.FieldProps{{"name": "id"}, {"name": "code", "unique": true}},
		Transport: b,
	}, nil)
	seed.Create(map[string]any{"code": "A"}, -1)
	_, err := seed.Submit(ctx)
	require.NoError(t, err)

	dup := dataset.New(dataset.Props{
		Name:      "widgets",
		Fields:    []dataset.FieldProps{{"name": "id"}, {"name": "code", "unique": true}},
		Transport: b,
	}, nil)
	dup.Create(map[string]any{"code": "A"}, -1)

	_, err = dup.Submit(ctx)
	assert.ErrorIs(t, err, dataset.ErrValidation)

	dup.Get(0).Set("code", "B")
	_, err = dup.Submit(ctx)
	assert.NoError(t, err)
}

func TestBackendReadPagingParamTypes(t *testing.T) {
	b := attachedBackend(t)
	ctx := context.Background()

	ds := widgetDataSet(b)
	for _, code := range []string{"A", "B", "C"} {
		ds.Create(map[string]any{"code": code}, -1)
	}
	_, err := ds.Submit(ctx)
	require.NoError(t, err)

	// JSON-decoded requests deliver numbers as float64; the engine sends ints.
	for _, params := range []map[string]any{
		{"page": 2, "pagesize": 2},
		{"page": float64(2), "pagesize": float64(2)},
		{"page": int64(2), "pagesize": int64(2)},
	} {
		resp, err := b.Do(ctx, &dataset.Request{
			Operation: dataset.OpRead,
			URL:       "/dataset/widgets/queries",
			Params:    params,
		})
		require.NoError(t, err)
		rows, _ := resp["rows"].([]any)
		require.Len(t, rows, 1, "second page of three rows at size two")
		assert.Equal(t, 3, resp["total"])
	}
}
