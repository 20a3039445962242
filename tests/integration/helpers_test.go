// Package integration provides shared test helpers for integration tests.
package integration

import (
	"context"
	"testing"

	"github.com/mesh-intelligence/formset/internal/sqlitetransport"
	"github.com/mesh-intelligence/formset/pkg/dataset"
)

// setupBackend creates a backend attached to an isolated temp directory.
// Each test gets its own store for isolation.
func setupBackend(t *testing.T) (*sqlitetransport.Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := sqlitetransport.NewBackend()
	if err := b.Attach(dir); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

// reattach detaches the backend and attaches a fresh one to the same
// directory, simulating a process restart.
func reattach(t *testing.T, b *sqlitetransport.Backend, dir string) *sqlitetransport.Backend {
	t.Helper()
	if err := b.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	fresh := sqlitetransport.NewBackend()
	if err := fresh.Attach(dir); err != nil {
		t.Fatalf("re-Attach: %v", err)
	}
	t.Cleanup(func() { fresh.Detach() })
	return fresh
}

// newDataSet binds a dataset to a named table on the backend.
func newDataSet(name string, transport dataset.Transport, fields ...dataset.FieldProps) *dataset.DataSet {
	return dataset.New(dataset.Props{
		Name:       name,
		Transport:  transport,
		Fields:     fields,
		PrimaryKey: "id",
	}, nil)
}

// mustQuery fetches a page or fails the test.
func mustQuery(t *testing.T, ds *dataset.DataSet, page int) {
	t.Helper()
	if err := ds.Query(context.Background(), page); err != nil {
		t.Fatalf("Query page %d: %v", page, err)
	}
}

// mustSubmit submits pending changes or fails the test.
func mustSubmit(t *testing.T, ds *dataset.DataSet) {
	t.Helper()
	if _, err := ds.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

// findByField returns the first visible record whose field equals value.
func findByField(ds *dataset.DataSet, field string, value any) *dataset.Record {
	for _, r := range ds.Data() {
		if r.Get(field) == value {
			return r
		}
	}
	return nil
}
