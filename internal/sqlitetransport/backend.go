// Package sqlitetransport implements the dataset Transport contract on a
// local SQLite database. Each dataset name maps to one table holding rows
// as JSON documents, which makes it a drop-in offline backend for datasets
// that normally talk to a remote service.
package sqlitetransport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/formset/pkg/dataset"
)

// Sentinel errors for backend lifecycle misuse.
var (
	ErrAlreadyAttached = errors.New("backend already attached")
	ErrNotAttached     = errors.New("backend not attached")
	ErrBadDatasetName  = errors.New("invalid dataset name")
)

// datasetNamePattern restricts table names derived from dataset names.
var datasetNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Backend is a dataset.Transport over a SQLite file. It is safe for
// concurrent use.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	dataDir  string
}

// NewBackend creates a detached backend; call Attach before use.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (or creates) the database under dataDir.
func (b *Backend) Attach(dataDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return ErrAlreadyAttached
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "formset.db"))
	if err != nil {
		return err
	}
	b.db = db
	b.dataDir = dataDir
	b.attached = true
	return nil
}

// Detach closes the database. Detaching a detached backend is an error.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return ErrNotAttached
	}
	err := b.db.Close()
	b.db = nil
	b.attached = false
	return err
}

// Do implements dataset.Transport. The dataset name is recovered from the
// conventional /dataset/{name}/... URL.
func (b *Backend) Do(ctx context.Context, req *dataset.Request) (map[string]any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, ErrNotAttached
	}
	name, err := datasetNameFromURL(req.URL)
	if err != nil {
		return nil, err
	}
	if err := b.ensureTable(ctx, name); err != nil {
		return nil, err
	}
	switch req.Operation {
	case dataset.OpRead:
		return b.read(ctx, name, req.Params)
	case dataset.OpCreate:
		return b.create(ctx, name, requestRows(req.Data))
	case dataset.OpUpdate:
		return b.update(ctx, name, requestRows(req.Data))
	case dataset.OpDestroy:
		return b.destroy(ctx, name, requestRows(req.Data))
	case dataset.OpSubmit:
		return b.submit(ctx, name, requestRows(req.Data))
	case dataset.OpValidate:
		return b.validate(ctx, name, req.Data)
	default:
		return nil, fmt.Errorf("operation %q not supported by the sqlite backend", req.Operation)
	}
}

// datasetNameFromURL extracts {name} from /dataset/{name}/{operation}.
var urlPattern = regexp.MustCompile(`^/dataset/([^/]+)/`)

func datasetNameFromURL(url string) (string, error) {
	m := urlPattern.FindStringSubmatch(url)
	if m == nil || !datasetNamePattern.MatchString(m[1]) {
		return "", fmt.Errorf("%w: %q", ErrBadDatasetName, url)
	}
	return m[1], nil
}

func (b *Backend) ensureTable(ctx context.Context, name string) error {
	_, err := b.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (id INTEGER PRIMARY KEY AUTOINCREMENT, doc TEXT NOT NULL)`, name))
	return err
}

// read loads one page of rows. Non-paging parameters filter by equality
// against the document fields.
func (b *Backend) read(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	rows, err := b.scan(ctx, name)
	if err != nil {
		return nil, err
	}
	filtered := filterRows(rows, params)
	total := len(filtered)

	page := intParam(params, "page")
	size := intParam(params, "pagesize")
	if page > 0 && size > 0 {
		start := (page - 1) * size
		if start > len(filtered) {
			start = len(filtered)
		}
		end := start + size
		if end > len(filtered) {
			end = len(filtered)
		}
		filtered = filtered[start:end]
	}
	out := make([]any, 0, len(filtered))
	for _, row := range filtered {
		out = append(out, row)
	}
	return map[string]any{"rows": out, "total": total}, nil
}

func (b *Backend) create(ctx context.Context, name string, rows []map[string]any) (map[string]any, error) {
	var echoed []any
	for _, row := range rows {
		doc := cleanRow(row)
		buf, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		res, err := b.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %q (doc) VALUES (?)`, name), string(buf))
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		doc["id"] = id
		if err := b.writeDoc(ctx, name, id, doc); err != nil {
			return nil, err
		}
		if rid, ok := row["__id"]; ok {
			doc["__id"] = rid
		}
		echoed = append(echoed, doc)
	}
	return map[string]any{"rows": echoed}, nil
}

func (b *Backend) update(ctx context.Context, name string, rows []map[string]any) (map[string]any, error) {
	var echoed []any
	for _, row := range rows {
		doc := cleanRow(row)
		id, ok := rowID(doc)
		if !ok {
			return nil, fmt.Errorf("update row without id in dataset %q", name)
		}
		if err := b.writeDoc(ctx, name, id, doc); err != nil {
			return nil, err
		}
		if rid, ok := row["__id"]; ok {
			doc["__id"] = rid
		}
		echoed = append(echoed, doc)
	}
	return map[string]any{"rows": echoed}, nil
}

func (b *Backend) destroy(ctx context.Context, name string, rows []map[string]any) (map[string]any, error) {
	for _, row := range rows {
		id, ok := rowID(row)
		if !ok {
			continue
		}
		if _, err := b.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, name), id); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// submit handles a combined mutation batch, dispatching each row by its
// status marker.
func (b *Backend) submit(ctx context.Context, name string, rows []map[string]any) (map[string]any, error) {
	var created, updated, destroyed []map[string]any
	for _, row := range rows {
		switch row["__status"] {
		case "add":
			created = append(created, row)
		case "delete":
			destroyed = append(destroyed, row)
		default:
			updated = append(updated, row)
		}
	}
	var echoed []any
	if resp, err := b.create(ctx, name, created); err != nil {
		return nil, err
	} else if resp != nil {
		echoed = append(echoed, resp["rows"].([]any)...)
	}
	if resp, err := b.update(ctx, name, updated); err != nil {
		return nil, err
	} else if resp != nil {
		echoed = append(echoed, resp["rows"].([]any)...)
	}
	if _, err := b.destroy(ctx, name, destroyed); err != nil {
		return nil, err
	}
	return map[string]any{"rows": echoed}, nil
}

// validate answers uniqueness probes: {"unique": [{field: value, ...}]}
// yields {"valid": false} when any key set matches a stored row.
func (b *Backend) validate(ctx context.Context, name string, data any) (map[string]any, error) {
	body, _ := data.(map[string]any)
	probes, _ := body["unique"].([]any)
	rows, err := b.scan(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, probe := range probes {
		keys, ok := probe.(map[string]any)
		if !ok {
			continue
		}
		for _, row := range rows {
			if matchesKeys(row, keys) {
				return map[string]any{"valid": false}, nil
			}
		}
	}
	return map[string]any{"valid": true}, nil
}

func (b *Backend) writeDoc(ctx context.Context, name string, id int64, doc map[string]any) error {
	buf, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %q SET doc = ? WHERE id = ?`, name), string(buf), id)
	return err
}

func (b *Backend) scan(ctx context.Context, name string) ([]map[string]any, error) {
	rows, err := b.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, doc FROM %q ORDER BY id`, name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var id int64
		var doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		row := map[string]any{}
		if err := json.Unmarshal([]byte(doc), &row); err != nil {
			return nil, err
		}
		row["id"] = id
		out = append(out, row)
	}
	return out, rows.Err()
}

// cleanRow strips the transport envelope from a row before storage.
func cleanRow(row map[string]any) map[string]any {
	doc := make(map[string]any, len(row))
	for k, v := range row {
		if k == "__status" || k == "__id" {
			continue
		}
		doc[k] = v
	}
	return doc
}

// intParam coerces a numeric request parameter, 0 when absent or not a
// number.
func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func rowID(row map[string]any) (int64, bool) {
	switch v := row["id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func requestRows(data any) []map[string]any {
	var out []map[string]any
	switch rows := data.(type) {
	case []map[string]any:
		return rows
	case []any:
		for _, item := range rows {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func filterRows(rows []map[string]any, params map[string]any) []map[string]any {
	filter := map[string]any{}
	for k, v := range params {
		switch k {
		case "page", "pagesize", "sortname", "sortorder":
			continue
		}
		filter[k] = v
	}
	if len(filter) == 0 {
		return rows
	}
	var out []map[string]any
	for _, row := range rows {
		if matchesKeys(row, filter) {
			out = append(out, row)
		}
	}
	return out
}

// matchesKeys compares loosely: numbers compare by value so JSON float64
// round trips match integer inputs.
func matchesKeys(row, keys map[string]any) bool {
	for k, want := range keys {
		got, ok := row[k]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return len(keys) > 0
}
