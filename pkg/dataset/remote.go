package dataset

import "context"

// Remote protocol: reads load pages of records through the transport,
// submits push the dirty partition and reconcile the response back into
// record state.

// Query loads the given page, 0 for the current one. The query event fires
// with the merged parameters and may veto; the before-load event sees the
// raw response before rows are extracted.
func (ds *DataSet) Query(ctx context.Context, page int) error {
	return ds.QueryWith(ctx, page, nil)
}

// QueryWith loads the given page with one-off parameters merged over the
// dataset's own query parameters. Tracked by the pending queue so Ready can
// await it.
func (ds *DataSet) QueryWith(ctx context.Context, page int, params map[string]any) error {
	return ds.pending.Add(func() error {
		resp, rows, total, err := ds.read(ctx, page, params)
		if err != nil || resp == nil {
			return err
		}
		if page > 0 {
			ds.currentPage = page
		}
		ds.LoadData(rows, total)
		return nil
	})
}

// QueryMore loads the given page and appends its rows to the loaded
// records, for incremental scrolling over a paged resource.
func (ds *DataSet) QueryMore(ctx context.Context, page int) error {
	return ds.pending.Add(func() error {
		resp, rows, total, err := ds.read(ctx, page, nil)
		if err != nil || resp == nil {
			return err
		}
		if page > 0 {
			ds.currentPage = page
		}
		ds.AppendData(rows, total)
		return nil
	})
}

// read issues one read request and extracts rows and total. A nil response
// with nil error means the query did not run: missing transport or URL,
// query validation failure handled as an error, or an event veto.
func (ds *DataSet) read(ctx context.Context, page int, extra map[string]any) (map[string]any, []map[string]any, int, error) {
	if page <= 0 {
		page = ds.currentPage
	}
	if parent := ds.parent; parent != nil {
		if current := parent.current; current == nil || current.IsNew() {
			ds.config.Warn("dataset %q cannot query: parent %q has no committed current record", ds.name, parent.name)
			return nil, nil, 0, nil
		}
	}
	url := ds.urls.Query
	if url == "" {
		url = defaultURL(ds.name, OpRead)
	}
	if ds.transport == nil || url == "" {
		ds.config.Warn("dataset %q has no read endpoint; query skipped", ds.name)
		return nil, nil, 0, nil
	}
	params, err := ds.generateQueryParameter(ctx, page, extra)
	if err != nil {
		return nil, nil, 0, err
	}
	if !ds.fire(&Event{Name: EventQuery, Data: params}) {
		return nil, nil, 0, nil
	}
	ds.status = StatusLoading
	defer func() { ds.status = StatusReady }()
	resp, err := ds.transport.Do(ctx, &Request{
		Operation: OpRead,
		URL:       url,
		Method:    "POST",
		Params:    params,
	})
	if err != nil {
		ds.fire(&Event{Name: EventLoadFailed, Data: err})
		ds.feedback.LoadFailed(err)
		return nil, nil, 0, newRequestError(OpRead, err)
	}
	if resp == nil {
		resp = map[string]any{}
	}
	ds.fire(&Event{Name: EventBeforeLoad, Data: resp})
	ds.feedback.LoadSuccess(resp)
	return resp, responseRows(resp, ds.dataKey), responseTotal(resp, ds.totalKey), nil
}

// generateQueryParameter merges, in ascending precedence: the validated
// query form values, the fixed query parameters, the parent cascade
// identity, explicit extras, then sort and paging parameters.
func (ds *DataSet) generateQueryParameter(ctx context.Context, page int, extra map[string]any) (map[string]any, error) {
	params := map[string]any{}
	if qds := ds.queryDataSet; qds != nil {
		if current := qds.Current(); current != nil {
			valid, err := current.Validate(ctx, true)
			if err != nil {
				return nil, err
			}
			if !valid {
				return nil, ErrInvalidQuery
			}
			for k, v := range current.ToData(true) {
				if !isEmpty(v) {
					params[k] = v
				}
			}
		}
	}
	for k, v := range ds.queryParameter {
		params[k] = v
	}
	for k, v := range ds.generateCascadeParams() {
		params[k] = v
	}
	for k, v := range extra {
		params[k] = v
	}
	for name, f := range ds.fields {
		if order := f.Order(); order != "" {
			params["sortname"] = name
			params["sortorder"] = order
		}
	}
	if ds.paging {
		params["page"] = page
		params["pagesize"] = ds.pageSize
	}
	return params, nil
}

// Page loads the given page, gated by the modified check when dirty
// records would be left behind. Warns and no-ops when paging is off.
func (ds *DataSet) Page(ctx context.Context, page int) error {
	if !ds.paging {
		ds.config.Warn("dataset %q has paging disabled; page change skipped", ds.name)
		return nil
	}
	if page < 1 || page == ds.currentPage {
		return nil
	}
	if ds.modifiedCheck && ds.Dirty() {
		ok, err := ds.config.Confirm(ctx, "Unsaved modifications will be lost on page change. Continue?")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return ds.Query(ctx, page)
}

// FirstPage loads page one.
func (ds *DataSet) FirstPage(ctx context.Context) error {
	return ds.Page(ctx, 1)
}

// PrePage loads the previous page, a no-op at the first.
func (ds *DataSet) PrePage(ctx context.Context) error {
	return ds.Page(ctx, ds.currentPage-1)
}

// NextPage loads the next page, a no-op at the last.
func (ds *DataSet) NextPage(ctx context.Context) error {
	if ds.currentPage >= ds.TotalPage() {
		return nil
	}
	return ds.Page(ctx, ds.currentPage+1)
}

// LastPage loads the final page.
func (ds *DataSet) LastPage(ctx context.Context) error {
	return ds.Page(ctx, ds.TotalPage())
}

// Validate runs every record's rule pipeline and fires the validate event
// with the outcome.
func (ds *DataSet) Validate(ctx context.Context) (bool, error) {
	valid := true
	for _, r := range ds.Data() {
		ok, err := r.Validate(ctx, false)
		if err != nil {
			return false, err
		}
		if !ok {
			valid = false
		}
	}
	ds.fire(&Event{Name: EventValidate, Valid: valid})
	return valid, nil
}

// GetValidationErrors collects the per-record failures after a Validate.
func (ds *DataSet) GetValidationErrors() []ValidationErrors {
	var out []ValidationErrors
	for _, r := range ds.Data() {
		if errs := r.ValidationErrors(); len(errs) > 0 {
			out = append(out, ValidationErrors{Record: r, Errors: errs})
		}
	}
	return out
}

// Submit validates the dirty partition and pushes it through the
// transport: one request per non-empty group of created, updated and
// destroyed records, or a single combined request when a submit URL is
// declared. The response reconciles back into record state via commitData.
// Returns nil, nil when there is nothing to submit or an event vetoed.
func (ds *DataSet) Submit(ctx context.Context) (map[string]any, error) {
	return ds.submitTracked(ctx, ds.dataToJSON)
}

// SubmitWith submits under a one-off serialization policy: selected records
// only, cascade data excluded, or both. With neither flag set it behaves
// like Submit.
func (ds *DataSet) SubmitWith(ctx context.Context, isSelect, noCascade bool) (map[string]any, error) {
	policy := adapterDataToJSON(isSelect, noCascade)
	if policy == "" {
		policy = ds.dataToJSON
	}
	return ds.submitTracked(ctx, policy)
}

func (ds *DataSet) submitTracked(ctx context.Context, policy string) (map[string]any, error) {
	if err := ds.Ready(ctx); err != nil {
		return nil, err
	}
	var resp map[string]any
	err := ds.pending.Add(func() error {
		var submitErr error
		resp, submitErr = ds.submit(ctx, policy)
		return submitErr
	})
	return resp, err
}

func (ds *DataSet) submit(ctx context.Context, policy string) (map[string]any, error) {
	created, updated, destroyed := ds.dirtyRecords()
	if usesSelected(policy) {
		created = selectedOf(created)
		updated = selectedOf(updated)
		destroyed = selectedOf(destroyed)
	}
	if len(created)+len(updated)+len(destroyed) == 0 {
		return nil, nil
	}
	valid, err := ds.Validate(ctx)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrValidation
	}
	all := append(append(append([]*Record{}, created...), updated...), destroyed...)
	if !ds.fire(&Event{Name: EventSubmit, Records: all}) {
		return nil, nil
	}
	if ds.transport == nil {
		return nil, ErrNoTransport
	}
	ds.setSubmitStatus(StatusSubmitting)
	defer ds.setSubmitStatus(StatusReady)
	resp, err := ds.write(ctx, policy, created, updated, destroyed)
	if err != nil {
		ds.handleSubmitFail(destroyed)
		ds.fire(&Event{Name: EventSubmitFailed, Data: err})
		ds.feedback.SubmitFailed(err)
		return nil, newRequestError(OpSubmit, err)
	}
	if err := ds.commitData(ctx, resp, created, updated, destroyed); err != nil {
		return nil, err
	}
	ds.fire(&Event{Name: EventSubmitSuccess, Data: resp})
	ds.feedback.SubmitSuccess(resp)
	return resp, nil
}

// selectedOf keeps the selected records of a submit group.
func selectedOf(records []*Record) []*Record {
	var out []*Record
	for _, r := range records {
		if r.IsSelected() {
			out = append(out, r)
		}
	}
	return out
}

// setSubmitStatus moves the dataset and its cascade children between ready
// and submitting together.
func (ds *DataSet) setSubmitStatus(status string) {
	ds.status = status
	for _, child := range ds.children {
		child.setSubmitStatus(status)
	}
}

// write issues the submit requests and merges their responses into one
// object: rows concatenate under the data key, the last total wins.
func (ds *DataSet) write(ctx context.Context, policy string, created, updated, destroyed []*Record) (map[string]any, error) {
	type group struct {
		operation string
		records   []*Record
	}
	var requests []*Request
	if ds.urls.Submit != "" {
		requests = append(requests, &Request{
			Operation: OpSubmit,
			URL:       ds.urls.Submit,
			Method:    "POST",
			Data:      ds.toJSONDataWith(policy),
		})
	} else {
		for _, g := range []group{
			{OpCreate, created},
			{OpUpdate, updated},
			{OpDestroy, destroyed},
		} {
			if len(g.records) == 0 {
				continue
			}
			rows := make([]map[string]any, 0, len(g.records))
			noCascade := !usesCascade(policy)
			for _, r := range g.records {
				rows = append(rows, r.ToJSONData(noCascade))
			}
			requests = append(requests, &Request{
				Operation: g.operation,
				URL:       defaultURL(ds.name, g.operation),
				Method:    "POST",
				Data:      rows,
			})
		}
	}
	merged := map[string]any{}
	var mergedRows []any
	for _, req := range requests {
		resp, err := ds.transport.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			continue
		}
		for _, row := range toSlice(chainGet(resp, ds.dataKey)) {
			mergedRows = append(mergedRows, row)
		}
		if total := responseTotal(resp, ds.totalKey); total >= 0 {
			chainSet(merged, ds.totalKey, total)
		}
	}
	if mergedRows != nil {
		chainSet(merged, ds.dataKey, mergedRows)
	}
	return merged, nil
}

// handleSubmitFail rolls destroyed records back to their pre-submit state
// and re-selects them so a retry resubmits the same deletion.
func (ds *DataSet) handleSubmitFail(destroyed []*Record) {
	for _, r := range destroyed {
		r.Reset()
		if ds.selectionMode != SelectionNone {
			ds.Select(r)
		}
	}
}

// commitData reconciles a submit response into record state. Destroyed
// records leave the dataset and decrement the total. Response rows carrying
// the record's transient id commit that record; the remaining rows commit
// the remaining created and updated records by position. When the counts
// cannot be reconciled the dataset re-queries if so configured, otherwise
// records commit without server data.
func (ds *DataSet) commitData(ctx context.Context, resp map[string]any, created, updated, destroyed []*Record) error {
	for _, r := range destroyed {
		r.Commit(nil, ds)
		ds.records = removeRecord(ds.records, r)
		ds.originalData = removeRecord(ds.originalData, r)
		ds.cachedSelected = removeRecord(ds.cachedSelected, r)
		r.dataSet = nil
		if ds.totalCount > 0 {
			ds.totalCount--
		}
	}
	if ds.current != nil && ds.rawIndexOf(ds.current) < 0 {
		ds.relocateCurrent()
	}
	rows := responseRows(resp, ds.dataKey)
	pending := append(append([]*Record{}, created...), updated...)
	var unmatched []map[string]any
	for _, row := range rows {
		if id, ok := rowRecordID(row); ok {
			if r := takeRecordByID(&pending, id); r != nil {
				r.Commit(row, ds)
				continue
			}
		}
		unmatched = append(unmatched, row)
	}
	if len(unmatched) == len(pending) {
		for i, r := range pending {
			r.Commit(unmatched[i], ds)
		}
	} else if len(pending) > 0 {
		if ds.autoQueryAfterSubmit {
			return ds.Query(ctx, ds.currentPage)
		}
		for _, r := range pending {
			r.Commit(nil, ds)
		}
	}
	ds.originalData = append([]*Record(nil), ds.records...)
	return nil
}

// rowRecordID reads the transient record id echoed back by the server.
func rowRecordID(row map[string]any) (int64, bool) {
	switch v := row["__id"].(type) {
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

func takeRecordByID(records *[]*Record, id int64) *Record {
	for i, r := range *records {
		if r.id == id {
			*records = append((*records)[:i], (*records)[i+1:]...)
			return r
		}
	}
	return nil
}

// checkUniqueRemote asks the validate endpoint whether the given unique key
// values collide with persisted rows. Returns true when no endpoint is
// configured, leaving uniqueness to the local scan.
func (ds *DataSet) checkUniqueRemote(ctx context.Context, keys map[string]any) (bool, error) {
	url := ds.urls.Validate
	if url == "" {
		url = defaultURL(ds.name, OpValidate)
	}
	if ds.transport == nil || url == "" {
		return true, nil
	}
	resp, err := ds.transport.Do(ctx, &Request{
		Operation: OpValidate,
		URL:       url,
		Method:    "POST",
		Data:      map[string]any{"unique": []any{keys}},
	})
	if err != nil {
		return false, newRequestError(OpValidate, err)
	}
	return validateResponseOK(resp), nil
}

// validateResponseOK interprets a validate response: a bool under "valid",
// or a list of bools that must all hold.
func validateResponseOK(resp map[string]any) bool {
	if resp == nil {
		return true
	}
	switch v := resp["valid"].(type) {
	case bool:
		return v
	case []any:
		for _, item := range v {
			if ok, isBool := item.(bool); isBool && !ok {
				return false
			}
		}
		return true
	case nil:
		return true
	default:
		return true
	}
}
