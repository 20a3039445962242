package dataset

import "context"

// Export asks the export endpoint to produce a file for the current query.
// The merged query parameters ride along plus the requested column names.
// The export event fires with the parameters and may veto.
func (ds *DataSet) Export(ctx context.Context, columns []string) error {
	url := ds.urls.Export
	if url == "" {
		url = defaultURL(ds.name, OpExports)
	}
	if ds.transport == nil || url == "" {
		ds.config.Warn("dataset %q has no export endpoint; export skipped", ds.name)
		return nil
	}
	params, err := ds.generateQueryParameter(ctx, ds.currentPage, nil)
	if err != nil {
		return err
	}
	if len(columns) > 0 {
		params["_HAP_EXCEL_EXPORT_COLUMNS"] = columns
	}
	if !ds.fire(&Event{Name: EventExport, Data: params}) {
		return nil
	}
	_, err = ds.transport.Do(ctx, &Request{
		Operation: OpExports,
		URL:       url,
		Method:    "GET",
		Params:    params,
	})
	return newRequestError(OpExports, err)
}

// QueryTLS loads the multi-language values of one intl field of a record
// from the languages endpoint and stores them under the configured TLS key,
// where intl editors read and write them before submit.
func (ds *DataSet) QueryTLS(ctx context.Context, record *Record, fieldName string) (map[string]any, error) {
	if record == nil || record.IsNew() {
		return nil, nil
	}
	url := ds.urls.TLS
	if url == "" {
		url = defaultURL(ds.name, OpTLS)
	}
	if ds.transport == nil || url == "" {
		ds.config.Warn("dataset %q has no languages endpoint; tls query skipped", ds.name)
		return nil, nil
	}
	params := map[string]any{"fieldName": fieldName}
	if ds.primaryKey != "" {
		params["key"] = record.Get(ds.primaryKey)
	}
	resp, err := ds.transport.Do(ctx, &Request{
		Operation: OpTLS,
		URL:       url,
		Method:    "GET",
		Params:    params,
	})
	if err != nil {
		return nil, newRequestError(OpTLS, err)
	}
	rows := responseRows(resp, ds.dataKey)
	if len(rows) > 0 {
		record.Init(ds.config.TLSKey, rows[0])
		return rows[0], nil
	}
	return nil, nil
}
