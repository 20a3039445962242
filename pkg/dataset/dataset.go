package dataset

import (
	"context"
	"sort"
)

// Props declares a DataSet: its identity, schema, transport endpoints,
// paging and selection behavior, cascade children and event listeners.
type Props struct {
	// Name derives the conventional endpoints and labels warnings.
	Name string
	// Data seeds the dataset with initial rows.
	Data []map[string]any
	// Fields declares the schema; each entry must carry a "name" key.
	Fields []FieldProps
	// QueryFields declares the query form schema. A non-empty list creates
	// a single-record query dataset unless QueryDataSet is given.
	QueryFields []FieldProps
	// QueryDataSet holds the query form values; its current record's data
	// merges into every read request.
	QueryDataSet *DataSet
	// QueryParameter holds fixed parameters merged into every read.
	QueryParameter map[string]any
	// URLs overrides the name-derived endpoints.
	URLs URLs
	// Transport overrides the config-level transport.
	Transport Transport
	// Feedback overrides the config-level feedback hooks.
	Feedback Feedback
	// PageSize overrides the config default. Ignored when Paging is off.
	PageSize int
	// Paging toggles pagination. Defaults to on.
	Paging *bool
	// Selection is the selection mode. Defaults to SelectionMultiple.
	Selection string
	// PrimaryKey names the server identity field; used by Clone and by
	// selection caching across pages.
	PrimaryKey string
	// CacheSelection keeps selections across page loads, matched back by
	// the primary key or unique fields.
	CacheSelection bool
	// Children binds cascade child datasets by the data field that embeds
	// their rows.
	Children map[string]*DataSet
	// Events registers listeners by event name at construction.
	Events map[string]Listener
	// DataKey and TotalKey override the config response paths.
	DataKey  string
	TotalKey string
	// DataToJSON is the serialization policy for Submit and ToJSONData.
	// Defaults to ToJSONDirty.
	DataToJSON string
	// AutoCreate creates an empty record when the dataset loads empty.
	AutoCreate bool
	// AutoQueryAfterSubmit re-queries when a submit response does not
	// carry enough rows to reconcile created records. Defaults to on.
	AutoQueryAfterSubmit *bool
	// AutoLocateFirst makes the first loaded record current. Defaults to
	// on.
	AutoLocateFirst *bool
	// AutoLocateAfterCreate makes a created record current. Defaults to
	// on.
	AutoLocateAfterCreate *bool
	// AutoLocateAfterRemove relocates the current record after it is
	// removed. Defaults to on.
	AutoLocateAfterRemove *bool
	// ModifiedCheck asks for confirmation before navigation that would
	// leave dirty records behind.
	ModifiedCheck bool
}

func boolProp(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// DataSet is an in-memory, observable collection of records bound to a
// remote resource. It owns the query-validate-submit protocol, paging,
// selection and master-detail cascading.
type DataSet struct {
	name   string
	config *Config

	transport Transport
	urls      URLs
	dataKey   string
	totalKey  string
	feedback  Feedback

	events *EventManager
	fields map[string]*Field

	records      []*Record
	originalData []*Record
	current      *Record

	totalCount  int
	currentPage int
	pageSize    int
	paging      bool

	selectionMode      string
	isAllPageSelection bool
	cacheSelection     bool
	cachedSelected     []*Record

	status     string
	dataToJSON string
	primaryKey string

	parent     *DataSet
	parentName string
	children   map[string]*DataSet

	queryDataSet   *DataSet
	queryParameter map[string]any

	state   map[string]any
	pending *PromiseQueue

	autoCreate            bool
	autoQueryAfterSubmit  bool
	autoLocateFirst       bool
	autoLocateAfterCreate bool
	autoLocateAfterRemove bool
	modifiedCheck         bool
}

// New builds a dataset from its props and an optional shared config. Seed
// data loads synchronously; remote data is fetched by an explicit Query.
func New(props Props, config *Config) *DataSet {
	cfg := config.normalize()
	ds := &DataSet{
		name:                  props.Name,
		config:                cfg,
		transport:             props.Transport,
		urls:                  props.URLs,
		dataKey:               props.DataKey,
		totalKey:              props.TotalKey,
		feedback:              props.Feedback,
		events:                NewEventManager(),
		fields:                map[string]*Field{},
		pageSize:              props.PageSize,
		currentPage:           1,
		paging:                boolProp(props.Paging, true),
		selectionMode:         props.Selection,
		cacheSelection:        props.CacheSelection,
		status:                StatusReady,
		dataToJSON:            props.DataToJSON,
		primaryKey:            props.PrimaryKey,
		children:              map[string]*DataSet{},
		queryParameter:        map[string]any{},
		state:                 map[string]any{},
		pending:               NewPromiseQueue(),
		autoCreate:            props.AutoCreate,
		autoQueryAfterSubmit:  boolProp(props.AutoQueryAfterSubmit, true),
		autoLocateFirst:       boolProp(props.AutoLocateFirst, true),
		autoLocateAfterCreate: boolProp(props.AutoLocateAfterCreate, true),
		autoLocateAfterRemove: boolProp(props.AutoLocateAfterRemove, true),
		modifiedCheck:         props.ModifiedCheck,
	}
	if ds.transport == nil {
		ds.transport = cfg.Transport
	}
	if ds.feedback == nil {
		ds.feedback = cfg.Feedback
	}
	if ds.dataKey == "" {
		ds.dataKey = cfg.DataKey
	}
	if ds.totalKey == "" {
		ds.totalKey = cfg.TotalKey
	}
	if ds.pageSize <= 0 {
		ds.pageSize = cfg.PageSize
	}
	if ds.selectionMode == "" {
		ds.selectionMode = SelectionMultiple
	}
	if ds.dataToJSON == "" {
		ds.dataToJSON = ToJSONDirty
	}
	for _, fieldProps := range props.Fields {
		if name, _ := fieldProps["name"].(string); name != "" {
			ds.fields[name] = newField(name, fieldProps, ds, nil)
		}
	}
	for k, v := range props.QueryParameter {
		ds.queryParameter[k] = v
	}
	ds.queryDataSet = props.QueryDataSet
	if ds.queryDataSet == nil && len(props.QueryFields) > 0 {
		ds.queryDataSet = New(Props{
			Name:       props.Name + "-query",
			Fields:     props.QueryFields,
			Paging:     boolPtr(false),
			Selection:  SelectionNone,
			AutoCreate: true,
		}, cfg)
	}
	for name, listener := range props.Events {
		ds.events.AddEventListener(name, listener)
	}
	for name, child := range props.Children {
		ds.Bind(child, name)
	}
	if len(props.Data) > 0 {
		ds.LoadData(props.Data, len(props.Data))
	} else if ds.autoCreate {
		ds.Create(nil, -1)
	}
	return ds
}

func boolPtr(b bool) *bool { return &b }

// Name returns the dataset name.
func (ds *DataSet) Name() string { return ds.name }

// Status returns the lifecycle status: ready, loading or submitting.
func (ds *DataSet) Status() string { return ds.status }

// Config returns the effective configuration.
func (ds *DataSet) Config() *Config { return ds.config }

// QueryDataSet returns the query form dataset, nil when absent.
func (ds *DataSet) QueryDataSet() *DataSet { return ds.queryDataSet }

// Parent returns the master dataset this one cascades from.
func (ds *DataSet) Parent() *DataSet { return ds.parent }

// Children returns the bound cascade children keyed by binding name.
func (ds *DataSet) Children() map[string]*DataSet { return ds.children }

// AddEventListener registers a listener for the named event.
func (ds *DataSet) AddEventListener(name string, listener Listener) {
	ds.events.AddEventListener(name, listener)
}

// RemoveEventListeners drops all listeners for the named event.
func (ds *DataSet) RemoveEventListeners(name string) {
	ds.events.RemoveEventListeners(name)
}

func (ds *DataSet) fire(e *Event) bool {
	if e.DataSet == nil {
		e.DataSet = ds
	}
	return ds.events.fire(e)
}

// Ready blocks until pending background work (lookup fetches, tracked
// operations) settles.
func (ds *DataSet) Ready(ctx context.Context) error {
	if err := ds.pending.Ready(ctx); err != nil {
		return err
	}
	for _, f := range ds.fields {
		if err := f.Ready(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GetField returns a schema field by name.
func (ds *DataSet) GetField(fieldName string) *Field {
	return ds.fields[fieldName]
}

// Fields returns the schema field map.
func (ds *DataSet) Fields() map[string]*Field { return ds.fields }

// AddField declares a schema field after construction. Existing records
// pick it up lazily.
func (ds *DataSet) AddField(fieldName string, props FieldProps) *Field {
	f := newField(fieldName, props, ds, nil)
	ds.fields[fieldName] = f
	return f
}

// All returns every record including removed and cached ones.
func (ds *DataSet) All() []*Record {
	out := append([]*Record(nil), ds.records...)
	return append(out, ds.cachedSelected...)
}

// Data returns the visible records: everything not marked for deletion.
func (ds *DataSet) Data() []*Record {
	out := make([]*Record, 0, len(ds.records))
	for _, r := range ds.records {
		if r.status != StatusDelete {
			out = append(out, r)
		}
	}
	return out
}

// Length returns the number of visible records.
func (ds *DataSet) Length() int { return len(ds.Data()) }

// TotalCount returns the server-side total row count.
func (ds *DataSet) TotalCount() int { return ds.totalCount }

// CurrentPage returns the 1-based page number.
func (ds *DataSet) CurrentPage() int { return ds.currentPage }

// PageSize returns the page size.
func (ds *DataSet) PageSize() int { return ds.pageSize }

// SetPageSize changes the page size and rewinds to the first page. A
// following Query picks the new size up.
func (ds *DataSet) SetPageSize(pageSize int) {
	if pageSize > 0 {
		ds.pageSize = pageSize
		ds.currentPage = 1
	}
}

// Paging reports whether pagination is on.
func (ds *DataSet) Paging() bool { return ds.paging }

// TotalPage returns the page count implied by totalCount and pageSize.
func (ds *DataSet) TotalPage() int {
	if !ds.paging || ds.pageSize <= 0 {
		return 1
	}
	pages := ds.totalCount / ds.pageSize
	if ds.totalCount%ds.pageSize > 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Dirty reports whether any record holds uncommitted changes.
func (ds *DataSet) Dirty() bool {
	for _, r := range ds.records {
		if r.status != StatusSync || r.Dirty() {
			return true
		}
	}
	return false
}

// Created returns the records added locally and not yet persisted.
func (ds *DataSet) Created() []*Record {
	return ds.byStatus(StatusAdd)
}

// Updated returns the persisted records with local modifications.
func (ds *DataSet) Updated() []*Record {
	out := []*Record{}
	for _, r := range ds.records {
		if r.status == StatusUpdate || (r.status == StatusSync && r.Dirty()) {
			out = append(out, r)
		}
	}
	return out
}

// Destroyed returns the persisted records marked for deletion.
func (ds *DataSet) Destroyed() []*Record {
	return ds.byStatus(StatusDelete)
}

func (ds *DataSet) byStatus(status string) []*Record {
	out := []*Record{}
	for _, r := range ds.records {
		if r.status == status {
			out = append(out, r)
		}
	}
	return out
}

// dirtyRecords partitions the records needing submission.
func (ds *DataSet) dirtyRecords() (created, updated, destroyed []*Record) {
	return ds.Created(), ds.Updated(), ds.Destroyed()
}

// Get returns the visible record at index, nil out of range.
func (ds *DataSet) Get(index int) *Record {
	data := ds.Data()
	if index < 0 || index >= len(data) {
		return nil
	}
	return data[index]
}

// IndexOf returns the position of a record among the visible records, -1
// when absent.
func (ds *DataSet) IndexOf(record *Record) int {
	for i, r := range ds.Data() {
		if r == record {
			return i
		}
	}
	return -1
}

// Current returns the current record, nil when none.
func (ds *DataSet) Current() *Record { return ds.current }

// dropCurrent clears currency without cascade side effects.
func (ds *DataSet) dropCurrent() {
	if ds.current != nil {
		ds.current.isCurrent = false
	}
	ds.current = nil
}

// SetCurrent changes the current record, firing the index-change event and
// re-syncing cascade children. A nil record clears currency.
func (ds *DataSet) SetCurrent(record *Record) {
	previous := ds.current
	if previous == record {
		return
	}
	if previous != nil {
		previous.isCurrent = false
	}
	ds.current = record
	if record != nil {
		record.isCurrent = true
	}
	ds.syncChildren(previous, record)
	ds.fire(&Event{Name: EventIndexChange, Record: record, Previous: previous})
}

// Locate makes the record at index current. With ModifiedCheck on and dirty
// records present, the configured confirm gate runs first; a declined
// confirmation leaves the current record unchanged.
func (ds *DataSet) Locate(ctx context.Context, index int) (*Record, error) {
	record := ds.Get(index)
	if record == nil {
		return nil, nil
	}
	if record == ds.current {
		return record, nil
	}
	if ds.modifiedCheck && ds.Dirty() {
		ok, err := ds.config.Confirm(ctx, "Unsaved modifications will be kept in place. Continue?")
		if err != nil {
			return nil, err
		}
		if !ok {
			return ds.current, nil
		}
	}
	ds.SetCurrent(record)
	return record, nil
}

// First makes the first visible record current.
func (ds *DataSet) First(ctx context.Context) (*Record, error) {
	return ds.Locate(ctx, 0)
}

// Last makes the last visible record current.
func (ds *DataSet) Last(ctx context.Context) (*Record, error) {
	return ds.Locate(ctx, ds.Length()-1)
}

// Pre makes the previous record current, staying put at the first.
func (ds *DataSet) Pre(ctx context.Context) (*Record, error) {
	index := ds.IndexOf(ds.current)
	if index <= 0 {
		return ds.current, nil
	}
	return ds.Locate(ctx, index-1)
}

// Next makes the next record current, staying put at the last.
func (ds *DataSet) Next(ctx context.Context) (*Record, error) {
	index := ds.IndexOf(ds.current)
	if index < 0 || index >= ds.Length()-1 {
		return ds.current, nil
	}
	return ds.Locate(ctx, index+1)
}

// Create inserts a new add-status record built from data at index, -1 for
// append. Default field values apply to missing keys. The create event
// fires after insertion; with AutoLocateAfterCreate the record becomes
// current.
func (ds *DataSet) Create(data map[string]any, index int) *Record {
	record := newRecord(data, ds, StatusAdd)
	if index < 0 || index > len(ds.records) {
		ds.records = append(ds.records, record)
	} else {
		ds.records = append(ds.records[:index], append([]*Record{record}, ds.records[index:]...)...)
	}
	if ds.autoLocateAfterCreate || ds.current == nil {
		ds.SetCurrent(record)
	}
	ds.fire(&Event{Name: EventCreate, Record: record})
	return record
}

// Remove marks records for deletion locally. New records leave the dataset
// immediately; persisted ones move to delete status and drop out of the
// visible data. The before-remove event may veto the whole batch.
func (ds *DataSet) Remove(records ...*Record) {
	records = ds.ownRecords(records)
	if len(records) == 0 {
		return
	}
	if !ds.fire(&Event{Name: EventBeforeRemove, Records: records}) {
		return
	}
	relocate := false
	for _, record := range records {
		if record == ds.current {
			relocate = true
		}
		if record.isSelected {
			ds.UnSelect(record)
		}
		if record.IsNew() {
			ds.records = removeRecord(ds.records, record)
			record.dataSet = nil
			continue
		}
		record.status = StatusDelete
	}
	if relocate {
		ds.relocateCurrent()
	}
	ds.fire(&Event{Name: EventRemove, Records: records})
}

// RemoveAll removes every visible record.
func (ds *DataSet) RemoveAll() {
	ds.Remove(ds.Data()...)
}

// Delete confirms, marks the records for deletion and submits immediately.
func (ds *DataSet) Delete(ctx context.Context, records ...*Record) (map[string]any, error) {
	records = ds.ownRecords(records)
	if len(records) == 0 {
		return nil, nil
	}
	ok, err := ds.config.Confirm(ctx, "Delete the selected records?")
	if err != nil || !ok {
		return nil, err
	}
	if !ds.fire(&Event{Name: EventBeforeDelete, Records: records}) {
		return nil, nil
	}
	ds.Remove(records...)
	return ds.Submit(ctx)
}

// DeleteAll confirms, removes every visible record and submits.
func (ds *DataSet) DeleteAll(ctx context.Context) (map[string]any, error) {
	return ds.Delete(ctx, ds.Data()...)
}

func (ds *DataSet) ownRecords(records []*Record) []*Record {
	out := records[:0]
	for _, r := range records {
		if r != nil && r.dataSet == ds {
			out = append(out, r)
		}
	}
	return out
}

// relocateCurrent moves currency to the nearest visible record after the
// current one was removed.
func (ds *DataSet) relocateCurrent() {
	if !ds.autoLocateAfterRemove {
		ds.SetCurrent(nil)
		return
	}
	data := ds.Data()
	if len(data) == 0 {
		ds.SetCurrent(nil)
		return
	}
	ds.SetCurrent(data[0])
}

// Push appends records, adopting them into this dataset.
func (ds *DataSet) Push(records ...*Record) {
	if !ds.fire(&Event{Name: EventBeforeAppend, Records: records}) {
		return
	}
	for _, r := range records {
		r.dataSet = ds
		ds.records = append(ds.records, r)
	}
	ds.fire(&Event{Name: EventAppend, Records: records})
}

// Unshift prepends records, adopting them into this dataset.
func (ds *DataSet) Unshift(records ...*Record) {
	if !ds.fire(&Event{Name: EventBeforeAppend, Records: records}) {
		return
	}
	for _, r := range records {
		r.dataSet = ds
	}
	ds.records = append(append([]*Record{}, records...), ds.records...)
	ds.fire(&Event{Name: EventAppend, Records: records})
}

// Pop removes and returns the last visible record.
func (ds *DataSet) Pop() *Record {
	data := ds.Data()
	if len(data) == 0 {
		return nil
	}
	last := data[len(data)-1]
	ds.Remove(last)
	return last
}

// Shift removes and returns the first visible record.
func (ds *DataSet) Shift() *Record {
	data := ds.Data()
	if len(data) == 0 {
		return nil
	}
	first := data[0]
	ds.Remove(first)
	return first
}

// Splice removes deleteCount visible records starting at from and inserts
// the given records in their place, returning the removed ones.
func (ds *DataSet) Splice(from, deleteCount int, records ...*Record) []*Record {
	data := ds.Data()
	if from < 0 {
		from = 0
	}
	if from > len(data) {
		from = len(data)
	}
	end := from + deleteCount
	if end > len(data) {
		end = len(data)
	}
	removed := append([]*Record(nil), data[from:end]...)
	ds.Remove(removed...)
	if len(records) > 0 {
		insertAt := len(ds.records)
		if from < len(data) {
			insertAt = ds.rawIndexOf(data[from])
			if insertAt < 0 {
				insertAt = len(ds.records)
			}
		}
		for _, r := range records {
			r.dataSet = ds
		}
		ds.records = append(ds.records[:insertAt], append(append([]*Record{}, records...), ds.records[insertAt:]...)...)
		ds.fire(&Event{Name: EventAppend, Records: records})
	}
	return removed
}

func (ds *DataSet) rawIndexOf(record *Record) int {
	for i, r := range ds.records {
		if r == record {
			return i
		}
	}
	return -1
}

// Find returns the first visible record matching fn, nil when none does.
func (ds *DataSet) Find(fn func(*Record) bool) *Record {
	for _, r := range ds.Data() {
		if fn(r) {
			return r
		}
	}
	return nil
}

// FindIndex returns the index of the first visible record matching fn, -1
// when none does.
func (ds *DataSet) FindIndex(fn func(*Record) bool) int {
	for i, r := range ds.Data() {
		if fn(r) {
			return i
		}
	}
	return -1
}

// ForEach calls fn for every visible record in order.
func (ds *DataSet) ForEach(fn func(*Record)) {
	for _, r := range ds.Data() {
		fn(r)
	}
}

// Map collects fn's result for every visible record.
func (ds *DataSet) Map(fn func(*Record) any) []any {
	data := ds.Data()
	out := make([]any, 0, len(data))
	for _, r := range data {
		out = append(out, fn(r))
	}
	return out
}

// Some reports whether any visible record matches fn.
func (ds *DataSet) Some(fn func(*Record) bool) bool {
	return ds.Find(fn) != nil
}

// Every reports whether all visible records match fn.
func (ds *DataSet) Every(fn func(*Record) bool) bool {
	for _, r := range ds.Data() {
		if !fn(r) {
			return false
		}
	}
	return true
}

// Filter returns the visible records matching fn.
func (ds *DataSet) Filter(fn func(*Record) bool) []*Record {
	out := []*Record{}
	for _, r := range ds.Data() {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}

// Reduce folds fn over the visible records starting from initial.
func (ds *DataSet) Reduce(fn func(acc any, r *Record) any, initial any) any {
	acc := initial
	for _, r := range ds.Data() {
		acc = fn(acc, r)
	}
	return acc
}

// Slice returns a copy of the visible records in [start, end).
func (ds *DataSet) Slice(start, end int) []*Record {
	data := ds.Data()
	if start < 0 {
		start = 0
	}
	if end < 0 || end > len(data) {
		end = len(data)
	}
	if start >= end {
		return []*Record{}
	}
	return append([]*Record(nil), data[start:end]...)
}

// Move reorders the record at index from to index to within the raw record
// sequence.
func (ds *DataSet) Move(from, to int) {
	if from < 0 || from >= len(ds.records) || to < 0 || to >= len(ds.records) || from == to {
		return
	}
	record := ds.records[from]
	ds.records = append(ds.records[:from], ds.records[from+1:]...)
	ds.records = append(ds.records[:to], append([]*Record{record}, ds.records[to:]...)...)
}

// Reverse reverses the record order in place.
func (ds *DataSet) Reverse() {
	for i, j := 0, len(ds.records)-1; i < j; i, j = i+1, j-1 {
		ds.records[i], ds.records[j] = ds.records[j], ds.records[i]
	}
}

// Sort toggles the named field's order between ascending and descending
// and re-sorts the loaded records locally.
func (ds *DataSet) Sort(fieldName string) {
	field := ds.GetField(fieldName)
	if field == nil {
		ds.config.Warn("cannot sort dataset %q: unknown field %q", ds.name, fieldName)
		return
	}
	order := SortAsc
	if field.Order() == SortAsc {
		order = SortDesc
	}
	for _, f := range ds.fields {
		if f != field && f.Order() != "" {
			f.Set("order", nil)
		}
	}
	field.SetOrder(order)
	sort.SliceStable(ds.records, func(i, j int) bool {
		a, b := ds.records[i].Get(fieldName), ds.records[j].Get(fieldName)
		if order == SortDesc {
			a, b = b, a
		}
		return compareValues(a, b)
	})
}

// compareValues orders two field values: numbers numerically, everything
// else by string form.
func compareValues(a, b any) bool {
	an, aok := toFloat(a)
	bn, bok := toFloat(b)
	if aok && bok {
		return an < bn
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return as < bs
}

// GetState reads a named item of dataset-scoped state.
func (ds *DataSet) GetState(key string) any { return ds.state[key] }

// SetState writes a named item of dataset-scoped state.
func (ds *DataSet) SetState(key string, value any) { ds.state[key] = value }

// SetQueryParameter sets one fixed query parameter, removing it when value
// is nil.
func (ds *DataSet) SetQueryParameter(name string, value any) {
	if value == nil {
		delete(ds.queryParameter, name)
		return
	}
	ds.queryParameter[name] = value
}

// GetQueryParameter reads one fixed query parameter.
func (ds *DataSet) GetQueryParameter(name string) any {
	return ds.queryParameter[name]
}

// Reset discards all local changes: every record returns to pristine, and
// records removed since the last load reappear.
func (ds *DataSet) Reset() {
	ds.records = append([]*Record(nil), ds.originalData...)
	for _, r := range ds.records {
		r.Reset()
	}
	if ds.current != nil && ds.rawIndexOf(ds.current) < 0 {
		ds.current = nil
	}
	if ds.current == nil && ds.autoLocateFirst {
		if data := ds.Data(); len(data) > 0 {
			ds.SetCurrent(data[0])
		}
	}
	ds.fire(&Event{Name: EventReset, Records: ds.records})
}

// Snapshot captures the dataset's restorable state.
func (ds *DataSet) Snapshot() *Snapshot {
	return snapshotOf(ds)
}

// Restore returns the dataset to a snapshot's state, recursing into bound
// children.
func (ds *DataSet) Restore(s *Snapshot) {
	if s == nil {
		return
	}
	ds.records = append([]*Record(nil), s.Records...)
	ds.originalData = append([]*Record(nil), s.OriginalData...)
	ds.totalCount = s.TotalCount
	ds.currentPage = s.CurrentPage
	ds.pageSize = s.PageSize
	ds.cachedSelected = append([]*Record(nil), s.CachedSelected...)
	if s.DataToJSON != "" {
		ds.dataToJSON = s.DataToJSON
	}
	for _, r := range ds.records {
		r.dataSet = ds
	}
	ds.dropCurrent()
	if s.Current != nil && ds.rawIndexOf(s.Current) >= 0 {
		ds.current = s.Current
		s.Current.isCurrent = true
	}
	for name, childSnap := range s.Children {
		if child, ok := ds.children[name]; ok {
			child.Restore(childSnap)
		}
	}
}

// LoadData replaces the loaded records with the given rows. The total
// defaults to the row count when negative.
func (ds *DataSet) LoadData(rows []map[string]any, total int) {
	ds.storeSelected()
	ds.records = ds.processRows(rows)
	ds.originalData = append([]*Record(nil), ds.records...)
	if total >= 0 {
		ds.totalCount = total
	} else {
		ds.totalCount = len(ds.records)
	}
	ds.releaseCachedSelected()
	ds.dropCurrent()
	if ds.autoLocateFirst {
		if data := ds.Data(); len(data) > 0 {
			ds.SetCurrent(data[0])
		} else {
			ds.syncChildren(nil, nil)
		}
	} else {
		ds.syncChildren(nil, nil)
	}
	if len(ds.records) == 0 && ds.autoCreate {
		ds.Create(nil, -1)
	}
	ds.fire(&Event{Name: EventLoad, Records: ds.records})
}

// AppendData appends rows to the loaded records without clearing, for
// incremental loading.
func (ds *DataSet) AppendData(rows []map[string]any, total int) {
	records := ds.processRows(rows)
	ds.records = append(ds.records, records...)
	ds.originalData = append(ds.originalData, records...)
	if total >= 0 {
		ds.totalCount = total
	} else {
		ds.totalCount = len(ds.records)
	}
	ds.releaseCachedSelected()
	ds.fire(&Event{Name: EventLoad, Records: records})
}

// processRows builds records from raw rows. A row may carry the configured
// status field to load with a non-sync status; the marker is stripped from
// the data.
func (ds *DataSet) processRows(rows []map[string]any) []*Record {
	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		status := StatusSync
		if marker, ok := row[ds.config.StatusKey].(string); ok {
			switch marker {
			case ds.config.Status.Add:
				status = StatusAdd
			case ds.config.Status.Delete:
				status = StatusDelete
			case ds.config.Status.Update:
				status = StatusUpdate
			}
			row = deepCopyMap(row)
			delete(row, ds.config.StatusKey)
		}
		records = append(records, newRecord(row, ds, status))
	}
	return records
}

// ToData exports the visible records as plain data maps.
func (ds *DataSet) ToData() []map[string]any {
	noCascade := !usesCascade(ds.dataToJSON)
	out := []map[string]any{}
	for _, r := range ds.Data() {
		out = append(out, r.ToData(noCascade))
	}
	return out
}

// ToJSONData serializes records per the dataset's DataToJSON policy: the
// dirty partition, the selection, or everything, in submit envelope form
// unless the policy is a normal variant.
func (ds *DataSet) ToJSONData() []map[string]any {
	return ds.toJSONDataWith(ds.dataToJSON)
}

func (ds *DataSet) toJSONDataWith(policy string) []map[string]any {
	noCascade := !usesCascade(policy)
	var records []*Record
	switch {
	case usesSelected(policy):
		records = ds.Selected()
	case policy == ToJSONAll, policy == ToJSONAllSelf:
		records = ds.records
	case policy == ToJSONNormal, policy == ToJSONNormalSelf:
		records = ds.Data()
	default:
		created, updated, destroyed := ds.dirtyRecords()
		records = append(append(created, updated...), destroyed...)
	}
	out := []map[string]any{}
	for _, r := range records {
		if usesNormal(policy) {
			out = append(out, r.ToData(noCascade))
		} else {
			out = append(out, r.ToJSONData(noCascade))
		}
	}
	return out
}
