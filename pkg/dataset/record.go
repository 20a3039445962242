package dataset

import (
	"context"
	"sync/atomic"
)

var recordIDCounter atomic.Int64

// Record is one row of a DataSet. It tracks a pristine copy of its data for
// dirty detection and rollback, carries per-field state, and snapshots the
// state of cascade children while it is not the current record.
type Record struct {
	id      int64
	dataSet *DataSet
	status  string

	data         map[string]any
	pristineData map[string]any
	dirtyData    map[string]any
	cachedData   map[string]any

	fields map[string]*Field
	state  map[string]any

	selectable bool
	isSelected bool
	isCurrent  bool
	isCached   bool

	dataSetSnapshot   map[string]*Snapshot
	cascadeRecordsMap map[string][]*Record
}

// newRecord builds a record from raw data. The data map is deep copied into
// both the working and pristine stores.
func newRecord(data map[string]any, ds *DataSet, status string) *Record {
	if data == nil {
		data = map[string]any{}
	}
	r := &Record{
		id:                recordIDCounter.Add(1),
		dataSet:           ds,
		status:            status,
		data:              deepCopyMap(data),
		pristineData:      deepCopyMap(data),
		dirtyData:         map[string]any{},
		fields:            map[string]*Field{},
		state:             map[string]any{},
		selectable:        true,
		dataSetSnapshot:   map[string]*Snapshot{},
		cascadeRecordsMap: map[string][]*Record{},
	}
	if ds != nil {
		for name := range ds.fields {
			r.fields[name] = newField(name, nil, ds, r)
		}
		for name, f := range r.fields {
			if dv := f.Get("defaultValue"); dv != nil && r.Get(name) == nil && status == StatusAdd {
				r.Init(name, dv)
			}
		}
	}
	return r
}

// ID returns the record's process-unique identifier.
func (r *Record) ID() int64 { return r.id }

// DataSet returns the owning dataset, nil for detached records.
func (r *Record) DataSet() *DataSet { return r.dataSet }

// Status returns the record status, one of StatusAdd, StatusUpdate,
// StatusDelete or StatusSync.
func (r *Record) Status() string { return r.status }

// SetStatus forces the record status.
func (r *Record) SetStatus(status string) {
	if IsValidStatus(status) {
		r.status = status
	}
}

// IsNew reports whether the record was created locally and never persisted.
func (r *Record) IsNew() bool { return r.status == StatusAdd }

// IsRemoved reports whether the record is marked for deletion.
func (r *Record) IsRemoved() bool { return r.status == StatusDelete }

// IsCurrent reports whether the record is its dataset's current record.
func (r *Record) IsCurrent() bool { return r.isCurrent }

// IsSelected reports whether the record is selected.
func (r *Record) IsSelected() bool { return r.isSelected }

// IsCached reports whether the record lives in the selection cache rather
// than the visible page.
func (r *Record) IsCached() bool { return r.isCached }

// Selectable reports whether the record may be selected.
func (r *Record) Selectable() bool { return r.selectable }

// SetSelectable toggles selectability, deselecting when turned off.
func (r *Record) SetSelectable(selectable bool) {
	r.selectable = selectable
	if !selectable && r.isSelected && r.dataSet != nil {
		r.dataSet.UnSelect(r)
	}
}

// Index returns the record's position in its dataset, -1 when detached.
func (r *Record) Index() int {
	if r.dataSet == nil {
		return -1
	}
	return r.dataSet.IndexOf(r)
}

// Dirty reports whether any field value differs from the pristine copy, or
// any cascade child holds uncommitted changes for this record.
func (r *Record) Dirty() bool {
	if len(r.dirtyData) > 0 {
		return true
	}
	if r.dataSet != nil {
		for name := range r.dataSet.children {
			for _, cascade := range r.GetCascadeRecords(name) {
				if cascade.status != StatusSync || cascade.Dirty() {
					return true
				}
			}
		}
	}
	return false
}

// GetField returns the record-level field, creating it on first access when
// the dataset schema declares it.
func (r *Record) GetField(fieldName string) *Field {
	if f, ok := r.fields[fieldName]; ok {
		return f
	}
	if r.dataSet != nil && r.dataSet.GetField(fieldName) != nil {
		f := newField(fieldName, nil, r.dataSet, r)
		r.fields[fieldName] = f
		return f
	}
	return nil
}

// AddField declares an ad hoc record-level field.
func (r *Record) AddField(fieldName string, props FieldProps) *Field {
	f := newField(fieldName, props, r.dataSet, r)
	r.fields[fieldName] = f
	return f
}

// Fields returns the record's field map.
func (r *Record) Fields() map[string]*Field { return r.fields }

// valuePath resolves a field name to the dot path it reads and writes,
// following the bind alias when present.
func (r *Record) fieldPath(fieldName string) string {
	if f := r.GetField(fieldName); f != nil {
		return f.valuePath()
	}
	return fieldName
}

// Get reads a field value. Bound fields read through their bind path.
func (r *Record) Get(fieldName string) any {
	return chainGet(r.data, r.fieldPath(fieldName))
}

func (r *Record) getByPath(path string) any {
	return chainGet(r.data, path)
}

func (r *Record) getPristineByPath(path string) any {
	return chainGet(r.pristineData, path)
}

// GetPristineValue reads the pristine value of a field.
func (r *Record) GetPristineValue(fieldName string) any {
	return chainGet(r.pristineData, r.fieldPath(fieldName))
}

// Set writes a field value, normalizing it per the field type. A change on
// a sync record moves it to update; reverting the last change moves it
// back. The dataset's update event fires after the write.
func (r *Record) Set(fieldName string, value any) {
	field := r.GetField(fieldName)
	path := r.fieldPath(fieldName)
	oldValue := chainGet(r.data, path)
	newValue := processValue(value, field)
	if isSame(oldValue, newValue) {
		return
	}
	if newValue == nil {
		chainRemove(r.data, path)
	} else {
		chainSet(r.data, path, newValue)
	}
	pristine := chainGet(r.pristineData, path)
	if isSame(pristine, newValue) {
		delete(r.dirtyData, path)
	} else {
		if _, tracked := r.dirtyData[path]; !tracked {
			r.dirtyData[path] = pristine
		}
	}
	switch r.status {
	case StatusSync:
		if len(r.dirtyData) > 0 {
			r.status = StatusUpdate
		}
	case StatusUpdate:
		if len(r.dirtyData) == 0 {
			r.status = StatusSync
		}
	}
	if r.dataSet != nil {
		r.dataSet.fire(&Event{
			Name:      EventUpdate,
			DataSet:   r.dataSet,
			Record:    r,
			FieldName: fieldName,
			Value:     newValue,
			OldValue:  oldValue,
		})
		r.dataSet.notifyParentOfChange(r)
	}
}

// Init writes a field value into both the working and pristine copies
// without affecting status or dirty state.
func (r *Record) Init(fieldName string, value any) {
	path := r.fieldPath(fieldName)
	if value == nil {
		chainRemove(r.data, path)
		chainRemove(r.pristineData, path)
	} else {
		chainSet(r.data, path, value)
		chainSet(r.pristineData, path, deepCopyValue(value))
	}
	delete(r.dirtyData, path)
}

// GetState reads a named item of record-scoped UI state.
func (r *Record) GetState(key string) any { return r.state[key] }

// SetState writes a named item of record-scoped UI state.
func (r *Record) SetState(key string, value any) { r.state[key] = value }

// Reset restores the record to its pristine values. Deleted records become
// sync again; added records keep their status. Field prop overrides and
// validation state are cleared.
func (r *Record) Reset() {
	r.data = deepCopyMap(r.pristineData)
	r.dirtyData = map[string]any{}
	switch r.status {
	case StatusUpdate, StatusDelete:
		r.status = StatusSync
	}
	for _, f := range r.fields {
		f.Reset()
		f.validator.Reset()
	}
	r.dataSetSnapshot = map[string]*Snapshot{}
	r.cascadeRecordsMap = map[string][]*Record{}
}

// Save stashes the current working data so a later Restore can return to
// this exact point regardless of intermediate edits.
func (r *Record) Save() *Record {
	r.cachedData = deepCopyMap(r.data)
	return r
}

// Restore returns the working data to the last Save point. Without a prior
// Save it behaves like Reset.
func (r *Record) Restore() *Record {
	if r.cachedData == nil {
		r.Reset()
		return r
	}
	r.data = deepCopyMap(r.cachedData)
	r.refreshDirty()
	return r
}

// refreshDirty recomputes dirtyData by diffing working against pristine for
// every known field path.
func (r *Record) refreshDirty() {
	r.dirtyData = map[string]any{}
	for path := range flattenPaths(r.data, "") {
		if !isSame(chainGet(r.data, path), chainGet(r.pristineData, path)) {
			r.dirtyData[path] = chainGet(r.pristineData, path)
		}
	}
	for path := range flattenPaths(r.pristineData, "") {
		if _, seen := r.dirtyData[path]; seen {
			continue
		}
		if !isSame(chainGet(r.data, path), chainGet(r.pristineData, path)) {
			r.dirtyData[path] = chainGet(r.pristineData, path)
		}
	}
	if r.status == StatusSync && len(r.dirtyData) > 0 {
		r.status = StatusUpdate
	}
	if r.status == StatusUpdate && len(r.dirtyData) == 0 {
		r.status = StatusSync
	}
}

// Clear blanks every declared field.
func (r *Record) Clear() *Record {
	for name := range r.fields {
		r.Set(name, nil)
	}
	return r
}

// Clone copies the record into a new add-status record. The dataset's
// primary key value is dropped so the clone submits as a fresh row.
func (r *Record) Clone() *Record {
	data := deepCopyMap(r.data)
	if r.dataSet != nil && r.dataSet.primaryKey != "" {
		chainRemove(data, r.dataSet.primaryKey)
	}
	return newRecord(data, r.dataSet, StatusAdd)
}

// Commit merges submit-response data into the record and marks it clean.
// Deleted records are detached from the dataset by the caller; everyone
// else becomes sync with a fresh pristine copy.
func (r *Record) Commit(data map[string]any, ds *DataSet) {
	if data != nil {
		rows := responseRows(data, r.config().DataKey)
		if len(rows) == 1 {
			data = rows[0]
		}
		for key, value := range data {
			if key == r.config().StatusKey || key == "__id" {
				continue
			}
			if f := r.GetField(key); f != nil {
				if tr, ok := f.Get("transformResponse").(TransformResponse); ok && tr != nil {
					value = tr(value, data)
				}
			}
			chainSet(r.data, key, value)
		}
	}
	owner := ds
	if owner == nil {
		owner = r.dataSet
	}
	if r.status == StatusAdd && owner != nil {
		owner.totalCount++
	}
	r.status = StatusSync
	r.pristineData = deepCopyMap(r.data)
	r.dirtyData = map[string]any{}
	for _, f := range r.fields {
		f.Commit()
	}
	r.commitCascade(ds)
}

// commitCascade commits the dirty cascade records captured for this record.
func (r *Record) commitCascade(ds *DataSet) {
	if ds == nil {
		ds = r.dataSet
	}
	if ds == nil {
		return
	}
	for name := range ds.children {
		for _, cascade := range r.GetCascadeRecords(name) {
			if cascade.status == StatusDelete {
				if snap, ok := r.dataSetSnapshot[name]; ok {
					snap.Records = removeRecord(snap.Records, cascade)
				}
				continue
			}
			if cascade.status != StatusSync || cascade.Dirty() {
				cascade.Commit(nil, ds.children[name])
			}
		}
	}
}

// GetCascadeRecords resolves the cascade rows of one bound child for this
// record: the child snapshot taken when the record lost currency, the live
// child dataset while current, or records materialized from the embedded
// data array.
func (r *Record) GetCascadeRecords(childName string) []*Record {
	if r.dataSet == nil {
		return nil
	}
	child, ok := r.dataSet.children[childName]
	if !ok {
		return nil
	}
	if snap, ok := r.dataSetSnapshot[childName]; ok {
		return snap.Records
	}
	if r.isCurrent {
		return child.records
	}
	if cached, ok := r.cascadeRecordsMap[childName]; ok {
		return cached
	}
	raw := toSlice(chainGet(r.data, childName))
	if raw == nil {
		return nil
	}
	records := make([]*Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			records = append(records, newRecord(m, child, StatusSync))
		}
	}
	r.cascadeRecordsMap[childName] = records
	return records
}

// Validate runs every field's rule pipeline. With all false, clean sync
// records pass without running rules. Removed records always pass.
func (r *Record) Validate(ctx context.Context, all bool) (bool, error) {
	if r.status == StatusDelete {
		return true, nil
	}
	if !all && r.status == StatusSync && !r.Dirty() {
		return true, nil
	}
	valid := true
	for name := range r.fields {
		f := r.fields[name]
		ok, err := f.CheckValidity(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			valid = false
		}
	}
	return valid, nil
}

// ValidationErrors collects the failed results of every field.
func (r *Record) ValidationErrors() []RecordValidationErrors {
	var out []RecordValidationErrors
	for _, f := range r.fields {
		if results := f.ValidationResults(); len(results) > 0 {
			out = append(out, RecordValidationErrors{Field: f, Errors: results})
		}
	}
	return out
}

// ToData exports the record as a plain data map, applying field ignore
// policies and request transforms, with cascade children embedded unless
// noCascade.
func (r *Record) ToData(noCascade bool) map[string]any {
	out := r.normalizeData(true)
	if !noCascade {
		r.normalizeCascadeData(out, false)
	}
	return out
}

// ToJSONData exports the record in submit envelope form: the normalized
// data plus the configured status field and the record's transient id.
func (r *Record) ToJSONData(noCascade bool) map[string]any {
	out := r.normalizeData(true)
	if !noCascade {
		r.normalizeCascadeData(out, true)
	}
	status := r.status
	if status == StatusSync {
		status = StatusUpdate
	}
	out["__id"] = r.id
	out[r.config().StatusKey] = r.config().statusName(status)
	return out
}

func (r *Record) config() *Config {
	if r.dataSet != nil {
		return r.dataSet.config
	}
	return DefaultConfig()
}

// normalizeData deep copies the working data and applies per-field ignore
// policies and transformRequest hooks.
func (r *Record) normalizeData(needIgnore bool) map[string]any {
	out := deepCopyMap(r.data)
	for _, f := range r.fields {
		path := f.valuePath()
		if needIgnore {
			switch f.GetString("ignore") {
			case IgnoreAlways:
				chainRemove(out, path)
				continue
			case IgnoreClean:
				if !f.Dirty() {
					chainRemove(out, path)
					continue
				}
			}
		}
		if tr, ok := f.Get("transformRequest").(TransformRequest); ok && tr != nil {
			if value := chainGet(out, path); value != nil {
				chainSet(out, path, tr(value, r))
			}
		}
	}
	return out
}

// normalizeCascadeData embeds the dirty cascade rows of each bound child
// under the child's binding name. Clean children are left out so the
// payload carries only changes.
func (r *Record) normalizeCascadeData(out map[string]any, jsonEnvelope bool) {
	if r.dataSet == nil {
		return
	}
	for name := range r.dataSet.children {
		cascade := r.GetCascadeRecords(name)
		var rows []any
		for _, record := range cascade {
			if record.status == StatusSync && !record.Dirty() {
				continue
			}
			if jsonEnvelope {
				rows = append(rows, record.ToJSONData(false))
			} else {
				rows = append(rows, record.ToData(false))
			}
		}
		if len(rows) > 0 {
			chainSet(out, name, rows)
		}
	}
}

// flattenPaths enumerates every leaf dot path of a nested map.
func flattenPaths(data map[string]any, prefix string) map[string]bool {
	out := map[string]bool{}
	for key, value := range data {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if child, ok := value.(map[string]any); ok {
			for p := range flattenPaths(child, path) {
				out[p] = true
			}
			continue
		}
		out[path] = true
	}
	return out
}

// removeRecord removes one record from a slice by identity.
func removeRecord(records []*Record, target *Record) []*Record {
	for i, record := range records {
		if record == target {
			return append(records[:i:i], records[i+1:]...)
		}
	}
	return records
}
