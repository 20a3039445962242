package dataset

// Selection. In normal mode selected records carry a flag, and with
// CacheSelection on they survive page loads through the cached-selection
// store. In all-page-selection mode the meaning of the cache inverts: every
// selectable record is considered selected except the ones explicitly
// deselected into the cache.

// SelectionMode returns the configured selection mode.
func (ds *DataSet) SelectionMode() string { return ds.selectionMode }

// IsAllPageSelection reports whether all-page complement selection is on.
func (ds *DataSet) IsAllPageSelection() bool { return ds.isAllPageSelection }

// Selected returns the selected records. In all-page-selection mode that is
// every selectable record minus the explicitly deselected ones.
func (ds *DataSet) Selected() []*Record {
	if ds.isAllPageSelection {
		out := []*Record{}
		for _, r := range ds.Data() {
			if r.selectable && !containsRecord(ds.cachedSelected, r) {
				out = append(out, r)
			}
		}
		return out
	}
	out := []*Record{}
	for _, r := range ds.Data() {
		if r.isSelected {
			out = append(out, r)
		}
	}
	return append(out, ds.cachedSelected...)
}

// UnSelected returns the visible records not currently selected.
func (ds *DataSet) UnSelected() []*Record {
	selected := ds.Selected()
	out := []*Record{}
	for _, r := range ds.Data() {
		if !containsRecord(selected, r) {
			out = append(out, r)
		}
	}
	return out
}

// CachedSelected returns the selection cache: off-page selected records, or
// the explicitly deselected ones in all-page-selection mode.
func (ds *DataSet) CachedSelected() []*Record {
	return append([]*Record(nil), ds.cachedSelected...)
}

// Select selects one record. Single mode replaces the previous selection;
// none mode warns and ignores. The select event may veto.
func (ds *DataSet) Select(record *Record) {
	if record == nil || record.dataSet != ds {
		return
	}
	if ds.selectionMode == SelectionNone {
		ds.config.Warn("dataset %q does not allow selection", ds.name)
		return
	}
	if !record.selectable {
		ds.config.Warn("record %d of dataset %q is not selectable", record.id, ds.name)
		return
	}
	if ds.isAllPageSelection {
		ds.cachedSelected = removeRecord(ds.cachedSelected, record)
		record.isCached = false
		ds.fire(&Event{Name: EventSelect, Record: record})
		return
	}
	if record.isSelected {
		return
	}
	if ds.selectionMode == SelectionSingle {
		for _, r := range ds.Selected() {
			ds.UnSelect(r)
		}
	}
	if !ds.fire(&Event{Name: EventSelect, Record: record}) {
		return
	}
	record.isSelected = true
}

// UnSelect deselects one record. In all-page-selection mode the record
// joins the deselected cache instead.
func (ds *DataSet) UnSelect(record *Record) {
	if record == nil {
		return
	}
	if ds.isAllPageSelection {
		if record.selectable && !containsRecord(ds.cachedSelected, record) {
			ds.cachedSelected = append(ds.cachedSelected, record)
			ds.fire(&Event{Name: EventUnSelect, Record: record})
		}
		return
	}
	if record.isCached {
		ds.cachedSelected = removeRecord(ds.cachedSelected, record)
		record.isCached = false
		ds.fire(&Event{Name: EventUnSelect, Record: record})
		return
	}
	if !record.isSelected {
		return
	}
	if !ds.fire(&Event{Name: EventUnSelect, Record: record}) {
		return
	}
	record.isSelected = false
}

// SelectAll selects every selectable visible record. Requires multiple
// mode.
func (ds *DataSet) SelectAll() {
	if ds.selectionMode != SelectionMultiple {
		ds.config.Warn("dataset %q is not in multiple selection mode", ds.name)
		return
	}
	if ds.isAllPageSelection {
		ds.cachedSelected = nil
	} else {
		for _, r := range ds.Data() {
			if r.selectable {
				r.isSelected = true
			}
		}
	}
	ds.fire(&Event{Name: EventSelectAll, Records: ds.Selected()})
}

// UnSelectAll deselects every visible record, leaving the off-page cache
// alone.
func (ds *DataSet) UnSelectAll() {
	if ds.isAllPageSelection {
		for _, r := range ds.Data() {
			if r.selectable && !containsRecord(ds.cachedSelected, r) {
				ds.cachedSelected = append(ds.cachedSelected, r)
			}
		}
	} else {
		for _, r := range ds.Data() {
			r.isSelected = false
		}
	}
	ds.fire(&Event{Name: EventUnSelectAll})
}

// SetAllPageSelection switches between normal and complement selection.
// Enabling clears the per-record flags and empties the cache, so everything
// starts selected; disabling re-selects the visible records that were not
// explicitly deselected and drops the cache.
func (ds *DataSet) SetAllPageSelection(enabled bool) {
	if ds.selectionMode != SelectionMultiple {
		ds.config.Warn("all-page selection needs dataset %q in multiple selection mode", ds.name)
		return
	}
	if ds.isAllPageSelection == enabled {
		return
	}
	if enabled {
		for _, r := range ds.records {
			r.isSelected = false
		}
		for _, r := range ds.cachedSelected {
			r.isCached = false
		}
		ds.cachedSelected = nil
		ds.isAllPageSelection = true
		ds.fire(&Event{Name: EventSelectAll, Records: ds.Selected()})
		return
	}
	deselected := ds.cachedSelected
	ds.cachedSelected = nil
	ds.isAllPageSelection = false
	for _, r := range ds.Data() {
		if r.selectable && !containsRecord(deselected, r) {
			r.isSelected = true
		}
	}
}

// storeSelected moves the selected visible records into the selection cache
// before a page load replaces them. No-op unless CacheSelection is on and
// the dataset can identify records across loads.
func (ds *DataSet) storeSelected() {
	if !ds.cacheSelection || ds.isAllPageSelection || len(ds.cacheSelectionKeys()) == 0 {
		return
	}
	for _, r := range ds.Data() {
		if r.isSelected && !containsRecord(ds.cachedSelected, r) {
			r.isSelected = false
			r.isCached = true
			ds.cachedSelected = append(ds.cachedSelected, r)
		}
	}
}

// releaseCachedSelected re-selects freshly loaded records that match a
// cached selection by the cache selection keys, removing the stale cache
// entry.
func (ds *DataSet) releaseCachedSelected() {
	keys := ds.cacheSelectionKeys()
	if !ds.cacheSelection || ds.isAllPageSelection || len(keys) == 0 {
		return
	}
	for _, record := range ds.Data() {
		for _, cached := range ds.cachedSelected {
			if recordsMatch(record, cached, keys) {
				ds.cachedSelected = removeRecord(ds.cachedSelected, cached)
				cached.isCached = false
				record.isSelected = true
				break
			}
		}
	}
}

// cacheSelectionKeys returns the fields identifying a record across loads:
// the primary key when declared, otherwise the unique fields.
func (ds *DataSet) cacheSelectionKeys() []string {
	if ds.primaryKey != "" {
		return []string{ds.primaryKey}
	}
	return ds.uniqueKeys()
}

// uniqueKeys returns the names of fields declared unique: true.
func (ds *DataSet) uniqueKeys() []string {
	var keys []string
	for name, f := range ds.fields {
		if unique, ok := f.Get("unique").(bool); ok && unique {
			keys = append(keys, name)
		}
	}
	return keys
}

func recordsMatch(a, b *Record, keys []string) bool {
	for _, key := range keys {
		av, bv := a.Get(key), b.Get(key)
		if av == nil || !isSame(av, bv) {
			return false
		}
	}
	return len(keys) > 0
}

func containsRecord(records []*Record, target *Record) bool {
	for _, r := range records {
		if r == target {
			return true
		}
	}
	return false
}
