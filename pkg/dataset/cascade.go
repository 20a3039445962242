package dataset

import "context"

// Master-detail cascading. A child dataset binds to a field of the parent
// that embeds its rows. While a parent record is current its children show
// that record's rows; when currency moves away, the child state is
// snapshotted onto the record so edits survive round trips through other
// records.

// Bind attaches this dataset as a cascade child of parent under the given
// data field name. The current parent record's rows load immediately.
func (ds *DataSet) Bind(child *DataSet, name string) {
	if child == nil || name == "" {
		return
	}
	if child.parent != nil {
		delete(child.parent.children, child.parentName)
	}
	child.parent = ds
	child.parentName = name
	ds.children[name] = child
	ds.syncChild(child, name, nil, ds.current)
}

// syncChildren snapshots every child's state onto the record losing
// currency and restores or loads each child for the record gaining it.
func (ds *DataSet) syncChildren(previous, current *Record) {
	for name, child := range ds.children {
		ds.syncChild(child, name, previous, current)
	}
}

func (ds *DataSet) syncChild(child *DataSet, name string, previous, current *Record) {
	if previous != nil {
		previous.dataSetSnapshot[name] = child.Snapshot()
	}
	if current == nil {
		child.clearForCascade()
		return
	}
	if snap, ok := current.dataSetSnapshot[name]; ok {
		child.Restore(snap)
		delete(current.dataSetSnapshot, name)
		return
	}
	child.loadCascadeRecords(current, name)
}

// clearForCascade empties a child while its parent has no current record.
func (ds *DataSet) clearForCascade() {
	ds.records = nil
	ds.originalData = nil
	ds.totalCount = 0
	ds.currentPage = 1
	ds.dropCurrent()
	ds.syncChildren(nil, nil)
}

// loadCascadeRecords fills the child from the rows embedded under the
// binding field of the parent record. Records materialized earlier for the
// same parent record are reused so their edits persist.
func (ds *DataSet) loadCascadeRecords(parentRecord *Record, name string) {
	if cached, ok := parentRecord.cascadeRecordsMap[name]; ok {
		ds.adoptCascadeRecords(cached)
		return
	}
	raw := toSlice(chainGet(parentRecord.data, name))
	records := make([]*Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			records = append(records, newRecord(m, ds, StatusSync))
		}
	}
	parentRecord.cascadeRecordsMap[name] = records
	ds.adoptCascadeRecords(records)
}

func (ds *DataSet) adoptCascadeRecords(records []*Record) {
	ds.records = append([]*Record(nil), records...)
	ds.originalData = append([]*Record(nil), records...)
	ds.totalCount = len(records)
	ds.currentPage = 1
	ds.dropCurrent()
	if ds.autoLocateFirst {
		if data := ds.Data(); len(data) > 0 {
			ds.SetCurrent(data[0])
			ds.fire(&Event{Name: EventLoad, Records: ds.records})
			return
		}
	}
	ds.syncChildren(nil, nil)
	ds.fire(&Event{Name: EventLoad, Records: ds.records})
}

// QueryCascade fetches the child rows of the parent's current record from
// the remote endpoint instead of the embedded data. If parent currency
// moves while the request is in flight, the response lands in the snapshot
// of the record that issued it rather than the live child.
func (ds *DataSet) QueryCascade(ctx context.Context, page int) error {
	if ds.parent == nil {
		return ds.Query(ctx, page)
	}
	issuer := ds.parent.current
	if issuer == nil || issuer.IsNew() {
		ds.config.Warn("dataset %q cannot query: parent %q has no committed current record", ds.name, ds.parent.name)
		return ErrNotReadable
	}
	resp, rows, total, err := ds.read(ctx, page, nil)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	if ds.parent.current != issuer {
		// Stale response: apply it to the issuing record's snapshot.
		ghost := New(Props{Name: ds.name, Paging: boolPtr(ds.paging)}, ds.config)
		ghost.fields = ds.fields
		if snap, ok := issuer.dataSetSnapshot[ds.parentName]; ok {
			ghost.Restore(snap)
		}
		ghost.LoadData(rows, total)
		ghost.currentPage = page
		issuer.dataSetSnapshot[ds.parentName] = ghost.Snapshot()
		return nil
	}
	ds.currentPage = page
	ds.LoadData(rows, total)
	return nil
}

// generateCascadeParams contributes the parent identity to a child query:
// the parent record's primary key value when declared, otherwise its full
// data without cascades.
func (ds *DataSet) generateCascadeParams() map[string]any {
	if ds.parent == nil || ds.parent.current == nil {
		return nil
	}
	current := ds.parent.current
	if pk := ds.parent.primaryKey; pk != "" {
		if value := current.Get(pk); value != nil {
			return map[string]any{pk: value}
		}
	}
	return current.ToData(true)
}

// notifyParentOfChange surfaces a child record edit on the parent, so
// observers of the master see its current record turn dirty.
func (ds *DataSet) notifyParentOfChange(record *Record) {
	if ds.parent == nil || ds.parent.current == nil {
		return
	}
	ds.parent.fire(&Event{
		Name:      EventUpdate,
		DataSet:   ds.parent,
		Record:    ds.parent.current,
		FieldName: ds.parentName,
		Value:     record,
	})
}
