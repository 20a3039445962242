package dataset

// Snapshot captures a dataset's full restorable state: its records, paging
// position, cached selection and the snapshots of its cascade children.
// Records are shared by reference; a snapshot is a bookmark, not a deep
// copy. Record-level pristine data already provides value-level rollback.
type Snapshot struct {
	Records        []*Record
	OriginalData   []*Record
	TotalCount     int
	CurrentPage    int
	PageSize       int
	CachedSelected []*Record
	DataToJSON     string
	Current        *Record
	Children       map[string]*Snapshot
}

// snapshotOf captures the dataset's state, recursing into bound children.
func snapshotOf(ds *DataSet) *Snapshot {
	s := &Snapshot{
		Records:        append([]*Record(nil), ds.records...),
		OriginalData:   append([]*Record(nil), ds.originalData...),
		TotalCount:     ds.totalCount,
		CurrentPage:    ds.currentPage,
		PageSize:       ds.pageSize,
		CachedSelected: append([]*Record(nil), ds.cachedSelected...),
		DataToJSON:     ds.dataToJSON,
		Current:        ds.current,
		Children:       map[string]*Snapshot{},
	}
	for name, child := range ds.children {
		s.Children[name] = snapshotOf(child)
	}
	return s
}
