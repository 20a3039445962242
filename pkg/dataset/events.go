package dataset

// Lifecycle event names fired on a DataSet. Events whose constant is
// documented as cancellable abort the operation when a listener returns
// false.
const (
	EventCreate        = "create"
	EventUpdate        = "update"
	EventBeforeLoad    = "beforeLoad"
	EventLoad          = "load"
	EventLoadFailed    = "loadFailed"
	EventBeforeAppend  = "beforeAppend"
	EventAppend        = "append"
	EventBeforeRemove  = "beforeRemove" // cancellable
	EventRemove        = "remove"
	EventBeforeDelete  = "beforeDelete" // cancellable
	EventIndexChange   = "indexChange"
	EventSelect        = "select"
	EventUnSelect      = "unSelect"
	EventSelectAll     = "selectAll"
	EventUnSelectAll   = "unSelectAll"
	EventQuery         = "query" // cancellable
	EventExport        = "export"
	EventSubmit        = "submit" // cancellable
	EventSubmitSuccess = "submitSuccess"
	EventSubmitFailed  = "submitFailed"
	EventValidate      = "validate"
	EventReset         = "reset"
	EventFieldChange   = "fieldChange"
)

// Event carries the payload delivered to listeners. Fields are populated
// per event; unset fields are zero values.
type Event struct {
	Name     string
	DataSet  *DataSet
	Record   *Record
	Previous *Record
	Records  []*Record
	Field    *Field

	// FieldName and value pair for update/fieldChange events.
	FieldName string
	PropName  string
	Value     any
	OldValue  any

	// Data carries request/response payloads for query/load/submit events.
	Data any

	// Valid carries the outcome for validate events.
	Valid bool
}

// Listener observes dataset lifecycle events. Returning false from a
// listener of a cancellable event vetoes the operation; the return value is
// ignored for all other events.
type Listener func(e *Event) bool

// EventManager dispatches lifecycle events to registered listeners in
// registration order. Dispatch is synchronous and not safe for concurrent
// mutation; the engine is single-goroutine cooperative by design.
type EventManager struct {
	listeners map[string][]Listener
}

// NewEventManager creates an empty event manager.
func NewEventManager() *EventManager {
	return &EventManager{listeners: make(map[string][]Listener)}
}

// AddEventListener registers a listener for the named event.
func (m *EventManager) AddEventListener(name string, l Listener) {
	if l == nil {
		return
	}
	m.listeners[name] = append(m.listeners[name], l)
}

// RemoveEventListeners drops all listeners for the named event.
func (m *EventManager) RemoveEventListeners(name string) {
	delete(m.listeners, name)
}

// ClearEventListeners drops every registered listener.
func (m *EventManager) ClearEventListeners() {
	m.listeners = make(map[string][]Listener)
}

// fire dispatches the event to all listeners for e.Name. Returns false if
// any listener vetoed; every listener still runs.
func (m *EventManager) fire(e *Event) bool {
	ok := true
	for _, l := range m.listeners[e.Name] {
		if !l(e) {
			ok = false
		}
	}
	return ok
}
