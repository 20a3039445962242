package dataset

// Record status values. A record moves between these states as its values
// diverge from, and are reconciled with, the server-acknowledged data.
const (
	StatusAdd    = "add"    // new record with no server counterpart
	StatusUpdate = "update" // persisted record with local modifications
	StatusDelete = "delete" // persisted record marked for removal
	StatusSync   = "sync"   // persisted record matching pristine data
)

// validRecordStatuses is the set of recognized record status values.
var validRecordStatuses = map[string]bool{
	StatusAdd:    true,
	StatusUpdate: true,
	StatusDelete: true,
	StatusSync:   true,
}

// IsValidStatus reports whether the given string is a recognized record status.
func IsValidStatus(status string) bool {
	return validRecordStatuses[status]
}

// DataSet lifecycle status values.
const (
	StatusReady      = "ready"
	StatusLoading    = "loading"
	StatusSubmitting = "submitting"
)

// Selection modes. SelectionNone disables selection entirely.
const (
	SelectionNone     = "none"
	SelectionSingle   = "single"
	SelectionMultiple = "multiple"
)

// DataToJSON policies control which records are serialized on submit and
// whether cascade children ride along. The -self variants exclude cascades.
const (
	ToJSONDirty        = "dirty"
	ToJSONSelected     = "selected"
	ToJSONAll          = "all"
	ToJSONNormal       = "normal"
	ToJSONDirtySelf    = "dirty-self"
	ToJSONSelectedSelf = "selected-self"
	ToJSONAllSelf      = "all-self"
	ToJSONNormalSelf   = "normal-self"
)

// usesSelected reports whether the policy serializes selected records
// instead of the full record sequence.
func usesSelected(policy string) bool {
	return policy == ToJSONSelected || policy == ToJSONSelectedSelf
}

// usesCascade reports whether the policy includes cascade child data.
func usesCascade(policy string) bool {
	switch policy {
	case ToJSONDirtySelf, ToJSONSelectedSelf, ToJSONAllSelf, ToJSONNormalSelf:
		return false
	default:
		return true
	}
}

// usesNormal reports whether the policy serializes plain data without the
// dirty-diff envelope (__status, __id bookkeeping).
func usesNormal(policy string) bool {
	return policy == ToJSONNormal || policy == ToJSONNormalSelf
}

// adapterDataToJSON maps the legacy (isSelected, noCascade) argument pair
// onto a DataToJSON policy. Returns "" when neither flag is set so the
// dataset-level policy applies.
func adapterDataToJSON(isSelected, noCascade bool) string {
	switch {
	case isSelected && noCascade:
		return ToJSONSelectedSelf
	case isSelected:
		return ToJSONSelected
	case noCascade:
		return ToJSONDirtySelf
	default:
		return ""
	}
}

// Sort orders for field-driven sorting.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)
