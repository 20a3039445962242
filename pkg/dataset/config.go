package dataset

import (
	"context"
	"log"
)

// ConfirmFunc gates destructive or navigation operations. It receives the
// prompt message and returns false to abort. The default always confirms.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// WarnFunc receives non-fatal precondition warnings. The operation that
// raised the warning becomes a no-op.
type WarnFunc func(format string, args ...any)

// StatusNames maps record statuses to the wire strings written under the
// configured StatusKey on submit.
type StatusNames struct {
	Add    string
	Update string
	Delete string
}

// Config is the engine-wide configuration, constructed once and treated as
// immutable afterwards. Datasets hold a pointer to a shared Config; zero
// fields fall back to the DefaultConfig values at normalization time.
type Config struct {
	// DataKey is the dot path to the row array in read/submit responses.
	DataKey string
	// TotalKey is the dot path to the total row count in read responses.
	TotalKey string
	// StatusKey is the field under which a record's status is serialized.
	StatusKey string
	// TLSKey is the field holding multi-language values for intl fields.
	TLSKey string
	// Status holds the wire names for record statuses.
	Status StatusNames
	// PageSize is the default page size for new datasets.
	PageSize int
	// LookupURL resolves a lookup code to its fetch URL.
	LookupURL func(code string) string
	// Confirm gates deletions and discard-dirty navigation.
	Confirm ConfirmFunc
	// Warn receives precondition-violation warnings.
	Warn WarnFunc
	// Feedback hooks observe load/submit outcomes.
	Feedback Feedback
	// Transport executes remote operations for datasets that do not carry
	// their own.
	Transport Transport
	// Lookups resolves lookup codes and LOV definitions for fields. Nil
	// disables lookup fetching.
	Lookups LookupProvider
}

// LookupProvider fetches lookup rows and list-of-values definitions for
// fields declaring lookupCode or lovCode.
type LookupProvider interface {
	Lookup(ctx context.Context, code string) ([]map[string]any, error)
	LovConfig(ctx context.Context, code string) (map[string]any, error)
}

// DefaultConfig returns the default configuration table.
func DefaultConfig() *Config {
	return &Config{
		DataKey:   "rows",
		TotalKey:  "total",
		StatusKey: "__status",
		TLSKey:    "__tls",
		Status:    StatusNames{Add: "add", Update: "update", Delete: "delete"},
		PageSize:  10,
		LookupURL: func(code string) string { return "/common/code/" + code + "/" },
		Confirm: func(ctx context.Context, message string) (bool, error) {
			return true, nil
		},
		Warn:     log.Printf,
		Feedback: NoopFeedback(),
	}
}

// normalize fills unset fields from the defaults, so a partially populated
// Config behaves like DefaultConfig for everything it leaves out.
func (c *Config) normalize() *Config {
	if c == nil {
		return DefaultConfig()
	}
	def := DefaultConfig()
	out := *c
	if out.DataKey == "" {
		out.DataKey = def.DataKey
	}
	if out.TotalKey == "" {
		out.TotalKey = def.TotalKey
	}
	if out.StatusKey == "" {
		out.StatusKey = def.StatusKey
	}
	if out.TLSKey == "" {
		out.TLSKey = def.TLSKey
	}
	if out.Status == (StatusNames{}) {
		out.Status = def.Status
	}
	if out.PageSize <= 0 {
		out.PageSize = def.PageSize
	}
	if out.LookupURL == nil {
		out.LookupURL = def.LookupURL
	}
	if out.Confirm == nil {
		out.Confirm = def.Confirm
	}
	if out.Warn == nil {
		out.Warn = def.Warn
	}
	if out.Feedback == nil {
		out.Feedback = def.Feedback
	}
	return &out
}

// statusName returns the wire name for a record status.
func (c *Config) statusName(status string) string {
	switch status {
	case StatusAdd:
		return c.Status.Add
	case StatusDelete:
		return c.Status.Delete
	default:
		return c.Status.Update
	}
}
