package dataset

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by dataset operations.
var (
	// ErrNotReadable is returned when a cascade child queries while its
	// parent has no current committed record.
	ErrNotReadable = errors.New("dataset is not readable: parent has no current record")

	// ErrInvalidQuery is returned when the query dataset fails validation
	// before a query is issued.
	ErrInvalidQuery = errors.New("query dataset validation failed")

	// ErrNoTransport is returned when a remote operation is attempted on a
	// dataset with no transport configured.
	ErrNoTransport = errors.New("no transport configured")

	// ErrValidation is returned by Submit when the pre-submit validation
	// pass rejects one or more records.
	ErrValidation = errors.New("dataset validation failed")
)

// RequestError wraps a transport-layer failure during read or submit. The
// original cause is preserved for errors.Is/As inspection.
type RequestError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("dataset %s request failed: %v", e.Operation, e.Err)
}

// Unwrap returns the transport cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// newRequestError wraps err for the given operation, passing through nil.
func newRequestError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &RequestError{Operation: operation, Err: err}
}
