package dataset

import "github.com/cockroachdb/errors"

var (
	// ErrColumnNotFound is returned when a named column does not exist in a table.
	ErrColumnNotFound = errors.New("column not found")
	// ErrNonNumericColumn is returned when a numeric operation targets another kind.
	ErrNonNumericColumn = errors.New("column is not numeric")
	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrRowMismatch is returned when columns disagree on the row count.
	ErrRowMismatch = errors.New("column lengths differ")
)
