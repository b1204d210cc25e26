package analysis

import (
	"github.com/cockroachdb/errors"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

var (
	// ErrInvalidStrategy is returned for a missing-value strategy outside mean|median|forward_fill|drop.
	ErrInvalidStrategy = errors.New("invalid missing-value strategy")
	// ErrInvalidThreshold is returned when a column-drop threshold is outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid missing-value threshold")
	// ErrStrategyType marks a mean/median imputation aimed at a non-numeric
	// column. Such columns are left unchanged; the error is only logged.
	ErrStrategyType = errors.New("strategy does not apply to column type")
	// ErrInvalidOutlierMethod is returned for an outlier method outside iqr|zscore|mad.
	ErrInvalidOutlierMethod = errors.New("invalid outlier method")
	// ErrInvalidParameter is returned for a negative or NaN method parameter.
	ErrInvalidParameter = errors.New("invalid method parameter")

	ErrColumnNotFound   = dataset.ErrColumnNotFound
	ErrNonNumericColumn = dataset.ErrNonNumericColumn
)
