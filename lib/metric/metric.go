package metric

import (
	"context"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/row"
)

// Metric is the unit of computation of a view. Implementations accumulate
// state across Compute calls and never mutate their inputs in Aggregate, so
// partial results can be merged from any goroutine that owns them.
type Metric interface {
	// ColumnMetadata identifies the kind. Instances of one kind share the
	// same metadata.
	ColumnMetadata() *column.Metadata
	// Zero returns a fresh instance of the same kind in its identity state.
	Zero() Metric
	// Compute folds one row into the accumulator. Every dependency of the
	// column has already been computed and is available through scope.
	// Errors are *ComputeError.
	Compute(ctx context.Context, scope Scope) error
	// Aggregate merges two accumulators of the same kind into a new one. It
	// must be associative and commutative in projected value and panics with
	// *AggregationMismatch when other is of a different kind.
	Aggregate(other Metric) Metric
	// JSONValue projects the current state.
	JSONValue() (string, error)
	// Data returns the native value: a value.Value for clear kinds and an
	// mpc.SecInt for secret ones.
	Data() any
}

// Scope is the row being processed together with the native values of the
// columns that were already computed for it.
type Scope interface {
	row.Row
	Data(name ftypes.ColumnName) (any, bool)
}

// Finalizer is implemented by kinds that need a last step (e.g. a reveal)
// before their value can be projected.
type Finalizer interface {
	Finalize(ctx context.Context) error
}

// Confidential is implemented by kinds whose value is secret shared.
type Confidential interface {
	Secret() bool
}

// Merger is implemented by kinds whose Aggregate copies state that grows with
// the rows seen. MergeFrom folds other into the receiver in place and panics
// like Aggregate on a kind mismatch. It may only be called on an instance
// that nothing else references.
type Merger interface {
	MergeFrom(other Metric)
}

// RoleBinder is implemented by input columns that need to know which party
// supplies them.
type RoleBinder interface {
	BindRole(role ftypes.Role)
}

func Name(m Metric) ftypes.ColumnName {
	return m.ColumnMetadata().Name()
}

func IsSecret(m Metric) bool {
	c, ok := m.(Confidential)
	return ok && c.Secret()
}
