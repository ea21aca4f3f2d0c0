package metric

import (
	"errors"
	"fmt"

	"kodiak/lib/ftypes"
)

var (
	ErrMissingField          = errors.New("missing field")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrProtocolFailure       = errors.New("protocol failure")
	// ErrNotRevealed is returned when a secret kind is projected before it
	// was revealed.
	ErrNotRevealed = errors.New("secret value not revealed")
)

type ComputeErrorKind int

const (
	MissingField ComputeErrorKind = iota
	DependencyUnavailable
	ProtocolFailure
)

func (k ComputeErrorKind) String() string {
	switch k {
	case MissingField:
		return "missing field"
	case DependencyUnavailable:
		return "dependency unavailable"
	case ProtocolFailure:
		return "protocol failure"
	default:
		return fmt.Sprintf("compute error kind(%d)", int(k))
	}
}

func (k ComputeErrorKind) sentinel() error {
	switch k {
	case MissingField:
		return ErrMissingField
	case DependencyUnavailable:
		return ErrDependencyUnavailable
	default:
		return ErrProtocolFailure
	}
}

// ComputeError is returned by Metric.Compute. It matches the sentinel of its
// kind with errors.Is and unwraps to the underlying cause.
type ComputeError struct {
	Kind   ComputeErrorKind
	Column ftypes.ColumnName
	// Field or dependency name involved, if any.
	Name string
	Err  error
}

func (e *ComputeError) Error() string {
	msg := fmt.Sprintf("failed to compute '%s': %s", e.Column, e.Kind)
	if e.Name != "" {
		msg = fmt.Sprintf("%s '%s'", msg, e.Name)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}

func (e *ComputeError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func NewMissingField(col ftypes.ColumnName, field string) *ComputeError {
	return &ComputeError{Kind: MissingField, Column: col, Name: field}
}

func NewDependencyUnavailable(col ftypes.ColumnName, dep ftypes.ColumnName, err error) *ComputeError {
	return &ComputeError{Kind: DependencyUnavailable, Column: col, Name: string(dep), Err: err}
}

func NewProtocolFailure(col ftypes.ColumnName, err error) *ComputeError {
	return &ComputeError{Kind: ProtocolFailure, Column: col, Err: err}
}

// AggregationMismatch is the panic value raised when metrics of different
// kinds are aggregated. It signals a configuration bug, not a data problem.
type AggregationMismatch struct {
	Left  ftypes.ColumnName
	Right ftypes.ColumnName
	Type  string
}

func (e *AggregationMismatch) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("can not aggregate '%s' with '%s': unexpected %s", e.Left, e.Right, e.Type)
	}
	return fmt.Sprintf("can not aggregate '%s' with '%s'", e.Left, e.Right)
}

// MustMatch panics with *AggregationMismatch unless other is the same kind
// as m and has the concrete type T, which it returns.
func MustMatch[T Metric](m Metric, other Metric) T {
	if Name(m) != Name(other) {
		panic(&AggregationMismatch{Left: Name(m), Right: Name(other)})
	}
	o, ok := other.(T)
	if !ok {
		panic(&AggregationMismatch{Left: Name(m), Right: Name(other), Type: fmt.Sprintf("%T", other)})
	}
	return o
}
