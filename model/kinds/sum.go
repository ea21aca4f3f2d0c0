package kinds

import (
	"context"
	"fmt"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"
)

// sum keeps integer and floating point parts apart so that sums of ints stay
// exact; the result is a Double as soon as one Double was folded in.
type sum struct {
	meta   *column.Metadata
	of     ftypes.ColumnName
	ints   int64
	floats float64
	double bool
}

var _ metric.Metric = (*sum)(nil)

// Sum adds up the numeric values of column of. Nil values are skipped.
func Sum(name, of ftypes.ColumnName) metric.Metric {
	return &sum{meta: column.New(name, of), of: of}
}

func (s *sum) ColumnMetadata() *column.Metadata {
	return s.meta
}

func (s *sum) Zero() metric.Metric {
	return &sum{meta: s.meta, of: s.of}
}

func (s *sum) Compute(ctx context.Context, scope metric.Scope) error {
	v, err := metric.Clear(scope, s.meta.Name(), s.of)
	if err != nil {
		return err
	}
	switch t := v.(type) {
	case value.Int:
		s.ints += int64(t)
	case value.Double:
		s.floats += float64(t)
		s.double = true
	default:
		if v.Equal(value.Nil) {
			return nil
		}
		return metric.NewDependencyUnavailable(s.meta.Name(), s.of, fmt.Errorf("value [%s] is not a number", v))
	}
	return nil
}

func (s *sum) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*sum](s, other)
	return &sum{
		meta:   s.meta,
		of:     s.of,
		ints:   s.ints + o.ints,
		floats: s.floats + o.floats,
		double: s.double || o.double,
	}
}

func (s *sum) total() value.Value {
	if s.double {
		return value.Double(float64(s.ints) + s.floats)
	}
	return value.Int(s.ints)
}

func (s *sum) JSONValue() (string, error) {
	data, err := value.ToJson(s.total())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *sum) Data() any {
	return s.total()
}
