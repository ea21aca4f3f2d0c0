package kinds

import (
	"context"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"
)

// DeriveFunc computes a clear value from the values of the dependencies, in
// the order they were declared.
type DeriveFunc func(args []value.Value) (value.Value, error)

// derived computes a per row clear value such as a bucketed key. It
// aggregates like an input column.
type derived struct {
	meta *column.Metadata
	deps []ftypes.ColumnName
	fn   DeriveFunc
	dimension
}

var _ metric.Metric = (*derived)(nil)

func Derived(name ftypes.ColumnName, fn DeriveFunc, deps ...ftypes.ColumnName) metric.Metric {
	d := make([]ftypes.ColumnName, len(deps))
	copy(d, deps)
	return &derived{meta: column.New(name, deps...), deps: d, fn: fn}
}

func (d *derived) ColumnMetadata() *column.Metadata {
	return d.meta
}

func (d *derived) Zero() metric.Metric {
	return &derived{meta: d.meta, deps: d.deps, fn: d.fn}
}

func (d *derived) Compute(ctx context.Context, scope metric.Scope) error {
	args := make([]value.Value, len(d.deps))
	for i, dep := range d.deps {
		v, err := metric.Clear(scope, d.meta.Name(), dep)
		if err != nil {
			return err
		}
		args[i] = v
	}
	v, err := d.fn(args)
	if err != nil {
		return metric.NewDependencyUnavailable(d.meta.Name(), d.meta.Name(), err)
	}
	d.dimension = d.fold(v)
	return nil
}

func (d *derived) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*derived](d, other)
	return &derived{meta: d.meta, deps: d.deps, fn: d.fn, dimension: d.merge(o.dimension)}
}

func (d *derived) JSONValue() (string, error) {
	return d.json()
}

func (d *derived) Data() any {
	return d.data()
}
