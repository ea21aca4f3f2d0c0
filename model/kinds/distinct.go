package kinds

import (
	"context"
	"strconv"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"
)

// distinct counts distinct values exactly. Values are kept by their
// canonical key encoding, so values that compare equal count once. Nil values
// are skipped.
type distinct struct {
	meta *column.Metadata
	of   ftypes.ColumnName
	seen map[string]struct{}
}

var (
	_ metric.Metric = (*distinct)(nil)
	_ metric.Merger = (*distinct)(nil)
)

func DistinctCount(name, of ftypes.ColumnName) metric.Metric {
	return &distinct{meta: column.New(name, of), of: of, seen: map[string]struct{}{}}
}

func (d *distinct) ColumnMetadata() *column.Metadata {
	return d.meta
}

func (d *distinct) Zero() metric.Metric {
	return &distinct{meta: d.meta, of: d.of, seen: map[string]struct{}{}}
}

func (d *distinct) Compute(ctx context.Context, scope metric.Scope) error {
	v, err := metric.Clear(scope, d.meta.Name(), d.of)
	if err != nil {
		return err
	}
	if v.Equal(value.Nil) {
		return nil
	}
	d.seen[string(value.AppendKey(nil, v))] = struct{}{}
	return nil
}

func (d *distinct) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*distinct](d, other)
	ret := &distinct{meta: d.meta, of: d.of, seen: make(map[string]struct{}, len(d.seen)+len(o.seen))}
	ret.merge(d)
	ret.merge(o)
	return ret
}

func (d *distinct) MergeFrom(other metric.Metric) {
	d.merge(metric.MustMatch[*distinct](d, other))
}

func (d *distinct) merge(o *distinct) {
	for k := range o.seen {
		d.seen[k] = struct{}{}
	}
}

func (d *distinct) JSONValue() (string, error) {
	return strconv.Itoa(len(d.seen)), nil
}

func (d *distinct) Data() any {
	return value.Int(len(d.seen))
}
