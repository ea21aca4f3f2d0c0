package kinds

import (
	"context"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"
)

// extreme keeps the smallest (sign < 0) or largest (sign > 0) value seen,
// ordered by value.Compare. Nil values are skipped.
type extreme struct {
	meta *column.Metadata
	of   ftypes.ColumnName
	sign int
	val  value.Value
}

var _ metric.Metric = (*extreme)(nil)

func Min(name, of ftypes.ColumnName) metric.Metric {
	return &extreme{meta: column.New(name, of), of: of, sign: -1}
}

func Max(name, of ftypes.ColumnName) metric.Metric {
	return &extreme{meta: column.New(name, of), of: of, sign: 1}
}

func (e *extreme) ColumnMetadata() *column.Metadata {
	return e.meta
}

func (e *extreme) Zero() metric.Metric {
	return &extreme{meta: e.meta, of: e.of, sign: e.sign}
}

func (e *extreme) pick(a, b value.Value) value.Value {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case value.Compare(b, a)*e.sign > 0:
		return b
	default:
		return a
	}
}

func (e *extreme) Compute(ctx context.Context, scope metric.Scope) error {
	v, err := metric.Clear(scope, e.meta.Name(), e.of)
	if err != nil {
		return err
	}
	if v.Equal(value.Nil) {
		return nil
	}
	e.val = e.pick(e.val, v)
	return nil
}

func (e *extreme) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*extreme](e, other)
	return &extreme{meta: e.meta, of: e.of, sign: e.sign, val: e.pick(e.val, o.val)}
}

func (e *extreme) result() value.Value {
	if e.val == nil {
		return value.Nil
	}
	return e.val
}

func (e *extreme) JSONValue() (string, error) {
	data, err := value.ToJson(e.result())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *extreme) Data() any {
	return e.result()
}
