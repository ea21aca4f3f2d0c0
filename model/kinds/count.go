package kinds

import (
	"context"
	"strconv"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"
)

type count struct {
	meta *column.Metadata
	n    int64
}

var _ metric.Metric = (*count)(nil)

// Count counts the rows of a bucket.
func Count(name ftypes.ColumnName) metric.Metric {
	return &count{meta: column.New(name)}
}

func (c *count) ColumnMetadata() *column.Metadata {
	return c.meta
}

func (c *count) Zero() metric.Metric {
	return &count{meta: c.meta}
}

func (c *count) Compute(ctx context.Context, scope metric.Scope) error {
	c.n++
	return nil
}

func (c *count) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*count](c, other)
	return &count{meta: c.meta, n: c.n + o.n}
}

func (c *count) JSONValue() (string, error) {
	return strconv.FormatInt(c.n, 10), nil
}

func (c *count) Data() any {
	return value.Int(c.n)
}
