package kinds

import (
	"context"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
)

// clearColumn reads a clear field of the input row.
type clearColumn struct {
	meta  *column.Metadata
	field string
	dimension
}

var _ metric.Metric = (*clearColumn)(nil)

// Column is an input column reading the row field of the same name.
func Column(name ftypes.ColumnName) metric.Metric {
	return Field(name, string(name))
}

// Field is an input column reading the given row field.
func Field(name ftypes.ColumnName, field string) metric.Metric {
	return &clearColumn{meta: column.New(name), field: field}
}

func (c *clearColumn) ColumnMetadata() *column.Metadata {
	return c.meta
}

func (c *clearColumn) Zero() metric.Metric {
	return &clearColumn{meta: c.meta, field: c.field}
}

func (c *clearColumn) Compute(ctx context.Context, scope metric.Scope) error {
	v, err := metric.Field(scope, c.meta.Name(), c.field)
	if err != nil {
		return err
	}
	c.dimension = c.fold(v)
	return nil
}

func (c *clearColumn) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*clearColumn](c, other)
	return &clearColumn{meta: c.meta, field: c.field, dimension: c.merge(o.dimension)}
}

func (c *clearColumn) JSONValue() (string, error) {
	return c.json()
}

func (c *clearColumn) Data() any {
	return c.data()
}
