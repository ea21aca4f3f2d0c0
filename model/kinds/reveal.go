package kinds

import (
	"context"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/mpc"
	"kodiak/lib/value"
)

// reveal opens a secret dependency to both parties for every row. The clear
// value behaves like an input column, so it can be used as a grouping key.
type reveal struct {
	meta     *column.Metadata
	of       ftypes.ColumnName
	protocol mpc.Protocol
	dimension
}

var _ metric.Metric = (*reveal)(nil)

func Reveal(name, of ftypes.ColumnName, protocol mpc.Protocol) metric.Metric {
	return &reveal{meta: column.New(name, of), of: of, protocol: protocol}
}

func (r *reveal) ColumnMetadata() *column.Metadata {
	return r.meta
}

func (r *reveal) Zero() metric.Metric {
	return &reveal{meta: r.meta, of: r.of, protocol: r.protocol}
}

func (r *reveal) Compute(ctx context.Context, scope metric.Scope) error {
	share, err := metric.Secret(scope, r.meta.Name(), r.of)
	if err != nil {
		return err
	}
	v, err := r.protocol.Reveal(ctx, share, ftypes.Public)
	if err != nil {
		return metric.NewProtocolFailure(r.meta.Name(), err)
	}
	r.dimension = r.fold(value.Int(v))
	return nil
}

func (r *reveal) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*reveal](r, other)
	return &reveal{meta: r.meta, of: r.of, protocol: r.protocol, dimension: r.merge(o.dimension)}
}

func (r *reveal) JSONValue() (string, error) {
	return r.json()
}

func (r *reveal) Data() any {
	return r.data()
}
