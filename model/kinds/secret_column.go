package kinds

import (
	"context"
	"fmt"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/mpc"
	"kodiak/lib/value"
)

// secretColumn secret-shares an integer field supplied by one party. Its data
// is the mpc.SecInt of the current row; aggregation adds shares.
type secretColumn struct {
	meta     *column.Metadata
	protocol mpc.Protocol
	owner    ftypes.Role
	acc      mpc.SecInt
}

var (
	_ metric.Metric       = (*secretColumn)(nil)
	_ metric.Confidential = (*secretColumn)(nil)
	_ metric.RoleBinder   = (*secretColumn)(nil)
)

// SecretColumn is an input column whose integer values are only ever seen in
// the clear by the party supplying them.
func SecretColumn(name ftypes.ColumnName, protocol mpc.Protocol) metric.Metric {
	return &secretColumn{meta: column.New(name), protocol: protocol, owner: ftypes.Publisher}
}

func (s *secretColumn) ColumnMetadata() *column.Metadata {
	return s.meta
}

// BindRole sets the owner of s and of the instances later created from it
// with Zero.
func (s *secretColumn) BindRole(role ftypes.Role) {
	s.owner = role
}

func (s *secretColumn) Secret() bool {
	return true
}

func (s *secretColumn) Zero() metric.Metric {
	return &secretColumn{meta: s.meta, protocol: s.protocol, owner: s.owner}
}

func (s *secretColumn) Compute(ctx context.Context, scope metric.Scope) error {
	name := s.meta.Name()
	v, err := metric.Field(scope, name, string(name))
	if err != nil {
		return err
	}
	i, ok := v.(value.Int)
	if !ok {
		return metric.NewDependencyUnavailable(name, name, fmt.Errorf("can only share ints but got [%s]", v))
	}
	share, err := s.protocol.Share(ctx, int64(i), s.owner)
	if err != nil {
		return metric.NewProtocolFailure(name, err)
	}
	s.acc = s.add(s.acc, share)
	return nil
}

func (s *secretColumn) add(a, b mpc.SecInt) mpc.SecInt {
	switch {
	case !a.Valid():
		return b
	case !b.Valid():
		return a
	default:
		return s.protocol.Add(a, b)
	}
}

func (s *secretColumn) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*secretColumn](s, other)
	return &secretColumn{meta: s.meta, protocol: s.protocol, owner: s.owner, acc: s.add(s.acc, o.acc)}
}

func (s *secretColumn) JSONValue() (string, error) {
	return "", fmt.Errorf("can not project '%s': %w", s.meta.Name(), metric.ErrNotRevealed)
}

func (s *secretColumn) Data() any {
	if !s.acc.Valid() {
		return s.protocol.Public(0)
	}
	return s.acc
}
