package kinds

import (
	"context"
	"fmt"
	"strconv"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/mpc"
	"kodiak/lib/value"

	"github.com/samber/mo"
)

// secretSum adds up a secret or clear integer column under secret sharing and
// reveals the total to one party when finalized.
type secretSum struct {
	meta     *column.Metadata
	of       ftypes.ColumnName
	protocol mpc.Protocol
	to       ftypes.Role
	acc      mpc.SecInt
	revealed mo.Option[int64]
}

var (
	_ metric.Metric       = (*secretSum)(nil)
	_ metric.Finalizer    = (*secretSum)(nil)
	_ metric.Confidential = (*secretSum)(nil)
)

func SecretSum(name, of ftypes.ColumnName, protocol mpc.Protocol, revealTo ftypes.Role) metric.Metric {
	return &secretSum{meta: column.New(name, of), of: of, protocol: protocol, to: revealTo, acc: protocol.Public(0)}
}

func (s *secretSum) ColumnMetadata() *column.Metadata {
	return s.meta
}

// Secret is true until the total has been revealed.
func (s *secretSum) Secret() bool {
	return s.revealed.IsAbsent()
}

func (s *secretSum) Zero() metric.Metric {
	return &secretSum{meta: s.meta, of: s.of, protocol: s.protocol, to: s.to, acc: s.protocol.Public(0)}
}

func (s *secretSum) Compute(ctx context.Context, scope metric.Scope) error {
	share, err := secretOperand(s.protocol, scope, s.meta.Name(), s.of)
	if err != nil {
		return err
	}
	s.acc = s.protocol.Add(s.acc, share)
	return nil
}

func (s *secretSum) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*secretSum](s, other)
	return &secretSum{meta: s.meta, of: s.of, protocol: s.protocol, to: s.to, acc: s.protocol.Add(s.acc, o.acc)}
}

func (s *secretSum) Finalize(ctx context.Context) error {
	if s.revealed.IsPresent() {
		return nil
	}
	v, err := s.protocol.Reveal(ctx, s.acc, s.to)
	if err != nil {
		return metric.NewProtocolFailure(s.meta.Name(), err)
	}
	s.revealed = mo.Some(v)
	return nil
}

func (s *secretSum) JSONValue() (string, error) {
	v, ok := s.revealed.Get()
	if !ok {
		return "", fmt.Errorf("can not project '%s': %w", s.meta.Name(), metric.ErrNotRevealed)
	}
	return strconv.FormatInt(v, 10), nil
}

// Data is the revealed value.Int once finalized and the shares before.
func (s *secretSum) Data() any {
	if v, ok := s.revealed.Get(); ok {
		return value.Int(v)
	}
	return s.acc
}

// secretOperand reads dependency dep as shares, sharing clear ints as public
// constants. Nil values count as zero.
func secretOperand(protocol mpc.Protocol, scope metric.Scope, col, dep ftypes.ColumnName) (mpc.SecInt, error) {
	d, ok := scope.Data(dep)
	if !ok {
		return mpc.SecInt{}, metric.NewDependencyUnavailable(col, dep, nil)
	}
	switch t := d.(type) {
	case mpc.SecInt:
		return t, nil
	case value.Int:
		return protocol.Public(int64(t)), nil
	case value.Value:
		if t.Equal(value.Nil) {
			return protocol.Public(0), nil
		}
		return mpc.SecInt{}, metric.NewDependencyUnavailable(col, dep, fmt.Errorf("value [%s] is not an int", t))
	default:
		return mpc.SecInt{}, metric.NewDependencyUnavailable(col, dep, fmt.Errorf("unexpected data %T", d))
	}
}
