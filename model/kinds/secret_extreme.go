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

// secretExtreme finds the smallest (sign < 0) or largest (sign > 0) secret
// value of a bucket. Comparisons are protocol rounds and Aggregate can not
// fail, so candidates are collected and reduced by a tournament of
// Less/Select rounds in Finalize.
type secretExtreme struct {
	meta       *column.Metadata
	of         ftypes.ColumnName
	protocol   mpc.Protocol
	to         ftypes.Role
	sign       int
	candidates []mpc.SecInt
	revealed   mo.Option[mo.Option[int64]]
}

var (
	_ metric.Metric       = (*secretExtreme)(nil)
	_ metric.Finalizer    = (*secretExtreme)(nil)
	_ metric.Confidential = (*secretExtreme)(nil)
	_ metric.Merger       = (*secretExtreme)(nil)
)

func SecretMin(name, of ftypes.ColumnName, protocol mpc.Protocol, revealTo ftypes.Role) metric.Metric {
	return &secretExtreme{meta: column.New(name, of), of: of, protocol: protocol, to: revealTo, sign: -1}
}

func SecretMax(name, of ftypes.ColumnName, protocol mpc.Protocol, revealTo ftypes.Role) metric.Metric {
	return &secretExtreme{meta: column.New(name, of), of: of, protocol: protocol, to: revealTo, sign: 1}
}

func (s *secretExtreme) ColumnMetadata() *column.Metadata {
	return s.meta
}

func (s *secretExtreme) Secret() bool {
	return s.revealed.IsAbsent()
}

func (s *secretExtreme) Zero() metric.Metric {
	return &secretExtreme{meta: s.meta, of: s.of, protocol: s.protocol, to: s.to, sign: s.sign}
}

func (s *secretExtreme) Compute(ctx context.Context, scope metric.Scope) error {
	d, ok := scope.Data(s.of)
	if ok {
		if v, isValue := d.(value.Value); isValue && v.Equal(value.Nil) {
			return nil
		}
	}
	share, err := secretOperand(s.protocol, scope, s.meta.Name(), s.of)
	if err != nil {
		return err
	}
	s.candidates = append(s.candidates, share)
	return nil
}

func (s *secretExtreme) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*secretExtreme](s, other)
	candidates := make([]mpc.SecInt, 0, len(s.candidates)+len(o.candidates))
	candidates = append(candidates, s.candidates...)
	candidates = append(candidates, o.candidates...)
	return &secretExtreme{meta: s.meta, of: s.of, protocol: s.protocol, to: s.to, sign: s.sign, candidates: candidates}
}

func (s *secretExtreme) MergeFrom(other metric.Metric) {
	o := metric.MustMatch[*secretExtreme](s, other)
	s.candidates = append(s.candidates, o.candidates...)
}

// better returns the preferred of a and b without opening either.
func (s *secretExtreme) better(ctx context.Context, a, b mpc.SecInt) (mpc.SecInt, error) {
	x, y := a, b
	if s.sign > 0 {
		x, y = b, a
	}
	less, err := s.protocol.Less(ctx, x, y)
	if err != nil {
		return mpc.SecInt{}, err
	}
	return s.protocol.Select(ctx, less, a, b)
}

func (s *secretExtreme) Finalize(ctx context.Context) error {
	if s.revealed.IsPresent() {
		return nil
	}
	if len(s.candidates) == 0 {
		s.revealed = mo.Some(mo.None[int64]())
		return nil
	}
	round := s.candidates
	for len(round) > 1 {
		next := make([]mpc.SecInt, 0, (len(round)+1)/2)
		for i := 0; i+1 < len(round); i += 2 {
			w, err := s.better(ctx, round[i], round[i+1])
			if err != nil {
				return metric.NewProtocolFailure(s.meta.Name(), err)
			}
			next = append(next, w)
		}
		if len(round)%2 == 1 {
			next = append(next, round[len(round)-1])
		}
		round = next
	}
	v, err := s.protocol.Reveal(ctx, round[0], s.to)
	if err != nil {
		return metric.NewProtocolFailure(s.meta.Name(), err)
	}
	s.revealed = mo.Some(mo.Some(v))
	s.candidates = nil
	return nil
}

func (s *secretExtreme) JSONValue() (string, error) {
	r, ok := s.revealed.Get()
	if !ok {
		return "", fmt.Errorf("can not project '%s': %w", s.meta.Name(), metric.ErrNotRevealed)
	}
	if v, ok := r.Get(); ok {
		return strconv.FormatInt(v, 10), nil
	}
	return "null", nil
}

// Data is the revealed value (value.Nil when the bucket had no values) once
// finalized and the candidate shares before.
func (s *secretExtreme) Data() any {
	r, ok := s.revealed.Get()
	if !ok {
		return s.candidates
	}
	if v, ok := r.Get(); ok {
		return value.Int(v)
	}
	return value.Nil
}
