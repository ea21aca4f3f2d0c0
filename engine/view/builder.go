package view

import (
	"fmt"

	"kodiak/engine/resolver"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

// Builder accumulates the configuration of a view. Every method returns the
// builder itself so calls can be chained; Build validates and freezes the
// configuration and can only be called once.
type Builder struct {
	inputs     []inputColumn
	metrics    []metric.Metric
	sets       []groupingSet
	allowEmpty bool
	threshold  mo.Option[threshold]
	logger     *zap.Logger
	built      bool
}

func NewBuilder() *Builder {
	return &Builder{
		allowEmpty: true,
		logger:     zap.NewNop(),
	}
}

// WithInputColumn registers a column read from the input rows and supplied
// by role.
func (b *Builder) WithInputColumn(role ftypes.Role, m metric.Metric) *Builder {
	b.inputs = append(b.inputs, inputColumn{role: role, metric: m})
	return b
}

// WithMetric registers an output metric.
func (b *Builder) WithMetric(m metric.Metric) *Builder {
	b.metrics = append(b.metrics, m)
	return b
}

// WithGroupingSet registers a grouping set keyed by the per row values of
// members. A grouping set without members aggregates every row into a single
// bucket.
func (b *Builder) WithGroupingSet(id ftypes.GroupingSetID, members ...ftypes.ColumnName) *Builder {
	b.sets = append(b.sets, groupingSet{id: id, members: append([]ftypes.ColumnName{}, members...)})
	return b
}

func (b *Builder) DisallowEmptyGroupingSets() *Builder {
	b.allowEmpty = false
	return b
}

// WithThreshold suppresses buckets with fewer than minRows rows.
func (b *Builder) WithThreshold(minRows int64, sentinel value.Value) *Builder {
	b.threshold = mo.Some(threshold{minRows: minRows, sentinel: sentinel})
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) Build() (*View, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	b.built = true

	inputs := lo.Map(b.inputs, func(in inputColumn, _ int) inputColumn {
		return in.bound()
	})
	columns := make(map[ftypes.ColumnName]metric.Metric, len(b.inputs)+len(b.metrics))
	declared := make([]metric.Metric, 0, len(b.inputs)+len(b.metrics))
	for _, in := range inputs {
		declared = append(declared, in.metric)
	}
	declared = append(declared, b.metrics...)
	for _, m := range declared {
		name := metric.Name(m)
		if _, ok := columns[name]; ok {
			return nil, &BuildError{Kind: DuplicateColumnName, Column: name}
		}
		columns[name] = m
	}
	for _, in := range inputs {
		if err := validateRole(in); err != nil {
			return nil, err
		}
	}
	if err := b.validateGroupingSets(columns); err != nil {
		return nil, err
	}
	if th, ok := b.threshold.Get(); ok && th.minRows < 0 {
		return nil, &BuildError{Kind: InvalidThreshold, Detail: fmt.Sprintf("min rows %d is negative", th.minRows)}
	}
	if th, ok := b.threshold.Get(); ok && th.sentinel == nil {
		return nil, &BuildError{Kind: InvalidThreshold, Detail: "missing sentinel"}
	}

	nodes := lo.Map(declared, func(m metric.Metric, _ int) resolver.Node {
		return m.ColumnMetadata()
	})
	names, err := resolver.Order(nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve column dependencies: %w", err)
	}
	v := &View{
		inputs:    inputs,
		metrics:   append([]metric.Metric{}, b.metrics...),
		order:     make([]metric.Metric, len(names)),
		position:  make(map[ftypes.ColumnName]int, len(names)),
		sets:      append([]groupingSet{}, b.sets...),
		threshold: b.threshold,
		logger:    b.logger,
	}
	for i, name := range names {
		v.order[i] = columns[name]
		v.position[name] = i
	}
	v.outputs = lo.Map(v.metrics, func(m metric.Metric, _ int) int {
		return v.position[metric.Name(m)]
	})
	v.logger.Debug("built view",
		zap.Int("input_columns", len(v.inputs)),
		zap.Int("metrics", len(v.metrics)),
		zap.Int("grouping_sets", len(v.sets)),
		zap.Any("order", names),
	)
	return v, nil
}

func validateRole(in inputColumn) error {
	name := metric.Name(in.metric)
	switch {
	case metric.IsSecret(in.metric) && !in.role.IsParty():
		return &BuildError{Kind: InvalidRole, Column: name, Detail: fmt.Sprintf("secret input supplied by %s", in.role)}
	case !in.role.IsParty() && in.role != ftypes.Public:
		return &BuildError{Kind: InvalidRole, Column: name, Detail: fmt.Sprintf("unknown %s", in.role)}
	}
	return nil
}

func (b *Builder) validateGroupingSets(columns map[ftypes.ColumnName]metric.Metric) error {
	seen := make(map[ftypes.GroupingSetID]struct{}, len(b.sets))
	for _, s := range b.sets {
		if _, ok := seen[s.id]; ok {
			return &BuildError{Kind: DuplicateGroupingSet, GroupingSet: s.id}
		}
		seen[s.id] = struct{}{}
		if len(s.members) == 0 && !b.allowEmpty {
			return &BuildError{Kind: EmptyGroupingSet, GroupingSet: s.id}
		}
		for _, member := range s.members {
			m, ok := columns[member]
			if !ok {
				return &BuildError{Kind: UnresolvedGroupingMember, GroupingSet: s.id, Column: member}
			}
			if metric.IsSecret(m) {
				return &BuildError{Kind: SecretGroupingMember, GroupingSet: s.id, Column: member}
			}
		}
	}
	return nil
}

// bound returns the column with the role bound to a copy of its metric, so
// the same metric can be registered with different roles in several views.
func (in inputColumn) bound() inputColumn {
	if _, ok := in.metric.(metric.RoleBinder); !ok {
		return in
	}
	m := in.metric.Zero()
	m.(metric.RoleBinder).BindRole(in.role)
	return inputColumn{role: in.role, metric: m}
}
