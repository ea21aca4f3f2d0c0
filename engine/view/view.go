package view

import (
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

type inputColumn struct {
	role   ftypes.Role
	metric metric.Metric
}

type groupingSet struct {
	id      ftypes.GroupingSetID
	members []ftypes.ColumnName
}

// threshold suppresses buckets built from fewer than minRows rows: every
// metric of such a bucket projects as sentinel.
type threshold struct {
	minRows  int64
	sentinel value.Value
}

// View is the immutable plan produced by Builder.Build. It is safe to share
// between goroutines; each aggregation run gets its own Aggregator.
type View struct {
	inputs []inputColumn
	// output metrics, in declaration order
	metrics []metric.Metric
	// every column in compute order
	order []metric.Metric
	// position in order of every column
	position map[ftypes.ColumnName]int
	// position in order of every output metric
	outputs   []int
	sets      []groupingSet
	threshold mo.Option[threshold]
	logger    *zap.Logger
}

// Order returns every column in the order it is computed for a row.
func (v *View) Order() []ftypes.ColumnName {
	return lo.Map(v.order, func(m metric.Metric, _ int) ftypes.ColumnName {
		return metric.Name(m)
	})
}

// Metrics returns the output columns in declaration order.
func (v *View) Metrics() []ftypes.ColumnName {
	return lo.Map(v.metrics, func(m metric.Metric, _ int) ftypes.ColumnName {
		return metric.Name(m)
	})
}

// Inputs returns the input columns with the role supplying them.
func (v *View) Inputs() map[ftypes.ColumnName]ftypes.Role {
	ret := make(map[ftypes.ColumnName]ftypes.Role, len(v.inputs))
	for _, in := range v.inputs {
		ret[metric.Name(in.metric)] = in.role
	}
	return ret
}

func (v *View) GroupingSets() []ftypes.GroupingSetID {
	return lo.Map(v.sets, func(s groupingSet, _ int) ftypes.GroupingSetID {
		return s.id
	})
}

// GroupingSet returns the members of grouping set id.
func (v *View) GroupingSet(id ftypes.GroupingSetID) ([]ftypes.ColumnName, bool) {
	s, ok := lo.Find(v.sets, func(s groupingSet) bool {
		return s.id == id
	})
	if !ok {
		return nil, false
	}
	return append([]ftypes.ColumnName{}, s.members...), true
}
