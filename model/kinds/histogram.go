package kinds

import (
	"context"
	"fmt"
	"sort"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"

	"github.com/samber/lo"
)

// histogram counts values per bucket. Bucket i holds values v with
// bounds[i-1] < v <= bounds[i]; the last bucket holds values above every
// bound.
type histogram struct {
	meta   *column.Metadata
	of     ftypes.ColumnName
	bounds []float64
	counts []int64
}

var _ metric.Metric = (*histogram)(nil)

// Histogram panics unless bounds are strictly increasing.
func Histogram(name, of ftypes.ColumnName, bounds ...float64) metric.Metric {
	if !sort.Float64sAreSorted(bounds) || len(lo.Uniq(bounds)) != len(bounds) {
		panic(fmt.Sprintf("histogram '%s' bounds must be strictly increasing: %v", name, bounds))
	}
	b := make([]float64, len(bounds))
	copy(b, bounds)
	return &histogram{meta: column.New(name, of), of: of, bounds: b, counts: make([]int64, len(b)+1)}
}

func (h *histogram) ColumnMetadata() *column.Metadata {
	return h.meta
}

func (h *histogram) Zero() metric.Metric {
	return &histogram{meta: h.meta, of: h.of, bounds: h.bounds, counts: make([]int64, len(h.bounds)+1)}
}

func (h *histogram) Compute(ctx context.Context, scope metric.Scope) error {
	v, err := metric.Clear(scope, h.meta.Name(), h.of)
	if err != nil {
		return err
	}
	if v.Equal(value.Nil) {
		return nil
	}
	f, ok := value.ToFloat(v)
	if !ok {
		return metric.NewDependencyUnavailable(h.meta.Name(), h.of, fmt.Errorf("value [%s] is not a number", v))
	}
	h.counts[sort.SearchFloat64s(h.bounds, f)]++
	return nil
}

func (h *histogram) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*histogram](h, other)
	if len(o.counts) != len(h.counts) {
		panic(&metric.AggregationMismatch{Left: h.meta.Name(), Right: o.meta.Name(), Type: "bucket layout"})
	}
	counts := make([]int64, len(h.counts))
	for i := range counts {
		counts[i] = h.counts[i] + o.counts[i]
	}
	return &histogram{meta: h.meta, of: h.of, bounds: h.bounds, counts: counts}
}

func (h *histogram) list() value.List {
	return lo.Map(h.counts, func(c int64, _ int) value.Value {
		return value.Int(c)
	})
}

func (h *histogram) JSONValue() (string, error) {
	data, err := value.ToJson(h.list())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (h *histogram) Data() any {
	return h.list()
}
