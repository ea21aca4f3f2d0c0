package view

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/row"
	"kodiak/lib/timer"
	"kodiak/lib/utils/parallel"
	"kodiak/lib/value"

	"github.com/samber/mo"
	"go.uber.org/zap"
)

type bucket struct {
	key []value.Value
	// aligned with View.metrics
	metrics []metric.Metric
	rows    int64
}

// table owns the buckets of one grouping set. Buckets live in one slice and
// are found through an index from the hash of their key.
type table struct {
	set     *groupingSet
	buckets []bucket
	index   map[uint64][]int
}

func (t *table) find(key []value.Value, hash uint64) (int, bool) {
	for _, i := range t.index[hash] {
		if value.CompareTuples(t.buckets[i].key, key) == 0 {
			return i, true
		}
	}
	return 0, false
}

// lookup returns the bucket of key, creating it with fresh metrics if needed.
func (t *table) lookup(v *View, key []value.Value) *bucket {
	hash := value.Hash(key...)
	if i, ok := t.find(key, hash); ok {
		return &t.buckets[i]
	}
	metrics := make([]metric.Metric, len(v.metrics))
	for i, m := range v.metrics {
		metrics[i] = m.Zero()
	}
	t.buckets = append(t.buckets, bucket{key: key, metrics: metrics})
	t.index[hash] = append(t.index[hash], len(t.buckets)-1)
	return &t.buckets[len(t.buckets)-1]
}

// Aggregator runs one aggregation over a View. It moves from accumulating
// rows to finalized exactly once and must be driven by a single goroutine.
type Aggregator struct {
	view      *View
	tables    []table
	env       *metric.Env
	scratch   []metric.Metric
	keys      [][]value.Value
	threshold mo.Option[threshold]
	workers   int
	rows      int64
	finalized bool
}

func (v *View) NewAggregator() *Aggregator {
	a := &Aggregator{
		view:      v,
		tables:    make([]table, len(v.sets)),
		env:       metric.NewEnv(nil),
		scratch:   make([]metric.Metric, len(v.order)),
		keys:      make([][]value.Value, len(v.sets)),
		threshold: v.threshold,
		workers:   runtime.GOMAXPROCS(0),
	}
	for i := range v.sets {
		a.tables[i] = table{set: &v.sets[i], index: make(map[uint64][]int)}
	}
	return a
}

// Process folds one row into the buckets of every grouping set. When a column
// fails to compute, its *metric.ComputeError is returned and no bucket is
// touched.
func (a *Aggregator) Process(ctx context.Context, r row.Row) error {
	if a.finalized {
		return ErrFinalized
	}
	a.env.Reset(r)
	for i, m := range a.view.order {
		s := m.Zero()
		if err := s.Compute(ctx, a.env); err != nil {
			return err
		}
		if err := a.env.Define(metric.Name(s), s.Data()); err != nil {
			return err
		}
		a.scratch[i] = s
	}
	for i := range a.tables {
		key, err := a.key(a.tables[i].set)
		if err != nil {
			return err
		}
		a.keys[i] = key
	}

	for i := range a.tables {
		b := a.tables[i].lookup(a.view, a.keys[i])
		for j, pos := range a.view.outputs {
			b.metrics[j] = fold(b.metrics[j], a.scratch[pos])
		}
		b.rows++
	}
	a.rows++
	return nil
}

// fold merges src into the bucket owned metric dst. Kinds that can merge in
// place do so; the others go through Aggregate.
func fold(dst, src metric.Metric) metric.Metric {
	if m, ok := dst.(metric.Merger); ok {
		m.MergeFrom(src)
		return dst
	}
	return dst.Aggregate(src)
}

func (a *Aggregator) key(set *groupingSet) ([]value.Value, error) {
	key := make([]value.Value, len(set.members))
	for i, member := range set.members {
		d, _ := a.env.Data(member)
		v, ok := d.(value.Value)
		if !ok {
			return nil, metric.NewDependencyUnavailable(member, member,
				fmt.Errorf("grouping set '%s' needs a clear key but got %T", set.id, d))
		}
		key[i] = v
	}
	return key, nil
}

// Merge folds the buckets of other, an aggregator of the same view that
// processed a different partition of the rows, into a. Other must not be used
// afterwards.
func (a *Aggregator) Merge(ctx context.Context, other *Aggregator) error {
	if a.view != other.view {
		return ErrViewMismatch
	}
	if a.finalized || other.finalized {
		return ErrFinalized
	}
	_, t := timer.Start(ctx, "view.merge")
	defer t.Stop()
	for i := range a.tables {
		for _, ob := range other.tables[i].buckets {
			b := a.tables[i].lookup(a.view, ob.key)
			for j := range b.metrics {
				b.metrics[j] = fold(b.metrics[j], ob.metrics[j])
			}
			b.rows += ob.rows
		}
	}
	a.rows += other.rows
	other.finalized = true
	return nil
}

// Rows returns the number of rows folded into a, including merged ones.
func (a *Aggregator) Rows() int64 {
	return a.rows
}

// Finalize finalizes every bucket metric that needs it, projects every
// bucket and returns the output view. Buckets below the threshold are never
// finalized, so their secret values are not revealed to anyone. The
// aggregator can not be used afterwards, even when Finalize fails.
func (a *Aggregator) Finalize(ctx context.Context) (*Result, error) {
	if a.finalized {
		return nil, ErrFinalized
	}
	a.finalized = true
	ctx, t := timer.Start(ctx, "view.finalize")
	defer t.Stop()

	var finalizers []metric.Finalizer
	for i := range a.tables {
		for _, b := range a.tables[i].buckets {
			if _, ok := a.suppressed(b); ok {
				continue
			}
			for _, m := range b.metrics {
				if f, ok := m.(metric.Finalizer); ok {
					finalizers = append(finalizers, f)
				}
			}
		}
	}
	_, err := parallel.Process(ctx, a.workers, finalizers, func(f metric.Finalizer) (struct{}, error) {
		return struct{}{}, f.Finalize(ctx)
	})
	if err != nil {
		t.Span().RecordError(err)
		return nil, fmt.Errorf("failed to finalize view: %w", err)
	}

	res := newResult(a.view.Metrics())
	for i := range a.tables {
		tbl := &a.tables[i]
		sort.Slice(tbl.buckets, func(x, y int) bool {
			return value.CompareTuples(tbl.buckets[x].key, tbl.buckets[y].key) < 0
		})
		suppressed := 0
		for _, b := range tbl.buckets {
			r, err := a.project(tbl.set.id, b)
			if err != nil {
				return nil, err
			}
			if r.Suppressed {
				suppressed++
			}
			res.add(r)
		}
		bucketCount.WithLabelValues(string(tbl.set.id)).Set(float64(len(tbl.buckets)))
		a.view.logger.Info("finalized grouping set",
			zap.String("grouping_set", string(tbl.set.id)),
			zap.Int("buckets", len(tbl.buckets)),
			zap.Int("suppressed", suppressed),
		)
	}
	t.Span().SetIntAttribute("rows", int(a.rows))
	return res, nil
}

func (a *Aggregator) project(id ftypes.GroupingSetID, b bucket) (ResultRow, error) {
	r := ResultRow{
		GroupingSet: id,
		Key:         b.key,
		Values:      make(map[ftypes.ColumnName]string, len(b.metrics)),
		Data:        make(map[ftypes.ColumnName]any, len(b.metrics)),
		Rows:        b.rows,
	}
	if th, ok := a.suppressed(b); ok {
		sentinel, err := value.ToJson(th.sentinel)
		if err != nil {
			return ResultRow{}, fmt.Errorf("failed to project threshold sentinel: %w", err)
		}
		for _, m := range b.metrics {
			r.Values[metric.Name(m)] = string(sentinel)
			r.Data[metric.Name(m)] = th.sentinel
		}
		r.Suppressed = true
		return r, nil
	}
	for _, m := range b.metrics {
		s, err := m.JSONValue()
		if err != nil {
			return ResultRow{}, fmt.Errorf("failed to project '%s' of grouping set '%s': %w", metric.Name(m), id, err)
		}
		r.Values[metric.Name(m)] = s
		r.Data[metric.Name(m)] = m.Data()
	}
	return r, nil
}

// suppressed returns the threshold that b falls below, if any.
func (a *Aggregator) suppressed(b bucket) (threshold, bool) {
	th, ok := a.threshold.Get()
	if !ok || b.rows >= th.minRows {
		return threshold{}, false
	}
	return th, true
}
