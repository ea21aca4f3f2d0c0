package view

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/mpc"
	"kodiak/lib/row"
	"kodiak/lib/value"
	"kodiak/model/kinds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// rowOf builds a row from field, value pairs.
func rowOf(kv ...any) row.Row {
	fields := make(map[string]value.Value)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i].(string)] = kv[i+1].(value.Value)
	}
	return row.New(fields)
}

func sale(region string, amount int64) row.Row {
	return rowOf("region", value.String(region), "amount", value.Int(amount))
}

func regionRows() []row.Row {
	return []row.Row{sale("US", 10), sale("US", 5), sale("EU", 7)}
}

type projected struct {
	GroupingSet ftypes.GroupingSetID
	Key         string
	Values      map[ftypes.ColumnName]string
	Rows        int64
	Suppressed  bool
}

func project(res *Result) []projected {
	var ret []projected
	for _, r := range res.Rows() {
		ret = append(ret, projected{
			GroupingSet: r.GroupingSet,
			Key:         fmt.Sprint(r.Key),
			Values:      r.Values,
			Rows:        r.Rows,
			Suppressed:  r.Suppressed,
		})
	}
	return ret
}

func process(t *testing.T, a *Aggregator, rows ...row.Row) {
	t.Helper()
	for _, r := range rows {
		require.NoError(t, a.Process(context.Background(), r))
	}
}

func TestAggregator_EndToEnd(t *testing.T) {
	t.Parallel()
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, kinds.Column("amount")).
		WithInputColumn(ftypes.Partner, kinds.Column("region")).
		WithMetric(kinds.Sum("total", "amount")).
		WithGroupingSet("by_region", "region").
		Build()
	require.NoError(t, err)

	a := v.NewAggregator()
	process(t, a, regionRows()...)
	assert.Equal(t, int64(3), a.Rows())
	res, err := a.Finalize(context.Background())
	require.NoError(t, err)

	us, ok := res.Lookup("by_region", value.String("US"))
	require.True(t, ok)
	assert.Equal(t, map[ftypes.ColumnName]string{"total": "15"}, us.Values)
	assert.Equal(t, int64(2), us.Rows)
	eu, ok := res.Lookup("by_region", value.String("EU"))
	require.True(t, ok)
	assert.Equal(t, map[ftypes.ColumnName]string{"total": "7"}, eu.Values)
	total, err := eu.Value("total")
	require.NoError(t, err)
	assert.Equal(t, value.Int(7), total)
	assert.Equal(t, value.Int(7), eu.Data["total"])
	_, err = eu.Value("avg")
	assert.Error(t, err)

	_, ok = res.Lookup("by_region", value.String("APAC"))
	assert.False(t, ok)
	_, ok = res.Lookup("by_market", value.String("US"))
	assert.False(t, ok)
	// keys are sorted within a grouping set
	rows := res.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []value.Value{value.String("EU")}, rows[0].Key)
	assert.Equal(t, []value.Value{value.String("US")}, rows[1].Key)
	assert.Equal(t, []ftypes.ColumnName{"total"}, res.Metrics())
}

func TestAggregator_WholeAverageStaysDouble(t *testing.T) {
	t.Parallel()
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, kinds.Column("amount")).
		WithInputColumn(ftypes.Partner, kinds.Column("region")).
		WithMetric(kinds.Average("avg", "amount")).
		WithGroupingSet("by_region", "region").
		Build()
	require.NoError(t, err)
	a := v.NewAggregator()
	process(t, a, regionRows()...)
	res, err := a.Finalize(context.Background())
	require.NoError(t, err)
	eu, ok := res.Lookup("by_region", value.String("EU"))
	require.True(t, ok)
	assert.Equal(t, "7.0", eu.Values["avg"])
	avg, err := eu.Value("avg")
	require.NoError(t, err)
	assert.Equal(t, value.Double(7), avg)
	assert.Equal(t, eu.Data["avg"], avg)
}

func TestAggregator_SecretEndToEnd(t *testing.T) {
	t.Parallel()
	p := newProtocol()
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, kinds.SecretColumn("amount", p)).
		WithInputColumn(ftypes.Partner, kinds.Column("region")).
		WithMetric(kinds.SecretSum("total", "amount", p, ftypes.Public)).
		WithMetric(kinds.SecretMax("largest", "amount", p, ftypes.Publisher)).
		WithMetric(kinds.Count("sales")).
		WithGroupingSet("by_region", "region").
		WithGroupingSet("all").
		Build()
	require.NoError(t, err)

	a := v.NewAggregator()
	process(t, a, regionRows()...)
	res, err := a.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []projected{
		{"by_region", "[String(EU)]", map[ftypes.ColumnName]string{"total": "7", "largest": "7", "sales": "1"}, 1, false},
		{"by_region", "[String(US)]", map[ftypes.ColumnName]string{"total": "15", "largest": "10", "sales": "2"}, 2, false},
		{"all", "[]", map[ftypes.ColumnName]string{"total": "22", "largest": "10", "sales": "3"}, 3, false},
	}, project(res))
	all, ok := res.Lookup("all")
	require.True(t, ok)
	assert.Equal(t, value.Int(22), all.Data["total"])
}

func TestAggregator_ComputeFailureIsAtomic(t *testing.T) {
	t.Parallel()
	broken := false
	p := newProtocol(mpc.WithFailures(func(op string) error {
		if broken && op == "share" {
			return mpc.ErrPartyUnavailable
		}
		return nil
	}))
	decade := func(args []value.Value) (value.Value, error) {
		amount := int64(args[0].(value.Int))
		if amount < 0 {
			return nil, errors.New("negative amount")
		}
		return value.Int(amount / 10 * 10), nil
	}
	v, err := NewBuilder().
		WithInputColumn(ftypes.Partner, kinds.Column("region")).
		WithInputColumn(ftypes.Publisher, kinds.Column("amount")).
		WithInputColumn(ftypes.Publisher, kinds.Field("amount_copy", "amount")).
		WithMetric(kinds.Count("sales")).
		WithMetric(kinds.Sum("total", "amount")).
		WithMetric(kinds.Derived("decade", decade, "amount")).
		WithMetric(kinds.SecretSum("private_total", "shared", p, ftypes.Public)).
		WithInputColumn(ftypes.Publisher, kinds.SecretColumn("shared", p)).
		WithGroupingSet("all").
		WithGroupingSet("by_region", "region").
		WithGroupingSet("by_decade", "decade").
		Build()
	require.NoError(t, err)

	shared := func(region string, amount int64) row.Row {
		return rowOf("region", value.String(region), "amount", value.Int(amount), "shared", value.Int(amount))
	}
	good := []row.Row{shared("US", 10), shared("US", 5), shared("EU", 7)}
	expected := v.NewAggregator()
	process(t, expected, good...)
	want, err := expected.Finalize(context.Background())
	require.NoError(t, err)

	scenarios := []struct {
		name string
		bad  row.Row
		kind error
	}{
		{"missing_field", rowOf("region", value.String("US"), "shared", value.Int(1)), metric.ErrMissingField},
		{"late_column_fails", shared("US", -3), metric.ErrDependencyUnavailable},
		{"protocol_failure", shared("EU", 4), metric.ErrProtocolFailure},
	}
	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			a := v.NewAggregator()
			process(t, a, good[:2]...)
			broken = scenario.name == "protocol_failure"
			err := a.Process(context.Background(), scenario.bad)
			broken = false
			require.Error(t, err)
			assert.ErrorIs(t, err, scenario.kind)
			process(t, a, good[2:]...)
			assert.Equal(t, int64(3), a.Rows())
			got, err := a.Finalize(context.Background())
			require.NoError(t, err)
			assert.Equal(t, project(want), project(got))
		})
	}
}

// rawKey exposes data that is not a clear value.
type rawKey struct {
	meta *column.Metadata
	data any
}

func (r *rawKey) ColumnMetadata() *column.Metadata { return r.meta }
func (r *rawKey) Zero() metric.Metric { return &rawKey{meta: r.meta} }
func (r *rawKey) Aggregate(other metric.Metric) metric.Metric {
	return metric.MustMatch[*rawKey](r, other).Zero()
}
func (r *rawKey) JSONValue() (string, error) { return "null", nil }
func (r *rawKey) Data() any { return r.data }
func (r *rawKey) Compute(ctx context.Context, scope metric.Scope) error {
	v, _ := scope.Get("key")
	if v.Equal(value.String("raw")) {
		r.data = struct{}{}
	} else {
		r.data = v
	}
	return nil
}

func TestAggregator_KeyMustBeClear(t *testing.T) {
	t.Parallel()
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, &rawKey{meta: column.New("key")}).
		WithMetric(kinds.Count("rows")).
		WithGroupingSet("all").
		WithGroupingSet("by_key", "key").
		Build()
	require.NoError(t, err)
	a := v.NewAggregator()
	process(t, a, rowOf("key", value.String("a")))
	err = a.Process(context.Background(), rowOf("key", value.String("raw")))
	assert.ErrorIs(t, err, metric.ErrDependencyUnavailable)
	res, err := a.Finalize(context.Background())
	require.NoError(t, err)
	all, ok := res.Lookup("all")
	require.True(t, ok)
	assert.Equal(t, "1", all.Values["rows"])
	assert.Len(t, res.GroupingSet("by_key"), 1)
}

func partitionView(t *testing.T) *View {
	p := newProtocol()
	decade := func(args []value.Value) (value.Value, error) {
		return value.Int(int64(args[0].(value.Int)) / 10 * 10), nil
	}
	v, err := NewBuilder().
		WithInputColumn(ftypes.Partner, kinds.Column("region")).
		WithInputColumn(ftypes.Publisher, kinds.Column("amount")).
		WithInputColumn(ftypes.Publisher, kinds.SecretColumn("shared", p)).
		WithMetric(kinds.Count("sales")).
		WithMetric(kinds.Sum("total", "amount")).
		WithMetric(kinds.Average("avg", "amount")).
		WithMetric(kinds.Min("smallest", "amount")).
		WithMetric(kinds.Max("largest", "amount")).
		WithMetric(kinds.DistinctCount("amounts", "amount")).
		WithMetric(kinds.Histogram("spread", "amount", 5, 10)).
		WithMetric(kinds.Derived("decade", decade, "amount")).
		WithMetric(kinds.SecretSum("private_total", "shared", p, ftypes.Public)).
		WithMetric(kinds.SecretMin("private_smallest", "shared", p, ftypes.Partner)).
		WithGroupingSet("by_region", "region").
		WithGroupingSet("by_decade", "decade").
		WithGroupingSet("all").
		Build()
	require.NoError(t, err)
	return v
}

func partitionRows() []row.Row {
	var rows []row.Row
	for i, region := range []string{"US", "EU", "US", "APAC", "EU", "US", "US", "EU"} {
		amount := int64(i*7%23 + 1)
		rows = append(rows, rowOf("region", value.String(region), "amount", value.Int(amount), "shared", value.Int(amount)))
	}
	return rows
}

func TestAggregator_MergeEqualsBatch(t *testing.T) {
	t.Parallel()
	v := partitionView(t)
	rows := partitionRows()
	batch := v.NewAggregator()
	process(t, batch, rows...)
	want, err := batch.Finalize(context.Background())
	require.NoError(t, err)

	for split := 0; split <= len(rows); split++ {
		left, right := v.NewAggregator(), v.NewAggregator()
		process(t, left, rows[:split]...)
		process(t, right, rows[split:]...)
		require.NoError(t, left.Merge(context.Background(), right))
		got, err := left.Finalize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, project(want), project(got), "split at %d", split)
	}

	// one aggregator per row, merged in reverse
	parts := make([]*Aggregator, len(rows))
	for i, r := range rows {
		parts[i] = v.NewAggregator()
		process(t, parts[i], r)
	}
	merged := v.NewAggregator()
	for i := len(parts) - 1; i >= 0; i-- {
		require.NoError(t, merged.Merge(context.Background(), parts[i]))
	}
	got, err := merged.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, project(want), project(got))
}

func TestAggregator_Lifecycle(t *testing.T) {
	t.Parallel()
	v := partitionView(t)
	other := partitionView(t)
	ctx := context.Background()

	a := v.NewAggregator()
	assert.ErrorIs(t, a.Merge(ctx, other.NewAggregator()), ErrViewMismatch)

	done := v.NewAggregator()
	_, err := done.Finalize(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, a.Merge(ctx, done), ErrFinalized)
	assert.ErrorIs(t, done.Merge(ctx, a), ErrFinalized)
	assert.ErrorIs(t, done.Process(ctx, partitionRows()[0]), ErrFinalized)
	_, err = done.Finalize(ctx)
	assert.ErrorIs(t, err, ErrFinalized)

	// merged aggregators are consumed
	b := v.NewAggregator()
	require.NoError(t, a.Merge(ctx, b))
	assert.ErrorIs(t, b.Process(ctx, partitionRows()[0]), ErrFinalized)

	// an empty run has no buckets
	res, err := a.Finalize(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Rows())
}

func TestAggregator_Threshold(t *testing.T) {
	t.Parallel()
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, kinds.Column("amount")).
		WithInputColumn(ftypes.Partner, kinds.Column("region")).
		WithMetric(kinds.Sum("total", "amount")).
		WithMetric(kinds.Count("sales")).
		WithGroupingSet("by_region", "region").
		WithThreshold(2, value.Int(-1)).
		Build()
	require.NoError(t, err)
	a := v.NewAggregator()
	process(t, a, regionRows()...)
	res, err := a.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []projected{
		{"by_region", "[String(EU)]", map[ftypes.ColumnName]string{"total": "-1", "sales": "-1"}, 1, true},
		{"by_region", "[String(US)]", map[ftypes.ColumnName]string{"total": "15", "sales": "2"}, 2, false},
	}, project(res))
	eu, _ := res.Lookup("by_region", value.String("EU"))
	assert.Equal(t, value.Int(-1), eu.Data["total"])
}

func TestAggregator_ThresholdSkipsReveal(t *testing.T) {
	t.Parallel()
	reveals := atomic.NewInt64(0)
	p := newProtocol(mpc.WithFailures(func(op string) error {
		if op == "reveal" {
			reveals.Inc()
		}
		return nil
	}))
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, kinds.SecretColumn("amount", p)).
		WithInputColumn(ftypes.Partner, kinds.Column("region")).
		WithMetric(kinds.SecretSum("total", "amount", p, ftypes.Partner)).
		WithMetric(kinds.SecretMax("largest", "amount", p, ftypes.Partner)).
		WithGroupingSet("by_region", "region").
		WithThreshold(2, value.Int(-1)).
		Build()
	require.NoError(t, err)
	a := v.NewAggregator()
	process(t, a, regionRows()...)
	res, err := a.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []projected{
		{"by_region", "[String(EU)]", map[ftypes.ColumnName]string{"total": "-1", "largest": "-1"}, 1, true},
		{"by_region", "[String(US)]", map[ftypes.ColumnName]string{"total": "15", "largest": "10"}, 2, false},
	}, project(res))
	// only the two metrics of US were opened
	assert.Equal(t, int64(2), reveals.Load())
}

// Not parallel: it measures process wide allocations.
func TestAggregator_CommitFoldsInPlace(t *testing.T) {
	p := newProtocol()
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, kinds.Column("amount")).
		WithMetric(kinds.DistinctCount("amounts", "amount")).
		WithMetric(kinds.SecretMax("largest", "amount", p, ftypes.Public)).
		WithGroupingSet("all").
		Build()
	require.NoError(t, err)
	const n = 20000
	rows := make([]row.Row, n)
	for i := range rows {
		rows[i] = rowOf("amount", value.Int(i))
	}

	a := v.NewAggregator()
	process(t, a, rows[:n/2]...)
	amounts, largest := a.tables[0].buckets[0].metrics[0], a.tables[0].buckets[0].metrics[1]
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	process(t, a, rows[n/2:]...)
	runtime.ReadMemStats(&after)

	assert.Same(t, amounts, a.tables[0].buckets[0].metrics[0])
	assert.Same(t, largest, a.tables[0].buckets[0].metrics[1])
	// copying the bucket state on every row would cost hundreds of KB per row
	perRow := (after.TotalAlloc - before.TotalAlloc) / (n / 2)
	assert.Less(t, perRow, uint64(4096))

	res, err := a.Finalize(context.Background())
	require.NoError(t, err)
	all, ok := res.Lookup("all")
	require.True(t, ok)
	assert.Equal(t, map[ftypes.ColumnName]string{"amounts": "20000", "largest": "19999"}, all.Values)
}

func TestAggregator_FinalizeFailure(t *testing.T) {
	t.Parallel()
	broken := false
	p := newProtocol(mpc.WithFailures(func(op string) error {
		if broken {
			return mpc.ErrPartyUnavailable
		}
		return nil
	}))
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, kinds.SecretColumn("amount", p)).
		WithMetric(kinds.SecretSum("total", "amount", p, ftypes.Public)).
		WithGroupingSet("all").
		Build()
	require.NoError(t, err)
	a := v.NewAggregator()
	process(t, a, rowOf("amount", value.Int(1)))
	broken = true
	_, err = a.Finalize(context.Background())
	assert.ErrorIs(t, err, metric.ErrProtocolFailure)
	assert.ErrorIs(t, err, mpc.ErrPartyUnavailable)
	_, err = a.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestAggregator_SecretOutputCanNotBeProjected(t *testing.T) {
	t.Parallel()
	p := newProtocol()
	v, err := NewBuilder().
		WithInputColumn(ftypes.Publisher, kinds.SecretColumn("amount", p)).
		WithMetric(kinds.Reveal("opened", "amount", p)).
		WithMetric(kinds.Count("sales")).
		WithGroupingSet("by_opened", "opened").
		Build()
	require.NoError(t, err)
	a := v.NewAggregator()
	process(t, a, rowOf("amount", value.Int(4)), rowOf("amount", value.Int(4)), rowOf("amount", value.Int(9)))
	res, err := a.Finalize(context.Background())
	require.NoError(t, err)
	four, ok := res.Lookup("by_opened", value.Int(4))
	require.True(t, ok)
	assert.Equal(t, "2", four.Values["sales"])

	leaky, err := NewBuilder().
		WithMetric(kinds.SecretColumn("amount", p)).
		WithGroupingSet("all").
		Build()
	require.NoError(t, err)
	b := leaky.NewAggregator()
	process(t, b, rowOf("amount", value.Int(4)))
	_, err = b.Finalize(context.Background())
	assert.ErrorIs(t, err, metric.ErrNotRevealed)
}
