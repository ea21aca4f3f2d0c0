package view

import (
	"fmt"

	"kodiak/lib/ftypes"
	"kodiak/lib/value"
)

// ResultRow is one bucket of the output view.
type ResultRow struct {
	GroupingSet ftypes.GroupingSetID
	Key         []value.Value
	// JSON projection of every output metric
	Values map[ftypes.ColumnName]string
	// native data of every output metric
	Data map[ftypes.ColumnName]any
	// number of input rows folded into the bucket
	Rows int64
	// set when the bucket had too few rows and every metric was replaced by
	// the threshold sentinel
	Suppressed bool
}

// Value parses the projection of metric name back into a value.
func (r ResultRow) Value(name ftypes.ColumnName) (value.Value, error) {
	s, ok := r.Values[name]
	if !ok {
		return nil, fmt.Errorf("no metric '%s' in grouping set '%s'", name, r.GroupingSet)
	}
	return value.FromJson([]byte(s))
}

// Result is the finalized output view: rows are ordered by grouping set in
// declaration order and by key within a grouping set.
type Result struct {
	metrics []ftypes.ColumnName
	rows    []ResultRow
	index   map[ftypes.GroupingSetID]map[uint64][]int
}

func newResult(metrics []ftypes.ColumnName) *Result {
	return &Result{
		metrics: metrics,
		index:   make(map[ftypes.GroupingSetID]map[uint64][]int),
	}
}

func (r *Result) add(row ResultRow) {
	idx, ok := r.index[row.GroupingSet]
	if !ok {
		idx = make(map[uint64][]int)
		r.index[row.GroupingSet] = idx
	}
	h := value.Hash(row.Key...)
	idx[h] = append(idx[h], len(r.rows))
	r.rows = append(r.rows, row)
}

// Metrics returns the names of the output metrics in declaration order.
func (r *Result) Metrics() []ftypes.ColumnName {
	return append([]ftypes.ColumnName{}, r.metrics...)
}

func (r *Result) Rows() []ResultRow {
	return append([]ResultRow{}, r.rows...)
}

// GroupingSet returns the rows of grouping set id.
func (r *Result) GroupingSet(id ftypes.GroupingSetID) []ResultRow {
	var ret []ResultRow
	for _, row := range r.rows {
		if row.GroupingSet == id {
			ret = append(ret, row)
		}
	}
	return ret
}

// Lookup returns the row of grouping set id with the given key.
func (r *Result) Lookup(id ftypes.GroupingSetID, key ...value.Value) (ResultRow, bool) {
	for _, i := range r.index[id][value.Hash(key...)] {
		if value.CompareTuples(r.rows[i].Key, key) == 0 {
			return r.rows[i], true
		}
	}
	return ResultRow{}, false
}
