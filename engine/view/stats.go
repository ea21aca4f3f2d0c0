package view

import (
	"go.uber.org/atomic"
)

// Stats summarizes one Run.
type Stats struct {
	RowsRead      uint64
	RowsProcessed uint64
	RowsDropped   uint64
	Batches       uint64
	Partitions    int
	OutputRows    int
}

type runStats struct {
	rowsRead      atomic.Uint64
	rowsProcessed atomic.Uint64
	rowsDropped   atomic.Uint64
	batches       atomic.Uint64
}

func (s *runStats) snapshot(partitions int, res *Result) Stats {
	ret := Stats{
		RowsRead:      s.rowsRead.Load(),
		RowsProcessed: s.rowsProcessed.Load(),
		RowsDropped:   s.rowsDropped.Load(),
		Batches:       s.batches.Load(),
		Partitions:    partitions,
	}
	if res != nil {
		ret.OutputRows = len(res.rows)
	}
	return ret
}
