package view

import (
	"context"
	"errors"
	"fmt"
	"io"

	"kodiak/lib/metric"
	"kodiak/lib/row"
	"kodiak/lib/timer"
	"kodiak/lib/utils/parallel"
	"kodiak/lib/value"

	"github.com/samber/mo"
	"go.uber.org/zap"
)

// Run aggregates every row of src. Rows are read in batches that are spread
// over args.Workers partitions, each with its own Aggregator; partitions are
// merged in order once src is exhausted and the merged aggregation is
// finalized. Rows that fail to compute abort the run or are dropped,
// following args.OnComputeError.
func (v *View) Run(ctx context.Context, src row.Source, args Args) (*Result, Stats, error) {
	st := &runStats{}
	if err := args.Valid(); err != nil {
		return nil, st.snapshot(0, nil), err
	}
	if v.logger.Core().Enabled(zap.DebugLevel) {
		ctx = timer.WithTracing(ctx)
		defer func() {
			_ = timer.LogTracingInfo(ctx, v.logger)
		}()
	}
	ctx, t := timer.Start(ctx, "view.run")
	defer t.Stop()
	t.Span().SetIntAttribute("workers", args.Workers)
	t.Span().SetStringAttribute("on_compute_error", string(args.OnComputeError))

	var sentinel value.Value = value.Nil
	if th, ok := v.threshold.Get(); ok {
		sentinel = th.sentinel
	}
	partitions := make([]*Aggregator, args.Workers)
	for i := range partitions {
		partitions[i] = v.NewAggregator()
		if args.MinGroupRows > 0 {
			partitions[i].threshold = mo.Some(threshold{minRows: args.MinGroupRows, sentinel: sentinel})
		}
		partitions[i].workers = args.Workers
	}

	err := parallel.Partition(ctx, partitions, batches(src, args.BatchSize), func(ctx context.Context, a *Aggregator, batch []row.Row) error {
		st.batches.Inc()
		return v.processBatch(ctx, a, batch, args.OnComputeError, st)
	})
	if err != nil {
		t.Span().RecordError(err)
		return nil, st.snapshot(len(partitions), nil), err
	}

	merged := partitions[0]
	for _, p := range partitions[1:] {
		if err := merged.Merge(ctx, p); err != nil {
			return nil, st.snapshot(len(partitions), nil), err
		}
	}
	res, err := merged.Finalize(ctx)
	if err != nil {
		t.Span().RecordError(err)
		return nil, st.snapshot(len(partitions), nil), err
	}
	stats := st.snapshot(len(partitions), res)
	v.logger.Info("view run done",
		zap.Uint64("rows_read", stats.RowsRead),
		zap.Uint64("rows_processed", stats.RowsProcessed),
		zap.Uint64("rows_dropped", stats.RowsDropped),
		zap.Int("output_rows", stats.OutputRows),
	)
	return res, stats, nil
}

func (v *View) processBatch(ctx context.Context, a *Aggregator, batch []row.Row, policy Policy, st *runStats) error {
	ctx, t := timer.Start(ctx, "view.process_batch")
	defer t.Stop()
	for _, r := range batch {
		st.rowsRead.Inc()
		err := a.Process(ctx, r)
		var cerr *metric.ComputeError
		switch {
		case err == nil:
			st.rowsProcessed.Inc()
			rowsTotal.WithLabelValues("processed").Inc()
		case errors.As(err, &cerr) && policy == Skip:
			st.rowsDropped.Inc()
			rowsTotal.WithLabelValues("dropped").Inc()
			v.logger.Warn("dropping row that failed to compute",
				zap.String("column", string(cerr.Column)),
				zap.String("kind", cerr.Kind.String()),
				zap.Error(err),
			)
		default:
			rowsTotal.WithLabelValues("failed").Inc()
			t.Span().RecordError(err)
			return fmt.Errorf("failed to process row: %w", err)
		}
	}
	return nil
}

// batches reads src in batches of at most size rows.
func batches(src row.Source, size int) func(context.Context) ([]row.Row, error) {
	done := false
	return func(ctx context.Context) ([]row.Row, error) {
		if done {
			return nil, io.EOF
		}
		batch := make([]row.Row, 0, size)
		for len(batch) < size {
			r, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				done = true
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read row: %w", err)
			}
			batch = append(batch, r)
		}
		if len(batch) == 0 {
			return nil, io.EOF
		}
		return batch, nil
	}
}
