package timer

import (
	"context"

	"kodiak/lib/tracer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fnDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
	Name: "fn_duration_seconds",
	Help: "Duration of individual go functions",
	Objectives: map[float64]float64{
		0.25: 0.05,
		0.50: 0.05,
		0.75: 0.05,
		0.90: 0.05,
		0.95: 0.02,
		0.99: 0.01,
	},
}, []string{"function_name"})

// Timer measures one call: its duration is observed in fn_duration_seconds,
// it runs inside a span and, when ctx carries a trace, it is recorded there.
type Timer struct {
	ctx   context.Context
	name  string
	timer *prometheus.Timer
	span  tracer.Span
}

func (t Timer) Span() tracer.Span {
	return t.span
}

func (t Timer) Stop() {
	t.timer.ObserveDuration()
	t.span.End()
	Record(t.ctx, t.name)
}

func Start(ctx context.Context, funcName string) (context.Context, Timer) {
	span := tracer.StartSpan(ctx, funcName)
	return span.Context(), Timer{
		ctx:   ctx,
		name:  funcName,
		timer: prometheus.NewTimer(fnDuration.WithLabelValues(funcName)),
		span:  span,
	}
}
