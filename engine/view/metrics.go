package view

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "view_rows_total",
	Help: "Rows read by view runs, by outcome",
}, []string{"status"})

var bucketCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "view_buckets",
	Help: "Buckets of the last finalized aggregation, by grouping set",
}, []string{"grouping_set"})
