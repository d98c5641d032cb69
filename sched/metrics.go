// Package sched runs the background merge loop: snapshot the catalog,
// ask the TTL selectors for a run, hand it to the merger.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package sched

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colstore",
		Subsystem: "merge",
		Name:      "ticks_total",
		Help:      "Background merge scheduler ticks.",
	})
	selectedRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "colstore",
		Subsystem: "merge",
		Name:      "selected_runs_total",
		Help:      "Merge runs nominated by the TTL selectors, by policy.",
	}, []string{"policy"})
	selectedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "colstore",
		Subsystem: "merge",
		Name:      "selected_bytes_total",
		Help:      "Total size of the parts in nominated runs, by policy.",
	}, []string{"policy"})
	mergeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colstore",
		Subsystem: "merge",
		Name:      "failures_total",
		Help:      "Dispatched merges that returned an error.",
	})
	selectLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "colstore",
		Subsystem: "merge",
		Name:      "select_duration_seconds",
		Help:      "Wall time of one selection pass over the snapshot.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 6),
	})
)
