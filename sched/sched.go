// Package sched runs the background merge loop: snapshot the catalog,
// ask the TTL selectors for a run, hand it to the merger.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/colstore/colstore/cmn"
	"github.com/colstore/colstore/cmn/mono"
	"github.com/colstore/colstore/merge"
	"github.com/rs/zerolog"
)

const (
	policyDelete     = "delete"
	policyRecompress = "recompress"
)

type (
	// Source produces the per-tick view of mergeable parts; the catalog
	// satisfies it.
	Source interface {
		Snapshot() merge.Partitions
	}
	// Merger executes a nominated run. Execution is entirely the merger's
	// business; the scheduler only dispatches and counts failures.
	Merger interface {
		Merge(ctx context.Context, policy string, run merge.PartsInPartition) error
	}

	// Sched owns the two TTL selectors of one engine instance and drives
	// them on a fixed interval. At most one run is dispatched per tick,
	// delete taking precedence over recompress.
	Sched struct {
		conf   *cmn.Config
		src    Source
		merger Merger
		del    *merge.DeleteSelector
		rec    *merge.RecompressSelector
		log    zerolog.Logger
		stopCh chan struct{}
		wg     sync.WaitGroup
	}
)

func New(conf *cmn.Config, src Source, merger Merger, log zerolog.Logger) *Sched {
	now := time.Now().Unix()
	return &Sched{
		conf:   conf,
		src:    src,
		merger: merger,
		del:    merge.NewDeleteSelector(now, conf.MergeWithTTLTimeout, conf.OnlyDropParts),
		rec:    merge.NewRecompressSelector(now, conf.MergeWithTTLTimeout, conf.RecompressionTTLs),
		log:    log,
		stopCh: make(chan struct{}),
	}
}

// Start spawns the background loop; one goroutine per engine instance.
func (s *Sched) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Sched) run() {
	defer s.wg.Done()

	s.log.Info().Dur("interval", s.conf.TickInterval.D()).Msg("merge scheduler started")
	ticker := time.NewTicker(s.conf.TickInterval.D())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(time.Now().Unix())
		case <-s.stopCh:
			s.log.Info().Msg("merge scheduler stopped")
			return
		}
	}
}

func (s *Sched) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// tick aligns both selectors to one wall-clock reading, snapshots the
// catalog once, and dispatches the first run found.
func (s *Sched) tick(now int64) {
	ticksTotal.Inc()
	s.del.SetNow(now)
	s.rec.SetNow(now)

	var (
		started    = mono.NanoTime()
		partitions = s.src.Snapshot()
		policy     = policyDelete
		run        = s.del.Select(partitions, s.conf.MaxTotalSizeToMerge)
	)
	if len(run) == 0 {
		policy = policyRecompress
		run = s.rec.Select(partitions, s.conf.MaxTotalSizeToMerge)
	}
	selectLatency.Observe(mono.Since(started).Seconds())
	if len(run) == 0 {
		return
	}

	total := run.TotalSize()
	selectedRuns.WithLabelValues(policy).Inc()
	selectedBytes.WithLabelValues(policy).Add(float64(total))
	s.log.Info().
		Str("policy", policy).
		Str("partition", run[0].PartitionID).
		Int("parts", len(run)).
		Uint64("bytes", total).
		Msg("merge selected")

	if err := s.merger.Merge(context.Background(), policy, run); err != nil {
		mergeFailures.Inc()
		s.log.Error().Err(err).Str("partition", run[0].PartitionID).Msg("merge failed")
	}
}
