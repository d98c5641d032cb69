// Package merge implements background-merge selection for TTL-expired
// parts: the selector contract and its delete and recompress variants.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package merge

import (
	"github.com/colstore/colstore/codec"
	"github.com/colstore/colstore/ttl"
)

type (
	// Part describes one mergeable part for the duration of a Select call.
	// The descriptor is read-only for the selector; Data is an opaque handle
	// to the external part (e.g. its catalog record).
	Part struct {
		Data        any
		PartitionID string
		Size        uint64
		TTLInfos    ttl.Infos
		CodecDesc   codec.Desc
	}

	// PartsInPartition is an ordered sequence of parts within one partition.
	// The order is the engine's part-key order and is owned by the caller.
	PartsInPartition []*Part

	// Partitions is the per-tick view of all mergeable parts grouped by
	// partition.
	Partitions []PartsInPartition

	// Selector nominates a contiguous run of parts inside a single partition
	// to merge next, or nothing. maxTotalSizeToMerge of zero means no limit.
	// Select never fails; impossible inputs yield an empty run.
	Selector interface {
		Select(partitions Partitions, maxTotalSizeToMerge uint64) PartsInPartition
	}
)

// TotalSize sums the byte footprint of the run.
func (parts PartsInPartition) TotalSize() (total uint64) {
	for _, p := range parts {
		total += p.Size
	}
	return
}
