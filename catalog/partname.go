// Package catalog maintains the inventory of immutable parts per
// partition and produces the snapshots the merge scheduler consumes.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
)

// PartitionAll is the partition id of an unpartitioned table.
const PartitionAll = "all"

// partName is a parsed part name, <partition>_<minblock>_<maxblock>_<level>.
// Parts within a partition are totally ordered by their block range.
type partName struct {
	partition string
	minBlock  int64
	maxBlock  int64
	level     int
}

var ErrBadPartName = errors.New("malformed part name")

func parsePartName(name string) (pn partName, err error) {
	i := strings.LastIndexByte(name, '_')
	j := strings.LastIndexByte(name[:max(i, 0)], '_')
	k := strings.LastIndexByte(name[:max(j, 0)], '_')
	if k <= 0 {
		return pn, errors.Wrap(ErrBadPartName, name)
	}
	pn.partition = name[:k]
	if pn.minBlock, err = strconv.ParseInt(name[k+1:j], 10, 64); err != nil {
		return pn, errors.Wrap(ErrBadPartName, name)
	}
	if pn.maxBlock, err = strconv.ParseInt(name[j+1:i], 10, 64); err != nil {
		return pn, errors.Wrap(ErrBadPartName, name)
	}
	if pn.level, err = strconv.Atoi(name[i+1:]); err != nil {
		return pn, errors.Wrap(ErrBadPartName, name)
	}
	if pn.minBlock < 0 || pn.maxBlock < pn.minBlock || pn.level < 0 {
		return pn, errors.Wrap(ErrBadPartName, name)
	}
	return pn, nil
}

func (pn partName) String() string {
	return fmt.Sprintf("%s_%d_%d_%d", pn.partition, pn.minBlock, pn.maxBlock, pn.level)
}

// less orders parts within one partition by block range, then by level.
func (pn partName) less(other partName) bool {
	if pn.minBlock != other.minBlock {
		return pn.minBlock < other.minBlock
	}
	if pn.maxBlock != other.maxBlock {
		return pn.maxBlock < other.maxBlock
	}
	return pn.level < other.level
}

// PartitionID derives the partition id for a raw partition key value: the
// hex-rendered xxhash of the key, or PartitionAll for an empty key.
func PartitionID(key string) string {
	if key == "" {
		return PartitionAll
	}
	return strconv.FormatUint(xxhash.ChecksumString64(key), 16)
}
