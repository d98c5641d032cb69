// Package merge implements background-merge selection for TTL-expired
// parts: the selector contract and its delete and recompress variants.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package merge

import (
	"sync"

	"github.com/colstore/colstore/ttl"
)

// policy parameterizes the shared TTL algorithm. Both hooks are pure,
// cheap, and called on every part visited during seed selection and window
// expansion.
type policy interface {
	// ttlForPart returns the TTL this selector cares about, zero when the
	// part carries none.
	ttlForPart(p *Part) int64
	// satisfied reports whether the part already satisfies the policy, so
	// that merging it would be wasted work.
	satisfied(p *Part) bool
}

// ttlSelector is the shared algorithm: pick the partition containing the
// part with the smallest unsatisfied TTL, expand a contiguous window around
// it bounded by total size, and put the partition on cooldown.
//
// The only cross-call state is dueTimes (partition id -> next eligible
// time), touched exclusively on non-empty returns. The mutex makes a shared
// instance safe; a single caller never contends.
type ttlSelector struct {
	mtx      sync.Mutex
	policy   policy
	dueTimes map[string]int64
	now      int64
	cooldown int64
}

func (s *ttlSelector) init(pol policy, now, cooldown int64) {
	s.policy = pol
	s.now = now
	s.cooldown = cooldown
	s.dueTimes = make(map[string]int64)
}

// SetNow re-arms the decision clock. The scheduler calls it once at the
// start of every tick so that all decisions within a tick observe the same
// wall-clock reading.
func (s *ttlSelector) SetNow(now int64) {
	s.mtx.Lock()
	s.now = now
	s.mtx.Unlock()
}

func (s *ttlSelector) Select(partitions Partitions, maxTotalSizeToMerge uint64) PartsInPartition {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var (
		bestPartition = -1
		bestBegin     int
		bestMinTTL    int64
	)
	for i, parts := range partitions {
		if len(parts) == 0 {
			continue
		}
		if s.dueTimes[parts[0].PartitionID] > s.now {
			continue
		}
		for j, p := range parts {
			t := s.policy.ttlForPart(p)
			if t != 0 && !s.policy.satisfied(p) && (bestPartition == -1 || t < bestMinTTL) {
				bestMinTTL = t
				bestPartition = i
				bestBegin = j
			}
		}
	}

	if bestPartition == -1 || bestMinTTL > s.now {
		return nil
	}

	var (
		parts = partitions[bestPartition]
		begin = bestBegin
		end   = bestBegin + 1
		total uint64
	)
	// Leftward from the seed. The seed is admitted on the first iteration
	// unconditionally (total is still zero, and the size check is a strict
	// greater-than), which keeps forward progress on a part that alone
	// exceeds the cap. On the loss condition begin steps one forward to
	// roll back the ineligible boundary part.
	for {
		p := parts[begin]
		if !s.eligible(p) || (maxTotalSizeToMerge != 0 && total > maxTotalSizeToMerge) {
			begin++
			break
		}
		total += p.Size
		if begin == 0 {
			break
		}
		begin--
	}
	// Rightward from the seed's successor.
	for end < len(parts) {
		p := parts[end]
		if !s.eligible(p) || (maxTotalSizeToMerge != 0 && total > maxTotalSizeToMerge) {
			break
		}
		total += p.Size
		end++
	}

	s.dueTimes[parts[0].PartitionID] = s.now + s.cooldown
	return parts[begin:end]
}

func (s *ttlSelector) eligible(p *Part) bool {
	t := s.policy.ttlForPart(p)
	return t != 0 && !s.policy.satisfied(p) && t <= s.now
}

// DeleteSelector nominates parts whose row-level TTL has expired so the
// merge can physically drop the expired rows. With OnlyDropParts the part
// qualifies only when every row in it has expired.
type DeleteSelector struct {
	ttlSelector
	onlyDropParts bool
}

// RecompressSelector nominates parts whose recompression TTL has expired,
// so the merge can rewrite them under the codec the applicable schema rule
// prescribes.
type RecompressSelector struct {
	ttlSelector
	rules ttl.Rules
}

// interface guard
var (
	_ Selector = (*DeleteSelector)(nil)
	_ Selector = (*RecompressSelector)(nil)
)

////////////////////
// DeleteSelector //
////////////////////

func NewDeleteSelector(now, cooldown int64, onlyDropParts bool) *DeleteSelector {
	s := &DeleteSelector{onlyDropParts: onlyDropParts}
	s.init(s, now, cooldown)
	return s
}

func (s *DeleteSelector) ttlForPart(p *Part) int64 {
	if s.onlyDropParts {
		return p.TTLInfos.PartMax
	}
	return p.TTLInfos.PartMin
}

// The merge itself is what performs the deletion, so a delete selector
// never considers a part already satisfied.
func (*DeleteSelector) satisfied(*Part) bool { return false }

////////////////////////
// RecompressSelector //
////////////////////////

func NewRecompressSelector(now, cooldown int64, rules ttl.Rules) *RecompressSelector {
	s := &RecompressSelector{rules: rules}
	s.init(s, now, cooldown)
	return s
}

func (s *RecompressSelector) ttlForPart(p *Part) int64 {
	return p.TTLInfos.MinRecompression()
}

// satisfied: no applicable rule means no codec change is currently
// mandated; otherwise the part is satisfied iff its codec already renders
// identically to the rule's target. Comparing canonical renderings (absent
// codec is the empty string) sidesteps structural codec equality.
func (s *RecompressSelector) satisfied(p *Part) bool {
	if len(s.rules) == 0 {
		return false
	}
	entry := ttl.SelectEntry(s.rules, p.TTLInfos.Recompression, s.now, false)
	if entry == nil {
		return true
	}
	return entry.Codec.String() == p.CodecDesc.String()
}
