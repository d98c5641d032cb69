// Package merge implements background-merge selection for TTL-expired
// parts: the selector contract and its delete and recompress variants.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package merge

import (
	"github.com/colstore/colstore/codec"
	"github.com/colstore/colstore/ttl"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const (
	now      = int64(1000)
	cooldown = int64(100)
	cap1000  = uint64(1000)
)

func delPart(partition string, size uint64, minTTL, maxTTL int64) *Part {
	return &Part{
		PartitionID: partition,
		Size:        size,
		TTLInfos:    ttl.Infos{PartMin: minTTL, PartMax: maxTTL},
	}
}

func recPart(partition string, size uint64, ruleID string, expiry int64, codecSpec string) *Part {
	desc, err := codec.ParseDesc(codecSpec)
	Expect(err).NotTo(HaveOccurred())
	infos := ttl.Infos{}
	if ruleID != "" {
		infos.Recompression = ttl.InfoMap{ruleID: {Min: expiry, Max: expiry}}
	}
	return &Part{
		PartitionID: partition,
		Size:        size,
		TTLInfos:    infos,
		CodecDesc:   desc,
	}
}

func rules(entries ...ttl.Description) ttl.Rules { return entries }

func rule(id, codecSpec string) ttl.Description {
	desc, err := codec.ParseDesc(codecSpec)
	Expect(err).NotTo(HaveOccurred())
	return ttl.Description{ID: id, Codec: desc}
}

var _ = Describe("DeleteSelector", func() {
	var sel *DeleteSelector

	BeforeEach(func() {
		sel = NewDeleteSelector(now, cooldown, false /*onlyDropParts*/)
	})

	It("merges the contiguous run of expired parts around the seed", func() {
		a1 := delPart("A", 100, 900, 1100)
		a2 := delPart("A", 200, 950, 1050)
		a3 := delPart("A", 300, 2000, 2100)
		run := sel.Select(Partitions{{a1, a2, a3}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{a1, a2}))
		Expect(run.TotalSize()).To(BeEquivalentTo(300))
	})

	It("returns nothing when no part has fully expired under only-drop-parts", func() {
		sel = NewDeleteSelector(now, cooldown, true)
		parts := PartsInPartition{
			delPart("A", 100, 900, 1100),
			delPart("A", 200, 950, 1050),
			delPart("A", 300, 2000, 2100),
		}
		Expect(sel.Select(Partitions{parts}, cap1000)).To(BeEmpty())
	})

	It("drops whole parts by their max TTL under only-drop-parts", func() {
		sel = NewDeleteSelector(now, cooldown, true)
		a1 := delPart("A", 100, 700, 800)
		a2 := delPart("A", 200, 900, 1100)
		run := sel.Select(Partitions{{a1, a2}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{a1}))
	})

	It("admits the part that crosses the budget, then stops", func() {
		b1 := delPart("B", 800, 500, 1500)
		b2 := delPart("B", 400, 600, 1500)
		b3 := delPart("B", 50, 700, 1500)
		run := sel.Select(Partitions{{b1, b2, b3}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{b1, b2}))
	})

	It("treats a zero budget as unlimited", func() {
		parts := PartsInPartition{
			delPart("B", 800, 500, 1500),
			delPart("B", 400, 600, 1500),
			delPart("B", 50, 700, 1500),
		}
		run := sel.Select(Partitions{parts}, 0)
		Expect(run).To(Equal(parts))
	})

	It("returns a one-element run for a seed that alone exceeds the budget", func() {
		giant := delPart("A", 5000, 900, 1100)
		run := sel.Select(Partitions{{giant}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{giant}))
	})

	It("returns a one-element run when the seed's neighbors are ineligible", func() {
		a1 := delPart("A", 100, 0, 0)
		a2 := delPart("A", 200, 900, 1100)
		a3 := delPart("A", 300, 1500, 1600)
		run := sel.Select(Partitions{{a1, a2, a3}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{a2}))
	})

	It("expands the window to both sides of the seed", func() {
		a1 := delPart("A", 100, 950, 1100)
		a2 := delPart("A", 200, 900, 1100) // seed: smallest TTL
		a3 := delPart("A", 300, 980, 1100)
		run := sel.Select(Partitions{{a1, a2, a3}}, 0)
		Expect(run).To(Equal(PartsInPartition{a1, a2, a3}))
	})

	It("returns nothing when the smallest TTL has not expired yet", func() {
		parts := PartsInPartition{delPart("A", 100, 1001, 1100)}
		Expect(sel.Select(Partitions{parts}, cap1000)).To(BeEmpty())
	})

	It("returns nothing when no part carries a TTL", func() {
		parts := PartsInPartition{delPart("A", 100, 0, 0), delPart("A", 200, 0, 0)}
		Expect(sel.Select(Partitions{parts}, cap1000)).To(BeEmpty())
	})

	It("skips empty partitions and empty views", func() {
		Expect(sel.Select(nil, cap1000)).To(BeEmpty())
		Expect(sel.Select(Partitions{{}, {}}, cap1000)).To(BeEmpty())
		a1 := delPart("A", 100, 900, 1100)
		run := sel.Select(Partitions{{}, {a1}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{a1}))
	})

	It("prefers the partition holding the globally smallest expired TTL", func() {
		a1 := delPart("A", 100, 950, 1100)
		b1 := delPart("B", 100, 900, 1100)
		run := sel.Select(Partitions{{a1}, {b1}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{b1}))
	})

	It("breaks seed TTL ties toward the earlier partition", func() {
		a1 := delPart("A", 100, 900, 1100)
		b1 := delPart("B", 100, 900, 1100)
		run := sel.Select(Partitions{{a1}, {b1}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{a1}))
	})

	It("picks the same winner regardless of partition order for a strictly smaller TTL", func() {
		a1 := delPart("A", 100, 950, 1100)
		b1 := delPart("B", 100, 900, 1100)
		run := sel.Select(Partitions{{b1}, {a1}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{b1}))
	})

	Describe("cooldown", func() {
		It("suppresses the picked partition until the cooldown elapses", func() {
			parts := PartsInPartition{delPart("A", 100, 900, 1100)}
			view := Partitions{parts}

			Expect(sel.Select(view, cap1000)).NotTo(BeEmpty())
			Expect(sel.Select(view, cap1000)).To(BeEmpty(), "same clock: partition on cooldown")

			sel.SetNow(now + cooldown - 1)
			Expect(sel.Select(view, cap1000)).To(BeEmpty(), "cooldown boundary not reached yet")

			sel.SetNow(now + cooldown)
			Expect(sel.Select(view, cap1000)).NotTo(BeEmpty())
		})

		It("falls over to another eligible partition while on cooldown", func() {
			a1 := delPart("A", 100, 900, 1100)
			b1 := delPart("B", 100, 950, 1100)
			view := Partitions{{a1}, {b1}}

			Expect(sel.Select(view, cap1000)).To(Equal(PartsInPartition{a1}))
			Expect(sel.Select(view, cap1000)).To(Equal(PartsInPartition{b1}))
			Expect(sel.Select(view, cap1000)).To(BeEmpty())
		})

		It("leaves the cooldown state untouched on empty returns", func() {
			unexpired := Partitions{{delPart("A", 100, 2000, 2100)}}
			Expect(sel.Select(unexpired, cap1000)).To(BeEmpty())

			// had the empty return cooled partition A down, this would fail
			expired := Partitions{{delPart("A", 100, 900, 1100)}}
			Expect(sel.Select(expired, cap1000)).NotTo(BeEmpty())
		})
	})
})

var _ = Describe("RecompressSelector", func() {
	It("considers a part satisfied when its codec already matches the rule", func() {
		sel := NewRecompressSelector(now, cooldown, rules(rule("r1", "LZ4")))
		c1 := recPart("C", 100, "r1", 500, "LZ4")
		Expect(sel.Select(Partitions{{c1}}, cap1000)).To(BeEmpty())
	})

	It("nominates a part whose codec differs from the rule's target", func() {
		sel := NewRecompressSelector(now, cooldown, rules(rule("r1", "ZSTD")))
		c1 := recPart("C", 100, "r1", 500, "NONE")
		run := sel.Select(Partitions{{c1}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{c1}))

		// and the partition went on cooldown
		Expect(sel.Select(Partitions{{c1}}, cap1000)).To(BeEmpty())
	})

	It("treats an absent codec and an empty rule codec as equal", func() {
		sel := NewRecompressSelector(now, cooldown, rules(rule("r1", "")))
		c1 := recPart("C", 100, "r1", 500, "")
		Expect(sel.Select(Partitions{{c1}}, cap1000)).To(BeEmpty())
	})

	It("never considers parts satisfied when the rule set is empty", func() {
		sel := NewRecompressSelector(now, cooldown, nil)
		c1 := recPart("C", 100, "r1", 500, "LZ4")
		run := sel.Select(Partitions{{c1}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{c1}))
	})

	It("considers a part satisfied when no rule applies yet", func() {
		sel := NewRecompressSelector(now, cooldown, rules(rule("r2", "ZSTD")))
		// the part's only recompression TTL belongs to a different rule
		c1 := recPart("C", 100, "r1", 500, "NONE")
		Expect(sel.Select(Partitions{{c1}}, cap1000)).To(BeEmpty())
	})

	It("excludes satisfied parts from window expansion", func() {
		sel := NewRecompressSelector(now, cooldown, rules(rule("r1", "ZSTD")))
		x1 := recPart("C", 100, "r1", 400, "ZSTD") // already satisfied, earlier TTL
		x2 := recPart("C", 100, "r1", 500, "NONE")
		x3 := recPart("C", 100, "r1", 600, "ZSTD") // already satisfied
		run := sel.Select(Partitions{{x1, x2, x3}}, cap1000)
		Expect(run).To(Equal(PartsInPartition{x2}))
	})

	It("returns nothing when parts carry no recompression TTL", func() {
		sel := NewRecompressSelector(now, cooldown, rules(rule("r1", "ZSTD")))
		c1 := recPart("C", 100, "", 0, "NONE")
		Expect(sel.Select(Partitions{{c1}}, cap1000)).To(BeEmpty())
	})
})

var _ = Describe("run invariants", func() {
	It("returns a contiguous slice of exactly one partition", func() {
		a := PartsInPartition{
			delPart("A", 100, 900, 1100),
			delPart("A", 100, 910, 1100),
		}
		b := PartsInPartition{
			delPart("B", 100, 905, 1100),
		}
		sel := NewDeleteSelector(now, cooldown, false)
		run := sel.Select(Partitions{a, b}, 0)
		Expect(run).To(Equal(a))
		for _, p := range run {
			Expect(p.PartitionID).To(Equal("A"))
		}
	})

	It("rolls the left boundary back once the running total crosses the budget", func() {
		c1 := delPart("A", 400, 950, 1100)
		c2 := delPart("A", 400, 960, 1100)
		c3 := delPart("A", 400, 900, 1100) // seed
		sel := NewDeleteSelector(now, cooldown, false)
		run := sel.Select(Partitions{{c1, c2, c3}}, 500)
		Expect(run).To(Equal(PartsInPartition{c2, c3}))
	})
})
