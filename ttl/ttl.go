// Package ttl implements per-part TTL metadata and schema-declared TTL
// rule evaluation. All times are Unix seconds; zero means "no TTL".
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package ttl

type (
	// Info is the [earliest, latest) expiry pair computed for one TTL rule
	// over one part.
	Info struct {
		Min int64 `json:"min"`
		Max int64 `json:"max"`
	}
	// InfoMap maps a TTL-rule identifier to its expiry pair.
	InfoMap map[string]Info

	// Infos aggregates the TTL expirations of a single part.
	Infos struct {
		PartMin       int64   `json:"part_min,omitempty"`
		PartMax       int64   `json:"part_max,omitempty"`
		Recompression InfoMap `json:"recompression,omitempty"`
	}
)

func (in *Info) update(other Info) {
	if other.Min != 0 && (in.Min == 0 || other.Min < in.Min) {
		in.Min = other.Min
	}
	if other.Max > in.Max {
		in.Max = other.Max
	}
}

// MinRecompression returns the earliest expiry among the part's
// recompression rules, zero when there are none.
func (in *Infos) MinRecompression() (minTTL int64) {
	for _, info := range in.Recompression {
		if info.Min != 0 && (minTTL == 0 || info.Min < minTTL) {
			minTTL = info.Min
		}
	}
	return
}

// Update widens the receiver to cover another part's expirations; this is
// the aggregation a merge applies when several parts become one.
func (in *Infos) Update(other Infos) {
	if other.PartMin != 0 && (in.PartMin == 0 || other.PartMin < in.PartMin) {
		in.PartMin = other.PartMin
	}
	if other.PartMax > in.PartMax {
		in.PartMax = other.PartMax
	}
	for id, info := range other.Recompression {
		if in.Recompression == nil {
			in.Recompression = make(InfoMap, len(other.Recompression))
		}
		cur := in.Recompression[id]
		cur.update(info)
		in.Recompression[id] = cur
	}
}
