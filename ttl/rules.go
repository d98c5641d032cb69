// Package ttl implements per-part TTL metadata and schema-declared TTL
// rule evaluation. All times are Unix seconds; zero means "no TTL".
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package ttl

import (
	"github.com/colstore/colstore/codec"
	"github.com/pkg/errors"
)

type (
	// Description is one schema-declared recompression rule: after the rule's
	// expiry the part must be rewritten under Codec.
	Description struct {
		ID    string     `json:"id"`
		Codec codec.Desc `json:"codec"`
	}
	// Rules is the ordered rule set as declared in the schema.
	Rules []Description
)

// SelectEntry returns the applicable rule that went into action last: among
// rules whose expiry (Max when useMax, else Min) is set and has passed, the
// one with the latest such expiry. Nil when no rule applies.
func SelectEntry(rules Rules, infos InfoMap, now int64, useMax bool) *Description {
	var (
		best     *Description
		bestTime int64
	)
	for i := range rules {
		info, ok := infos[rules[i].ID]
		if !ok {
			continue
		}
		t := info.Min
		if useMax {
			t = info.Max
		}
		if t != 0 && t <= now && bestTime <= t {
			best = &rules[i]
			bestTime = t
		}
	}
	return best
}

// Validate checks rule ids are present and unique.
func (rules Rules) Validate() error {
	seen := make(map[string]struct{}, len(rules))
	for i := range rules {
		id := rules[i].ID
		if id == "" {
			return errors.Errorf("recompression rule #%d: empty id", i)
		}
		if _, ok := seen[id]; ok {
			return errors.Errorf("recompression rule %q: duplicate id", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
