// Package catalog maintains the inventory of immutable parts per
// partition and produces the snapshots the merge scheduler consumes.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package catalog

import (
	"sort"
	"strings"
	"sync"

	"github.com/colstore/colstore/cmn/debug"
	"github.com/colstore/colstore/codec"
	"github.com/colstore/colstore/merge"
	"github.com/colstore/colstore/ttl"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

const keyPrefix = "part:"

type (
	// PartMeta is the persisted descriptor of one part. Size and TTL infos
	// are computed at part-write time; Codec records the compression codec
	// the part is currently stored under (canonical rendering, empty when
	// unspecified).
	PartMeta struct {
		Name  string    `json:"name"`
		Size  uint64    `json:"size"`
		TTL   ttl.Infos `json:"ttl"`
		Codec string    `json:"codec,omitempty"`
	}

	// Catalog indexes parts by partition, mirrored to a buntdb file so the
	// inventory survives restarts. Pass ":memory:" for an ephemeral catalog.
	Catalog struct {
		mtx        sync.RWMutex
		db         *buntdb.DB
		partitions map[string][]*entry // partition id -> parts, part-key order
	}

	entry struct {
		name partName
		meta *PartMeta
	}
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	ErrPartExists   = errors.New("part already exists")
	ErrPartNotFound = errors.New("part not found")
)

// Open loads the catalog at path, creating it when absent.
func Open(path string) (*Catalog, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open catalog %q", path)
	}
	c := &Catalog{db: db, partitions: make(map[string][]*entry)}
	err = db.View(func(tx *buntdb.Tx) error {
		var ierr error
		err := tx.AscendKeys(keyPrefix+"*", func(_, value string) bool {
			meta := &PartMeta{}
			if ierr = json.UnmarshalFromString(value, meta); ierr != nil {
				return false
			}
			ierr = c.insert(meta)
			return ierr == nil
		})
		if err != nil {
			return err
		}
		return ierr
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "load catalog %q", path)
	}
	return c, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Add registers a newly written part.
func (c *Catalog) Add(meta *PartMeta) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if err := c.insert(meta); err != nil {
		return err
	}
	return c.put(meta)
}

// Remove drops a part from the inventory.
func (c *Catalog) Remove(name string) error {
	pn, err := parsePartName(name)
	if err != nil {
		return err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if !c.remove(pn) {
		return errors.Wrap(ErrPartNotFound, name)
	}
	return c.del(name)
}

// Replace commits a merge: atomically drops the source parts and registers
// the part the merge produced. All parts must belong to one partition.
func (c *Catalog) Replace(olds []string, neu *PartMeta) error {
	parsed := make([]partName, 0, len(olds))
	for _, name := range olds {
		pn, err := parsePartName(name)
		if err != nil {
			return err
		}
		parsed = append(parsed, pn)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	for _, pn := range parsed {
		if !c.remove(pn) {
			return errors.Wrap(ErrPartNotFound, pn.String())
		}
	}
	if err := c.insert(neu); err != nil {
		return err
	}
	return c.db.Update(func(tx *buntdb.Tx) error {
		for _, name := range olds {
			if _, err := tx.Delete(keyPrefix + name); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		val, err := json.MarshalToString(neu)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(keyPrefix+neu.Name, val, nil)
		return err
	})
}

// Snapshot produces the per-tick view for the merge selector: partitions in
// lexical id order, parts within each partition in part-key order. The view
// is freshly allocated and safe to hold across catalog mutations.
func (c *Catalog) Snapshot() merge.Partitions {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	ids := make([]string, 0, len(c.partitions))
	for id := range c.partitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	view := make(merge.Partitions, 0, len(ids))
	for _, id := range ids {
		entries := c.partitions[id]
		parts := make(merge.PartsInPartition, 0, len(entries))
		for _, e := range entries {
			desc, err := parseCodec(e.meta.Codec)
			debug.AssertNoErr(err) // validated on insert
			parts = append(parts, &merge.Part{
				Data:        e.meta,
				PartitionID: id,
				Size:        e.meta.Size,
				TTLInfos:    e.meta.TTL,
				CodecDesc:   desc,
			})
		}
		view = append(view, parts)
	}
	return view
}

// Parts returns the part names of one partition, in part-key order.
func (c *Catalog) Parts(partition string) []string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	entries := c.partitions[partition]
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.name.String())
	}
	return names
}

// Partitions returns all partition ids, sorted.
func (c *Catalog) Partitions() []string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	ids := make([]string, 0, len(c.partitions))
	for id := range c.partitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

//
// internals (callers hold mtx)
//

func (c *Catalog) insert(meta *PartMeta) error {
	pn, err := parsePartName(meta.Name)
	if err != nil {
		return err
	}
	if _, err := parseCodec(meta.Codec); err != nil {
		return err
	}
	entries := c.partitions[pn.partition]
	i := sort.Search(len(entries), func(i int) bool { return !entries[i].name.less(pn) })
	if i < len(entries) && entries[i].name == pn {
		return errors.Wrap(ErrPartExists, meta.Name)
	}
	entries = append(entries, nil)
	copy(entries[i+1:], entries[i:])
	entries[i] = &entry{name: pn, meta: meta}
	c.partitions[pn.partition] = entries
	return nil
}

func (c *Catalog) remove(pn partName) bool {
	entries := c.partitions[pn.partition]
	i := sort.Search(len(entries), func(i int) bool { return !entries[i].name.less(pn) })
	if i == len(entries) || entries[i].name != pn {
		return false
	}
	entries = append(entries[:i], entries[i+1:]...)
	if len(entries) == 0 {
		delete(c.partitions, pn.partition)
	} else {
		c.partitions[pn.partition] = entries
	}
	return true
}

func (c *Catalog) put(meta *PartMeta) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		val, err := json.MarshalToString(meta)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(keyPrefix+meta.Name, val, nil)
		return err
	})
}

func (c *Catalog) del(name string) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(keyPrefix + name)
		if err == buntdb.ErrNotFound {
			err = nil
		}
		return err
	})
}

func parseCodec(s string) (codec.Desc, error) {
	return codec.ParseDesc(strings.TrimSpace(s))
}
