package mmu

import "fmt"

// pmaCapacity is a small fixed capacity: a user-mode simulator's guest
// image has a handful of PMA regions (RAM, maybe an MMIO console), not
// hundreds, so a linear scan over a small fixed array beats a tree.
const pmaCapacity = 8

// PMAAttrs describes the physical-memory attributes of a range: whether it
// is cacheable and which access kinds it permits at all (independent of any
// PTE permission bits).
type PMAAttrs struct {
	Cacheable bool
	Perm      Prot
}

type pmaEntry struct {
	base, length uint64
	attrs        PMAAttrs
}

// PMATable is an ordered, first-match table of physical-memory attributes
// (component B). It is populated once at startup and read only during
// interpretation.
type PMATable struct {
	entries []pmaEntry
}

// NewPMATable returns an empty PMA table.
func NewPMATable() *PMATable {
	return &PMATable{}
}

// Add appends a PMA entry. Entries are searched in insertion order and the
// first match wins, so more specific ranges should be added before broader
// fallback ranges.
func (t *PMATable) Add(base, length uint64, attrs PMAAttrs) error {
	if len(t.entries) >= pmaCapacity {
		return fmt.Errorf("mmu: PMA table full (capacity %d)", pmaCapacity)
	}
	t.entries = append(t.entries, pmaEntry{base: base, length: length, attrs: attrs})
	return nil
}

// Lookup returns the attributes of the first entry containing pa.
func (t *PMATable) Lookup(pa uint64) (PMAAttrs, bool) {
	for _, e := range t.entries {
		if pa >= e.base && pa < e.base+e.length {
			return e.attrs, true
		}
	}
	return PMAAttrs{}, false
}
