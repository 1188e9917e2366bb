package addrspace

import (
	"log"
	"sync/atomic"

	"github.com/benbjohnson/immutable"
)

// uint64Comparer orders the persistent maps (C1, C2) by their uint64 key.
// Grounded directly on the teacher's own uint64Comparer used to key its
// heap by address.
type uint64Comparer struct{}

func (uint64Comparer) Compare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// objectEntry is the value stored in the object map (C1): a MemoryObject
// paired with its per-address-space ObjectState. Spec's DESIGN NOTES warn
// against the "MemoryObject hack(address)" pattern of probing the map with
// a throwaway object; we sidestep it entirely by keying the map on the
// plain uint64 address instead of on *MemoryObject.
type objectEntry struct {
	mo *MemoryObject
	os *ObjectState
}

var cowKeySeq uint64

// nextCoWKey returns a fresh, globally unique copy-on-write key. Backed
// by an atomic counter (rather than the teacher's plain int field) because
// a multi-worker executor forks address spaces from goroutines operating
// on disjoint states concurrently (spec §5); keys are never reused for the
// lifetime of the process, so no descendant state can ever alias a stale
// owner.
func nextCoWKey() uint64 {
	return atomic.AddUint64(&cowKeySeq, 1)
}

// AddressSpace is the per-execution-state mapping of allocations (C3): one
// version of the persistent object map, one version of the persistent
// segment map, and the CoW key that gates in-place mutation of the object
// states it currently owns.
type AddressSpace struct {
	objects  *immutable.SortedMap[uint64, *objectEntry]
	segments *immutable.SortedMap[uint64, *MemoryObject]
	cowKey   uint64
}

// NewAddressSpace returns a new, empty AddressSpace with a fresh CoW key.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{
		objects:  immutable.NewSortedMap[uint64, *objectEntry](uint64Comparer{}),
		segments: immutable.NewSortedMap[uint64, *MemoryObject](uint64Comparer{}),
		cowKey:   nextCoWKey(),
	}
}

// CoWKey returns the address space's copy-on-write identity.
func (as *AddressSpace) CoWKey() uint64 { return as.cowKey }

// Len returns the number of bound objects.
func (as *AddressSpace) Len() int { return as.objects.Len() }

// Fork returns a new AddressSpace sharing structure with as but carrying
// its own CoW key (spec invariant 5). Because the underlying maps are
// persistent, this is O(1): no object or state is copied, only the two
// map headers and a fresh key.
func (as *AddressSpace) Fork() *AddressSpace {
	return &AddressSpace{
		objects:  as.objects,
		segments: as.segments,
		cowKey:   nextCoWKey(),
	}
}

// BindObject inserts mo into the address space with the given state,
// taking ownership of the state for this address space (invariant 1).
// It panics if os is already owned by some address space, mirroring the
// teacher's own "requires os.copyOnWriteOwner == 0" precondition.
func (as *AddressSpace) BindObject(mo *MemoryObject, os *ObjectState) {
	assert(os.CopyOnWriteOwner == 0, "BindObject: state already owned: owner=%d", os.CopyOnWriteOwner)

	os.CopyOnWriteOwner = as.cowKey
	as.objects = as.objects.Set(mo.Address, &objectEntry{mo: mo, os: os})
	if mo.SegmentID != 0 {
		as.segments = as.segments.Set(mo.SegmentID, mo)
	}
}

// UnbindObject removes mo from this address space only (both maps); other
// address spaces that still reference mo/its state are unaffected.
func (as *AddressSpace) UnbindObject(mo *MemoryObject) {
	as.objects = as.objects.Delete(mo.Address)
	if mo.SegmentID != 0 {
		as.segments = as.segments.Delete(mo.SegmentID)
	}
}

// FindObject returns the object state bound to mo in this address space,
// if any. Pure read; never mutates or upgrades ownership.
func (as *AddressSpace) FindObject(mo *MemoryObject) (*ObjectState, bool) {
	entry, ok := as.objects.Get(mo.Address)
	if !ok || entry.mo != mo {
		return nil, false
	}
	return entry.os, true
}

// findBySegment returns the object bound to the given segment id, if any.
func (as *AddressSpace) findBySegment(segment uint64) (*MemoryObject, bool) {
	return as.segments.Get(segment)
}

// findByAddress returns the (object, state) bound exactly at address, if
// any.
func (as *AddressSpace) findByAddress(address uint64) (*MemoryObject, *ObjectState, bool) {
	entry, ok := as.objects.Get(address)
	if !ok {
		return nil, nil, false
	}
	return entry.mo, entry.os, true
}

// GetWriteable is the CoW upgrade: it returns an ObjectState this address
// space may mutate in place, cloning os first if some other address space
// still owns it. The returned state is already re-bound into the address
// space's object map under mo.
//
// Panics if os is read-only: a caller is never supposed to ask for a
// writeable view of a read-only state (mirrors the teacher's own
// "requires !os.readOnly" precondition on its write path).
func (as *AddressSpace) GetWriteable(mo *MemoryObject, os *ObjectState) *ObjectState {
	assert(!os.ReadOnly, "GetWriteable: state is read-only: addr=%#x", mo.Address)

	if os.CopyOnWriteOwner == as.cowKey {
		return os // already uniquely owned by this address space; no copy needed
	}

	log.Printf("[cow] upgrade: addr=%#x owner=%d->%d", mo.Address, os.CopyOnWriteOwner, as.cowKey)
	clone := os.Clone()
	clone.CopyOnWriteOwner = as.cowKey
	as.objects = as.objects.Set(mo.Address, &objectEntry{mo: mo, os: clone})
	return clone
}

// floorEntry returns the bound entry with the greatest address <= target,
// if any. An exact match is checked first via Get to avoid any ambiguity
// in how the underlying iterator's Seek/Prev treat an exact hit. Absent an
// exact match, Seek lands on the least key > target (or is done if there is
// none, in which case Last is the floor); since Prev returns the current
// entry before moving back, one Prev steps past that key and the next
// returns the floor.
func floorEntry(m *immutable.SortedMap[uint64, *objectEntry], target uint64) (*objectEntry, bool) {
	if e, ok := m.Get(target); ok {
		return e, true
	}

	it := m.Iterator()
	it.Seek(target)
	if it.Done() {
		it.Last()
	} else {
		it.Prev()
	}
	if it.Done() {
		return nil, false
	}
	_, v, _ := it.Prev()
	return v, true
}

// upperBoundIterator returns an iterator positioned so that a subsequent
// Next() yields the least bound entry with address strictly greater than
// target (or Done() if none), and a subsequent Prev() yields the greatest
// entry with address <= target (or Done() if none) — i.e. seeded exactly
// at spec §4.4/§4.5's upper_bound(target).
func upperBoundIterator(m *immutable.SortedMap[uint64, *objectEntry], target uint64) *immutable.SortedMapIterator[uint64, *objectEntry] {
	it := m.Iterator()
	it.Seek(target)
	if it.Done() {
		// No entry >= target exists, so certainly none > target either.
		// Last() seeds correctly for the backward walk (its Prev() yields
		// the greatest overall key); the forward walk correctly sees
		// Done() immediately from this same position.
		it.Last()
		return it
	}

	// Peek the candidate Seek landed on. If it's an exact match, the
	// cursor already sits strictly past it (upper_bound's definition);
	// otherwise we've peeked one step too far and must put it back.
	if k, _, _ := it.Next(); k != target {
		it.Prev()
	}
	return it
}
