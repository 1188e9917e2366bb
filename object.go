package addrspace

import (
	"fmt"

	"github.com/mkeeler/addrspace/expr"
)

// MemoryObject describes an allocated region of the address space. Identity
// is by pointer; ordering (within the persistent object map) is by Address.
// A MemoryObject is immutable once constructed and is safe to share by
// reference across every AddressSpace that has bound it.
type MemoryObject struct {
	// Address is the object's concrete base address, and the ordering key
	// used by the persistent object map (C1).
	Address uint64

	// Size is the object's byte size. Usually a constant, but may be
	// symbolic; a symbolic size is only meaningful for a segmented object
	// (see NewMemoryObject).
	Size expr.Expr

	// SegmentID names the object independent of its concrete address.
	// Zero means "address-only": the object has no segment identity and
	// is only reachable via flat (segment == 0) pointers.
	SegmentID uint64

	// IsUserSpecified marks an object supplied directly by a test harness
	// or symbolic-input declaration rather than by ordinary allocation.
	// User-specified objects are excluded from concrete-shadow traffic
	// (see CopyOutConcretes/CopyInConcretes).
	IsUserSpecified bool
}

// NewMemoryObject returns a new MemoryObject. It panics if size is
// symbolic and segment is zero: spec invariant 4 requires every
// symbolically-sized object to carry a non-zero segment, since such an
// object can only be addressed through a segmented pointer.
func NewMemoryObject(address uint64, size expr.Expr, segment uint64, isUserSpecified bool) *MemoryObject {
	if !expr.IsConstant(size) && segment == 0 {
		assert(false, "object.go: symbolic-size object requires a non-zero segment: addr=%d", address)
	}
	return &MemoryObject{
		Address:         address,
		Size:            size,
		SegmentID:       segment,
		IsUserSpecified: isUserSpecified,
	}
}

func (mo *MemoryObject) String() string {
	return fmt.Sprintf("object(addr=%#x size=%s segment=%d)", mo.Address, mo.Size, mo.SegmentID)
}

// concreteSize returns the object's size as a constant and true, or
// (0, false) if the size is symbolic.
func (mo *MemoryObject) concreteSize() (uint64, bool) {
	c, ok := mo.Size.(*expr.ConstantExpr)
	if !ok {
		return 0, false
	}
	return c.Value, true
}

// containsConcrete reports whether the concrete offset falls within
// [0, size) of mo, per spec §4.3: zero-sized objects match only offset 0,
// and unsigned wraparound handles "below base" naturally.
func (mo *MemoryObject) containsConcrete(offset uint64) bool {
	size, ok := mo.concreteSize()
	if !ok {
		return false // symbolic size is unreachable via a concrete check
	}
	if size == 0 {
		return offset == 0
	}
	return offset < size
}

// BoundsCheck returns the expression meaning "the pointer's intra-object
// offset lies within [0, mo.Size)", or "offset == 0" for a zero-sized
// object. The offset passed in must already be relative to mo.Address for
// flat pointers, or be the segmented pointer's own offset field for
// segmented pointers (spec §4.5: segmented pointers are presumed
// intra-object and receive no bounds check at the segment-lookup stage,
// but BoundsCheck is still the predicate the resolver's solver oracle
// evaluates once a candidate has been selected).
func (mo *MemoryObject) BoundsCheck(offset expr.Expr) expr.Expr {
	if c, ok := mo.Size.(*expr.ConstantExpr); ok && c.Value == 0 {
		return expr.IsZero(offset)
	}
	return expr.Ult(offset, mo.Size)
}

// BoundsCheckPointer is the per-object "bounds_check_pointer" constructor
// spec §6 requires: it returns the expression meaning that ptr designates
// a location within mo. For a flat pointer (segment == 0) ptr.Offset is
// the absolute address, so it is first rebased against mo.Address; for a
// segmented pointer matching mo.SegmentID, ptr.Offset is already the
// intra-segment offset and needs no rebasing.
func (mo *MemoryObject) BoundsCheckPointer(ptr Pointer) expr.Expr {
	if ptr.isFlat() {
		rel := expr.Sub(ptr.Offset, expr.Const(mo.Address, expr.Width(ptr.Offset)))
		return mo.BoundsCheck(rel)
	}
	return mo.BoundsCheck(ptr.Offset)
}

// ObjectState is the per-address-space contents of a MemoryObject:
// its bytes plus the copy-on-write bookkeeping that decides whether a
// given AddressSpace may mutate it in place.
type ObjectState struct {
	// ReadOnly objects can never be upgraded to a writeable copy.
	ReadOnly bool

	// CopyOnWriteOwner is the cowKey of the one AddressSpace currently
	// permitted to mutate this state in place. Zero means unowned/fresh.
	CopyOnWriteOwner uint64

	// Bytes holds the object's contents. Opaque to the resolver; only
	// touched by the concrete-shadow helpers in shadow.go.
	Bytes *ByteStore
}

// NewObjectState returns a fresh, unowned ObjectState over size bytes.
func NewObjectState(size uint64, readOnly bool) *ObjectState {
	return &ObjectState{
		ReadOnly: readOnly,
		Bytes:    NewByteStore(size),
	}
}

// Clone returns a copy of the state with a fresh (unowned) CoW key and an
// independent byte store, suitable for the copy-on-write upgrade path.
func (os *ObjectState) Clone() *ObjectState {
	return &ObjectState{
		ReadOnly:         os.ReadOnly,
		CopyOnWriteOwner: 0,
		Bytes:            os.Bytes.Clone(),
	}
}

func (os *ObjectState) String() string {
	return fmt.Sprintf("state(readOnly=%v owner=%d)", os.ReadOnly, os.CopyOnWriteOwner)
}

// ByteStore is a minimal concrete/symbolic byte-plane for an ObjectState.
// Its representation is deliberately opaque to the resolver (spec §3
// treats an ObjectState's byte store as "accessed only by external-call
// shadowing"); it exists only so CopyOutConcretes/CopyInConcretes and
// tests have something concrete to read and write.
type ByteStore struct {
	Size uint64

	// concrete holds byte values known to be concrete. A missing entry
	// for an in-range index means the byte is symbolic (unknown to the
	// shadow surface) or simply uninitialised/zero.
	concrete map[uint64]byte
}

// NewByteStore returns a zero-initialized store of the given size.
func NewByteStore(size uint64) *ByteStore {
	return &ByteStore{Size: size, concrete: make(map[uint64]byte)}
}

// Clone returns an independent copy of the store.
func (b *ByteStore) Clone() *ByteStore {
	other := &ByteStore{Size: b.Size, concrete: make(map[uint64]byte, len(b.concrete))}
	for k, v := range b.concrete {
		other.concrete[k] = v
	}
	return other
}

// Get returns the concrete byte at index and whether it is known concrete.
func (b *ByteStore) Get(index uint64) (byte, bool) {
	v, ok := b.concrete[index]
	return v, ok
}

// Set stores a concrete byte at index.
func (b *ByteStore) Set(index uint64, value byte) {
	assert(index < b.Size, "bytestore: index out of bounds: %d < %d", index, b.Size)
	b.concrete[index] = value
}

// IsFullyConcrete reports whether every byte in the store is known.
func (b *ByteStore) IsFullyConcrete() bool {
	return uint64(len(b.concrete)) == b.Size
}
