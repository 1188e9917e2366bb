package addrspace

import "github.com/mkeeler/addrspace/expr"

// ResolveConstant implements C4: given a pointer whose segment and offset
// are both concrete, it returns at most one (object, state) pair.
//
// Segmented pointers (segment != 0) are resolved by a direct segment-map
// lookup with no bounds check — spec §4.3 point 1 notes that segment
// lookup already implies a valid intra-segment offset at this stage.
// Flat pointers (segment == 0) floor-lookup the address and verify the
// concrete containment predicate; objects with a symbolic size are
// unreachable through flat addressing (invariant 4 requires them to
// carry a segment).
func ResolveConstant(as *AddressSpace, ptr Pointer) (*MemoryObject, *ObjectState, bool) {
	assert(ptr.IsConstant(), "ResolveConstant: pointer is not fully concrete: %v", ptr)

	seg := ptr.Segment.(*expr.ConstantExpr).Value
	if seg != 0 {
		mo, ok := as.findBySegment(seg)
		if !ok {
			return nil, nil, false
		}
		os, ok := as.FindObject(mo)
		assert(ok, "ResolveConstant: segment map desync: segment=%d", seg)
		return mo, os, true
	}

	addr := ptr.Offset.(*expr.ConstantExpr).Value
	entry, ok := floorEntry(as.objects, addr)
	if !ok {
		return nil, nil, false
	}
	if !entry.mo.containsConcrete(addr - entry.mo.Address) {
		return nil, nil, false
	}
	return entry.mo, entry.os, true
}
