package addrspace

import "github.com/mkeeler/addrspace/expr"

// ResolveOne implements C5 (resolveOne): resolution of a single pointer
// that may carry a symbolic segment and/or offset, committing to at most
// one (object, state) pair. ok is false iff any solver call failed; when
// ok is true, success reports whether a candidate was found at all.
func ResolveOne(as *AddressSpace, solver Solver, cs ConstraintSet, ptr Pointer) (mo *MemoryObject, os *ObjectState, success bool, ok bool) {
	if ptr.IsConstant() {
		mo, os, success = ResolveConstant(as, ptr)
		return mo, os, success, true
	}

	if !expr.IsConstant(ptr.Segment) {
		s, solved := solver.GetValue(cs, ptr.Segment)
		if !solved {
			return nil, nil, false, false
		}
		ptr.Segment = expr.Const(s, expr.Width(ptr.Segment))
	}

	if c := ptr.Segment.(*expr.ConstantExpr); c.Value != 0 {
		mo, os, success = ResolveConstant(as, ptr)
		return mo, os, success, true
	}

	// segment == 0: a flat pointer with a possibly-symbolic offset.
	example, solved := solver.GetValue(cs, ptr.Offset)
	if !solved {
		return nil, nil, false, false
	}

	if entry, found := floorEntry(as.objects, example); found {
		if size, isConst := entry.mo.concreteSize(); isConst && example-entry.mo.Address < size {
			os, ok := as.FindObject(entry.mo)
			assert(ok, "ResolveOne: object map desync: addr=%#x", entry.mo.Address)
			return entry.mo, os, true, true
		}
	}

	backward := upperBoundIterator(as.objects, example)
	for !backward.Done() {
		_, entry, _ := backward.Prev()

		may, solved := solver.MayBeTrue(cs, entry.mo.BoundsCheckPointer(ptr))
		if !solved {
			return nil, nil, false, false
		}
		if may {
			os, ok := as.FindObject(entry.mo)
			assert(ok, "ResolveOne: object map desync: addr=%#x", entry.mo.Address)
			return entry.mo, os, true, true
		}

		base := expr.Const(entry.mo.Address, expr.Width(ptr.Offset))
		must, solved := solver.MustBeTrue(cs, expr.Uge(ptr.Offset, base))
		if !solved {
			return nil, nil, false, false
		}
		if must {
			break
		}
	}

	forward := upperBoundIterator(as.objects, example)
	for !forward.Done() {
		_, entry, _ := forward.Next()

		base := expr.Const(entry.mo.Address, expr.Width(ptr.Offset))
		must, solved := solver.MustBeTrue(cs, expr.Ult(ptr.Offset, base))
		if !solved {
			return nil, nil, false, false
		}
		if must {
			break
		}

		may, solved := solver.MayBeTrue(cs, entry.mo.BoundsCheckPointer(ptr))
		if !solved {
			return nil, nil, false, false
		}
		if may {
			os, ok := as.FindObject(entry.mo)
			assert(ok, "ResolveOne: object map desync: addr=%#x", entry.mo.Address)
			return entry.mo, os, true, true
		}
	}

	return nil, nil, false, true
}
