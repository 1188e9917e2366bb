package addrspace

import (
	"log"
	"time"

	"github.com/mkeeler/addrspace/expr"
)

// Resolution pairs a matched object with its state, as appended to a
// multi-resolve result list.
type Resolution struct {
	Object *MemoryObject
	State  *ObjectState
}

// Resolve implements C6 (resolve): enumeration of every (object, state)
// pair a pointer may designate, up to maxResolutions (0 means unbounded)
// and bounded by timeout (0 means none). It returns true iff the
// enumeration is incomplete — a timeout, a solver failure, or the cap was
// hit — in which case results holds whatever was found before giving up.
func Resolve(as *AddressSpace, solver Solver, cs ConstraintSet, ptr Pointer, maxResolutions uint32, timeout time.Duration) (results []Resolution, incomplete bool) {
	var deadline time.Time
	hasDeadline := timeout > 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}
	timedOut := func() bool { return hasDeadline && time.Now().After(deadline) }

	var rl []Resolution

	if expr.IsConstant(ptr.Segment) {
		incomplete = resolveConstantSegment(as, solver, cs, ptr, &rl, maxResolutions, timedOut)
		return rl, incomplete
	}

	width := expr.Width(ptr.Segment)
	zero := expr.Const(0, width)
	may, ok := solver.MayBeTrue(cs, expr.Eq(ptr.Segment, zero))
	if !ok {
		return rl, true
	}
	if may {
		zeroPtr := Pointer{Segment: zero, Offset: ptr.Offset}
		if resolveConstantSegment(as, solver, cs, zeroPtr, &rl, maxResolutions, timedOut) {
			return rl, true
		}
	}

	it := as.segments.Iterator()
	for !it.Done() {
		if timedOut() {
			return rl, true
		}

		s, mo, _ := it.Next()

		may, ok := solver.MayBeTrue(cs, expr.Eq(ptr.Segment, expr.Const(s, width)))
		if !ok {
			return rl, true
		}
		if !may {
			continue
		}

		state, found := as.FindObject(mo)
		assert(found, "Resolve: segment map desync: segment=%d", s)
		rl = append(rl, Resolution{Object: mo, State: state})
		if maxResolutions != 0 && uint32(len(rl)) >= maxResolutions {
			log.Printf("[resolve] cap hit: segment=%d max=%d", s, maxResolutions)
			return rl, true
		}
	}

	return rl, false
}

// resolveConstantSegment handles the concrete-segment half of C6: a
// direct segment lookup for segment != 0, or the bidirectional
// upper_bound walk (mirroring ResolveOne's, but enumerating rather than
// committing to a single match) for segment == 0.
func resolveConstantSegment(as *AddressSpace, solver Solver, cs ConstraintSet, ptr Pointer, rl *[]Resolution, maxResolutions uint32, timedOut func() bool) bool {
	seg := ptr.Segment.(*expr.ConstantExpr).Value
	if seg != 0 {
		mo, os, found := ResolveConstant(as, ptr)
		if found {
			*rl = append(*rl, Resolution{Object: mo, State: os})
		}
		return false
	}

	example, ok := solver.GetValue(cs, ptr.Offset)
	if !ok {
		return true
	}

	first := true

	backward := upperBoundIterator(as.objects, example)
	for !backward.Done() {
		if timedOut() {
			return true
		}
		_, entry, _ := backward.Prev()

		state, found := as.FindObject(entry.mo)
		assert(found, "resolveConstantSegment: object map desync: addr=%#x", entry.mo.Address)

		switch checkPointerInObject(solver, cs, ptr, entry.mo, state, rl, maxResolutions, &first) {
		case checkDone:
			return false
		case checkIncomplete:
			return true
		}

		base := expr.Const(entry.mo.Address, expr.Width(ptr.Offset))
		must, ok := solver.MustBeTrue(cs, expr.Uge(ptr.Offset, base))
		if !ok {
			return true
		}
		if must {
			break
		}
	}

	forward := upperBoundIterator(as.objects, example)
	for !forward.Done() {
		if timedOut() {
			return true
		}
		_, entry, _ := forward.Next()

		base := expr.Const(entry.mo.Address, expr.Width(ptr.Offset))
		must, ok := solver.MustBeTrue(cs, expr.Ult(ptr.Offset, base))
		if !ok {
			return true
		}
		if must {
			break
		}

		state, found := as.FindObject(entry.mo)
		assert(found, "resolveConstantSegment: object map desync: addr=%#x", entry.mo.Address)

		switch checkPointerInObject(solver, cs, ptr, entry.mo, state, rl, maxResolutions, &first) {
		case checkDone:
			return false
		case checkIncomplete:
			return true
		}
	}

	return false
}

// checkPointerInObject outcomes, per spec §4.5.
const (
	checkDone       = 0 // pointer mustBeTrue be in mo; enumeration terminates.
	checkIncomplete = 1 // solver failure, or this append hit maxResolutions.
	checkContinue   = 2 // not definitively in mo; keep walking.
)

// checkPointerInObject tests whether the pointer may/must lie within mo,
// appending it to rl when it may. *first tracks whether this is the very
// first object appended across the whole resolveConstantSegment call: only
// then is it worth the extra mustBeTrue query to short-circuit enumeration
// when the object is provably the unique match.
func checkPointerInObject(solver Solver, cs ConstraintSet, ptr Pointer, mo *MemoryObject, state *ObjectState, rl *[]Resolution, maxResolutions uint32, first *bool) int {
	boundsCheck := mo.BoundsCheckPointer(ptr)

	may, ok := solver.MayBeTrue(cs, boundsCheck)
	if !ok {
		return checkIncomplete
	}
	if !may {
		return checkContinue
	}

	*rl = append(*rl, Resolution{Object: mo, State: state})
	wasFirst := *first
	*first = false

	if wasFirst {
		must, ok := solver.MustBeTrue(cs, boundsCheck)
		if !ok {
			return checkIncomplete
		}
		if must {
			return checkDone
		}
	}

	if maxResolutions != 0 && uint32(len(*rl)) == maxResolutions {
		log.Printf("[resolve] cap hit: addr=%#x max=%d", mo.Address, maxResolutions)
		return checkIncomplete
	}
	return checkContinue
}
