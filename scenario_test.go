package addrspace_test

import (
	"testing"

	"github.com/mkeeler/addrspace"
	"github.com/mkeeler/addrspace/expr"
	"github.com/mkeeler/addrspace/internal/refsolver"
)

// The TestScenario* tests exercise the six concrete resolution scenarios laid out
// as the module's canonical worked examples.

func TestScenarioFlatConcreteInBounds(t *testing.T) {
	as := addrspace.NewAddressSpace()
	a := addrspace.NewMemoryObject(0x1000, expr.Const(16, 64), 0, false)
	b := addrspace.NewMemoryObject(0x2000, expr.Const(8, 64), 0, false)
	as.BindObject(a, addrspace.NewObjectState(16, false))
	as.BindObject(b, addrspace.NewObjectState(8, false))

	ptr := addrspace.NewFlatPointer(expr.Const(0x1004, 64))
	solver := refsolver.New()

	mo, _, success, ok := addrspace.ResolveOne(as, solver, addrspace.ConstraintSet{}, ptr)
	if !ok || !success || mo != a {
		t.Fatalf("resolveOne: mo=%v success=%v ok=%v", mo, success, ok)
	}

	results, incomplete := addrspace.Resolve(as, solver, addrspace.ConstraintSet{}, ptr, 0, 0)
	if incomplete || len(results) != 1 || results[0].Object != a {
		t.Fatalf("resolve: results=%v incomplete=%v", results, incomplete)
	}
}

func TestScenarioFlatConcreteGap(t *testing.T) {
	as := addrspace.NewAddressSpace()
	a := addrspace.NewMemoryObject(0x1000, expr.Const(16, 64), 0, false)
	b := addrspace.NewMemoryObject(0x2000, expr.Const(8, 64), 0, false)
	as.BindObject(a, addrspace.NewObjectState(16, false))
	as.BindObject(b, addrspace.NewObjectState(8, false))

	ptr := addrspace.NewFlatPointer(expr.Const(0x1800, 64))
	solver := refsolver.New()

	_, _, success, ok := addrspace.ResolveOne(as, solver, addrspace.ConstraintSet{}, ptr)
	if !ok || success {
		t.Fatalf("resolveOne: success=%v ok=%v", success, ok)
	}

	results, incomplete := addrspace.Resolve(as, solver, addrspace.ConstraintSet{}, ptr, 0, 0)
	if incomplete || len(results) != 0 {
		t.Fatalf("resolve: results=%v incomplete=%v", results, incomplete)
	}
}

func TestScenarioZeroSizedObject(t *testing.T) {
	as := addrspace.NewAddressSpace()
	z := addrspace.NewMemoryObject(0x3000, expr.Const(0, 64), 0, false)
	as.BindObject(z, addrspace.NewObjectState(0, false))

	if mo, _, found := addrspace.ResolveConstant(as, addrspace.NewFlatPointer(expr.Const(0x3000, 64))); !found || mo != z {
		t.Fatalf("expected the base address to resolve to the zero-sized object: mo=%v found=%v", mo, found)
	}
	if _, _, found := addrspace.ResolveConstant(as, addrspace.NewFlatPointer(expr.Const(0x3001, 64))); found {
		t.Fatal("expected one past the base address to not resolve")
	}
}

func TestScenarioSymbolicSegmentTwoSegments(t *testing.T) {
	as := addrspace.NewAddressSpace()
	a := addrspace.NewMemoryObject(0x1000, expr.Const(16, 64), 1, false)
	b := addrspace.NewMemoryObject(0x2000, expr.Const(16, 64), 2, false)
	as.BindObject(a, addrspace.NewObjectState(16, false))
	as.BindObject(b, addrspace.NewObjectState(16, false))

	segment := expr.NewSymbol("x", 64)
	cs := addrspace.ConstraintSet{Constraints: []expr.Expr{
		expr.Uge(segment, expr.Const(1, 64)),
		expr.Ule(segment, expr.Const(2, 64)),
	}}
	ptr := addrspace.NewSegmentedPointer(segment, expr.Const(0, 64))
	solver := refsolver.New()

	results, incomplete := addrspace.Resolve(as, solver, cs, ptr, 0, 0)
	if incomplete || len(results) != 2 {
		t.Fatalf("resolve: results=%v incomplete=%v", results, incomplete)
	}

	mo, _, success, ok := addrspace.ResolveOne(as, solver, cs, ptr)
	if !ok || !success || (mo != a && mo != b) {
		t.Fatalf("resolveOne: mo=%v success=%v ok=%v", mo, success, ok)
	}
}

func TestScenarioResolutionCap(t *testing.T) {
	as := addrspace.NewAddressSpace()
	objs := []*addrspace.MemoryObject{
		addrspace.NewMemoryObject(0x1000, expr.Const(4, 64), 0, false),
		addrspace.NewMemoryObject(0x1004, expr.Const(4, 64), 0, false),
		addrspace.NewMemoryObject(0x1008, expr.Const(4, 64), 0, false),
	}
	for _, mo := range objs {
		as.BindObject(mo, addrspace.NewObjectState(4, false))
	}

	offset := expr.NewSymbol("offset", 64)
	cs := addrspace.ConstraintSet{Constraints: []expr.Expr{
		expr.Uge(offset, expr.Const(0x1000, 64)),
		expr.Ule(offset, expr.Const(0x100B, 64)),
	}}
	ptr := addrspace.NewFlatPointer(offset)

	results, incomplete := addrspace.Resolve(as, refsolver.New(), cs, ptr, 2, 0)
	if !incomplete {
		t.Fatal("expected the resolution cap to report incomplete")
	}
	if len(results) != 2 {
		t.Fatalf("expected exactly 2 results at the cap, got %v", results)
	}
}

func TestScenarioCopyOnWrite(t *testing.T) {
	as1 := addrspace.NewAddressSpace()
	mo := addrspace.NewMemoryObject(0x1000, expr.Const(1, 64), 0, false)
	os0 := addrspace.NewObjectState(1, false)
	os0.Bytes.Set(0, 0x11)
	as1.BindObject(mo, os0)

	as2 := as1.Fork()
	writeable := as2.GetWriteable(mo, os0)
	writeable.Bytes.Set(0, 0x22)

	as1State, _ := as1.FindObject(mo)
	if v, _ := as1State.Bytes.Get(0); v != 0x11 {
		t.Fatalf("expected AS1 to be untouched, got %#x", v)
	}
	as2State, _ := as2.FindObject(mo)
	if v, _ := as2State.Bytes.Get(0); v != 0x22 {
		t.Fatalf("expected AS2 to observe the new byte, got %#x", v)
	}
}

// TestCoWOwnerInvariant checks that every state's owner is always either
// unowned or exactly the CoW key of the address space that currently owns
// it, across a bind, a fork and a getWriteable upgrade.
func TestCoWOwnerInvariant(t *testing.T) {
	as := addrspace.NewAddressSpace()
	mo := addrspace.NewMemoryObject(0x1000, expr.Const(4, 64), 0, false)
	os := addrspace.NewObjectState(4, false)

	if os.CopyOnWriteOwner != 0 {
		t.Fatal("expected a fresh state to be unowned")
	}

	as.BindObject(mo, os)
	if os.CopyOnWriteOwner != as.CoWKey() {
		t.Fatal("expected BindObject to stamp ownership")
	}

	child := as.Fork()
	writeable := child.GetWriteable(mo, os)
	if writeable.CopyOnWriteOwner != child.CoWKey() {
		t.Fatal("expected the upgraded clone to be owned by the forking address space")
	}
	if os.CopyOnWriteOwner != as.CoWKey() {
		t.Fatal("expected the original state's ownership to be untouched by the child's upgrade")
	}
}

// TestGetWriteableIdempotent checks pointer equality of getWriteable's
// result across repeated calls once a state is uniquely owned.
func TestGetWriteableIdempotent(t *testing.T) {
	as := addrspace.NewAddressSpace()
	mo := addrspace.NewMemoryObject(0x1000, expr.Const(4, 64), 0, false)
	os := addrspace.NewObjectState(4, false)
	as.BindObject(mo, os)

	first := as.GetWriteable(mo, os)
	second := as.GetWriteable(mo, first)
	if first != second {
		t.Fatal("expected repeated getWriteable calls on an already-owned state to return the same pointer")
	}
}

// TestSegmentMapConsistency checks segmentMap[s] == mo iff mo is bound
// with that segment id.
func TestSegmentMapConsistency(t *testing.T) {
	as := addrspace.NewAddressSpace()
	mo := addrspace.NewMemoryObject(0x1000, expr.Const(4, 64), 7, false)
	as.BindObject(mo, addrspace.NewObjectState(4, false))

	ptr := addrspace.NewSegmentedPointer(expr.Const(7, 64), expr.Const(0, 64))
	got, _, found := addrspace.ResolveConstant(as, ptr)
	if !found || got != mo {
		t.Fatal("expected the segment map to resolve the bound object")
	}

	as.UnbindObject(mo)
	if _, _, found := addrspace.ResolveConstant(as, ptr); found {
		t.Fatal("expected the segment map entry to be gone after unbind")
	}
}
