package addrspace_test

import (
	"testing"

	"github.com/mkeeler/addrspace"
	"github.com/mkeeler/addrspace/expr"
)

func newFlatObject(addr, size uint64) *addrspace.MemoryObject {
	return addrspace.NewMemoryObject(addr, expr.Const(size, 64), 0, false)
}

func TestAddressSpace(t *testing.T) {
	t.Run("BindAndFind", func(t *testing.T) {
		as := addrspace.NewAddressSpace()
		mo := newFlatObject(0x1000, 16)
		os := addrspace.NewObjectState(16, false)
		as.BindObject(mo, os)

		if got, ok := as.FindObject(mo); !ok || got != os {
			t.Fatal("expected to find the bound state")
		}
		if as.Len() != 1 {
			t.Fatalf("expected 1 bound object, got %d", as.Len())
		}
	})

	t.Run("BindPanicsOnOwnedState", func(t *testing.T) {
		as1 := addrspace.NewAddressSpace()
		as2 := addrspace.NewAddressSpace()
		mo := newFlatObject(0x1000, 16)
		os := addrspace.NewObjectState(16, false)
		as1.BindObject(mo, os)

		defer func() {
			if recover() == nil {
				t.Fatal("expected BindObject to panic on an already-owned state")
			}
		}()
		as2.BindObject(mo, os)
	})

	t.Run("Unbind", func(t *testing.T) {
		as := addrspace.NewAddressSpace()
		mo := newFlatObject(0x1000, 16)
		as.BindObject(mo, addrspace.NewObjectState(16, false))
		as.UnbindObject(mo)

		if _, ok := as.FindObject(mo); ok {
			t.Fatal("expected the object to be gone after unbind")
		}
	})

	t.Run("Fork", func(t *testing.T) {
		parent := addrspace.NewAddressSpace()
		mo := newFlatObject(0x1000, 16)
		parent.BindObject(mo, addrspace.NewObjectState(16, false))

		child := parent.Fork()
		if child.CoWKey() == parent.CoWKey() {
			t.Fatal("expected fork to mint a fresh CoW key")
		}
		if _, ok := child.FindObject(mo); !ok {
			t.Fatal("expected fork to share the parent's bound objects")
		}

		// Binding a new object into the child must not affect the parent.
		other := newFlatObject(0x2000, 16)
		child.BindObject(other, addrspace.NewObjectState(16, false))
		if _, ok := parent.FindObject(other); ok {
			t.Fatal("expected the parent to be unaffected by a child bind")
		}
	})

	t.Run("GetWriteable", func(t *testing.T) {
		t.Run("SameOwnerNoClone", func(t *testing.T) {
			as := addrspace.NewAddressSpace()
			mo := newFlatObject(0x1000, 16)
			os := addrspace.NewObjectState(16, false)
			as.BindObject(mo, os)

			writeable := as.GetWriteable(mo, os)
			if writeable != os {
				t.Fatal("expected GetWriteable to return the same state when already uniquely owned")
			}
		})

		t.Run("ForkedOwnerClones", func(t *testing.T) {
			parent := addrspace.NewAddressSpace()
			mo := newFlatObject(0x1000, 16)
			os := addrspace.NewObjectState(16, false)
			os.Bytes.Set(0, 0x42)
			parent.BindObject(mo, os)

			child := parent.Fork()
			writeable := child.GetWriteable(mo, os)
			if writeable == os {
				t.Fatal("expected GetWriteable to clone a state owned by another address space")
			}

			writeable.Bytes.Set(0, 0x99)
			if v, _ := os.Bytes.Get(0); v != 0x42 {
				t.Fatal("expected the parent's state to be unaffected by the child's write")
			}

			parentState, ok := parent.FindObject(mo)
			if !ok || parentState != os {
				t.Fatal("expected the parent to still see its own original state")
			}

			childState, ok := child.FindObject(mo)
			if !ok || childState != writeable {
				t.Fatal("expected the child to see the cloned, writeable state")
			}
		})

		t.Run("PanicsOnReadOnly", func(t *testing.T) {
			as := addrspace.NewAddressSpace()
			mo := newFlatObject(0x1000, 16)
			os := addrspace.NewObjectState(16, true)
			as.BindObject(mo, os)

			defer func() {
				if recover() == nil {
					t.Fatal("expected GetWriteable to panic on a read-only state")
				}
			}()
			as.GetWriteable(mo, os)
		})
	})

	t.Run("SegmentedObjectsAreIndependentlyFound", func(t *testing.T) {
		as := addrspace.NewAddressSpace()
		mo := addrspace.NewMemoryObject(0x5000, expr.Const(64, 64), 3, false)
		as.BindObject(mo, addrspace.NewObjectState(64, false))

		flat := addrspace.NewFlatPointer(expr.Const(0x5010, 64))
		got, _, found := addrspace.ResolveConstant(as, flat)
		if !found || got != mo {
			t.Fatal("expected flat resolution to still find a segmented object at its concrete address")
		}

		segmented := addrspace.NewSegmentedPointer(expr.Const(3, 64), expr.Const(8, 64))
		got, _, found = addrspace.ResolveConstant(as, segmented)
		if !found || got != mo {
			t.Fatal("expected segment lookup to find the same object")
		}
	})
}
