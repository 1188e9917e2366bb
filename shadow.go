package addrspace

import "fmt"

// NativeMemory is the byte-addressable backing store the concrete-shadow
// surface mirrors object contents into and out of. It stands in for the
// "native address" spec §6 refers to; how it's actually backed (a real
// process's memory, a test double, a file) is outside this module's
// scope.
type NativeMemory interface {
	ReadByte(addr uint64) (value byte, ok bool)
	WriteByte(addr uint64, value byte)
}

// CopyOutConcretes writes every non-user-specified object's known-concrete
// bytes to their native address. User-specified objects (symbolic inputs
// declared directly by a test harness) never have a native counterpart
// and are skipped, mirroring execution_state.go's own Copy: a write only
// ever targets bytes the resolver itself owns.
func CopyOutConcretes(as *AddressSpace, native NativeMemory) {
	it := as.objects.Iterator()
	for !it.Done() {
		_, entry, _ := it.Next()
		if entry.mo.IsUserSpecified {
			continue
		}
		for i := uint64(0); i < entry.os.Bytes.Size; i++ {
			if v, ok := entry.os.Bytes.Get(i); ok {
				native.WriteByte(entry.mo.Address+i, v)
			}
		}
	}
}

// CopyInConcretes reads native memory back into every non-user-specified
// object's byte store. An object whose native bytes have diverged from
// what's currently stored triggers getWriteable to obtain a mutable copy
// — except for a read-only object, where divergence is an error: a
// read-only state was never supposed to have been written through.
func CopyInConcretes(as *AddressSpace, native NativeMemory) error {
	it := as.objects.Iterator()
	for !it.Done() {
		_, entry, _ := it.Next()
		mo, os := entry.mo, entry.os
		if mo.IsUserSpecified {
			continue
		}

		diverged := false
		for i := uint64(0); i < os.Bytes.Size; i++ {
			nv, ok := native.ReadByte(mo.Address + i)
			if !ok {
				continue
			}
			cv, known := os.Bytes.Get(i)
			if !known || cv != nv {
				diverged = true
				break
			}
		}
		if !diverged {
			continue
		}

		if os.ReadOnly {
			return fmt.Errorf("%w: addr=%#x", ErrDivergedReadOnly, mo.Address)
		}

		writeable := as.GetWriteable(mo, os)
		for i := uint64(0); i < writeable.Bytes.Size; i++ {
			if nv, ok := native.ReadByte(mo.Address + i); ok {
				writeable.Bytes.Set(i, nv)
			}
		}
	}
	return nil
}
