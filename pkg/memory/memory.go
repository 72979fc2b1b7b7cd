// Package memory defines the byte-level access contract between the typed
// overlay engine and a target's address space, along with the concrete
// backends that satisfy it: a file-backed memory image assembled from RAM
// dumps, and (in the dolphin subpackage) a hook into a running emulator.
//
// Addresses are always target addresses, not host addresses. A backend maps
// one or more target address ranges; any access that is not fully contained
// in a single mapped range fails with *AddrError.
package memory

import "fmt"

// Reader is the read half of a target address space. It is like io.ReaderAt,
// but the offset is a target address.
type Reader interface {
	// ReadMemory fills buf with the bytes at addr. A read that cannot be
	// fully satisfied returns an error.
	ReadMemory(buf []byte, addr uint64) (n int, err error)
}

// ReadWriter is a byte-addressable target address space.
type ReadWriter interface {
	Reader
	WriteMemory(addr uint64, data []byte) (written int, err error)
}

// AddrError is returned when any byte of a requested range falls outside
// the ranges mapped by a backend. It is never retried and is reported to
// the caller unchanged.
type AddrError struct {
	Op   string
	Addr uint64
	Len  int
}

func (e *AddrError) Error() string {
	return fmt.Sprintf("%s of %d bytes at %#x: address outside mapped memory", e.Op, e.Len, e.Addr)
}
