package overlay

import (
	"encoding/binary"
	"fmt"
)

// Arch holds the target architecture properties layout decisions
// depend on: how wide a pointer is and how multi-byte values are
// ordered. Declaration contexts carry neither, so the catalog is told
// explicitly.
type Arch struct {
	PtrSize   int
	ByteOrder binary.ByteOrder
}

// GameCubeArch returns the architecture of the GameCube/Wii PowerPC
// targets this library grew up on: big-endian with 4-byte pointers.
func GameCubeArch() Arch {
	return Arch{PtrSize: 4, ByteOrder: binary.BigEndian}
}

func (a Arch) check() error {
	if a.PtrSize != 4 && a.PtrSize != 8 {
		return fmt.Errorf("pointer size must be 4 or 8, got %d", a.PtrSize)
	}
	if a.ByteOrder == nil {
		return fmt.Errorf("byte order not set")
	}
	return nil
}
