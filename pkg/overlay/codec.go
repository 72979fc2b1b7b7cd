package overlay

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-remora/remora/pkg/memory"
)

func readUintRaw(mem memory.ReadWriter, addr uint64, size int64, order binary.ByteOrder) (uint64, error) {
	val := make([]byte, int(size))
	if _, err := mem.ReadMemory(val, addr); err != nil {
		return 0, err
	}

	var n uint64
	switch size {
	case 1:
		n = uint64(val[0])
	case 2:
		n = uint64(order.Uint16(val))
	case 4:
		n = uint64(order.Uint32(val))
	case 8:
		n = order.Uint64(val)
	default:
		return 0, fmt.Errorf("invalid integer size %d", size)
	}
	return n, nil
}

func writeUintRaw(mem memory.ReadWriter, addr uint64, value uint64, size int64, order binary.ByteOrder) error {
	val := make([]byte, size)

	switch size {
	case 1:
		val[0] = byte(value)
	case 2:
		order.PutUint16(val, uint16(value))
	case 4:
		order.PutUint32(val, uint32(value))
	case 8:
		order.PutUint64(val, value)
	default:
		return fmt.Errorf("invalid integer size %d", size)
	}

	_, err := mem.WriteMemory(addr, val)
	return err
}

func readFloatRaw(mem memory.ReadWriter, addr uint64, size int64, order binary.ByteOrder) (float64, error) {
	val := make([]byte, int(size))
	if _, err := mem.ReadMemory(val, addr); err != nil {
		return 0.0, err
	}
	buf := bytes.NewBuffer(val)

	switch size {
	case 4:
		n := float32(0)
		binary.Read(buf, order, &n)
		return float64(n), nil
	case 8:
		n := float64(0)
		binary.Read(buf, order, &n)
		return n, nil
	}

	return 0.0, fmt.Errorf("could not read float of size %d", size)
}

func writeFloatRaw(mem memory.ReadWriter, addr uint64, f float64, size int64, order binary.ByteOrder) error {
	buf := bytes.NewBuffer(make([]byte, 0, size))

	switch size {
	case 4:
		n := float32(f)
		binary.Write(buf, order, n)
	case 8:
		binary.Write(buf, order, f)
	default:
		return fmt.Errorf("could not write float of size %d", size)
	}

	_, err := mem.WriteMemory(addr, buf.Bytes())
	return err
}

const cstringChunk = 32

// readCString reads a NUL-terminated string of at most max bytes,
// chunk by chunk, dropping to single bytes when a chunk runs off the
// mapped range so a string ending just before a range boundary still
// decodes.
func readCString(mem memory.ReadWriter, addr uint64, max int) (string, error) {
	var out []byte
	chunk := make([]byte, cstringChunk)
	for len(out) < max {
		n := cstringChunk
		if rem := max - len(out); rem < n {
			n = rem
		}
		cur := addr + uint64(len(out))
		if _, err := mem.ReadMemory(chunk[:n], cur); err != nil {
			if _, err1 := mem.ReadMemory(chunk[:1], cur); err1 != nil {
				return "", err1
			}
			n = 1
		}
		if i := bytes.IndexByte(chunk[:n], 0); i >= 0 {
			return string(append(out, chunk[:i]...)), nil
		}
		out = append(out, chunk[:n]...)
	}
	return "", fmt.Errorf("no string terminator within %d bytes at %#x", max, addr)
}
