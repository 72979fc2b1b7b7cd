package overlay

import (
	"bytes"
	"fmt"

	"github.com/go-remora/remora/pkg/memory"
)

// A View conventionally represents a pointer to one of the specific
// view structures (IntView, StructView, etc.): a Type bound to an
// address on a backend. Views own nothing and cache nothing; they are
// made, used and dropped, and every value or navigation operation
// goes to the backend when it is called.
type View interface {
	Type() Type
	Addr() uint64
	String() string
}

// viewString renders a view for diagnostics as "type @ addr".
func viewString(v View) string {
	return fmt.Sprintf("%s @ %#x", v.Type(), v.Addr())
}

// FieldNotFoundError is returned when a struct or union has no field
// with the requested name.
type FieldNotFoundError struct {
	Type  string
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("%s has no field %s", e.Type, e.Field)
}

type view struct {
	mem  memory.ReadWriter
	addr uint64
}

func (v *view) Addr() uint64 { return v.addr }

// An IntView reads and writes a fixed-width two's-complement integer.
type IntView struct {
	view
	t *IntType
}

func (v *IntView) Type() Type { return v.t }

func (v *IntView) String() string { return viewString(v) }

// Value returns the integer at the bound address, sign-extended for
// signed types. An unsigned 64-bit value above the int64 range wraps;
// Uint is exact for those.
func (v *IntView) Value() (int64, error) {
	n, err := readUintRaw(v.mem, v.addr, v.t.ByteSize, v.t.cat.arch.ByteOrder)
	if err != nil {
		return 0, err
	}
	if v.t.Signed {
		switch v.t.ByteSize {
		case 1:
			return int64(int8(n)), nil
		case 2:
			return int64(int16(n)), nil
		case 4:
			return int64(int32(n)), nil
		}
	}
	return int64(n), nil
}

// Uint returns the integer at the bound address zero-extended.
func (v *IntView) Uint() (uint64, error) {
	return readUintRaw(v.mem, v.addr, v.t.ByteSize, v.t.cat.arch.ByteOrder)
}

// SetValue encodes value at the bound address. Values outside the
// type's range wrap two's-complement style; there is no overflow
// check.
func (v *IntView) SetValue(value int64) error {
	return writeUintRaw(v.mem, v.addr, uint64(value), v.t.ByteSize, v.t.cat.arch.ByteOrder)
}

// SetUint encodes value at the bound address, wrapping like SetValue.
func (v *IntView) SetUint(value uint64) error {
	return writeUintRaw(v.mem, v.addr, value, v.t.ByteSize, v.t.cat.arch.ByteOrder)
}

// A FloatView reads and writes an IEEE 754 value, single or double
// precision.
type FloatView struct {
	view
	t *FloatType
}

func (v *FloatView) Type() Type { return v.t }

func (v *FloatView) String() string { return viewString(v) }

func (v *FloatView) Value() (float64, error) {
	return readFloatRaw(v.mem, v.addr, v.t.ByteSize, v.t.cat.arch.ByteOrder)
}

func (v *FloatView) SetValue(value float64) error {
	return writeFloatRaw(v.mem, v.addr, value, v.t.ByteSize, v.t.cat.arch.ByteOrder)
}

// A StructView navigates a struct or union by field name.
type StructView struct {
	view
	t *StructType
}

func (v *StructView) Type() Type { return v.t }

func (v *StructView) String() string { return viewString(v) }

// FieldNames returns the flattened field names in declaration order.
func (v *StructView) FieldNames() []string { return v.t.FieldNames() }

// Field returns a view of the named field, bound at the field's
// offset from this view's address.
func (v *StructView) Field(name string) (View, error) {
	f, ok := v.t.fields[name]
	if !ok {
		return nil, &FieldNotFoundError{Type: v.t.String(), Field: name}
	}
	ft, err := v.t.cat.TypeForDesc(f.typ)
	if err != nil {
		return nil, err
	}
	return ft.NewView(v.mem, v.addr+uint64(f.offset)), nil
}

// An ArrayView navigates a fixed-length array by element index.
type ArrayView struct {
	view
	t *ArrayType
}

func (v *ArrayView) Type() Type { return v.t }

func (v *ArrayView) String() string { return viewString(v) }

// Len returns the declared element count.
func (v *ArrayView) Len() int64 { return v.t.Count }

// Index returns a view of element i. The index is not checked against
// the declared length: like the C it mirrors, indexing past the end
// addresses whatever is there, and only unmapped memory makes a later
// access fail.
func (v *ArrayView) Index(i int64) (View, error) {
	et, err := v.t.Elem()
	if err != nil {
		return nil, err
	}
	return et.NewView(v.mem, v.addr+uint64(i*et.Size())), nil
}

// CString decodes the array as a NUL-terminated string. The element
// type must be a 1-byte integer; without a terminator the whole array
// is the string.
func (v *ArrayView) CString() (string, error) {
	et, err := v.t.Elem()
	if err != nil {
		return "", err
	}
	if it, ok := et.(*IntType); !ok || it.ByteSize != 1 {
		return "", fmt.Errorf("cannot decode %s as a string", v.t)
	}
	data := make([]byte, v.t.Count)
	if _, err := v.mem.ReadMemory(data, v.addr); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data), nil
}

// A PtrView reads and writes a stored address and navigates through
// it.
type PtrView struct {
	view
	t *PtrType
}

func (v *PtrView) Type() Type { return v.t }

func (v *PtrView) String() string { return viewString(v) }

// Value returns the address stored at the bound address.
func (v *PtrView) Value() (uint64, error) {
	return readUintRaw(v.mem, v.addr, v.t.ByteSize, v.t.cat.arch.ByteOrder)
}

// SetValue stores an address at the bound address.
func (v *PtrView) SetValue(addr uint64) error {
	return writeUintRaw(v.mem, v.addr, addr, v.t.ByteSize, v.t.cat.arch.ByteOrder)
}

// Deref returns a view of the target type at the stored address. It
// is exactly Index(0).
func (v *PtrView) Deref() (View, error) {
	return v.Index(0)
}

// Index treats the pointer as the base of an array of the target
// type, returning a view of element i at stored address plus i times
// the target size. Like array indexing, it is unchecked.
func (v *PtrView) Index(i int64) (View, error) {
	tt, err := v.t.Target()
	if err != nil {
		return nil, err
	}
	base, err := v.Value()
	if err != nil {
		return nil, err
	}
	return tt.NewView(v.mem, base+uint64(i*tt.Size())), nil
}

// CString follows the pointer and decodes a NUL-terminated string of
// at most max bytes at the stored address. The target type must be a
// 1-byte integer. A missing terminator within max bytes is an error,
// since unlike an array the pointer puts no bound of its own on the
// string.
func (v *PtrView) CString(max int) (string, error) {
	tt, err := v.t.Target()
	if err != nil {
		return "", err
	}
	if it, ok := tt.(*IntType); !ok || it.ByteSize != 1 {
		return "", fmt.Errorf("cannot decode %s target as a string", v.t)
	}
	base, err := v.Value()
	if err != nil {
		return "", err
	}
	return readCString(v.mem, base, max)
}

// A VoidView exists so that navigation landing on void, usually
// through a void*, has somewhere to stop. It has no value accessors.
type VoidView struct {
	view
	t *VoidType
}

func (v *VoidView) Type() Type { return v.t }

func (v *VoidView) String() string { return viewString(v) }

// A FuncView marks a location holding code. It has no value
// accessors.
type FuncView struct {
	view
	t *FuncType
}

func (v *FuncView) Type() Type { return v.t }

func (v *FuncView) String() string { return viewString(v) }
