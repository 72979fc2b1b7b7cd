package overlay

import (
	"strconv"

	"github.com/go-remora/remora/pkg/decl"
	"github.com/go-remora/remora/pkg/memory"
)

// A Type conventionally represents a pointer to any of the specific
// type structures (IntType, StructType, etc.). Types are created by a
// Catalog, one canonical instance per structural layout, and live for
// the catalog's lifetime.
type Type interface {
	Common() *CommonType
	String() string
	Size() int64

	// NewView binds the type to an address on a backend. Binding
	// reads no memory.
	NewView(mem memory.ReadWriter, addr uint64) View
}

// A CommonType holds fields common to all types.
type CommonType struct {
	ByteSize int64  // size of a value of this type, in bytes
	Name     string // declared name, empty for inline shapes
	cat      *Catalog
}

func (c *CommonType) Common() *CommonType { return c }

func (c *CommonType) Size() int64 { return c.ByteSize }

// An IntType represents a fixed-width two's-complement integer type.
type IntType struct {
	CommonType
	Signed bool
}

func (t *IntType) String() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Signed {
		return "s" + strconv.FormatInt(t.ByteSize*8, 10)
	}
	return "u" + strconv.FormatInt(t.ByteSize*8, 10)
}

func (t *IntType) NewView(mem memory.ReadWriter, addr uint64) View {
	return &IntView{view: view{mem: mem, addr: addr}, t: t}
}

// A FloatType represents an IEEE 754 floating point type, single or
// double precision.
type FloatType struct {
	CommonType
}

func (t *FloatType) String() string {
	if t.Name != "" {
		return t.Name
	}
	return "f" + strconv.FormatInt(t.ByteSize*8, 10)
}

func (t *FloatType) NewView(mem memory.ReadWriter, addr uint64) View {
	return &FloatView{view: view{mem: mem, addr: addr}, t: t}
}

// A VoidType represents the C void type. It has no values; its size
// is a 1-byte sentinel so pointer arithmetic over void* behaves like
// byte arithmetic.
type VoidType struct {
	CommonType
}

func (t *VoidType) String() string { return "void" }

func (t *VoidType) NewView(mem memory.ReadWriter, addr uint64) View {
	return &VoidView{view: view{mem: mem, addr: addr}, t: t}
}

// A StructType represents a struct or union type with its flattened
// field table: anonymous aggregate members contribute their fields at
// their combined offsets.
type StructType struct {
	CommonType
	Kind string // "struct" or "union"

	fieldNames []string
	fields     map[string]structField
}

type structField struct {
	offset int64
	typ    *decl.Desc
}

func (t *StructType) String() string {
	if t.Name != "" {
		return t.Kind + " " + t.Name
	}
	s := t.Kind + " {"
	for i, name := range t.fieldNames {
		if i > 0 {
			s += "; "
		}
		f := t.fields[name]
		s += name + " " + f.typ.String() + "@" + strconv.FormatInt(f.offset, 10)
	}
	return s + "}"
}

// FieldNames returns the flattened field names in declaration order.
func (t *StructType) FieldNames() []string {
	names := make([]string, len(t.fieldNames))
	copy(names, t.fieldNames)
	return names
}

func (t *StructType) NewView(mem memory.ReadWriter, addr uint64) View {
	return &StructView{view: view{mem: mem, addr: addr}, t: t}
}

// An ArrayType represents a fixed-length array type.
type ArrayType struct {
	CommonType
	Count int64

	elemDesc *decl.Desc
	elem     Type
}

func (t *ArrayType) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.elemDesc.String() + "[" + strconv.FormatInt(t.Count, 10) + "]"
}

// Elem returns the element type, resolved through the catalog on
// first use.
func (t *ArrayType) Elem() (Type, error) {
	if t.elem == nil {
		et, err := t.cat.TypeForDesc(t.elemDesc)
		if err != nil {
			return nil, err
		}
		t.elem = et
	}
	return t.elem, nil
}

func (t *ArrayType) NewView(mem memory.ReadWriter, addr uint64) View {
	return &ArrayView{view: view{mem: mem, addr: addr}, t: t}
}

// A PtrType represents a pointer type. Its width is the architecture
// pointer size; the target type is resolved through the catalog on
// first dereference, which is what lets self-referential declarations
// construct without recursing forever.
type PtrType struct {
	CommonType

	targetDesc *decl.Desc
	target     Type
}

func (t *PtrType) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.targetDesc.String() + "*"
}

// Target returns the pointed-to type, resolved through the catalog on
// first use.
func (t *PtrType) Target() (Type, error) {
	if t.target == nil {
		tt, err := t.cat.TypeForDesc(t.targetDesc)
		if err != nil {
			return nil, err
		}
		t.target = tt
	}
	return t.target, nil
}

func (t *PtrType) NewView(mem memory.ReadWriter, addr uint64) View {
	return &PtrView{view: view{mem: mem, addr: addr}, t: t}
}

// A FuncType represents a function type. It is opaque: code is not
// data this library can navigate, but function pointers still need a
// target type to resolve to.
type FuncType struct {
	CommonType
}

func (t *FuncType) String() string {
	if t.Name != "" {
		return t.Name
	}
	return "func"
}

func (t *FuncType) NewView(mem memory.ReadWriter, addr uint64) View {
	return &FuncView{view: view{mem: mem, addr: addr}, t: t}
}
