// Package decl holds the structural type descriptors produced by an
// external declaration parser and the index that serves name lookups
// over them. Parsing C source, computing alignment, padding and field
// offsets is the parser's job; this package only records its results
// and answers questions about them.
package decl

import "fmt"

// Kind discriminates the shape of a descriptor.
type Kind int

const (
	Invalid Kind = iota
	Int
	Float
	Void
	Struct
	Union
	Array
	Ptr
	Func
	// Alias is a typedef; Elem holds the aliased descriptor.
	Alias
	// Incomplete is a named type that was referenced but never
	// defined, like a forward-declared struct. It can stand behind a
	// pointer but has no size or layout of its own.
	Incomplete
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Void:
		return "void"
	case Struct:
		return "struct"
	case Union:
		return "union"
	case Array:
		return "array"
	case Ptr:
		return "ptr"
	case Func:
		return "func"
	case Alias:
		return "alias"
	case Incomplete:
		return "incomplete"
	}
	return "invalid"
}

// Desc is the structural descriptor of one type. Descriptors are
// immutable once their declaration context has loaded; an Incomplete
// descriptor is completed in place when a later context defines it,
// so references taken while it was incomplete stay valid.
type Desc struct {
	Kind Kind
	// Name is the declared name, empty for inline shapes.
	Name string
	// Size is the byte size computed by the parser. Pointer and
	// function descriptors leave it zero; their width belongs to the
	// architecture, not the declaration.
	Size   int64
	Signed bool // integers only
	// Fields of a struct or union, in declaration order.
	Fields []Field
	// Elem is the array element, pointer target or aliased descriptor.
	Elem *Desc
	// Count is the array length.
	Count int64
}

func (d *Desc) String() string {
	if d.Name != "" {
		return d.Name
	}
	switch d.Kind {
	case Array:
		return fmt.Sprintf("%s[%d]", d.Elem, d.Count)
	case Ptr:
		return d.Elem.String() + "*"
	}
	return d.Kind.String()
}

// Field is one member of a struct or union. An empty name marks an
// anonymous aggregate member whose own fields are reachable at Offset.
type Field struct {
	Name   string
	Offset int64
	Type   *Desc
}

// Global is a global variable declaration: its type and the address
// the context's symbol map records for it.
type Global struct {
	Type *Desc
	Addr uint64
}

// TypeNotFoundError is returned when a type or global variable name
// has no declaration in the loaded contexts, or when a type that was
// only ever forward-declared is used directly.
type TypeNotFoundError struct {
	Name string
}

func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("type %s not found", e.Name)
}
