// Package overlay is the typed memory overlay core: it turns the
// structural descriptors of a declaration index into canonical Type
// nodes and binds them to addresses on a memory backend as Views,
// which decode, encode and navigate the bytes there. Nothing is
// copied out of the target: a view reads exactly what an operation
// needs, when it is asked.
package overlay

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-remora/remora/pkg/decl"
	"github.com/go-remora/remora/pkg/logflags"
)

// Catalog resolves type names, global variables and structural
// descriptors to canonical Types: any two lookups that land on the
// same structure get the same Type instance, so layout tables are
// computed once and identity comparisons are cheap. A catalog and the
// types it hands out are single-owner state; lookups mutate the cache
// and are not synchronized.
type Catalog struct {
	idx  *decl.Index
	arch Arch

	byDesc map[*decl.Desc]Type
	bySig  map[string]Type

	log logflags.Logger
}

// NewCatalog returns a catalog over the declarations in idx for a
// target with the given architecture.
func NewCatalog(idx *decl.Index, arch Arch) (*Catalog, error) {
	if err := arch.check(); err != nil {
		return nil, fmt.Errorf("invalid architecture: %v", err)
	}
	return &Catalog{
		idx:    idx,
		arch:   arch,
		byDesc: make(map[*decl.Desc]Type),
		bySig:  make(map[string]Type),
		log:    logflags.CatalogLogger(),
	}, nil
}

// Index returns the declaration index the catalog resolves through.
func (c *Catalog) Index() *decl.Index { return c.idx }

// Arch returns the architecture the catalog lays types out for.
func (c *Catalog) Arch() Arch { return c.arch }

// FindType returns the canonical Type for a declared type name.
func (c *Catalog) FindType(name string) (Type, error) {
	d, err := c.idx.LookupType(name)
	if err != nil {
		return nil, err
	}
	return c.TypeForDesc(d)
}

// VariableType returns the canonical Type a global variable was
// declared with.
func (c *Catalog) VariableType(name string) (Type, error) {
	g, err := c.idx.LookupGlobal(name)
	if err != nil {
		return nil, err
	}
	return c.TypeForDesc(g.Type)
}

// TypeForDesc returns the canonical Type for a structural descriptor,
// constructing and caching it on first resolution. Typedefs resolve
// to their underlying structure first, so every alias of a type
// shares its canonical node.
func (c *Catalog) TypeForDesc(d *decl.Desc) (Type, error) {
	if t, ok := c.byDesc[d]; ok {
		return t, nil
	}
	resolved := decl.Resolve(d)
	if resolved == nil {
		return nil, fmt.Errorf("unresolvable typedef %s", d.Name)
	}
	if resolved.Kind == decl.Incomplete {
		return nil, &decl.TypeNotFoundError{Name: resolved.Name}
	}

	var sb strings.Builder
	if err := signature(resolved, nil, &sb); err != nil {
		return nil, err
	}
	sig := sb.String()

	t, ok := c.bySig[sig]
	if !ok {
		var err error
		t, err = c.construct(resolved)
		if err != nil {
			return nil, err
		}
		c.bySig[sig] = t
		c.log.Debugf("type %s (%d bytes) for signature %s", t, t.Size(), sig)
	}
	c.byDesc[d] = t
	return t, nil
}

// construct builds the Type node for a resolved, complete descriptor.
// The descriptor's shape is inspected exactly once, here.
func (c *Catalog) construct(d *decl.Desc) (Type, error) {
	switch d.Kind {
	case decl.Int:
		return &IntType{
			CommonType: CommonType{ByteSize: d.Size, Name: d.Name, cat: c},
			Signed:     d.Signed,
		}, nil
	case decl.Float:
		return &FloatType{CommonType{ByteSize: d.Size, Name: d.Name, cat: c}}, nil
	case decl.Void:
		return &VoidType{CommonType{ByteSize: 1, Name: d.Name, cat: c}}, nil
	case decl.Struct, decl.Union:
		return c.newStructType(d)
	case decl.Array:
		size, err := c.sizeOfDesc(d)
		if err != nil {
			return nil, fmt.Errorf("array %s: %v", d, err)
		}
		return &ArrayType{
			CommonType: CommonType{ByteSize: size, Name: d.Name, cat: c},
			Count:      d.Count,
			elemDesc:   d.Elem,
		}, nil
	case decl.Ptr:
		return &PtrType{
			CommonType: CommonType{ByteSize: int64(c.arch.PtrSize), Name: d.Name, cat: c},
			targetDesc: d.Elem,
		}, nil
	case decl.Func:
		return &FuncType{CommonType{ByteSize: int64(c.arch.PtrSize), Name: d.Name, cat: c}}, nil
	}
	return nil, fmt.Errorf("cannot construct a type from a %v descriptor", d.Kind)
}

func (c *Catalog) newStructType(d *decl.Desc) (*StructType, error) {
	kind := "struct"
	if d.Kind == decl.Union {
		kind = "union"
	}
	t := &StructType{
		CommonType: CommonType{ByteSize: d.Size, Name: d.Name, cat: c},
		Kind:       kind,
		fields:     make(map[string]structField, len(d.Fields)),
	}
	if err := c.flattenFields(t, d, 0, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// flattenFields fills a struct's field table, merging anonymous
// aggregate members into the parent at their combined offsets.
func (c *Catalog) flattenFields(t *StructType, d *decl.Desc, base int64, depth int) error {
	if depth > 64 {
		return fmt.Errorf("%s: anonymous members nested too deeply", t)
	}
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Name == "" {
			sub := decl.Resolve(f.Type)
			if sub == nil || (sub.Kind != decl.Struct && sub.Kind != decl.Union) {
				return fmt.Errorf("%s: anonymous member at offset %d is not a struct or union", t, base+f.Offset)
			}
			if err := c.flattenFields(t, sub, base+f.Offset, depth+1); err != nil {
				return err
			}
			continue
		}
		if _, exists := t.fields[f.Name]; exists {
			return fmt.Errorf("%s: duplicate field %s", t, f.Name)
		}
		t.fieldNames = append(t.fieldNames, f.Name)
		t.fields[f.Name] = structField{offset: base + f.Offset, typ: f.Type}
	}
	return nil
}

// sizeOfDesc computes a descriptor's byte size without materializing
// a Type for it. Arrays are the only composite case: their size is
// element count times element size, and elements cannot recurse into
// the array without a pointer in between.
func (c *Catalog) sizeOfDesc(d *decl.Desc) (int64, error) {
	d = decl.Resolve(d)
	if d == nil {
		return 0, errors.New("unresolvable typedef")
	}
	switch d.Kind {
	case decl.Int, decl.Float, decl.Void, decl.Struct, decl.Union:
		return d.Size, nil
	case decl.Ptr, decl.Func:
		return int64(c.arch.PtrSize), nil
	case decl.Array:
		elem, err := c.sizeOfDesc(d.Elem)
		if err != nil {
			return 0, err
		}
		return d.Count * elem, nil
	case decl.Incomplete:
		return 0, &decl.TypeNotFoundError{Name: d.Name}
	}
	return 0, fmt.Errorf("no size for a %v descriptor", d.Kind)
}

// signature writes a canonical encoding of a descriptor's structure.
// Descriptors with equal signatures describe identical layouts, which
// makes the encoding the catalog's deduplication key. A reference
// back to an enclosing aggregate is encoded by its distance up the
// expansion stack, so two same-shaped recursive types sign alike no
// matter what they are named. Field and placeholder names are length
// prefixed so a name spelled with the encoding's own separators
// cannot imitate structure.
func signature(d *decl.Desc, stack []*decl.Desc, sb *strings.Builder) error {
	d = decl.Resolve(d)
	if d == nil {
		return errors.New("typedef cycle")
	}
	switch d.Kind {
	case decl.Int:
		sb.WriteByte('i')
		sb.WriteString(strconv.FormatInt(d.Size, 10))
		if d.Signed {
			sb.WriteByte('s')
		} else {
			sb.WriteByte('u')
		}
	case decl.Float:
		sb.WriteByte('f')
		sb.WriteString(strconv.FormatInt(d.Size, 10))
	case decl.Void:
		sb.WriteByte('v')
	case decl.Func:
		sb.WriteString("fn")
	case decl.Incomplete:
		sb.WriteString("inc")
		sb.WriteString(strconv.Itoa(len(d.Name)))
		sb.WriteByte(':')
		sb.WriteString(d.Name)
	case decl.Struct, decl.Union:
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] == d {
				sb.WriteByte('@')
				sb.WriteString(strconv.Itoa(len(stack) - i))
				return nil
			}
		}
		stack = append(stack, d)
		if d.Kind == decl.Union {
			sb.WriteByte('u')
		} else {
			sb.WriteByte('s')
		}
		sb.WriteString(strconv.FormatInt(d.Size, 10))
		sb.WriteByte('{')
		fields := make([]*decl.Field, len(d.Fields))
		for i := range d.Fields {
			fields[i] = &d.Fields[i]
		}
		sort.Slice(fields, func(i, j int) bool {
			if fields[i].Offset != fields[j].Offset {
				return fields[i].Offset < fields[j].Offset
			}
			return fields[i].Name < fields[j].Name
		})
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(strconv.Itoa(len(f.Name)))
			sb.WriteByte(':')
			sb.WriteString(f.Name)
			sb.WriteByte('@')
			sb.WriteString(strconv.FormatInt(f.Offset, 10))
			sb.WriteByte(':')
			if err := signature(f.Type, stack, sb); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	case decl.Array:
		sb.WriteByte('a')
		sb.WriteString(strconv.FormatInt(d.Count, 10))
		sb.WriteByte(':')
		return signature(d.Elem, stack, sb)
	case decl.Ptr:
		sb.WriteByte('p')
		return signature(d.Elem, stack, sb)
	default:
		return fmt.Errorf("cannot encode a %v descriptor", d.Kind)
	}
	return nil
}
