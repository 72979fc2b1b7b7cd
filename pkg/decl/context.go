package decl

import (
	"fmt"
	"io/ioutil"
	"sort"

	"gopkg.in/yaml.v2"
)

// A declaration context is the serialized output of the external C
// parser: named type layouts, typedefs and a symbol map, with all
// sizes and field offsets already computed. The format is YAML:
//
//	types:
//	  Vec3:
//	    kind: struct
//	    size: 12
//	    fields:
//	      - {name: x, type: f32, offset: 0}
//	      - {name: y, type: f32, offset: 4}
//	      - {name: z, type: f32, offset: 8}
//	  NPCEntry:
//	    kind: struct
//	    size: 0x14
//	    fields:
//	      - {name: pos, type: Vec3, offset: 0}
//	      - {name: flags, type: u32, offset: 0xc}
//	      - {name: next, type: {kind: ptr, to: NPCEntry}, offset: 0x10}
//	typedefs:
//	  NPCList: {kind: ptr, to: NPCEntry}
//	globals:
//	  gNPCWork: {type: NPCEntry, addr: 0x8050bc20}
//
// A type reference is a name or an inline shape. Referencing a name
// that no loaded context defines leaves an Incomplete placeholder,
// usable behind pointers only. Struct and union sizes are the
// parser's; array sizes are always element count times element size
// and are not stated in the context.

type contextSpec struct {
	Types    map[string]typeSpec   `yaml:"types"`
	Typedefs map[string]typeRef    `yaml:"typedefs"`
	Globals  map[string]globalSpec `yaml:"globals"`
}

type typeSpec struct {
	Kind   string      `yaml:"kind"`
	Size   int64       `yaml:"size"`
	Signed bool        `yaml:"signed"`
	Fields []fieldSpec `yaml:"fields"`
	Of     *typeRef    `yaml:"of"`
	To     *typeRef    `yaml:"to"`
	Count  int64       `yaml:"count"`
}

type fieldSpec struct {
	Name   string  `yaml:"name"`
	Type   typeRef `yaml:"type"`
	Offset int64   `yaml:"offset"`
}

type globalSpec struct {
	Type typeRef `yaml:"type"`
	Addr uint64  `yaml:"addr"`
}

// typeRef is either a type name or an inline shape.
type typeRef struct {
	Name  string
	Shape *typeSpec
}

func (r *typeRef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		r.Name = name
		return nil
	}
	var shape typeSpec
	if err := unmarshal(&shape); err != nil {
		return err
	}
	r.Shape = &shape
	return nil
}

// LoadFile loads the declaration context at path into the index.
func (idx *Index) LoadFile(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if err := idx.Load(data); err != nil {
		return fmt.Errorf("loading %s: %v", path, err)
	}
	return nil
}

// Load merges one declaration context into the index. Definitions may
// reference each other in any order, within a context and across
// contexts; a definition for a name an earlier load left Incomplete
// completes it.
func (idx *Index) Load(src []byte) error {
	var ctx contextSpec
	if err := yaml.UnmarshalStrict(src, &ctx); err != nil {
		return fmt.Errorf("parsing context: %v", err)
	}

	typeNames := sortedKeys(ctx.Types)
	typedefNames := make([]string, 0, len(ctx.Typedefs))
	for name := range ctx.Typedefs {
		typedefNames = append(typedefNames, name)
	}
	sort.Strings(typedefNames)

	// Intern every name this context defines before building any of
	// them, so definitions can reference each other freely.
	for _, name := range typeNames {
		if existing, ok := idx.types[name]; ok && existing.Kind != Incomplete {
			return fmt.Errorf("redefinition of type %s", name)
		}
		idx.refType(name)
	}
	for _, name := range typedefNames {
		if existing, ok := idx.types[name]; ok && existing.Kind != Incomplete {
			return fmt.Errorf("redefinition of type %s", name)
		}
		idx.refType(name)
	}

	for _, name := range typeNames {
		spec := ctx.Types[name]
		d, err := idx.buildType(&spec)
		if err != nil {
			return fmt.Errorf("type %s: %v", name, err)
		}
		if _, err := idx.DefineType(name, d); err != nil {
			return err
		}
	}
	for _, name := range typedefNames {
		ref := ctx.Typedefs[name]
		underlying, err := idx.buildRef(&ref)
		if err != nil {
			return fmt.Errorf("typedef %s: %v", name, err)
		}
		if _, err := idx.DefineType(name, &Desc{Kind: Alias, Elem: underlying}); err != nil {
			return err
		}
	}

	globalNames := make([]string, 0, len(ctx.Globals))
	for name := range ctx.Globals {
		globalNames = append(globalNames, name)
	}
	sort.Strings(globalNames)
	for _, name := range globalNames {
		spec := ctx.Globals[name]
		t, err := idx.buildRef(&spec.Type)
		if err != nil {
			return fmt.Errorf("global %s: %v", name, err)
		}
		if err := idx.DefineGlobal(name, Global{Type: t, Addr: spec.Addr}); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]typeSpec) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (idx *Index) buildRef(r *typeRef) (*Desc, error) {
	if r.Shape != nil {
		return idx.buildType(r.Shape)
	}
	if r.Name == "" {
		return nil, fmt.Errorf("empty type reference")
	}
	return idx.refType(r.Name), nil
}

func (idx *Index) buildType(spec *typeSpec) (*Desc, error) {
	switch spec.Kind {
	case "int":
		switch spec.Size {
		case 1, 2, 4, 8:
		default:
			return nil, fmt.Errorf("int size must be 1, 2, 4 or 8, got %d", spec.Size)
		}
		return &Desc{Kind: Int, Size: spec.Size, Signed: spec.Signed}, nil
	case "float":
		if spec.Size != 4 && spec.Size != 8 {
			return nil, fmt.Errorf("float size must be 4 or 8, got %d", spec.Size)
		}
		return &Desc{Kind: Float, Size: spec.Size}, nil
	case "void":
		return &Desc{Kind: Void, Size: 1}, nil
	case "struct", "union":
		if spec.Size <= 0 {
			return nil, fmt.Errorf("%s needs a positive size", spec.Kind)
		}
		kind := Struct
		if spec.Kind == "union" {
			kind = Union
		}
		d := &Desc{Kind: kind, Size: spec.Size}
		for i := range spec.Fields {
			f := &spec.Fields[i]
			ft, err := idx.buildRef(&f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s: %v", f.Name, err)
			}
			if f.Offset < 0 {
				return nil, fmt.Errorf("field %s: negative offset", f.Name)
			}
			d.Fields = append(d.Fields, Field{Name: f.Name, Offset: f.Offset, Type: ft})
		}
		return d, nil
	case "array":
		if spec.Of == nil {
			return nil, fmt.Errorf("array needs an element type")
		}
		elem, err := idx.buildRef(spec.Of)
		if err != nil {
			return nil, err
		}
		if spec.Count < 0 {
			return nil, fmt.Errorf("array count must not be negative, got %d", spec.Count)
		}
		return &Desc{Kind: Array, Elem: elem, Count: spec.Count}, nil
	case "ptr":
		target := idx.refType("void")
		if spec.To != nil {
			t, err := idx.buildRef(spec.To)
			if err != nil {
				return nil, err
			}
			target = t
		}
		return &Desc{Kind: Ptr, Elem: target}, nil
	case "func":
		return &Desc{Kind: Func}, nil
	case "":
		return nil, fmt.Errorf("type shape needs a kind")
	}
	return nil, fmt.Errorf("unknown type kind %q", spec.Kind)
}
