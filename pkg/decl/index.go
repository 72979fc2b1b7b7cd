package decl

import (
	"fmt"
	"sort"

	"github.com/derekparker/trie"
)

// Index is the lookup service over loaded declaration contexts. Like
// the catalog built on top of it, an Index is single-owner state:
// loads and lookups are not synchronized.
type Index struct {
	types   map[string]*Desc
	globals map[string]Global

	typeNames   *trie.Trie
	globalNames *trie.Trie
}

// NewIndex returns an index preloaded with the primitives decomp
// contexts conventionally assume: the sized integers u8 through s64,
// f32/f64, void, and the bool8/char/uchar aliases.
func NewIndex() *Index {
	idx := &Index{
		types:       make(map[string]*Desc),
		globals:     make(map[string]Global),
		typeNames:   trie.New(),
		globalNames: trie.New(),
	}
	for _, d := range builtins() {
		idx.types[d.Name] = d
		idx.typeNames.Add(d.Name, nil)
	}
	return idx
}

func builtins() []*Desc {
	ds := []*Desc{
		{Kind: Int, Name: "u8", Size: 1},
		{Kind: Int, Name: "s8", Size: 1, Signed: true},
		{Kind: Int, Name: "u16", Size: 2},
		{Kind: Int, Name: "s16", Size: 2, Signed: true},
		{Kind: Int, Name: "u32", Size: 4},
		{Kind: Int, Name: "s32", Size: 4, Signed: true},
		{Kind: Int, Name: "u64", Size: 8},
		{Kind: Int, Name: "s64", Size: 8, Signed: true},
		{Kind: Float, Name: "f32", Size: 4},
		{Kind: Float, Name: "f64", Size: 8},
		{Kind: Void, Name: "void", Size: 1},
	}
	byName := make(map[string]*Desc, len(ds))
	for _, d := range ds {
		byName[d.Name] = d
	}
	for _, a := range []struct{ name, of string }{
		{"bool8", "u8"},
		{"char", "s8"},
		{"uchar", "u8"},
	} {
		ds = append(ds, &Desc{Kind: Alias, Name: a.name, Elem: byName[a.of]})
	}
	return ds
}

// LookupType returns the descriptor declared under name. Names that
// were referenced but never defined resolve to their Incomplete
// placeholder.
func (idx *Index) LookupType(name string) (*Desc, error) {
	d, ok := idx.types[name]
	if !ok {
		return nil, &TypeNotFoundError{Name: name}
	}
	return d, nil
}

// LookupGlobal returns the declaration for a global variable.
func (idx *Index) LookupGlobal(name string) (Global, error) {
	g, ok := idx.globals[name]
	if !ok {
		return Global{}, &TypeNotFoundError{Name: name}
	}
	return g, nil
}

// DefineType records a named type. Completing a name earlier contexts
// only referenced fills its Incomplete placeholder in place, keeping
// references taken through it valid; redefining a completed name is
// an error, and so is a definition whose own element chain leads back
// to the name being defined. The returned descriptor is the canonical
// one for name.
func (idx *Index) DefineType(name string, d *Desc) (*Desc, error) {
	if name == "" {
		return nil, fmt.Errorf("type definition with empty name")
	}
	existing, ok := idx.types[name]
	if !ok {
		d.Name = name
		idx.types[name] = d
		idx.typeNames.Add(name, nil)
		return d, nil
	}
	if existing.Kind != Incomplete {
		return nil, fmt.Errorf("redefinition of type %s", name)
	}
	if reachesThroughElems(d, existing) {
		return nil, fmt.Errorf("type %s is defined in terms of itself", name)
	}
	*existing = *d
	existing.Name = name
	idx.typeNames.Add(name, nil)
	return existing, nil
}

// reachesThroughElems reports whether target is reachable from d along
// typedef, pointer and array element edges alone. Aggregate members do
// not count: a struct may refer back to itself through its fields, but
// a type whose element chain loops has no layout at all, and walking
// it would never terminate.
func reachesThroughElems(d, target *Desc) bool {
	seen := make(map[*Desc]bool)
	for d != nil && !seen[d] {
		if d == target {
			return true
		}
		seen[d] = true
		switch d.Kind {
		case Alias, Ptr, Array:
			d = d.Elem
		default:
			return false
		}
	}
	return false
}

// DefineGlobal records a global variable declaration.
func (idx *Index) DefineGlobal(name string, g Global) error {
	if name == "" {
		return fmt.Errorf("global definition with empty name")
	}
	if _, ok := idx.globals[name]; ok {
		return fmt.Errorf("redefinition of global %s", name)
	}
	idx.globals[name] = g
	idx.globalNames.Add(name, nil)
	return nil
}

// refType returns the descriptor for a name, creating an Incomplete
// placeholder for names that have no definition yet. Placeholders are
// resolvable by LookupType but stay out of the name listings until a
// definition lands.
func (idx *Index) refType(name string) *Desc {
	if d, ok := idx.types[name]; ok {
		return d
	}
	d := &Desc{Kind: Incomplete, Name: name}
	idx.types[name] = d
	return d
}

// TypeNames returns every defined type name starting with prefix,
// sorted. The empty prefix returns all of them. Names that were only
// ever referenced are not listed.
func (idx *Index) TypeNames(prefix string) []string {
	return prefixSearch(idx.typeNames, prefix)
}

// GlobalNames returns every known global name starting with prefix,
// sorted.
func (idx *Index) GlobalNames(prefix string) []string {
	return prefixSearch(idx.globalNames, prefix)
}

func prefixSearch(t *trie.Trie, prefix string) []string {
	names := t.PrefixSearch(prefix)
	sort.Strings(names)
	return names
}

// Resolve follows typedef chains down to the underlying descriptor. A
// typedef cycle, which Load rejects but a hand-built descriptor chain
// can still express, resolves to nil.
func Resolve(d *Desc) *Desc {
	for steps := 0; d != nil && d.Kind == Alias; steps++ {
		if steps > 100 {
			return nil
		}
		d = d.Elem
	}
	return d
}
