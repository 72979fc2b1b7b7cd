package overlay

import (
	"github.com/go-remora/remora/pkg/memory"
)

// System pairs a memory backend with a type catalog so navigation
// code does not thread both through every call.
type System struct {
	Mem memory.ReadWriter
	Cat *Catalog
}

// NewSystem returns a system over the given backend and catalog.
func NewSystem(mem memory.ReadWriter, cat *Catalog) *System {
	return &System{Mem: mem, Cat: cat}
}

// View returns a view of the named type at addr.
func (s *System) View(typeName string, addr uint64) (View, error) {
	t, err := s.Cat.FindType(typeName)
	if err != nil {
		return nil, err
	}
	return t.NewView(s.Mem, addr), nil
}

// Global returns a view of a global variable at the address its
// declaration records.
func (s *System) Global(name string) (View, error) {
	g, err := s.Cat.idx.LookupGlobal(name)
	if err != nil {
		return nil, err
	}
	t, err := s.Cat.TypeForDesc(g.Type)
	if err != nil {
		return nil, err
	}
	return t.NewView(s.Mem, g.Addr), nil
}
