// Package workspace assembles a typed overlay from a workspace file:
// declaration contexts into an index, a memory backend from RAM dumps
// or a running emulator, and the catalog and system over them.
package workspace

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-remora/remora/pkg/config"
	"github.com/go-remora/remora/pkg/decl"
	"github.com/go-remora/remora/pkg/logflags"
	"github.com/go-remora/remora/pkg/memory"
	"github.com/go-remora/remora/pkg/memory/dolphin"
	"github.com/go-remora/remora/pkg/overlay"
)

// ErrNotFileBacked is returned by Save on a workspace attached to a
// live emulator.
var ErrNotFileBacked = errors.New("workspace is not backed by image files")

// A Workspace is an opened overlay: the loaded index, the composed
// system and the backend underneath it.
type Workspace struct {
	Config *config.Config
	Index  *decl.Index
	System *overlay.System

	img *memory.Image
	dol *dolphin.Process

	maxCStringLen int
	log           logflags.Logger
}

// Open builds a workspace from a loaded config. With image mappings
// configured the backend is file memory; otherwise Open attaches to a
// running emulator, waiting for one to come up.
func Open(cfg *config.Config) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Workspace{
		Config:        cfg,
		maxCStringLen: config.DefaultMaxCStringLen,
		log:           logflags.WorkspaceLogger(),
	}
	if cfg.MaxCStringLen != nil {
		w.maxCStringLen = *cfg.MaxCStringLen
	}

	w.Index = decl.NewIndex()
	for _, path := range cfg.Contexts {
		if err := w.Index.LoadFile(path); err != nil {
			return nil, err
		}
	}
	w.log.Debugf("loaded %d contexts", len(cfg.Contexts))

	var mem memory.ReadWriter
	if len(cfg.Images) > 0 {
		img, err := memory.NewImage()
		if err != nil {
			return nil, err
		}
		for _, m := range cfg.Images {
			if err := img.AddFile(m.Path, m.Base); err != nil {
				return nil, err
			}
		}
		w.img = img
		mem = img
	} else {
		dol, err := dolphin.AttachWait()
		if err != nil {
			return nil, err
		}
		w.dol = dol
		w.log.Debugf("attached to emulator pid %d", dol.Pid())
		mem = dol
	}
	if cfg.CachePages > 0 {
		cached, err := memory.NewCached(mem, cfg.CachePages)
		if err != nil {
			return nil, err
		}
		mem = cached
	}

	arch := overlay.Arch{PtrSize: cfg.PtrSize}
	switch cfg.ByteOrder {
	case "big":
		arch.ByteOrder = binary.BigEndian
	case "little":
		arch.ByteOrder = binary.LittleEndian
	default:
		return nil, fmt.Errorf("byte-order must be big or little, not %q", cfg.ByteOrder)
	}

	cat, err := overlay.NewCatalog(w.Index, arch)
	if err != nil {
		return nil, err
	}
	w.System = overlay.NewSystem(mem, cat)
	return w, nil
}

// OpenFile loads a workspace file and opens it.
func OpenFile(path string) (*Workspace, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(cfg)
}

// Global returns a view of a declared global variable.
func (w *Workspace) Global(name string) (overlay.View, error) {
	return w.System.Global(name)
}

// View binds a named type at an address.
func (w *Workspace) View(typeName string, addr uint64) (overlay.View, error) {
	return w.System.View(typeName, addr)
}

// CString decodes a NUL-terminated string from a view of a char array
// or char pointer. Pointer reads are bounded by the workspace's
// max-cstring-len.
func (w *Workspace) CString(v overlay.View) (string, error) {
	switch v := v.(type) {
	case *overlay.ArrayView:
		return v.CString()
	case *overlay.PtrView:
		return v.CString(w.maxCStringLen)
	}
	return "", fmt.Errorf("%s does not hold string data", v.Type())
}

// Save writes modified image files back to disk. A workspace attached
// to a live emulator has nothing to save.
func (w *Workspace) Save() error {
	if w.img == nil {
		return ErrNotFileBacked
	}
	return w.img.Save()
}

// Emulator returns the attached emulator process, or nil for a file
// backed workspace.
func (w *Workspace) Emulator() *dolphin.Process {
	return w.dol
}
