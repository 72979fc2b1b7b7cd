package memory

import (
	"fmt"
	"io/ioutil"

	"github.com/go-remora/remora/pkg/logflags"
)

// A FileMapping names a file whose contents should be mapped, whole, as a
// contiguous range starting at Base in the target address space.
type FileMapping struct {
	Path string
	Base uint64
}

// imageFile is one loaded range of an Image.
type imageFile struct {
	path string
	base uint64
	data []byte
}

// contains reports whether the full span [addr, addr+length) falls inside
// this range.
func (f *imageFile) contains(addr uint64, length int) bool {
	if addr < f.base {
		return false
	}
	off := addr - f.base
	if off > uint64(len(f.data)) {
		return false
	}
	return uint64(length) <= uint64(len(f.data))-off
}

// An Image is a target address space backed by one or more files loaded
// in memory, typically RAM dumps taken at known base addresses. Reads and
// writes are served from the in-memory copy; Save writes every range back
// to its origin file.
//
// A request that straddles two ranges, or touches no range, fails with
// *AddrError even if parts of it are mapped.
type Image struct {
	files []*imageFile
	log   logflags.Logger
}

// NewImage loads every mapping and returns the assembled image.
func NewImage(mappings ...FileMapping) (*Image, error) {
	img := &Image{log: logflags.ImageLogger()}
	for _, m := range mappings {
		if err := img.AddFile(m.Path, m.Base); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// AddFile loads the file at path and maps its contents at base.
func (img *Image) AddFile(path string, base uint64) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if err := img.add(&imageFile{path: path, base: base, data: data}); err != nil {
		return err
	}
	img.log.Debugf("loaded %s: %d bytes at %#x", path, len(data), base)
	return nil
}

// AddBytes maps data at base without reading a file. If path is empty the
// range is skipped by Save.
func (img *Image) AddBytes(path string, base uint64, data []byte) error {
	return img.add(&imageFile{path: path, base: base, data: data})
}

func (img *Image) add(f *imageFile) error {
	for _, other := range img.files {
		if f.base < other.base+uint64(len(other.data)) && other.base < f.base+uint64(len(f.data)) {
			return fmt.Errorf("range at %#x (%d bytes) overlaps range at %#x (%d bytes)", f.base, len(f.data), other.base, len(other.data))
		}
	}
	img.files = append(img.files, f)
	return nil
}

// ReadMemory implements Reader.
func (img *Image) ReadMemory(buf []byte, addr uint64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	for _, f := range img.files {
		if f.contains(addr, len(buf)) {
			copy(buf, f.data[addr-f.base:])
			return len(buf), nil
		}
	}
	return 0, &AddrError{Op: "read", Addr: addr, Len: len(buf)}
}

// WriteMemory implements ReadWriter. The write only changes the in-memory
// copy; Save persists it.
func (img *Image) WriteMemory(addr uint64, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	for _, f := range img.files {
		if f.contains(addr, len(data)) {
			copy(f.data[addr-f.base:], data)
			return len(data), nil
		}
	}
	return 0, &AddrError{Op: "write", Addr: addr, Len: len(data)}
}

// Save writes the current bytes of every file-origin range back to its
// path, overwriting the file. There is no partial or atomic write
// guarantee; the last Save wins. Ranges added with AddBytes and an empty
// path are skipped.
func (img *Image) Save() error {
	for _, f := range img.files {
		if f.path == "" {
			continue
		}
		if err := ioutil.WriteFile(f.path, f.data, 0644); err != nil {
			return err
		}
		img.log.Debugf("saved %s: %d bytes", f.path, len(f.data))
	}
	return nil
}
