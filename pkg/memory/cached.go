package memory

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

const cachePageSize = 4096

// Cached wraps a ReadWriter with a page-granular LRU read cache. It is an
// explicit opt-in: by default every read goes straight to the backend, and
// callers working against a live target that mutates on its own should not
// use it, or should Purge between observations.
//
// Writes always go through to the backend first, then patch any cached
// pages so later reads stay coherent with writes made through this
// wrapper. Reads near the edge of a mapped range, where a full page is not
// readable, bypass the cache.
type Cached struct {
	mem   ReadWriter
	pages *lru.Cache
}

// NewCached returns mem wrapped with a cache of at most pages pages of
// 4KiB each.
func NewCached(mem ReadWriter, pages int) (*Cached, error) {
	if pages <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d pages", pages)
	}
	c, err := lru.New(pages)
	if err != nil {
		return nil, err
	}
	return &Cached{mem: mem, pages: c}, nil
}

// Purge drops every cached page.
func (c *Cached) Purge() {
	c.pages.Purge()
}

func (c *Cached) page(pageAddr uint64) ([]byte, error) {
	if v, ok := c.pages.Get(pageAddr); ok {
		return v.([]byte), nil
	}
	pg := make([]byte, cachePageSize)
	if _, err := c.mem.ReadMemory(pg, pageAddr); err != nil {
		return nil, err
	}
	c.pages.Add(pageAddr, pg)
	return pg, nil
}

// ReadMemory implements Reader. Reads are assembled from cached pages; if
// any page covering the request cannot be read in full the whole request
// falls back to an uncached read.
func (c *Cached) ReadMemory(buf []byte, addr uint64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(buf) {
		cur := addr + uint64(n)
		pageAddr := cur &^ (cachePageSize - 1)
		pg, err := c.page(pageAddr)
		if err != nil {
			return c.mem.ReadMemory(buf, addr)
		}
		n += copy(buf[n:], pg[cur-pageAddr:])
	}
	return n, nil
}

// WriteMemory implements ReadWriter, writing through to the backend and
// updating any pages already cached.
func (c *Cached) WriteMemory(addr uint64, data []byte) (int, error) {
	n, err := c.mem.WriteMemory(addr, data)
	if err != nil {
		return n, err
	}
	for written := 0; written < len(data); {
		cur := addr + uint64(written)
		pageAddr := cur &^ (cachePageSize - 1)
		if v, ok := c.pages.Get(pageAddr); ok {
			written += copy(v.([]byte)[cur-pageAddr:], data[written:])
		} else {
			next := pageAddr + cachePageSize
			written += int(next - cur)
		}
	}
	return n, nil
}
