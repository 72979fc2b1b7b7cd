// Package config loads and saves workspace files. A workspace file
// names the declaration contexts to load, the target architecture and
// the memory backend to attach.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// DefaultMaxCStringLen bounds string reads through a pointer when the
// workspace file does not set max-cstring-len.
const DefaultMaxCStringLen = 256

// ImageMapping maps a RAM dump file at a base address.
type ImageMapping struct {
	// Path of the dump file.
	Path string `yaml:"path"`
	// Base is the address the file's first byte occupies.
	Base uint64 `yaml:"base"`
}

// Config defines all options available in a workspace file.
type Config struct {
	// Target pointer width in bytes, 4 or 8. Defaults to 4.
	PtrSize int `yaml:"ptr-size"`

	// Byte order of the target, "big" or "little". Defaults to "big".
	ByteOrder string `yaml:"byte-order"`

	// Declaration context files, loaded in order. Relative paths are
	// resolved against the workspace file's directory.
	Contexts []string `yaml:"contexts"`

	// RAM dump files mapped into the address space. When the list is
	// empty the workspace attaches to a running emulator instead.
	Images []ImageMapping `yaml:"images"`

	// CachePages puts a read cache of this many pages in front of the
	// backend. Zero disables caching.
	CachePages int `yaml:"cache-pages"`

	// MaxCStringLen is the maximum string length read through a
	// pointer.
	MaxCStringLen *int `yaml:"max-cstring-len,omitempty"`
}

// Default returns the configuration an empty workspace file means: a
// big-endian 32-bit target with no contexts and no images.
func Default() *Config {
	return &Config{PtrSize: 4, ByteOrder: "big"}
}

// LoadFile reads a workspace file. Missing options take their
// defaults; relative context and image paths are resolved against the
// file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding %s: %v", path, err)
	}
	if c.PtrSize == 0 {
		c.PtrSize = 4
	}
	if c.ByteOrder == "" {
		c.ByteOrder = "big"
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	dir := filepath.Dir(path)
	for i, ctx := range c.Contexts {
		if !filepath.IsAbs(ctx) {
			c.Contexts[i] = filepath.Join(dir, ctx)
		}
	}
	for i, img := range c.Images {
		if !filepath.IsAbs(img.Path) {
			c.Images[i].Path = filepath.Join(dir, img.Path)
		}
	}
	return c, nil
}

// Validate checks option values that have a fixed domain.
func (c *Config) Validate() error {
	if c.PtrSize != 4 && c.PtrSize != 8 {
		return fmt.Errorf("ptr-size must be 4 or 8, not %d", c.PtrSize)
	}
	if c.ByteOrder != "big" && c.ByteOrder != "little" {
		return fmt.Errorf("byte-order must be big or little, not %q", c.ByteOrder)
	}
	if c.CachePages < 0 {
		return fmt.Errorf("cache-pages must not be negative")
	}
	if c.MaxCStringLen != nil && *c.MaxCStringLen <= 0 {
		return fmt.Errorf("max-cstring-len must be positive")
	}
	for _, img := range c.Images {
		if img.Path == "" {
			return fmt.Errorf("image mapping without a path")
		}
	}
	return nil
}

// Save marshals the config to a workspace file.
func (c *Config) Save(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

// WriteDefault writes a commented template workspace file.
func WriteDefault(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create workspace file: %v", err)
	}
	defer f.Close()

	_, err = f.WriteString(
		`# Workspace file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Pointer width of the target in bytes.
# ptr-size: 4

# Byte order of the target, big or little.
# byte-order: big

# Declaration context files, loaded in order. Relative paths are
# resolved against this file's directory.
contexts:
  # - ctx/us.yml

# RAM dump files mapped at their base addresses. Leave the list empty
# to attach to a running emulator instead.
images:
  # - {path: mem1.raw, base: 0x80000000}

# Number of pages to cache in front of the backend. Caching trades
# coherence with a live target for fewer reads.
# cache-pages: 64

# Maximum string length read through a pointer.
# max-cstring-len: 256
`)
	return err
}
