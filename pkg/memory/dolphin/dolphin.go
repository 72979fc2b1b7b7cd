// Package dolphin implements a memory backend hooked into a running
// Dolphin emulator. Target addresses are the guest's: MEM1 lives at
// 0x80000000, MEM2 (Wii titles only) at 0x90000000, and accesses
// outside those windows fail without touching the emulator.
package dolphin

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-remora/remora/pkg/logflags"
	"github.com/go-remora/remora/pkg/memory"
)

const (
	mem1Start = 0x80000000
	mem1End   = 0x817fffff
	mem2Start = 0x90000000
	mem2End   = 0x93ffffff

	// Sizes of the /dev/shm mappings Dolphin backs guest RAM with. The
	// MEM1 arena is mapped one 32MiB block even though the console only
	// exposes 24MiB of it.
	mem1MapSize = 0x2000000
	mem2MapSize = 0x4000000

	attachRetryInterval = 10 * time.Millisecond
)

// ErrUnsupported is returned by Attach on platforms where hooking the
// emulator is not implemented.
var ErrUnsupported = errors.New("attaching to dolphin is not supported on this platform")

// ErrProcessNotFound is returned by Attach when no emulator process
// with emulated RAM mapped could be located.
var ErrProcessNotFound = errors.New("no dolphin-emu process with emulated memory found")

// Process is an attached emulator instance. It implements
// memory.ReadWriter over the guest address space.
type Process struct {
	pid  int
	mem1 uintptr // host address of the MEM1 mapping
	mem2 uintptr // host address of the MEM2 mapping, 0 for GameCube titles
}

// Attach makes a single attempt to locate a running emulator with
// emulated RAM mapped and hook into it.
func Attach() (*Process, error) {
	log := logflags.DolphinLogger()
	p, err := attach(log)
	if err != nil {
		return nil, err
	}
	log.Debugf("attached to dolphin-emu pid %d (MEM1 host %#x, MEM2 host %#x)", p.pid, p.mem1, p.mem2)
	return p, nil
}

// AttachWait calls Attach until it succeeds, sleeping 10ms between
// attempts. The emulator maps guest RAM only once a game is booted, so
// this is the call to use when starting before or alongside it.
func AttachWait() (*Process, error) {
	logged := false
	for {
		p, err := Attach()
		if err == nil {
			return p, nil
		}
		if errors.Is(err, ErrUnsupported) {
			return nil, err
		}
		if !logged {
			logflags.DolphinLogger().Debugf("emulator not attachable yet, retrying: %v", err)
			logged = true
		}
		time.Sleep(attachRetryInterval)
	}
}

// Pid returns the pid of the hooked emulator process.
func (p *Process) Pid() int {
	return p.pid
}

// hostAddr translates a guest span to the host address of its first
// byte. It fails unless the span lies entirely inside a single mapped
// RAM window.
func (p *Process) hostAddr(addr uint64, length int) (uintptr, bool) {
	switch {
	case addr >= mem1Start && addr <= mem1End:
		if uint64(length) > mem1End-addr+1 {
			return 0, false
		}
		return p.mem1 + uintptr(addr-mem1Start), true
	case addr >= mem2Start && addr <= mem2End:
		if p.mem2 == 0 || uint64(length) > mem2End-addr+1 {
			return 0, false
		}
		return p.mem2 + uintptr(addr-mem2Start), true
	}
	return 0, false
}

// ReadMemory implements memory.Reader.
func (p *Process) ReadMemory(buf []byte, addr uint64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	host, ok := p.hostAddr(addr, len(buf))
	if !ok {
		return 0, &memory.AddrError{Op: "read", Addr: addr, Len: len(buf)}
	}
	n, err := p.peek(host, buf)
	if err != nil {
		return n, fmt.Errorf("reading emulated memory at %#x: %v", addr, err)
	}
	if n != len(buf) {
		return n, fmt.Errorf("short read of emulated memory at %#x: %d of %d bytes", addr, n, len(buf))
	}
	return n, nil
}

// WriteMemory implements memory.ReadWriter.
func (p *Process) WriteMemory(addr uint64, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	host, ok := p.hostAddr(addr, len(data))
	if !ok {
		return 0, &memory.AddrError{Op: "write", Addr: addr, Len: len(data)}
	}
	n, err := p.poke(host, data)
	if err != nil {
		return n, fmt.Errorf("writing emulated memory at %#x: %v", addr, err)
	}
	if n != len(data) {
		return n, fmt.Errorf("short write of emulated memory at %#x: %d of %d bytes", addr, n, len(data))
	}
	return n, nil
}
