//go:build linux
// +build linux

package dolphin

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sys "golang.org/x/sys/unix"

	"github.com/go-remora/remora/pkg/logflags"
)

var errNoEmulatedRAM = errors.New("process has no emulated RAM mapped")

// attach scans /proc for a dolphin-emu process whose emulated RAM is
// already mapped. A freshly started emulator shows up in the scan
// before it maps guest RAM, in which case attach keeps looking and
// eventually reports ErrProcessNotFound so the caller can retry.
func attach(log logflags.Logger) (*Process, error) {
	des, err := ioutil.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("reading /proc: %v", err)
	}
	for _, de := range des {
		pid, err := strconv.Atoi(de.Name())
		if err != nil {
			continue
		}
		comm, err := ioutil.ReadFile(filepath.Join("/proc", de.Name(), "comm"))
		if err != nil {
			// probably we just don't have permissions
			continue
		}
		if !strings.HasPrefix(string(comm), "dolphin-emu") {
			continue
		}
		log.Debugf("candidate dolphin-emu process %d", pid)
		f, err := os.Open(filepath.Join("/proc", de.Name(), "maps"))
		if err != nil {
			log.Debugf("pid %d: %v", pid, err)
			continue
		}
		mem1, mem2, err := findEmulatedRAM(f)
		f.Close()
		if err != nil {
			log.Debugf("pid %d: %v", pid, err)
			continue
		}
		return &Process{pid: pid, mem1: mem1, mem2: mem2}, nil
	}
	return nil, ErrProcessNotFound
}

// findEmulatedRAM scans a /proc/pid/maps listing for the /dev/shm
// mappings Dolphin backs guest RAM with, recognized by their size: one
// 32MiB mapping for MEM1 and, when a Wii title is running, one 64MiB
// mapping for MEM2. The fastmem arena mirrors these mappings at
// several host addresses; the first of each size is the one used.
func findEmulatedRAM(r io.Reader) (mem1, mem2 uintptr, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "/dev/shm/dolphin") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 || !strings.HasPrefix(fields[1], "rw") {
			continue
		}
		var start, end uint64
		if _, err := fmt.Sscanf(fields[0], "%x-%x", &start, &end); err != nil {
			continue
		}
		switch end - start {
		case mem1MapSize:
			if mem1 == 0 {
				mem1 = uintptr(start)
			}
		case mem2MapSize:
			if mem2 == 0 {
				mem2 = uintptr(start)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, err
	}
	if mem1 == 0 {
		return 0, 0, errNoEmulatedRAM
	}
	return mem1, mem2, nil
}

// peek calls process_vm_readv
func (p *Process) peek(hostAddr uintptr, buf []byte) (int, error) {
	localIov := []sys.Iovec{{Base: &buf[0]}}
	localIov[0].SetLen(len(buf))
	remoteIov := []sys.RemoteIovec{{Base: hostAddr, Len: len(buf)}}
	return sys.ProcessVMReadv(p.pid, localIov, remoteIov, 0)
}

// poke calls process_vm_writev
func (p *Process) poke(hostAddr uintptr, data []byte) (int, error) {
	localIov := []sys.Iovec{{Base: &data[0]}}
	localIov[0].SetLen(len(data))
	remoteIov := []sys.RemoteIovec{{Base: hostAddr, Len: len(data)}}
	return sys.ProcessVMWritev(p.pid, localIov, remoteIov, 0)
}
