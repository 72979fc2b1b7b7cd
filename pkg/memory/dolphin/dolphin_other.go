//go:build !linux
// +build !linux

package dolphin

import (
	"github.com/go-remora/remora/pkg/logflags"
)

// attach returns ErrUnsupported.
func attach(log logflags.Logger) (*Process, error) {
	return nil, ErrUnsupported
}

func (p *Process) peek(hostAddr uintptr, buf []byte) (int, error) {
	return 0, ErrUnsupported
}

func (p *Process) poke(hostAddr uintptr, data []byte) (int, error) {
	return 0, ErrUnsupported
}
