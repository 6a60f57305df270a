// Package proxy forwards a narrow set of Linux syscalls from the guest
// directly to the host, the way a proxy kernel runs a statically linked
// guest binary without ever modeling a real kernel: the guest's a7/a0-a6
// RISC-V Linux calling convention is read straight off the hart's integer
// registers, buffers are resolved through the host-memory map, and the
// host's own golang.org/x/sys/unix call services the request.
package proxy

import (
	"rvsim/internal/riscv/cpu"
	"rvsim/internal/riscv/elfload"
	"rvsim/internal/riscv/mmu"

	"golang.org/x/sys/unix"
)

// RISC-V Linux generic syscall numbers the guest programs this simulator
// targets actually issue.
const (
	sysRead         = 63
	sysWrite        = 64
	sysClose        = 57
	sysLseek        = 62
	sysFstat        = 80
	sysOpenat       = 56
	sysExit         = 93
	sysExitGroup    = 94
	sysSetTidAddr   = 96
	sysBrk          = 214
	sysGetTid       = 178
	sysUname        = 160
	sysGetRandom    = 278
	sysRtSigaction  = 134
	sysRtSigprocmask = 135
	sysWritev       = 66
)

// ExitSignal is returned by Dispatch when the guest calls exit or
// exit_group; the run loop that drives Step treats it as the normal
// termination condition rather than a fault.
type ExitSignal struct {
	Code int
}

func (e *ExitSignal) Error() string { return "guest exited" }

// Proxy tracks the host-side resources a guest's syscalls reference
// (currently just the brk heap pointer, since file descriptors are
// forwarded to the host's own table 1:1 with no translation needed for a
// single statically linked guest).
type Proxy struct {
	HostMap *mmu.HostMap
	PMA     *mmu.PMATable
	brk     uint64
	heapTop uint64
}

// New creates a proxy whose brk heap starts immediately after the loaded
// image and can grow up to heapLimit.
func New(hm *mmu.HostMap, pma *mmu.PMATable, img *elfload.Image, heapLimit uint64) *Proxy {
	return &Proxy{HostMap: hm, PMA: pma, brk: img.HiBound, heapTop: heapLimit}
}

// Dispatch services one ECALL: it reads a7 as the syscall number and
// a0-a3 as arguments (no forwarded syscall uses more), performs the host-side operation, and writes the
// Linux syscall-convention result (or -errno) back into a0. A non-nil
// *ExitSignal return means the guest process has terminated.
func (p *Proxy) Dispatch(c *cpu.CPU) *ExitSignal {
	nr := c.ReadReg(17)
	a0, a1, a2, a3 := c.ReadReg(10), c.ReadReg(11), c.ReadReg(12), c.ReadReg(13)

	switch nr {
	case sysExit, sysExitGroup:
		return &ExitSignal{Code: int(int32(a0))}

	case sysRead:
		buf, ok := p.resolve(a1, a2)
		if !ok {
			c.WriteReg(10, errnoRet(unix.EFAULT))
			return nil
		}
		n, err := unix.Read(int(a0), buf)
		c.WriteReg(10, syscallRet(n, err))

	case sysWrite:
		buf, ok := p.resolve(a1, a2)
		if !ok {
			c.WriteReg(10, errnoRet(unix.EFAULT))
			return nil
		}
		n, err := unix.Write(int(a0), buf)
		c.WriteReg(10, syscallRet(n, err))

	case sysWritev:
		n, err := p.writev(int32(a0), a1, a2)
		c.WriteReg(10, syscallRet(n, err))

	case sysClose:
		err := unix.Close(int(a0))
		c.WriteReg(10, syscallRet(0, err))

	case sysLseek:
		off, err := unix.Seek(int(a0), int64(a1), int(a2))
		c.WriteReg(10, syscallRet(int(off), err))

	case sysOpenat:
		path, ok := p.readCString(a1, 4096)
		if !ok {
			c.WriteReg(10, errnoRet(unix.EFAULT))
			return nil
		}
		fd, err := unix.Openat(int(int32(a0)), path, int(a2), uint32(a3))
		c.WriteReg(10, syscallRet(fd, err))

	case sysFstat:
		c.WriteReg(10, p.fstat(int(a0), a1))

	case sysBrk:
		c.WriteReg(10, p.sysBrk(a0))

	case sysGetTid:
		c.WriteReg(10, 1)

	case sysSetTidAddr:
		c.WriteReg(10, 1)

	case sysUname:
		c.WriteReg(10, p.uname(a0))

	case sysGetRandom:
		buf, ok := p.resolve(a0, a1)
		if ok {
			for i := range buf {
				buf[i] = byte(i*2654435761 + int(a2))
			}
		}
		c.WriteReg(10, uint64(len(buf)))

	case sysRtSigaction, sysRtSigprocmask:
		c.WriteReg(10, 0) // single-threaded guest: accept and ignore

	default:
		c.WriteReg(10, errnoRet(unix.ENOSYS))
	}
	return nil
}

// resolve turns a guest pointer/length pair into a host byte slice bounded
// by the underlying host-map region, so a guest buffer that straddles an
// unmapped page is rejected rather than read out of bounds.
func (p *Proxy) resolve(va, length uint64) ([]byte, bool) {
	ref, _, ok := p.HostMap.Resolve(va)
	if !ok || uint64(len(ref.Bytes())) < length {
		return nil, false
	}
	return ref.Bytes()[:length], true
}

func (p *Proxy) readCString(va uint64, max int) (string, bool) {
	ref, _, ok := p.HostMap.Resolve(va)
	if !ok {
		return "", false
	}
	b := ref.Bytes()
	for i := 0; i < len(b) && i < max; i++ {
		if b[i] == 0 {
			return string(b[:i]), true
		}
	}
	return "", false
}

func syscallRet(n int, err error) uint64 {
	if err != nil {
		return errnoRet(err)
	}
	return uint64(int64(n))
}

func errnoRet(err error) uint64 {
	if errno, ok := err.(unix.Errno); ok {
		return uint64(int64(-int32(errno)))
	}
	neg1 := int64(-1)
	return uint64(neg1)
}
