package proxy

import (
	"encoding/binary"

	"rvsim/internal/riscv/mmu"

	"golang.org/x/sys/unix"
)

// sysBrk implements the brk(2) convention Linux actually exposes: a
// request of 0 returns the current break, anything else tries to move it
// and always reports the resulting break back (never an error), matching
// glibc's own brk wrapper behavior.
func (p *Proxy) sysBrk(reqAddr uint64) uint64 {
	if reqAddr == 0 || reqAddr == p.brk {
		return p.brk
	}
	if reqAddr < p.brk {
		p.brk = reqAddr
		return p.brk
	}
	if reqAddr > p.heapTop {
		return p.brk
	}
	newPage := (reqAddr + mmu.PageSize - 1) &^ uint64(mmu.PageSize-1)
	curPage := (p.brk + mmu.PageSize - 1) &^ uint64(mmu.PageSize-1)
	if newPage > curPage {
		if _, err := p.HostMap.MapAnon(curPage, newPage-curPage, mmu.ProtRead|mmu.ProtWrite); err == nil {
			_ = p.PMA.Add(curPage, newPage-curPage, mmu.PMAAttrs{Cacheable: true, Perm: mmu.ProtRead | mmu.ProtWrite})
		}
	}
	p.brk = reqAddr
	return p.brk
}

// fstat writes a minimal struct stat (the glibc riscv64 layout) into the
// guest buffer at statAddr: device, inode, mode, link count, size, block
// size and block count are copied from the host; the remaining fields
// (uid, gid, rdev, timestamps) are left zero.
func (p *Proxy) fstat(fd int, statAddr uint64) uint64 {
	var hostStat unix.Stat_t
	if err := unix.Fstat(fd, &hostStat); err != nil {
		return errnoRet(err)
	}
	ref, _, ok := p.HostMap.Resolve(statAddr)
	if !ok || len(ref.Bytes()) < 128 {
		return errnoRet(unix.EFAULT)
	}
	b := ref.Bytes()
	for i := range b[:128] {
		b[i] = 0
	}
	binary.LittleEndian.PutUint64(b[0:8], uint64(hostStat.Dev))
	binary.LittleEndian.PutUint64(b[8:16], hostStat.Ino)
	binary.LittleEndian.PutUint32(b[16:20], hostStat.Mode)
	binary.LittleEndian.PutUint32(b[20:24], uint32(hostStat.Nlink))
	binary.LittleEndian.PutUint64(b[48:56], uint64(hostStat.Size))
	binary.LittleEndian.PutUint32(b[56:60], uint32(hostStat.Blksize))
	binary.LittleEndian.PutUint64(b[64:72], uint64(hostStat.Blocks))
	return 0
}

// writev forwards to Write iovec by iovec; a guest proxy target never
// issues enough of these to make the extra Writev syscall worth wiring.
func (p *Proxy) writev(fd int32, iovAddr, iovCount uint64) (int, error) {
	total := 0
	ref, _, ok := p.HostMap.Resolve(iovAddr)
	if !ok {
		return 0, unix.EFAULT
	}
	iovBytes := ref.Bytes()
	for i := uint64(0); i < iovCount; i++ {
		entry := iovBytes[i*16:]
		base := binary.LittleEndian.Uint64(entry[0:8])
		length := binary.LittleEndian.Uint64(entry[8:16])
		if length == 0 {
			continue
		}
		buf, ok := p.resolve(base, length)
		if !ok {
			return total, unix.EFAULT
		}
		n, err := unix.Write(int(fd), buf)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// uname fills the guest's struct utsname (six 65-byte fields) with values
// identifying this simulator rather than the real host kernel, the way a
// proxy-syscall environment reports a synthetic machine identity.
func (p *Proxy) uname(addr uint64) uint64 {
	ref, _, ok := p.HostMap.Resolve(addr)
	if !ok || len(ref.Bytes()) < 6*65 {
		return errnoRet(unix.EFAULT)
	}
	b := ref.Bytes()
	fields := []string{"Linux", "rvsim", "6.1.0", "#1", "riscv64", ""}
	for i, f := range fields {
		off := i * 65
		for j := range b[off : off+65] {
			b[off+j] = 0
		}
		copy(b[off:off+65], f)
	}
	return 0
}
