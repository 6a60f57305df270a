package proxy

import (
	"os"
	"testing"

	"rvsim/internal/riscv/cpu"
	"rvsim/internal/riscv/elfload"
	"rvsim/internal/riscv/mmu"
)

func newTestProxy(t *testing.T) (*Proxy, *cpu.CPU) {
	t.Helper()
	hm := mmu.NewHostMap()
	pma := mmu.NewPMATable()

	const base = 0x20000
	if _, err := hm.MapAnon(base, mmu.PageSize, mmu.ProtRead|mmu.ProtWrite); err != nil {
		t.Fatalf("MapAnon: %v", err)
	}
	if err := pma.Add(base, mmu.PageSize, mmu.PMAAttrs{Cacheable: true, Perm: mmu.ProtRead | mmu.ProtWrite}); err != nil {
		t.Fatalf("pma.Add: %v", err)
	}

	img := &elfload.Image{HiBound: base + mmu.PageSize}
	p := New(hm, pma, img, base+16*mmu.PageSize)

	c := cpu.New(mmu.XLen64)
	return p, c
}

func TestDispatchWriteForwardsToHost(t *testing.T) {
	p, c := newTestProxy(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	const bufAddr = 0x20000
	ref, _, ok := p.HostMap.Resolve(bufAddr)
	if !ok {
		t.Fatalf("Resolve(0x%x) failed", bufAddr)
	}
	msg := []byte("hello")
	copy(ref.Bytes(), msg)

	c.WriteReg(17, sysWrite)
	c.WriteReg(10, uint64(w.Fd()))
	c.WriteReg(11, bufAddr)
	c.WriteReg(12, uint64(len(msg)))

	if exit := p.Dispatch(c); exit != nil {
		t.Fatalf("Dispatch returned unexpected exit: %v", exit)
	}
	if ret := int64(c.ReadReg(10)); ret != int64(len(msg)) {
		t.Fatalf("a0 = %d, want %d", ret, len(msg))
	}

	w.Close()
	got := make([]byte, len(msg))
	if _, err := r.Read(got); err != nil {
		t.Fatalf("read back from pipe: %v", err)
	}
	if string(got) != string(msg) {
		t.Errorf("pipe contents = %q, want %q", got, msg)
	}
}

func TestDispatchExitReturnsExitSignal(t *testing.T) {
	p, c := newTestProxy(t)
	c.WriteReg(17, sysExitGroup)
	c.WriteReg(10, 7)

	exit := p.Dispatch(c)
	if exit == nil {
		t.Fatal("Dispatch(exit_group) should return an *ExitSignal")
	}
	if exit.Code != 7 {
		t.Errorf("exit code = %d, want 7", exit.Code)
	}
}

func TestDispatchUnknownSyscallReturnsENOSYS(t *testing.T) {
	p, c := newTestProxy(t)
	c.WriteReg(17, 0xffff)

	if exit := p.Dispatch(c); exit != nil {
		t.Fatalf("unknown syscall should not terminate the guest: %v", exit)
	}
	if ret := int64(c.ReadReg(10)); ret >= 0 {
		t.Errorf("a0 = %d, want a negative errno", ret)
	}
}

func TestSysBrkGrowsAndShrinks(t *testing.T) {
	p, c := newTestProxy(t)
	_ = c
	start := p.brk

	grown := p.sysBrk(start + 4096)
	if grown != start+4096 {
		t.Errorf("sysBrk(grow) = 0x%x, want 0x%x", grown, start+4096)
	}
	// The new break should be backed by a mapping now.
	if _, _, ok := p.HostMap.Resolve(start + 100); !ok {
		t.Errorf("brk growth did not map the new region")
	}

	shrunk := p.sysBrk(start)
	if shrunk != start {
		t.Errorf("sysBrk(shrink) = 0x%x, want 0x%x", shrunk, start)
	}

	queried := p.sysBrk(0)
	if queried != start {
		t.Errorf("sysBrk(0) = 0x%x, want current break 0x%x", queried, start)
	}
}

func TestDispatchReadRejectsUnmappedBuffer(t *testing.T) {
	p, c := newTestProxy(t)
	c.WriteReg(17, sysRead)
	c.WriteReg(10, 0)
	c.WriteReg(11, 0xdeadbeef) // never mapped
	c.WriteReg(12, 8)

	if exit := p.Dispatch(c); exit != nil {
		t.Fatalf("unexpected exit: %v", exit)
	}
	if ret := int64(c.ReadReg(10)); ret >= 0 {
		t.Errorf("a0 = %d, want a negative errno (EFAULT)", ret)
	}
}
