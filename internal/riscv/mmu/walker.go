package mmu

import "encoding/binary"

// Walker performs the sv32/sv39/sv48 radix-tree page-table walk against
// guest physical memory reached through a HostMap. Reading a PTE is always
// treated as an ordinary load against host-mapped guest memory — page
// tables live in physical space, so there is no recursive translation.
type Walker struct {
	hostMap *HostMap
}

// NewWalker returns a walker that resolves page-table entries through hostMap.
func NewWalker(hostMap *HostMap) *Walker {
	return &Walker{hostMap: hostMap}
}

// Walk translates va under the paged mode ptm, starting from the top-level
// table at rootPPN. On success it returns the spliced physical address and
// the leaf PTE's flags; ok is false for any fault condition the RISC-V
// privileged spec's walk algorithm defines (unmapped PTE address, V=0,
// reserved R=0/W=1 encoding, misaligned superpage, or exhausting every
// level without a leaf).
func (w *Walker) Walk(ptm PTM, rootPPN, va uint64) (pa uint64, flags PTEFlags, ok bool) {
	ppn := rootPPN
	vpnMask := uint64(1)<<uint(ptm.Bits) - 1

	for level := ptm.Levels - 1; level >= 0; level-- {
		shift := uint(PageShift + ptm.Bits*level)
		vpn := (va >> shift) & vpnMask
		pteMPA := (ppn << PageShift) + vpn*pteSize

		ref, _, mapped := w.hostMap.Resolve(pteMPA)
		if !mapped || len(ref.Bytes()) < pteSize {
			return 0, 0, false
		}
		pte := binary.LittleEndian.Uint64(ref.Bytes()[:pteSize])
		flags = PTEFlags(pte & 0xff)

		if flags&PTEV == 0 || flags.reserved() {
			return 0, 0, false
		}

		if flags.leaf() {
			if level > 0 {
				supMask := uint64(1)<<uint(ptm.Bits*level) - 1
				if ((pte >> 10) & supMask) != 0 {
					// Misaligned superpage: low PPN bits set at an
					// intermediate level must fault per the RISC-V
					// privileged spec's walk algorithm.
					return 0, 0, false
				}
			}
			leafPPN := pte >> 10
			offsetMask := uint64(1)<<shift - 1
			pa = (leafPPN << PageShift) | (va & offsetMask)
			return pa, flags, true
		}

		ppn = pte >> 10
	}

	return 0, 0, false
}
