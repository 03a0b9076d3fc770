package addrspace

import (
	"testing"

	"rvcore/internal/frame"
	"rvcore/internal/riscv"
	"rvcore/internal/trampoline"
)

func newTestAlloc(t *testing.T) *frame.Allocator {
	t.Helper()
	a := frame.New(0, 4096)
	t.Cleanup(a.Close)
	trampoline.Install(a.Alloc().PPN(), 0x40, 0xdeadbeef)
	return a
}

func TestTrampolinePresentInEverySpace(t *testing.T) {
	a := newTestAlloc(t)
	s := NewBare(a)
	s.MapTrampoline()

	pte, ok := s.Translate(riscv.VpnOf(riscv.Trampoline))
	if !ok {
		t.Fatal("expected trampoline PTE to be present")
	}
	if !pte.Valid() || !pte.Readable() || !pte.Executable() || pte.Writable() || pte.UserAccessible() {
		t.Fatalf("unexpected trampoline flags: %08b", pte.Flags())
	}
}

func TestFramedRegionTranslatesToOwnedFrame(t *testing.T) {
	a := newTestAlloc(t)
	s := NewBare(a)
	s.MapTrampoline()

	r := NewFramedRegion(10, 12, riscv.PteR|riscv.PteW|riscv.PteU)
	s.Push(r, nil)

	for vpn := r.Start; vpn < r.End; vpn++ {
		pte, ok := s.Translate(vpn)
		if !ok {
			t.Fatalf("vpn %d not mapped", vpn)
		}
		if pte.PPN() != r.frameFor(vpn).PPN() {
			t.Fatalf("vpn %d: ppn mismatch", vpn)
		}
		if pte.Flags() != (r.Perm | riscv.PteV) {
			t.Fatalf("vpn %d: flags = %08b, want %08b", vpn, pte.Flags(), r.Perm|riscv.PteV)
		}
	}
}

func TestRemoveAreaUnmapsAndReleases(t *testing.T) {
	a := newTestAlloc(t)
	s := NewBare(a)
	s.MapTrampoline()

	r := NewFramedRegion(20, 22, riscv.PteR|riscv.PteW)
	s.Push(r, nil)
	s.RemoveAreaWithStartVpn(20)

	if _, ok := s.Translate(20); ok {
		t.Fatal("expected translate to fail after RemoveAreaWithStartVpn")
	}
	if len(s.regions) != 0 {
		t.Fatal("expected region list to be empty")
	}
}

func TestRecycleDataPagesKeepsTrampolineAndPageTable(t *testing.T) {
	a := newTestAlloc(t)
	s := NewBare(a)
	s.MapTrampoline()
	s.Push(NewFramedRegion(30, 31, riscv.PteR), nil)

	s.RecycleDataPages()

	if _, ok := s.Translate(30); ok {
		t.Fatal("expected data region to be gone")
	}
	if _, ok := s.Translate(riscv.VpnOf(riscv.Trampoline)); !ok {
		t.Fatal("expected trampoline mapping to survive RecycleDataPages")
	}
}

// buildSyntheticELF assembles the minimal bytes of a little-endian
// 64-bit ELF executable with a single PT_LOAD segment, for testing
// FromELF without a real toolchain-built binary.
func buildSyntheticELF(t *testing.T, vaddr uint64, fileContents []byte, memsz uint64, entry uint64) []byte {
	t.Helper()
	const ehSize = 64
	const phSize = 56

	buf := make([]byte, ehSize+phSize+len(fileContents))
	// e_ident
	copy(buf[0:4], []byte{0x7F, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT
	le := func(b []byte, v uint64) {
		for i := range b {
			b[i] = byte(v >> (8 * i))
		}
	}
	le16 := func(off int, v uint16) { le(buf[off:off+2], uint64(v)) }
	le32 := func(off int, v uint32) { le(buf[off:off+4], uint64(v)) }
	le64 := func(off int, v uint64) { le(buf[off:off+8], v) }

	le16(16, 2)           // e_type = ET_EXEC
	le16(18, 0xF3)        // e_machine = EM_RISCV
	le32(20, 1)           // e_version
	le64(24, entry)       // e_entry
	le64(32, ehSize)      // e_phoff
	le64(40, 0)           // e_shoff
	le32(48, 0)           // e_flags
	le16(52, ehSize)      // e_ehsize
	le16(54, phSize)      // e_phentsize
	le16(56, 1)           // e_phnum
	le16(58, 0)           // e_shentsize
	le16(60, 0)           // e_shnum
	le16(62, 0)           // e_shstrndx

	ph := buf[ehSize:]
	le32(ehSize+0, 1)                       // p_type = PT_LOAD
	le32(ehSize+4, 0x7)                     // p_flags = R|W|X
	le64(ehSize+8, ehSize+phSize)           // p_offset
	le64(ehSize+16, vaddr)                  // p_vaddr
	le64(ehSize+24, vaddr)                  // p_paddr
	le64(ehSize+32, uint64(len(fileContents))) // p_filesz
	le64(ehSize+40, memsz)                  // p_memsz
	le64(ehSize+48, riscv.PageSize)         // p_align
	_ = ph

	copy(buf[ehSize+phSize:], fileContents)
	return buf
}

func TestFromELFLoadsSegmentBytesAndZeroFillsTail(t *testing.T) {
	a := newTestAlloc(t)
	content := []byte("hello, user mode")
	vaddr := uint64(0x1000)
	memsz := uint64(riscv.PageSize * 2)
	elfBytes := buildSyntheticELF(t, vaddr, content, memsz, vaddr+4)

	space, userSP, entry := FromELF(elfBytes, a)

	if entry != vaddr+4 {
		t.Fatalf("entry = %#x, want %#x", entry, vaddr+4)
	}
	if userSP == 0 {
		t.Fatal("expected non-zero user stack pointer")
	}

	startVPN := riscv.VirtAddr(vaddr).Floor()
	pte, ok := space.Translate(startVPN)
	if !ok {
		t.Fatal("expected LOAD segment's first page to be mapped")
	}
	_ = pte

	// Re-derive the backing region to inspect its bytes directly.
	var loaded *Region
	for _, r := range space.regions {
		if r.Start == startVPN {
			loaded = r
		}
	}
	if loaded == nil {
		t.Fatal("expected to find the loaded region")
	}
	got := loaded.frameFor(startVPN).Bytes()[:len(content)]
	if string(got) != string(content) {
		t.Fatalf("loaded bytes = %q, want %q", got, content)
	}
	// Tail beyond filesz must be zero (frames are zero-initialized).
	tailVPN := startVPN + 1
	tail := loaded.frameFor(tailVPN).Bytes()
	for _, b := range tail {
		if b != 0 {
			t.Fatal("expected zero fill beyond filesz")
		}
	}
}

func TestFromELFBadMagicPanics(t *testing.T) {
	a := newTestAlloc(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on bad ELF magic")
		}
	}()
	FromELF([]byte{0, 0, 0, 0, 0, 0, 0, 0}, a)
}

func TestFromExistedUserClonesBytes(t *testing.T) {
	a := newTestAlloc(t)
	src := NewBare(a)
	src.MapTrampoline()
	r := NewFramedRegion(5, 6, riscv.PteR|riscv.PteW)
	src.Push(r, nil)
	r.frameFor(5).Bytes()[0] = 0x42

	dst := FromExistedUser(src)
	var cloned *Region
	for _, rr := range dst.regions {
		if rr.Start == 5 {
			cloned = rr
		}
	}
	if cloned == nil {
		t.Fatal("expected cloned region at vpn 5")
	}
	if cloned.frameFor(5).Bytes()[0] != 0x42 {
		t.Fatal("expected byte-for-byte clone")
	}
	if cloned.frameFor(5).PPN() == r.frameFor(5).PPN() {
		t.Fatal("expected clone to use a distinct frame, not alias the parent's")
	}
}
