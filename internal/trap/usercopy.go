// Package trap implements C7: the kernel-side half of the trap
// pipeline (§4.7) — syscall dispatch, fault diagnostics, and the safe
// cross-address-space copy helpers the syscall layer needs to read a
// path string or write an exit code through a raw user virtual
// address. The user/kernel privilege switch itself (the assembled
// trampoline, __restore, sret) is the external collaborator named in
// §1; this package is everything on the kernel side of that boundary.
package trap

import (
	"rvcore/internal/addrspace"
	"rvcore/internal/riscv"
)

// CopyOut copies src into space at user virtual address uva, crossing
// page boundaries transparently. Returns false if any page along the
// way is unmapped. Grounded on biscuit's vm/userbuf.go Userbuf_t: walk
// one mapped page at a time, copying only the overlap, until the
// buffer is exhausted.
func CopyOut(space *addrspace.Space, uva uint64, src []byte) bool {
	return transfer(space, uva, src, true)
}

// CopyIn copies from space at user virtual address uva into dst,
// crossing page boundaries transparently.
func CopyIn(space *addrspace.Space, uva uint64, dst []byte) bool {
	return transfer(space, uva, dst, false)
}

func transfer(space *addrspace.Space, uva uint64, buf []byte, toUser bool) bool {
	alloc := space.Allocator()
	off := 0
	for off < len(buf) {
		va := riscv.VirtAddr(uva) + riscv.VirtAddr(off)
		pte, ok := space.Translate(va.Floor())
		if !ok || !pte.Valid() {
			return false
		}
		page := alloc.Bytes(pte.PPN())
		pageOff := int(va.PageOffset())
		n := len(page) - pageOff
		if rem := len(buf) - off; n > rem {
			n = rem
		}
		if toUser {
			copy(page[pageOff:pageOff+n], buf[off:off+n])
		} else {
			copy(buf[off:off+n], page[pageOff:pageOff+n])
		}
		off += n
	}
	return true
}

// CopyCString reads a NUL-terminated string out of space starting at
// uva, one byte at a time up to maxLen, mirroring original_source
// os5/src/syscall/process.rs's translated_str (read byte-by-byte
// rather than trusting the string not to cross an unmapped boundary).
// Returns false if the string is unterminated within maxLen or crosses
// unmapped memory.
func CopyCString(space *addrspace.Space, uva uint64, maxLen int) (string, bool) {
	out := make([]byte, 0, 64)
	var b [1]byte
	for i := 0; i < maxLen; i++ {
		if !CopyIn(space, uva+uint64(i), b[:]) {
			return "", false
		}
		if b[0] == 0 {
			return string(out), true
		}
		out = append(out, b[0])
	}
	return "", false
}
