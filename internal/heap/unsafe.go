package heap

import "unsafe"

// ptrOf returns the address of a byte, used only to compute offsets of
// sub-slices back into the arena (Free's slice-identity check).
func ptrOf(b *byte) unsafe.Pointer { return unsafe.Pointer(b) }
