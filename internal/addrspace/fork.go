package addrspace

// FromExistedUser builds a new address space that is a deep copy of src,
// for fork (§4.3 from_existed_user, §4.5 TCB::fork): a fresh empty space
// plus trampoline, then for each of src's regions a same-shaped region
// (same VPN range, type, and permissions), mapped with its own fresh
// frames, with every Framed page byte-copied from src's backing frame.
// Because each region's frame map already *is* what the page table
// resolves a VPN to (§3's region invariant), reading src's frames
// directly is equivalent to the translate-then-copy the source
// description mentions, without a redundant page-table walk.
func FromExistedUser(src *Space) *Space {
	dst := NewBare(src.alloc)
	dst.MapTrampoline()

	for _, r := range src.regions {
		var clone *Region
		switch r.Type {
		case Framed:
			clone = NewFramedRegion(r.Start, r.End, r.Perm)
		case Identical:
			clone = NewIdenticalRegion(r.Start, r.End, r.Perm)
		}
		dst.Push(clone, nil)

		if r.Type == Framed {
			for vpn := r.Start; vpn < r.End; vpn++ {
				copy(clone.frameFor(vpn).Bytes(), r.frameFor(vpn).Bytes())
			}
		}
	}
	return dst
}
