package allocator

import "unsafe"

// alignment is the byte boundary every header footprint and payload length
// is rounded up to. Payload handles are 8-byte aligned because the header's
// aligned footprint is itself a multiple of alignment (invariant 5).
const alignment uintptr = 8

// mapThreshold is the payload+header size at or above which a request is
// served by an anonymous mapping instead of break extension. It defaults to
// 128 KiB and is temporarily lowered to the OS page size for the duration
// of ZeroAllocate (see zero.go). It is process-wide, rebindable state, not
// a constant, per the design's "dynamically rebindable value" tunable.
var mapThreshold = DefaultMapThreshold

// global is the single process-wide free list every public operation acts
// on.
var global list

// Allocate returns a handle to at least n uninitialized, 8-byte-aligned
// bytes, or nil if n is 0. Requests below mapThreshold are served from the
// heap-sourced free list (preallocating it on first use, then best-fit,
// then tail extension, then a fresh break-extension block); requests at or
// above mapThreshold are served by a dedicated anonymous mapping.
func Allocate(n uintptr) unsafe.Pointer {
	if n == 0 {
		return nil
	}

	req := alignUp(n, alignment)

	if req+blockHeaderSize < mapThreshold {
		ensurePrealloc(&global)

		if b := bestFit(&global, req); b != nil {
			splitBlock(&global, b, req)
			return toPayload(b)
		}

		if last := global.tail(); last != nil && last.tag == free {
			if b := extendTail(&global, last, req); b != nil {
				splitBlock(&global, b, req)
				return toPayload(b)
			}
		}

		addr, err := osSource.extendBreak(req + blockHeaderSize)
		if err != nil {
			return nil
		}

		b := (*block)(addr)
		b.size = req
		b.tag = allocated
		b.next = nil
		global.insert(b)

		return toPayload(b)
	}

	total := req + blockHeaderSize

	addr, err := osSource.mapAnonymous(total)
	if err != nil {
		return nil
	}

	b := (*block)(addr)
	b.size = req
	b.tag = mapped
	b.next = nil
	global.insert(b)

	return toPayload(b)
}

// Free releases the memory behind p. It is a no-op for a nil or unknown
// handle. ALLOCATED blocks are marked FREE and the list is fully
// coalesced; MAPPED blocks are removed from the list and unmapped exactly.
func Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	b := toBlock(p)
	if !global.contains(b) {
		return
	}

	switch b.tag {
	case allocated:
		b.tag = free
		coalesceAll(&global)
	case mapped:
		global.remove(b)
		_ = osSource.unmap(unsafe.Pointer(b), b.size+blockHeaderSize)
	}
}

// Resize preserves min(old, new) payload bytes, possibly moving the data,
// and returns the new handle. A nil handle delegates to Allocate; a size of
// 0 frees p and returns nil; resizing a FREE block is invalid input and
// returns nil.
func Resize(p unsafe.Pointer, n uintptr) unsafe.Pointer {
	if p == nil {
		return Allocate(n)
	}

	if n == 0 {
		Free(p)
		return nil
	}

	b := toBlock(p)
	if !global.contains(b) || b.tag == free {
		return nil
	}

	req := alignUp(n, alignment)
	if req == b.size {
		return p
	}

	if b.tag == allocated {
		if req < b.size {
			splitBlock(&global, b, req)
			return p
		}

		coalesceAll(&global)

		if b.next != nil && b.next.tag == free && b.size+blockHeaderSize+b.next.size >= req {
			coalescePair(b, b.next)
			b.tag = allocated
			splitBlock(&global, b, req)

			return p
		}

		// Neither an in-place split nor a successor merge could satisfy the
		// request — this covers both the list-tail case spec.md §9 flags a
		// known bug for and the general interior-block case; both use the
		// same allocate-copy-free order here.
		return reallocateAndCopy(p, b.size, n)
	}

	// MAPPED: always move. A mapped block whose new size falls below
	// mapThreshold demotes to a heap-sourced block automatically, since
	// Allocate re-evaluates the threshold for n.
	return reallocateAndCopy(p, b.size, n)
}

// reallocateAndCopy allocates a fresh block of n bytes, copies
// min(oldSize, new) bytes from p into it, frees p, and returns the new
// handle. This is the uniform allocate-copy-free order used for every
// resize path that cannot grow or shrink a block in place. The design
// notes flag a known bug in the naive implementation of the list-tail grow
// path, which frees the old block before reading its payload for the copy;
// the coalesce pass that follows a free can then fold the tail into a
// predecessor before the memmove runs. This implementation uses the
// allocate-copy-free order uniformly, including for the tail case, which
// avoids that hazard.
func reallocateAndCopy(p unsafe.Pointer, oldSize, n uintptr) unsafe.Pointer {
	newPtr := Allocate(n)
	if newPtr == nil {
		return nil
	}

	copySize := oldSize
	if alignUp(n, alignment) < copySize {
		copySize = alignUp(n, alignment)
	}

	copyMemory(newPtr, p, copySize)
	Free(p)

	return newPtr
}

// copyMemory copies size bytes from src to dst using Go slices over raw
// pointers; both regions are OS-backed and outside the GC heap, so the
// slice headers built here do not need to survive past the copy.
func copyMemory(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}

	dstSlice := unsafe.Slice((*byte)(dst), size)
	srcSlice := unsafe.Slice((*byte)(src), size)
	copy(dstSlice, srcSlice)
}

// Reset discards all allocator state: the free list, the preallocation
// flag, and any temporary threshold override. It exists for tests;
// application code must never call it while a previously returned handle is
// still in use.
func Reset() {
	global = list{}
	preallocated = false
	mapThreshold = DefaultMapThreshold
}
