package allocator

import "unsafe"

// ZeroAllocate returns a handle to count*size zero-initialized bytes, or nil
// if that product is 0. It temporarily lowers mapThreshold to the OS page
// size before calling Allocate, so any request at least one page large is
// routed through the mapping path and receives already-zeroed pages
// straight from the kernel; the final memset below then covers sub-page
// requests (and is harmless, if redundant, for the mapped case).
func ZeroAllocate(count, size uintptr) unsafe.Pointer {
	n := count * size
	if n == 0 {
		return nil
	}

	saved := mapThreshold
	mapThreshold = osSource.pageSize()

	p := Allocate(n)

	mapThreshold = saved

	if p == nil {
		return nil
	}

	zero(p, alignUp(n, alignment))

	return p
}

// zero fills size bytes at p with 0.
func zero(p unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}

	s := unsafe.Slice((*byte)(p), size)
	for i := range s {
		s[i] = 0
	}
}
