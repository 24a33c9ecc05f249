package allocator

// preallocSize is the size of the one-shot initial extent carved out of the
// program break on the first small request. 128 KiB amortises the
// break-extension syscall and gives best-fit a meaningfully large pool to
// place small allocations in.
const preallocSize uintptr = 128 * 1024

// preallocated records whether the initial extent has already been
// requested. It is process-wide state, reset only by Reset (test hook).
var preallocated bool

// ensurePrealloc extends the break by preallocSize exactly once, installs
// the result as a single FREE block, and marks preallocation done. Callers
// must invoke this before running best-fit on a small request.
func ensurePrealloc(l *list) {
	if preallocated {
		return
	}

	preallocated = true

	addr, err := osSource.extendBreak(uintptr(preallocSize))
	if err != nil {
		return
	}

	b := (*block)(addr)
	b.size = preallocSize - blockHeaderSize
	b.tag = free
	b.next = nil

	l.insert(b)
}
