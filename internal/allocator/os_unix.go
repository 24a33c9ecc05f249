//go:build unix

package allocator

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// breakReserve bounds the virtual address space set aside to emulate a
// monotonically growing program break. Go offers no portable sbrk(2); a
// single large PROT_NONE reservation, grown page-by-page with mprotect,
// gives the same contiguity and monotonic-growth guarantees the allocator's
// coalescing logic depends on (see the physical-adjacency assumption in the
// design notes) without requiring a real brk syscall.
const breakReserve = 4 << 30 // 4 GiB of reserved address space.

// unixSource implements source on top of golang.org/x/sys/unix mmap,
// mprotect and munmap.
type unixSource struct {
	base unsafe.Pointer
	top  uintptr // bytes of base already committed and handed out.
}

func newUnixSource() *unixSource {
	region, err := unix.Mmap(-1, 0, breakReserve, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		fatal(fmt.Sprintf("reserve program break: %v", err))
		return nil
	}

	return &unixSource{base: unsafe.Pointer(&region[0])}
}

func (u *unixSource) extendBreak(delta uintptr) (unsafe.Pointer, error) {
	if u.top+delta > breakReserve {
		fatal("program break exhausted")
		return nil, nil
	}

	addr := unsafe.Pointer(uintptr(u.base) + u.top)

	// mprotect works on whole pages: commit every page the new extent
	// touches, starting from the page that holds the current top.
	page := uintptr(unix.Getpagesize())
	start := u.top &^ (page - 1)
	end := alignUp(u.top+delta, page)

	region := unsafe.Slice((*byte)(unsafe.Add(u.base, start)), end-start)
	if err := unix.Mprotect(region, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		fatal(fmt.Sprintf("extend break: %v", err))
		return nil, nil
	}

	u.top += delta

	return addr, nil
}

func (u *unixSource) mapAnonymous(length uintptr) (unsafe.Pointer, error) {
	region, err := unix.Mmap(-1, 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		fatal(fmt.Sprintf("map anonymous: %v", err))
		return nil, nil
	}

	return unsafe.Pointer(&region[0]), nil
}

func (u *unixSource) unmap(addr unsafe.Pointer, length uintptr) error {
	region := unsafe.Slice((*byte)(addr), length)
	if err := unix.Munmap(region); err != nil {
		fatal(fmt.Sprintf("unmap: %v", err))
		return err
	}

	return nil
}

func (u *unixSource) pageSize() uintptr {
	return uintptr(unix.Getpagesize())
}
