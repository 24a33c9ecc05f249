// Package allocator implements a process-wide dynamic memory allocator: a
// single intrusive free list of in-band block headers, backed by the
// process program break for small requests and by anonymous mappings for
// large ones.
package allocator

import (
	"unsafe"
)

// status is the lifecycle tag carried by every block header.
type status uint8

const (
	// free marks a block available for best-fit placement.
	free status = iota
	// allocated marks a heap-sourced (break-extended) block in use.
	allocated
	// mapped marks a block backed by its own anonymous mapping.
	mapped
)

func (s status) String() string {
	switch s {
	case free:
		return "FREE"
	case allocated:
		return "ALLOCATED"
	case mapped:
		return "MAPPED"
	default:
		return "UNKNOWN"
	}
}

// block is the in-band bookkeeping header that immediately precedes every
// payload. Its fields are deliberately ordered largest-first so the Go
// compiler needs no padding beyond what blockHeaderSize already accounts for.
type block struct {
	next *block
	size uintptr // payload length in bytes, always a multiple of alignment.
	tag  status
}

// blockHeaderSize is the aligned footprint of a header: the raw struct size
// rounded up to the allocator's alignment, per invariant 5 in the design
// (header footprint padded to a multiple of the alignment when used for
// offset arithmetic).
var blockHeaderSize = alignUp(unsafe.Sizeof(block{}), alignment)

// toPayload converts a header pointer to the address handed to callers: the
// first byte immediately past the header's aligned footprint.
func toPayload(b *block) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(b)) + blockHeaderSize)
}

// toBlock recovers the header preceding a payload handle. Callers must only
// pass addresses previously returned by toPayload.
func toBlock(p unsafe.Pointer) *block {
	return (*block)(unsafe.Pointer(uintptr(p) - blockHeaderSize))
}

// list is the single process-wide chain of block headers. It is not an
// ordered structure in the general sense: mapped blocks are always
// prepended, heap-sourced blocks are always appended, and it is the birth
// order of heap-sourced blocks that makes them physically adjacent to their
// list neighbors (see coalesce.go).
type list struct {
	head *block
}

// insert adds b to the list according to its status: mapped blocks go to
// the head, everything else goes to the tail. An empty list always takes b
// as its head regardless of status.
func (l *list) insert(b *block) {
	b.next = nil

	if l.head == nil {
		l.head = b
		return
	}

	if b.tag == mapped {
		b.next = l.head
		l.head = b

		return
	}

	tail := l.head
	for tail.next != nil {
		tail = tail.next
	}

	tail.next = b
}

// remove splices b out of the list. It is a no-op if b is not present.
// Removing a block clears its next-pointer; it does not touch the payload.
func (l *list) remove(b *block) {
	if l.head == nil {
		return
	}

	if l.head == b {
		l.head = b.next
		b.next = nil

		return
	}

	for cur := l.head; cur.next != nil; cur = cur.next {
		if cur.next == b {
			cur.next = b.next
			b.next = nil

			return
		}
	}
}

// contains reports whether b is currently a member of the list. free and
// resize rely on this to silently ignore pointers the allocator never
// handed out.
func (l *list) contains(b *block) bool {
	for cur := l.head; cur != nil; cur = cur.next {
		if cur == b {
			return true
		}
	}

	return false
}

// tail returns the last block in the list, or nil if the list is empty.
func (l *list) tail() *block {
	if l.head == nil {
		return nil
	}

	cur := l.head
	for cur.next != nil {
		cur = cur.next
	}

	return cur
}

// alignUp rounds size up to the nearest multiple of align, which must be a
// power of two.
func alignUp(size, align uintptr) uintptr {
	return (size + align - 1) &^ (align - 1)
}
