package allocator

import "testing"

func TestBestFitPicksSmallestSufficientBlock(t *testing.T) {
	buf := make([]byte, 1024)
	// bestFit coalesces before scanning, so the FREE candidates are kept
	// apart by ALLOCATED blocks; otherwise they would merge into one.
	small := newTestBlock(buf, 0, 40, free)
	sep1 := newTestBlock(buf, 64, 32, allocated)
	big := newTestBlock(buf, 128, 200, free)
	sep2 := newTestBlock(buf, 384, 32, allocated)
	exact := newTestBlock(buf, 512, 64, free)

	var l list
	l.head = small
	small.next = sep1
	sep1.next = big
	big.next = sep2
	sep2.next = exact

	got := bestFit(&l, 64)
	if got != exact {
		t.Fatalf("bestFit picked %v, want the exact-fit block %v", got, exact)
	}
}

func TestBestFitReturnsNilWhenNothingFits(t *testing.T) {
	buf := make([]byte, 256)
	small := newTestBlock(buf, 0, 16, free)

	var l list
	l.head = small

	if got := bestFit(&l, 1024); got != nil {
		t.Fatalf("bestFit = %v, want nil", got)
	}
}

func TestBestFitSkipsAllocatedAndMapped(t *testing.T) {
	buf := make([]byte, 512)
	alloc := newTestBlock(buf, 0, 256, allocated)
	mp := newTestBlock(buf, 256, 256, mapped)

	var l list
	l.head = alloc
	alloc.next = mp

	if got := bestFit(&l, 32); got != nil {
		t.Fatalf("bestFit = %v, want nil (no FREE candidates)", got)
	}
}

func TestExtendTailGrowsLastFreeBlock(t *testing.T) {
	withFakeSource(t)

	buf := make([]byte, 256)
	last := newTestBlock(buf, 0, 32, free)

	var l list
	l.head = last

	got := extendTail(&l, last, 512)
	if got == nil {
		t.Fatal("extendTail returned nil")
	}

	if got.size != 512 {
		t.Fatalf("tail size after extension = %d, want exactly 512", got.size)
	}

	if got.tag != free {
		t.Fatalf("extended block status = %v, want FREE (caller marks ALLOCATED via splitBlock)", got.tag)
	}
}
