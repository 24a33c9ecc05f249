package allocator

import (
	"errors"
	"unsafe"
)

// fakeBreakReserve bounds the synthetic program break's backing buffer,
// mirroring os_unix.go's breakReserve at a size small enough for tests.
const fakeBreakReserve = 16 << 20

// fakeSource is an in-process stand-in for the real unix backend. extendBreak
// carves successive extents out of a single backing buffer, exactly as
// unixSource commits further pages of one reserved region, so blocks it
// hands out stay physically adjacent and coalescing across them is safe to
// exercise. mapAnonymous hands out independent slices, since mapped blocks
// are never coalesced with a neighbor.
type fakeSource struct {
	brk      []byte
	top      uintptr
	regions  [][]byte
	page     uintptr
	capacity uintptr // remaining synthetic break budget; 0 means unlimited.
}

func newFakeSource() *fakeSource {
	return &fakeSource{brk: make([]byte, fakeBreakReserve), page: 4096}
}

func (f *fakeSource) extendBreak(delta uintptr) (unsafe.Pointer, error) {
	if f.capacity != 0 && delta > f.capacity {
		err := errors.New("fake: break exhausted")
		fatal(err.Error())

		return nil, err
	}

	if f.top+delta > uintptr(len(f.brk)) {
		err := errors.New("fake: break reserve exhausted")
		fatal(err.Error())

		return nil, err
	}

	if f.capacity != 0 {
		f.capacity -= delta
	}

	addr := unsafe.Pointer(&f.brk[f.top])
	f.top += delta

	return addr, nil
}

func (f *fakeSource) mapAnonymous(length uintptr) (unsafe.Pointer, error) {
	buf := make([]byte, length)
	f.regions = append(f.regions, buf)

	return unsafe.Pointer(&buf[0]), nil
}

func (f *fakeSource) unmap(addr unsafe.Pointer, length uintptr) error {
	return nil
}

func (f *fakeSource) pageSize() uintptr {
	return f.page
}

// withFakeSource installs a fresh fakeSource as osSource for the duration of
// a test and resets all allocator state, restoring the previous backend on
// cleanup.
func withFakeSource(t testingT) *fakeSource {
	t.Helper()

	prev := osSource
	fake := newFakeSource()
	osSource = fake
	Reset()

	t.Cleanup(func() {
		osSource = prev
		Reset()
	})

	return fake
}

// testingT is the minimal subset of *testing.T used by withFakeSource, kept
// narrow so it can be satisfied by *testing.T directly.
type testingT interface {
	Helper()
	Cleanup(func())
}
