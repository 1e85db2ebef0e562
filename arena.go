package bounce

import (
	"fmt"
	"unsafe"
)

// DefaultTempAllocatorSize pre-allocates 10 MiB, enough for the transient
// pair and contact buffers of the busiest step by a wide margin.
const DefaultTempAllocatorSize = 10 * 1024 * 1024

// TempAllocator is a fixed-capacity bump arena for allocations that live only
// for the duration of one simulation step. It has no grow or fallback policy:
// exhaustion is a fatal allocation failure for the step. A TempAllocator must
// not be shared by two in-flight steps.
type TempAllocator struct {
	buf       []byte
	offset    int
	highWater int
}

// NewTempAllocator creates an arena with the given capacity in bytes;
// size <= 0 selects DefaultTempAllocatorSize.
func NewTempAllocator(size int) *TempAllocator {
	if size <= 0 {
		size = DefaultTempAllocatorSize
	}
	return &TempAllocator{buf: make([]byte, size)}
}

// Reset discards every allocation. Called at the start of each step.
func (ta *TempAllocator) Reset() {
	ta.offset = 0
}

// Capacity returns the arena size in bytes.
func (ta *TempAllocator) Capacity() int {
	return len(ta.buf)
}

// HighWater returns the largest number of bytes ever in use at once, for
// sizing diagnostics.
func (ta *TempAllocator) HighWater() int {
	return ta.highWater
}

func (ta *TempAllocator) alloc(size, align int) ([]byte, error) {
	offset := (ta.offset + align - 1) &^ (align - 1)
	if offset+size > len(ta.buf) {
		return nil, fmt.Errorf("%w: need %d bytes, %d of %d in use",
			ErrAllocationExhausted, size, ta.offset, len(ta.buf))
	}
	ta.offset = offset + size
	if ta.offset > ta.highWater {
		ta.highWater = ta.offset
	}

	block := ta.buf[offset : offset+size]
	clear(block)
	return block, nil
}

// TempAlloc carves a zeroed slice of n values of type T out of the arena.
// Pointers stored in the returned slice are not traced by the garbage
// collector, so anything referenced from it must be kept alive elsewhere (the
// world's body registry does this for body pointers).
func TempAlloc[T any](ta *TempAllocator, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}

	var zero T
	size := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))

	block, err := ta.alloc(n*size, align)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&block[0])), n), nil
}
