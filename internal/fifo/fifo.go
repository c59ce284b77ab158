// SPDX-License-Identifier: MIT
/*
Package fifo implements a fixed-capacity single-producer/single-consumer ring
of value slots used to hand blocks from the audio callback to the analyzer.

Thread Safety:
  - Exactly one goroutine may Push and exactly one goroutine may Pull.
  - Push and Pull never block, spin, lock or allocate (for slice payloads the
    slots are pre-sized by Prepare and data is copied element-wise).
  - Prepare is a cold-path operation and must not race with Push or Pull.

A full ring drops the newest item: Push simply reports false.
*/
package fifo

import "sync/atomic"

// Capacity is the number of slots used by the plugin's rings.
const Capacity = 30

// CopyFunc copies src into the slot dst. It runs on the producer side for
// Push and on the consumer side for Pull, so it must not retain src.
type CopyFunc[T any] func(dst *T, src *T)

// Fifo is a wait-free SPSC ring of T.
type Fifo[T any] struct {
	slots  []T
	assign CopyFunc[T]

	// Monotonic counters; slot index is counter % len(slots).
	// Padding keeps the producer and consumer cursors on separate cache lines.
	_     [8]uint64
	write atomic.Uint64
	_     [8]uint64
	read  atomic.Uint64
	_     [8]uint64
}

// New returns a ring with the given number of slots. A nil copy function
// falls back to plain assignment, which is only correct for value types.
func New[T any](capacity int, copyFn CopyFunc[T]) *Fifo[T] {
	if capacity <= 0 {
		capacity = Capacity
	}
	if copyFn == nil {
		copyFn = func(dst *T, src *T) { *dst = *src }
	}
	return &Fifo[T]{
		slots:  make([]T, capacity),
		assign: copyFn,
	}
}

// NewSlices returns a ring whose slots are []E. Data is copied into the
// slot's existing backing array, so Prepare must size the slots first for
// Push to be allocation-free.
func NewSlices[E any](capacity int) *Fifo[[]E] {
	return New(capacity, CopySlice[E])
}

// CopySlice copies src into dst, reusing dst's backing array when it is
// large enough.
func CopySlice[E any](dst *[]E, src *[]E) {
	n := len(*src)
	if cap(*dst) < n {
		*dst = make([]E, n)
	}
	*dst = (*dst)[:n]
	copy(*dst, *src)
}

// Prepare resets both cursors and runs init on every slot. Not safe while a
// producer or consumer is active.
func (f *Fifo[T]) Prepare(init func(slot *T)) {
	f.write.Store(0)
	f.read.Store(0)
	if init == nil {
		return
	}
	for i := range f.slots {
		init(&f.slots[i])
	}
}

// Zeroed returns a Prepare initialiser that sizes slice slots to n zeroed
// elements.
func Zeroed[E any](n int) func(slot *[]E) {
	return func(slot *[]E) {
		if cap(*slot) < n {
			*slot = make([]E, n)
			return
		}
		*slot = (*slot)[:n]
		clear(*slot)
	}
}

// Push copies item into the next free slot. It returns false and drops the
// item when every slot is still waiting to be read.
func (f *Fifo[T]) Push(item *T) bool {
	w := f.write.Load()
	r := f.read.Load()
	if w-r >= uint64(len(f.slots)) {
		return false
	}
	f.assign(&f.slots[w%uint64(len(f.slots))], item)
	f.write.Store(w + 1)
	return true
}

// Pull copies the oldest ready slot into dst. It returns false when nothing
// is ready.
func (f *Fifo[T]) Pull(dst *T) bool {
	r := f.read.Load()
	w := f.write.Load()
	if r == w {
		return false
	}
	f.assign(dst, &f.slots[r%uint64(len(f.slots))])
	f.read.Store(r + 1)
	return true
}

// AvailableForReading returns the number of slots ready to Pull.
func (f *Fifo[T]) AvailableForReading() int {
	return int(f.write.Load() - f.read.Load())
}

// Cap returns the number of slots.
func (f *Fifo[T]) Cap() int {
	return len(f.slots)
}
