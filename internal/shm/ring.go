package shm

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
)

// Ring is a single-producer/single-consumer command ring overlaid on a byte
// region. The head and tail cursors live inside the region and are published
// atomically, so one process may push while another pops without locks.
// Exactly one producer and one consumer per ring; two writers to the same
// head is undefined behavior.
//
// Usable capacity is slots-1: one slot stays empty so full and empty states
// are distinguishable. A push against a full ring drops the command silently;
// the drop is counted locally but never surfaced to the producer. This is the
// documented lossy-on-overflow policy, not an oversight.
type Ring struct {
	mem     []byte
	base    int
	slots   int32
	dropped atomic.Uint64
}

// NewRing overlays a ring with the given slot count at base within mem.
func NewRing(mem []byte, base, slots int) (*Ring, error) {
	if slots < 2 {
		return nil, fmt.Errorf("ring needs at least 2 slots, got %d", slots)
	}
	if base < 0 || base+RingBytes(slots) > len(mem) {
		return nil, fmt.Errorf("ring [%d, %d) out of bounds for %d-byte region",
			base, base+RingBytes(slots), len(mem))
	}
	if base%4 != 0 {
		return nil, fmt.Errorf("ring base %d not 4-byte aligned", base)
	}
	return &Ring{mem: mem, base: base, slots: int32(slots)}, nil
}

func (r *Ring) headPtr() *int32 {
	return (*int32)(unsafe.Pointer(&r.mem[r.base]))
}

func (r *Ring) tailPtr() *int32 {
	return (*int32)(unsafe.Pointer(&r.mem[r.base+4]))
}

func (r *Ring) slot(index int32) []byte {
	off := r.base + ringHeaderSize + int(index)*proto.CommandSize
	return r.mem[off : off+proto.CommandSize]
}

// Push copies one marshalled command into the ring. It is producer-only.
// Payloads that are not exactly one command in size are rejected, and a full
// ring drops the command and reports false.
func (r *Ring) Push(payload []byte) bool {
	if len(payload) != proto.CommandSize {
		return false
	}
	head := atomic.LoadInt32(r.headPtr())
	tail := atomic.LoadInt32(r.tailPtr())
	next := (head + 1) % r.slots
	if next == tail {
		r.dropped.Add(1)
		return false
	}
	copy(r.slot(head), payload)
	// Publishing head after the slot write is what keeps the consumer from
	// observing a half-written command.
	atomic.StoreInt32(r.headPtr(), next)
	return true
}

// Pop copies the oldest command into buf. It is consumer-only and reports
// false when the ring is empty. buf must hold at least one command.
func (r *Ring) Pop(buf []byte) bool {
	if len(buf) < proto.CommandSize {
		return false
	}
	head := atomic.LoadInt32(r.headPtr())
	tail := atomic.LoadInt32(r.tailPtr())
	if head == tail {
		return false
	}
	copy(buf[:proto.CommandSize], r.slot(tail))
	atomic.StoreInt32(r.tailPtr(), (tail+1)%r.slots)
	return true
}

// Len reports the number of commands currently queued.
func (r *Ring) Len() int {
	head := atomic.LoadInt32(r.headPtr())
	tail := atomic.LoadInt32(r.tailPtr())
	return int((head - tail + r.slots) % r.slots)
}

// IsEmpty reports whether the ring holds no commands.
func (r *Ring) IsEmpty() bool {
	return atomic.LoadInt32(r.headPtr()) == atomic.LoadInt32(r.tailPtr())
}

// IsFull reports whether the next push would drop.
func (r *Ring) IsFull() bool {
	head := atomic.LoadInt32(r.headPtr())
	tail := atomic.LoadInt32(r.tailPtr())
	return (head+1)%r.slots == tail
}

// Capacity reports the usable slot count (slots-1).
func (r *Ring) Capacity() int {
	return int(r.slots) - 1
}

// Dropped reports how many pushes this process dropped against a full ring.
// The counter is process-local, not part of the shared layout.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}
