package shm

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"
)

// Block is a mapped SharedMemoryBlock. The server process creates and owns
// the backing mapping; clients open an existing one. Rings and frame slots
// are zero-initialized at creation and never resized.
type Block struct {
	mem    []byte
	closer func() error

	input  *Ring
	entity *Ring
}

func newBlock(mem []byte, closer func() error) (*Block, error) {
	if len(mem) < BlockSize {
		return nil, fmt.Errorf("mapping too small: %d < %d", len(mem), BlockSize)
	}
	input, err := NewRing(mem, inputRingOff, InputRingSlots)
	if err != nil {
		return nil, fmt.Errorf("input ring: %w", err)
	}
	entity, err := NewRing(mem, entityRingOff, EntityRingSlots)
	if err != nil {
		return nil, fmt.Errorf("entity ring: %w", err)
	}
	return &Block{mem: mem, closer: closer, input: input, entity: entity}, nil
}

// NewInProcessBlock allocates a block in ordinary heap memory. Used by tests
// and by single-process sessions that skip the OS mapping.
func NewInProcessBlock() *Block {
	// Backing the region with uint64s guarantees the alignment the atomic
	// cursor fields need.
	words := make([]uint64, (BlockSize+7)/8)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), BlockSize)
	block, err := newBlock(mem, nil)
	if err != nil {
		panic(err)
	}
	block.Initialize()
	return block
}

// Initialize stamps the header and resets the frame index. The creating
// process calls this exactly once on a zeroed mapping.
func (b *Block) Initialize() {
	binary.LittleEndian.PutUint32(b.mem[magicOff:], Magic)
	binary.LittleEndian.PutUint32(b.mem[versionOff:], Version)
	atomic.StoreInt32(b.latestFramePtr(), -1)
}

// Header returns the magic and version stamped into the block.
func (b *Block) Header() (magic, version uint32) {
	return binary.LittleEndian.Uint32(b.mem[magicOff:]),
		binary.LittleEndian.Uint32(b.mem[versionOff:])
}

// ValidateHeader checks the magic and version. A mismatch is a startup
// warning, not necessarily fatal: callers may keep the mapping for
// diagnostics.
func (b *Block) ValidateHeader() error {
	magic, version := b.Header()
	if magic != Magic {
		return fmt.Errorf("magic mismatch: got %#x, want %#x", magic, Magic)
	}
	if version != Version {
		return fmt.Errorf("version mismatch: got %d, want %d", version, Version)
	}
	return nil
}

// InputRing is the client-to-server command ring.
func (b *Block) InputRing() *Ring { return b.input }

// EntityRing is the server-to-client command ring.
func (b *Block) EntityRing() *Ring { return b.entity }

func (b *Block) latestFramePtr() *int32 {
	return (*int32)(unsafe.Pointer(&b.mem[latestFrameOff]))
}

// PublishFrame writes a full frame slot at frame mod FrameSlots and then
// publishes the slot index. Only the simulation writes frames. Readers that
// lag more than FrameSlots frames behind may observe a torn or newer frame;
// publication is best-effort latest-wins, not a delivery guarantee.
func (b *Block) PublishFrame(frame uint64, timestamp float64, payload []byte) bool {
	if len(payload) > MaxFrameSize {
		return false
	}
	index := int32(frame % FrameSlots)
	off := framesOff + int(index)*FrameSlotSize
	slot := b.mem[off : off+FrameSlotSize]
	binary.LittleEndian.PutUint64(slot[frameNumberOff:], frame)
	binary.LittleEndian.PutUint64(slot[timestampOff:], math.Float64bits(timestamp))
	binary.LittleEndian.PutUint32(slot[dataSizeOff:], uint32(len(payload)))
	copy(slot[frameDataOff:], payload)
	atomic.StoreInt32(b.latestFramePtr(), index)
	return true
}

// Frame describes one published state snapshot.
type Frame struct {
	Number    uint64
	Timestamp float64
	Data      []byte
}

// LatestFrame copies the most recently published frame into buf and returns
// its metadata. It reports false before the first publication. buf must hold
// MaxFrameSize bytes.
func (b *Block) LatestFrame(buf []byte) (Frame, bool) {
	index := atomic.LoadInt32(b.latestFramePtr())
	if index < 0 || index >= FrameSlots {
		return Frame{}, false
	}
	off := framesOff + int(index)*FrameSlotSize
	slot := b.mem[off : off+FrameSlotSize]
	size := binary.LittleEndian.Uint32(slot[dataSizeOff:])
	if size > MaxFrameSize || int(size) > len(buf) {
		return Frame{}, false
	}
	n := copy(buf[:size], slot[frameDataOff:frameDataOff+size])
	return Frame{
		Number:    binary.LittleEndian.Uint64(slot[frameNumberOff:]),
		Timestamp: math.Float64frombits(binary.LittleEndian.Uint64(slot[timestampOff:])),
		Data:      buf[:n],
	}, true
}

// Close releases the backing mapping, if any. The client side must tolerate
// the mapping disappearing when the server shuts down first.
func (b *Block) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	closer := b.closer
	b.closer = nil
	return closer()
}
