// Package shm implements the shared-memory contract between the simulation
// host and co-located clients: a fixed-layout block containing a frame ring
// for state streaming and two single-producer/single-consumer command rings.
//
// Every offset below is part of the cross-process ABI. The layout is packed
// little-endian with no padding and must match byte-for-byte in every process
// mapping the segment.
package shm

import "github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"

const (
	// Magic is the sentinel stored in the first four bytes of the block.
	Magic uint32 = 0x12345678
	// Version is bumped whenever the block layout changes.
	Version uint32 = 1

	// DefaultName identifies the named mapping both processes open.
	DefaultName = "OdinVampireSurvival"

	// MaxFrameSize caps the opaque state blob carried by one frame slot.
	MaxFrameSize = 16 * 1024
	// FrameSlots is the size of the frame ring; slots are indexed by
	// frame_number mod FrameSlots.
	FrameSlots = 64

	// InputRingSlots sizes the client-to-server command ring.
	InputRingSlots = 16
	// EntityRingSlots sizes the server-to-client command ring.
	EntityRingSlots = 64
)

// Frame slot layout: frame_number u64, timestamp f64, data_size u32, data.
const (
	frameNumberOff = 0
	timestampOff   = 8
	dataSizeOff    = 16
	frameDataOff   = 20

	// FrameSlotSize is the packed size of one frame slot.
	FrameSlotSize = frameDataOff + MaxFrameSize
)

// Command ring layout: head i32, tail i32, commands[N].
const ringHeaderSize = 8

// RingBytes returns the packed size of a command ring with the given number
// of slots.
func RingBytes(slots int) int {
	return ringHeaderSize + slots*proto.CommandSize
}

// Block layout: magic u32, version u32, frames, latest_frame_index i32,
// input_ring, entity_ring.
const (
	magicOff       = 0
	versionOff     = 4
	framesOff      = 8
	latestFrameOff = framesOff + FrameSlots*FrameSlotSize
	inputRingOff   = latestFrameOff + 4
)

var (
	entityRingOff = inputRingOff + RingBytes(InputRingSlots)

	// BlockSize is the total byte size of the shared mapping.
	BlockSize = entityRingOff + RingBytes(EntityRingSlots)
)
