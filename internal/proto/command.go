// Package proto defines the fixed-layout command wire format shared by every
// transport and by the shared-memory rings. The byte layout is the
// cross-process contract: all fields are little-endian, packed, and must not
// be reordered or padded.
package proto

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Category selects the dispatch family of a command.
type Category uint16

const (
	CategoryNone Category = iota
	CategorySystem
	CategoryInput
	CategoryState
	CategoryAction
	CategoryMovement
	CategoryEvent
)

// String returns the lowercase name used in logs and routing diagnostics.
func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategorySystem:
		return "system"
	case CategoryInput:
		return "input"
	case CategoryState:
		return "state"
	case CategoryAction:
		return "action"
	case CategoryMovement:
		return "movement"
	case CategoryEvent:
		return "event"
	default:
		return fmt.Sprintf("category(%d)", uint16(c))
	}
}

// Command types. Values are per-category, so Input and State both start at 1.
const (
	// CmdSystemStart starts the session when target_pos.x > 0 and ends it
	// when target_pos.x < 0.
	CmdSystemStart uint16 = 0x81
	// CmdSystemSync is the per-tick heartbeat. In turn-based sessions a sync
	// with target_pos.x < 0 doubles as the end-turn signal.
	CmdSystemSync uint16 = 0x82

	CmdInputMove uint16 = 0x01

	CmdStatePlayerUpdate uint16 = 0x01
)

const (
	// MaxDataLength bounds the opaque payload carried inside a command.
	MaxDataLength = 128

	// CommandSize is the exact marshalled size of a Command in bytes.
	CommandSize = 40 + MaxDataLength
)

// Field offsets within a marshalled command. The hybrid transport and the
// shared-memory rings peek at these without a full unmarshal.
const (
	offSequence     = 0
	offTick         = 4
	offPlayerID     = 12
	OffCategory     = 16
	offType         = 18
	offFlags        = 20
	offTargetEntity = 22
	offTargetPos    = 26
	offDataLength   = 38
	offData         = 40
)

// Command is the unit of all communication between the simulation host and
// its clients. Bytes of Data beyond DataLength are undefined and must not be
// interpreted.
type Command struct {
	Sequence     uint32
	Tick         uint64
	PlayerID     uint32
	Category     Category
	Type         uint16
	Flags        uint16
	TargetEntity uint32
	TargetPos    [3]float32
	DataLength   uint16
	Data         [MaxDataLength]byte
}

// SetData copies payload into the command and records its length. Payloads
// longer than MaxDataLength are rejected.
func (c *Command) SetData(payload []byte) bool {
	if len(payload) > MaxDataLength {
		return false
	}
	copy(c.Data[:], payload)
	c.DataLength = uint16(len(payload))
	return true
}

// Payload returns the defined portion of the opaque data.
func (c *Command) Payload() []byte {
	n := c.DataLength
	if n > MaxDataLength {
		n = MaxDataLength
	}
	return c.Data[:n]
}

// AppendTo marshals the command into buf, which must hold CommandSize bytes.
func (c *Command) AppendTo(buf []byte) error {
	if len(buf) < CommandSize {
		return fmt.Errorf("command buffer too small: %d < %d", len(buf), CommandSize)
	}
	if c.DataLength > MaxDataLength {
		return fmt.Errorf("data length %d exceeds %d", c.DataLength, MaxDataLength)
	}
	binary.LittleEndian.PutUint32(buf[offSequence:], c.Sequence)
	binary.LittleEndian.PutUint64(buf[offTick:], c.Tick)
	binary.LittleEndian.PutUint32(buf[offPlayerID:], c.PlayerID)
	binary.LittleEndian.PutUint16(buf[OffCategory:], uint16(c.Category))
	binary.LittleEndian.PutUint16(buf[offType:], c.Type)
	binary.LittleEndian.PutUint16(buf[offFlags:], c.Flags)
	binary.LittleEndian.PutUint32(buf[offTargetEntity:], c.TargetEntity)
	for i, v := range c.TargetPos {
		binary.LittleEndian.PutUint32(buf[offTargetPos+4*i:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint16(buf[offDataLength:], c.DataLength)
	copy(buf[offData:offData+MaxDataLength], c.Data[:])
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Command) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CommandSize)
	if err := c.AppendTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The input must be
// exactly one marshalled command.
func (c *Command) UnmarshalBinary(data []byte) error {
	if len(data) < CommandSize {
		return fmt.Errorf("command too short: %d < %d", len(data), CommandSize)
	}
	c.Sequence = binary.LittleEndian.Uint32(data[offSequence:])
	c.Tick = binary.LittleEndian.Uint64(data[offTick:])
	c.PlayerID = binary.LittleEndian.Uint32(data[offPlayerID:])
	c.Category = Category(binary.LittleEndian.Uint16(data[OffCategory:]))
	c.Type = binary.LittleEndian.Uint16(data[offType:])
	c.Flags = binary.LittleEndian.Uint16(data[offFlags:])
	c.TargetEntity = binary.LittleEndian.Uint32(data[offTargetEntity:])
	for i := range c.TargetPos {
		c.TargetPos[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[offTargetPos+4*i:]))
	}
	c.DataLength = binary.LittleEndian.Uint16(data[offDataLength:])
	copy(c.Data[:], data[offData:offData+MaxDataLength])
	return nil
}

// PeekCategory reads the category field from a marshalled command without
// decoding the rest. Used by the hybrid transport to route traffic.
func PeekCategory(data []byte) (Category, bool) {
	if len(data) < OffCategory+2 {
		return CategoryNone, false
	}
	return Category(binary.LittleEndian.Uint16(data[OffCategory:])), true
}
