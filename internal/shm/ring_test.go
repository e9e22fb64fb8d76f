package shm

import (
	"bytes"
	"fmt"
	"testing"
	"unsafe"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
)

func scratchRing(t *testing.T, slots int) *Ring {
	t.Helper()
	size := RingBytes(slots)
	words := make([]uint64, (size+7)/8)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
	ring, err := NewRing(mem, 0, slots)
	if err != nil {
		t.Fatalf("NewRing(%d): %v", slots, err)
	}
	return ring
}

func marshalCommand(t *testing.T, cmd proto.Command) []byte {
	t.Helper()
	data, err := cmd.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestRingFIFOOrder(t *testing.T) {
	ring := scratchRing(t, 16)
	const pushes = 10

	var sent [][]byte
	for i := 0; i < pushes; i++ {
		cmd := proto.Command{
			Sequence: uint32(i),
			Tick:     uint64(100 + i),
			PlayerID: uint32(i % 3),
			Category: proto.CategoryInput,
			Type:     proto.CmdInputMove,
		}
		cmd.SetData([]byte(fmt.Sprintf("cmd-%d", i)))
		data := marshalCommand(t, cmd)
		if !ring.Push(data) {
			t.Fatalf("push %d failed below capacity", i)
		}
		sent = append(sent, data)
	}
	if ring.Len() != pushes {
		t.Fatalf("Len = %d, want %d", ring.Len(), pushes)
	}

	buf := make([]byte, proto.CommandSize)
	for i := 0; i < pushes; i++ {
		if !ring.Pop(buf) {
			t.Fatalf("pop %d failed with %d commands queued", i, pushes-i)
		}
		if !bytes.Equal(buf, sent[i]) {
			t.Fatalf("pop %d returned different bytes than pushed", i)
		}
	}
	if ring.Pop(buf) {
		t.Fatalf("expected empty ring after draining")
	}
}

func TestRingCapacityIsSlotsMinusOne(t *testing.T) {
	for _, slots := range []int{2, 4, 16, 64} {
		t.Run(fmt.Sprintf("slots-%d", slots), func(t *testing.T) {
			ring := scratchRing(t, slots)
			payload := marshalCommand(t, proto.Command{Category: proto.CategoryInput})

			for i := 0; i < slots-1; i++ {
				if ring.IsFull() {
					t.Fatalf("ring full after %d of %d pushes", i, slots-1)
				}
				if !ring.Push(payload) {
					t.Fatalf("push %d failed below capacity", i)
				}
			}
			if !ring.IsFull() {
				t.Fatalf("ring not full after %d pushes", slots-1)
			}
			if ring.Push(payload) {
				t.Fatalf("push against full ring must drop silently")
			}
			if ring.Dropped() != 1 {
				t.Fatalf("Dropped = %d, want 1", ring.Dropped())
			}
			if ring.Len() != slots-1 {
				t.Fatalf("Len = %d, want %d", ring.Len(), slots-1)
			}
		})
	}
}

func TestRingWraparound(t *testing.T) {
	ring := scratchRing(t, 4)
	buf := make([]byte, proto.CommandSize)

	seq := uint32(0)
	push := func() {
		cmd := proto.Command{Sequence: seq}
		seq++
		if !ring.Push(marshalCommand(t, cmd)) {
			t.Fatalf("push seq=%d failed", seq-1)
		}
	}

	// Cycle well past the slot count so head and tail wrap several times.
	var expect uint32
	for round := 0; round < 10; round++ {
		push()
		push()
		for i := 0; i < 2; i++ {
			if !ring.Pop(buf) {
				t.Fatalf("pop failed in round %d", round)
			}
			var cmd proto.Command
			if err := cmd.UnmarshalBinary(buf); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if cmd.Sequence != expect {
				t.Fatalf("got seq %d, want %d", cmd.Sequence, expect)
			}
			expect++
		}
	}
}

func TestRingRejectsWrongSizePayload(t *testing.T) {
	ring := scratchRing(t, 4)
	if ring.Push(make([]byte, proto.CommandSize-1)) {
		t.Fatalf("expected undersized payload to be rejected")
	}
	if ring.Push(make([]byte, proto.CommandSize+1)) {
		t.Fatalf("expected oversized payload to be rejected")
	}
	if ring.Dropped() != 0 {
		t.Fatalf("size rejects must not count as overflow drops")
	}
}

func TestNewRingBoundsChecks(t *testing.T) {
	mem := make([]byte, RingBytes(4))
	if _, err := NewRing(mem, 0, 1); err == nil {
		t.Fatalf("expected single-slot ring to be rejected")
	}
	if _, err := NewRing(mem, 8, 4); err == nil {
		t.Fatalf("expected out-of-bounds ring to be rejected")
	}
	if _, err := NewRing(mem, 2, 2); err == nil {
		t.Fatalf("expected misaligned base to be rejected")
	}
}
