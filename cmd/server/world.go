package main

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/session"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
)

const moveSpeed = 160.0

// world is the built-in demonstration simulation: one movable avatar per
// player. Real deployments replace the handlers and the step function with
// their own game systems; the host loop does not care what the state is.
type world struct {
	running bool
	players []avatar
}

type avatar struct {
	x, y   float32
	dx, dy float32
}

func newWorld(playerCount int) *world {
	return &world{players: make([]avatar, playerCount)}
}

func registerHandlers(registry *proto.Registry, w *world, logger telemetry.Logger) {
	registry.Register(proto.CategorySystem, proto.CmdSystemStart, func(state any, cmd *proto.Command) {
		wd := state.(*world)
		wd.running = cmd.TargetPos[0] > 0
		if wd.running {
			logger.Printf("session started by player %d", cmd.PlayerID)
		} else {
			logger.Printf("session stopped by player %d", cmd.PlayerID)
		}
	})

	// Heartbeat; also carries the end-turn sentinel, which the synchronizer
	// consumes before dispatch.
	registry.Register(proto.CategorySystem, proto.CmdSystemSync, func(any, *proto.Command) {})

	registry.Register(proto.CategoryInput, proto.CmdInputMove, func(state any, cmd *proto.Command) {
		wd := state.(*world)
		if int(cmd.PlayerID) >= len(wd.players) {
			return
		}
		dx, dy := cmd.TargetPos[0], cmd.TargetPos[1]
		if length := math.Hypot(float64(dx), float64(dy)); length > 1 {
			dx = float32(float64(dx) / length)
			dy = float32(float64(dy) / length)
		}
		wd.players[cmd.PlayerID].dx = dx
		wd.players[cmd.PlayerID].dy = dy
	})
}

// step integrates intents and pushes state back out: one player-update
// command per avatar, plus a full snapshot frame on transports that stream
// frames.
func (w *world) step(host *session.Host) session.StepFunc {
	return func(tickNum uint64, dt float64) {
		if !w.running {
			return
		}
		for i := range w.players {
			p := &w.players[i]
			p.x += p.dx * moveSpeed * float32(dt)
			p.y += p.dy * moveSpeed * float32(dt)

			update := &proto.Command{
				PlayerID:  uint32(i),
				Category:  proto.CategoryState,
				Type:      proto.CmdStatePlayerUpdate,
				TargetPos: [3]float32{p.x, p.y, 0},
			}
			host.Broadcast(update)
		}
		host.PublishFrame(tickNum, float64(time.Now().UnixNano())/1e9, w.snapshot())
	}
}

// snapshot packs every avatar position into a little-endian blob.
func (w *world) snapshot() []byte {
	buf := make([]byte, 4+8*len(w.players))
	binary.LittleEndian.PutUint32(buf, uint32(len(w.players)))
	for i, p := range w.players {
		binary.LittleEndian.PutUint32(buf[4+8*i:], math.Float32bits(p.x))
		binary.LittleEndian.PutUint32(buf[8+8*i:], math.Float32bits(p.y))
	}
	return buf
}
