// Command clientsim is a headless test client. It connects to a running
// host over any transport variant, starts the session, streams synthetic
// movement input, and logs the state updates it receives back.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josephkirk/SandboxToyProjects-sub002/internal/proto"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/shm"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/transport"
)

func main() {
	var (
		variant  = flag.String("transport", "shm", "transport variant: shm, tcp, udp, hybrid, or ws")
		addr     = flag.String("addr", "127.0.0.1:7777", "reliable server address (tcp, hybrid, ws)")
		udpAddr  = flag.String("udp-addr", "127.0.0.1:7777", "lossy server address (udp)")
		shmName  = flag.String("shm-name", shm.DefaultName, "shared-memory mapping name")
		playerID = flag.Uint("player", 0, "player id to send as")
		rate     = flag.Duration("input-interval", 50*time.Millisecond, "interval between movement inputs")
	)
	flag.Parse()

	stdLogger := log.New(os.Stdout, "", log.LstdFlags)
	logger := telemetry.WrapLogger(stdLogger)

	trans, peer, err := connect(*variant, *addr, *udpAddr, *shmName, logger)
	if err != nil {
		stdLogger.Fatalf("connect: %v", err)
	}
	defer trans.Shutdown()
	logger.Printf("connected over %s as player %d", *variant, *playerID)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	var sequence uint32
	send := func(cmd *proto.Command) {
		sequence++
		cmd.Sequence = sequence
		cmd.PlayerID = uint32(*playerID)
		raw, err := cmd.MarshalBinary()
		if err != nil {
			logger.Printf("marshal: %v", err)
			return
		}
		if !trans.Send(peer, raw) {
			logger.Printf("send dropped: %s/%#x", cmd.Category, cmd.Type)
		}
	}

	send(&proto.Command{
		Category:  proto.CategorySystem,
		Type:      proto.CmdSystemStart,
		TargetPos: [3]float32{1, 0, 0},
	})

	ticker := time.NewTicker(*rate)
	defer ticker.Stop()

	recvBuf := make([]byte, proto.CommandSize)
	var incoming proto.Command
	start := time.Now()
	for {
		select {
		case <-sigs:
			send(&proto.Command{
				Category:  proto.CategorySystem,
				Type:      proto.CmdSystemStart,
				TargetPos: [3]float32{-1, 0, 0},
			})
			return
		case now := <-ticker.C:
			// Walk a slow circle so positions visibly change.
			angle := now.Sub(start).Seconds() * 0.5
			send(&proto.Command{
				Category:  proto.CategoryInput,
				Type:      proto.CmdInputMove,
				TargetPos: [3]float32{float32(math.Cos(angle)), float32(math.Sin(angle)), 0},
			})

			for {
				_, n, found := trans.Recv(recvBuf)
				if !found {
					break
				}
				if err := incoming.UnmarshalBinary(recvBuf[:n]); err != nil {
					logger.Printf("discarding malformed update: %v", err)
					continue
				}
				if incoming.Category == proto.CategoryState && incoming.Type == proto.CmdStatePlayerUpdate {
					logger.Printf("player %d at (%.1f, %.1f) tick %d",
						incoming.PlayerID, incoming.TargetPos[0], incoming.TargetPos[1], incoming.Tick)
				}
			}
		}
	}
}

func connect(variant, addr, udpAddr, shmName string, logger telemetry.Logger) (transport.Transport, transport.PeerID, error) {
	switch variant {
	case "shm":
		return connectSHM(shmName, logger)
	case "tcp":
		trans := transport.NewTCPClient(logger, nil)
		peer, ok := trans.Connect(addr)
		if !ok {
			return nil, transport.PeerNone, fmt.Errorf("dial tcp %s failed", addr)
		}
		return trans, peer, nil
	case "udp":
		trans, err := transport.ListenUDP(":0", logger, nil)
		if err != nil {
			return nil, transport.PeerNone, err
		}
		peer, ok := trans.Connect(udpAddr)
		if !ok {
			trans.Shutdown()
			return nil, transport.PeerNone, fmt.Errorf("register udp %s failed", udpAddr)
		}
		return trans, peer, nil
	case "hybrid":
		reliable := transport.NewTCPClient(logger, nil)
		lossy, err := transport.ListenUDP(":0", logger, nil)
		if err != nil {
			return nil, transport.PeerNone, err
		}
		trans := transport.NewHybrid(reliable, lossy)
		peer, ok := trans.Connect(addr)
		if !ok {
			trans.Shutdown()
			return nil, transport.PeerNone, fmt.Errorf("dial hybrid %s failed", addr)
		}
		return trans, peer, nil
	case "ws":
		trans := transport.NewWS(logger, nil)
		peer, ok := trans.Connect("ws://" + addr + "/ws")
		if !ok {
			return nil, transport.PeerNone, fmt.Errorf("dial ws %s failed", addr)
		}
		return trans, peer, nil
	default:
		return nil, transport.PeerNone, fmt.Errorf("unknown transport %q", variant)
	}
}
