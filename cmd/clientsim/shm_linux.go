package main

import (
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/transport"
)

func connectSHM(name string, logger telemetry.Logger) (transport.Transport, transport.PeerID, error) {
	trans, err := transport.NewIPCPeer(name, logger)
	if err != nil {
		return nil, transport.PeerNone, err
	}
	peer, _ := trans.Connect("")
	return trans, peer, nil
}
