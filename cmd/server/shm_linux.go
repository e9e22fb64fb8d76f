package main

import (
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/transport"
)

func newSHMTransport(name string, logger telemetry.Logger) (transport.Transport, error) {
	return transport.NewIPCHost(name, logger)
}
