package transport

import (
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/shm"
	"github.com/josephkirk/SandboxToyProjects-sub002/internal/telemetry"
)

// NewIPCHost creates the named mapping and returns the server-side transport.
// Mapping failure is fatal: no transport is returned.
func NewIPCHost(name string, logger telemetry.Logger) (*IPC, error) {
	block, err := shm.CreateBlock(name)
	if err != nil {
		return nil, err
	}
	return NewIPC(block, IPCServer, logger), nil
}

// NewIPCPeer opens an existing mapping as a client. A magic or version
// mismatch is logged as a warning and the transport proceeds best-effort for
// diagnostics.
func NewIPCPeer(name string, logger telemetry.Logger) (*IPC, error) {
	block, err := shm.OpenBlock(name)
	if err != nil {
		return nil, err
	}
	if err := block.ValidateHeader(); err != nil && logger != nil {
		logger.Printf("[ipc] header check failed, continuing best-effort: %v", err)
	}
	return NewIPC(block, IPCClient, logger), nil
}
