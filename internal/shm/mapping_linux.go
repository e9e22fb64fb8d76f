//go:build linux

package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

func shmPath(name string) string {
	return filepath.Join("/dev/shm", name)
}

// CreateBlock creates the named mapping, sizes it, zeroes it, and stamps the
// header. The creating process owns the mapping: Close unmaps and unlinks it.
// Any failure here is fatal to transport construction; no partially
// constructed block is returned.
func CreateBlock(name string) (*Block, error) {
	path := shmPath(name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create shared memory %s: %w", path, err)
	}
	if err := file.Truncate(int64(BlockSize)); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("size shared memory %s: %w", path, err)
	}
	mem, err := unix.Mmap(int(file.Fd()), 0, BlockSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("map shared memory %s: %w", path, err)
	}
	closer := func() error {
		unmapErr := unix.Munmap(mem)
		closeErr := file.Close()
		removeErr := os.Remove(path)
		if unmapErr != nil {
			return fmt.Errorf("unmap %s: %w", path, unmapErr)
		}
		if closeErr != nil {
			return closeErr
		}
		return removeErr
	}
	block, err := newBlock(mem, closer)
	if err != nil {
		closer()
		return nil, err
	}
	// Truncate on a fresh file yields zeroed pages; stale mappings from a
	// previous run get re-stamped here either way.
	for i := range mem {
		mem[i] = 0
	}
	block.Initialize()
	return block, nil
}

// OpenBlock maps an existing named mapping read/write. A header mismatch is
// returned alongside the block so callers can log it and continue best-effort
// for diagnostics.
func OpenBlock(name string) (*Block, error) {
	path := shmPath(name)
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open shared memory %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat shared memory %s: %w", path, err)
	}
	if info.Size() < int64(BlockSize) {
		file.Close()
		return nil, fmt.Errorf("shared memory %s is %d bytes, want %d", path, info.Size(), BlockSize)
	}
	mem, err := unix.Mmap(int(file.Fd()), 0, BlockSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("map shared memory %s: %w", path, err)
	}
	closer := func() error {
		unmapErr := unix.Munmap(mem)
		closeErr := file.Close()
		if unmapErr != nil {
			return fmt.Errorf("unmap %s: %w", path, unmapErr)
		}
		return closeErr
	}
	block, err := newBlock(mem, closer)
	if err != nil {
		closer()
		return nil, err
	}
	return block, nil
}
