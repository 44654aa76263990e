// SPDX-License-Identifier: MPL-2.0

package cacheserver

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
)

// ErrNoFreePort indicates the OS could not provide a free TCP port.
var ErrNoFreePort = errors.New("no free TCP port available")

// FreePort asks the OS for a currently free TCP port on the loopback
// interface. The listener is closed before returning, so the port is free
// but not reserved; the caller is expected to bind it promptly.
func FreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoFreePort, err)
	}
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected listener address %T", ErrNoFreePort, listener.Addr())
	}
	return addr.Port, nil
}

// NewToken generates a 64-character lowercase hex token from 32 bytes of
// cryptographically secure randomness. Uniqueness relies on entropy; no
// collision check is performed.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
