// SPDX-License-Identifier: MPL-2.0

package cacheserver

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultReadinessTimeout bounds how long the launch phase waits for
	// the server's port to accept connections.
	DefaultReadinessTimeout = 30 * time.Second

	// readinessPollInterval is the pause between connection attempts.
	readinessPollInterval = 500 * time.Millisecond

	// readinessDialTimeout bounds a single connection attempt.
	readinessDialTimeout = time.Second
)

// DialFunc attempts one connection to address and reports whether it
// succeeded. Production code uses netDial; tests substitute their own.
type DialFunc func(ctx context.Context, network, address string) error

// netDial dials and immediately closes the connection.
func netDial(ctx context.Context, network, address string) error {
	dialCtx, cancel := context.WithTimeout(ctx, readinessDialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, network, address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// waitForPort polls until the loopback port accepts a TCP connection,
// retrying at a constant interval until timeout elapses. The returned
// error carries the user-facing timeout message verbatim.
func waitForPort(ctx context.Context, dial DialFunc, port int, timeout time.Duration) error {
	if dial == nil {
		dial = netDial
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	policy := backoff.WithContext(backoff.NewConstantBackOff(readinessPollInterval), waitCtx)

	err := backoff.Retry(func() error {
		return dial(waitCtx, "tcp", address)
	}, policy)
	if err != nil {
		return fmt.Errorf("Port %d did not open within %d seconds", port, int(timeout.Seconds()))
	}
	return nil
}
