// Package control talks to the CI server's TCP control port.
package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/alexander-akhmetov/hudson/internal/debug"
	"github.com/alexander-akhmetov/hudson/internal/domain"
	"github.com/alexander-akhmetov/hudson/internal/protocol"
)

// DefaultTimeout bounds the dial and the write.
const DefaultTimeout = 5 * time.Second

// ErrUnreachable means nothing accepted the connection on the control port.
var ErrUnreachable = errors.New("control port unreachable")

// Shutdown asks the server listening on ep's control port to stop.
// A zero timeout uses DefaultTimeout.
func Shutdown(ctx context.Context, ep domain.Endpoint, timeout time.Duration) error {
	if err := ep.Validate(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", ep.Address())
	if err != nil {
		return fmt.Errorf("%w at %s: %v", ErrUnreachable, ep, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write([]byte(protocol.ShutdownSignal)); err != nil {
		return fmt.Errorf("send shutdown to %s: %w", ep, err)
	}
	debug.Logf("control: sent shutdown to %s", ep)
	return nil
}
