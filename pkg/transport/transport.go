// Package transport implements the datagram-transport collaborator
// interface spec.md §6.3 assumes as an external dependency of the TFTP
// engine.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// ErrTimeout is returned by Recv when no datagram arrived before the
// deadline passed in.
var ErrTimeout = errors.New("transport: receive timed out")

// Transport is the narrow send/receive-of-raw-bytes interface the engine
// depends on. The server owns exactly one Transport for its lifetime
// (spec.md §5): it is the server's sole transfer identifier.
type Transport interface {
	Recv(buf []byte, timeout time.Duration) (n int, peer net.Addr, err error)
	Send(buf []byte, peer net.Addr) (n int, err error)
	LocalAddr() net.Addr
	Close() error
}

// UDPTransport implements Transport over a single bound UDP socket.
type UDPTransport struct {
	conn net.PacketConn
}

// Bind opens a UDP socket on port ("69", "0", ...), given without the
// leading colon.
func Bind(port string) (*UDPTransport, error) {
	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%s", port))
	if err != nil {
		return nil, fmt.Errorf("transport: bind %s: %w", port, err)
	}

	return &UDPTransport{conn: conn}, nil
}

func (t *UDPTransport) Recv(buf []byte, timeout time.Duration) (int, net.Addr, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, fmt.Errorf("transport: set read deadline: %w", err)
	}

	n, peer, err := t.conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, nil, ErrTimeout
		}

		return 0, nil, err
	}

	return n, peer, nil
}

func (t *UDPTransport) Send(buf []byte, peer net.Addr) (int, error) {
	return t.conn.WriteTo(buf, peer)
}

func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *UDPTransport) Close() error {
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("transport: close: %w", err)
	}

	return nil
}
