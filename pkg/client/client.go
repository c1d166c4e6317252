// Package client is a minimal TFTP client used to drive the server
// end-to-end in integration tests and from cmd/tftpc. It is adapted from
// the teacher's pkg/client package; the interactive REPL (cli.go,
// evaluator.go in the teacher) was dropped as out of spec.md's scope —
// what remains is the Connect/Get/Put wire-protocol driver, reused
// directly by tests.
package client

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/wjemai/tftpd/pkg/wire"
)

const defaultTimeout = 5 * time.Second

// Connector is the client-side surface: dial a server, then fetch or
// push a single file per call.
type Connector interface {
	Connect(addr string) error
	Get(ctx context.Context, filename, mode string) ([]byte, error)
	Put(ctx context.Context, filename, mode string, data []byte) error
	Close() error
}

type Client struct {
	conn    net.Conn
	l       *zap.SugaredLogger
	timeout time.Duration
}

func NewClient(l *zap.SugaredLogger) *Client {
	return &Client{l: l, timeout: defaultTimeout}
}

func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *Client) Connect(addr string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("error while dialing %s: %w", addr, err)
	}

	c.conn = conn

	return nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Get issues an RRQ and returns the reassembled file contents.
func (c *Client) Get(ctx context.Context, filename, mode string) ([]byte, error) {
	req := &wire.Request{Opcode: wire.OpCodeRRQ, Filename: filename, Mode: mode}

	if err := c.sendRequest(req); err != nil {
		return nil, err
	}

	var out bytes.Buffer

	var expected uint16 = 1

	buf := make([]byte, wire.DatagramSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("error while setting read deadline: %w", err)
		}

		n, err := c.conn.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("error while reading data: %w", err)
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}

		switch p := pkt.(type) {
		case *wire.Data:
			if p.BlockNum != expected {
				continue
			}

			out.Write(p.Payload)

			if err := c.ack(p.BlockNum); err != nil {
				return nil, err
			}

			isFinal := len(p.Payload) < wire.MaxPayloadSize
			expected++

			if isFinal {
				return out.Bytes(), nil
			}
		case *wire.Error:
			return nil, fmt.Errorf("tftp: %s (code %d)", p.ErrMsg, p.ErrorCode)
		default:
			continue
		}
	}
}

// Put issues a WRQ and streams data to the server in 512-byte blocks.
func (c *Client) Put(ctx context.Context, filename, mode string, data []byte) error {
	req := &wire.Request{Opcode: wire.OpCodeWRQ, Filename: filename, Mode: mode}

	if err := c.sendRequest(req); err != nil {
		return err
	}

	if err := c.waitAck(ctx, 0); err != nil {
		return err
	}

	var blockNum uint16 = 1

	offset := 0

	for {
		end := offset + wire.MaxPayloadSize
		if end > len(data) {
			end = len(data)
		}

		chunk := data[offset:end]

		if err := c.sendData(blockNum, chunk); err != nil {
			return err
		}

		if err := c.waitAck(ctx, blockNum); err != nil {
			return err
		}

		offset = end
		blockNum++

		if len(chunk) < wire.MaxPayloadSize {
			return nil
		}
	}
}

func (c *Client) sendRequest(req *wire.Request) error {
	b, err := req.MarshalBinary()
	if err != nil {
		return fmt.Errorf("error while marshalling request: %w", err)
	}

	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("error while sending request: %w", err)
	}

	return nil
}

func (c *Client) sendData(blockNum uint16, payload []byte) error {
	d := &wire.Data{BlockNum: blockNum, Payload: payload}

	b, err := d.MarshalBinary()
	if err != nil {
		return fmt.Errorf("error while marshalling data: %w", err)
	}

	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("error while sending data: %w", err)
	}

	return nil
}

func (c *Client) ack(blockNum uint16) error {
	a := &wire.Ack{BlockNum: blockNum}

	b, err := a.MarshalBinary()
	if err != nil {
		return fmt.Errorf("error while marshalling ack: %w", err)
	}

	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("error while sending ack: %w", err)
	}

	return nil
}

func (c *Client) waitAck(ctx context.Context, blockNum uint16) error {
	buf := make([]byte, wire.DatagramSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("error while setting read deadline: %w", err)
		}

		n, err := c.conn.Read(buf)
		if err != nil {
			return fmt.Errorf("error while reading ack: %w", err)
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}

		switch p := pkt.(type) {
		case *wire.Ack:
			if p.BlockNum != blockNum {
				continue
			}

			return nil
		case *wire.Error:
			return fmt.Errorf("tftp: %s (code %d)", p.ErrMsg, p.ErrorCode)
		default:
			continue
		}
	}
}
