package tftp

import (
	"errors"
	"strings"

	"github.com/wjemai/tftpd/pkg/store"
	"github.com/wjemai/tftpd/pkg/transport"
	"github.com/wjemai/tftpd/pkg/wire"
)

// ServeWrite implements the write transaction (component E, spec.md
// §4.5): it admits the transfer with ACK(0), then receives DATA blocks
// in lock step, writing each to filename. A DATA block whose number is
// not the next expected one is ignored and not re-ACKed (spec.md's
// "reactive" side — the client's timer drives progress, not ours).
func (s *session) ServeWrite(fs store.FileStore, filename, mode string) {
	normMode := strings.ToLower(mode)
	if normMode != wire.ModeOctet && normMode != wire.ModeNetascii {
		s.sendError(wire.ErrIllegalTftpOp, "")

		return
	}

	if fs.Exists(filename) {
		s.sendError(wire.ErrFileAlreadyExists, "")

		return
	}

	f, err := fs.OpenCreateWrite(filename)
	if err != nil {
		s.log.Errorf("write %s: create failed: %s", filename, err.Error())
		s.sendError(wire.ErrAccessViolation, "")

		return
	}

	defer func() {
		if err := f.Close(); err != nil {
			s.log.Errorf("write %s: close failed: %s", filename, err.Error())
		}
	}()

	if err := s.sendAck(0); err != nil {
		s.log.Errorf("write %s: ack(0) failed: %s", filename, err.Error())

		return
	}

	var nextExpected uint16 = 1

	recvBuf := make([]byte, wire.DatagramSize)

	for {
		n, peer, err := s.tr.Recv(recvBuf, TimeoutMax)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}

			s.log.Errorf("write %s: recv failed: %s", filename, err.Error())

			return
		}

		if !s.isPeer(peer) {
			s.sendUnknownIDTo(peer)

			continue
		}

		pkt, err := wire.Decode(recvBuf[:n])
		if err != nil {
			continue
		}

		data, ok := pkt.(*wire.Data)
		if !ok {
			continue
		}

		if data.BlockNum != nextExpected {
			continue
		}

		if _, err := f.Write(data.Payload); err != nil {
			s.log.Errorf("write %s: write failed: %s", filename, err.Error())
			s.sendError(wire.ErrAccessViolation, "")

			return
		}

		if err := f.Sync(); err != nil {
			s.log.Errorf("write %s: sync failed: %s", filename, err.Error())
			s.sendError(wire.ErrAccessViolation, "")

			return
		}

		if err := s.sendAck(nextExpected); err != nil {
			s.log.Errorf("write %s: ack(%d) failed: %s", filename, nextExpected, err.Error())

			return
		}

		isFinal := len(data.Payload) < wire.MaxPayloadSize
		nextExpected++

		if isFinal {
			return
		}
	}
}
