package tftp

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/wjemai/tftpd/pkg/store"
	"github.com/wjemai/tftpd/pkg/transport"
	"github.com/wjemai/tftpd/pkg/utils"
	"github.com/wjemai/tftpd/pkg/wire"
)

// ServeRead implements the read transaction (component D, spec.md §4.4):
// it streams filename to the session's peer over lock-step DATA/ACK,
// translating to NETASCII mid-stream when requested.
func (s *session) ServeRead(fs store.FileStore, filename, mode string) {
	normMode := strings.ToLower(mode)
	if normMode != wire.ModeOctet && normMode != wire.ModeNetascii {
		s.sendError(wire.ErrIllegalTftpOp, "")

		return
	}

	if !fs.Exists(filename) {
		s.sendError(wire.ErrFileNotFound, "")

		return
	}

	f, err := fs.OpenRead(filename)
	if err != nil {
		s.log.Errorf("read %s: open failed: %s", filename, err.Error())
		s.sendError(wire.ErrAccessViolation, "")

		return
	}

	defer func() {
		if err := f.Close(); err != nil {
			s.log.Errorf("read %s: close failed: %s", filename, err.Error())
		}
	}()

	var (
		translator *netasciiTranslator
		br         *bufio.Reader
	)

	if normMode == wire.ModeNetascii {
		translator = &netasciiTranslator{}
		br = bufio.NewReader(f)
	}

	var blockNum uint16

	timer := newRTTTimer()

	for {
		block, isFinal, err := s.buildBlock(f, br, translator)
		if err != nil {
			s.log.Errorf("read %s: block build failed: %s", filename, err.Error())
			s.sendError(wire.ErrNotDefined, "")

			return
		}

		blockNum++

		if err := s.sendAndWaitAck(timer, block, blockNum); err != nil {
			if errors.Is(err, utils.ErrRetriesExhausted) {
				s.sendError(wire.ErrNotDefined, "timeout on send")
			} else {
				s.log.Errorf("read %s: %s", filename, err.Error())
			}

			return
		}

		if isFinal {
			return
		}
	}
}

// buildBlock implements the BUILD state of spec.md §4.4: up to 512 bytes,
// raw in OCTET mode or translated in NETASCII mode. A block shorter than
// wire.MaxPayloadSize marks end of file.
func (s *session) buildBlock(f io.Reader, br *bufio.Reader, translator *netasciiTranslator) ([]byte, bool, error) {
	if translator != nil {
		block, err := translator.FillBlock(br)
		if err != nil {
			return nil, false, err
		}

		return block, len(block) < wire.MaxPayloadSize, nil
	}

	buf := make([]byte, wire.MaxPayloadSize)

	n, err := io.ReadFull(f, buf)
	switch {
	case err == nil:
		return buf, false, nil
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return buf[:n], true, nil
	default:
		return nil, false, err
	}
}

// sendAndWaitAck drives SEND/WAIT_ACK for one block: send, wait for the
// matching ACK, retransmitting on timeout with exponential back-off
// (spec.md §4.2, §4.4). timer carries rtt_estimate across blocks for the
// life of the transaction (spec.md §3); only its per-block bookkeeping
// (retransmissions, ignoreTime, sendTime) resets here. It returns
// utils.ErrRetriesExhausted when the retransmission budget is spent.
func (s *session) sendAndWaitAck(timer *rttTimer, payload []byte, blockNum uint16) error {
	data := &wire.Data{BlockNum: blockNum, Payload: payload}

	raw, err := data.MarshalBinary()
	if err != nil {
		return err
	}

	timer.OnBlockSent(time.Now())

	if _, err := s.tr.Send(raw, s.peer); err != nil {
		return err
	}

	recvBuf := make([]byte, wire.DatagramSize)

	for {
		n, peer, err := s.tr.Recv(recvBuf, timer.Remaining(time.Now()))
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				if _, err := s.tr.Send(raw, s.peer); err != nil {
					return err
				}

				if terr := timer.OnTimeout(time.Now()); terr != nil {
					return terr
				}

				continue
			}

			return err
		}

		if !s.isPeer(peer) {
			s.sendUnknownIDTo(peer)

			continue
		}

		pkt, err := wire.Decode(recvBuf[:n])
		if err != nil {
			continue
		}

		ack, ok := pkt.(*wire.Ack)
		if !ok {
			continue
		}

		switch {
		case ack.BlockNum == blockNum:
			timer.OnAck(time.Now())

			return nil
		default:
			// stale or out-of-order ACK: never re-send an already-acked
			// block (Sorcerer's Apprentice Syndrome, spec.md GLOSSARY).
			continue
		}
	}
}
