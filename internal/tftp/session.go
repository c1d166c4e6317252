package tftp

import (
	"net"

	"go.uber.org/zap"

	"github.com/wjemai/tftpd/pkg/transport"
	"github.com/wjemai/tftpd/pkg/wire"
)

// session holds the per-transaction state of spec.md §3: the peer's
// transfer identifier, fixed for the life of the transaction, plus the
// shared transport and logger. One session exists per RRQ/WRQ and is
// discarded when the transaction ends.
type session struct {
	tr       transport.Transport
	peer     net.Addr
	peerPort int
	log      *zap.SugaredLogger
}

func newSession(tr transport.Transport, peer net.Addr, log *zap.SugaredLogger) *session {
	return &session{tr: tr, peer: peer, peerPort: portOf(peer), log: log}
}

// isPeer reports whether addr carries this transaction's transfer
// identifier (spec.md §3: the peer's source port on the first packet,
// immutable thereafter).
func (s *session) isPeer(addr net.Addr) bool {
	return portOf(addr) == s.peerPort
}

func portOf(addr net.Addr) int {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.Port
	}

	return 0
}

func (s *session) sendAck(blockNum uint16) error {
	ack := &wire.Ack{BlockNum: blockNum}

	b, err := ack.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = s.tr.Send(b, s.peer)

	return err
}

func (s *session) sendError(code wire.ErrCode, msg string) {
	e := wire.NewError(code, msg)

	b, err := e.MarshalBinary()
	if err != nil {
		s.log.Errorf("marshal error packet: %s", err.Error())

		return
	}

	if _, err := s.tr.Send(b, s.peer); err != nil {
		s.log.Errorf("send error packet: %s", err.Error())
	}
}

// sendUnknownIDTo answers a packet from a third party mid-transaction
// with UNKNOWN_ID (spec.md §7: non-terminal, sent to the offending party
// while the main transaction continues unchanged).
func (s *session) sendUnknownIDTo(to net.Addr) {
	e := wire.NewError(wire.ErrUnknownTransferID, "")

	b, err := e.MarshalBinary()
	if err != nil {
		s.log.Errorf("marshal unknown-id packet: %s", err.Error())

		return
	}

	if _, err := s.tr.Send(b, to); err != nil {
		s.log.Errorf("send unknown-id packet to %s: %s", to.String(), err.Error())
	}
}
