package tftp

import (
	"net"

	"github.com/wjemai/tftpd/pkg/wire"
)

// dispatch is the single entry point of component F (spec.md §4.6): it
// decodes the opcode of the first packet of a transaction and routes to
// ServeRead or ServeWrite. It is blocking — it returns only once the
// transaction has ended, matching spec.md §5's single-transaction-at-a-
// time scheduling model (no goroutine-per-request, unlike a concurrent
// TFTP server would use).
func (srv *Server) dispatch(data []byte, peer net.Addr) {
	sess := newSession(srv.tr, peer, srv.log)

	pkt, err := wire.Decode(data)
	if err != nil {
		sess.sendError(wire.ErrIllegalTftpOp, "")

		return
	}

	req, ok := pkt.(*wire.Request)
	if !ok {
		sess.sendError(wire.ErrIllegalTftpOp, "")

		return
	}

	switch req.Opcode {
	case wire.OpCodeRRQ:
		sess.ServeRead(srv.store, req.Filename, req.Mode)
	case wire.OpCodeWRQ:
		sess.ServeWrite(srv.store, req.Filename, req.Mode)
	default:
		sess.sendError(wire.ErrIllegalTftpOp, "")
	}
}
