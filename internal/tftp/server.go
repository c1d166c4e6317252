// Package tftp is the TFTP transaction engine: the request dispatcher,
// the lock-step DATA/ACK protocol, the adaptive retransmission timer,
// the NETASCII translator, and the error taxonomy (spec.md §2,
// components B-F). It depends only on the narrow collaborator
// interfaces in pkg/store and pkg/transport — link/network bring-up,
// the backing filesystem, and the datagram transport itself are
// deliberately out of this package's scope (spec.md §1).
package tftp

import (
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wjemai/tftpd/pkg/store"
	"github.com/wjemai/tftpd/pkg/transport"
	"github.com/wjemai/tftpd/pkg/wire"
)

// acceptPollInterval bounds how long ListenAndServe's accept-loop Recv
// call blocks before re-checking for shutdown; spec.md §5 requires the
// receive operation to be non-blocking or deadline-bound.
const acceptPollInterval = time.Second

// Server is the single-threaded, cooperative TFTP server of spec.md §5:
// it owns exactly one Transport — its listening port is the only
// transfer identifier it ever uses (spec.md §6.2, no TID randomisation)
// — and runs at most one transaction at a time.
type Server struct {
	tr    transport.Transport
	store store.FileStore
	log   *zap.SugaredLogger
	port  string

	mu      sync.Mutex
	bound   chan struct{}
	boundOk bool
}

// NewServer builds a Server bound to port once ListenAndServe is called,
// serving files out of fs and logging through log.
func NewServer(log *zap.SugaredLogger, fs store.FileStore, port string) *Server {
	return &Server{log: log, store: fs, port: port, bound: make(chan struct{})}
}

// LocalAddr blocks until the listening socket is bound (or ListenAndServe
// fails to bind) and returns its address. Used by tests that bind to
// port "0" and need the kernel-assigned port.
func (srv *Server) LocalAddr() net.Addr {
	<-srv.bound

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if !srv.boundOk {
		return nil
	}

	return srv.tr.LocalAddr()
}

// ListenAndServe binds the listening socket and runs the accept loop
// until Close is called. Each datagram received is dispatched and fully
// handled before the next is read (spec.md §4.6, §5).
func (srv *Server) ListenAndServe() error {
	tr, err := transport.Bind(srv.port)

	srv.mu.Lock()
	srv.tr = tr
	srv.boundOk = err == nil
	srv.mu.Unlock()
	close(srv.bound)

	if err != nil {
		return err
	}

	buf := make([]byte, wire.DatagramSize)

	for {
		n, peer, err := srv.tr.Recv(buf, acceptPollInterval)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		req := make([]byte, n)
		copy(req, buf[:n])

		srv.dispatch(req, peer)
	}
}

// Close shuts down the listening socket. Safe to call between
// transactions (spec.md §5); the server holds no file open outside the
// lifetime of an in-progress transaction.
func (srv *Server) Close() error {
	if srv.tr == nil {
		return nil
	}

	return srv.tr.Close()
}
