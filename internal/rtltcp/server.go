package rtltcp

import (
	"context"
	"errors"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"rtlsdr/internal/rtl"
)

// Server runs the one-client-at-a-time rtl_tcp admission loop. The SDR
// handle is opened once and reused across sessions: closing and
// re-opening a USB device is expensive and can race with kernel
// enumeration, so the accept loop hands the same handle to each new
// client in turn.
type Server struct {
	Addr   string
	SDR    *rtl.SDR
	Config Config
	Logger *log.Logger

	// LastSessionID is updated as each session starts; read by the HTTP
	// status surface to report the most recent client. It is not cleared
	// when that client disconnects.
	LastSessionID atomic.Value
}

// NewServer builds a server from cfg as given, using log.Default() when
// logger is nil.
func NewServer(addr string, sdr *rtl.SDR, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Addr: addr, SDR: sdr, Config: cfg, Logger: logger}
}

// Serve accepts connections until ctx is cancelled, running exactly one
// session at a time. It polls Accept with a 100ms deadline so the global
// shutdown signal is observed promptly without blocking the OS accept
// queue for waiting clients.
func (srv *Server) Serve(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", srv.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	var globalStop atomic.Bool
	go func() {
		<-ctx.Done()
		globalStop.Store(true)
		ln.Close()
	}()

	tcpLn, ok := ln.(*net.TCPListener)

	for {
		if globalStop.Load() {
			return nil
		}

		if ok {
			tcpLn.SetDeadline(time.Now().Add(100 * time.Millisecond))
		}
		conn, err := ln.Accept()
		if err != nil {
			if globalStop.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		id := uuid.New()
		srv.LastSessionID.Store(id)
		srv.Logger.Printf("session %s: client connected from %s", id, conn.RemoteAddr())
		sess := newSession(id, srv.SDR, conn, srv.Config, &globalStop, srv.Logger)
		sess.run()
		srv.Logger.Printf("session %s: client disconnected", id)
	}
}
