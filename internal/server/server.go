// Package server provides the acceptor: the TCP endpoint agents report to.
//
// Each accepted connection is handled in its own goroutine. The handler
// reads one bounded report, decodes it, merges it into the store under the
// peer's IP address and closes the connection on every path. A bad
// connection never stops the accept loop; ordering between connections is
// left to the store.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/telemetryd/config"
	"github.com/xtxerr/telemetryd/internal/errors"
	"github.com/xtxerr/telemetryd/internal/logging"
	"github.com/xtxerr/telemetryd/internal/store"
	"github.com/xtxerr/telemetryd/internal/wire"
)

var log = logging.Component("server")

// Merger is the store write side the acceptor feeds.
type Merger interface {
	Merge(addr string, rec store.Record) error
}

// =============================================================================
// Server Configuration
// =============================================================================

// Config holds server configuration.
type Config struct {
	// Store receives every decoded report (required).
	Store Merger

	// Listen is the address to listen on (e.g., "0.0.0.0:5551").
	Listen string

	// MaxReportSize bounds the bytes read per connection.
	MaxReportSize int

	// ReadTimeout bounds how long a peer may take to send its report.
	// Zero disables the deadline.
	ReadTimeout time.Duration

	// Malformed-report limiting. A limit of zero disables it.
	MalformedLimit  int
	MalformedWindow time.Duration
}

// Stats counts connection outcomes since start.
type Stats struct {
	Accepted      uint64
	Stored        uint64
	Malformed     uint64
	Blocked       uint64
	TimedOut      uint64
	PersistErrors uint64
}

// =============================================================================
// Server
// =============================================================================

// Server accepts agent connections.
type Server struct {
	cfg      *Config
	store    Merger
	listener net.Listener

	malformed *RateLimiter

	nextConnID    atomic.Uint64
	accepted      atomic.Uint64
	stored        atomic.Uint64
	rejected      atomic.Uint64
	blocked       atomic.Uint64
	timedOut      atomic.Uint64
	persistErrors atomic.Uint64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New creates a new server.
func New(cfg *Config) *Server {
	if cfg.Listen == "" {
		cfg.Listen = config.DefaultListenAddress
	}
	if cfg.MaxReportSize <= 0 {
		cfg.MaxReportSize = config.DefaultMaxReportSize
	}
	if cfg.MalformedWindow <= 0 {
		cfg.MalformedWindow = config.DefaultMalformedWindow
	}

	return &Server{
		cfg:       cfg,
		store:     cfg.Store,
		malformed: NewRateLimiter(cfg.MalformedLimit, cfg.MalformedWindow),
		shutdown:  make(chan struct{}),
	}
}

// Listen binds the service port. Failing to bind is the one fatal error
// of the acceptor.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	log.Info("listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run binds the service port if needed and accepts until Shutdown.
func (s *Server) Run() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	return s.serve()
}

func (s *Server) serve() error {
	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
			}

			// Temporary conditions such as EMFILE: back off and keep going.
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff < time.Second {
				backoff *= 2
			}
			log.Error("accept error", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-s.shutdown:
				return nil
			}
			continue
		}
		backoff = 0

		s.accepted.Add(1)
		s.wg.Add(1)
		go s.handleConn(conn, s.nextConnID.Add(1))
	}
}

// Shutdown stops accepting and waits for in-flight connections.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		log.Info("shutting down")
		close(s.shutdown)

		if s.listener != nil {
			s.listener.Close()
		}

		s.wg.Wait()
		s.malformed.Stop()

		log.Info("shutdown complete")
	})
}

// Stats returns a snapshot of the connection counters.
func (s *Server) Stats() Stats {
	return Stats{
		Accepted:      s.accepted.Load(),
		Stored:        s.stored.Load(),
		Malformed:     s.rejected.Load(),
		Blocked:       s.blocked.Load(),
		TimedOut:      s.timedOut.Load(),
		PersistErrors: s.persistErrors.Load(),
	}
}

// =============================================================================
// Connection Handling
// =============================================================================

// handleConn reads one report from conn and merges it. The connection is
// closed on every return path.
func (s *Server) handleConn(conn net.Conn, connID uint64) {
	defer s.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	peer := extractIP(remote)

	ctx := logging.ContextWithConnID(logging.ContextWithPeer(context.Background(), peer), connID)
	clog := logging.WithContext(ctx).With("component", "server")

	clog.Debug("connection accepted", "remote", remote)

	if s.malformed.IsBlocked(peer) {
		s.blocked.Add(1)
		clog.Warn("dropping connection", "error", errors.ErrPeerBlocked,
			"failure_count", s.malformed.FailureCount(peer))
		return
	}

	if s.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	data, err := wire.ReadReport(conn, s.cfg.MaxReportSize)
	if err != nil && len(data) == 0 {
		if errors.Is(err, errors.ErrReportTooLarge) {
			s.rejectReport(clog, peer, err, nil)
			return
		}
		err = classifyReadError(err)
		if errors.Is(err, errors.ErrTimeout) {
			s.timedOut.Add(1)
		}
		if errors.IsTransient(err) {
			clog.Warn("read failed", "error", err)
		} else {
			clog.Error("read failed", "error", err)
		}
		return
	}

	rep, decodeErr := wire.DecodeReport(data)
	if decodeErr != nil {
		s.rejectReport(clog, peer, decodeErr, data)
		return
	}
	if len(rep.Rejected) > 0 {
		clog.Warn("unparseable fields stored as unknown", "fields", rep.Rejected)
	}

	if err := s.store.Merge(peer, rep.Record); err != nil {
		if errors.IsPersist(err) {
			// The record is in memory; only the mirror is behind.
			s.persistErrors.Add(1)
			s.stored.Add(1)
			clog.Error("report stored in memory only", "error", err)
			return
		}
		clog.Error("merge failed", "error", err)
		return
	}

	s.malformed.Reset(peer)
	s.stored.Add(1)
	clog.Info("report stored")
}

func (s *Server) rejectReport(clog *slog.Logger, peer string, err error, payload []byte) {
	s.rejected.Add(1)
	s.malformed.RecordFailure(peer)

	const maxLogged = 128
	if len(payload) > maxLogged {
		payload = payload[:maxLogged]
	}
	clog.Warn("report rejected", "error", err, "payload", string(payload))
}

// classifyReadError maps a connection read error onto the error taxonomy:
// deadline expiry is ErrTimeout, a broken connection ErrConnectionFailed.
func classifyReadError(err error) error {
	if errors.IsTransient(err) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", errors.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", errors.ErrConnectionFailed, err)
}

// extractIP extracts the IP address from a remote address string.
func extractIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
