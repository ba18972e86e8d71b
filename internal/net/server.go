package net

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/dorufloare/matchbook/internal/common"
	"github.com/dorufloare/matchbook/internal/engine"
)

const (
	maxRecvSize        = 4 * 1024
	defaultConnTimeout = 30 * time.Second
)

// Server is the TCP front end: one goroutine per connection, reading
// NewOrder/CancelOrder messages and submitting them to the engine, and
// routing execution reports back to whichever connection registered
// the owner name a trade's taker or maker belongs to. Adapted from the
// teacher's internal/net/server.go; its own WorkerPool indirection
// (fenrir/internal/utils, a package the teacher repo references but
// never actually includes) is dropped in favor of a goroutine per
// connection under the same tomb, since the ingest pipeline — not this
// transport — is what owns match-ordering guarantees.
type Server struct {
	address string
	eng     *engine.Engine
	t       *tomb.Tomb

	mu       sync.Mutex
	sessions map[string]net.Conn // owner -> connection
}

func New(address string, eng *engine.Engine) *Server {
	return &Server{
		address:  address,
		eng:      eng,
		sessions: make(map[string]net.Conn),
	}
}

// Run listens on s.address and serves connections until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("net: listen %s: %w", s.address, err)
	}
	defer listener.Close()

	t, ctx := tomb.WithContext(ctx)
	s.t = t

	s.eng.OnTrade(s.reportTrade)

	t.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})

	log.Info().Str("address", s.address).Msg("net: server listening")
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Error().Err(err).Msg("net: accept error")
				continue
			}
		}
		t.Go(func() error {
			s.handleConnection(t, conn)
			return nil
		})
	}
}

func (s *Server) Shutdown() {
	if s.t != nil {
		s.t.Kill(nil)
		_ = s.t.Wait()
	}
}

func (s *Server) handleConnection(t *tomb.Tomb, conn net.Conn) {
	defer conn.Close()

	// A session ID exists only for correlating log lines across one
	// connection's lifetime; owner names (not this ID) key execution
	// report routing.
	sessionID := uuid.NewString()
	log.Info().Str("session", sessionID).Str("address", conn.RemoteAddr().String()).Msg("net: connection accepted")

	buf := make([]byte, maxRecvSize)
	for {
		select {
		case <-t.Dying():
			return
		default:
		}

		conn.SetDeadline(time.Now().Add(defaultConnTimeout))
		n, err := conn.Read(buf)
		if err != nil {
			log.Debug().Err(err).Str("session", sessionID).Msg("net: connection closed")
			s.forgetConn(conn)
			return
		}

		msg, err := parseMessage(buf[:n])
		if err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("net: malformed message")
			continue
		}

		if err := s.handleMessage(conn, msg); err != nil {
			s.writeReport(conn, errorReport(err))
		}
	}
}

func (s *Server) handleMessage(conn net.Conn, msg Message) error {
	switch m := msg.(type) {
	case NewOrderMessage:
		s.registerConn(m.Owner, conn)
		_, err := s.eng.Submit(m.Order())
		return err
	case CancelOrderMessage:
		return s.eng.CancelOrder(m.OrderID)
	case BaseMessage:
		if m.GetType() == LogBook {
			return nil
		}
	}
	return ErrInvalidMessageType
}

func (s *Server) reportTrade(trade common.Trade) {
	takerReport, makerReport := tradeReports(trade)
	if conn := s.lookupConn(trade.Taker.Owner); conn != nil {
		s.writeReport(conn, takerReport)
	}
	if conn := s.lookupConn(trade.Maker.Owner); conn != nil {
		s.writeReport(conn, makerReport)
	}
}

func (s *Server) writeReport(conn net.Conn, r Report) {
	if _, err := conn.Write(r.Serialize()); err != nil {
		log.Error().Err(err).Msg("net: write report")
	}
}

func (s *Server) registerConn(owner string, conn net.Conn) {
	if owner == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[owner] = conn
}

func (s *Server) lookupConn(owner string) net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[owner]
}

func (s *Server) forgetConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for owner, c := range s.sessions {
		if c == conn {
			delete(s.sessions, owner)
		}
	}
}
