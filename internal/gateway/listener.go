package gateway

import (
	"log/slog"
	"net"

	"github.com/procbridge/webgate/internal/config"
	"github.com/procbridge/webgate/internal/reactor"
	"github.com/procbridge/webgate/internal/resources"
	"github.com/procbridge/webgate/pkg/metrics"
)

// ListenerSession owns the listening TCP socket. It is the only session
// the reactor is seeded with; every other session descends from a
// connection it accepts.
type ListenerSession struct {
	ln *net.TCPListener
	fd int

	cfg       *config.Config
	resources *resources.Set
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// NewListener binds addr and wraps it for reactor use. A bind failure is
// fatal at startup, per the gateway's error taxonomy.
func NewListener(addr string, cfg *config.Config, res *resources.Set, m *metrics.Collector, logger *slog.Logger) (*ListenerSession, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	tcpLn := ln.(*net.TCPListener)
	fd, err := rawFD(tcpLn)
	if err != nil {
		_ = tcpLn.Close()
		return nil, err
	}
	return &ListenerSession{
		ln:        tcpLn,
		fd:        fd,
		cfg:       cfg,
		resources: res,
		metrics:   m,
		logger:    logger,
	}, nil
}

func (l *ListenerSession) PollFDs() []reactor.PollFD {
	return []reactor.PollFD{{FD: l.fd, Interest: reactor.Read}}
}

func (l *ListenerSession) Incoming(int) reactor.Outcome {
	conn, err := l.ln.Accept()
	if err != nil {
		return reactor.Errorf("listener: could not accept client: %w", err)
	}

	session, err := NewHTTPSession(conn, l.cfg, l.resources, l.metrics, l.logger)
	if err != nil {
		_ = conn.Close()
		return reactor.Errorf("listener: could not register new client: %w", err)
	}

	if l.metrics != nil {
		l.metrics.SessionsTotal.Inc()
		l.metrics.SessionsActive.Inc()
	}
	return reactor.AddSibling(session)
}

func (l *ListenerSession) CloseSession() {
	_ = l.ln.Close()
}
