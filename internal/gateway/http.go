package gateway

import (
	"bytes"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"unicode/utf8"

	"golang.org/x/sys/unix"

	"github.com/procbridge/webgate/internal/config"
	"github.com/procbridge/webgate/internal/reactor"
	"github.com/procbridge/webgate/internal/resources"
	"github.com/procbridge/webgate/pkg/metrics"
)

// readChunk bounds a single read off the client socket, mirroring the
// gateway's fixed-size, non-blocking read policy.
const readChunk = 1024

// headerTerminator marks the end of the header block this session waits
// for; anything after it belongs to a later protocol (a WebSocket frame,
// on the upgrade path) and is simply retained in the buffer.
var headerTerminator = []byte("\r\n\r\n")

// HTTPSession reads a client's request line and headers, then either
// serves a preloaded static response or upgrades to a WebSocket session.
// It holds exactly one descriptor: the client stream.
type HTTPSession struct {
	conn      net.Conn
	fd        int
	buf       []byte
	handedOff bool

	cfg       *config.Config
	resources *resources.Set
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// NewHTTPSession wraps an accepted connection. The listener that accepted
// it keeps no reference afterward; this session owns the stream.
func NewHTTPSession(conn net.Conn, cfg *config.Config, res *resources.Set, m *metrics.Collector, logger *slog.Logger) (*HTTPSession, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, errNotSyscallConn
	}
	fd, err := rawFD(sc)
	if err != nil {
		return nil, err
	}
	return &HTTPSession{
		conn:      conn,
		fd:        fd,
		buf:       make([]byte, 0, readChunk),
		cfg:       cfg,
		resources: res,
		metrics:   m,
		logger:    logger,
	}, nil
}

func (s *HTTPSession) PollFDs() []reactor.PollFD {
	return []reactor.PollFD{{FD: s.fd, Interest: reactor.Read}}
}

func (s *HTTPSession) Incoming(int) reactor.Outcome {
	var tmp [readChunk]byte
	n, err := unix.Read(s.fd, tmp[:])
	if n <= 0 {
		if err == unix.EAGAIN {
			return reactor.Continue()
		}
		return reactor.Remove()
	}
	s.buf = append(s.buf, tmp[:n]...)

	path, wsKey, hasKey, ready := s.parseRequest()
	if !ready {
		return reactor.Continue()
	}

	if resp, found := s.resources.Lookup(path); found {
		_, _ = unix.Write(s.fd, resp)
		return reactor.Remove()
	}

	if hasKey {
		if cmd, found := s.cfg.Commands[path]; found {
			_, _ = unix.Write(s.fd, handshakeResponse(s.cfg.Server, wsKey))
			ws := newWsSession(s.conn, s.fd, path, cmd, s.metrics, s.logger)
			s.handedOff = true // the WS session now owns s.conn
			return reactor.ReplaceWith(ws)
		}
	}

	_, _ = unix.Write(s.fd, s.resources.NotFound())
	return reactor.Remove()
}

// CloseSession releases the client stream. If the session upgraded to a
// WebSocket session, ownership of conn was handed off and this is a no-op.
// The reactor calls CloseSession on the slot's outgoing session during a
// Replace, and the incoming WS session must get a live connection.
func (s *HTTPSession) CloseSession() {
	if s.handedOff {
		return
	}
	_ = s.conn.Close()
	if s.metrics != nil {
		s.metrics.SessionsActive.Dec()
	}
}

// parseRequest scans the buffered bytes for a complete header block; if
// one isn't present yet it reports ready=false and leaves the buffer
// untouched for the next read. A complete header block is removed from the
// buffer before it is checked, so one that fails to decode as UTF-8 or is
// otherwise malformed is dropped: ready is false, nothing is sent in reply,
// and the session keeps waiting for a further header block.
func (s *HTTPSession) parseRequest() (path, wsKey string, hasKey, ready bool) {
	idx := bytes.Index(s.buf, headerTerminator)
	if idx < 0 {
		return "", "", false, false
	}

	header := s.buf[:idx]
	rest := append([]byte(nil), s.buf[idx+len(headerTerminator):]...)
	s.buf = rest

	if !utf8.Valid(header) {
		return "", "", false, false
	}

	lines := strings.Split(string(header), "\r\n")
	if len(lines) == 0 {
		return "", "", false, false
	}

	fields := strings.Fields(lines[0])
	if len(fields) < 2 {
		return "", "", false, false
	}
	path = fields[1]

	for _, line := range lines[1:] {
		name, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		if strings.ToLower(name) == "sec-websocket-key" {
			wsKey = value
			hasKey = true
		}
	}

	return path, wsKey, hasKey, true
}
