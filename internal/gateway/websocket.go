package gateway

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/procbridge/webgate/internal/config"
	"github.com/procbridge/webgate/internal/reactor"
	"github.com/procbridge/webgate/pkg/metrics"
	"github.com/procbridge/webgate/pkg/tracing"
)

// Control-protocol opcodes carried in the first byte of a client→server
// WebSocket message.
const (
	clientReady byte = 0
	clientKill  byte = 1
	clientPush  byte = 2
)

// Control-protocol tags carried in the first byte of a server→client
// WebSocket message.
const (
	processFail byte = 0
	processExit byte = 1
	processSout byte = 2
	processSerr byte = 3
)

// Fixed fd-index-to-role mapping: the reactor always hands index 0 to the
// client stream, 1 to the child's stdout, 2 to its stderr.
const (
	fdClient = 0
	fdStdout = 1
)

// WsSession parses inbound WebSocket frames, reassembles fragmented
// messages, drives the CLIENT_READY/KILL/PUSH control protocol, and
// proxies a spawned child's stdout/stderr back to the client.
type WsSession struct {
	conn net.Conn
	fd   int

	path    string
	command config.CommandEntry

	buf       []byte // accumulating bytes for partial frames
	fragments []byte // payload of fragments seen so far for the in-progress message

	child *child
	dead  bool // true once stdout or stderr has hit EOF/error

	metrics *metrics.Collector
	logger  *slog.Logger
}

func newWsSession(conn net.Conn, fd int, path string, cmd config.CommandEntry, m *metrics.Collector, logger *slog.Logger) *WsSession {
	return &WsSession{
		conn:    conn,
		fd:      fd,
		path:    path,
		command: cmd,
		buf:     make([]byte, 0, readChunk),
		metrics: m,
		logger:  logger,
	}
}

// PollFDs advertises the client stream always, and the child's stdout and
// stderr for as long as a child is alive and hasn't been marked dead.
func (s *WsSession) PollFDs() []reactor.PollFD {
	fds := []reactor.PollFD{{FD: s.fd, Interest: reactor.Read}}
	if !s.dead && s.child != nil {
		fds = append(fds,
			reactor.PollFD{FD: s.child.stdoutFD, Interest: reactor.Read},
			reactor.PollFD{FD: s.child.stderrFD, Interest: reactor.Read},
		)
	}
	return fds
}

func (s *WsSession) Incoming(fdIndex int) reactor.Outcome {
	switch fdIndex {
	case fdClient:
		return s.onClientReadable()
	case fdStdout:
		return s.onChildPipeReadable(s.child.stdoutFD, processSout)
	default:
		return s.onChildPipeReadable(s.child.stderrFD, processSerr)
	}
}

func (s *WsSession) CloseSession() {
	if s.metrics != nil {
		s.metrics.SessionsActive.Dec()
	}
	if s.child != nil {
		s.child.close()
	}
	_ = s.conn.Close()
}

// onClientReadable reads one chunk off the client socket and parses every
// complete frame it can find, dispatching each finished message as it
// completes. A zero-length or failed read means the peer is gone.
func (s *WsSession) onClientReadable() reactor.Outcome {
	var tmp [readChunk]byte
	n, err := unix.Read(s.fd, tmp[:])
	if n <= 0 {
		if err == unix.EAGAIN {
			return reactor.Continue()
		}
		return reactor.Remove()
	}
	if s.metrics != nil {
		s.metrics.BytesIn.Add(float64(n))
	}
	s.buf = append(s.buf, tmp[:n]...)
	return s.processBuffered()
}

// processBuffered parses every complete frame currently sitting in s.buf,
// reassembling fragments and dispatching finished messages. Split out from
// onClientReadable so the framing/reassembly logic can be exercised
// directly against a hand-built buffer in tests.
func (s *WsSession) processBuffered() reactor.Outcome {
	outcome := reactor.Continue()
	for {
		frame, consumed, ok := parseFrame(s.buf)
		if !ok {
			break
		}
		s.buf = s.buf[consumed:]
		s.fragments = append(s.fragments, frame.payload...)

		if !frame.fin {
			continue
		}
		message := s.fragments
		s.fragments = nil

		switch frame.opcode {
		case opClose:
			return reactor.Remove()
		case opPing:
			s.sendPong(message)
		case opText, opBinary:
			if next := s.dispatchControl(message); next.Kind != reactor.KindContinue {
				outcome = next
			}
		default:
			// unknown opcode: ignored
		}
	}
	return outcome
}

// dispatchControl interprets one reassembled WebSocket message as a
// control-protocol command. msg[0] is the opcode; the rest is its payload.
func (s *WsSession) dispatchControl(msg []byte) reactor.Outcome {
	if len(msg) == 0 {
		s.badMessage()
		return reactor.Continue()
	}

	switch op, hasChild := msg[0], s.child != nil; {
	case op == clientReady && !hasChild:
		return s.handleClientReady()
	case op == clientKill && hasChild:
		s.child.requestKill()
		return reactor.Continue()
	case op == clientPush && hasChild:
		s.child.push(msg[1:])
		return reactor.Continue()
	default:
		s.badMessage()
		return reactor.Continue()
	}
}

func (s *WsSession) handleClientReady() reactor.Outcome {
	_, span := tracing.StartSpawnSpan(context.Background(), s.path, s.command.Executable)
	defer span.End()

	c, err := spawnChild(s.command.Executable, s.command.Args)
	if err != nil {
		tracing.RecordError(span, err)
		s.logger.Error("process: spawn failed", "command", s.command.Executable, "err", err)
		if s.metrics != nil {
			s.metrics.SpawnFailures.Inc()
		}
		s.send(encodeFrame(true, opText, []byte{processFail}))
		return reactor.Refresh()
	}

	s.child = c
	return reactor.Refresh()
}

// onChildPipeReadable proxies one chunk of a child pipe to the client. On
// EOF or error it treats the pipe closing as the child's exit.
func (s *WsSession) onChildPipeReadable(fd int, tag byte) reactor.Outcome {
	var tmp [readChunk]byte
	tmp[0] = tag
	n, err := unix.Read(fd, tmp[1:])
	if n <= 0 {
		if err == unix.EAGAIN {
			return reactor.Continue()
		}
		return s.handleChildExit()
	}
	s.send(encodeFrame(true, opText, tmp[:n+1]))
	return reactor.Continue()
}

func (s *WsSession) handleChildExit() reactor.Outcome {
	s.dead = true
	if s.metrics != nil {
		s.metrics.ChildExits.Inc()
	}

	msg := []byte{processExit}
	if code, ok := s.child.TryExitCode(); ok {
		msg = append(msg, []byte(strconv.Itoa(code))...)
	}
	s.send(encodeFrame(true, opText, msg))
	return reactor.Refresh()
}

func (s *WsSession) sendPong(payload []byte) {
	s.send(encodeFrame(true, opPong, payload))
}

func (s *WsSession) badMessage() {
	s.logger.Warn("process: bad message")
	if s.metrics != nil {
		s.metrics.ProtocolErrors.Inc()
	}
}

// send writes a frame best-effort: a short or failed write is ignored, and
// the next client-side read will surface the underlying failure as EOF.
func (s *WsSession) send(frame []byte) {
	n, _ := unix.Write(s.fd, frame)
	if n > 0 && s.metrics != nil {
		s.metrics.BytesOut.Add(float64(n))
	}
}
