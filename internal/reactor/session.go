// Package reactor implements the single-threaded, poll-driven event loop
// that multiplexes a gateway's heterogeneous sessions: a listening socket,
// in-flight HTTP parses, and active WebSocket-to-subprocess bridges.
package reactor

import "fmt"

// Interest describes which readiness a descriptor should be polled for.
type Interest uint8

const (
	Read Interest = 1 << iota
	Write
)

// PollFD pairs a raw file descriptor with the readiness the owning session
// wants to be woken up for.
type PollFD struct {
	FD       int
	Interest Interest
}

// Session is the contract every reactor-managed entity fulfills: a listener,
// an in-progress HTTP parse, or an active WebSocket/subprocess bridge. The
// reactor owns sessions exclusively; it never touches their internals beyond
// this interface.
type Session interface {
	// PollFDs returns the descriptors this session wants polled, in a stable
	// order. Index i in the returned slice is the fdIndex passed to Incoming
	// when that descriptor becomes ready. A session must always report at
	// least one descriptor.
	PollFDs() []PollFD

	// Incoming handles readiness on the descriptor at fdIndex and reports
	// how the reactor should adjust this session's place in the topology.
	Incoming(fdIndex int) Outcome
}

// Closer is implemented by sessions that own resources (sockets, pipes, a
// child process) needing release when the reactor drops or replaces them.
// A session that does not implement it is dropped without a close call.
type Closer interface {
	CloseSession()
}

// Kind enumerates the lifecycle events a session's Incoming call can report.
type Kind int

const (
	KindContinue Kind = iota
	KindRefresh
	KindRemove
	KindReplace
	KindAddSibling
	KindError
)

// Outcome is the lifecycle event returned by Session.Incoming.
type Outcome struct {
	Kind    Kind
	Session Session // set for KindReplace and KindAddSibling
	Err     error   // set for KindError
}

// Continue reports that nothing about the session's topology changed.
func Continue() Outcome { return Outcome{Kind: KindContinue} }

// Refresh reports that the session's descriptor set changed shape (e.g. a
// child process appeared or exited) and the interest set must be rebuilt.
func Refresh() Outcome { return Outcome{Kind: KindRefresh} }

// Remove reports that the session is done and should be dropped.
func Remove() Outcome { return Outcome{Kind: KindRemove} }

// ReplaceWith reports that the session has transformed into a different
// kind of session occupying the same slot (HTTP session upgrading to a
// WebSocket session, for instance).
func ReplaceWith(s Session) Outcome { return Outcome{Kind: KindReplace, Session: s} }

// AddSibling reports that a new, independent session should join the
// reactor's live set (a listener accepting a connection, for instance).
func AddSibling(s Session) Outcome { return Outcome{Kind: KindAddSibling, Session: s} }

// Errorf reports a non-fatal session error: it is logged and the session is
// retained as-is.
func Errorf(format string, args ...any) Outcome {
	return Outcome{Kind: KindError, Err: fmt.Errorf(format, args...)}
}

func closeIfCloser(s Session) {
	if c, ok := s.(Closer); ok {
		c.CloseSession()
	}
}
