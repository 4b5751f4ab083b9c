package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollerEntry binds one registered descriptor back to the (session, fdIndex)
// pair that owns it, so a readiness event can be routed to the right
// Session.Incoming call.
type pollerEntry struct {
	session, fdIndex int
	fd               int
	events           int16
}

// readyEvent is one readiness notification, keyed the same way the source
// poller keyed it at registration time.
type readyEvent struct {
	session, fdIndex int
}

// poller wraps the POSIX poll(2) syscall. It holds no state beyond the
// currently registered descriptor table; the reactor rebuilds that table
// from scratch on every topology change.
type poller struct {
	entries []pollerEntry
}

func newPoller() *poller {
	return &poller{}
}

func (p *poller) reset(entries []pollerEntry) {
	p.entries = entries
}

func interestToEvents(i Interest) int16 {
	var ev int16
	if i&Read != 0 {
		ev |= unix.POLLIN
	}
	if i&Write != 0 {
		ev |= unix.POLLOUT
	}
	return ev
}

// wait blocks for at most timeout for any registered descriptor to become
// ready. A timeout is reported as a nil, nil return. Callers absorb it
// silently, matching the reactor's one-second poll cadence.
func (p *poller) wait(timeout time.Duration) ([]readyEvent, error) {
	if len(p.entries) == 0 {
		time.Sleep(timeout)
		return nil, nil
	}

	fds := make([]unix.PollFd, len(p.entries))
	for i, e := range p.entries {
		fds[i] = unix.PollFd{Fd: int32(e.fd), Events: e.events}
	}

	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil || n == 0 {
		return nil, err
	}

	ready := make([]readyEvent, 0, n)
	for i, fd := range fds {
		if fd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			e := p.entries[i]
			ready = append(ready, readyEvent{session: e.session, fdIndex: e.fdIndex})
		}
	}
	return ready, nil
}
