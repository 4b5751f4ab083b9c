package reactor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"
)

// pollTimeout bounds how long a single wait() call blocks. It exists only
// to let the loop notice context cancellation and is otherwise silently
// absorbed; there is no per-session timeout.
const pollTimeout = time.Second

// Reactor is the single cooperative loop that owns every live session. It
// holds sessions in an index-addressable slice and rebuilds its interest
// set from scratch whenever a session reports a topology change.
type Reactor struct {
	sessions []Session
	poller   *poller
	logger   *slog.Logger
}

// New creates a Reactor seeded with a single initial session (typically a
// listener) and computes its starting interest set.
func New(initial Session, logger *slog.Logger) *Reactor {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reactor{
		sessions: []Session{initial},
		poller:   newPoller(),
		logger:   logger,
	}
	r.rebuild()
	return r
}

// rebuild drops the previous interest set and reconstructs it from every
// live session's current PollFDs(), in session order. This is O(total fds)
// and is acceptable at the scale this gateway runs at (tens of sessions).
func (r *Reactor) rebuild() {
	var entries []pollerEntry
	for si, s := range r.sessions {
		for fi, pf := range s.PollFDs() {
			entries = append(entries, pollerEntry{
				session: si,
				fdIndex: fi,
				fd:      pf.FD,
				events:  interestToEvents(pf.Interest),
			})
		}
	}
	r.poller.reset(entries)
}

// removeAt drops the session at index i using a swap-remove: the last
// session takes its slot. Order among sessions carries no meaning, so this
// keeps removal O(1) instead of shifting the tail.
func (r *Reactor) removeAt(i int) {
	closeIfCloser(r.sessions[i])
	last := len(r.sessions) - 1
	r.sessions[i] = r.sessions[last]
	r.sessions = r.sessions[:last]
}

// Run drives the event loop until ctx is cancelled. Each wake processes the
// full batch of readiness events the poller returned, in the order it
// returned them. A mutating event (anything but Continue/Error) triggers an
// immediate rebuild before the next event in the same batch is processed;
// an event already captured for a session that a prior mutation removed or
// replaced is dropped with a warning rather than causing a panic. Indices
// within one batch are a point-in-time snapshot and can go stale mid-batch.
func (r *Reactor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ready, err := r.poller.wait(pollTimeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			r.logger.Error("reactor: poll failed", "err", err)
			continue
		}

		// Slots whose session was removed or replaced earlier in this batch;
		// events still queued for them belong to a session that is gone.
		mutated := make(map[int]bool)
		for _, ev := range ready {
			if ev.session >= len(r.sessions) || mutated[ev.session] {
				r.logger.Warn("reactor: stale session index in event batch, dropping", "session", ev.session)
				continue
			}

			outcome := r.sessions[ev.session].Incoming(ev.fdIndex)
			switch outcome.Kind {
			case KindContinue:
				// no change
			case KindRefresh:
				r.rebuild()
			case KindRemove:
				mutated[ev.session] = true
				mutated[len(r.sessions)-1] = true
				r.removeAt(ev.session)
				r.rebuild()
			case KindReplace:
				mutated[ev.session] = true
				closeIfCloser(r.sessions[ev.session])
				r.sessions[ev.session] = outcome.Session
				r.rebuild()
			case KindAddSibling:
				r.sessions = append(r.sessions, outcome.Session)
				r.rebuild()
			case KindError:
				r.logger.Error("reactor: session error", "session", ev.session, "err", outcome.Err)
			}
		}
	}
}

// Sessions returns the number of live sessions. Exposed for tests and
// metrics; callers must not retain or mutate anything reachable from it.
func (r *Reactor) Sessions() int {
	return len(r.sessions)
}
