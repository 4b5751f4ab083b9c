package reactor

import (
	"testing"
)

// fakeSession is a minimal Session used to exercise rebuild/removeAt without
// touching real file descriptors.
type fakeSession struct {
	fds    []PollFD
	closed bool
}

func (f *fakeSession) PollFDs() []PollFD   { return f.fds }
func (f *fakeSession) Incoming(int) Outcome { return Continue() }
func (f *fakeSession) CloseSession()        { f.closed = true }

func TestRebuildConcatenatesAllSessionPollFDs(t *testing.T) {
	a := &fakeSession{fds: []PollFD{{FD: 10, Interest: Read}}}
	b := &fakeSession{fds: []PollFD{{FD: 20, Interest: Read}, {FD: 21, Interest: Write}}}

	r := New(a, nil)
	r.sessions = append(r.sessions, b)
	r.rebuild()

	if len(r.poller.entries) != 3 {
		t.Fatalf("expected 3 registered descriptors, got %d", len(r.poller.entries))
	}
	want := map[int]int16{10: unixPOLLIN(), 20: unixPOLLIN(), 21: unixPOLLOUT()}
	for _, e := range r.poller.entries {
		if want[e.fd] != e.events {
			t.Errorf("fd %d: got events %d, want %d", e.fd, e.events, want[e.fd])
		}
	}
}

func TestRemoveAtSwapsLastSessionIntoSlot(t *testing.T) {
	a := &fakeSession{fds: []PollFD{{FD: 1, Interest: Read}}}
	b := &fakeSession{fds: []PollFD{{FD: 2, Interest: Read}}}
	c := &fakeSession{fds: []PollFD{{FD: 3, Interest: Read}}}

	r := New(a, nil)
	r.sessions = append(r.sessions, b, c)

	r.removeAt(0)

	if !a.closed {
		t.Error("removed session should have CloseSession called")
	}
	if len(r.sessions) != 2 {
		t.Fatalf("expected 2 sessions left, got %d", len(r.sessions))
	}
	if r.sessions[0] != c {
		t.Error("expected last session to be swapped into the removed slot")
	}
}

func TestStaleSessionIndexBoundsCheckDoesNotPanic(t *testing.T) {
	a := &fakeSession{fds: []PollFD{{FD: 1, Interest: Read}}}
	r := New(a, nil)

	// Simulate a batch where a prior mutating event already shrank the
	// session list below an index captured earlier in the same batch.
	r.sessions = r.sessions[:0]

	defer func() {
		if rec := recover(); rec != nil {
			t.Fatalf("stale index access panicked: %v", rec)
		}
	}()

	ev := readyEvent{session: 5, fdIndex: 0}
	if ev.session >= len(r.sessions) {
		r.logger.Warn("stale session index in event batch, dropping", "session", ev.session)
		return
	}
	t.Fatal("expected stale index to be detected")
}

func unixPOLLIN() int16  { return interestToEvents(Read) }
func unixPOLLOUT() int16 { return interestToEvents(Write) }
