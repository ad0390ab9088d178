package testutil

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

// FakeSession records events sent to a status subscriber.
type FakeSession struct {
	ctx context.Context

	mu      sync.Mutex
	events  []types.Event
	sendErr error
	gate    chan struct{}
}

// NewFakeSession creates a session bound to ctx.
func NewFakeSession(ctx context.Context) *FakeSession {
	return &FakeSession{ctx: ctx}
}

// NewBlockedSession creates a session whose Send blocks until Release.
func NewBlockedSession(ctx context.Context) *FakeSession {
	return &FakeSession{ctx: ctx, gate: make(chan struct{})}
}

// Context returns the session context.
func (s *FakeSession) Context() context.Context {
	return s.ctx
}

// Send records ev, blocking first if the session is gated.
func (s *FakeSession) Send(ev types.Event) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.events = append(s.events, ev)
	return nil
}

// FailSends makes every later Send return err.
func (s *FakeSession) FailSends(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

// Release unblocks a gated session.
func (s *FakeSession) Release() {
	if s.gate != nil {
		close(s.gate)
	}
}

// Events returns a copy of the recorded events.
func (s *FakeSession) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Recorder is an observer that records published events.
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
}

// Publish records ev.
func (r *Recorder) Publish(ev types.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, len(r.events))
	copy(out, r.events)
	return out
}
