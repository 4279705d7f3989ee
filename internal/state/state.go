// Package state holds the bridge's per-call runtime state: the media
// channel of the single active call, its outbound frame sequence counter,
// and the mute gate that decides whether locally captured audio reaches the
// caller.
//
// The bridge serves one call at a time. A second inbound call is rejected
// at the webhook until the active one ends.
package state

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/avelow/voxbridge/pkg/provider/callctl"
)

// ErrNoActiveCall is returned by operations that require a live call.
var ErrNoActiveCall = errors.New("state: no active call")

// ErrCallActive is returned by StartCall when a call is already up.
var ErrCallActive = errors.New("state: a call is already active")

// Channel is the outbound side of a media connection. The websocket layer
// implements it; tests substitute a recorder.
type Channel interface {
	// SendMessage writes one envelope to the peer.
	SendMessage(data []byte) error
}

// CallState tracks the active call. The mute flag and sequence counter are
// atomics because the capture callback and the pacer read them from
// goroutines the media loop does not own.
type CallState struct {
	mu      sync.Mutex
	channel Channel
	handle  callctl.Handle

	muted atomic.Bool
	seq   atomic.Uint64
}

// New creates an empty CallState.
func New() *CallState {
	return &CallState{}
}

// StartCall binds the media channel and provider handle of a newly
// established call and resets the sequence counter. Fails with
// ErrCallActive if a call is already bound.
func (s *CallState) StartCall(ch Channel, h callctl.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		return ErrCallActive
	}
	s.channel = ch
	s.handle = h
	s.seq.Store(0)
	s.muted.Store(false)
	return nil
}

// EndCall clears the call binding. Safe to call when no call is active, so
// every teardown path can invoke it unconditionally.
func (s *CallState) EndCall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = nil
	s.handle = callctl.Handle{}
	s.muted.Store(false)
}

// Active reports whether a call is currently bound.
func (s *CallState) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel != nil
}

// Channel returns the active media channel, or ErrNoActiveCall.
func (s *CallState) Channel() (Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return nil, ErrNoActiveCall
	}
	return s.channel, nil
}

// Handle returns the provider handle of the active call, or ErrNoActiveCall.
func (s *CallState) Handle() (callctl.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return callctl.Handle{}, ErrNoActiveCall
	}
	return s.handle, nil
}

// NextSeq returns the next outbound sequence number, starting at 1.
func (s *CallState) NextSeq() uint64 {
	return s.seq.Add(1)
}

// Seq returns the last issued sequence number.
func (s *CallState) Seq() uint64 {
	return s.seq.Load()
}

// SetMuted sets the mute gate and returns the previous value, so playback
// can save and restore the operator's chosen state.
func (s *CallState) SetMuted(m bool) bool {
	return s.muted.Swap(m)
}

// Muted reports the mute gate. Safe to call from any goroutine.
func (s *CallState) Muted() bool {
	return s.muted.Load()
}
