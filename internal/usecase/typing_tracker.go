package usecase

import (
	"sync"
	"time"
)

// TypingTracker is the per-user typing state machine: Idle or Typing(peer).
// Activity on a non-empty input enters Typing and re-arms the inactivity
// timer; empty input or timer expiry returns to Idle. The tracker only
// reports transitions; the self-loop of continued activity re-arms the timer
// without re-broadcasting.
type TypingTracker struct {
	mu        sync.Mutex
	idleAfter time.Duration
	onExpire  func(userID, peerID string)
	active    map[string]*typingState
}

type typingState struct {
	peer  string
	seq   uint64
	timer *time.Timer
}

// NewTypingTracker builds a tracker whose timers fire onExpire when a typing
// user goes silent for idleAfter. onExpire runs on the timer goroutine.
func NewTypingTracker(idleAfter time.Duration, onExpire func(userID, peerID string)) *TypingTracker {
	return &TypingTracker{
		idleAfter: idleAfter,
		onExpire:  onExpire,
		active:    make(map[string]*typingState),
	}
}

// Activity records input activity toward a peer. It reports whether this is
// a transition (Idle -> Typing, or a peer switch) that should be broadcast;
// on a peer switch prevPeer names the abandoned target, which must be told
// the user stopped typing to them.
func (t *TypingTracker) Activity(userID, peerID string) (prevPeer string, transition bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, wasTyping := t.active[userID]
	var seq uint64
	if wasTyping {
		prev.timer.Stop()
		seq = prev.seq + 1
	}

	state := &typingState{peer: peerID, seq: seq}
	state.timer = time.AfterFunc(t.idleAfter, func() { t.expire(userID, seq) })
	t.active[userID] = state

	if !wasTyping {
		return "", true
	}
	if prev.peer != peerID {
		return prev.peer, true
	}
	return "", false
}

// Idle forces the user back to Idle (empty input, sign-out, disconnect).
// It returns the peer the user was typing to, so the caller can broadcast
// the clearing transition.
func (t *TypingTracker) Idle(userID string) (peer string, wasTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.active[userID]
	if !ok {
		return "", false
	}
	state.timer.Stop()
	delete(t.active, userID)
	return state.peer, true
}

// Peer returns the current typing target, if any.
func (t *TypingTracker) Peer(userID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.active[userID]
	if !ok {
		return "", false
	}
	return state.peer, true
}

func (t *TypingTracker) expire(userID string, seq uint64) {
	t.mu.Lock()
	state, ok := t.active[userID]
	// fresh activity re-arms under a new sequence; that timer wins
	if !ok || state.seq != seq {
		t.mu.Unlock()
		return
	}
	delete(t.active, userID)
	peer := state.peer
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(userID, peer)
	}
}
