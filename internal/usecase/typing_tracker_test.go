package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expireRecorder struct {
	mu      sync.Mutex
	expired [][2]string
	notify  chan struct{}
}

func newExpireRecorder() *expireRecorder {
	return &expireRecorder{notify: make(chan struct{}, 16)}
}

func (r *expireRecorder) record(userID, peerID string) {
	r.mu.Lock()
	r.expired = append(r.expired, [2]string{userID, peerID})
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *expireRecorder) want(t *testing.T) [2]string {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(time.Second):
		t.Fatal("no expiry arrived")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expired[len(r.expired)-1]
}

func (r *expireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.expired)
}

func TestTypingTrackerTransitions(t *testing.T) {
	rec := newExpireRecorder()
	tracker := NewTypingTracker(time.Hour, rec.record)

	// first keystroke is a transition with no abandoned peer
	prev, transition := tracker.Activity("alice", "bob")
	assert.True(t, transition)
	assert.Empty(t, prev)
	// further keystrokes to the same peer are not
	_, transition = tracker.Activity("alice", "bob")
	assert.False(t, transition)
	_, transition = tracker.Activity("alice", "bob")
	assert.False(t, transition)
	// switching conversations is, and it names the peer left behind
	prev, transition = tracker.Activity("alice", "carol")
	assert.True(t, transition)
	assert.Equal(t, "bob", prev)

	peer, ok := tracker.Peer("alice")
	require.True(t, ok)
	assert.Equal(t, "carol", peer)

	// explicit idle reports the peer to clear and stops the timer
	peer, wasTyping := tracker.Idle("alice")
	assert.True(t, wasTyping)
	assert.Equal(t, "carol", peer)
	_, wasTyping = tracker.Idle("alice")
	assert.False(t, wasTyping)
	assert.Zero(t, rec.count())
}

func TestTypingTrackerExpiresAfterIdleWindow(t *testing.T) {
	rec := newExpireRecorder()
	tracker := NewTypingTracker(20*time.Millisecond, rec.record)

	_, transition := tracker.Activity("alice", "bob")
	require.True(t, transition)
	assert.Equal(t, [2]string{"alice", "bob"}, rec.want(t))

	_, ok := tracker.Peer("alice")
	assert.False(t, ok)
}

func TestTypingTrackerActivityResetsTimer(t *testing.T) {
	rec := newExpireRecorder()
	tracker := NewTypingTracker(60*time.Millisecond, rec.record)

	_, transition := tracker.Activity("alice", "bob")
	require.True(t, transition)
	for i := 0; i < 3; i++ {
		time.Sleep(30 * time.Millisecond)
		// keystrokes keep arriving inside the window, no expiry yet
		_, transition = tracker.Activity("alice", "bob")
		assert.False(t, transition)
		assert.Zero(t, rec.count())
	}

	assert.Equal(t, [2]string{"alice", "bob"}, rec.want(t))
	assert.Equal(t, 1, rec.count())
}

func TestTypingTrackerExpiryCarriesLatestPeer(t *testing.T) {
	rec := newExpireRecorder()
	tracker := NewTypingTracker(30*time.Millisecond, rec.record)

	_, transition := tracker.Activity("alice", "bob")
	require.True(t, transition)
	prev, transition := tracker.Activity("alice", "carol")
	require.True(t, transition)
	assert.Equal(t, "bob", prev)

	assert.Equal(t, [2]string{"alice", "carol"}, rec.want(t))
	assert.Equal(t, 1, rec.count())
}

func TestTypingTrackerTracksUsersIndependently(t *testing.T) {
	rec := newExpireRecorder()
	tracker := NewTypingTracker(time.Hour, rec.record)

	_, transition := tracker.Activity("alice", "bob")
	assert.True(t, transition)
	_, transition = tracker.Activity("bob", "alice")
	assert.True(t, transition)

	_, wasTyping := tracker.Idle("alice")
	assert.True(t, wasTyping)
	peer, ok := tracker.Peer("bob")
	require.True(t, ok)
	assert.Equal(t, "alice", peer)
}
