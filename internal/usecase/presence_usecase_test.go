package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ahnaf-Tariq/echochat-server/internal/config"
	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
)

type fakePresenceStore struct {
	mu     sync.Mutex
	online map[string]bool
	typing map[string]string
}

func newFakePresenceStore() *fakePresenceStore {
	return &fakePresenceStore{
		online: make(map[string]bool),
		typing: make(map[string]string),
	}
}

func (s *fakePresenceStore) Heartbeat(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[userID] = true
	return nil
}

func (s *fakePresenceStore) ClearOnline(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.online, userID)
	return nil
}

func (s *fakePresenceStore) IsOnline(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[userID], nil
}

func (s *fakePresenceStore) SetTyping(_ context.Context, userID, typingTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing[userID] = typingTo
	return nil
}

func (s *fakePresenceStore) ClearTyping(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.typing, userID)
	return nil
}

func (s *fakePresenceStore) GetTyping(_ context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	typingTo, ok := s.typing[userID]
	return typingTo, ok, nil
}

func newPresenceFixture(t *testing.T, idle time.Duration) (*fakePresenceStore, *fakeBroadcaster, PresenceUsecase) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Presence.TypingIdleTimeout = idle

	store := newFakePresenceStore()
	broadcaster := &fakeBroadcaster{}
	userRepo := newFakeUserRepo(map[string]string{
		aliceID: "alice",
		bobID:   "bob",
	})
	uc := NewPresenceUsecase(cfg, userRepo, store, broadcaster)
	return store, broadcaster, uc
}

func TestTypingActivityBroadcastsOnTransitionOnly(t *testing.T) {
	store, broadcaster, uc := newPresenceFixture(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, uc.TypingActivity(ctx, aliceID, bobID))
	// repeated keystrokes inside the window stay silent
	require.NoError(t, uc.TypingActivity(ctx, aliceID, bobID))
	require.NoError(t, uc.TypingActivity(ctx, aliceID, bobID))

	events := broadcaster.events
	require.Len(t, events, 1)
	assert.Equal(t, models.UserChannelID(bobID), events[0].Channel)
	assert.Equal(t, models.EventTyping, events[0].Name)

	typingEvent := events[0].Data.(models.TypingEvent)
	assert.True(t, typingEvent.Typing)
	assert.Equal(t, aliceID, typingEvent.UserID)
	assert.Equal(t, bobID, typingEvent.TypingTo)

	typingTo, typing, err := store.GetTyping(ctx, aliceID)
	require.NoError(t, err)
	assert.True(t, typing)
	assert.Equal(t, bobID, typingTo)
}

func TestTypingExpiresToIdle(t *testing.T) {
	store, broadcaster, uc := newPresenceFixture(t, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, uc.TypingActivity(ctx, aliceID, bobID))

	require.Eventually(t, func() bool {
		return len(broadcaster.names()) == 2
	}, time.Second, 5*time.Millisecond)

	events := broadcaster.events
	idleEvent := events[1].Data.(models.TypingEvent)
	assert.False(t, idleEvent.Typing)
	assert.Equal(t, aliceID, idleEvent.UserID)

	_, typing, err := store.GetTyping(ctx, aliceID)
	require.NoError(t, err)
	assert.False(t, typing)
}

func TestTypingSwitchClearsPreviousPeer(t *testing.T) {
	store, broadcaster, uc := newPresenceFixture(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, uc.TypingActivity(ctx, aliceID, bobID))
	require.NoError(t, uc.TypingActivity(ctx, aliceID, carolID))

	// bob must see the clear before carol sees the new typing state, or his
	// client keeps showing "typing" until the idle timer fires
	events := broadcaster.events
	require.Len(t, events, 3)

	clearEvent := events[1].Data.(models.TypingEvent)
	assert.Equal(t, models.UserChannelID(bobID), events[1].Channel)
	assert.False(t, clearEvent.Typing)
	assert.Equal(t, aliceID, clearEvent.UserID)

	typingEvent := events[2].Data.(models.TypingEvent)
	assert.Equal(t, models.UserChannelID(carolID), events[2].Channel)
	assert.True(t, typingEvent.Typing)
	assert.Equal(t, carolID, typingEvent.TypingTo)

	typingTo, typing, err := store.GetTyping(ctx, aliceID)
	require.NoError(t, err)
	assert.True(t, typing)
	assert.Equal(t, carolID, typingTo)
}

func TestStopTypingClearsStateAndNotifiesPeer(t *testing.T) {
	store, broadcaster, uc := newPresenceFixture(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, uc.TypingActivity(ctx, aliceID, bobID))
	require.NoError(t, uc.StopTyping(ctx, aliceID))

	events := broadcaster.events
	require.Len(t, events, 2)
	clearEvent := events[1].Data.(models.TypingEvent)
	assert.Equal(t, models.UserChannelID(bobID), events[1].Channel)
	assert.False(t, clearEvent.Typing)
	assert.Equal(t, aliceID, clearEvent.UserID)

	_, typing, err := store.GetTyping(ctx, aliceID)
	require.NoError(t, err)
	assert.False(t, typing)

	// already idle, nothing to clear or broadcast
	require.NoError(t, uc.StopTyping(ctx, aliceID))
	assert.Len(t, broadcaster.events, 2)
}

func TestGetPresencePrefersHeartbeat(t *testing.T) {
	store, _, uc := newPresenceFixture(t, time.Hour)
	ctx := context.Background()

	// the user document says active, but no heartbeat key exists: the
	// client crashed without signing out
	presence, err := uc.GetPresence(ctx, aliceID)
	require.NoError(t, err)
	assert.False(t, presence.Active)

	require.NoError(t, store.Heartbeat(ctx, aliceID))
	presence, err = uc.GetPresence(ctx, aliceID)
	require.NoError(t, err)
	assert.True(t, presence.Active)
}

func TestGetPresenceUnknownUser(t *testing.T) {
	_, _, uc := newPresenceFixture(t, time.Hour)

	_, err := uc.GetPresence(context.Background(), "not-a-hex-id")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
