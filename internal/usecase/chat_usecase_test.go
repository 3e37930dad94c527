package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
)

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[primitive.ObjectID]*models.Message

	// runs between the version check and the write, lets tests interleave
	// a concurrent update
	beforeUpdate func(repo *fakeMessageRepo)
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[primitive.ObjectID]*models.Message)}
}

func (r *fakeMessageRepo) Create(_ context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = primitive.NewObjectID()
	message.Version = 1
	clone := *message
	r.messages[message.ID] = &clone
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	clone := *message
	return &clone, nil
}

func (r *fakeMessageRepo) ListChannel(_ context.Context, channelID string, limit int64, beforeTS *int64) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, message := range r.messages {
		if message.ChannelID != channelID {
			continue
		}
		if beforeTS != nil && message.Timestamp >= *beforeTS {
			continue
		}
		clone := *message
		out = append(out, &clone)
	}
	// the limit keeps the newest page, the caller reads oldest-first
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *fakeMessageRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.messages, id)
	return nil
}

func (r *fakeMessageRepo) UpdateReactions(_ context.Context, id primitive.ObjectID, version int64, reactions models.Reactions) error {
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		hook(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[id]
	if !ok {
		return models.ErrNotFound
	}
	if message.Version != version {
		return models.ErrVersionConflict
	}
	message.Reactions = reactions
	message.Version++
	return nil
}

func (r *fakeMessageRepo) MarkSeen(_ context.Context, channelID, receiverID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var modified int64
	for _, message := range r.messages {
		if message.ChannelID == channelID && message.ReceiverID == receiverID && !message.HasUserSeen {
			message.HasUserSeen = true
			modified++
		}
	}
	return modified, nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.ChannelEvent
}

func (b *fakeBroadcaster) Broadcast(event models.ChannelEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Name)
	}
	return out
}

type fakePublisher struct{}

func (fakePublisher) Publish(context.Context, models.ChannelEvent) error { return nil }
func (fakePublisher) Close() error                                       { return nil }

type fakeMediaStore struct {
	url string
	err error
}

func (s *fakeMediaStore) Upload(_ context.Context, kind, _ string, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url + "/" + kind, nil
}

func newChatFixture(t *testing.T) (*fakeMessageRepo, *fakeBroadcaster, *fakeMediaStore, ChatUsecase) {
	t.Helper()
	repo := newFakeMessageRepo()
	broadcaster := &fakeBroadcaster{}
	store := &fakeMediaStore{url: "https://cdn.example.com"}
	uc := NewChatUsecase(repo, store, broadcaster, fakePublisher{})
	return repo, broadcaster, store, uc
}

func TestSendTextAndList(t *testing.T) {
	_, broadcaster, _, uc := newChatFixture(t)
	ctx := context.Background()

	sent, err := uc.SendText(ctx, "alice", "bob", "hello", 1000)
	require.NoError(t, err)
	assert.False(t, sent.ID.IsZero())
	assert.Equal(t, "alice_bob", sent.ChannelID)

	// both participants read the same channel
	messages, err := uc.ListMessages(ctx, "bob", "alice", 0, nil)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Text)

	assert.Equal(t, []string{models.EventMessageCreated}, broadcaster.names())
}

func TestListMessagesPagesNewestOldestFirst(t *testing.T) {
	_, _, _, uc := newChatFixture(t)
	ctx := context.Background()

	for i, text := range []string{"first", "second", "third"} {
		_, err := uc.SendText(ctx, "alice", "bob", text, int64(1000+i))
		require.NoError(t, err)
	}

	// a limited page holds the newest messages, returned oldest-first
	messages, err := uc.ListMessages(ctx, "bob", "alice", 2, nil)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", messages[0].Text)
	assert.Equal(t, "third", messages[1].Text)

	// paging backwards from the oldest of that page yields the rest
	before := messages[0].Timestamp
	messages, err = uc.ListMessages(ctx, "bob", "alice", 2, &before)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "first", messages[0].Text)
}

func TestSendTextRejectsEmpty(t *testing.T) {
	repo, _, _, uc := newChatFixture(t)

	_, err := uc.SendText(context.Background(), "alice", "bob", "", 1000)
	assert.ErrorIs(t, err, models.ErrInvalidMessage)
	assert.Empty(t, repo.messages)
}

func TestSendImageUploadFailureCreatesNothing(t *testing.T) {
	repo, broadcaster, store, uc := newChatFixture(t)
	store.err = errors.New("bucket unavailable")

	_, err := uc.SendImage(context.Background(), "alice", "bob", "image/png", []byte{1}, 1000)
	require.Error(t, err)
	assert.Empty(t, repo.messages)
	assert.Empty(t, broadcaster.names())
}

func TestSendAudio(t *testing.T) {
	_, _, _, uc := newChatFixture(t)

	sent, err := uc.SendAudio(context.Background(), "alice", "bob", "audio/webm", []byte{1}, 1000)
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeAudio, sent.Type)
	assert.Equal(t, "https://cdn.example.com/voice", sent.AudioURL)
}

func TestDeleteMessageAuthorization(t *testing.T) {
	repo, broadcaster, _, uc := newChatFixture(t)
	ctx := context.Background()

	sent, err := uc.SendText(ctx, "alice", "bob", "hello", 1000)
	require.NoError(t, err)

	// only the sender may delete, receiver included
	err = uc.DeleteMessage(ctx, "bob", sent.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, uc.DeleteMessage(ctx, "alice", sent.ID))
	assert.Empty(t, repo.messages)
	assert.Equal(t, []string{models.EventMessageCreated, models.EventMessageDeleted}, broadcaster.names())

	err = uc.DeleteMessage(ctx, "alice", sent.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReactionToggleFlow(t *testing.T) {
	_, _, _, uc := newChatFixture(t)
	ctx := context.Background()

	sent, err := uc.SendText(ctx, "alice", "bob", "hello", 1000)
	require.NoError(t, err)

	// outsiders cannot react to a conversation they are not part of
	_, err = uc.SetReaction(ctx, "carol", sent.ID, "👍")
	assert.ErrorIs(t, err, models.ErrForbidden)

	updated, err := uc.SetReaction(ctx, "bob", sent.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, models.Reactions{"👍": {"bob"}}, updated.Reactions)

	// switching emoji replaces the old one
	updated, err = uc.SetReaction(ctx, "bob", sent.ID, "❤️")
	require.NoError(t, err)
	assert.Equal(t, models.Reactions{"❤️": {"bob"}}, updated.Reactions)

	// same emoji again toggles off
	updated, err = uc.SetReaction(ctx, "bob", sent.ID, "❤️")
	require.NoError(t, err)
	assert.Nil(t, updated.Reactions)
}

func TestDeleteReaction(t *testing.T) {
	_, _, _, uc := newChatFixture(t)
	ctx := context.Background()

	sent, err := uc.SendText(ctx, "alice", "bob", "hello", 1000)
	require.NoError(t, err)

	_, err = uc.SetReaction(ctx, "bob", sent.ID, "👍")
	require.NoError(t, err)

	updated, err := uc.DeleteReaction(ctx, "bob", sent.ID, "👍")
	require.NoError(t, err)
	assert.Nil(t, updated.Reactions)
}

func TestReactionConflictIsRetriedWithoutLosingUpdates(t *testing.T) {
	repo, _, _, uc := newChatFixture(t)
	ctx := context.Background()

	sent, err := uc.SendText(ctx, "alice", "bob", "hello", 1000)
	require.NoError(t, err)

	// a concurrent reaction lands between bob's read and write
	repo.beforeUpdate = func(r *fakeMessageRepo) {
		r.mu.Lock()
		defer r.mu.Unlock()
		message := r.messages[sent.ID]
		message.Reactions = message.Reactions.Toggle("alice", "😂")
		message.Version++
	}

	updated, err := uc.SetReaction(ctx, "bob", sent.ID, "👍")
	require.NoError(t, err)

	// the retry reconciled against the fresh copy, neither reaction was lost
	assert.Equal(t, []string{"alice"}, updated.Reactions["😂"])
	assert.Equal(t, []string{"bob"}, updated.Reactions["👍"])
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	_, broadcaster, _, uc := newChatFixture(t)
	ctx := context.Background()

	_, err := uc.SendText(ctx, "alice", "bob", "one", 1000)
	require.NoError(t, err)
	_, err = uc.SendText(ctx, "alice", "bob", "two", 1001)
	require.NoError(t, err)

	count, err := uc.MarkSeen(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// nothing left unseen, no event goes out
	before := len(broadcaster.names())
	count, err = uc.MarkSeen(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.Len(t, broadcaster.names(), before)
}

func TestMarkSeenOnlyFlipsInboundMessages(t *testing.T) {
	repo, _, _, uc := newChatFixture(t)
	ctx := context.Background()

	sent, err := uc.SendText(ctx, "alice", "bob", "hello", 1000)
	require.NoError(t, err)

	// alice reading her own sent message changes nothing
	count, err := uc.MarkSeen(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	stored, err := repo.GetByID(ctx, sent.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasUserSeen)
}
