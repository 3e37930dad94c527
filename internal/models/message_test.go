package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionsToggle(t *testing.T) {
	var r Reactions

	r = r.Toggle("alice", "👍")
	assert.Equal(t, Reactions{"👍": {"alice"}}, r)

	// switching emoji moves the user, it never duplicates them
	r = r.Toggle("alice", "❤️")
	assert.Equal(t, Reactions{"❤️": {"alice"}}, r)

	r = r.Toggle("bob", "❤️")
	assert.Equal(t, Reactions{"❤️": {"alice", "bob"}}, r)

	// same emoji again toggles off
	r = r.Toggle("alice", "❤️")
	assert.Equal(t, Reactions{"❤️": {"bob"}}, r)

	r = r.Toggle("bob", "❤️")
	assert.Nil(t, r)
}

func TestReactionsToggleDoesNotMutateReceiver(t *testing.T) {
	original := Reactions{"👍": {"alice"}}
	_ = original.Toggle("alice", "❤️")
	assert.Equal(t, Reactions{"👍": {"alice"}}, original)
}

func TestReactionsOneEmojiPerUser(t *testing.T) {
	var r Reactions
	for _, emoji := range []string{"👍", "❤️", "😂", "👍"} {
		r = r.Toggle("alice", emoji)
		held, ok := r.UserBucket("alice")
		require.True(t, ok)
		assert.Equal(t, emoji, held)
	}
}

func TestReactionsRemove(t *testing.T) {
	r := Reactions{"👍": {"alice", "bob"}}

	// removing an emoji the user does not hold is a no-op
	assert.Equal(t, r, r.Remove("alice", "❤️"))
	assert.Equal(t, r, r.Remove("carol", "👍"))

	r = r.Remove("alice", "👍")
	assert.Equal(t, Reactions{"👍": {"bob"}}, r)

	r = r.Remove("bob", "👍")
	assert.Nil(t, r)
}

func TestMessageValidate(t *testing.T) {
	msg := NewTextMessage("alice", "bob", "hi", 1000)
	require.NoError(t, msg.Validate())
	assert.Equal(t, "alice_bob", msg.ChannelID)
	assert.False(t, msg.HasUserSeen)

	img := NewImageMessage("alice", "bob", "https://cdn.example.com/a.png", 1000)
	require.NoError(t, img.Validate())

	audio := NewAudioMessage("alice", "bob", "https://cdn.example.com/a.webm", 1000)
	require.NoError(t, audio.Validate())
}

func TestMessageValidateRejectsMismatchedPayload(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
	}{
		{"empty text", NewTextMessage("alice", "bob", "", 1000)},
		{"missing sender", NewTextMessage("", "bob", "hi", 1000)},
		{"missing timestamp", NewTextMessage("alice", "bob", "hi", 0)},
		{"unknown type", &Message{SenderID: "alice", ReceiverID: "bob", Type: "video", Timestamp: 1}},
		{
			"text with image url",
			&Message{SenderID: "a", ReceiverID: "b", Type: MessageTypeText, Text: "hi", ImageURL: "x", Timestamp: 1},
		},
		{
			"image with text",
			&Message{SenderID: "a", ReceiverID: "b", Type: MessageTypeImage, ImageURL: "x", Text: "hi", Timestamp: 1},
		},
		{
			"audio without url",
			&Message{SenderID: "a", ReceiverID: "b", Type: MessageTypeAudio, Timestamp: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}
