package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectChannelID(t *testing.T) {
	// both sides must derive the same id without a lookup
	assert.Equal(t, DirectChannelID("alice", "bob"), DirectChannelID("bob", "alice"))
	assert.Equal(t, "alice_bob", DirectChannelID("bob", "alice"))
	assert.Equal(t, "u1_u2", DirectChannelID("u2", "u1"))
}

func TestParseDirectChannelID(t *testing.T) {
	a, b, ok := ParseDirectChannelID("alice_bob")
	assert.True(t, ok)
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	for _, channel := range []string{"", "alice", "_bob", "alice_", "group_abc", "user_abc", "a_b_c"} {
		_, _, ok := ParseDirectChannelID(channel)
		assert.False(t, ok, "channel %q", channel)
	}
}

func TestGroupAndUserChannelIDs(t *testing.T) {
	assert.Equal(t, "group_42", GroupChannelID("42"))
	id, ok := ParseGroupChannelID("group_42")
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	assert.Equal(t, "user_7", UserChannelID("7"))
	id, ok = ParseUserChannelID("user_7")
	assert.True(t, ok)
	assert.Equal(t, "7", id)

	_, ok = ParseGroupChannelID("user_7")
	assert.False(t, ok)
}
