package models

import "strings"

// DirectChannelID derives the conversation identifier for a pair of users.
// It is commutative: both participants compute the same identifier locally,
// so no lookup round trip is needed before reading or writing a channel.
func DirectChannelID(userA, userB string) string {
	if userA < userB {
		return userA + "_" + userB
	}
	return userB + "_" + userA
}

// GroupChannelID scopes hub rooms and event streams for a group chat.
func GroupChannelID(groupID string) string {
	return "group_" + groupID
}

// UserChannelID scopes presence and typing broadcasts for a single user.
// Peers interested in that user's state subscribe here.
func UserChannelID(userID string) string {
	return "user_" + userID
}

// ParseDirectChannelID splits a direct conversation identifier back into its
// two participants, in the canonical order.
func ParseDirectChannelID(channel string) (string, string, bool) {
	a, b, ok := strings.Cut(channel, "_")
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	// group and user rooms share the underscore separator
	if a == "group" || a == "user" || strings.Contains(b, "_") {
		return "", "", false
	}
	return a, b, true
}

func ParseGroupChannelID(channel string) (string, bool) {
	return strings.CutPrefix(channel, "group_")
}

func ParseUserChannelID(channel string) (string, bool) {
	return strings.CutPrefix(channel, "user_")
}
