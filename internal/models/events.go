package models

// Event names delivered over channel subscriptions. Subscribers receive
// incremental events rather than full-list snapshots, so a dropped client
// never races a stale list into a newly selected channel.
const (
	EventMessageCreated  = "message_created"
	EventMessageDeleted  = "message_deleted"
	EventReactionUpdated = "reaction_updated"
	EventMessagesSeen    = "messages_seen"
	EventTyping          = "typing"
	EventPresence        = "presence"
)

// ChannelEvent is the envelope pushed to every subscriber of a channel and
// published to the event stream for downstream consumers.
type ChannelEvent struct {
	Channel string `json:"channel"`
	Name    string `json:"name"`
	Data    any    `json:"data"`
	At      int64  `json:"at"` // epoch ms
}

type TypingEvent struct {
	UserID   string `json:"user_id"`
	Typing   bool   `json:"typing"`
	TypingTo string `json:"typing_to,omitempty"`
}

type PresenceEvent struct {
	UserID   string `json:"user_id"`
	Active   bool   `json:"active"`
	LastSeen int64  `json:"last_seen"`
}

type MessagesSeenEvent struct {
	ChannelID string `json:"channel_id"`
	ReaderID  string `json:"reader_id"`
	Count     int64  `json:"count"`
}
