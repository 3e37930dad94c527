package models

import (
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeAudio MessageType = "audio"
)

// Reactions maps an emoji to the set of user ids who reacted with it.
type Reactions map[string][]string

// UserBucket returns the emoji the user currently holds on this message.
func (r Reactions) UserBucket(userID string) (string, bool) {
	for emoji, users := range r {
		if slices.Contains(users, userID) {
			return emoji, true
		}
	}
	return "", false
}

// Toggle reconciles a reaction request against the invariant that a user
// holds at most one emoji per message. The user is removed from every bucket
// (empty buckets are pruned); the requested emoji is then added back unless
// the user already held exactly that emoji, which toggles it off instead.
// The receiver is not mutated.
func (r Reactions) Toggle(userID, emoji string) Reactions {
	held, had := r.UserBucket(userID)
	out := r.without(userID)
	if had && held == emoji {
		return out
	}
	if out == nil {
		out = Reactions{}
	}
	out[emoji] = append(out[emoji], userID)
	return out
}

// Remove drops the user from the given bucket, pruning it if empty.
func (r Reactions) Remove(userID, emoji string) Reactions {
	held, had := r.UserBucket(userID)
	if !had || held != emoji {
		return r.clone()
	}
	return r.without(userID)
}

func (r Reactions) without(userID string) Reactions {
	out := Reactions{}
	for emoji, users := range r {
		kept := slices.DeleteFunc(slices.Clone(users), func(u string) bool {
			return u == userID
		})
		if len(kept) > 0 {
			out[emoji] = kept
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (r Reactions) clone() Reactions {
	if len(r) == 0 {
		return nil
	}
	out := make(Reactions, len(r))
	for emoji, users := range r {
		out[emoji] = slices.Clone(users)
	}
	return out
}

// Message is a direct message stored as its own document. The server-assigned
// ObjectID is the message identity; the client timestamp is an ordering hint
// only. Version guards the one remaining read-modify-write (reaction
// reconciliation) with a compare-and-swap.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChannelID   string             `bson:"channel_id" json:"channel_id"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	ReceiverID  string             `bson:"receiver_id" json:"receiver_id"`
	Type        MessageType        `bson:"type" json:"type"`
	Text        string             `bson:"text,omitempty" json:"text,omitempty"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	AudioURL    string             `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
	Timestamp   int64              `bson:"timestamp" json:"timestamp"` // epoch ms, client order hint
	Reactions   Reactions          `bson:"reactions,omitempty" json:"reactions,omitempty"`
	HasUserSeen bool               `bson:"has_user_seen" json:"has_user_seen"`
	Version     int64              `bson:"version" json:"-"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// NewTextMessage, NewImageMessage and NewAudioMessage are the only ways a
// message payload is assembled, so a text message carrying an audio URL is
// unrepresentable through the constructors and rejected by Validate.

func NewTextMessage(senderID, receiverID, text string, timestamp int64) *Message {
	m := newDirectMessage(senderID, receiverID, timestamp)
	m.Type = MessageTypeText
	m.Text = text
	return m
}

func NewImageMessage(senderID, receiverID, imageURL string, timestamp int64) *Message {
	m := newDirectMessage(senderID, receiverID, timestamp)
	m.Type = MessageTypeImage
	m.ImageURL = imageURL
	return m
}

func NewAudioMessage(senderID, receiverID, audioURL string, timestamp int64) *Message {
	m := newDirectMessage(senderID, receiverID, timestamp)
	m.Type = MessageTypeAudio
	m.AudioURL = audioURL
	return m
}

func newDirectMessage(senderID, receiverID string, timestamp int64) *Message {
	return &Message{
		ChannelID:  DirectChannelID(senderID, receiverID),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Timestamp:  timestamp,
	}
}

// Validate rejects payloads that do not match the message type.
func (m *Message) Validate() error {
	if m.SenderID == "" || m.ReceiverID == "" {
		return fmt.Errorf("%w: missing participants", ErrInvalidMessage)
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidMessage)
	}
	return validatePayload(m.Type, m.Text, m.ImageURL, m.AudioURL)
}

func validatePayload(typ MessageType, text, imageURL, audioURL string) error {
	switch typ {
	case MessageTypeText:
		if text == "" || imageURL != "" || audioURL != "" {
			return fmt.Errorf("%w: text message must carry text only", ErrInvalidMessage)
		}
	case MessageTypeImage:
		if imageURL == "" || text != "" || audioURL != "" {
			return fmt.Errorf("%w: image message must carry an image url only", ErrInvalidMessage)
		}
	case MessageTypeAudio:
		if audioURL == "" || text != "" || imageURL != "" {
			return fmt.Errorf("%w: audio message must carry an audio url only", ErrInvalidMessage)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, typ)
	}
	return nil
}
