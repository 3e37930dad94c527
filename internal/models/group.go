package models

import (
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Group struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name" validate:"required"`
	Members   []string           `bson:"members" json:"members"`
	CreatedBy string             `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// NormalizeMembers builds the initial member set for a group: the creator is
// always included, duplicates and empty entries are dropped, and input order
// is preserved after the creator.
func NormalizeMembers(creatorID string, memberIDs []string) []string {
	seen := map[string]bool{creatorID: true}
	out := []string{creatorID}
	for _, id := range memberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// GroupMessage mirrors Message but lives in a per-group collection and
// carries the denormalized sender name plus the users mentioned in the text.
type GroupMessage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	SenderName  string             `bson:"sender_name" json:"sender_name"`
	Type        MessageType        `bson:"type" json:"type"`
	Text        string             `bson:"text,omitempty" json:"text,omitempty"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	AudioURL    string             `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
	Timestamp   int64              `bson:"timestamp" json:"timestamp"`
	Reactions   Reactions          `bson:"reactions,omitempty" json:"reactions,omitempty"`
	TaggedUsers []string           `bson:"tagged_users,omitempty" json:"tagged_users,omitempty"`
	Version     int64              `bson:"version" json:"-"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

func (m *GroupMessage) Validate() error {
	if m.SenderID == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidMessage)
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidMessage)
	}
	return validatePayload(m.Type, m.Text, m.ImageURL, m.AudioURL)
}

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions resolves @username tokens in a message text against the
// group's members, given a username -> user id mapping. Unknown usernames are
// ignored; each user appears at most once.
func ExtractMentions(text string, idByUsername map[string]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, match := range mentionPattern.FindAllStringSubmatch(text, -1) {
		id, ok := idByUsername[match[1]]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
