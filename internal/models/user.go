package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username" validate:"required"`
	Email        string             `bson:"email" json:"email" validate:"required,email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	LastSeen     int64              `bson:"last_seen" json:"last_seen"` // epoch ms
	Typing       bool               `bson:"typing" json:"typing"`
	TypingTo     string             `bson:"typing_to,omitempty" json:"typing_to,omitempty"`
	Active       bool               `bson:"active" json:"active"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Presence is the live view of a user combining the durable user document
// with the heartbeat-backed liveness signal.
type Presence struct {
	UserID   string `json:"user_id"`
	Active   bool   `json:"active"`
	LastSeen int64  `json:"last_seen"`
	Typing   bool   `json:"typing"`
	TypingTo string `json:"typing_to,omitempty"`
}
