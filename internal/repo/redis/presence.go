package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceStore keeps liveness and typing state in Redis under TTL keys.
// A user whose client stops heartbeating (crash, network loss) goes offline
// when the key expires, so `active` cannot stay stuck true. Typing keys carry
// their own TTL as a safety net behind the inactivity timer.
//
// Keys:
//   presence:<userID> -> json {last_seen}, TTL = heartbeat TTL
//   typing:<userID>   -> json {typing_to}, TTL = typing TTL
type PresenceStore interface {
	Heartbeat(ctx context.Context, userID string) error
	ClearOnline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
	SetTyping(ctx context.Context, userID, typingTo string) error
	ClearTyping(ctx context.Context, userID string) error
	GetTyping(ctx context.Context, userID string) (typingTo string, typing bool, err error)
}

type presenceStore struct {
	client       *redis.Client
	heartbeatTTL time.Duration
	typingTTL    time.Duration
}

func NewPresenceStore(client *redis.Client, heartbeatTTL, typingTTL time.Duration) PresenceStore {
	return &presenceStore{
		client:       client,
		heartbeatTTL: heartbeatTTL,
		typingTTL:    typingTTL,
	}
}

func presenceKey(userID string) string { return "presence:" + userID }
func typingKey(userID string) string   { return "typing:" + userID }

type presencePayload struct {
	LastSeen int64 `json:"last_seen"`
}

type typingPayload struct {
	TypingTo string `json:"typing_to"`
}

func (s *presenceStore) Heartbeat(ctx context.Context, userID string) error {
	payload, _ := json.Marshal(presencePayload{LastSeen: time.Now().UnixMilli()})
	if err := s.client.Set(ctx, presenceKey(userID), payload, s.heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("presence heartbeat: %w", err)
	}
	return nil
}

func (s *presenceStore) ClearOnline(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, presenceKey(userID), typingKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear presence: %w", err)
	}
	return nil
}

func (s *presenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	err := s.client.Get(ctx, presenceKey(userID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get presence: %w", err)
	}
	return true, nil
}

func (s *presenceStore) SetTyping(ctx context.Context, userID, typingTo string) error {
	payload, _ := json.Marshal(typingPayload{TypingTo: typingTo})
	if err := s.client.Set(ctx, typingKey(userID), payload, s.typingTTL).Err(); err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

func (s *presenceStore) ClearTyping(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, typingKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear typing: %w", err)
	}
	return nil
}

func (s *presenceStore) GetTyping(ctx context.Context, userID string) (string, bool, error) {
	raw, err := s.client.Get(ctx, typingKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get typing: %w", err)
	}

	var payload typingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false, fmt.Errorf("decode typing payload: %w", err)
	}
	return payload.TypingTo, true, nil
}
