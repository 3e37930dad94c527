package usecase

import (
	"context"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ahnaf-Tariq/echochat-server/internal/config"
	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
	"github.com/Ahnaf-Tariq/echochat-server/internal/repo/mongodb"
	redisrepo "github.com/Ahnaf-Tariq/echochat-server/internal/repo/redis"
)

type PresenceUsecase interface {
	// TypingActivity records a keystroke from userID aimed at peerID. State
	// writes and broadcasts happen only on transitions, not on every call.
	TypingActivity(ctx context.Context, userID, peerID string) error
	// StopTyping returns the user to Idle right away: empty input, sign-out
	// or a dropped socket, without waiting for the inactivity timer.
	StopTyping(ctx context.Context, userID string) error
	Heartbeat(ctx context.Context, userID string) error
	GetPresence(ctx context.Context, userID string) (*models.Presence, error)
	ListContacts(ctx context.Context, userID string) ([]*models.User, error)
}

// TypingStopper is the slice of PresenceUsecase that sign-out needs.
type TypingStopper interface {
	StopTyping(ctx context.Context, userID string) error
}

type presenceUsecase struct {
	userRepo    mongodb.UserRepository
	presence    redisrepo.PresenceStore
	broadcaster Broadcaster
	tracker     *TypingTracker
}

func NewPresenceUsecase(
	cfg *config.Config,
	userRepo mongodb.UserRepository,
	presence redisrepo.PresenceStore,
	broadcaster Broadcaster,
) PresenceUsecase {
	uc := &presenceUsecase{
		userRepo:    userRepo,
		presence:    presence,
		broadcaster: broadcaster,
	}
	uc.tracker = NewTypingTracker(cfg.Presence.TypingIdleTimeout, uc.typingExpired)
	return uc
}

func (uc *presenceUsecase) TypingActivity(ctx context.Context, userID, peerID string) error {
	prevPeer, transition := uc.tracker.Activity(userID, peerID)
	if !transition {
		// still typing to the same peer, nothing changed for subscribers
		return nil
	}
	if prevPeer != "" {
		// the abandoned peer would otherwise show "typing" until the timer fires
		uc.broadcastTyping(userID, false, prevPeer)
	}

	if err := uc.userRepo.SetTyping(ctx, userID, true, peerID); err != nil {
		return err
	}
	if err := uc.presence.SetTyping(ctx, userID, peerID); err != nil {
		log.Warnw(ctx, "set typing in redis", "error", err, "user_id", userID)
	}

	uc.broadcastTyping(userID, true, peerID)
	return nil
}

func (uc *presenceUsecase) StopTyping(ctx context.Context, userID string) error {
	peer, wasTyping := uc.tracker.Idle(userID)
	if !wasTyping {
		return nil
	}

	if err := uc.userRepo.SetTyping(ctx, userID, false, ""); err != nil {
		return err
	}
	if err := uc.presence.ClearTyping(ctx, userID); err != nil {
		log.Warnw(ctx, "clear typing in redis", "error", err, "user_id", userID)
	}

	uc.broadcastTyping(userID, false, peer)
	return nil
}

// typingExpired runs from the tracker's timer when no activity arrived for
// the idle window.
func (uc *presenceUsecase) typingExpired(userID, peerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := uc.userRepo.SetTyping(ctx, userID, false, ""); err != nil {
		log.Errorw(ctx, "clear typing", "error", err, "user_id", userID)
	}
	if err := uc.presence.ClearTyping(ctx, userID); err != nil {
		log.Warnw(ctx, "clear typing in redis", "error", err, "user_id", userID)
	}

	uc.broadcastTyping(userID, false, peerID)
}

func (uc *presenceUsecase) Heartbeat(ctx context.Context, userID string) error {
	return uc.presence.Heartbeat(ctx, userID)
}

func (uc *presenceUsecase) GetPresence(ctx context.Context, userID string) (*models.Presence, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, models.ErrNotFound
	}
	user, err := uc.userRepo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	view := &models.Presence{
		UserID:   userID,
		Active:   user.Active,
		LastSeen: user.LastSeen,
		Typing:   user.Typing,
		TypingTo: user.TypingTo,
	}

	// the heartbeat key is authoritative for liveness; the user document can
	// claim active after a crashed client never signed out
	online, err := uc.presence.IsOnline(ctx, userID)
	if err != nil {
		log.Warnw(ctx, "presence lookup", "error", err, "user_id", userID)
		return view, nil
	}
	view.Active = online
	if typingTo, typing, err := uc.presence.GetTyping(ctx, userID); err == nil {
		view.Typing = typing
		view.TypingTo = typingTo
	}
	return view, nil
}

func (uc *presenceUsecase) ListContacts(ctx context.Context, userID string) ([]*models.User, error) {
	return uc.userRepo.List(ctx, userID)
}

// broadcastTyping notifies the peer's user channel, not a shared room, so
// typing state never leaks to unrelated conversations.
func (uc *presenceUsecase) broadcastTyping(userID string, typing bool, peerID string) {
	event := models.TypingEvent{UserID: userID, Typing: typing}
	if typing {
		event.TypingTo = peerID
	}
	uc.broadcaster.Broadcast(models.ChannelEvent{
		Channel: models.UserChannelID(peerID),
		Name:    models.EventTyping,
		Data:    event,
		At:      time.Now().UnixMilli(),
	})
}
