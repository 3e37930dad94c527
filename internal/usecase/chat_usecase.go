package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
	"github.com/Ahnaf-Tariq/echochat-server/internal/repo/events"
	"github.com/Ahnaf-Tariq/echochat-server/internal/repo/media"
	"github.com/Ahnaf-Tariq/echochat-server/internal/repo/mongodb"
)

// reactionRetries bounds the compare-and-swap loop for reaction updates.
// Conflicts only happen when two users react to the same message at the same
// moment, so a couple of retries is plenty.
const reactionRetries = 3

type ChatUsecase interface {
	SendText(ctx context.Context, senderID, receiverID, text string, timestamp int64) (*models.Message, error)
	SendImage(ctx context.Context, senderID, receiverID, contentType string, data []byte, timestamp int64) (*models.Message, error)
	SendAudio(ctx context.Context, senderID, receiverID, contentType string, data []byte, timestamp int64) (*models.Message, error)
	ListMessages(ctx context.Context, userID, peerID string, limit int64, beforeTS *int64) ([]*models.Message, error)
	DeleteMessage(ctx context.Context, userID string, messageID primitive.ObjectID) error
	SetReaction(ctx context.Context, userID string, messageID primitive.ObjectID, emoji string) (*models.Message, error)
	DeleteReaction(ctx context.Context, userID string, messageID primitive.ObjectID, emoji string) (*models.Message, error)
	MarkSeen(ctx context.Context, readerID, peerID string) (int64, error)
}

type chatUsecase struct {
	messageRepo mongodb.MessageRepository
	mediaStore  media.Store
	broadcaster Broadcaster
	publisher   events.Publisher
}

func NewChatUsecase(
	messageRepo mongodb.MessageRepository,
	mediaStore media.Store,
	broadcaster Broadcaster,
	publisher events.Publisher,
) ChatUsecase {
	return &chatUsecase{
		messageRepo: messageRepo,
		mediaStore:  mediaStore,
		broadcaster: broadcaster,
		publisher:   publisher,
	}
}

func (uc *chatUsecase) SendText(ctx context.Context, senderID, receiverID, text string, timestamp int64) (*models.Message, error) {
	message := models.NewTextMessage(senderID, receiverID, text, orNow(timestamp))
	return uc.send(ctx, message)
}

func (uc *chatUsecase) SendImage(ctx context.Context, senderID, receiverID, contentType string, data []byte, timestamp int64) (*models.Message, error) {
	url, err := uc.mediaStore.Upload(ctx, "images", contentType, data)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	message := models.NewImageMessage(senderID, receiverID, url, orNow(timestamp))
	return uc.send(ctx, message)
}

func (uc *chatUsecase) SendAudio(ctx context.Context, senderID, receiverID, contentType string, data []byte, timestamp int64) (*models.Message, error) {
	url, err := uc.mediaStore.Upload(ctx, "voice", contentType, data)
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}
	message := models.NewAudioMessage(senderID, receiverID, url, orNow(timestamp))
	return uc.send(ctx, message)
}

func (uc *chatUsecase) send(ctx context.Context, message *models.Message) (*models.Message, error) {
	if err := message.Validate(); err != nil {
		return nil, err
	}
	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	uc.emit(ctx, models.ChannelEvent{
		Channel: message.ChannelID,
		Name:    models.EventMessageCreated,
		Data:    message,
		At:      time.Now().UnixMilli(),
	})

	log.Infow(ctx, "message sent",
		"channel_id", message.ChannelID,
		"message_id", message.ID.Hex(),
		"type", message.Type,
	)
	return message, nil
}

func (uc *chatUsecase) ListMessages(ctx context.Context, userID, peerID string, limit int64, beforeTS *int64) ([]*models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	channelID := models.DirectChannelID(userID, peerID)
	return uc.messageRepo.ListChannel(ctx, channelID, limit, beforeTS)
}

// DeleteMessage removes the caller's own message. The sender check lives
// here, not in the client.
func (uc *chatUsecase) DeleteMessage(ctx context.Context, userID string, messageID primitive.ObjectID) error {
	message, err := uc.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return models.ErrForbidden
	}

	if err := uc.messageRepo.Delete(ctx, messageID); err != nil {
		return err
	}

	uc.emit(ctx, models.ChannelEvent{
		Channel: message.ChannelID,
		Name:    models.EventMessageDeleted,
		Data: map[string]string{
			"message_id": messageID.Hex(),
			"channel_id": message.ChannelID,
		},
		At: time.Now().UnixMilli(),
	})
	return nil
}

func (uc *chatUsecase) SetReaction(ctx context.Context, userID string, messageID primitive.ObjectID, emoji string) (*models.Message, error) {
	return uc.updateReaction(ctx, userID, messageID, func(r models.Reactions) models.Reactions {
		return r.Toggle(userID, emoji)
	})
}

func (uc *chatUsecase) DeleteReaction(ctx context.Context, userID string, messageID primitive.ObjectID, emoji string) (*models.Message, error) {
	return uc.updateReaction(ctx, userID, messageID, func(r models.Reactions) models.Reactions {
		return r.Remove(userID, emoji)
	})
}

// updateReaction runs the reconcile function against the freshest copy of
// the message and writes it back under the version read. On conflict the
// whole read-reconcile-write round is retried, so a concurrent reaction is
// never silently dropped.
func (uc *chatUsecase) updateReaction(ctx context.Context, userID string, messageID primitive.ObjectID, reconcile func(models.Reactions) models.Reactions) (*models.Message, error) {
	for attempt := 0; attempt < reactionRetries; attempt++ {
		message, err := uc.messageRepo.GetByID(ctx, messageID)
		if err != nil {
			return nil, err
		}
		if message.SenderID != userID && message.ReceiverID != userID {
			return nil, models.ErrForbidden
		}

		updated := reconcile(message.Reactions)
		err = uc.messageRepo.UpdateReactions(ctx, messageID, message.Version, updated)
		if errors.Is(err, models.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		message.Reactions = updated
		message.Version++
		uc.emit(ctx, models.ChannelEvent{
			Channel: message.ChannelID,
			Name:    models.EventReactionUpdated,
			Data:    message,
			At:      time.Now().UnixMilli(),
		})
		return message, nil
	}
	return nil, models.ErrVersionConflict
}

// MarkSeen flips unseen inbound messages for the reader. Idempotent: a
// second call finds nothing unseen and triggers no event.
func (uc *chatUsecase) MarkSeen(ctx context.Context, readerID, peerID string) (int64, error) {
	channelID := models.DirectChannelID(readerID, peerID)
	modified, err := uc.messageRepo.MarkSeen(ctx, channelID, readerID)
	if err != nil {
		return 0, err
	}
	if modified == 0 {
		return 0, nil
	}

	uc.emit(ctx, models.ChannelEvent{
		Channel: channelID,
		Name:    models.EventMessagesSeen,
		Data: models.MessagesSeenEvent{
			ChannelID: channelID,
			ReaderID:  readerID,
			Count:     modified,
		},
		At: time.Now().UnixMilli(),
	})
	return modified, nil
}

func (uc *chatUsecase) emit(ctx context.Context, event models.ChannelEvent) {
	uc.broadcaster.Broadcast(event)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		log.Errorw(ctx, "publish channel event", "error", err, "event", event.Name)
	}
}

func orNow(timestamp int64) int64 {
	if timestamp > 0 {
		return timestamp
	}
	return time.Now().UnixMilli()
}
