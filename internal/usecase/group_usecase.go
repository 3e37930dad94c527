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

type GroupUsecase interface {
	CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*models.Group, error)
	GetGroup(ctx context.Context, userID string, groupID primitive.ObjectID) (*models.Group, error)
	ListGroups(ctx context.Context, userID string) ([]*models.Group, error)
	AddMember(ctx context.Context, userID string, groupID primitive.ObjectID, memberID string) error
	RemoveMember(ctx context.Context, userID string, groupID primitive.ObjectID, memberID string) error
	LeaveGroup(ctx context.Context, userID string, groupID primitive.ObjectID) error
	DeleteGroup(ctx context.Context, userID string, groupID primitive.ObjectID) error
	SendText(ctx context.Context, senderID string, groupID primitive.ObjectID, text string, timestamp int64) (*models.GroupMessage, error)
	SendImage(ctx context.Context, senderID string, groupID primitive.ObjectID, contentType string, data []byte, timestamp int64) (*models.GroupMessage, error)
	SendAudio(ctx context.Context, senderID string, groupID primitive.ObjectID, contentType string, data []byte, timestamp int64) (*models.GroupMessage, error)
	ListMessages(ctx context.Context, userID string, groupID primitive.ObjectID, limit int64, beforeTS *int64) ([]*models.GroupMessage, error)
	DeleteMessage(ctx context.Context, userID string, messageID primitive.ObjectID) error
	SetReaction(ctx context.Context, userID string, messageID primitive.ObjectID, emoji string) (*models.GroupMessage, error)
}

type groupUsecase struct {
	groupRepo   mongodb.GroupRepository
	messageRepo mongodb.GroupMessageRepository
	userRepo    mongodb.UserRepository
	mediaStore  media.Store
	broadcaster Broadcaster
	publisher   events.Publisher
}

func NewGroupUsecase(
	groupRepo mongodb.GroupRepository,
	messageRepo mongodb.GroupMessageRepository,
	userRepo mongodb.UserRepository,
	mediaStore media.Store,
	broadcaster Broadcaster,
	publisher events.Publisher,
) GroupUsecase {
	return &groupUsecase{
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		mediaStore:  mediaStore,
		broadcaster: broadcaster,
		publisher:   publisher,
	}
}

func (uc *groupUsecase) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*models.Group, error) {
	group := &models.Group{
		Name:      name,
		Members:   models.NormalizeMembers(creatorID, memberIDs),
		CreatedBy: creatorID,
	}
	if err := uc.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	log.Infow(ctx, "group created",
		"group_id", group.ID.Hex(),
		"created_by", creatorID,
		"members", len(group.Members),
	)
	return group, nil
}

func (uc *groupUsecase) GetGroup(ctx context.Context, userID string, groupID primitive.ObjectID) (*models.Group, error) {
	return uc.memberGroup(ctx, userID, groupID)
}

func (uc *groupUsecase) ListGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	return uc.groupRepo.ListByMember(ctx, userID)
}

func (uc *groupUsecase) AddMember(ctx context.Context, userID string, groupID primitive.ObjectID, memberID string) error {
	if _, err := uc.memberGroup(ctx, userID, groupID); err != nil {
		return err
	}
	if memberID == "" {
		return fmt.Errorf("%w: empty member id", models.ErrInvalidMessage)
	}
	return uc.groupRepo.AddMember(ctx, groupID, memberID)
}

func (uc *groupUsecase) RemoveMember(ctx context.Context, userID string, groupID primitive.ObjectID, memberID string) error {
	group, err := uc.memberGroup(ctx, userID, groupID)
	if err != nil {
		return err
	}
	// only the creator removes others; anyone can remove themselves
	if userID != memberID && group.CreatedBy != userID {
		return models.ErrForbidden
	}
	return uc.groupRepo.RemoveMember(ctx, groupID, memberID)
}

func (uc *groupUsecase) LeaveGroup(ctx context.Context, userID string, groupID primitive.ObjectID) error {
	return uc.RemoveMember(ctx, userID, groupID, userID)
}

// DeleteGroup is creator-only and cascades to the group's messages.
func (uc *groupUsecase) DeleteGroup(ctx context.Context, userID string, groupID primitive.ObjectID) error {
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.CreatedBy != userID {
		return models.ErrForbidden
	}

	if err := uc.groupRepo.Delete(ctx, groupID); err != nil {
		return err
	}
	deleted, err := uc.messageRepo.DeleteByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("cascade group messages: %w", err)
	}

	log.Infow(ctx, "group deleted", "group_id", groupID.Hex(), "messages_deleted", deleted)
	return nil
}

func (uc *groupUsecase) SendText(ctx context.Context, senderID string, groupID primitive.ObjectID, text string, timestamp int64) (*models.GroupMessage, error) {
	group, err := uc.memberGroup(ctx, senderID, groupID)
	if err != nil {
		return nil, err
	}

	message := &models.GroupMessage{
		GroupID:     groupID,
		SenderID:    senderID,
		Type:        models.MessageTypeText,
		Text:        text,
		Timestamp:   orNow(timestamp),
		TaggedUsers: uc.resolveMentions(ctx, group, text),
	}
	return uc.send(ctx, message)
}

func (uc *groupUsecase) SendImage(ctx context.Context, senderID string, groupID primitive.ObjectID, contentType string, data []byte, timestamp int64) (*models.GroupMessage, error) {
	if _, err := uc.memberGroup(ctx, senderID, groupID); err != nil {
		return nil, err
	}
	url, err := uc.mediaStore.Upload(ctx, "images", contentType, data)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	message := &models.GroupMessage{
		GroupID:   groupID,
		SenderID:  senderID,
		Type:      models.MessageTypeImage,
		ImageURL:  url,
		Timestamp: orNow(timestamp),
	}
	return uc.send(ctx, message)
}

func (uc *groupUsecase) SendAudio(ctx context.Context, senderID string, groupID primitive.ObjectID, contentType string, data []byte, timestamp int64) (*models.GroupMessage, error) {
	if _, err := uc.memberGroup(ctx, senderID, groupID); err != nil {
		return nil, err
	}
	url, err := uc.mediaStore.Upload(ctx, "voice", contentType, data)
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}

	message := &models.GroupMessage{
		GroupID:   groupID,
		SenderID:  senderID,
		Type:      models.MessageTypeAudio,
		AudioURL:  url,
		Timestamp: orNow(timestamp),
	}
	return uc.send(ctx, message)
}

func (uc *groupUsecase) send(ctx context.Context, message *models.GroupMessage) (*models.GroupMessage, error) {
	if err := message.Validate(); err != nil {
		return nil, err
	}

	if sender, err := uc.userRepo.GetByID(ctx, mustObjectID(message.SenderID)); err == nil {
		message.SenderName = sender.Username
	}

	if err := uc.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	uc.emit(ctx, models.ChannelEvent{
		Channel: models.GroupChannelID(message.GroupID.Hex()),
		Name:    models.EventMessageCreated,
		Data:    message,
		At:      time.Now().UnixMilli(),
	})
	return message, nil
}

func (uc *groupUsecase) ListMessages(ctx context.Context, userID string, groupID primitive.ObjectID, limit int64, beforeTS *int64) ([]*models.GroupMessage, error) {
	if _, err := uc.memberGroup(ctx, userID, groupID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.messageRepo.ListByGroup(ctx, groupID, limit, beforeTS)
}

func (uc *groupUsecase) DeleteMessage(ctx context.Context, userID string, messageID primitive.ObjectID) error {
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
		Channel: models.GroupChannelID(message.GroupID.Hex()),
		Name:    models.EventMessageDeleted,
		Data: map[string]string{
			"message_id": messageID.Hex(),
			"group_id":   message.GroupID.Hex(),
		},
		At: time.Now().UnixMilli(),
	})
	return nil
}

func (uc *groupUsecase) SetReaction(ctx context.Context, userID string, messageID primitive.ObjectID, emoji string) (*models.GroupMessage, error) {
	for attempt := 0; attempt < reactionRetries; attempt++ {
		message, err := uc.messageRepo.GetByID(ctx, messageID)
		if err != nil {
			return nil, err
		}
		if _, err := uc.memberGroup(ctx, userID, message.GroupID); err != nil {
			return nil, err
		}

		updated := message.Reactions.Toggle(userID, emoji)
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
			Channel: models.GroupChannelID(message.GroupID.Hex()),
			Name:    models.EventReactionUpdated,
			Data:    message,
			At:      time.Now().UnixMilli(),
		})
		return message, nil
	}
	return nil, models.ErrVersionConflict
}

// memberGroup loads the group and requires the caller to be a member.
func (uc *groupUsecase) memberGroup(ctx context.Context, userID string, groupID primitive.ObjectID) (*models.Group, error) {
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, models.ErrForbidden
	}
	return group, nil
}

// resolveMentions maps @username tokens to member ids. Lookup failures just
// mean no tags; sending proceeds.
func (uc *groupUsecase) resolveMentions(ctx context.Context, group *models.Group, text string) []string {
	members, err := uc.userRepo.GetByIDs(ctx, group.Members)
	if err != nil {
		log.Errorw(ctx, "resolve mentions", "error", err, "group_id", group.ID.Hex())
		return nil
	}

	idByUsername := make(map[string]string, len(members))
	for _, member := range members {
		idByUsername[member.Username] = member.ID.Hex()
	}
	return models.ExtractMentions(text, idByUsername)
}

func (uc *groupUsecase) emit(ctx context.Context, event models.ChannelEvent) {
	uc.broadcaster.Broadcast(event)
	if err := uc.publisher.Publish(ctx, event); err != nil {
		log.Errorw(ctx, "publish channel event", "error", err, "event", event.Name)
	}
}

func mustObjectID(hex string) primitive.ObjectID {
	oid, _ := primitive.ObjectIDFromHex(hex)
	return oid
}
