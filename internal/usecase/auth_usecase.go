package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ahnaf-Tariq/echochat-server/internal/config"
	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
	"github.com/Ahnaf-Tariq/echochat-server/internal/repo/mongodb"
	"github.com/Ahnaf-Tariq/echochat-server/internal/repo/redis"
)

type AuthUsecase interface {
	SignUp(ctx context.Context, username, email, password string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (string, *models.User, error)
	SignOut(ctx context.Context, userID string) error
	ValidateToken(token string) (string, error)
}

type authUsecase struct {
	userRepo    mongodb.UserRepository
	presence    redis.PresenceStore
	broadcaster Broadcaster
	typing      TypingStopper
	jwtSecret   []byte
	tokenTTL    time.Duration
}

func NewAuthUsecase(
	cfg *config.Config,
	userRepo mongodb.UserRepository,
	presence redis.PresenceStore,
	broadcaster Broadcaster,
	typing TypingStopper,
) AuthUsecase {
	return &authUsecase{
		userRepo:    userRepo,
		presence:    presence,
		broadcaster: broadcaster,
		typing:      typing,
		jwtSecret:   []byte(cfg.Auth.JWTSecret),
		tokenTTL:    cfg.Auth.TokenTTL,
	}
}

func (uc *authUsecase) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Infow(ctx, "user signed up", "user_id", user.ID.Hex(), "username", username)
	return user, nil
}

func (uc *authUsecase) SignIn(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := uc.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, models.ErrUnauthorized
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, models.ErrUnauthorized
	}

	token, err := uc.issueToken(user.ID.Hex())
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	now := time.Now().UnixMilli()
	if err := uc.userRepo.SetActive(ctx, user.ID.Hex(), true, now); err != nil {
		return "", nil, err
	}
	if err := uc.presence.Heartbeat(ctx, user.ID.Hex()); err != nil {
		log.Errorw(ctx, "presence heartbeat on sign-in", "error", err)
	}

	user.Active = true
	user.LastSeen = now
	uc.broadcastPresence(user.ID.Hex(), true, now)

	log.Infow(ctx, "user signed in", "user_id", user.ID.Hex())
	return token, user, nil
}

func (uc *authUsecase) SignOut(ctx context.Context, userID string) error {
	now := time.Now().UnixMilli()
	if err := uc.userRepo.SetActive(ctx, userID, false, now); err != nil {
		return err
	}
	if err := uc.typing.StopTyping(ctx, userID); err != nil {
		log.Errorw(ctx, "stop typing on sign-out", "error", err)
	}
	if err := uc.presence.ClearOnline(ctx, userID); err != nil {
		log.Errorw(ctx, "clear presence on sign-out", "error", err)
	}

	uc.broadcastPresence(userID, false, now)
	log.Infow(ctx, "user signed out", "user_id", userID)
	return nil
}

func (uc *authUsecase) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return uc.jwtSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", models.ErrUnauthorized
	}
	return claims.Subject, nil
}

func (uc *authUsecase) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(uc.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.jwtSecret)
}

func (uc *authUsecase) broadcastPresence(userID string, active bool, lastSeen int64) {
	uc.broadcaster.Broadcast(models.ChannelEvent{
		Channel: models.UserChannelID(userID),
		Name:    models.EventPresence,
		Data: models.PresenceEvent{
			UserID:   userID,
			Active:   active,
			LastSeen: lastSeen,
		},
		At: time.Now().UnixMilli(),
	})
}
