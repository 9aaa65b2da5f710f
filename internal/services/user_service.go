package services

import (
	"context"
	"errors"
	"strings"

	"github.com/qarzdaftar/backend/internal/apperr"
	repo "github.com/qarzdaftar/backend/internal/repository"
	"github.com/qarzdaftar/backend/internal/telegram"
)

type NotificationSettings struct {
	PushEnabled        bool `json:"pushEnabled"`
	TelegramLinked     bool `json:"telegramLinked"`
	TelegramConfigured bool `json:"telegramConfigured"`
}

// UserService owns the user's delivery channels.
type UserService struct {
	users  repo.Users
	linker *telegram.Linker
}

func NewUserService(u repo.Users, l *telegram.Linker) *UserService {
	return &UserService{users: u, linker: l}
}

func (s *UserService) SavePushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation("token is required")
	}
	return userErr(s.users.SetPushToken(ctx, userID, &token))
}

func (s *UserService) RemovePushToken(ctx context.Context, userID string) error {
	return userErr(s.users.SetPushToken(ctx, userID, nil))
}

func (s *UserService) Settings(ctx context.Context, userID string) (NotificationSettings, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return NotificationSettings{}, userErr(err)
	}
	return NotificationSettings{
		PushEnabled:        u.HasPushToken(),
		TelegramLinked:     u.IsTelegramLinked(),
		TelegramConfigured: s.linker.Configured(),
	}, nil
}

func (s *UserService) TelegramLink(ctx context.Context, userID string) (telegram.LinkStatus, error) {
	return s.linker.LinkStatus(ctx, userID)
}

func (s *UserService) UnlinkTelegram(ctx context.Context, userID string) error {
	return s.linker.Unlink(ctx, userID)
}

func userErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	return err
}
