package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Dosada05/game-booking-system/models"
	"github.com/Dosada05/game-booking-system/repositories"
	"github.com/Dosada05/game-booking-system/storage"
)

var ErrUnsupportedImageType = errors.New("unsupported avatar content type")

// UserService — профили пользователей и загрузка аватаров.
type UserService interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID int, contentType string, reader io.Reader) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader) UserService {
	return &userService{
		userRepo: userRepo,
		uploader: uploader,
	}
}

func (s *userService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.decorateAvatar(user)
	user.PasswordHash = ""
	return user, nil
}

// UpdateAvatar загружает новый аватар в хранилище и сохраняет ключ файла.
// Старый файл удаляется по принципу best effort.
func (s *userService) UpdateAvatar(ctx context.Context, userID int, contentType string, reader io.Reader) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	ext, ok := imageExtension(contentType)
	if !ok {
		return nil, ErrUnsupportedImageType
	}

	key := fmt.Sprintf("avatars/user_%d%s", userID, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки аватара: %w", err)
	}

	oldKey := user.AvatarKey
	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &result.Key); err != nil {
		return nil, err
	}
	if oldKey != nil && *oldKey != result.Key {
		_ = s.uploader.Delete(ctx, *oldKey)
	}

	user.AvatarKey = &result.Key
	s.decorateAvatar(user)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) decorateAvatar(u *models.User) {
	if u.AvatarKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*u.AvatarKey)
		u.AvatarURL = &url
	}
}

func imageExtension(contentType string) (string, bool) {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "image/webp":
		return ".webp", true
	default:
		return "", false
	}
}
