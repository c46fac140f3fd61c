package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/repository"
	"github.com/sakif/photolog/internal/storage"
)

// MaxUserNameLength bounds display names.
const MaxUserNameLength = 100

// UserService maps verified identities onto stored users and manages the
// profile.
//
//	RequireAuth (Identity) → UserService.Resolve → UserRepository (DB)
//
// DEPENDENCIES (injected via NewUserService):
//   - users   repository.UserRepository → read/write user records
//   - quota   *QuotaService             → gate avatar uploads
//   - assets  storage.Uploader          → store avatars
type UserService struct {
	users  repository.UserRepository
	quota  *QuotaService
	assets storage.Uploader
	logger *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	quota *QuotaService,
	assets storage.Uploader,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:  users,
		quota:  quota,
		assets: assets,
		logger: logger,
	}
}

// Resolve returns the stored user for a verified identity, creating it on
// first sight.
//
// EMAIL IS THE BUSINESS KEY:
// Lookup is by email. If the provider presents a known email under a new
// subject (account re-created, provider migration) the stored ID is kept
// and the mismatch is logged; rewriting the ID would orphan every event the
// user owns. A known subject arriving with an unknown email (the address
// changed at the provider) keeps its user and the stored email follows.
// The display name follows the provider whenever it sends a different
// non-empty one.
func (s *UserService) Resolve(ctx context.Context, id model.Identity) (*model.User, error) {
	email := strings.TrimSpace(id.Email)
	if email == "" {
		return nil, apperror.Unauthenticated("Authenticated account has no email address.")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.users.GetUserByID(ctx, id.Subject)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return s.create(ctx, id, email)
		case err != nil:
			return nil, fmt.Errorf("resolving user by subject: %w", err)
		}
		if err := s.changeEmail(ctx, user, email); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("resolving user by email: %w", err)
	}

	if user.ID != id.Subject {
		s.logger.Warn("identity subject differs from stored user id",
			slog.String("userID", user.ID),
			slog.String("subject", id.Subject),
		)
	}

	if id.Name != nil && *id.Name != "" && (user.Name == nil || *user.Name != *id.Name) {
		if err := s.users.UpdateUserName(ctx, user.ID, id.Name); err != nil {
			return nil, fmt.Errorf("refreshing user name: %w", err)
		}
		user.Name = id.Name
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, id model.Identity, email string) (*model.User, error) {
	user := &model.User{
		ID:    id.Subject,
		Email: email,
		Name:  id.Name,
	}

	err := s.users.CreateUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		// A concurrent request created the user first, under either key.
		if existing, getErr := s.users.GetUserByEmail(ctx, email); getErr == nil {
			return existing, nil
		}
		existing, getErr := s.users.GetUserByID(ctx, id.Subject)
		if getErr != nil {
			return nil, err
		}
		if err := s.changeEmail(ctx, existing, email); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created", slog.String("userID", user.ID))
	return user, nil
}

func (s *UserService) changeEmail(ctx context.Context, user *model.User, email string) error {
	s.logger.Warn("identity email changed, updating stored user",
		slog.String("userID", user.ID),
	)
	if err := s.users.UpdateUserEmail(ctx, user.ID, email); err != nil {
		return fmt.Errorf("updating user email: %w", err)
	}
	user.Email = email
	return nil
}

// Get returns the stored user.
func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// UpdateName sets or clears the display name. A nil or blank name clears it.
func (s *UserService) UpdateName(ctx context.Context, userID string, name *string) (*model.User, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if utf8.RuneCountInString(trimmed) > MaxUserNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("name must be %d characters or less", MaxUserNameLength))
		}
		name = &trimmed
		if trimmed == "" {
			name = nil
		}
	}

	if err := s.users.UpdateUserName(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("updating user name: %w", err)
	}
	return s.users.GetUserByID(ctx, userID)
}

// UploadAvatar replaces the user's avatar. The new image counts towards the
// quota; the old one is deleted remotely once the new URL is stored.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, file model.Upload) (*model.User, error) {
	if err := validateImage(file); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.quota.Check(ctx, userID, int64(len(file.Data))); err != nil {
		return nil, err
	}

	asset, err := s.assets.Upload(ctx, storage.FolderAvatars, file.Data, file.ContentType)
	if err != nil {
		return nil, apperror.Upstream("Asset storage", err)
	}
	if err := s.users.UpdateUserAvatar(ctx, userID, asset.URL, model.SizeOf(asset.Size)); err != nil {
		return nil, fmt.Errorf("storing avatar: %w", err)
	}

	if user.AvatarURL != nil {
		deleteAsset(ctx, s.assets, s.logger, *user.AvatarURL)
	}

	user.AvatarURL = &asset.URL
	user.AvatarFileSize = model.SizeOf(asset.Size)
	return user, nil
}

// validateImage applies the checks every host upload shares.
func validateImage(file model.Upload) error {
	if !strings.HasPrefix(file.ContentType, "image/") {
		return apperror.ValidationFailed("file", "File must be an image.")
	}
	if len(file.Data) == 0 {
		return apperror.ValidationFailed("file", "File is empty.")
	}
	return nil
}
