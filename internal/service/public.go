package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/repository"
	"github.com/sakif/photolog/internal/storage"
)

// MaxPublicUploadSize caps a single visitor upload: 10 MiB.
const MaxPublicUploadSize = 10 << 20

// Messages visitors see. Handlers reuse them for the success bodies.
const (
	MsgNoPasswordRequired = "No password required for this event."
	MsgPasswordVerified   = "Password verified successfully."
	msgIncorrectPassword  = "Incorrect password."
	msgPasswordRequired   = "Password required to upload photos to this event."
	msgEventNotPublic     = "Event not found or not available for public access."
)

// PublicService serves unauthenticated visitors.
//
// VISIBILITY:
// Visitors only ever see active, unarchived events and approved photos.
// A hidden event reads exactly like a missing one so that archived or
// deactivated events do not leak their existence.
type PublicService struct {
	events    repository.EventRepository
	photos    repository.PhotoRepository
	assets    storage.Uploader
	passwords PasswordHasher
	logger    *slog.Logger
}

func NewPublicService(
	events repository.EventRepository,
	photos repository.PhotoRepository,
	assets storage.Uploader,
	passwords PasswordHasher,
	logger *slog.Logger,
) *PublicService {
	return &PublicService{
		events:    events,
		photos:    photos,
		assets:    assets,
		passwords: passwords,
		logger:    logger,
	}
}

// ResolvePublicEvent returns the event if visitors may see it.
func (s *PublicService) ResolvePublicEvent(ctx context.Context, slug string) (*model.Event, error) {
	e, err := s.events.GetEvent(ctx, slug)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFoundMsg(msgEventNotPublic)
	}
	if err != nil {
		return nil, fmt.Errorf("loading public event: %w", err)
	}
	if !e.IsPublic() {
		return nil, apperror.NotFoundMsg(msgEventNotPublic)
	}
	return e, nil
}

// GetEvent returns the visitor projection; the count covers approved
// photos only.
func (s *PublicService) GetEvent(ctx context.Context, slug string) (model.PublicEventView, error) {
	e, err := s.ResolvePublicEvent(ctx, slug)
	if err != nil {
		return model.PublicEventView{}, err
	}
	n, err := s.photos.CountPhotos(ctx, e.ID, true)
	if err != nil {
		return model.PublicEventView{}, fmt.Errorf("counting approved photos: %w", err)
	}
	return model.NewPublicEventView(e, n), nil
}

// ListPhotos returns one page of the event's approved photos.
func (s *PublicService) ListPhotos(ctx context.Context, slug string, req model.PageRequest) (model.Page[model.PublicPhotoView], error) {
	req, err := req.Normalize(model.DefaultPhotoPageSize)
	if err != nil {
		return model.Page[model.PublicPhotoView]{}, err
	}
	e, err := s.ResolvePublicEvent(ctx, slug)
	if err != nil {
		return model.Page[model.PublicPhotoView]{}, err
	}

	photos, total, err := s.photos.ListPhotos(ctx, e.ID, true, repository.ListOptions{
		Limit:  req.PageSize,
		Offset: req.Offset(),
	})
	if err != nil {
		return model.Page[model.PublicPhotoView]{}, fmt.Errorf("listing approved photos: %w", err)
	}

	views := make([]model.PublicPhotoView, 0, len(photos))
	for i := range photos {
		views = append(views, model.NewPublicPhotoView(&photos[i]))
	}
	return model.NewPage(views, total, req), nil
}

// VerifyPassword reports whether supplied opens e. Events without a
// password are open to everyone. A corrupt stored hash never matches.
func (s *PublicService) VerifyPassword(e *model.Event, supplied string) bool {
	if !e.HasPassword() {
		return true
	}
	ok, err := s.passwords.Matches(*e.PasswordHash, supplied)
	if err != nil {
		s.logger.Error("stored event password hash is unusable",
			slog.String("eventID", e.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// CheckPassword backs the verify-password endpoint and returns the message
// to show on success.
func (s *PublicService) CheckPassword(ctx context.Context, slug, supplied string) (string, error) {
	e, err := s.ResolvePublicEvent(ctx, slug)
	if err != nil {
		return "", err
	}
	if !e.HasPassword() {
		return MsgNoPasswordRequired, nil
	}
	if !s.VerifyPassword(e, supplied) {
		return "", apperror.Unauthenticated(msgIncorrectPassword)
	}
	return MsgPasswordVerified, nil
}

// PublicUploadInput is what a visitor submits with a photo.
type PublicUploadInput struct {
	File     model.Upload
	Caption  *string
	Password *string
	Email    *string
}

// Upload stores a visitor photo awaiting moderation.
//
// CHECK ORDER:
//  1. event visible
//  2. password present, then correct
//  3. content type image/*
//  4. size at most MaxPublicUploadSize
//  5. not empty
//
// Visitor uploads are not quota-gated; the quota belongs to the host.
func (s *PublicService) Upload(ctx context.Context, slug string, in PublicUploadInput) (*model.Photo, error) {
	e, err := s.ResolvePublicEvent(ctx, slug)
	if err != nil {
		return nil, err
	}

	if e.HasPassword() {
		if in.Password == nil || *in.Password == "" {
			return nil, apperror.Unauthenticated(msgPasswordRequired)
		}
		if !s.VerifyPassword(e, *in.Password) {
			return nil, apperror.Unauthenticated(msgIncorrectPassword)
		}
	}

	if !strings.HasPrefix(in.File.ContentType, "image/") {
		return nil, apperror.ValidationFailed("file", "File must be an image.")
	}
	if len(in.File.Data) > MaxPublicUploadSize {
		return nil, apperror.ValidationFailed("file", "File size exceeds maximum allowed size (10MB).")
	}
	if len(in.File.Data) == 0 {
		return nil, apperror.ValidationFailed("file", "File is empty.")
	}

	caption, err := normalizeCaption(in.Caption)
	if err != nil {
		return nil, err
	}

	var uploadedBy *string
	if in.Email != nil {
		if email := strings.TrimSpace(*in.Email); email != "" {
			uploadedBy = &email
		}
	}

	p, err := storePhoto(ctx, s.photos, s.assets, e.ID, in.File, caption, false, uploadedBy)
	if err != nil {
		return nil, err
	}

	s.logger.Info("public photo uploaded",
		slog.String("eventID", e.ID),
		slog.String("photoID", p.ID),
		slog.Bool("identified", uploadedBy != nil),
	)
	return p, nil
}
