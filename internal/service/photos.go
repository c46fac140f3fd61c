package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/notify"
	"github.com/sakif/photolog/internal/repository"
	"github.com/sakif/photolog/internal/storage"
)

// PhotoService moderates and manages photos on behalf of an event's host.
//
// Every method starts with EventService.VerifyOwnership, so a host can never
// read or touch photos of someone else's event.
type PhotoService struct {
	events   *EventService
	photos   repository.PhotoRepository
	quota    *QuotaService
	assets   storage.Uploader
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewPhotoService(
	events *EventService,
	photos repository.PhotoRepository,
	quota *QuotaService,
	assets storage.Uploader,
	notifier notify.Notifier,
	logger *slog.Logger,
) *PhotoService {
	return &PhotoService{
		events:   events,
		photos:   photos,
		quota:    quota,
		assets:   assets,
		notifier: notifier,
		logger:   logger,
	}
}

// List returns one page of every photo in the event, approved or not.
func (s *PhotoService) List(ctx context.Context, hostID, eventID string, req model.PageRequest) (model.Page[model.Photo], error) {
	req, err := req.Normalize(model.DefaultPhotoPageSize)
	if err != nil {
		return model.Page[model.Photo]{}, err
	}
	if _, err := s.events.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return model.Page[model.Photo]{}, err
	}

	photos, total, err := s.photos.ListPhotos(ctx, eventID, false, repository.ListOptions{
		Limit:  req.PageSize,
		Offset: req.Offset(),
	})
	if err != nil {
		return model.Page[model.Photo]{}, fmt.Errorf("listing photos: %w", err)
	}
	return model.NewPage(photos, total, req), nil
}

// Get returns a single photo of an owned event.
func (s *PhotoService) Get(ctx context.Context, hostID, eventID, photoID string) (*model.Photo, error) {
	if _, err := s.events.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return nil, err
	}
	return s.photos.GetPhoto(ctx, eventID, photoID)
}

// Update applies a moderation patch.
//
// NOTIFICATION RULE:
// The uploader hears about it exactly once, and only when all of these hold:
//   - the patch carries "approved"
//   - the stored value actually changed
//   - uploaded_by is set and is not the host (hosts moderating their own
//     uploads get no mail)
//
// The notification goes out after the commit. Its failure is logged and
// the moderation result stands.
func (s *PhotoService) Update(ctx context.Context, hostID, eventID, photoID string, patch model.PhotoPatch) (*model.Photo, error) {
	event, err := s.events.VerifyOwnership(ctx, eventID, hostID)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var wasApproved bool
	updated, err := s.photos.UpdatePhoto(ctx, eventID, photoID, func(p *model.Photo) {
		wasApproved = p.Approved
		patch.Apply(p)
	})
	if err != nil {
		return nil, err
	}

	approved, present := patch.Approved.Get()
	if present && approved != wasApproved && updated.UploadedBy != nil && *updated.UploadedBy != event.HostID {
		s.notifyUploader(ctx, event, updated)
	}
	return updated, nil
}

func (s *PhotoService) notifyUploader(ctx context.Context, event *model.Event, p *model.Photo) {
	to := *p.UploadedBy
	var err error
	if p.Approved {
		err = s.notifier.SendApproved(ctx, to, event.Name, p.URL)
	} else {
		err = s.notifier.SendRejected(ctx, to, event.Name, "")
	}
	if err != nil {
		s.logger.Warn("moderation notification failed",
			slog.String("eventID", event.ID),
			slog.String("photoID", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Delete removes one photo and then, best-effort, its remote asset.
func (s *PhotoService) Delete(ctx context.Context, hostID, eventID, photoID string) error {
	if _, err := s.events.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return err
	}
	p, err := s.photos.GetPhoto(ctx, eventID, photoID)
	if err != nil {
		return err
	}
	if err := s.photos.DeletePhoto(ctx, eventID, photoID); err != nil {
		return err
	}
	deleteAsset(ctx, s.assets, s.logger, p.URL)
	return nil
}

// BulkDelete removes the listed photos of one event. Ids that belong to
// another event or do not exist are skipped; the count is what was removed.
func (s *PhotoService) BulkDelete(ctx context.Context, hostID, eventID string, ids []string) (int, error) {
	if _, err := s.events.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := s.photos.DeletePhotos(ctx, eventID, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk deleting photos: %w", err)
	}
	for _, p := range deleted {
		deleteAsset(ctx, s.assets, s.logger, p.URL)
	}

	s.logger.Info("bulk photo delete",
		slog.String("eventID", eventID),
		slog.Int("requested", len(ids)),
		slog.Int("deleted", len(deleted)),
	)
	return len(deleted), nil
}

// PrepareDownload acknowledges a bulk download request. Archive building is
// not offered, so this only checks ownership and echoes the count.
func (s *PhotoService) PrepareDownload(ctx context.Context, hostID, eventID string, ids []string) (int, error) {
	if _, err := s.events.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// HostUpload adds a photo uploaded by the host. Host photos skip
// moderation and count towards the host's quota.
func (s *PhotoService) HostUpload(ctx context.Context, hostID, eventID string, file model.Upload, caption *string) (*model.Photo, error) {
	if _, err := s.events.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return nil, err
	}
	if err := validateImage(file); err != nil {
		return nil, err
	}
	caption, err := normalizeCaption(caption)
	if err != nil {
		return nil, err
	}
	if err := s.quota.Check(ctx, hostID, int64(len(file.Data))); err != nil {
		return nil, err
	}

	uploader := hostID
	return storePhoto(ctx, s.photos, s.assets, eventID, file, caption, true, &uploader)
}

// storePhoto uploads the bytes and records the photo row.
func storePhoto(
	ctx context.Context,
	photos repository.PhotoRepository,
	assets storage.Uploader,
	eventID string,
	file model.Upload,
	caption *string,
	approved bool,
	uploadedBy *string,
) (*model.Photo, error) {
	asset, err := assets.Upload(ctx, storage.FolderPhotos, file.Data, file.ContentType)
	if err != nil {
		return nil, apperror.Upstream("Asset storage", err)
	}

	thumb := asset.ThumbnailURL
	p := &model.Photo{
		EventID:      eventID,
		URL:          asset.URL,
		ThumbnailURL: &thumb,
		Caption:      caption,
		Approved:     approved,
		UploadedBy:   uploadedBy,
		FileSize:     model.SizeOf(asset.Size),
	}
	if err := photos.CreatePhoto(ctx, p); err != nil {
		return nil, fmt.Errorf("recording photo: %w", err)
	}
	return p, nil
}

func normalizeCaption(caption *string) (*string, error) {
	if caption == nil || *caption == "" {
		return nil, nil
	}
	if err := (model.PhotoPatch{Caption: model.Some(caption)}).Validate(); err != nil {
		return nil, err
	}
	return caption, nil
}
