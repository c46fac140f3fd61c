package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/qr"
	"github.com/sakif/photolog/internal/repository"
	"github.com/sakif/photolog/internal/storage"
)

const msgNotEventOwner = "You do not have permission to perform this action on the specified event."

// EventService holds the host-side event rules.
type EventService struct {
	events      repository.EventRepository
	photos      repository.PhotoRepository
	quota       *QuotaService
	assets      storage.Uploader
	passwords   PasswordHasher
	frontendURL string
	logger      *slog.Logger
}

func NewEventService(
	events repository.EventRepository,
	photos repository.PhotoRepository,
	quota *QuotaService,
	assets storage.Uploader,
	passwords PasswordHasher,
	frontendURL string,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		events:      events,
		photos:      photos,
		quota:       quota,
		assets:      assets,
		passwords:   passwords,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// VerifyOwnership loads the event and checks that userID hosts it.
//
// Missing → NotFound "Event with ID '<id>' not found."
// Not the host → Forbidden.
func (s *EventService) VerifyOwnership(ctx context.Context, eventID, userID string) (*model.Event, error) {
	e, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.HostID != userID {
		s.logger.Debug("ownership check failed",
			slog.String("eventID", eventID),
			slog.String("userID", userID),
		)
		return nil, apperror.Forbidden(msgNotEventOwner)
	}
	return e, nil
}

// ShareLink is the public URL visitors open to reach the event.
func (s *EventService) ShareLink(eventID string) string {
	return s.frontendURL + "/e/" + eventID
}

func (s *EventService) hostView(ctx context.Context, e *model.Event) (model.HostEventView, error) {
	n, err := s.photos.CountPhotos(ctx, e.ID, false)
	if err != nil {
		return model.HostEventView{}, fmt.Errorf("counting photos of event %s: %w", e.ID, err)
	}
	return model.NewHostEventView(e, n, s.ShareLink(e.ID)), nil
}

// CreateEventInput carries the fields a host may set at creation.
type CreateEventInput struct {
	Name        string
	Description *string
	Date        *time.Time
	Password    *string
}

// Create stores a new active event hosted by hostID.
func (s *EventService) Create(ctx context.Context, hostID string, in CreateEventInput) (model.HostEventView, error) {
	if in.Password != nil && *in.Password == "" {
		in.Password = nil
	}
	patch := model.EventPatch{
		Name:        model.Some(in.Name),
		Description: model.Some(in.Description),
		Date:        model.Some(in.Date),
		Password:    model.Some(in.Password),
	}
	if err := patch.Validate(); err != nil {
		return model.HostEventView{}, err
	}

	e := &model.Event{HostID: hostID, IsActive: true}
	if err := patch.Apply(e, s.passwords.Hash); err != nil {
		return model.HostEventView{}, fmt.Errorf("preparing event: %w", err)
	}
	if err := s.events.CreateEvent(ctx, e); err != nil {
		return model.HostEventView{}, fmt.Errorf("creating event: %w", err)
	}

	s.logger.Info("event created",
		slog.String("eventID", e.ID),
		slog.String("hostID", hostID),
	)
	return model.NewHostEventView(e, 0, s.ShareLink(e.ID)), nil
}

// List returns one page of the host's events, newest first.
func (s *EventService) List(ctx context.Context, hostID string, req model.PageRequest) (model.Page[model.HostEventView], error) {
	req, err := req.Normalize(model.DefaultEventPageSize)
	if err != nil {
		return model.Page[model.HostEventView]{}, err
	}

	events, total, err := s.events.ListEventsByHost(ctx, hostID, repository.ListOptions{
		Limit:  req.PageSize,
		Offset: req.Offset(),
	})
	if err != nil {
		return model.Page[model.HostEventView]{}, fmt.Errorf("listing events: %w", err)
	}

	views := make([]model.HostEventView, 0, len(events))
	for i := range events {
		v, err := s.hostView(ctx, &events[i])
		if err != nil {
			return model.Page[model.HostEventView]{}, err
		}
		views = append(views, v)
	}
	return model.NewPage(views, total, req), nil
}

// Get returns one of the host's events.
func (s *EventService) Get(ctx context.Context, hostID, eventID string) (model.HostEventView, error) {
	e, err := s.VerifyOwnership(ctx, eventID, hostID)
	if err != nil {
		return model.HostEventView{}, err
	}
	return s.hostView(ctx, e)
}

// Update applies a merge patch. Absent fields are untouched; a present null
// password removes the gate. An empty patch writes nothing.
func (s *EventService) Update(ctx context.Context, hostID, eventID string, patch model.EventPatch) (model.HostEventView, error) {
	e, err := s.VerifyOwnership(ctx, eventID, hostID)
	if err != nil {
		return model.HostEventView{}, err
	}
	if err := patch.Validate(); err != nil {
		return model.HostEventView{}, err
	}
	if patch.Empty() {
		return s.hostView(ctx, e)
	}

	updated, err := s.events.UpdateEvent(ctx, eventID, func(ev *model.Event) error {
		return patch.Apply(ev, s.passwords.Hash)
	})
	if err != nil {
		return model.HostEventView{}, fmt.Errorf("updating event: %w", err)
	}
	return s.hostView(ctx, updated)
}

// Delete removes the event and, through the foreign key cascade, its
// photos. Remote assets are deleted afterwards on a best-effort basis.
func (s *EventService) Delete(ctx context.Context, hostID, eventID string) error {
	e, err := s.VerifyOwnership(ctx, eventID, hostID)
	if err != nil {
		return err
	}

	photos, err := s.photos.ListAllPhotos(ctx, eventID)
	if err != nil {
		return fmt.Errorf("collecting photos of event %s: %w", eventID, err)
	}
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}

	for _, p := range photos {
		deleteAsset(ctx, s.assets, s.logger, p.URL)
	}
	if e.CoverImageURL != nil {
		deleteAsset(ctx, s.assets, s.logger, *e.CoverImageURL)
	}

	s.logger.Info("event deleted",
		slog.String("eventID", eventID),
		slog.Int("photos", len(photos)),
	)
	return nil
}

// UploadCover replaces the event's cover image.
//
// ORDER OF OPERATIONS:
//  1. ownership, file checks, quota gate: nothing written yet
//  2. remote upload
//  3. database update
//  4. best-effort delete of the previous cover
//
// A crash between 2 and 3 leaves an orphaned remote object, which is
// accepted.
func (s *EventService) UploadCover(ctx context.Context, hostID, eventID string, file model.Upload) (model.HostEventView, error) {
	if _, err := s.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return model.HostEventView{}, err
	}
	if err := validateImage(file); err != nil {
		return model.HostEventView{}, err
	}
	if err := s.quota.Check(ctx, hostID, int64(len(file.Data))); err != nil {
		return model.HostEventView{}, err
	}

	asset, err := s.assets.Upload(ctx, storage.FolderCovers, file.Data, file.ContentType)
	if err != nil {
		return model.HostEventView{}, apperror.Upstream("Asset storage", err)
	}

	var previous *string
	updated, err := s.events.UpdateEvent(ctx, eventID, func(ev *model.Event) error {
		previous = ev.CoverImageURL
		ev.CoverImageURL = &asset.URL
		ev.CoverThumbnailURL = &asset.ThumbnailURL
		ev.CoverImageFileSize = model.SizeOf(asset.Size)
		return nil
	})
	if err != nil {
		return model.HostEventView{}, fmt.Errorf("storing cover: %w", err)
	}

	if previous != nil && *previous != asset.URL {
		deleteAsset(ctx, s.assets, s.logger, *previous)
	}
	return s.hostView(ctx, updated)
}

// QRCode renders the share link of an owned event as a PNG.
func (s *EventService) QRCode(ctx context.Context, hostID, eventID string, boxSize int) ([]byte, error) {
	if boxSize < qr.MinBoxSize || boxSize > qr.MaxBoxSize {
		return nil, apperror.ValidationFailed("box_size",
			fmt.Sprintf("box_size must be between %d and %d", qr.MinBoxSize, qr.MaxBoxSize))
	}
	if _, err := s.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return nil, err
	}

	png, err := qr.Render(s.ShareLink(eventID), boxSize)
	if err != nil {
		return nil, fmt.Errorf("rendering qr code: %w", err)
	}
	return png, nil
}

// Export would build a ZIP of every photo. It is not offered yet, but the
// ownership check still runs so strangers learn nothing.
func (s *EventService) Export(ctx context.Context, hostID, eventID string) error {
	if _, err := s.VerifyOwnership(ctx, eventID, hostID); err != nil {
		return err
	}
	return apperror.NotImplemented("ZIP export functionality is not yet implemented.")
}

// Bulk applies action to the listed events the host owns. Ids the host does
// not own are skipped silently; the count reports what actually changed.
// The action is validated before anything is written.
func (s *EventService) Bulk(ctx context.Context, hostID string, ids []string, action string) (int, error) {
	a, err := model.ParseEventBulkAction(action)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.events.BulkUpdateEvents(ctx, hostID, ids, a)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return 0, err
		}
		return 0, fmt.Errorf("bulk %s: %w", a, err)
	}

	s.logger.Info("bulk event action",
		slog.String("hostID", hostID),
		slog.String("action", string(a)),
		slog.Int("requested", len(ids)),
		slog.Int("affected", n),
	)
	return n, nil
}
