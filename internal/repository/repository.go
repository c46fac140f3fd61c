// Package repository declares the storage contracts the services depend on.
// The sqlite subpackage is the production implementation; service tests use
// in-memory fakes or testify mocks of the same interfaces.
package repository

import (
	"context"

	"github.com/sakif/photolog/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUserName(ctx context.Context, id string, name *string) error
	UpdateUserEmail(ctx context.Context, id, email string) error
	UpdateUserAvatar(ctx context.Context, id, url string, size model.FileSize) error
}

type EventRepository interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEventsByHost(ctx context.Context, hostID string, opts ListOptions) ([]model.Event, int, error)
	// UpdateEvent loads the event, passes it to apply and writes the result
	// back, all inside one transaction.
	UpdateEvent(ctx context.Context, id string, apply func(*model.Event) error) (*model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	// BulkUpdateEvents applies action to the ids that belong to hostID and
	// returns how many rows changed.
	BulkUpdateEvents(ctx context.Context, hostID string, ids []string, action model.EventBulkAction) (int, error)
}

type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo *model.Photo) error
	GetPhoto(ctx context.Context, eventID, photoID string) (*model.Photo, error)
	ListPhotos(ctx context.Context, eventID string, approvedOnly bool, opts ListOptions) ([]model.Photo, int, error)
	ListAllPhotos(ctx context.Context, eventID string) ([]model.Photo, error)
	CountPhotos(ctx context.Context, eventID string, approvedOnly bool) (int, error)
	// UpdatePhoto is the photo counterpart of UpdateEvent.
	UpdatePhoto(ctx context.Context, eventID, photoID string, apply func(*model.Photo)) (*model.Photo, error)
	DeletePhoto(ctx context.Context, eventID, photoID string) error
	// DeletePhotos removes the given photos of one event and returns the
	// rows that were actually deleted.
	DeletePhotos(ctx context.Context, eventID string, ids []string) ([]model.Photo, error)
}

type UsageRepository interface {
	StorageUsage(ctx context.Context, userID string) (model.StorageUsage, error)
}
