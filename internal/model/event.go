package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/photolog/internal/apperror"
)

// Field limits for events.
const (
	MaxEventNameLength        = 100
	MaxEventDescriptionLength = 500
	MinEventPasswordLength    = 4
	MaxEventPasswordLength    = 50
)

// Event is a photo-collection owned by exactly one host.
//
// OWNERSHIP:
// HostID is set at creation and never changes. Only the host may mutate,
// delete or see the host-only fields of an event; visitors reach it through
// PublicEventView, which drops HostID and replaces the password with a flag.
//
// PASSWORD:
// Only a bcrypt hash is stored. HasPassword is what the outside world sees.
//
// UpdatedAt is nil until the first update. Views fill it with CreatedAt.
type Event struct {
	ID                 string
	HostID             string
	Name               string
	Description        *string
	Date               *time.Time
	PasswordHash       *string
	CoverImageURL      *string
	CoverThumbnailURL  *string
	CoverImageFileSize FileSize
	IsActive           bool
	IsArchived         bool
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// HasPassword reports whether the event is password gated.
func (e *Event) HasPassword() bool {
	return e.PasswordHash != nil && *e.PasswordHash != ""
}

// IsPublic reports whether visitors may see the event.
func (e *Event) IsPublic() bool {
	return e.IsActive && !e.IsArchived
}

// EventPatch is a merge-patch for an event. Only fields with Set=true are
// applied. Password is plaintext; Apply hashes it through the given func.
// A present-but-null Password removes the gate.
type EventPatch struct {
	Name        Optional[string]     `json:"name"`
	Description Optional[*string]    `json:"description"`
	Date        Optional[*time.Time] `json:"date"`
	Password    Optional[*string]    `json:"password"`
	IsActive    Optional[bool]       `json:"is_active"`
	IsArchived  Optional[bool]       `json:"is_archived"`
}

// Validate checks the present fields against the event field limits.
func (p EventPatch) Validate() error {
	for _, err := range []error{
		p.Name.NotNull("name"),
		p.IsActive.NotNull("is_active"),
		p.IsArchived.NotNull("is_archived"),
	} {
		if err != nil {
			return err
		}
	}
	if name, ok := p.Name.Get(); ok {
		if err := validateEventName(name); err != nil {
			return err
		}
	}
	if desc, ok := p.Description.Get(); ok && desc != nil {
		if utf8.RuneCountInString(*desc) > MaxEventDescriptionLength {
			return apperror.ValidationFailed("description",
				fmt.Sprintf("description must be %d characters or less", MaxEventDescriptionLength))
		}
	}
	if pw, ok := p.Password.Get(); ok && pw != nil {
		if err := ValidateEventPassword(*pw); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the present fields of p into e.
func (p EventPatch) Apply(e *Event, hash func(string) (string, error)) error {
	if name, ok := p.Name.Get(); ok {
		e.Name = strings.TrimSpace(name)
	}
	if desc, ok := p.Description.Get(); ok {
		e.Description = desc
	}
	if date, ok := p.Date.Get(); ok {
		e.Date = date
	}
	if pw, ok := p.Password.Get(); ok {
		if pw == nil || *pw == "" {
			e.PasswordHash = nil
		} else {
			hashed, err := hash(*pw)
			if err != nil {
				return err
			}
			e.PasswordHash = &hashed
		}
	}
	if active, ok := p.IsActive.Get(); ok {
		e.IsActive = active
	}
	if archived, ok := p.IsArchived.Get(); ok {
		e.IsArchived = archived
	}
	return nil
}

// Empty reports whether no field is present.
func (p EventPatch) Empty() bool {
	return !p.Name.Set && !p.Description.Set && !p.Date.Set &&
		!p.Password.Set && !p.IsActive.Set && !p.IsArchived.Set
}

func validateEventName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return apperror.ValidationFailed("name", "event name is required")
	}
	if n > MaxEventNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("event name must be %d characters or less", MaxEventNameLength))
	}
	return nil
}

// MaxEventPasswordBytes is the bcrypt input limit. Multi-byte passwords can
// reach it well before MaxEventPasswordLength characters.
const MaxEventPasswordBytes = 72

// ValidateEventPassword enforces the password length limits.
func ValidateEventPassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < MinEventPasswordLength || n > MaxEventPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be between %d and %d characters",
				MinEventPasswordLength, MaxEventPasswordLength))
	}
	if len(pw) > MaxEventPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at most %d bytes", MaxEventPasswordBytes))
	}
	return nil
}

// EventBulkAction is one of the state changes the bulk endpoint accepts.
type EventBulkAction string

const (
	BulkArchive    EventBulkAction = "archive"
	BulkActivate   EventBulkAction = "activate"
	BulkDeactivate EventBulkAction = "deactivate"
)

// ParseEventBulkAction rejects anything outside the fixed set.
func ParseEventBulkAction(s string) (EventBulkAction, error) {
	switch a := EventBulkAction(s); a {
	case BulkArchive, BulkActivate, BulkDeactivate:
		return a, nil
	}
	return "", apperror.ValidationFailed("action",
		fmt.Sprintf("Invalid action '%s'. Must be one of: archive, activate, deactivate.", s))
}

// HostEventView is the event as its host sees it.
type HostEventView struct {
	ID                 string     `json:"id"`
	HostID             string     `json:"host_id"`
	Name               string     `json:"name"`
	Description        *string    `json:"description"`
	Date               *time.Time `json:"date"`
	HasPassword        bool       `json:"has_password"`
	CoverImageURL      *string    `json:"cover_image_url"`
	CoverThumbnailURL  *string    `json:"cover_thumbnail_url"`
	CoverImageFileSize FileSize   `json:"cover_image_file_size"`
	IsActive           bool       `json:"is_active"`
	IsArchived         bool       `json:"is_archived"`
	ShareLink          string     `json:"share_link"`
	PhotoCount         int        `json:"photo_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewHostEventView projects e for its host. photoCount counts every photo.
func NewHostEventView(e *Event, photoCount int, shareLink string) HostEventView {
	updated := e.CreatedAt
	if e.UpdatedAt != nil {
		updated = *e.UpdatedAt
	}
	return HostEventView{
		ID:                 e.ID,
		HostID:             e.HostID,
		Name:               e.Name,
		Description:        e.Description,
		Date:               e.Date,
		HasPassword:        e.HasPassword(),
		CoverImageURL:      e.CoverImageURL,
		CoverThumbnailURL:  e.CoverThumbnailURL,
		CoverImageFileSize: e.CoverImageFileSize,
		IsActive:           e.IsActive,
		IsArchived:         e.IsArchived,
		ShareLink:          shareLink,
		PhotoCount:         photoCount,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          updated,
	}
}

// PublicEventView is the event as a visitor sees it. It never carries the
// host id or anything about the password beyond HasPassword.
type PublicEventView struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       *string    `json:"description"`
	Date              *time.Time `json:"date"`
	CoverImageURL     *string    `json:"cover_image_url"`
	CoverThumbnailURL *string    `json:"cover_thumbnail_url"`
	HasPassword       bool       `json:"has_password"`
	PhotoCount        int        `json:"photo_count"`
	IsActive          bool       `json:"is_active"`
}

// NewPublicEventView projects e for visitors. approvedCount must count
// approved photos only.
func NewPublicEventView(e *Event, approvedCount int) PublicEventView {
	return PublicEventView{
		ID:                e.ID,
		Name:              e.Name,
		Description:       e.Description,
		Date:              e.Date,
		CoverImageURL:     e.CoverImageURL,
		CoverThumbnailURL: e.CoverThumbnailURL,
		HasPassword:       e.HasPassword(),
		PhotoCount:        approvedCount,
		IsActive:          e.IsActive,
	}
}
