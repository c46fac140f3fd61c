package model

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sakif/photolog/internal/apperror"
)

// MaxCaptionLength bounds photo captions.
const MaxCaptionLength = 500

// Photo belongs to exactly one event and is removed with it.
//
// UploadedBy holds the uploader's user id for host uploads, the visitor's
// email for public uploads that supplied one, and nil otherwise. Approved
// is the single moderation flag; any value may follow any other.
type Photo struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Caption      *string   `json:"caption"`
	Approved     bool      `json:"approved"`
	UploadedAt   time.Time `json:"uploaded_at"`
	UploadedBy   *string   `json:"uploaded_by"`
	FileSize     FileSize  `json:"file_size"`
}

// PhotoPatch is the merge-patch a host sends to moderate a photo.
type PhotoPatch struct {
	Caption  Optional[*string] `json:"caption"`
	Approved Optional[bool]    `json:"approved"`
}

// Validate checks the present fields.
func (p PhotoPatch) Validate() error {
	if err := p.Approved.NotNull("approved"); err != nil {
		return err
	}
	if c, ok := p.Caption.Get(); ok && c != nil {
		if utf8.RuneCountInString(*c) > MaxCaptionLength {
			return apperror.ValidationFailed("caption",
				fmt.Sprintf("caption must be %d characters or less", MaxCaptionLength))
		}
	}
	return nil
}

// Apply merges the present fields of p into ph.
func (p PhotoPatch) Apply(ph *Photo) {
	if c, ok := p.Caption.Get(); ok {
		ph.Caption = c
	}
	if a, ok := p.Approved.Get(); ok {
		ph.Approved = a
	}
}

// PublicPhotoView is a photo as listed to visitors.
type PublicPhotoView struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Caption      *string   `json:"caption"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// NewPublicPhotoView drops uploader identity and size.
func NewPublicPhotoView(p *Photo) PublicPhotoView {
	return PublicPhotoView{
		ID:           p.ID,
		EventID:      p.EventID,
		URL:          p.URL,
		ThumbnailURL: p.ThumbnailURL,
		Caption:      p.Caption,
		UploadedAt:   p.UploadedAt,
	}
}

// Asset is what the object store returns for an uploaded file.
type Asset struct {
	URL          string
	ThumbnailURL string
	PublicID     string
	Size         int64
}

// Upload is a fully buffered file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
