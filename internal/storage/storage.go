// Package storage puts uploaded images on the object store that backs the
// public CDN and removes them again.
package storage

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/sakif/photolog/internal/model"
)

// Folders used as the first segment of every object key.
const (
	FolderPhotos  = "photos"
	FolderCovers  = "covers"
	FolderAvatars = "avatars"
)

// Uploader stores image bytes and deletes them by public id.
type Uploader interface {
	Upload(ctx context.Context, folder string, data []byte, contentType string) (model.Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// PublicIDFromURL recovers the public id from an asset URL: the last two
// path segments with any extension removed.
//
//	https://cdn.example.com/photolog/photos/abc.jpg -> photos/abc
//
// It returns "" when the URL has fewer than two segments.
func PublicIDFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}

	segments := strings.Split(strings.Trim(p, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-1] == "" || segments[len(segments)-2] == "" {
		return ""
	}
	last := segments[len(segments)-1]
	last = strings.TrimSuffix(last, path.Ext(last))
	return segments[len(segments)-2] + "/" + last
}
