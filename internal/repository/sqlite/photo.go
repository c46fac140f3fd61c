package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/repository"
)

// compile-time check that *DB implements repository.PhotoRepository
var _ repository.PhotoRepository = (*DB)(nil)

const photoColumns = `id, event_id, url, thumbnail_url, caption, approved, uploaded_at, uploaded_by, file_size`

func scanPhoto(row rowScanner) (*model.Photo, error) {
	var p model.Photo
	err := row.Scan(
		&p.ID,
		&p.EventID,
		&p.URL,
		&p.ThumbnailURL,
		&p.Caption,
		&p.Approved,
		&p.UploadedAt,
		&p.UploadedBy,
		&p.FileSize,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPhotos(rows *sql.Rows) ([]model.Photo, error) {
	defer rows.Close()
	photos := []model.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning photo: %w", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating photos: %w", err)
	}
	return photos, nil
}

// CreatePhoto inserts a photo. ID is generated; UploadedAt defaults to now.
func (db *DB) CreatePhoto(ctx context.Context, p *model.Photo) error {
	p.ID = uuid.NewString()
	if p.UploadedAt.IsZero() {
		p.UploadedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO photos (`+photoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.EventID,
		p.URL,
		p.ThumbnailURL,
		p.Caption,
		p.Approved,
		p.UploadedAt,
		p.UploadedBy,
		p.FileSize,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting photo: %w", err)
	}
	return nil
}

// GetPhoto fetches a photo scoped to its event. A photo id that exists
// under another event is reported as not found.
func (db *DB) GetPhoto(ctx context.Context, eventID, photoID string) (*model.Photo, error) {
	p, err := scanPhoto(db.conn.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id = ? AND event_id = ?`,
		photoID, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, photoNotFound(eventID, photoID)
		}
		return nil, fmt.Errorf("sqlite: getting photo %s: %w", photoID, err)
	}
	return p, nil
}

// ListPhotos returns one page of an event's photos, newest first, and the
// total matching the same filter. approvedOnly is the public tier.
func (db *DB) ListPhotos(ctx context.Context, eventID string, approvedOnly bool, opts repository.ListOptions) ([]model.Photo, int, error) {
	where := `event_id = ?`
	if approvedOnly {
		where += ` AND approved = 1`
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM photos WHERE `+where, eventID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting photos: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos
		 WHERE `+where+`
		 ORDER BY uploaded_at DESC, id
		 LIMIT ? OFFSET ?`,
		eventID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing photos: %w", err)
	}
	photos, err := scanPhotos(rows)
	if err != nil {
		return nil, 0, err
	}
	return photos, total, nil
}

// ListAllPhotos returns every photo of an event, for cleanup on delete.
func (db *DB) ListAllPhotos(ctx context.Context, eventID string) ([]model.Photo, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing photos: %w", err)
	}
	return scanPhotos(rows)
}

// CountPhotos counts an event's photos, optionally approved ones only.
func (db *DB) CountPhotos(ctx context.Context, eventID string, approvedOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM photos WHERE event_id = ?`
	if approvedOnly {
		query += ` AND approved = 1`
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, query, eventID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting photos: %w", err)
	}
	return n, nil
}

// UpdatePhoto loads, mutates and writes back a photo in one transaction.
// Only caption and approved are persisted; the rest of the row is immutable.
func (db *DB) UpdatePhoto(ctx context.Context, eventID, photoID string, apply func(*model.Photo)) (*model.Photo, error) {
	var updated *model.Photo
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPhoto(tx.QueryRowContext(ctx,
			`SELECT `+photoColumns+` FROM photos WHERE id = ? AND event_id = ?`,
			photoID, eventID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return photoNotFound(eventID, photoID)
			}
			return fmt.Errorf("sqlite: loading photo %s: %w", photoID, err)
		}

		apply(p)

		if _, err := tx.ExecContext(ctx,
			`UPDATE photos SET caption = ?, approved = ? WHERE id = ?`,
			p.Caption, p.Approved, photoID,
		); err != nil {
			return fmt.Errorf("sqlite: updating photo %s: %w", photoID, err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePhoto removes a single photo of an event.
func (db *DB) DeletePhoto(ctx context.Context, eventID, photoID string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM photos WHERE id = ? AND event_id = ?`, photoID, eventID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting photo %s: %w", photoID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return photoNotFound(eventID, photoID)
	}
	return nil
}

// DeletePhotos removes the listed photos of one event in a single
// transaction and returns the rows that existed, so the caller can clean up
// their remote assets. Ids from other events are ignored.
func (db *DB) DeletePhotos(ctx context.Context, eventID string, ids []string) ([]model.Photo, error) {
	if len(ids) == 0 {
		return []model.Photo{}, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, eventID)
	for _, id := range ids {
		args = append(args, id)
	}
	where := `event_id = ? AND id IN (` + placeholders(len(ids)) + `)`

	var deleted []model.Photo
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE `+where, args...)
		if err != nil {
			return fmt.Errorf("sqlite: selecting photos to delete: %w", err)
		}
		deleted, err = scanPhotos(rows)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE `+where, args...); err != nil {
			return fmt.Errorf("sqlite: deleting photos: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func photoNotFound(eventID, photoID string) error {
	return apperror.NotFoundMsg(fmt.Sprintf("Photo with ID '%s' not found in event '%s'.", photoID, eventID))
}
