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

// compile-time check that *DB implements repository.EventRepository
var _ repository.EventRepository = (*DB)(nil)

const eventColumns = `id, host_id, name, description, date, password_hash,
	cover_image_url, cover_thumbnail_url, cover_image_file_size,
	is_active, is_archived, created_at, updated_at`

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID,
		&e.HostID,
		&e.Name,
		&e.Description,
		&e.Date,
		&e.PasswordHash,
		&e.CoverImageURL,
		&e.CoverThumbnailURL,
		&e.CoverImageFileSize,
		&e.IsActive,
		&e.IsArchived,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent inserts a new event, generating its ID and creation time.
// updated_at stays NULL until the first update.
func (db *DB) CreateEvent(ctx context.Context, e *model.Event) error {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = nil

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.HostID,
		e.Name,
		e.Description,
		e.Date,
		e.PasswordHash,
		e.CoverImageURL,
		e.CoverThumbnailURL,
		e.CoverImageFileSize,
		e.IsActive,
		e.IsArchived,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by ID.
// Returns apperror.ErrNotFound if it doesn't exist.
func (db *DB) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}
	return e, nil
}

// ListEventsByHost returns one page of the host's events, newest first,
// plus the total number of events the host owns.
func (db *DB) ListEventsByHost(ctx context.Context, hostID string, opts repository.ListOptions) ([]model.Event, int, error) {
	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE host_id = ?`, hostID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting events: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE host_id = ?
		 ORDER BY created_at DESC, id
		 LIMIT ? OFFSET ?`,
		hostID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating events: %w", err)
	}
	return events, total, nil
}

// UpdateEvent is a read-modify-commit in a single transaction. apply sees
// the current row and mutates it; ID, HostID and CreatedAt are restored
// afterwards so they cannot be changed through this path.
func (db *DB) UpdateEvent(ctx context.Context, id string, apply func(*model.Event) error) (*model.Event, error) {
	var updated *model.Event
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		e, err := scanEvent(tx.QueryRowContext(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("Event", id)
			}
			return fmt.Errorf("sqlite: loading event %s: %w", id, err)
		}

		hostID, createdAt := e.HostID, e.CreatedAt
		if err := apply(e); err != nil {
			return err
		}
		e.ID, e.HostID, e.CreatedAt = id, hostID, createdAt
		now := time.Now().UTC()
		e.UpdatedAt = &now

		_, err = tx.ExecContext(ctx,
			`UPDATE events SET
				name = ?, description = ?, date = ?, password_hash = ?,
				cover_image_url = ?, cover_thumbnail_url = ?, cover_image_file_size = ?,
				is_active = ?, is_archived = ?, updated_at = ?
			 WHERE id = ?`,
			e.Name,
			e.Description,
			e.Date,
			e.PasswordHash,
			e.CoverImageURL,
			e.CoverThumbnailURL,
			e.CoverImageFileSize,
			e.IsActive,
			e.IsArchived,
			e.UpdatedAt,
			id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating event %s: %w", id, err)
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEvent removes an event. Its photos go with it (ON DELETE CASCADE).
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("Event", id)
	}
	return nil
}

// BulkUpdateEvents issues one set-based UPDATE scoped by the id list AND
// the host, so ids the caller does not own are silently skipped.
func (db *DB) BulkUpdateEvents(ctx context.Context, hostID string, ids []string, action model.EventBulkAction) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var set string
	switch action {
	case model.BulkArchive:
		set = `is_archived = 1`
	case model.BulkActivate:
		set = `is_active = 1`
	case model.BulkDeactivate:
		set = `is_active = 0`
	default:
		return 0, apperror.ValidationFailed("action", fmt.Sprintf("unknown action %q", action))
	}

	args := make([]any, 0, len(ids)+2)
	args = append(args, time.Now().UTC(), hostID)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE events SET `+set+`, updated_at = ?
		 WHERE host_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: bulk %s: %w", action, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return int(n), nil
}
