package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/repository"
)

// compile-time check that *DB implements repository.UsageRepository
var _ repository.UsageRepository = (*DB)(nil)

// StorageUsage adds up what a user occupies in object storage:
//
//   - photos the user uploaded into events the user hosts
//   - the cover image of every event the user hosts
//   - the user's avatar
//
// Sizes are summed in Go rather than with SUM() so that each value passes
// through model.FileSize; legacy text or negative values count as zero
// instead of poisoning the aggregate.
func (db *DB) StorageUsage(ctx context.Context, userID string) (model.StorageUsage, error) {
	var usage model.StorageUsage
	var err error

	usage.Photos, err = db.sumSizes(ctx,
		`SELECT p.file_size FROM photos p
		 JOIN events e ON e.id = p.event_id
		 WHERE e.host_id = ? AND p.uploaded_by = ?`,
		userID, userID)
	if err != nil {
		return usage, fmt.Errorf("sqlite: summing photo sizes: %w", err)
	}

	usage.Covers, err = db.sumSizes(ctx,
		`SELECT cover_image_file_size FROM events WHERE host_id = ?`, userID)
	if err != nil {
		return usage, fmt.Errorf("sqlite: summing cover sizes: %w", err)
	}

	var avatar model.FileSize
	err = db.conn.QueryRowContext(ctx,
		`SELECT avatar_file_size FROM users WHERE id = ?`, userID,
	).Scan(&avatar)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return usage, fmt.Errorf("sqlite: reading avatar size: %w", err)
	}
	usage.Avatar = avatar.Int64()

	return usage, nil
}

func (db *DB) sumSizes(ctx context.Context, query string, args ...any) (int64, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var size model.FileSize
		if err := rows.Scan(&size); err != nil {
			return 0, err
		}
		total += size.Int64()
	}
	return total, rows.Err()
}
