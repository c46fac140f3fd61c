package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/photolog/internal/apperror"
	"github.com/sakif/photolog/internal/model"
	"github.com/sakif/photolog/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, name, avatar_url, avatar_file_size, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.AvatarFileSize,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by the business key. Emails compare
// case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`,
		strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMsg(fmt.Sprintf("User with email '%s' not found.", email))
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// CreateUser inserts a new user. user.ID must already hold the external
// subject id; CreatedAt is filled in here.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		return apperror.ValidationFailed("id", "user ID is required")
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = nil

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, avatar_url, avatar_file_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		strings.TrimSpace(user.Email),
		user.Name,
		user.AvatarURL,
		user.AvatarFileSize,
		user.CreatedAt,
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return apperror.Conflict("user", "id", user.ID)
		}
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "email", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, err)
	}
	return nil
}

// UpdateUserName replaces the display name.
func (db *DB) UpdateUserName(ctx context.Context, id string, name *string) error {
	return db.updateUser(ctx, id,
		`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), id)
}

// UpdateUserEmail moves a user to a new email. Returns apperror.ErrConflict
// if another user already holds it.
func (db *DB) UpdateUserEmail(ctx context.Context, id, email string) error {
	email = strings.TrimSpace(email)
	err := db.updateUser(ctx, id,
		`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		email, time.Now().UTC(), id)
	if isUniqueViolation(err) {
		return apperror.Conflict("user", "email", email)
	}
	return err
}

// UpdateUserAvatar records a new avatar and its size.
func (db *DB) UpdateUserAvatar(ctx context.Context, id, url string, size model.FileSize) error {
	return db.updateUser(ctx, id,
		`UPDATE users SET avatar_url = ?, avatar_file_size = ?, updated_at = ? WHERE id = ?`,
		url, size, time.Now().UTC(), id)
}

func (db *DB) updateUser(ctx context.Context, id, query string, args ...any) error {
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("User", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return hasCode(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE)
}

func isPrimaryKeyViolation(err error) bool {
	return hasCode(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func hasCode(err error, code int) bool {
	var sqliteErr *moderncsqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == code
}
