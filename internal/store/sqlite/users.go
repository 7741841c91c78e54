package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, email, password_hash,
	display_name, is_new, settled_at, last_login_at`

func scanUser(sc scanner) (*domain.User, error) {
	var (
		u           domain.User
		createdAt   string
		updatedAt   string
		passwordH   sql.NullString
		isNew       int
		settledAt   sql.NullString
		lastLoginAt string
	)

	err := sc.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&u.Email,
		&passwordH,
		&u.DisplayName,
		&isNew,
		&settledAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if u.SettledAt, err = parseNullableTime(settledAt); err != nil {
		return nil, err
	}
	if u.LastLoginAt, err = parseTime(lastLoginAt); err != nil {
		return nil, err
	}
	u.PasswordHash = passwordH.String
	u.IsNew = isNew != 0

	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrEmailTaken if the email is already registered.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, created_at, updated_at, email, email_lower, password_hash,
			display_name, is_new, settled_at, last_login_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Email,
		emailKey(user.Email),
		nullString(user.PasswordHash),
		user.DisplayName,
		boolToInt(user.IsNew),
		nullTimeString(user.SettledAt),
		formatTime(user.LastLoginAt),
	)
	if isUniqueViolation(err, "users.email_lower") {
		return store.ErrEmailTaken
	}
	if isUniqueViolation(err, "") {
		return store.ErrAlreadyExists
	}
	return err
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

// GetUserByEmail retrieves a user by case-insensitive email.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email_lower = ?`, emailKey(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

// UpdateUser performs a full row update on an existing user.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			updated_at = ?, email = ?, email_lower = ?, password_hash = ?,
			display_name = ?, is_new = ?, settled_at = ?, last_login_at = ?
		WHERE id = ?`,
		formatTime(user.UpdatedAt),
		user.Email,
		emailKey(user.Email),
		nullString(user.PasswordHash),
		user.DisplayName,
		boolToInt(user.IsNew),
		nullTimeString(user.SettledAt),
		formatTime(user.LastLoginAt),
		user.ID,
	)
	if isUniqueViolation(err, "users.email_lower") {
		return store.ErrEmailTaken
	}
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// MarkUserSettled clears the new-account flag. Settling an already settled
// user is a no-op that still succeeds.
func (s *Store) MarkUserSettled(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_new = 0, settled_at = COALESCE(settled_at, ?), updated_at = ?
		WHERE id = ?`,
		formatTime(at), formatTime(at), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// requireAffected maps an UPDATE or DELETE that matched nothing to store.ErrNotFound.
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
