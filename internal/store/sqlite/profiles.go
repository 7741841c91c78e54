package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// profileColumns must match the scan order in scanProfile.
const profileColumns = `user_id, name, username, email, bio, avatar_url, cover_url,
	date_of_birth, gender, phone, socials, genres, profile_completion, created_at, updated_at`

func scanProfile(sc scanner) (*domain.UserProfile, error) {
	var (
		p           domain.UserProfile
		username    sql.NullString
		dateOfBirth sql.NullString
		phone       sql.NullString
		socials     string
		genres      string
		createdAt   string
		updatedAt   string
	)

	err := sc.Scan(
		&p.UserID,
		&p.Name,
		&username,
		&p.Email,
		&p.Bio,
		&p.AvatarURL,
		&p.CoverURL,
		&dateOfBirth,
		&p.Gender,
		&phone,
		&socials,
		&genres,
		&p.ProfileCompletion,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Username = username.String
	p.Phone = phone.String
	if p.DateOfBirth, err = parseNullableTime(dateOfBirth); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(socials), &p.Socials); err != nil {
		return nil, fmt.Errorf("decode socials: %w", err)
	}
	if err := json.Unmarshal([]byte(genres), &p.Genres); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	if p.Genres == nil {
		p.Genres = []string{}
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// profileArgs returns the encoded column values shared by insert and update.
func profileArgs(p *domain.UserProfile) (socials, genres string, err error) {
	s, err := json.Marshal(p.Socials)
	if err != nil {
		return "", "", fmt.Errorf("encode socials: %w", err)
	}
	g := p.Genres
	if g == nil {
		g = []string{}
	}
	gb, err := json.Marshal(g)
	if err != nil {
		return "", "", fmt.Errorf("encode genres: %w", err)
	}
	return string(s), string(gb), nil
}

// mapProfileConflict turns a UNIQUE failure into the field-specific sentinel.
func mapProfileConflict(err error) error {
	switch {
	case isUniqueViolation(err, "profiles.username_lower"):
		return store.ErrUsernameTaken
	case isUniqueViolation(err, "profiles.phone"):
		return store.ErrPhoneTaken
	case isUniqueViolation(err, ""):
		return store.ErrAlreadyExists
	}
	return err
}

// CreateProfile inserts a profile for an existing user.
func (s *Store) CreateProfile(ctx context.Context, p *domain.UserProfile) error {
	socials, genres, err := profileArgs(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (
			user_id, name, username, username_lower, email, bio, avatar_url, cover_url,
			date_of_birth, gender, phone, socials, genres, profile_completion, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID,
		p.Name,
		nullString(p.Username),
		nullString(strings.ToLower(p.Username)),
		p.Email,
		p.Bio,
		p.AvatarURL,
		p.CoverURL,
		nullTimeString(p.DateOfBirth),
		p.Gender,
		nullString(p.Phone),
		socials,
		genres,
		p.ProfileCompletion,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	return mapProfileConflict(err)
}

// GetProfile retrieves the profile for a user.
// Returns store.ErrNotFound if the user has no profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// GetProfileByUsername retrieves a profile by case-insensitive username.
// Returns store.ErrNotFound if no profile has that username.
func (s *Store) GetProfileByUsername(ctx context.Context, username string) (*domain.UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE username_lower = ?`, strings.ToLower(username))
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// UpdateProfile performs a full row update on a profile. When usernameChangedAt
// is non-nil the new username is recorded in the change history in the same
// transaction.
//
// Returns store.ErrUsernameTaken or store.ErrPhoneTaken on uniqueness conflicts
// and store.ErrNotFound if the profile does not exist.
func (s *Store) UpdateProfile(ctx context.Context, p *domain.UserProfile, usernameChangedAt *time.Time) error {
	socials, genres, err := profileArgs(p)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
		UPDATE profiles SET
			name = ?, username = ?, username_lower = ?, email = ?, bio = ?,
			avatar_url = ?, cover_url = ?, date_of_birth = ?, gender = ?, phone = ?,
			socials = ?, genres = ?, profile_completion = ?, updated_at = ?
		WHERE user_id = ?`,
		p.Name,
		nullString(p.Username),
		nullString(strings.ToLower(p.Username)),
		p.Email,
		p.Bio,
		p.AvatarURL,
		p.CoverURL,
		nullTimeString(p.DateOfBirth),
		p.Gender,
		nullString(p.Phone),
		socials,
		genres,
		p.ProfileCompletion,
		formatTime(p.UpdatedAt),
		p.UserID,
	)
	if err != nil {
		return mapProfileConflict(err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	if usernameChangedAt != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO username_changes (user_id, username, changed_at) VALUES (?, ?, ?)`,
			p.UserID, p.Username, formatTime(*usernameChangedAt))
		if err != nil {
			return fmt.Errorf("record username change: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateProfileCompletion stores a recomputed completion score.
func (s *Store) UpdateProfileCompletion(ctx context.Context, userID string, completion int, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET profile_completion = ?, updated_at = ? WHERE user_id = ?`,
		completion, formatTime(at), userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListUsernameChangesSince returns the times of the user's username changes
// after since, oldest first.
func (s *Store) ListUsernameChangesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT changed_at FROM username_changes WHERE user_id = ? AND changed_at > ?
		ORDER BY changed_at ASC`, userID, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		changes = append(changes, t)
	}
	return changes, rows.Err()
}
