package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// makeTestUser creates a domain.User with sensible defaults for testing.
func makeTestUser(id, email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.User{
		Syncable: domain.Syncable{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        email,
		PasswordHash: "$argon2id$fakehashfortest",
		DisplayName:  "Test User",
		IsNew:        true,
		LastLoginAt:  now,
	}
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser("user-1", "Alice@Example.com")
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != user.Email {
		t.Errorf("Email: got %q, want %q", got.Email, user.Email)
	}
	if got.PasswordHash != user.PasswordHash {
		t.Errorf("PasswordHash: got %q, want %q", got.PasswordHash, user.PasswordHash)
	}
	if !got.IsNew {
		t.Error("IsNew: expected true")
	}
	if got.SettledAt != nil {
		t.Errorf("SettledAt: expected nil, got %v", got.SettledAt)
	}
	if !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, user.CreatedAt)
	}

	byEmail, err := s.GetUserByEmail(ctx, "  alice@EXAMPLE.com ")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != "user-1" {
		t.Errorf("GetUserByEmail: got %q", byEmail.ID)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "bob@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := s.CreateUser(ctx, makeTestUser("user-2", "BOB@example.com"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser("user-1", "carol@example.com")
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user.DisplayName = "Carol"
	user.LastLoginAt = user.LastLoginAt.Add(time.Hour)
	if err := s.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.DisplayName != "Carol" {
		t.Errorf("DisplayName: got %q", got.DisplayName)
	}
	if !got.LastLoginAt.Equal(user.LastLoginAt) {
		t.Errorf("LastLoginAt: got %v, want %v", got.LastLoginAt, user.LastLoginAt)
	}

	missing := makeTestUser("nope", "nope@example.com")
	if err := s.UpdateUser(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkUserSettled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "dave@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	first := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.MarkUserSettled(ctx, "user-1", first); err != nil {
		t.Fatalf("MarkUserSettled: %v", err)
	}
	// A second call keeps the original settled_at.
	if err := s.MarkUserSettled(ctx, "user-1", first.Add(time.Minute)); err != nil {
		t.Fatalf("MarkUserSettled again: %v", err)
	}

	got, err := s.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.IsNew {
		t.Error("IsNew: expected false after settling")
	}
	if got.SettledAt == nil || !got.SettledAt.Equal(first) {
		t.Errorf("SettledAt: got %v, want %v", got.SettledAt, first)
	}

	if err := s.MarkUserSettled(ctx, "missing", first); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("user-1", "erin@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	live := &domain.Session{
		ID: "sess-live", UserID: "user-1", RefreshTokenHash: "hash-live",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now, LastSeenAt: now,
		IPAddress: "10.0.0.1", UserAgent: "test-agent",
	}
	expired := &domain.Session{
		ID: "sess-old", UserID: "user-1", RefreshTokenHash: "hash-old",
		ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-2 * time.Hour), LastSeenAt: now,
	}
	for _, sess := range []*domain.Session{live, expired} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession %s: %v", sess.ID, err)
		}
	}

	dup := *live
	dup.ID = "sess-dup"
	if err := s.CreateSession(ctx, &dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate token hash: expected ErrAlreadyExists, got %v", err)
	}

	got, err := s.GetSessionByTokenHash(ctx, "hash-live")
	if err != nil {
		t.Fatalf("GetSessionByTokenHash: %v", err)
	}
	if got.ID != "sess-live" || got.UserAgent != "test-agent" || got.IPAddress != "10.0.0.1" {
		t.Errorf("unexpected session: %+v", got)
	}

	got.RefreshTokenHash = "hash-rotated"
	got.LastSeenAt = now.Add(time.Minute)
	if err := s.UpdateSession(ctx, got); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if _, err := s.GetSessionByTokenHash(ctx, "hash-live"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("old token hash should no longer resolve: %v", err)
	}
	rotated, err := s.GetSessionByTokenHash(ctx, "hash-rotated")
	if err != nil {
		t.Fatalf("GetSessionByTokenHash rotated: %v", err)
	}
	if !rotated.LastSeenAt.Equal(now.Add(time.Minute)) {
		t.Errorf("LastSeenAt: got %v", rotated.LastSeenAt)
	}

	n, err := s.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired session removed, got %d", n)
	}
	if _, err := s.GetSessionByTokenHash(ctx, "hash-old"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expired session still present: %v", err)
	}

	if err := s.DeleteSession(ctx, "sess-live"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if err := s.DeleteSession(ctx, "sess-live"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
