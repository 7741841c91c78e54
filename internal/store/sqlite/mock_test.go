package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return newStore(db, nil), mock
}

func TestErrorMapping_UniqueViolations(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{"username", errors.New("constraint failed: UNIQUE constraint failed: profiles.username_lower (2067)"), store.ErrUsernameTaken},
		{"phone", errors.New("constraint failed: UNIQUE constraint failed: profiles.phone (2067)"), store.ErrPhoneTaken},
		{"other", errors.New("constraint failed: UNIQUE constraint failed: profiles.user_id (1555)"), store.ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectBegin()
			mock.ExpectExec("UPDATE profiles SET").WillReturnError(tt.dbErr)
			mock.ExpectRollback()

			p := makeTestProfile("user-1")
			err := s.UpdateProfile(context.Background(), p, nil)
			if err != tt.wantErr {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("expectations: %v", err)
			}
		})
	}
}

func TestErrorMapping_NoRowsAffected(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteSession(context.Background(), "sess-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestErrorMapping_PassesThroughDriverErrors(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("disk I/O error")
	mock.ExpectExec("INSERT INTO activities").WillReturnError(boom)

	err := s.CreateActivity(context.Background(), makeTestActivity())
	if !errors.Is(err, boom) {
		t.Errorf("expected driver error, got %v", err)
	}
}

func TestUsernameChangeRecordedInTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE profiles SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO username_changes").
		WithArgs("user-1", "newname", formatTime(at)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	p := makeTestProfile("user-1")
	p.Username = "newname"
	if err := s.UpdateProfile(context.Background(), p, &at); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func makeTestProfile(userID string) *domain.UserProfile {
	return domain.NewUserProfile(userID, "Reader", userID+"@example.com")
}

func makeTestActivity() *domain.Activity {
	return &domain.Activity{
		ID:        "act-1",
		UserID:    "user-1",
		Action:    domain.ActivityFavoriteAdded,
		BookSlug:  "dune",
		BookTitle: "Dune",
		CreatedAt: time.Now(),
	}
}
