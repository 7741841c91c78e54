package service

import (
	"context"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	MarkUserSettled(ctx context.Context, id string, at time.Time) error
}

// SessionStore persists refresh-token sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// ProfileStore persists user profiles and their username history.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *domain.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	GetProfileByUsername(ctx context.Context, username string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, p *domain.UserProfile, usernameChangedAt *time.Time) error
	UpdateProfileCompletion(ctx context.Context, userID string, completion int, at time.Time) error
	ListUsernameChangesSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
}

// CatalogReader reads the book catalog in catalog order.
type CatalogReader interface {
	ListAllBooks(ctx context.Context) ([]domain.Book, error)
	GetBook(ctx context.Context, slug string) (*domain.Book, error)
}

// CatalogStore is the full catalog persistence surface.
type CatalogStore interface {
	CatalogReader
	ListBooks(ctx context.Context, offset, limit int) ([]domain.Book, error)
	CountBooks(ctx context.Context) (int, error)
	ListGenres(ctx context.Context) ([]string, error)
	UpsertBooks(ctx context.Context, books []domain.Book, now time.Time) (sqlite.UpsertResult, error)
}

// ShelfRepository loads and saves per-user shelf documents. Load returns
// store.ErrNotFound when the user has no document and store.ErrCorrupt when
// the stored document cannot be decoded.
type ShelfRepository interface {
	LoadShelfState(ctx context.Context, userID string) (*domain.ShelfState, error)
	SaveShelfState(ctx context.Context, userID string, state *domain.ShelfState) error
}

// ActivityRecorder receives favorites activity. Implementations must not block
// and never report failure to the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, userID string, action domain.ActivityAction, slug, title string)
}

// ActivityReader lists stored activities.
type ActivityReader interface {
	ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
}

// UserSettler clears the new-account flag.
type UserSettler interface {
	MarkUserAsSettled(ctx context.Context, userID string) error
}

// CompletionUpdater recomputes profile completion when the favorites count changes.
type CompletionUpdater interface {
	RefreshCompletion(ctx context.Context, userID string, favorites int) error
}

// GenreSource returns a user's preferred genres.
type GenreSource interface {
	PreferredGenres(ctx context.Context, userID string) ([]string, error)
}

// FavoritesCounter reports how many favorites a user has.
type FavoritesCounter interface {
	FavoritesCount(ctx context.Context, userID string) (int, error)
}
