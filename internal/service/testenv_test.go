package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/catalog"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// testEnv wires every service against real stores in a temp directory.
type testEnv struct {
	db       *sqlite.Store
	shelves  *store.Store
	index    *search.SearchIndex
	tokens   *auth.TokenService
	recorder *recordingActivity

	auth     *AuthService
	sessions *SessionService
	books    *BookService
	shelf    *ShelfService
	profiles *ProfileService
	recs     *RecommendationService
	activity *ActivityService
}

func newTestEnv(t *testing.T, opts ShelfOptions) *testEnv {
	t.Helper()

	dir := t.TempDir()
	log := logger.Discard()

	db, err := sqlite.Open(filepath.Join(dir, "shelfwise.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	shelves, err := store.NewInMemory(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shelves.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: dir, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	tokens, err := auth.NewTokenService(key, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	v := validation.New()
	env := &testEnv{
		db:       db,
		shelves:  shelves,
		index:    index,
		tokens:   tokens,
		recorder: &recordingActivity{},
	}

	env.sessions = NewSessionService(db, db, tokens, log)
	env.auth = NewAuthService(db, db, tokens, env.sessions, nil, v, log)
	env.books = NewBookService(db, index, log)
	env.shelf = NewShelfService(db, shelves, env.auth, env.recorder, opts, log)
	env.profiles = NewProfileService(db, env.shelf, v, log)
	env.shelf.SetCompletionUpdater(env.profiles)
	env.recs = NewRecommendationService(db, env.shelf, env.profiles, log)
	env.activity = NewActivityService(db, log)
	t.Cleanup(env.shelf.Shutdown)

	return env
}

// seedCatalog imports the embedded default catalog.
func (e *testEnv) seedCatalog(t *testing.T) []domain.Book {
	t.Helper()
	books, err := catalog.Default()
	require.NoError(t, err)
	_, err = e.books.Import(context.Background(), books)
	require.NoError(t, err)
	return books
}

// register creates an account through AuthService and returns the stored user.
func (e *testEnv) register(t *testing.T, email string) *domain.User {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), RegisterRequest{
		Email:       email,
		Password:    "correct-horse",
		DisplayName: "Test Reader",
	}, ClientInfo{})
	require.NoError(t, err)
	return resp.User
}

// settledUser registers an account and clears its new-account flag.
func (e *testEnv) settledUser(t *testing.T, email string) *domain.User {
	t.Helper()
	user := e.register(t, email)
	require.NoError(t, e.auth.MarkUserAsSettled(context.Background(), user.ID))
	u, err := e.auth.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	return u
}

type recordedActivity struct {
	UserID string
	Action domain.ActivityAction
	Slug   string
	Title  string
}

// recordingActivity captures favorites activity in memory.
type recordingActivity struct {
	mu     sync.Mutex
	events []recordedActivity
}

func (r *recordingActivity) Record(_ context.Context, userID string, action domain.ActivityAction, slug, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedActivity{UserID: userID, Action: action, Slug: slug, Title: title})
}

func (r *recordingActivity) Events() []recordedActivity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedActivity(nil), r.events...)
}

func slugsOf(entries []domain.ShelfEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Slug)
	}
	return out
}
