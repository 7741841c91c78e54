package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// demoProgress is the reading progress given to the seeded currently-reading book.
const demoProgress = 42

// settleTimeout bounds the deferred settle call.
const settleTimeout = 10 * time.Second

// ShelfOptions configures ShelfService.
type ShelfOptions struct {
	// SettleDelay is how long after its first shelf access a new account is
	// marked settled.
	SettleDelay time.Duration
	// DemoSeed seeds example shelves for existing users without stored state.
	DemoSeed bool
}

// ShelfService owns the four shelves of every user. Each mutation loads the
// user's state, applies the change and writes the whole state back while
// holding that user's lock.
type ShelfService struct {
	catalog    CatalogReader
	repo       ShelfRepository
	settler    UserSettler
	activity   ActivityRecorder
	completion CompletionUpdater
	opts       ShelfOptions
	locks      *userLocks
	logger     *slog.Logger
	now        func() time.Time

	settleMu     sync.Mutex
	settleTimers map[string]*time.Timer
	closed       bool
}

// NewShelfService creates a new shelf service. activity may be nil.
func NewShelfService(
	catalog CatalogReader,
	repo ShelfRepository,
	settler UserSettler,
	activity ActivityRecorder,
	opts ShelfOptions,
	logger *slog.Logger,
) *ShelfService {
	return &ShelfService{
		catalog:      catalog,
		repo:         repo,
		settler:      settler,
		activity:     activity,
		opts:         opts,
		locks:        newUserLocks(),
		logger:       logger,
		now:          time.Now,
		settleTimers: make(map[string]*time.Timer),
	}
}

// SetCompletionUpdater sets the profile completion hook. It is set after
// construction because the profile service reads favorites counts from here.
func (s *ShelfService) SetCompletionUpdater(u CompletionUpdater) {
	s.completion = u
}

// ShelfLookup is the result of finding a book on any shelf.
type ShelfLookup struct {
	Found bool               `json:"found"`
	Shelf domain.ShelfType   `json:"shelf,omitempty"`
	Entry *domain.ShelfEntry `json:"entry,omitempty"`
}

// GetShelves returns the user's shelf state, initialising it on first access.
func (s *ShelfService) GetShelves(ctx context.Context, user *domain.User) (*domain.ShelfState, error) {
	unlock := s.locks.Lock(user.ID)
	defer unlock()
	return s.load(ctx, user)
}

// AddToShelf places the catalog book slug on shelf. Adding a book already on
// the shelf is not an error.
func (s *ShelfService) AddToShelf(ctx context.Context, user *domain.User, slug, shelf string) (*domain.ShelfState, error) {
	if err := s.requireSlug(user, "add", slug); err != nil {
		return nil, err
	}
	t, err := s.parseShelf(user, "add", shelf)
	if err != nil {
		return nil, err
	}

	book, err := s.resolveBook(ctx, slug)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, user, "add", func(state *domain.ShelfState, now time.Time) (bool, error) {
		return state.Add(*book, t, now)
	})
}

// RemoveFromShelf removes slug from shelf only.
func (s *ShelfService) RemoveFromShelf(ctx context.Context, user *domain.User, slug, shelf string) (*domain.ShelfState, error) {
	if err := s.requireSlug(user, "remove", slug); err != nil {
		return nil, err
	}
	t, err := s.parseShelf(user, "remove", shelf)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, user, "remove", func(state *domain.ShelfState, now time.Time) (bool, error) {
		return state.Remove(slug, t, now)
	})
}

// MoveBook moves slug from one shelf to another. A slug that is not on the
// source shelf leaves the state unchanged.
func (s *ShelfService) MoveBook(ctx context.Context, user *domain.User, slug, from, to string) (*domain.ShelfState, error) {
	if err := s.requireSlug(user, "move", slug); err != nil {
		return nil, err
	}
	fromType, err := s.parseShelf(user, "move", from)
	if err != nil {
		return nil, err
	}
	toType, err := s.parseShelf(user, "move", to)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, user, "move", func(state *domain.ShelfState, now time.Time) (bool, error) {
		return state.Move(slug, fromType, toType, now)
	})
}

// UpdateProgress sets the reading progress of a currently-reading book.
// Values outside 0-100 are clamped.
func (s *ShelfService) UpdateProgress(ctx context.Context, user *domain.User, slug string, progress int) (*domain.ShelfState, error) {
	if err := s.requireSlug(user, "progress", slug); err != nil {
		return nil, err
	}

	return s.mutate(ctx, user, "progress", func(state *domain.ShelfState, now time.Time) (bool, error) {
		return state.UpdateProgress(slug, progress, now), nil
	})
}

// IsInShelf reports whether slug is on shelf.
func (s *ShelfService) IsInShelf(ctx context.Context, user *domain.User, slug, shelf string) (bool, error) {
	t, err := s.parseShelf(user, "lookup", shelf)
	if err != nil {
		return false, err
	}
	state, err := s.GetShelves(ctx, user)
	if err != nil {
		return false, err
	}
	return state.IsInShelf(slug, t), nil
}

// GetBookFromShelf finds slug on the first shelf holding it, searching
// currentlyReading, nextUp, finished, then favorites.
func (s *ShelfService) GetBookFromShelf(ctx context.Context, user *domain.User, slug string) (*ShelfLookup, error) {
	state, err := s.GetShelves(ctx, user)
	if err != nil {
		return nil, err
	}
	entry, t, ok := state.Find(slug)
	if !ok {
		return &ShelfLookup{}, nil
	}
	return &ShelfLookup{Found: true, Shelf: t, Entry: entry}, nil
}

// FavoritesCount returns the number of favorites stored for userID. Missing
// or unreadable state counts as zero.
func (s *ShelfService) FavoritesCount(ctx context.Context, userID string) (int, error) {
	state, err := s.repo.LoadShelfState(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrCorrupt) {
			return 0, nil
		}
		return 0, fmt.Errorf("load shelf state: %w", err)
	}
	return len(state.Favorites), nil
}

// Shutdown stops pending settle timers. Users whose timer had not fired are
// settled on their next shelf access after restart.
func (s *ShelfService) Shutdown() {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	s.closed = true
	stopped := 0
	for _, t := range s.settleTimers {
		if t != nil && t.Stop() {
			stopped++
		}
	}
	if stopped > 0 {
		s.logger.Info("Stopped pending settle timers", "count", stopped)
	}
}

// mutate runs fn against the user's state under the user's lock and persists
// the result when fn reports a change. A failed write is logged and counted;
// the mutated state is still returned.
func (s *ShelfService) mutate(
	ctx context.Context,
	user *domain.User,
	op string,
	fn func(state *domain.ShelfState, now time.Time) (bool, error),
) (*domain.ShelfState, error) {
	unlock := s.locks.Lock(user.ID)

	state, err := s.load(ctx, user)
	if err != nil {
		unlock()
		return nil, err
	}

	favoritesBefore := slices.Clone(state.Favorites)

	changed, err := fn(state, s.now())
	if err != nil {
		unlock()
		return nil, domainerrors.Validation(err.Error())
	}
	if changed {
		s.save(ctx, user.ID, state)
	}
	unlock()

	metrics.RecordShelfMutation(op, changed)
	s.logger.Debug("Shelf mutation", "user_id", user.ID, "operation", op, "changed", changed)

	if changed {
		s.favoritesChanged(ctx, user.ID, favoritesBefore, state.Favorites)
	}
	return state, nil
}

// load returns the user's state. The caller holds the user's lock.
func (s *ShelfService) load(ctx context.Context, user *domain.User) (*domain.ShelfState, error) {
	state, err := s.repo.LoadShelfState(ctx, user.ID)
	switch {
	case err == nil:
		if !user.OwnsFreshState(state.CreatedAt) {
			s.logger.Info("Discarding shelf data older than new account",
				"user_id", user.ID,
				"state_created_at", state.CreatedAt,
			)
			metrics.ShelfLoadFallbacks.WithLabelValues("stale").Inc()
			state = domain.NewShelfState(s.now())
			s.save(ctx, user.ID, state)
		}
	case errors.Is(err, store.ErrNotFound):
		state = s.initialState(ctx, user)
		s.save(ctx, user.ID, state)
	case errors.Is(err, store.ErrCorrupt):
		s.logger.Warn("Shelf state unreadable, using default", "user_id", user.ID, "error", err)
		metrics.ShelfLoadFallbacks.WithLabelValues("corrupt").Inc()
		state = s.initialState(ctx, user)
		s.save(ctx, user.ID, state)
	default:
		return nil, fmt.Errorf("load shelf state: %w", err)
	}

	if user.IsNew {
		s.scheduleSettle(user.ID)
	}
	return state, nil
}

func (s *ShelfService) save(ctx context.Context, userID string, state *domain.ShelfState) {
	if err := s.repo.SaveShelfState(ctx, userID, state); err != nil {
		metrics.ShelfSaveFailures.Inc()
		s.logger.Error("Failed to save shelf state", "user_id", userID, "error", err)
	}
}

// initialState is the state of a user without stored shelves: empty, or
// seeded from the catalog for existing users when demo seeding is on.
func (s *ShelfService) initialState(ctx context.Context, user *domain.User) *domain.ShelfState {
	now := s.now()
	state := domain.NewShelfState(now)
	if !s.opts.DemoSeed || user.IsNew {
		return state
	}

	books, err := s.catalog.ListAllBooks(ctx)
	if err != nil {
		s.logger.Warn("Demo seed skipped, catalog unavailable", "user_id", user.ID, "error", err)
		return state
	}
	seedDemoShelves(state, books, now)
	s.logger.Info("Seeded demo shelves", "user_id", user.ID)
	return state
}

// seedDemoShelves fills state from the highest rated books: one currently
// reading (also a favorite), two next up and two finished.
func seedDemoShelves(state *domain.ShelfState, catalog []domain.Book, now time.Time) {
	ranked := slices.Clone(catalog)
	slices.SortStableFunc(ranked, func(a, b domain.Book) int {
		return cmp.Compare(b.Rating(), a.Rating())
	})

	plan := []domain.ShelfType{
		domain.ShelfCurrentlyReading,
		domain.ShelfNextUp, domain.ShelfNextUp,
		domain.ShelfFinished, domain.ShelfFinished,
	}
	for i, t := range plan {
		if i >= len(ranked) {
			break
		}
		// Add cannot fail for the fixed shelf types above.
		_, _ = state.Add(ranked[i], t, now)
		if t == domain.ShelfCurrentlyReading {
			_, _ = state.Add(ranked[i], domain.ShelfFavorites, now)
			state.UpdateProgress(ranked[i].Slug, demoProgress, now)
		}
	}
}

// favoritesChanged emits favorites activity for every slug that entered or
// left favorites and refreshes profile completion when the count changed.
func (s *ShelfService) favoritesChanged(ctx context.Context, userID string, before, after []domain.ShelfEntry) {
	ctx = context.WithoutCancel(ctx)

	if s.activity != nil {
		for _, e := range after {
			if !containsSlug(before, e.Slug) {
				s.activity.Record(ctx, userID, domain.ActivityFavoriteAdded, e.Slug, e.Title)
			}
		}
		for _, e := range before {
			if !containsSlug(after, e.Slug) {
				s.activity.Record(ctx, userID, domain.ActivityFavoriteRemoved, e.Slug, e.Title)
			}
		}
	}

	if s.completion != nil && len(before) != len(after) {
		if err := s.completion.RefreshCompletion(ctx, userID, len(after)); err != nil {
			s.logger.Warn("Failed to refresh profile completion", "user_id", userID, "error", err)
		}
	}
}

func containsSlug(entries []domain.ShelfEntry, slug string) bool {
	return slices.ContainsFunc(entries, func(e domain.ShelfEntry) bool { return e.Slug == slug })
}

// scheduleSettle marks userID settled after the settle delay. At most one
// timer is pending per user. The entry is dropped once the timer fires;
// settling again is harmless because settled_at is only set once.
func (s *ShelfService) scheduleSettle(userID string) {
	if s.settler == nil {
		return
	}

	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	if s.closed {
		return
	}
	if _, scheduled := s.settleTimers[userID]; scheduled {
		return
	}
	s.settleTimers[userID] = time.AfterFunc(s.opts.SettleDelay, func() {
		s.settle(userID)
	})
}

func (s *ShelfService) settle(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	err := s.settler.MarkUserAsSettled(ctx, userID)

	s.settleMu.Lock()
	defer s.settleMu.Unlock()
	if err != nil {
		// Forget the timer so the next shelf access tries again.
		delete(s.settleTimers, userID)
		s.logger.Warn("Failed to settle user", "user_id", userID, "error", err)
		return
	}
	delete(s.settleTimers, userID)
	metrics.UsersSettled.Inc()
}

func (s *ShelfService) requireSlug(user *domain.User, op, slug string) error {
	if slug != "" {
		return nil
	}
	s.logger.Warn("Rejected shelf operation without slug", "user_id", user.ID, "operation", op)
	return domainerrors.ValidationWithDetails("slug is required", map[string]string{"slug": "is required"})
}

func (s *ShelfService) parseShelf(user *domain.User, op, shelf string) (domain.ShelfType, error) {
	t, err := domain.ParseShelfType(shelf)
	if err != nil {
		s.logger.Warn("Rejected unknown shelf type", "user_id", user.ID, "operation", op, "shelf", shelf)
		return "", domainerrors.ValidationWithDetails(err.Error(), map[string]string{"shelf": shelf})
	}
	return t, nil
}

func (s *ShelfService) resolveBook(ctx context.Context, slug string) (*domain.Book, error) {
	book, err := s.catalog.GetBook(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("book %q not found", slug)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}
