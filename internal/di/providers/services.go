package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSessionService provides the session service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(db.Store, db.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	limiter := do.MustInvoke[*LoginLimiterHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(
		db.Store,
		db.Store,
		tokenService,
		sessionService,
		limiter.KeyedRateLimiter,
		validator,
		log.Logger,
	), nil
}

// ProvideBookService provides the catalog service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(db.Store, index.SearchIndex, log.Logger), nil
}

// ProvideShelfService provides the shelf service. Favorites changes are
// published to the activity pipeline.
func ProvideShelfService(i do.Injector) (*service.ShelfService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	db := do.MustInvoke[*DatabaseHandle](i)
	shelves := do.MustInvoke[*ShelfStoreHandle](i)
	authService := do.MustInvoke[*service.AuthService](i)
	pipeline := do.MustInvoke[*ActivityPipelineHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewShelfService(
		db.Store,
		shelves.Store,
		authService,
		pipeline.Publisher(),
		service.ShelfOptions{
			SettleDelay: cfg.Shelf.SettleDelay,
			DemoSeed:    cfg.Shelf.DemoSeed,
		},
		log.Logger,
	), nil
}

// ProvideProfileService provides the profile service and registers it as the
// shelf service's completion hook.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	shelfService := do.MustInvoke[*service.ShelfService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	profiles := service.NewProfileService(db.Store, shelfService, validator, log.Logger)
	shelfService.SetCompletionUpdater(profiles)

	return profiles, nil
}

// ProvideRecommendationService provides the recommendation service.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	shelfService := do.MustInvoke[*service.ShelfService](i)
	profiles := do.MustInvoke[*service.ProfileService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRecommendationService(db.Store, shelfService, profiles, log.Logger), nil
}

// ProvideActivityService provides the activity feed service.
func ProvideActivityService(i do.Injector) (*service.ActivityService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewActivityService(db.Store, log.Logger), nil
}
