package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/api"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	db := do.MustInvoke[*DatabaseHandle](i)
	shelves := do.MustInvoke[*ShelfStoreHandle](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:           do.MustInvoke[*service.AuthService](i),
		Book:           do.MustInvoke[*service.BookService](i),
		Shelf:          do.MustInvoke[*service.ShelfService](i),
		Recommendation: do.MustInvoke[*service.RecommendationService](i),
		Profile:        do.MustInvoke[*service.ProfileService](i),
		Activity:       do.MustInvoke[*service.ActivityService](i),
	}

	handler := api.NewServer(
		api.Stores{DB: db.Store, Shelves: shelves.Store, Index: index.SearchIndex},
		services,
		api.Options{
			CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		},
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
