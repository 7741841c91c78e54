package api

import "github.com/shelfwise/shelfwise-server/internal/service"

// Services groups all business logic services used by the API server.
type Services struct {
	Auth           *service.AuthService
	Book           *service.BookService
	Shelf          *service.ShelfService
	Recommendation *service.RecommendationService
	Profile        *service.ProfileService
	Activity       *service.ActivityService
}
