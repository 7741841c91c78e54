package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// Component health states.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"sqlite": s.checkSQLite(ctx),
		"badger": s.checkBadger(),
		"search": s.checkSearchIndex(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch c.Status {
		case statusUnhealthy:
			overall = statusUnhealthy
		case statusDegraded:
			if overall == statusHealthy {
				overall = statusDegraded
			}
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkSQLite verifies the relational store answers a ping.
func (s *Server) checkSQLite(ctx context.Context) ComponentHealth {
	if s.stores.DB == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}

	start := time.Now()
	err := s.stores.DB.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: latency.String(), Message: "database ping failed"}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}

// checkBadger verifies the shelf document store is open.
func (s *Server) checkBadger() ComponentHealth {
	if s.stores.Shelves == nil {
		return ComponentHealth{Status: statusDegraded, Message: "shelf store not configured"}
	}

	start := time.Now()
	err := s.stores.Shelves.Ping()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: latency.String(), Message: "shelf store unavailable"}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.stores.Index == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search index not configured"}
	}

	start := time.Now()
	docCount, err := s.stores.Index.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: latency.String(), Message: "search index unreachable"}
	}

	// Accessible but empty, e.g. while the catalog is being imported
	if docCount == 0 {
		return ComponentHealth{Status: statusDegraded, Latency: latency.String(), Message: "search index empty"}
	}

	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: strconv.FormatUint(docCount, 10) + " documents",
	}
}
