package router // package router defines how HTTP routes are registered for the service

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/visit-counter/internal/handler" // handlers for the health check and status page
)

// RegisterRoutes wires the two behaviours of the service. The path /health
// maps to the health check; every other GET path, including / and
// /health/, renders the status page and counts as a visit. limit wraps only
// the status page so health checks are never throttled.
func RegisterRoutes(e *echo.Echo, s *handler.StatusHandler, limit ...echo.MiddlewareFunc) {
	e.GET("/health", handler.Health)
	e.GET("/*", s.Status, limit...)
}
