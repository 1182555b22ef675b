// Package server assembles the Echo instance served by cmd/server.
package server

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/visit-counter/internal/config"
	"github.com/iliyamo/visit-counter/internal/counter"
	"github.com/iliyamo/visit-counter/internal/handler"
	"github.com/iliyamo/visit-counter/internal/middleware"
	"github.com/iliyamo/visit-counter/internal/router"
)

// New returns an Echo instance with the renderer, panic recovery and both
// routes registered. pub may be nil to disable visit events; rdb is only
// needed by the redis rate limiter.
func New(cfg config.Config, c counter.Counter, pub handler.VisitPublisher, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.Renderer = handler.NewRenderer()

	// A panic must still end in a response; health checks depend on it.
	e.Use(echomw.Recover())

	status := handler.NewStatusHandler(cfg, c, pub)
	router.RegisterRoutes(e, status, middleware.NewTokenBucket(cfg.RateLimit, rdb))
	return e
}

func logLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}
