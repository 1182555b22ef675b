// Package handler exposes the HTTP handlers of the service: the health check
// and the status page that bumps the visit counter.
package handler

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-counter/internal/config"
	"github.com/iliyamo/visit-counter/internal/counter"
	"github.com/iliyamo/visit-counter/internal/model"
	"github.com/iliyamo/visit-counter/internal/queue"
)

// VisitPublisher forwards a recorded visit to downstream consumers.
type VisitPublisher interface {
	Publish(ctx context.Context, ev queue.VisitRecordedEvent) error
}

// StatusHandler renders the status page. It is built once at startup and
// shared by all requests; it holds no per-request state.
type StatusHandler struct {
	Counter counter.Counter
	Timeout time.Duration // bound on a single increment
	Title   string
	Env     string
	Network string

	Events         VisitPublisher // nil disables visit events
	PublishTimeout time.Duration

	Hostname func() string
	Now      func() time.Time
}

// NewStatusHandler wires a StatusHandler from cfg. pub may be nil.
func NewStatusHandler(cfg config.Config, c counter.Counter, pub VisitPublisher) *StatusHandler {
	return &StatusHandler{
		Counter:        c,
		Timeout:        cfg.CounterTimeout,
		Title:          cfg.AppName,
		Env:            cfg.Env,
		Network:        cfg.NetworkDescription,
		Events:         pub,
		PublishTimeout: 2 * time.Second,
		Hostname:       hostname,
		Now:            time.Now,
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
}

// Status increments the visit counter and renders the status page. A
// failing store produces a degraded page, never an HTTP error.
func (h *StatusHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	visits, err := h.Counter.Increment(ctx)
	cancel()

	now := h.Now()
	page := model.StatusPage{
		Title:       h.Title,
		Environment: h.Env,
		Hostname:    h.Hostname(),
		Timestamp:   now.Format(model.TimestampLayout),
		Network:     h.Network,
		Status:      "API is running!",
	}
	if err != nil {
		c.Logger().Warnf("[status] %s increment failed: %v", h.Counter.Name(), err)
		page.Visits = model.UnavailableCount
		page.StoreStatus = fmt.Sprintf("✗ %s connection failed: %v", h.Counter.Name(), err)
	} else {
		page.Healthy = true
		page.Visits = strconv.FormatInt(visits, 10)
		page.StoreStatus = fmt.Sprintf("✓ Connected to %s (backend network)", h.Counter.Name())
		h.publish(c, queue.VisitRecordedEvent{
			Hostname:  page.Hostname,
			Count:     visits,
			Path:      c.Request().URL.Path,
			VisitedAt: now.UTC().Format(time.RFC3339),
		})
	}

	if err := c.Render(http.StatusOK, StatusTemplateName, page); err != nil {
		c.Logger().Errorf("[status] render: %v", err)
		return c.HTML(http.StatusOK, fallbackPage(page))
	}
	return nil
}

// publish sends ev in the background so a slow broker never delays the page.
func (h *StatusHandler) publish(c echo.Context, ev queue.VisitRecordedEvent) {
	if h.Events == nil {
		return
	}
	lg := c.Logger()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.PublishTimeout)
		defer cancel()
		if err := h.Events.Publish(ctx, ev); err != nil {
			lg.Warnf("[status] publish visit %d: %v", ev.Count, err)
		}
	}()
}

func fallbackPage(p model.StatusPage) string {
	return fmt.Sprintf("<html><body><p>Container ID: %s</p><p>Timestamp: %s</p><p>Visit Count: %s</p><p>Store Status: %s</p><p>Status: %s</p></body></html>",
		html.EscapeString(p.Hostname), html.EscapeString(p.Timestamp), html.EscapeString(p.Visits),
		html.EscapeString(p.StoreStatus), html.EscapeString(p.Status))
}
