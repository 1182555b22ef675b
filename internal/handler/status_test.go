package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-counter/internal/counter"
	"github.com/iliyamo/visit-counter/internal/model"
	"github.com/iliyamo/visit-counter/internal/queue"
)

type stubCounter struct {
	mu  sync.Mutex
	n   int64
	err error
}

func (s *stubCounter) Increment(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.n++
	return s.n, nil
}

func (s *stubCounter) Name() string { return "Redis" }

// blockingCounter waits for the request deadline, like a store that
// accepted the connection but never answers.
type blockingCounter struct{}

func (blockingCounter) Increment(ctx context.Context) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (blockingCounter) Name() string { return "Redis" }

type recordingPublisher struct {
	events chan queue.VisitRecordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.VisitRecordedEvent) error {
	p.events <- ev
	return p.err
}

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newStatus(c counter.Counter) *StatusHandler {
	return &StatusHandler{
		Counter:        c,
		Timeout:        time.Second,
		Title:          "API Service",
		Env:            "test",
		Network:        "Connected to frontend and backend",
		PublishTimeout: time.Second,
		Hostname:       func() string { return "c0ffee123456" },
		Now:            func() time.Time { return fixedNow },
	}
}

func serve(h *StatusHandler, path string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Renderer = NewRenderer()
	e.GET("/health", Health)
	e.GET("/*", h.Status)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth_ReturnsPlainOK(t *testing.T) {
	rec := serve(newStatus(&stubCounter{err: errors.New("must not be called")}), "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "OK" {
		t.Fatalf("expected body OK, got %q", body)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}
}

func TestHealth_DoesNotTouchCounter(t *testing.T) {
	c := &stubCounter{}
	serve(newStatus(c), "/health")
	if c.n != 0 {
		t.Fatalf("expected no increments, got %d", c.n)
	}
}

func TestStatus_RendersCountAndConnectedStatus(t *testing.T) {
	rec := serve(newStatus(&stubCounter{n: 41}), "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected text/html, got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<strong>Container ID:</strong> c0ffee123456",
		"<strong>Timestamp:</strong> 2026-10-17 09:30:00",
		"<strong>Visit Count:</strong> 42",
		"<strong>Network:</strong> Connected to frontend and backend",
		`<p class="store-ok"><strong>Store Status:</strong> ✓ Connected to Redis (backend network)</p>`,
		"<strong>Status:</strong> API is running!",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q\n%s", want, body)
		}
	}
}

func TestStatus_StoreFailureRendersDegradedPage(t *testing.T) {
	rec := serve(newStatus(&stubCounter{err: errors.New("dial tcp 10.0.0.5:6379: connect: connection refused")}), "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>Visit Count:</strong> "+model.UnavailableCount) {
		t.Fatalf("expected sentinel count in body\n%s", body)
	}
	if !strings.Contains(body, `<p class="store-failed"><strong>Store Status:</strong> ✗ Redis connection failed: dial tcp 10.0.0.5:6379: connect: connection refused</p>`) {
		t.Fatalf("expected failure status with error text\n%s", body)
	}
	if !strings.Contains(body, "API is running!") {
		t.Fatalf("expected running status\n%s", body)
	}
}

func TestStatus_SlowStoreIsBoundedByTimeout(t *testing.T) {
	h := newStatus(blockingCounter{})
	h.Timeout = 50 * time.Millisecond

	start := time.Now()
	rec := serve(h, "/")
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("request took %s, timeout not applied", elapsed)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "deadline exceeded") {
		t.Fatalf("expected deadline error in body\n%s", rec.Body.String())
	}
}

func TestStatus_AnyPathCountsAsVisit(t *testing.T) {
	c := &stubCounter{}
	h := newStatus(c)
	for _, p := range []string{"/", "/favicon.ico", "/health/", "/a/b?x=1"} {
		if rec := serve(h, p); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", p, rec.Code)
		}
	}
	if c.n != 4 {
		t.Fatalf("expected 4 visits, got %d", c.n)
	}
}

func TestStatus_EscapesStoreError(t *testing.T) {
	rec := serve(newStatus(&stubCounter{err: errors.New("<script>alert(1)</script>")}), "/")
	if strings.Contains(rec.Body.String(), "<script>") {
		t.Fatalf("error text must be escaped\n%s", rec.Body.String())
	}
}

func TestStatus_PublishesVisitOnSuccess(t *testing.T) {
	pub := &recordingPublisher{events: make(chan queue.VisitRecordedEvent, 1), err: errors.New("broker down")}
	h := newStatus(&stubCounter{})
	h.Events = pub

	if rec := serve(h, "/page"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even when publishing fails, got %d", rec.Code)
	}

	select {
	case ev := <-pub.events:
		if ev.Count != 1 || ev.Path != "/page" || ev.Hostname != "c0ffee123456" {
			t.Fatalf("unexpected event %+v", ev)
		}
		if _, err := time.Parse(time.RFC3339, ev.VisitedAt); err != nil {
			t.Fatalf("visited_at not RFC3339: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a visit event")
	}
}

func TestStatus_NoEventWhenStoreFails(t *testing.T) {
	pub := &recordingPublisher{events: make(chan queue.VisitRecordedEvent, 1)}
	h := newStatus(&stubCounter{err: errors.New("timeout")})
	h.Events = pub

	serve(h, "/")
	select {
	case ev := <-pub.events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

type brokenRenderer struct{}

func (brokenRenderer) Render(io.Writer, string, interface{}, echo.Context) error {
	return errors.New("template exploded")
}

func TestStatus_RenderFailureStillReturns200(t *testing.T) {
	e := echo.New()
	e.Renderer = brokenRenderer{}
	e.GET("/*", newStatus(&stubCounter{}).Status)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Visit Count: 1") {
		t.Fatalf("expected fallback page\n%s", rec.Body.String())
	}
}
