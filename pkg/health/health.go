// Package health probes the searcher's dependencies and serves the result
// as liveness and readiness endpoints. The service is not ready until its
// index has been loaded or rebuilt.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Probe reports a dependency as healthy by returning nil.
type Probe func(ctx context.Context) error

// ComponentHealth is one probe's outcome.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

// Report aggregates every probe. Status is the worst component status.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

type component struct {
	probe    Probe
	critical bool
}

// Checker runs registered probes concurrently, each under its own timeout.
type Checker struct {
	mu         sync.RWMutex
	components map[string]component
	timeout    time.Duration
	started    time.Time
	logger     *slog.Logger
}

// NewChecker returns a Checker whose probes each get timeout to answer.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		components: make(map[string]component),
		timeout:    timeout,
		started:    time.Now(),
		logger:     slog.Default().With("component", "health"),
	}
}

// Register adds or replaces a probe. A failing critical probe takes the
// report down; any other failing probe only degrades it.
func (c *Checker) Register(name string, critical bool, probe Probe) {
	c.mu.Lock()
	c.components[name] = component{probe: probe, critical: critical}
	c.mu.Unlock()
}

// Ready adapts a readiness flag into a probe failing with message until
// ready returns true.
func Ready(ready func() bool, message string) Probe {
	return func(context.Context) error {
		if ready() {
			return nil
		}
		return errors.New(message)
	}
}

// Run probes every component and aggregates the results.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	components := make(map[string]component, len(c.components))
	for name, comp := range c.components {
		components[name] = comp
	}
	c.mu.RUnlock()

	results := make(map[string]ComponentHealth, len(components))
	var mu sync.Mutex
	var g errgroup.Group
	for name, comp := range components {
		g.Go(func() error {
			h := c.probe(ctx, comp)
			mu.Lock()
			results[name] = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusUp, Components: results, CheckedAt: time.Now().UTC()}
	for name, h := range results {
		switch h.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		default:
			continue
		}
		c.logger.Debug("component unhealthy", "name", name, "status", h.Status, "message", h.Message)
	}
	return report
}

func (c *Checker) probe(ctx context.Context, comp component) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	err := comp.probe(ctx)
	h := ComponentHealth{Status: StatusUp, Latency: time.Since(start).Round(time.Microsecond).String()}
	if err != nil {
		h.Status = StatusDegraded
		if comp.critical {
			h.Status = StatusDown
		}
		h.Message = err.Error()
	}
	return h
}

// LiveHandler answers 200 while the process is serving at all.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 503 while the report is down. A degraded report is
// still ready.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
