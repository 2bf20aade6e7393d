// Package health aggregates dependency probes behind the liveness and
// readiness endpoints. Liveness only confirms the process is serving;
// readiness runs every registered check and reports the worst outcome.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// readyTimeout bounds how long a readiness probe may spend on its checks.
const readyTimeout = 5 * time.Second

// Status is the health state of a component or of the service overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// worse reports whether s outranks other in severity.
func (s Status) worse(other Status) bool {
	rank := map[Status]int{StatusUp: 0, StatusDegraded: 1, StatusDown: 2}
	return rank[s] > rank[other]
}

// Check probes a single dependency.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is the outcome of one check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report aggregates all component outcomes. Status is the worst component
// status observed.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// Checker runs registered checks concurrently.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Register adds a named check. Registering an existing name replaces it.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

type checkResult struct {
	name   string
	health ComponentHealth
}

// Run executes every registered check in parallel and aggregates the
// results.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(chan checkResult, len(checks))
	for name, check := range checks {
		go func(name string, check Check) {
			start := time.Now()
			health := check(ctx)
			health.Latency = time.Since(start).Round(time.Millisecond).String()
			results <- checkResult{name: name, health: health}
		}(name, check)
	}

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		CheckedAt:  time.Now().UTC(),
	}
	for range checks {
		r := <-results
		report.Components[r.name] = r.health
		if r.health.Status.worse(report.Status) {
			report.Status = r.health.Status
		}
	}
	return report
}

// LiveHandler answers liveness probes without touching any dependency.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]Status{"status": StatusUp})
	}
}

// ReadyHandler answers readiness probes by running all checks; anything but
// an all-up report yields 503 so the load balancer steers traffic away.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		report := c.Run(ctx)

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUp {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
