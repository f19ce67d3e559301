// Package health reports readiness of the storage dependencies the account services use.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status values of a check.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// Result is the outcome of one check.
type Result struct {
	Name     string
	Status   string
	Error    string
	Duration time.Duration
}

// Report aggregates every check. Healthy is true only when all checks are up.
type Report struct {
	Healthy bool
	Results []Result
}

// Checker runs named checks concurrently, each bounded by a timeout.
type Checker struct {
	timeout time.Duration
	mu      sync.RWMutex
	checks  map[string]CheckFunc
}

// NewChecker returns a Checker. timeout <= 0 defaults to 2s.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{timeout: timeout, checks: make(map[string]CheckFunc)}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// Check runs every registered check and returns results sorted by name.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()

	results := make([]Result, 0, len(checks))
	var (
		wg  sync.WaitGroup
		rmu sync.Mutex
	)
	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			start := time.Now()
			err := fn(cctx)
			r := Result{Name: name, Status: StatusUp, Duration: time.Since(start)}
			if err != nil {
				r.Status = StatusDown
				r.Error = err.Error()
			}
			rmu.Lock()
			results = append(results, r)
			rmu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	report := Report{Healthy: true, Results: results}
	for _, r := range results {
		if r.Status != StatusUp {
			report.Healthy = false
		}
	}
	return report
}
