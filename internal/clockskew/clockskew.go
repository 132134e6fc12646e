// Package clockskew is an advisory preflight check: it queries a pool NTP
// server for the local clock's offset and logs a warning when the offset
// is large enough that nonce-timestamped controller request signatures
// could look replayed or stale to the server.
package clockskew

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

const (
	defaultPool      = "pool.ntp.org"
	defaultThreshold = 500 * time.Millisecond
	refreshInterval  = 1 * time.Hour
	queryTimeout     = 5 * time.Second
)

// Status is the outcome of the most recent check.
type Status struct {
	Offset    time.Duration
	Healthy   bool
	Error     string
	CheckedAt time.Time
}

// Checker holds the last observed offset. Checking is purely advisory: it
// never blocks or fails startup, only logs.
type Checker struct {
	mu        sync.RWMutex
	status    Status
	pool      string
	threshold time.Duration

	// CheckFunc overrides the NTP query for tests.
	CheckFunc func() Status
}

// New builds a Checker against the default NTP pool and drift threshold.
func New() *Checker {
	return &Checker{pool: defaultPool, threshold: defaultThreshold}
}

// Status returns the outcome of the most recent check.
func (c *Checker) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// CheckOnce queries the pool once, records the result, and logs a warning
// if the offset exceeds the threshold or the query fails outright.
func (c *Checker) CheckOnce(ctx context.Context) {
	var status Status
	if c.CheckFunc != nil {
		status = c.CheckFunc()
	} else {
		opts := ntp.QueryOptions{Timeout: queryTimeout}
		resp, err := ntp.QueryWithOptions(c.pool, opts)
		if err != nil {
			status = Status{Error: err.Error(), CheckedAt: time.Now()}
		} else {
			status = Status{
				Offset:    resp.ClockOffset,
				Healthy:   resp.ClockOffset.Abs() <= c.threshold,
				CheckedAt: time.Now(),
			}
		}
	}

	c.mu.Lock()
	c.status = status
	c.mu.Unlock()

	switch {
	case status.Error != "":
		slog.Warn("clockskew: ntp query failed, signing may be affected by undetected drift", "pool", c.pool, "err", status.Error)
	case !status.Healthy:
		slog.Warn("clockskew: local clock drift exceeds threshold",
			"pool", c.pool, "offset", status.Offset, "threshold", c.threshold)
	default:
		slog.Debug("clockskew: within threshold", "pool", c.pool, "offset", status.Offset)
	}
}

// Run performs an immediate check, then re-checks hourly until ctx is
// cancelled. Intended to run in its own goroutine for the lifetime of the
// run command.
func (c *Checker) Run(ctx context.Context) {
	c.CheckOnce(ctx)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckOnce(ctx)
		}
	}
}
