// Package healthcheck probes the gateway's backing dependencies (postgres,
// redis) on a fixed interval and caches the results, so the health endpoint
// answers from memory instead of fanning out on every probe.
package healthcheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger checks one dependency within the given context deadline.
type Pinger func(ctx context.Context) error

type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_check"`
	Error     string    `json:"error,omitempty"`
}

type Checker struct {
	mu       sync.RWMutex
	pingers  map[string]Pinger
	statuses map[string]*Status

	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	running  bool
}

type Config struct {
	Interval time.Duration // how often to probe (default: 10s)
	Timeout  time.Duration // per-probe timeout (default: 5s)
}

func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Checker{
		pingers:  make(map[string]Pinger),
		statuses: make(map[string]*Status),
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Register adds a dependency to probe. Dependencies start out healthy until
// the first probe says otherwise.
func (c *Checker) Register(name string, pinger Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pingers[name] = pinger
	c.statuses[name] = &Status{
		Name:      name,
		Healthy:   true,
		LastCheck: time.Now(),
	}
}

// Start begins periodic probing, with an immediate first pass.
func (c *Checker) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.checkAll()

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.checkAll()
			case <-c.stopChan:
				return
			}
		}
	}()
}

func (c *Checker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		close(c.stopChan)
		c.running = false
	}
}

func (c *Checker) checkAll() {
	c.mu.RLock()
	names := make([]string, 0, len(c.pingers))
	for name := range c.pingers {
		names = append(names, name)
	}
	c.mu.RUnlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			c.check(n)
		}(name)
	}
	wg.Wait()
}

func (c *Checker) check(name string) {
	c.mu.RLock()
	pinger := c.pingers[name]
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := pinger(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.statuses[name]
	status.LastCheck = time.Now()
	if err != nil {
		if status.Healthy {
			c.logger.Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		}
		status.Healthy = false
		status.Error = err.Error()
		return
	}

	status.Healthy = true
	status.Error = ""
}

// Snapshot returns a copy of the latest status for every dependency.
func (c *Checker) Snapshot() map[string]Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Status, len(c.statuses))
	for name, status := range c.statuses {
		out[name] = *status
	}
	return out
}

// Healthy reports whether every dependency passed its last probe.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, status := range c.statuses {
		if !status.Healthy {
			return false
		}
	}
	return true
}
