// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plugin

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/forgemind/forgemind-tui/internal/backend"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// DefaultInterval is the periodic status check cadence.
	DefaultInterval = 2 * time.Minute

	// DefaultRefreshInterval is the minimum gap between manual refreshes.
	DefaultRefreshInterval = time.Second

	// DefaultFetchTimeout bounds a single status request.
	DefaultFetchTimeout = 15 * time.Second
)

// Fetcher asks the backend for the plugin status of a user.
type Fetcher interface {
	PluginStatus(ctx context.Context, userID string) (*backend.PluginStatusResponse, error)
}

// Update is one delivered status.
type Update struct {
	UserID string
	Status Status
	Err    error
	// Manual is true for updates triggered by Refresh.
	Manual bool
}

// Check performs a single status fetch. A failure yields an Unknown status
// together with the error.
func Check(ctx context.Context, f Fetcher, userID string, now func() time.Time) (Status, error) {
	resp, err := f.PluginStatus(ctx, userID)
	if err != nil {
		return Unknown(now()), err
	}
	return Derive(*resp, now()), nil
}

// =============================================================================
// POLLER
// =============================================================================

// Poller checks the plugin status for one signed-in user at a time.
type Poller struct {
	fetcher  Fetcher
	onUpdate func(Update)
	interval time.Duration
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	userID  string
	cancel  context.CancelFunc
	refresh chan struct{}
	wg      sync.WaitGroup
}

// NewPoller creates a stopped poller. onUpdate is called from the polling
// goroutine.
func NewPoller(f Fetcher, interval time.Duration, onUpdate func(Update)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  f,
		onUpdate: onUpdate,
		interval: interval,
		timeout:  DefaultFetchTimeout,
		limiter:  rate.NewLimiter(rate.Every(DefaultRefreshInterval), 1),
		logger:   log.Default(),
		now:      time.Now,
	}
}

// WithRefreshInterval sets the minimum gap between manual refreshes.
func (p *Poller) WithRefreshInterval(d time.Duration) *Poller {
	if d > 0 {
		p.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
	return p
}

// WithTimeout bounds each fetch.
func (p *Poller) WithTimeout(d time.Duration) *Poller {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// WithLogger routes poller logging to l.
func (p *Poller) WithLogger(l *log.Logger) *Poller {
	if l != nil {
		p.logger = l
	}
	return p
}

// Interval returns the polling cadence.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins polling for userID, replacing any previous user. The first
// fetch happens immediately. An empty userID only stops the poller.
func (p *Poller) Start(ctx context.Context, userID string) {
	p.Stop()
	if userID == "" {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	refresh := make(chan struct{}, 1)

	p.mu.Lock()
	p.userID = userID
	p.cancel = cancel
	p.refresh = refresh
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx, userID, refresh)
}

// Stop cancels polling without waiting for an in-flight fetch; its result
// is dropped. It is safe to call from inside onUpdate's consumer.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.refresh = nil
	p.userID = ""
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close stops polling and waits for the loop to exit.
func (p *Poller) Close() {
	p.Stop()
	p.wg.Wait()
}

// Running reports whether a user is being polled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// UserID returns the identity being polled.
func (p *Poller) UserID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userID
}

// Refresh requests an out-of-cycle fetch. It returns false when the poller
// is stopped or the request came too soon after the previous one.
func (p *Poller) Refresh() bool {
	p.mu.Lock()
	refresh := p.refresh
	p.mu.Unlock()

	if refresh == nil || !p.limiter.Allow() {
		return false
	}
	select {
	case refresh <- struct{}{}:
	default:
	}
	return true
}

func (p *Poller) run(ctx context.Context, userID string, refresh <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx, userID, false)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetch(ctx, userID, false)
		case <-refresh:
			p.fetch(ctx, userID, true)
		}
	}
}

func (p *Poller) fetch(ctx context.Context, userID string, manual bool) {
	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	status, err := Check(fctx, p.fetcher, userID, p.now)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Printf("plugin: status check failed: %v", err)
	}
	if p.onUpdate != nil {
		p.onUpdate(Update{UserID: userID, Status: status, Err: err, Manual: manual})
	}
}
