package mailbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Poller stands in for foreground-activation events: a headless service has
// no scene phases, so the mailbox is checked on an interval instead. The
// first check runs immediately on Start.
type Poller struct {
	interval time.Duration
	checkFn  func(context.Context)

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(interval time.Duration, checkFn func(context.Context)) (*Poller, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if checkFn == nil {
		return nil, errors.New("checkFn must not be nil")
	}
	return &Poller{
		interval: interval,
		checkFn:  checkFn,
		done:     make(chan struct{}),
	}, nil
}

func (p *Poller) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running.Store(true)

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.safeCheck(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.safeCheck(ctx)
			}
		}
	}()

	return true
}

func (p *Poller) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return false
	}

	p.cancel()
	<-p.done
	p.running.Store(false)
	return true
}

func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

func (p *Poller) safeCheck(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("mailbox check panic recovered", "panic", r)
		}
	}()
	p.checkFn(ctx)
}
