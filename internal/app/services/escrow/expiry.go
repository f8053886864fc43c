package escrow

import (
	"context"
	"sync"
	"time"

	"github.com/agrichain-io/token_layer/internal/app/domain/escrow"
	"github.com/agrichain-io/token_layer/internal/app/metrics"
	"github.com/agrichain-io/token_layer/internal/app/storage"
	"github.com/agrichain-io/token_layer/internal/app/system"
	"github.com/agrichain-io/token_layer/pkg/logger"
)

// ExpiryPoller watches open escrows and releases the ones whose deadline has
// lapsed. The release rule itself is data-driven (deadline compared against
// the current time inside Release); the poller only supplies the touch.
type ExpiryPoller struct {
	store    storage.EscrowStore
	service  *Service
	interval time.Duration
	log      *logger.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	nextAttempt map[string]time.Time
}

var _ system.Service = (*ExpiryPoller)(nil)

// NewExpiryPoller builds a poller over the escrow store and service.
func NewExpiryPoller(store storage.EscrowStore, service *Service, interval time.Duration, log *logger.Logger) *ExpiryPoller {
	if log == nil {
		log = logger.NewDefault("escrow-expiry")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpiryPoller{
		store:       store,
		service:     service,
		interval:    interval,
		log:         log,
		nextAttempt: make(map[string]time.Time),
	}
}

func (p *ExpiryPoller) Name() string { return "escrow-expiry" }

func (p *ExpiryPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.tick(runCtx)
			}
		}
	}()

	p.log.Info("escrow expiry poller started")
	return nil
}

func (p *ExpiryPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (p *ExpiryPoller) tick(ctx context.Context) {
	open, err := p.store.ListOpenEscrows(ctx)
	if err != nil {
		p.log.WithError(err).Warn("list open escrows failed")
		return
	}

	now := time.Now().UTC()
	for _, esc := range open {
		// disputes are settled by the admin, not the clock
		if esc.Status == escrow.StatusDisputed || esc.DepositAmount == 0 {
			continue
		}
		if !now.After(esc.Deadline) {
			continue
		}
		if !p.shouldAttempt(esc.ID, now) {
			continue
		}

		if _, err := p.service.Release(ctx, esc.ID, "", now); err != nil {
			p.log.WithError(err).Warnf("deadline release of escrow %s failed", esc.ID)
			p.scheduleNext(esc.ID)
			continue
		}
		metrics.RecordEscrowEvent("expired")
		p.log.Infof("escrow %s released after deadline", esc.ID)
		p.clearSchedule(esc.ID)
	}
}

func (p *ExpiryPoller) shouldAttempt(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, ok := p.nextAttempt[id]
	if !ok || now.After(next) {
		return true
	}
	return false
}

func (p *ExpiryPoller) scheduleNext(id string) {
	p.mu.Lock()
	p.nextAttempt[id] = time.Now().Add(p.interval * 4)
	p.mu.Unlock()
}

func (p *ExpiryPoller) clearSchedule(id string) {
	p.mu.Lock()
	delete(p.nextAttempt, id)
	p.mu.Unlock()
}
