package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/utils"
)

// DefaultPollInterval is the tracking view refresh interval.
const DefaultPollInterval = 4 * time.Second

// Poller re-fetches one order on a fixed interval while a tracking view
// is mounted and hands every successful result to OnUpdate. The most
// recently received response wins; a failed tick is swallowed and the
// last known state stands. Stop must be called on view teardown so no
// timer outlives the view.
type Poller struct {
	fetcher  *Fetcher
	orderID  string
	interval time.Duration
	onUpdate func(*models.Order)

	stopOnce sync.Once
	stopChan chan struct{}
}

func NewPoller(fetcher *Fetcher, orderID string, onUpdate func(*models.Order)) *Poller {
	return &Poller{
		fetcher:  fetcher,
		orderID:  orderID,
		interval: DefaultPollInterval,
		onUpdate: onUpdate,
		stopChan: make(chan struct{}),
	}
}

// SetInterval overrides the poll interval; it must be called before Start.
func (p *Poller) SetInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// Start launches the polling goroutine. The first fetch is issued
// immediately so the view is not blank for a full interval.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		p.tick(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.tick(ctx)
			case <-p.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the interval timer. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}

func (p *Poller) tick(ctx context.Context) {
	// In local-fallback mode there is no remote truth to refresh; the
	// cached record only changes through explicit writes.
	if p.fetcher.UsingLocal() {
		return
	}

	order, err := p.fetcher.Fetch(ctx, p.orderID)
	if err != nil {
		if utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("poll failed for order %s: %v", p.orderID, err)
		}
		return
	}

	select {
	case <-p.stopChan:
		// Torn down between fetch and delivery; drop the stale result.
		return
	default:
	}

	if p.onUpdate != nil {
		p.onUpdate(order)
	}
}
