package tracker

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foodiehq/storefront/client"
	"github.com/foodiehq/storefront/models"
)

// orderCell records every update the poller delivers, newest last.
type orderCell struct {
	mu       sync.Mutex
	statuses []models.OrderStatus
}

func (c *orderCell) record(order *models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, order.Status)
}

func (c *orderCell) latest() models.OrderStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.statuses) == 0 {
		return ""
	}
	return c.statuses[len(c.statuses)-1]
}

func (c *orderCell) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.statuses)
}

func TestPollerDeliversLatestStatus(t *testing.T) {
	backend := newFakeBackend()
	backend.put(models.Order{ID: remoteID, OrderNumber: "ORDPOLL1", Status: models.StatusConfirmed})
	srv := httptest.NewServer(backend)
	defer srv.Close()

	fetcher := NewFetcher(client.NewOrderAPI(srv.URL, "token"), newLocalRepo(t))

	cell := &orderCell{}
	poller := NewPoller(fetcher, remoteID, cell.record)
	poller.SetInterval(10 * time.Millisecond)
	poller.Start(context.Background())
	defer poller.Stop()

	assert.Eventually(t, func() bool {
		return cell.latest() == models.StatusConfirmed
	}, time.Second, 5*time.Millisecond)

	// The kitchen moves the order along; the next tick must pick it up.
	backend.put(models.Order{ID: remoteID, OrderNumber: "ORDPOLL1", Status: models.StatusOutForDelivery})

	assert.Eventually(t, func() bool {
		return cell.latest() == models.StatusOutForDelivery
	}, time.Second, 5*time.Millisecond)
}

func TestPollerStopEndsPolling(t *testing.T) {
	backend := newFakeBackend()
	backend.put(models.Order{ID: remoteID, OrderNumber: "ORDPOLL2", Status: models.StatusPending})
	srv := httptest.NewServer(backend)
	defer srv.Close()

	fetcher := NewFetcher(client.NewOrderAPI(srv.URL, "token"), newLocalRepo(t))

	cell := &orderCell{}
	poller := NewPoller(fetcher, remoteID, cell.record)
	poller.SetInterval(10 * time.Millisecond)
	poller.Start(context.Background())

	assert.Eventually(t, func() bool {
		return cell.count() > 0
	}, time.Second, 5*time.Millisecond)

	poller.Stop()
	poller.Stop() // idempotent

	// Give any in-flight tick time to drain, then confirm no further
	// requests or updates arrive.
	time.Sleep(30 * time.Millisecond)
	gets := backend.getCount()
	delivered := cell.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, gets, backend.getCount())
	assert.Equal(t, delivered, cell.count())
}

func TestPollerSwallowsFailedTicks(t *testing.T) {
	backend := newFakeBackend()
	backend.put(models.Order{ID: remoteID, OrderNumber: "ORDPOLL3", Status: models.StatusPreparing})
	srv := httptest.NewServer(backend)
	defer srv.Close()

	fetcher := NewFetcher(client.NewOrderAPI(srv.URL, "token"), newLocalRepo(t))

	cell := &orderCell{}
	poller := NewPoller(fetcher, remoteID, cell.record)
	poller.SetInterval(10 * time.Millisecond)
	poller.Start(context.Background())
	defer poller.Stop()

	assert.Eventually(t, func() bool {
		return cell.latest() == models.StatusPreparing
	}, time.Second, 5*time.Millisecond)

	// The backend hiccups for a while; the last known state stands.
	backend.mu.Lock()
	delete(backend.orders, remoteID)
	backend.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, models.StatusPreparing, cell.latest())

	// Recovery resumes normal delivery.
	backend.put(models.Order{ID: remoteID, OrderNumber: "ORDPOLL3", Status: models.StatusDelivered})
	assert.Eventually(t, func() bool {
		return cell.latest() == models.StatusDelivered
	}, time.Second, 5*time.Millisecond)
}

func TestPollerSkipsRemoteInLocalMode(t *testing.T) {
	backend := newFakeBackend()
	backend.unauthorized = true
	srv := httptest.NewServer(backend)
	defer srv.Close()

	local := newLocalRepo(t)
	ctx := context.Background()
	assert.NoError(t, local.Upsert(ctx, &models.Order{OrderNumber: "ORDPOLL4", Status: models.StatusPending}))

	fetcher := NewFetcher(client.NewOrderAPI(srv.URL, ""), local)
	_, err := fetcher.Fetch(ctx, "ORDPOLL4")
	assert.NoError(t, err)
	assert.True(t, fetcher.UsingLocal())

	gets := backend.getCount()

	cell := &orderCell{}
	poller := NewPoller(fetcher, "ORDPOLL4", cell.record)
	poller.SetInterval(10 * time.Millisecond)
	poller.Start(ctx)
	defer poller.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, gets, backend.getCount())
}
