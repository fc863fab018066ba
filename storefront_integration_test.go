package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/foodiehq/storefront/admin"
	"github.com/foodiehq/storefront/checkout"
	"github.com/foodiehq/storefront/client"
	"github.com/foodiehq/storefront/mockapi"
	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/realtime"
	"github.com/foodiehq/storefront/repository"
	"github.com/foodiehq/storefront/tracker"
	"github.com/foodiehq/storefront/utils"
)

type testStack struct {
	srv     *httptest.Server
	backend *mockapi.Server
	baseURL string
	wsURL   string
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	backend, err := mockapi.NewServer(db)
	if err != nil {
		t.Fatalf("failed to set up mock backend: %v", err)
	}

	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)

	return &testStack{
		srv:     srv,
		backend: backend,
		baseURL: srv.URL + "/api",
		wsURL:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (ts *testStack) seed(t *testing.T, name, email, password, role string) string {
	t.Helper()
	id, err := ts.backend.SeedUser(name, email, password, role)
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return id
}

func (ts *testStack) login(t *testing.T, email, password string) (string, *models.User) {
	t.Helper()
	token, user, err := client.NewOrderAPI(ts.baseURL, "").Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("login failed for %s: %v", email, err)
	}
	return token, user
}

func newTestCache(t *testing.T) *repository.LocalOrderRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open cache db: %v", err)
	}
	repo, err := repository.NewLocalOrderRepository(db, "")
	if err != nil {
		t.Fatalf("failed to set up cache: %v", err)
	}
	return repo
}

func testCart() []models.CartItem {
	return []models.CartItem{
		{ItemID: "m1", Name: "Paneer Tikka", Price: 180, Quantity: 1, RestaurantID: "r1", RestaurantName: "D&G Restaurant"},
		{ItemID: "m2", Name: "Butter Naan", Price: 40, Quantity: 2, RestaurantID: "r1", RestaurantName: "D&G Restaurant"},
	}
}

func TestHealthAndLogin(t *testing.T) {
	ts := newTestStack(t)
	ts.seed(t, "Admin", "admin@example.com", "secret123", models.RoleAdmin)

	api := client.NewOrderAPI(ts.baseURL, "")
	assert.NoError(t, api.Health(context.Background()))

	_, _, err := api.Login(context.Background(), "admin@example.com", "wrong")
	assert.EqualError(t, err, "invalid email or password")

	token, user := ts.login(t, "admin@example.com", "secret123")
	assert.NotEmpty(t, token)
	assert.True(t, user.IsAdmin())
}

func TestGuestOrderFallsBackToCache(t *testing.T) {
	ts := newTestStack(t)
	cache := newTestCache(t)
	ctx := context.Background()

	// Order placement is open; point lookups are not. This is exactly
	// the guest experience: the order reaches the kitchen but tracking
	// has to come from the cache.
	guestAPI := client.NewOrderAPI(ts.baseURL, "")
	shop := checkout.NewService(guestAPI, cache, nil)

	order, err := shop.PlaceOrder(ctx, checkout.Request{Cart: testCart(), Address: "5 Lake View"})
	assert.NoError(t, err)
	assert.NotEmpty(t, order.ID)

	fetcher := tracker.NewFetcher(guestAPI, cache)
	tracked, err := fetcher.Fetch(ctx, order.Key())
	assert.NoError(t, err)
	assert.True(t, fetcher.UsingLocal())
	assert.Equal(t, order.OrderNumber, tracked.OrderNumber)
	assert.Equal(t, models.StatusPending, tracked.Status)
}

func TestCustomerTracksAndCancels(t *testing.T) {
	ts := newTestStack(t)
	ts.seed(t, "Ravi", "ravi@example.com", "secret123", models.RoleCustomer)
	token, user := ts.login(t, "ravi@example.com", "secret123")

	cache := newTestCache(t)
	ctx := context.Background()
	api := client.NewOrderAPI(ts.baseURL, token)
	shop := checkout.NewService(api, cache, user)

	order, err := shop.PlaceOrder(ctx, checkout.Request{Cart: testCart(), Address: "5 Lake View"})
	assert.NoError(t, err)

	fetcher := tracker.NewFetcher(api, newTestCache(t))
	tracked, err := fetcher.Fetch(ctx, order.ID)
	assert.NoError(t, err)
	assert.False(t, fetcher.UsingLocal())
	assert.Equal(t, models.StatusPending, tracked.Status)

	cancelled, err := fetcher.CancelOrder(ctx, tracked)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, models.RoleCustomer, cancelled.CancelledBy)
}

func TestCustomerCancelBlockedOncePreparing(t *testing.T) {
	ts := newTestStack(t)
	ts.seed(t, "Ravi", "ravi@example.com", "secret123", models.RoleCustomer)
	ts.seed(t, "Admin", "admin@example.com", "secret123", models.RoleAdmin)
	token, user := ts.login(t, "ravi@example.com", "secret123")
	adminToken, _ := ts.login(t, "admin@example.com", "secret123")

	ctx := context.Background()
	api := client.NewOrderAPI(ts.baseURL, token)
	shop := checkout.NewService(api, newTestCache(t), user)

	order, err := shop.PlaceOrder(ctx, checkout.Request{Cart: testCart(), Address: "5 Lake View"})
	assert.NoError(t, err)

	// The kitchen picks the order up.
	adminAPI := client.NewOrderAPI(ts.baseURL, adminToken)
	_, err = adminAPI.UpdateOrderStatus(ctx, order.ID, models.StatusPreparing, "", "")
	assert.NoError(t, err)

	fetcher := tracker.NewFetcher(api, newTestCache(t))
	tracked, err := fetcher.Fetch(ctx, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, tracked.Status)

	// The local guard fires first.
	_, err = fetcher.CancelOrder(ctx, tracked)
	assert.ErrorIs(t, err, tracker.ErrCannotCancel)

	// Forcing the request through anyway gets the server's message,
	// verbatim.
	_, err = api.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled, "", models.RoleCustomer)
	assert.EqualError(t, err, "a preparing order can no longer be cancelled")

	// And a customer can never advance a status.
	_, err = api.UpdateOrderStatus(ctx, order.ID, models.StatusDelivered, "", "")
	assert.EqualError(t, err, "you don't have permission to perform this action")
}

func TestCustomerCannotSeeOthersOrders(t *testing.T) {
	ts := newTestStack(t)
	ts.seed(t, "Ravi", "ravi@example.com", "secret123", models.RoleCustomer)
	ts.seed(t, "Mina", "mina@example.com", "secret123", models.RoleCustomer)
	raviToken, raviUser := ts.login(t, "ravi@example.com", "secret123")
	minaToken, _ := ts.login(t, "mina@example.com", "secret123")

	ctx := context.Background()
	raviAPI := client.NewOrderAPI(ts.baseURL, raviToken)
	shop := checkout.NewService(raviAPI, newTestCache(t), raviUser)

	order, err := shop.PlaceOrder(ctx, checkout.Request{Cart: testCart(), Address: "5 Lake View"})
	assert.NoError(t, err)

	minaAPI := client.NewOrderAPI(ts.baseURL, minaToken)
	_, err = minaAPI.GetOrder(ctx, order.ID)
	assert.True(t, client.IsNotFound(err))

	orders, err := minaAPI.ListOrders(ctx)
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestAdminConsoleFlow(t *testing.T) {
	ts := newTestStack(t)
	ts.seed(t, "Admin", "admin@example.com", "secret123", models.RoleAdmin)
	adminToken, _ := ts.login(t, "admin@example.com", "secret123")

	ctx := context.Background()
	cache := newTestCache(t)

	// A guest order placed through the storefront.
	guestShop := checkout.NewService(client.NewOrderAPI(ts.baseURL, ""), cache, nil)
	order, err := guestShop.PlaceOrder(ctx, checkout.Request{Cart: testCart(), TableNumber: "3", DineInName: "Table 3"})
	assert.NoError(t, err)

	console := admin.NewService(client.NewOrderAPI(ts.baseURL, adminToken), cache)

	orders, err := console.ListOrders(ctx)
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, order.OrderNumber, orders[0].OrderNumber)

	// Walk the order through the kitchen.
	for _, status := range []models.OrderStatus{
		models.StatusConfirmed,
		models.StatusPreparing,
		models.StatusOutForDelivery,
		models.StatusDelivered,
	} {
		updated, err := console.UpdateStatus(ctx, order.ID, status, "")
		assert.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	// The admin change is mirrored into the guest-visible cache.
	cached, err := cache.Get(ctx, order.OrderNumber)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, cached.Status)

	_, err = console.UpdatePaymentStatus(ctx, order.ID, models.PaymentPaid)
	assert.NoError(t, err)

	// Cancelling without a reason never leaves the process.
	_, err = console.UpdateStatus(ctx, order.ID, models.StatusCancelled, " ")
	assert.ErrorIs(t, err, admin.ErrReasonRequired)

	count, err := console.ClearAll(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	orders, err = console.ListOrders(ctx)
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestAdminCancelRequiresReasonServerSide(t *testing.T) {
	ts := newTestStack(t)
	ts.seed(t, "Admin", "admin@example.com", "secret123", models.RoleAdmin)
	adminToken, _ := ts.login(t, "admin@example.com", "secret123")

	ctx := context.Background()
	guestShop := checkout.NewService(client.NewOrderAPI(ts.baseURL, ""), newTestCache(t), nil)
	order, err := guestShop.PlaceOrder(ctx, checkout.Request{Cart: testCart(), Address: "5 Lake View"})
	assert.NoError(t, err)

	api := client.NewOrderAPI(ts.baseURL, adminToken)
	_, err = api.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled, "", models.RoleAdmin)
	assert.EqualError(t, err, "a cancellation reason is required")

	cancelled, err := api.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled, "kitchen closed", models.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, "kitchen closed", cancelled.CancellationReason)
	assert.Equal(t, models.RoleAdmin, cancelled.CancelledBy)
}

type collectingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *collectingNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *collectingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func TestPushChannelAdvisesTracking(t *testing.T) {
	ts := newTestStack(t)
	ts.seed(t, "Admin", "admin@example.com", "secret123", models.RoleAdmin)
	adminToken, adminUser := ts.login(t, "admin@example.com", "secret123")

	ctx := context.Background()
	notifier := &collectingNotifier{}
	listener, err := realtime.Dial(ctx, ts.wsURL, adminUser, notifier)
	assert.NoError(t, err)
	defer listener.Close()

	var mu sync.Mutex
	var advised []models.Order
	listener.OnOrderUpdate = func(order models.Order) {
		mu.Lock()
		advised = append(advised, order)
		mu.Unlock()
	}

	guestShop := checkout.NewService(client.NewOrderAPI(ts.baseURL, ""), newTestCache(t), nil)
	order, err := guestShop.PlaceOrder(ctx, checkout.Request{Cart: testCart(), Address: "5 Lake View"})
	assert.NoError(t, err)

	adminAPI := client.NewOrderAPI(ts.baseURL, adminToken)
	_, err = adminAPI.UpdateOrderStatus(ctx, order.ID, models.StatusConfirmed, "", "")
	assert.NoError(t, err)

	// Create and update both broadcast.
	assert.Eventually(t, func() bool {
		return notifier.count() == 2
	}, time.Second, 5*time.Millisecond)

	// The event is advisory: the pull path remains the source of truth,
	// so re-fetching after the advice shows the confirmed state.
	mu.Lock()
	last := advised[len(advised)-1]
	mu.Unlock()
	assert.Equal(t, order.OrderNumber, last.OrderNumber)

	fetched, err := adminAPI.GetOrder(ctx, order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, fetched.Status)
}
