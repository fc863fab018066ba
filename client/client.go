package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/foodiehq/storefront/models"
)

// APIError is a non-2xx response from the backend. The server-provided
// message is kept verbatim so it can be surfaced to the user unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 rejection. Guest sessions
// hit this path on every point lookup, which is what triggers the local
// cache fallback.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 rejection.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// OrderAPI talks to the remote order endpoints. No client-side timeout
// is set beyond the http.Client default; callers cancel via context.
type OrderAPI struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewOrderAPI(baseURL, token string) *OrderAPI {
	return &OrderAPI{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: http.DefaultClient,
	}
}

// envelope is the backend response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (a *OrderAPI) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if len(raw) > 0 {
		// Tolerate non-JSON error bodies from proxies
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// GetOrder performs a point lookup by backend id.
func (a *OrderAPI) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := a.do(ctx, http.MethodGet, "/orders/"+id, nil, &order); err != nil {
		return nil, err
	}
	order.Normalize()
	return &order, nil
}

// ListOrders returns all orders visible to the session.
func (a *OrderAPI) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := a.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Normalize()
	}
	return orders, nil
}

// CreateOrder submits a new order and returns the stored record with its
// backend-assigned id.
func (a *OrderAPI) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	var created models.Order
	if err := a.do(ctx, http.MethodPost, "/orders", order, &created); err != nil {
		return nil, err
	}
	created.Normalize()
	return &created, nil
}

// statusUpdate is the partial PUT body for status transitions.
type statusUpdate struct {
	Status             models.OrderStatus `json:"status"`
	CancellationReason string             `json:"cancellationReason,omitempty"`
	CancelledBy        string             `json:"cancelledBy,omitempty"`
}

// UpdateOrderStatus moves an order to a new status. reason and
// cancelledBy only travel on the cancel branch.
func (a *OrderAPI) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, reason, cancelledBy string) (*models.Order, error) {
	var updated models.Order
	body := statusUpdate{Status: status, CancellationReason: reason, CancelledBy: cancelledBy}
	if err := a.do(ctx, http.MethodPut, "/orders/"+id, body, &updated); err != nil {
		return nil, err
	}
	updated.Normalize()
	return &updated, nil
}

// UpdatePaymentStatus patches only the payment status field.
func (a *OrderAPI) UpdatePaymentStatus(ctx context.Context, id, paymentStatus string) (*models.Order, error) {
	var updated models.Order
	body := map[string]string{"paymentStatus": paymentStatus}
	if err := a.do(ctx, http.MethodPut, "/orders/"+id, body, &updated); err != nil {
		return nil, err
	}
	updated.Normalize()
	return &updated, nil
}

// ClearOrders bulk-deletes every order (admin only) and returns the
// number of removed records.
func (a *OrderAPI) ClearOrders(ctx context.Context) (int64, error) {
	var result struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	if err := a.do(ctx, http.MethodDelete, "/orders", nil, &result); err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Health probes the backend.
func (a *OrderAPI) Health(ctx context.Context) error {
	return a.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Login authenticates against the backend and returns a session token.
func (a *OrderAPI) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var result struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/auth/login", body, &result); err != nil {
		return "", nil, err
	}
	return result.Token, &result.User, nil
}
