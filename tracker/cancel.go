package tracker

import (
	"context"
	"errors"

	"github.com/foodiehq/storefront/models"
)

// ErrCannotCancel blocks a customer cancellation once the kitchen has
// started on the order.
var ErrCannotCancel = errors.New("order can no longer be cancelled")

// CancelOrder is the customer-initiated cancellation: allowed only
// while the order is pending or confirmed, no reason required. The
// status is never mutated optimistically; on success the order is
// re-fetched so the view shows the terminal cancelled branch, and on
// rejection the server's message is returned verbatim with the
// displayed state untouched.
func (f *Fetcher) CancelOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order == nil || !models.CanCancel(order.Status) {
		return nil, ErrCannotCancel
	}

	if _, err := f.remote.UpdateOrderStatus(ctx, order.Key(), models.StatusCancelled, "", models.RoleCustomer); err != nil {
		return nil, err
	}

	return f.Fetch(ctx, order.Key())
}
