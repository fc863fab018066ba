package repository

import (
	"context"
	"errors"

	"github.com/foodiehq/storefront/models"
)

// ErrOrderNotFound is returned when an identifier resolves through
// neither path.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository is the capability interface over an order store.
// The remote implementation is authoritative; the local one mirrors
// orders for guest continuity and offline fallback.
type OrderRepository interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	Upsert(ctx context.Context, order *models.Order) error
	Clear(ctx context.Context) error
}
