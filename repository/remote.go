package repository

import (
	"context"

	"github.com/foodiehq/storefront/client"
	"github.com/foodiehq/storefront/models"
)

// RemoteOrderRepository adapts the API client to OrderRepository.
// Remote records are authoritative wherever both sources hold an order.
type RemoteOrderRepository struct {
	api *client.OrderAPI
}

func NewRemoteOrderRepository(api *client.OrderAPI) *RemoteOrderRepository {
	return &RemoteOrderRepository{api: api}
}

func (r *RemoteOrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	order, err := r.api.GetOrder(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *RemoteOrderRepository) List(ctx context.Context) ([]models.Order, error) {
	return r.api.ListOrders(ctx)
}

func (r *RemoteOrderRepository) Upsert(ctx context.Context, order *models.Order) error {
	created, err := r.api.CreateOrder(ctx, order)
	if err != nil {
		return err
	}
	*order = *created
	return nil
}

func (r *RemoteOrderRepository) Clear(ctx context.Context) error {
	_, err := r.api.ClearOrders(ctx)
	return err
}
