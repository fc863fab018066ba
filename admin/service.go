package admin

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/foodiehq/storefront/client"
	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/repository"
	"github.com/foodiehq/storefront/utils"
)

// ErrReasonRequired blocks an admin cancellation with no reason before
// any request leaves the process.
var ErrReasonRequired = errors.New("a cancellation reason is required")

// Service is the admin console's order backend: remote-first with the
// local cache as offline mirror so a guest-path viewer sees admin
// changes on its next read.
type Service struct {
	api   *client.OrderAPI
	local repository.OrderRepository
}

func NewService(api *client.OrderAPI, local repository.OrderRepository) *Service {
	return &Service{api: api, local: local}
}

// ListOrders merges the remote and local order lists, newest first.
// Remote records win on conflict: the backend is authoritative, the
// cache only fills in guest orders that never reached it.
func (s *Service) ListOrders(ctx context.Context) ([]models.Order, error) {
	var remote []models.Order
	if list, err := s.api.ListOrders(ctx); err != nil {
		if utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("admin: remote order list unavailable: %v", err)
		}
	} else {
		remote = list
	}

	var local []models.Order
	if s.local != nil {
		if list, err := s.local.List(ctx); err == nil {
			local = list
		}
	}

	merged := make(map[string]models.Order, len(remote)+len(local))
	keys := make([]string, 0, len(remote)+len(local))
	add := func(o models.Order) {
		key := o.MergeKey()
		if key == "" {
			return
		}
		if _, seen := merged[key]; !seen {
			keys = append(keys, key)
		}
		merged[key] = o
	}
	for _, o := range local {
		add(o)
	}
	for _, o := range remote {
		add(o)
	}

	orders := make([]models.Order, 0, len(keys))
	for _, key := range keys {
		orders = append(orders, merged[key])
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].OrderedAt.After(orders[j].OrderedAt)
	})
	return orders, nil
}

// UpdateStatus moves an order to any defined status. Cancelling
// requires a non-empty reason, validated before any request is issued;
// the reason is attached to the record and shown to the customer. A
// successful transition is mirrored into the local cache entry for the
// order, if one exists.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if status == models.StatusCancelled && reason == "" {
		return nil, ErrReasonRequired
	}
	if status != models.StatusCancelled {
		reason = ""
	}

	cancelledBy := ""
	if status == models.StatusCancelled {
		cancelledBy = models.RoleAdmin
	}

	updated, err := s.api.UpdateOrderStatus(ctx, id, status, reason, cancelledBy)
	if err != nil {
		// Offline fallback: patch the cached entry so dine-in screens
		// keep working while the backend is unreachable.
		if local, ok := s.patchLocal(ctx, id, status, reason, cancelledBy); ok {
			if utils.InfoLogger != nil {
				utils.InfoLogger.Printf("admin: order %s updated in local cache only", id)
			}
			return local, nil
		}
		return nil, err
	}

	s.mirror(ctx, updated)
	return updated, nil
}

// UpdatePaymentStatus patches the payment status field only.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id, paymentStatus string) (*models.Order, error) {
	updated, err := s.api.UpdatePaymentStatus(ctx, id, paymentStatus)
	if err != nil {
		if s.local != nil {
			if cached, localErr := s.local.Get(ctx, id); localErr == nil {
				cached.PaymentStatus = paymentStatus
				if upErr := s.local.Upsert(ctx, cached); upErr == nil {
					return cached, nil
				}
			}
		}
		return nil, err
	}

	s.mirror(ctx, updated)
	return updated, nil
}

// ClearAll bulk-deletes every order remotely and clears the local
// mirror. When the backend is unreachable only the mirror is cleared
// and the reported count is zero.
func (s *Service) ClearAll(ctx context.Context) (int64, error) {
	count, err := s.api.ClearOrders(ctx)
	if err != nil {
		if utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("admin: remote clear failed, clearing local cache only: %v", err)
		}
		count = 0
	}
	if s.local != nil {
		if clearErr := s.local.Clear(ctx); clearErr != nil {
			return count, clearErr
		}
	}
	if err != nil && s.local == nil {
		return 0, err
	}
	return count, nil
}

// mirror writes an authoritative remote record over the cached entry,
// if the order is cached at all.
func (s *Service) mirror(ctx context.Context, order *models.Order) {
	if s.local == nil || order == nil {
		return
	}
	if _, err := s.local.Get(ctx, order.Key()); err != nil {
		if order.OrderNumber == "" {
			return
		}
		if _, err := s.local.Get(ctx, order.OrderNumber); err != nil {
			return
		}
	}
	if err := s.local.Upsert(ctx, order); err != nil && utils.ErrorLogger != nil {
		utils.ErrorLogger.Printf("admin: cache mirror failed for order %s: %v", order.Key(), err)
	}
}

// patchLocal applies a status change to the cached entry alone.
func (s *Service) patchLocal(ctx context.Context, id string, status models.OrderStatus, reason, cancelledBy string) (*models.Order, bool) {
	if s.local == nil {
		return nil, false
	}
	cached, err := s.local.Get(ctx, id)
	if err != nil {
		return nil, false
	}
	cached.Status = status
	cached.CancellationReason = reason
	cached.CancelledBy = cancelledBy
	if err := s.local.Upsert(ctx, cached); err != nil {
		return nil, false
	}
	return cached, true
}
