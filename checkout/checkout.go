package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foodiehq/storefront/client"
	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/repository"
	"github.com/foodiehq/storefront/utils"
)

// ErrEmptyCart blocks checkout with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

const defaultRestaurantName = "D&G Restaurant"

// Service turns a cart into a placed order. The remote API is the
// primary path; when it is unreachable or rejects a guest, the order is
// kept in the local cache alone and tracked by its order number.
type Service struct {
	api   *client.OrderAPI
	local repository.OrderRepository
	user  *models.User
}

func NewService(api *client.OrderAPI, local repository.OrderRepository, user *models.User) *Service {
	return &Service{api: api, local: local, user: user}
}

// Request carries everything checkout needs from the cart view.
type Request struct {
	Cart          []models.CartItem
	Coupon        models.Coupon
	TableNumber   string
	DineInName    string
	PaymentMethod string
	Notes         string
	Address       string
	Phone         string
}

// PlaceOrder builds the normalized order, submits it, and mirrors it
// into the local cache. Orders that never reach the backend survive as
// guest orders under their generated order number.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*models.Order, error) {
	if len(req.Cart) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := models.CartSubtotal(req.Cart)
	discount := req.Coupon.Discount(subtotal)
	fee := models.DeliveryFeeFor(req.TableNumber)
	order := &models.Order{
		OrderNumber:    models.GenerateOrderNumber(),
		UserID:         s.userID(),
		RestaurantID:   req.Cart[0].RestaurantID,
		RestaurantName: restaurantName(req.Cart),
		Items:          orderItems(req.Cart),
		Subtotal:       subtotal,
		Discount:       discount,
		CouponCode:     req.Coupon.Code,
		DeliveryFee:    fee,
		Total:          subtotal - discount + fee,
		Status:         models.StatusPending,
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  models.PaymentPending,
		CustomerName:   s.customerName(req.DineInName),
		CustomerPhone:  req.Phone,
		Notes:          req.Notes,
		OrderedAt:      time.Now(),
		CreatedAt:      time.Now(),
	}

	if req.TableNumber != "" {
		order.OrderType = models.OrderTypeDineIn
		order.TableNumber = req.TableNumber
		order.DeliveryAddress = fmt.Sprintf("Dine-in at Table %s", req.TableNumber)
	} else {
		order.OrderType = models.OrderTypeDelivery
		order.DeliveryAddress = req.Address
	}

	created, err := s.api.CreateOrder(ctx, order)
	if err != nil {
		// Guest continuity: keep the order locally under its order
		// number so tracking still works without the backend.
		if utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("checkout: remote create failed, storing order %s locally: %v", order.OrderNumber, err)
		}
		if s.local == nil {
			return nil, err
		}
		if localErr := s.local.Upsert(ctx, order); localErr != nil {
			return nil, err
		}
		return order, nil
	}

	if s.local != nil {
		if err := s.local.Upsert(ctx, created); err != nil && utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("checkout: cache mirror failed for order %s: %v", created.Key(), err)
		}
	}
	return created, nil
}

// ActiveOrder returns the most recent order that still needs attention,
// for the floating tracking bar. The local cache is consulted first
// (guest and dine-in orders), then the remote list filtered to the
// session user. Nil means nothing is in flight.
func (s *Service) ActiveOrder(ctx context.Context) (*models.Order, error) {
	if s.local != nil {
		if orders, err := s.local.List(ctx); err == nil {
			for i := len(orders) - 1; i >= 0; i-- {
				if orders[i].Status.IsActive() {
					return &orders[i], nil
				}
			}
		}
	}

	userID := s.userID()
	if userID == "" || userID == "guest" {
		return nil, nil
	}

	orders, err := s.api.ListOrders(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}

	var newest *models.Order
	for i := range orders {
		o := &orders[i]
		if o.UserID != userID || !o.Status.IsActive() {
			continue
		}
		if newest == nil || o.OrderedAt.After(newest.OrderedAt) {
			newest = o
		}
	}
	return newest, nil
}

func (s *Service) userID() string {
	if s.user != nil {
		if id := s.user.ResolvedID(); id != "" {
			return id
		}
	}
	return "guest"
}

func (s *Service) customerName(dineInName string) string {
	if s.user != nil && s.user.Name != "" {
		return s.user.Name
	}
	if dineInName != "" {
		return dineInName
	}
	return "Guest"
}

func restaurantName(cart []models.CartItem) string {
	if cart[0].RestaurantName != "" {
		return cart[0].RestaurantName
	}
	return defaultRestaurantName
}

func orderItems(cart []models.CartItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(cart))
	for _, it := range cart {
		items = append(items, models.OrderItem{
			ItemID:          it.ItemID,
			Name:            it.Name,
			Price:           it.Price,
			Quantity:        it.Quantity,
			Image:           it.Image,
			SelectedPortion: it.SelectedPortion,
		})
	}
	return items
}
