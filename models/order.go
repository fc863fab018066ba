package models

import (
	"time"
)

// Order types
const (
	OrderTypeDelivery = "delivery"
	OrderTypeDineIn   = "dine-in"
)

// Payment statuses carried on the order record.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Order is the normalized order record. The backend keys records by a
// 24-hex identifier (`_id`); older records and some list endpoints use
// `id`, and guest orders only carry an order number. Normalize resolves
// that once at the boundary so the rest of the code never re-checks.
type Order struct {
	ID          string `json:"_id,omitempty"`
	LegacyID    string `json:"id,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
	UserID      string `json:"userId,omitempty"`

	RestaurantID   string      `json:"restaurantId,omitempty"`
	RestaurantName string      `json:"restaurantName,omitempty"`
	Items          []OrderItem `json:"items"`

	Subtotal    float64 `json:"subtotal,omitempty"`
	Discount    float64 `json:"discount,omitempty"`
	CouponCode  string  `json:"couponCode,omitempty"`
	DeliveryFee float64 `json:"deliveryFee,omitempty"`
	Total       float64 `json:"total"`

	Status        OrderStatus `json:"status"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	PaymentStatus string      `json:"paymentStatus,omitempty"`

	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`

	DeliveryAddress string `json:"deliveryAddress,omitempty"`
	OrderType       string `json:"orderType,omitempty"`
	TableNumber     string `json:"tableNumber,omitempty"`
	Notes           string `json:"notes,omitempty"`

	CancelledBy        string `json:"cancelledBy,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`

	OrderedAt time.Time `json:"orderedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ItemID          string  `json:"itemId,omitempty"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Image           string  `json:"image,omitempty"`
	SelectedPortion string  `json:"selectedPortion,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

// LineTotal returns price x quantity for the item.
func (i OrderItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Normalize canonicalizes identifiers and timestamps on a record freshly
// ingested from the remote API or the local cache. It runs exactly once
// at the system boundary.
func (o *Order) Normalize() {
	if o.ID == "" && o.LegacyID != "" {
		o.ID = o.LegacyID
	}
	if o.OrderedAt.IsZero() {
		o.OrderedAt = o.CreatedAt
	}
}

// Key returns the identifier an order is tracked by: the backend id when
// one exists, otherwise the order number.
func (o *Order) Key() string {
	if o.ID != "" {
		return o.ID
	}
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.LegacyID
}

// MergeKey returns the key used when merging local and remote order
// lists. The order number is preferred because it survives the
// local-to-remote transition; the backend id does not exist on records
// that were only ever stored locally.
func (o *Order) MergeKey() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.Key()
}

// Matches reports whether id refers to this order by any of its
// identifiers.
func (o *Order) Matches(id string) bool {
	if id == "" {
		return false
	}
	return o.ID == id || o.LegacyID == id || o.OrderNumber == id
}

// IsDineIn reports whether the order is bound to a table.
func (o *Order) IsDineIn() bool {
	return o.OrderType == OrderTypeDineIn
}
