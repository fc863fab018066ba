package models

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// OrderStatus is the closed lifecycle enum for an order.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out-for-delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// StatusSteps is the ordered progress timeline shown to the customer.
// Cancelled is deliberately excluded: consumers must branch on IsCancelled
// before projecting a status onto the timeline.
var StatusSteps = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
}

// StepLabels maps each timeline step to its display label.
var StepLabels = map[OrderStatus]string{
	StatusPending:        "Order Placed",
	StatusConfirmed:      "Confirmed",
	StatusPreparing:      "Preparing",
	StatusOutForDelivery: "Out for Delivery",
	StatusDelivered:      "Delivered",
}

// StepIndex projects a status onto its position in StatusSteps.
// Unknown statuses fall back to step 0; callers must intercept the
// cancelled branch before calling this.
func StepIndex(s OrderStatus) int {
	for i, step := range StatusSteps {
		if step == s {
			return i
		}
	}
	return 0
}

// IsCancelled reports whether the order sits on the terminal cancel branch.
func (s OrderStatus) IsCancelled() bool {
	return s == StatusCancelled
}

// IsTerminal reports whether no further transitions are expected.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsActive reports whether the order still needs attention from the
// restaurant (used by the active-order floating check).
func (s OrderStatus) IsActive() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery:
		return true
	}
	return false
}

// CanCancel reports whether a customer may still cancel the order.
// Only pending and confirmed orders can be cancelled.
func CanCancel(s OrderStatus) bool {
	return s == StatusPending || s == StatusConfirmed
}

// ValidStatus reports whether s is one of the defined statuses.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

var remoteIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// IsRemoteID reports whether id has the shape of a backend-assigned
// identifier (exactly 24 hex characters).
func IsRemoteID(id string) bool {
	return remoteIDPattern.MatchString(id)
}

const orderNumberRandomChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOrderNumber returns a unique, human-readable order number,
// e.g. ORDLX3K9A2B7F. Guest orders are tracked by this number when no
// backend identifier exists.
func GenerateOrderNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	var b strings.Builder
	b.WriteString("ORD")
	b.WriteString(ts)
	for i := 0; i < 3; i++ {
		b.WriteByte(orderNumberRandomChars[rand.Intn(len(orderNumberRandomChars))])
	}
	return b.String()
}
