package models

import (
	"fmt"
	"math"
	"strings"
)

// DefaultDeliveryFee is charged on delivery orders; dine-in orders are
// served at the table and carry no fee.
const DefaultDeliveryFee = 40

// CartItem is a menu item placed in the cart. Portion selection is part
// of the item identity: half plate and full plate of the same dish are
// separate cart lines.
type CartItem struct {
	ItemID          string  `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Image           string  `json:"image,omitempty"`
	Category        string  `json:"category,omitempty"`
	IsVeg           bool    `json:"isVeg,omitempty"`
	SelectedPortion string  `json:"selectedPortion,omitempty"`
	RestaurantID    string  `json:"restaurantId,omitempty"`
	RestaurantName  string  `json:"restaurantName,omitempty"`
}

// sameLine reports whether two cart entries are the same logical line.
func (i CartItem) sameLine(other CartItem) bool {
	return i.ItemID == other.ItemID &&
		i.RestaurantID == other.RestaurantID &&
		i.SelectedPortion == other.SelectedPortion
}

// AddToCart merges item into cart, bumping the quantity when the same
// item+portion already exists.
func AddToCart(cart []CartItem, item CartItem) []CartItem {
	for idx := range cart {
		if cart[idx].sameLine(item) {
			cart[idx].Quantity += item.Quantity
			return cart
		}
	}
	return append(cart, item)
}

// UpdateCartQuantity sets the quantity of a cart line, removing it when
// quantity drops to zero or below.
func UpdateCartQuantity(cart []CartItem, itemID, portion string, quantity int) []CartItem {
	for idx := range cart {
		if cart[idx].ItemID == itemID && cart[idx].SelectedPortion == portion {
			if quantity <= 0 {
				return append(cart[:idx], cart[idx+1:]...)
			}
			cart[idx].Quantity = quantity
			return cart
		}
	}
	return cart
}

// RemoveFromCart drops a cart line by item id and portion.
func RemoveFromCart(cart []CartItem, itemID, portion string) []CartItem {
	out := cart[:0]
	for _, it := range cart {
		if it.ItemID == itemID && it.SelectedPortion == portion {
			continue
		}
		out = append(out, it)
	}
	return out
}

// CartSubtotal sums price x quantity over the cart.
func CartSubtotal(cart []CartItem) float64 {
	var total float64
	for _, it := range cart {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// CartCount returns the number of units in the cart.
func CartCount(cart []CartItem) int {
	var n int
	for _, it := range cart {
		n += it.Quantity
	}
	return n
}

// Coupon discount kinds.
const (
	CouponFlat       = "flat"
	CouponPercentage = "percentage"
)

// Coupon is a storefront discount code.
type Coupon struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	MinOrder    float64 `json:"minOrder"`
	MaxDiscount float64 `json:"maxDiscount,omitempty"`
}

// AvailableCoupons are the storefront's built-in codes.
var AvailableCoupons = []Coupon{
	{Code: "WELCOME50", Description: "Get Rp50 off on orders above Rp200", Type: CouponFlat, Value: 50, MinOrder: 200},
	{Code: "SAVE20", Description: "20% off on orders above Rp300 (Max Rp100)", Type: CouponPercentage, Value: 20, MinOrder: 300, MaxDiscount: 100},
	{Code: "FIRSTORDER", Description: "Get 25% off on your first order (Max Rp150)", Type: CouponPercentage, Value: 25, MinOrder: 100, MaxDiscount: 150},
	{Code: "FLAT100", Description: "Flat Rp100 off on orders above Rp500", Type: CouponFlat, Value: 100, MinOrder: 500},
	{Code: "MEGA30", Description: "30% off on orders above Rp800 (Max Rp250)", Type: CouponPercentage, Value: 30, MinOrder: 800, MaxDiscount: 250},
}

// FindCoupon looks a coupon up by code, case-insensitively, and checks
// the minimum order requirement against subtotal.
func FindCoupon(code string, subtotal float64) (Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Coupon{}, fmt.Errorf("coupon code is empty")
	}
	for _, c := range AvailableCoupons {
		if strings.EqualFold(c.Code, code) {
			if subtotal < c.MinOrder {
				return Coupon{}, fmt.Errorf("minimum order of %.0f required for coupon %s", c.MinOrder, c.Code)
			}
			return c, nil
		}
	}
	return Coupon{}, fmt.Errorf("invalid coupon code")
}

// Discount computes the rupee discount the coupon grants on subtotal.
// Percentage discounts are rounded to the nearest rupee and capped at
// MaxDiscount when set.
func (c Coupon) Discount(subtotal float64) float64 {
	if c.Code == "" {
		return 0
	}
	if c.Type == CouponFlat {
		return c.Value
	}
	d := math.Round(subtotal * c.Value / 100)
	if c.MaxDiscount > 0 && d > c.MaxDiscount {
		return c.MaxDiscount
	}
	return d
}

// DeliveryFeeFor returns the delivery fee for an order: zero for
// dine-in (table orders), the flat fee otherwise.
func DeliveryFeeFor(tableNumber string) float64 {
	if tableNumber != "" {
		return 0
	}
	return DefaultDeliveryFee
}
