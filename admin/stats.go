package admin

import (
	"context"
	"sort"

	"github.com/foodiehq/storefront/models"
)

// ItemSales aggregates one menu item's sales across all orders.
type ItemSales struct {
	ItemID   string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// DashboardStats is the admin dashboard summary, computed client-side
// from the merged order list when the backend stats endpoint is not
// available.
type DashboardStats struct {
	TotalOrders       int          `json:"totalOrders"`
	TotalRevenue      float64      `json:"totalRevenue"`
	PendingOrders     int          `json:"pendingOrders"`
	CompletedOrders   int          `json:"completedOrders"`
	AverageOrderValue float64      `json:"averageOrderValue"`
	TopSellingItems   []ItemSales  `json:"topSellingItems"`
	RecentOrders      []models.Order `json:"recentOrders"`
}

const (
	topSellerCount   = 5
	recentOrderCount = 5
)

// DashboardStats computes the summary over every visible order.
func (s *Service) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{TotalOrders: len(orders)}

	sales := make(map[string]*ItemSales)
	for _, order := range orders {
		stats.TotalRevenue += order.Total
		switch order.Status {
		case models.StatusPending, models.StatusConfirmed:
			stats.PendingOrders++
		case models.StatusDelivered:
			stats.CompletedOrders++
		}

		for _, item := range order.Items {
			key := item.ItemID
			if key == "" {
				key = item.Name
			}
			agg, ok := sales[key]
			if !ok {
				agg = &ItemSales{ItemID: key, Name: item.Name}
				sales[key] = agg
			}
			agg.Quantity += item.Quantity
			agg.Revenue += item.LineTotal()
		}
	}

	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / float64(stats.TotalOrders)
	}

	top := make([]ItemSales, 0, len(sales))
	for _, agg := range sales {
		top = append(top, *agg)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Quantity != top[j].Quantity {
			return top[i].Quantity > top[j].Quantity
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topSellerCount {
		top = top[:topSellerCount]
	}
	stats.TopSellingItems = top

	// ListOrders already sorts newest first
	recent := orders
	if len(recent) > recentOrderCount {
		recent = recent[:recentOrderCount]
	}
	stats.RecentOrders = recent

	return stats, nil
}
