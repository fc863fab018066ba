package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/foodiehq/storefront/models"
)

// ordersCacheKey is the storage key for the device-wide order list.
// Dine-in sessions get one key per table so parallel tables don't see
// each other's orders.
const ordersCacheKey = "foodie_orders"

// CacheKeyFor returns the storage key scoping the local order cache.
func CacheKeyFor(tableNumber string) string {
	if tableNumber == "" {
		return ordersCacheKey
	}
	return ordersCacheKey + "_" + tableNumber
}

// cachedOrder is one row of the persisted order list. The order itself
// is stored as a JSON blob; the indexed columns exist only for lookup.
type cachedOrder struct {
	ID          uint   `gorm:"primaryKey"`
	CacheKey    string `gorm:"type:varchar(64);not null;index"`
	OrderKey    string `gorm:"type:varchar(64);not null;index"`
	OrderNumber string `gorm:"type:varchar(32);index"`
	Data        []byte `gorm:"type:blob;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (cachedOrder) TableName() string {
	return "local_orders"
}

// LocalOrderRepository persists the per-device order mirror. All writes
// are full read-modify-write of a single row and are serialized by a
// mutex: polling, checkout and admin sync all touch the same list.
type LocalOrderRepository struct {
	db       *gorm.DB
	cacheKey string
	mu       sync.Mutex
}

// NewLocalOrderRepository opens the cache scoped to tableNumber (empty
// for delivery sessions) and migrates the backing table.
func NewLocalOrderRepository(db *gorm.DB, tableNumber string) (*LocalOrderRepository, error) {
	if err := db.AutoMigrate(&cachedOrder{}); err != nil {
		return nil, err
	}
	return &LocalOrderRepository{
		db:       db,
		cacheKey: CacheKeyFor(tableNumber),
	}, nil
}

// Get looks an order up by local id or order number.
func (r *LocalOrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	orders, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].Matches(id) {
			return &orders[i], nil
		}
	}
	return nil, ErrOrderNotFound
}

// List returns every cached order, oldest first (insertion order, like
// the list it mirrors).
func (r *LocalOrderRepository) List(ctx context.Context) ([]models.Order, error) {
	var rows []cachedOrder
	err := r.db.WithContext(ctx).
		Where("cache_key = ?", r.cacheKey).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		var order models.Order
		if err := json.Unmarshal(row.Data, &order); err != nil {
			// Skip rows written by an incompatible version
			continue
		}
		order.Normalize()
		orders = append(orders, order)
	}
	return orders, nil
}

// Upsert stores the order, replacing an existing entry that matches any
// of its identifiers.
func (r *LocalOrderRepository) Upsert(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	var existing cachedOrder
	q := r.db.WithContext(ctx).Where("cache_key = ?", r.cacheKey)
	if order.OrderNumber != "" {
		q = q.Where("order_key = ? OR order_number = ?", order.Key(), order.OrderNumber)
	} else {
		q = q.Where("order_key = ?", order.Key())
	}
	err = q.First(&existing).Error
	switch {
	case err == nil:
		existing.OrderKey = order.Key()
		existing.OrderNumber = order.OrderNumber
		existing.Data = data
		existing.UpdatedAt = time.Now()
		return r.db.WithContext(ctx).Save(&existing).Error
	case err == gorm.ErrRecordNotFound:
		row := cachedOrder{
			CacheKey:    r.cacheKey,
			OrderKey:    order.Key(),
			OrderNumber: order.OrderNumber,
			Data:        data,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		return r.db.WithContext(ctx).Create(&row).Error
	default:
		return err
	}
}

// Clear drops every order under this cache key.
func (r *LocalOrderRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.WithContext(ctx).
		Where("cache_key = ?", r.cacheKey).
		Delete(&cachedOrder{}).Error
}
