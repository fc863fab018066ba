package mockapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/foodiehq/storefront/models"
)

// orderRecord is a stored order. The full order travels as a JSON blob;
// the columns exist for lookups and auth checks.
type orderRecord struct {
	ID        string `gorm:"type:varchar(24);primaryKey"`
	UserID    string `gorm:"type:varchar(64);index"`
	Status    string `gorm:"type:varchar(20);not null"`
	Data      []byte `gorm:"type:blob;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (orderRecord) TableName() string {
	return "orders"
}

// apiUser is a login account for the mock backend.
type apiUser struct {
	ID           string `gorm:"type:varchar(24);primaryKey"`
	Name         string `gorm:"type:varchar(100)"`
	Email        string `gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string `gorm:"type:varchar(100);not null"`
	Role         string `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time
}

func (apiUser) TableName() string {
	return "users"
}

// newObjectID generates a 24-hex identifier in the backend's format.
func newObjectID() string {
	var buf [12]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fall back to a time-derived id; uniqueness is best-effort here.
		return hex.EncodeToString([]byte(time.Now().Format("150405.000000")))[:24]
	}
	return hex.EncodeToString(buf[:])
}

func (r *orderRecord) order() (*models.Order, error) {
	var order models.Order
	if err := json.Unmarshal(r.Data, &order); err != nil {
		return nil, err
	}
	order.Normalize()
	return &order, nil
}

func recordFrom(order *models.Order) (*orderRecord, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	return &orderRecord{
		ID:        order.ID,
		UserID:    order.UserID,
		Status:    string(order.Status),
		Data:      data,
		CreatedAt: order.CreatedAt,
		UpdatedAt: time.Now(),
	}, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&orderRecord{}, &apiUser{})
}
