package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title              string          `gorm:"size:255;not null" json:"title"`
	Description        string          `gorm:"type:text" json:"description"`
	Price              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	DiscountAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	DiscountPercentage int             `gorm:"not null" json:"discount_percentage"`
	Rating             float64         `gorm:"not null" json:"rating"`
	SrcURL             string          `gorm:"size:1024" json:"src_url"`
	Gallery            []string        `gorm:"serializer:json" json:"gallery"`
	Category           string          `gorm:"size:255;index" json:"category"`
	InStock            bool            `gorm:"not null" json:"in_stock"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is the application-level user record. Its id equals the
// auth-provider user id.
type UserProfile struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	Email     string     `gorm:"size:255;not null" json:"email"`
	FullName  string     `gorm:"size:255" json:"full_name,omitempty"`
	Username  string     `gorm:"size:255" json:"username,omitempty"`
	AvatarURL string     `gorm:"size:1024" json:"avatar_url,omitempty"`
	Phone     string     `gorm:"size:64" json:"phone,omitempty"`
	Address   string     `gorm:"type:text" json:"address,omitempty"`
	IsAdmin   bool       `gorm:"not null" json:"is_admin"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
}

func (UserProfile) TableName() string {
	return "profiles"
}

type Order struct {
	ID              string          `gorm:"primaryKey;size:64" json:"id"`
	UserID          string          `gorm:"size:64;index;not null" json:"user_id"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Status          OrderStatus     `gorm:"size:32;index;not null" json:"status"`
	ShippingAddress Address         `gorm:"serializer:json;not null" json:"shipping_address"`
	BillingAddress  *Address        `gorm:"serializer:json" json:"billing_address"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

type OrderItem struct {
	ID              string          `gorm:"primaryKey;size:64" json:"id"`
	OrderID         string          `gorm:"size:64;index;not null" json:"order_id"`
	ProductID       int64           `gorm:"index;not null" json:"product_id"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_purchase"`
	CreatedAt       time.Time       `json:"created_at"`

	// Product is joined in, with a reduced column set, when reading order history.
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Tables lists the models owned by the SQL store, in migration order.
func Tables() []interface{} {
	return []interface{}{
		&Category{},
		&Product{},
		&UserProfile{},
		&Order{},
		&OrderItem{},
	}
}
