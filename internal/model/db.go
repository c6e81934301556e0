package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64  `gorm:"primaryKey"`
	SellerID    int64  `gorm:"index;not null"`
	Name        string `gorm:"size:255;not null"`
	Image       string `gorm:"size:512"`
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	Translations []ProductTranslation `gorm:"foreignKey:ProductID"`
}

type ProductTranslation struct {
	ID          int64  `gorm:"primaryKey"`
	ProductID   int64  `gorm:"index;not null"`
	Lang        string `gorm:"size:8;not null"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
}

type Sku struct {
	ID         int64  `gorm:"primaryKey"`
	ProductID  int64  `gorm:"index;not null"`
	SellerID   int64  `gorm:"index;not null"` // creator of the owning product
	Variant    string `gorm:"size:128"`       // e.g. "Red-Large"
	PriceCents int64  `gorm:"not null"`
	Stock      int64  `gorm:"not null"`           // never negative, guarded at the ledger
	Version    int64  `gorm:"not null;default:0"` // optimistic token, bumped on every guarded write
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`

	Product Product `gorm:"foreignKey:ProductID"`
}

type CartItem struct {
	ID        int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"index;not null"`
	SkuID     int64 `gorm:"index;not null"`
	Quantity  int64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Sku Sku `gorm:"foreignKey:SkuID"`
}

type Payment struct {
	ID        int64         `gorm:"primaryKey"`
	Status    PaymentStatus `gorm:"size:32;index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Orders []Order `gorm:"foreignKey:PaymentID"`
}

type Order struct {
	ID        int64       `gorm:"primaryKey"`
	BuyerID   int64       `gorm:"index;not null"`
	SellerID  int64       `gorm:"index;not null"`
	PaymentID int64       `gorm:"index;not null"`
	Status    OrderStatus `gorm:"size:32;index;not null"`

	ReceiverName    string `gorm:"size:128;not null"`
	ReceiverPhone   string `gorm:"size:32;not null"`
	ReceiverAddress string `gorm:"size:512;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

// OrderItem is the write-once audit record of what was sold. Every
// field except SkuID is a snapshot copied by value at checkout time;
// later catalog edits must never show through here.
type OrderItem struct {
	ID      int64  `gorm:"primaryKey"`
	OrderID int64  `gorm:"index;not null"`
	SkuID   *int64 `gorm:"index"` // nullable, survives SKU deletion

	ProductName  string `gorm:"size:255;not null"`
	PriceCents   int64  `gorm:"not null"` // per unit
	Image        string `gorm:"size:512"`
	Variant      string `gorm:"size:128"`
	Quantity     int64  `gorm:"not null"`
	Translations string `gorm:"type:text"` // JSON, full translation set at purchase time

	CreatedAt time.Time
}

// PaymentTransaction records one gateway notification. The gateway
// transaction id is the primary key, so a replayed webhook fails on
// insert instead of overwriting the original.
type PaymentTransaction struct {
	GatewayTxID string `gorm:"primaryKey;size:128;not null"`
	PaymentID   int64  `gorm:"index;not null"`
	Gateway     string `gorm:"size:64"`
	AmountCents int64  `gorm:"not null"`
	Content     string `gorm:"size:512"` // raw reference text as received
	CreatedAt   time.Time
}
