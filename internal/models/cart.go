package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart status values.
const (
	CartStatusActive    = "active"
	CartStatusAbandoned = "abandoned"
	CartStatusMerged    = "merged"
)

// CartItem is one (product, color, size) selection inside a cart. Price and
// maxStock are captured at add time; the catalog is not re-read on later
// cart operations.
type CartItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CartID    primitive.ObjectID `bson:"cartId" json:"cartId"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
	Size      int                `bson:"size,omitempty" json:"size,omitempty"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	MaxStock  int                `bson:"maxStock" json:"maxStock"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Cart holds item references plus cached totals. The item list is the source
// of truth; totals are re-derived from it after every mutation.
type Cart struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID   `bson:"userId" json:"userId"`
	ItemIDs    []primitive.ObjectID `bson:"items" json:"-"`
	TotalItems int                  `bson:"totalItems" json:"totalItems"`
	TotalPrice float64              `bson:"totalPrice" json:"totalPrice"`
	Status     string               `bson:"status" json:"status"`
	CouponCode string               `bson:"couponCode,omitempty" json:"couponCode,omitempty"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}
