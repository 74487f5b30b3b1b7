package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order status values. Any recognized value may follow any other; the admin
// endpoint validates membership only.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusReturned  = "returned"
	OrderStatusCancelled = "cancelled"
)

// IsValidOrderStatus reports whether s is one of the recognized statuses.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusReturned, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentMethod reports whether m is an accepted payment method.
// Callers lower-case before checking.
func IsValidPaymentMethod(m string) bool {
	switch m {
	case "card", "upi", "netbanking", "cod":
		return true
	}
	return false
}

// OrderItem is a frozen copy of a purchased line. It keeps no live reference
// to the cart item it came from.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
	Size      int                `bson:"size,omitempty" json:"size,omitempty"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Order is the persisted order document. Immutable after creation except for
// Status, which only admin endpoints touch.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Number          string             `bson:"number" json:"number"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	ShippingAddress string             `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	Status          string             `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
