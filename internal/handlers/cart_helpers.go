package handlers

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// cartLocks serializes mutations per user so two concurrent requests from the
// same session cannot race on the same item set. Entries are never evicted:
// one mutex per user seen, for the life of the process.
var cartLocks sync.Map

func lockCart(userID primitive.ObjectID) func() {
	value, _ := cartLocks.LoadOrStore(userID.Hex(), &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// cartView is the wire shape of a cart: the document plus its resolved items
// and any coupon feedback from the mutation that produced it.
type cartView struct {
	models.Cart
	Items         []models.CartItem `json:"items"`
	CouponMessage string            `json:"couponMessage,omitempty"`
}

// getOrCreateCart returns the user's cart, creating an empty one on first
// access. Safe to call repeatedly; a duplicate-key race on the unique userId
// index falls back to re-reading the winner's document.
func getOrCreateCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.Cart, error) {
	carts := db.Collection("carts")

	var cart models.Cart
	err := carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err == nil {
		return cart, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.Cart{}, err
	}

	now := time.Now()
	cart = models.Cart{
		UserID:    userID,
		ItemIDs:   []primitive.ObjectID{},
		Status:    models.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := carts.InsertOne(ctx, cart)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
			return cart, err
		}
		return models.Cart{}, err
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		cart.ID = id
	}
	return cart, nil
}

func loadCartItems(ctx context.Context, db *mongo.Database, cartID primitive.ObjectID) ([]models.CartItem, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := db.Collection("cart_items").Find(ctx, bson.M{"cartId": cartID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.CartItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// cartTotals re-derives the cached counters from the authoritative item list.
func cartTotals(items []models.CartItem) (totalItems int, totalPrice float64) {
	for _, item := range items {
		totalItems += item.Quantity
		totalPrice += item.Subtotal
	}
	return totalItems, totalPrice
}

func quoteItems(items []models.CartItem) []QuoteItem {
	out := make([]QuoteItem, 0, len(items))
	for _, item := range items {
		out = append(out, QuoteItem{Price: item.Price, Quantity: item.Quantity})
	}
	return out
}

// couponAfterMutation decides whether an applied code survives the cart's new
// subtotal. When it does not, the returned message is surfaced to the client;
// the drop itself is never an error.
func couponAfterMutation(catalog CouponCatalog, code string, subtotal float64) (keep bool, message string) {
	if code == "" {
		return false, ""
	}
	rule, ok := catalog[code]
	if !ok {
		return false, "Coupon removed: " + invalidCouponError{Code: code}.Error()
	}
	if subtotal < rule.MinAmount {
		return false, "Coupon removed: " + couponThresholdError{Code: code, MinAmount: rule.MinAmount}.Error()
	}
	return true, ""
}

// refreshCart recomputes totals from the item list, revalidates any applied
// coupon, persists both, and returns the up-to-date view.
func refreshCart(ctx context.Context, db *mongo.Database, cart models.Cart, catalog CouponCatalog) (cartView, error) {
	items, err := loadCartItems(ctx, db, cart.ID)
	if err != nil {
		return cartView{}, err
	}

	totalItems, totalPrice := cartTotals(items)

	update := bson.M{
		"$set": bson.M{
			"totalItems": totalItems,
			"totalPrice": totalPrice,
			"updatedAt":  time.Now(),
		},
	}

	couponMessage := ""
	couponCode := cart.CouponCode
	if couponCode != "" {
		keep, message := couponAfterMutation(catalog, couponCode, totalPrice)
		if !keep {
			couponCode = ""
			couponMessage = message
			update["$unset"] = bson.M{"couponCode": ""}
		}
	}

	if _, err := db.Collection("carts").UpdateByID(ctx, cart.ID, update); err != nil {
		return cartView{}, err
	}

	cart.TotalItems = totalItems
	cart.TotalPrice = totalPrice
	cart.CouponCode = couponCode

	return cartView{Cart: cart, Items: items, CouponMessage: couponMessage}, nil
}
