package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

/* =========================
   REQUEST DTOs
========================= */

type addToCartRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Color     string  `json:"color"`
	Size      int     `json:"size"`
	Price     float64 `json:"price" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required"`
	Image     string  `json:"image"`
	MaxStock  int     `json:"maxStock"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type applyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

func stockLimitMessage(maxStock int) string {
	return fmt.Sprintf("Cannot add more than %d items in stock", maxStock)
}

/* =========================
   GET CART
========================= */

func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := getOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		items, err := loadCartItems(ctx, db, cart.ID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"cart": cartView{Cart: cart, Items: items}})
	}
}

/* =========================
   ADD ITEM
========================= */

func AddToCart(db *mongo.Database, coupons CouponCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/add"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
			return
		}

		// A line always carries quantity >= 1; a negative request must not
		// shrink an existing line through the merge path either.
		if req.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Quantity must be greater than zero"})
			return
		}

		if req.Quantity > req.MaxStock {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": stockLimitMessage(req.MaxStock)})
			return
		}

		unlock := lockCart(userID)
		defer unlock()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := getOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		items := db.Collection("cart_items")

		// Same (product, color, size) triple merges into the existing line.
		lineFilter := bson.M{
			"cartId":    cart.ID,
			"productId": productID,
			"color":     req.Color,
			"size":      req.Size,
		}

		var existing models.CartItem
		err = items.FindOne(ctx, lineFilter).Decode(&existing)
		switch {
		case err == nil:
			newQuantity := existing.Quantity + req.Quantity
			if newQuantity > existing.MaxStock {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": stockLimitMessage(existing.MaxStock)})
				return
			}
			update := bson.M{"$set": bson.M{
				"quantity":  newQuantity,
				"subtotal":  existing.Price * float64(newQuantity),
				"updatedAt": time.Now(),
			}}
			if _, err := items.UpdateByID(ctx, existing.ID, update); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			log.Printf("[%s] line merged, qty %d -> %d", route, existing.Quantity, newQuantity)

		case err == mongo.ErrNoDocuments:
			now := time.Now()
			item := models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Name:      req.Name,
				Color:     req.Color,
				Size:      req.Size,
				Price:     req.Price,
				Quantity:  req.Quantity,
				Image:     req.Image,
				MaxStock:  req.MaxStock,
				Subtotal:  req.Price * float64(req.Quantity),
				CreatedAt: now,
				UpdatedAt: now,
			}
			res, err := items.InsertOne(ctx, item)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			itemID, _ := res.InsertedID.(primitive.ObjectID)
			if _, err := db.Collection("carts").UpdateByID(ctx, cart.ID, bson.M{"$push": bson.M{"items": itemID}}); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			log.Printf("[%s] new line created for product %s", route, req.Name)

		default:
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		view, err := refreshCart(ctx, db, cart, coupons)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Item added to cart successfully",
			"cart":    view,
		})
	}
}

/* =========================
   UPDATE ITEM QUANTITY
========================= */

func UpdateCartItem(db *mongo.Database, coupons CouponCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/:itemId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}
		quantity := *req.Quantity

		unlock := lockCart(userID)
		defer unlock()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var cart models.Cart
		if err := db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Cart not found"})
			return
		}

		itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Item not found in cart"})
			return
		}

		// Ownership check: the item must belong to the caller's cart.
		var item models.CartItem
		if err := db.Collection("cart_items").FindOne(ctx, bson.M{"_id": itemID, "cartId": cart.ID}).Decode(&item); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Item not found in cart"})
			return
		}

		if quantity <= 0 {
			if err := deleteCartItem(ctx, db, cart.ID, itemID); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}

			view, err := refreshCart(ctx, db, cart, coupons)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"message": "Item removed from cart (quantity reached 0)",
				"cart":    view,
			})
			return
		}

		if quantity > item.MaxStock {
			c.JSON(http.StatusBadRequest, gin.H{"message": stockLimitMessage(item.MaxStock)})
			return
		}

		update := bson.M{"$set": bson.M{
			"quantity":  quantity,
			"subtotal":  item.Price * float64(quantity),
			"updatedAt": time.Now(),
		}}
		if _, err := db.Collection("cart_items").UpdateByID(ctx, itemID, update); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		view, err := refreshCart(ctx, db, cart, coupons)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Cart item updated",
			"cart":    view,
		})
	}
}

/* =========================
   REMOVE ITEM
========================= */

func RemoveFromCart(db *mongo.Database, coupons CouponCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/:itemId"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		unlock := lockCart(userID)
		defer unlock()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var cart models.Cart
		if err := db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Cart not found"})
			return
		}

		itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Item not found in cart"})
			return
		}

		res, err := db.Collection("cart_items").DeleteOne(ctx, bson.M{"_id": itemID, "cartId": cart.ID})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"message": "Item not found in cart"})
			return
		}

		if _, err := db.Collection("carts").UpdateByID(ctx, cart.ID, bson.M{"$pull": bson.M{"items": itemID}}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		view, err := refreshCart(ctx, db, cart, coupons)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Item removed from cart",
			"cart":    view,
		})
	}
}

func deleteCartItem(ctx context.Context, db *mongo.Database, cartID, itemID primitive.ObjectID) error {
	if _, err := db.Collection("cart_items").DeleteOne(ctx, bson.M{"_id": itemID, "cartId": cartID}); err != nil {
		return err
	}
	_, err := db.Collection("carts").UpdateByID(ctx, cartID, bson.M{"$pull": bson.M{"items": itemID}})
	return err
}

/* =========================
   CLEAR CART
========================= */

func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		unlock := lockCart(userID)
		defer unlock()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var cart models.Cart
		if err := db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Cart not found"})
			return
		}

		if _, err := db.Collection("cart_items").DeleteMany(ctx, bson.M{"cartId": cart.ID}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		update := bson.M{
			"$set": bson.M{
				"items":      []primitive.ObjectID{},
				"totalItems": 0,
				"totalPrice": 0.0,
				"updatedAt":  time.Now(),
			},
			"$unset": bson.M{"couponCode": ""},
		}
		if _, err := db.Collection("carts").UpdateByID(ctx, cart.ID, update); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart.ItemIDs = []primitive.ObjectID{}
		cart.TotalItems = 0
		cart.TotalPrice = 0
		cart.CouponCode = ""

		c.JSON(http.StatusOK, gin.H{
			"message": "Cart cleared",
			"cart":    cartView{Cart: cart, Items: []models.CartItem{}},
		})
	}
}

/* =========================
   ITEM COUNT
========================= */

func GetCartCount(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart/count"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var cart models.Cart
		err := db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusOK, gin.H{"count": 0})
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"count": cart.TotalItems})
	}
}

/* =========================
   COUPONS
========================= */

// ApplyCoupon validates a code against the catalog and the live subtotal.
// Rejections are UI feedback, not HTTP errors: the response is always 200 and
// carries either the applied rule or a couponError string.
func ApplyCoupon(db *mongo.Database, coupons CouponCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/coupon"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req applyCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}
		code := strings.ToUpper(strings.TrimSpace(req.Code))

		unlock := lockCart(userID)
		defer unlock()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := getOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		items, err := loadCartItems(ctx, db, cart.ID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		_, subtotal := cartTotals(items)

		rule, err := coupons.Resolve(code, subtotal)
		if err != nil {
			log.Printf("[%s] coupon %s rejected: %v", route, code, err)
			c.JSON(http.StatusOK, gin.H{"coupon": nil, "couponError": err.Error()})
			return
		}

		update := bson.M{"$set": bson.M{"couponCode": code, "updatedAt": time.Now()}}
		if _, err := db.Collection("carts").UpdateByID(ctx, cart.ID, update); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"coupon": gin.H{
				"code":        rule.Code,
				"type":        rule.Type,
				"value":       rule.Value,
				"minAmount":   rule.MinAmount,
				"description": rule.Description,
			},
			"totals": ComputeQuote(quoteItems(items), &rule),
		})
	}
}

func RemoveCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/coupon"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		unlock := lockCart(userID)
		defer unlock()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		update := bson.M{"$unset": bson.M{"couponCode": ""}}
		if _, err := db.Collection("carts").UpdateOne(ctx, bson.M{"userId": userID}, update); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Coupon removed"})
	}
}
