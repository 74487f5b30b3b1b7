package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

/* =========================
   REQUEST DTOs
========================= */

type checkoutRequest struct {
	ShippingAddress string  `json:"shippingAddress" binding:"required"`
	PaymentMethod   string  `json:"paymentMethod" binding:"required"`
	TotalAmount     float64 `json:"totalAmount" binding:"required"`
}

type buyNowProductRequest struct {
	ID    string  `json:"id" binding:"required"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Size  int     `json:"size"`
	Price float64 `json:"price"`
}

type buyNowRequest struct {
	Product         *buyNowProductRequest `json:"product" binding:"required"`
	Quantity        int                   `json:"quantity"`
	ShippingAddress string                `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                `json:"paymentMethod" binding:"required"`
	TotalAmount     float64               `json:"totalAmount" binding:"required"`
}

type createOrderItemRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Size      int     `json:"size"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	Items           []createOrderItemRequest `json:"items" binding:"required"`
	ShippingAddress string                   `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                   `json:"paymentMethod" binding:"required"`
	TotalAmount     float64                  `json:"totalAmount"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func respondStockError(c *gin.Context, stockErr outOfStockError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"message":   "Insufficient stock",
		"productId": stockErr.ProductID.Hex(),
		"color":     stockErr.Color,
		"size":      stockErr.Size,
		"available": stockErr.Available,
		"requested": stockErr.Requested,
	})
}

/* =========================
   CHECKOUT
========================= */

// Checkout converts the caller's server-side cart into a confirmed order,
// decrements stock and empties the cart, all inside one transaction. The item
// list and the total come from the server, never from the request body; the
// client-rendered total is only verified against the recomputed quote.
func Checkout(db *mongo.Database, rdb *redis.Client, coupons CouponCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/checkout"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		paymentMethod := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
		if !models.IsValidPaymentMethod(paymentMethod) {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		// Retry replay: same key returns the order the first attempt created.
		// The key is recorded only after the order commits, so this guards
		// sequential client retries; two in-flight requests racing on the same
		// key can both miss it and each run a full checkout.
		idemKey := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if orderID, ok := replayedOrderID(ctx, rdb, "checkout", idemKey); ok {
			var order models.Order
			if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err == nil {
				c.JSON(http.StatusOK, gin.H{
					"message":    "Order placed successfully! Cart cleared.",
					"order":      order,
					"idempotent": true,
				})
				return
			}
		}

		unlock := lockCart(userID)
		defer unlock()

		var cart models.Cart
		if err := db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Order must contain items")
			return
		}

		cartItems, err := loadCartItems(ctx, db, cart.ID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if len(cartItems) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "Order must contain items")
			return
		}

		var rule *CouponRule
		if cart.CouponCode != "" {
			_, subtotal := cartTotals(cartItems)
			if resolved, err := coupons.Resolve(cart.CouponCode, subtotal); err == nil {
				rule = &resolved
			}
		}

		quote := ComputeQuote(quoteItems(cartItems), rule)
		if !totalsMatch(req.TotalAmount, quote.Total) {
			mismatch := totalMismatchError{Client: req.TotalAmount, Server: quote.Total}
			respondWithError(c, http.StatusBadRequest, route, mismatch.Error())
			return
		}

		order := models.Order{
			Number:          orderNumber(),
			UserID:          userID,
			Items:           orderItemsFromCart(cartItems),
			TotalAmount:     quote.Total,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   paymentMethod,
			Status:          models.OrderStatusConfirmed,
			CreatedAt:       time.Now(),
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			for _, item := range order.Items {
				if err := decrementSizeStock(sessCtx, db, item); err != nil {
					return nil, err
				}
			}

			res, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			if id, ok := res.InsertedID.(primitive.ObjectID); ok {
				order.ID = id
			}

			if _, err := db.Collection("cart_items").DeleteMany(sessCtx, bson.M{"cartId": cart.ID}); err != nil {
				return nil, err
			}
			reset := bson.M{
				"$set": bson.M{
					"items":      []primitive.ObjectID{},
					"totalItems": 0,
					"totalPrice": 0.0,
					"updatedAt":  time.Now(),
				},
				"$unset": bson.M{"couponCode": ""},
			}
			if _, err := db.Collection("carts").UpdateByID(sessCtx, cart.ID, reset); err != nil {
				return nil, err
			}
			return nil, nil
		})
		if err != nil {
			var stockErr outOfStockError
			if errors.As(err, &stockErr) {
				respondStockError(c, stockErr)
				return
			}
			var notFoundErr productNotFoundError
			if errors.As(err, &notFoundErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"message":   "Product not found",
					"productId": notFoundErr.ProductID.Hex(),
				})
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		rememberOrderID(ctx, rdb, "checkout", idemKey, order.ID)
		log.Printf("[%s] order %s placed for user %s (%d lines, total %.2f)",
			route, order.Number, userID.Hex(), len(order.Items), order.TotalAmount)

		c.JSON(http.StatusCreated, gin.H{
			"message": "Order placed successfully! Cart cleared.",
			"order":   order,
		})
	}
}

/* =========================
   BUY NOW
========================= */

// BuyNow places a single-line order straight from the product page. The unit
// price comes from the live catalog node, not the request. No cart interaction.
func BuyNow(db *mongo.Database, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/buy-now"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req buyNowRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Product == nil || req.Quantity <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "Invalid product or quantity")
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.Product.ID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Invalid product or quantity")
			return
		}

		paymentMethod := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
		if !models.IsValidPaymentMethod(paymentMethod) {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		// Same retry-only scope as the checkout replay: the key exists only
		// once the first attempt has committed.
		idemKey := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if orderID, ok := replayedOrderID(ctx, rdb, "buy-now", idemKey); ok {
			var order models.Order
			if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err == nil {
				c.JSON(http.StatusOK, gin.H{
					"message":    "Order placed successfully!",
					"order":      order,
					"idempotent": true,
				})
				return
			}
		}

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		entry := product.FindSize(req.Product.Color, req.Product.Size)
		if entry == nil {
			respondWithError(c, http.StatusBadRequest, route, "Invalid product or quantity")
			return
		}

		line := models.OrderItem{
			ProductID: productID,
			Name:      product.Name,
			Color:     req.Product.Color,
			Size:      req.Product.Size,
			Price:     entry.Price,
			Quantity:  req.Quantity,
		}

		quote := ComputeQuote([]QuoteItem{{Price: line.Price, Quantity: line.Quantity}}, nil)
		if !totalsMatch(req.TotalAmount, quote.Total) {
			mismatch := totalMismatchError{Client: req.TotalAmount, Server: quote.Total}
			respondWithError(c, http.StatusBadRequest, route, mismatch.Error())
			return
		}

		order := models.Order{
			Number:          orderNumber(),
			UserID:          userID,
			Items:           []models.OrderItem{line},
			TotalAmount:     quote.Total,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   paymentMethod,
			Status:          models.OrderStatusConfirmed,
			CreatedAt:       time.Now(),
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			if err := decrementSizeStock(sessCtx, db, line); err != nil {
				return nil, err
			}

			res, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			if id, ok := res.InsertedID.(primitive.ObjectID); ok {
				order.ID = id
			}
			return nil, nil
		})
		if err != nil {
			var stockErr outOfStockError
			if errors.As(err, &stockErr) {
				respondStockError(c, stockErr)
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		rememberOrderID(ctx, rdb, "buy-now", idemKey, order.ID)
		log.Printf("[%s] order %s placed for user %s (%s x%d)",
			route, order.Number, userID.Hex(), line.Name, line.Quantity)

		c.JSON(http.StatusCreated, gin.H{
			"message": "Order placed successfully!",
			"order":   order,
		})
	}
}

/* =========================
   GENERIC CREATE
========================= */

// CreateOrder is the plain entry point: pending status, no stock decrement,
// no cart side effects.
func CreateOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if len(req.Items) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "Order must contain items")
			return
		}

		paymentMethod := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
		if !models.IsValidPaymentMethod(paymentMethod) {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := primitive.ObjectIDFromHex(item.ProductID)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid productId")
				return
			}
			if item.Quantity <= 0 {
				respondWithError(c, http.StatusBadRequest, route, "quantity must be greater than zero")
				return
			}
			items = append(items, models.OrderItem{
				ProductID: productID,
				Name:      strings.TrimSpace(item.Name),
				Color:     item.Color,
				Size:      item.Size,
				Price:     item.Price,
				Quantity:  item.Quantity,
			})
		}

		order := models.Order{
			Number:          orderNumber(),
			UserID:          userID,
			Items:           items,
			TotalAmount:     req.TotalAmount,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   paymentMethod,
			Status:          models.OrderStatusPending,
			CreatedAt:       time.Now(),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("orders").InsertOne(ctx, order)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Order created successfully",
			"order":   order,
		})
	}
}

/* =========================
   READS
========================= */

func GetOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// GetOrders lists every order, newest first. Admin only.
func GetOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/admin/all"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("orders").Find(ctx, bson.M{}, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Orders could not be fetched")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "Failed to parse orders")
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

/* =========================
   STATUS
========================= */

// UpdateOrderStatus validates membership in the recognized status set only;
// any recognized status may follow any other.
func UpdateOrderStatus(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/status"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		if !models.IsValidOrderStatus(req.Status) {
			respondWithError(c, http.StatusBadRequest, route, "Invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err = db.Collection("orders").FindOneAndUpdate(
			ctx,
			bson.M{"_id": orderID},
			bson.M{"$set": bson.M{"status": req.Status}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&order)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Order updated successfully",
			"order":   order,
		})
	}
}

/* =========================
   ANALYTICS
========================= */

func GetAnalytics(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/admin/analytics"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		orderOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
		cursor, err := db.Collection("orders").Find(ctx, bson.M{}, orderOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		productCursor, err := db.Collection("products").Find(ctx, bson.M{})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		products := make([]models.Product, 0)
		if err := productCursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, computeAnalytics(orders, products))
	}
}
