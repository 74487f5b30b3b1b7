package handlers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// totalTolerance is how far the client-rendered total may drift from the
// server-computed one (float rounding on the UI side) before checkout rejects.
const totalTolerance = 1.0

type outOfStockError struct {
	ProductID primitive.ObjectID
	Color     string
	Size      int
	Available int
	Requested int
}

func (e outOfStockError) Error() string {
	return "product out of stock"
}

type productNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e productNotFoundError) Error() string {
	return "product not found"
}

type totalMismatchError struct {
	Client float64
	Server float64
}

func (e totalMismatchError) Error() string {
	return fmt.Sprintf("Order total mismatch: expected %.2f", e.Server)
}

func totalsMatch(client, server float64) bool {
	return math.Abs(client-server) <= totalTolerance
}

// orderNumber generates the human-facing order reference.
func orderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

func orderItemsFromCart(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Color:     item.Color,
			Size:      item.Size,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return out
}

// decrementSizeStock subtracts qty from the (color, size) node of a product,
// but only while that node still holds enough stock. Both purchase paths go
// through here, so checkout and buy-now target the same inventory shape.
// MatchedCount 0 means the conditional filter no longer holds; the caller's
// transaction aborts and no partial order survives.
func decrementSizeStock(ctx context.Context, db *mongo.Database, item models.OrderItem) error {
	var product models.Product
	err := db.Collection("products").FindOne(ctx, bson.M{"_id": item.ProductID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return productNotFoundError{ProductID: item.ProductID}
	}
	if err != nil {
		return err
	}

	entry := product.FindSize(item.Color, item.Size)
	if entry == nil {
		return productNotFoundError{ProductID: item.ProductID}
	}
	if entry.Stock < item.Quantity {
		return outOfStockError{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Available: entry.Stock,
			Requested: item.Quantity,
		}
	}

	filter := bson.M{
		"_id": item.ProductID,
		"variants": bson.M{"$elemMatch": bson.M{
			"color": item.Color,
			"sizes": bson.M{"$elemMatch": bson.M{
				"size":  item.Size,
				"stock": bson.M{"$gte": item.Quantity},
			}},
		}},
	}
	update := bson.M{"$inc": bson.M{"variants.$[v].sizes.$[s].stock": -item.Quantity}}
	updateOptions := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"v.color": item.Color},
			bson.M{"s.size": item.Size, "s.stock": bson.M{"$gte": item.Quantity}},
		},
	})

	res, err := db.Collection("products").UpdateOne(ctx, filter, update, updateOptions)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return outOfStockError{
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Available: entry.Stock,
			Requested: item.Quantity,
		}
	}
	return nil
}

type analyticsSummary struct {
	TotalRevenue  float64        `json:"totalRevenue"`
	TotalOrders   int            `json:"totalOrders"`
	ReturnRate    float64        `json:"returnRate"`
	TotalProducts int            `json:"totalProducts"`
	TotalStock    int            `json:"totalStock"`
	RecentOrders  []models.Order `json:"recentOrders"`
}

// computeAnalytics aggregates the admin dashboard numbers. Return rate is the
// share of returned orders, one decimal.
func computeAnalytics(orders []models.Order, products []models.Product) analyticsSummary {
	summary := analyticsSummary{
		TotalOrders:   len(orders),
		TotalProducts: len(products),
		RecentOrders:  []models.Order{},
	}

	returned := 0
	for _, order := range orders {
		summary.TotalRevenue += order.TotalAmount
		if order.Status == models.OrderStatusReturned {
			returned++
		}
	}
	if summary.TotalOrders > 0 {
		summary.ReturnRate = math.Round(float64(returned)/float64(summary.TotalOrders)*1000) / 10
	}

	for _, product := range products {
		summary.TotalStock += product.TotalStock()
	}

	// Last five orders, newest first.
	start := len(orders) - 5
	if start < 0 {
		start = 0
	}
	for i := len(orders) - 1; i >= start; i-- {
		summary.RecentOrders = append(summary.RecentOrders, orders[i])
	}

	return summary
}
