package handlers

import (
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

func TestTotalsMatchTolerance(t *testing.T) {
	tests := []struct {
		client float64
		server float64
		want   bool
	}{
		{2100, 2100, true},
		{2100.5, 2100, true},
		{2099, 2100, true},
		{2102, 2100, false},
		{0, 2100, false},
	}

	for _, tt := range tests {
		if got := totalsMatch(tt.client, tt.server); got != tt.want {
			t.Fatalf("totalsMatch(%v, %v) = %v, want %v", tt.client, tt.server, got, tt.want)
		}
	}
}

func TestOrderNumberFormat(t *testing.T) {
	number := orderNumber()
	if !strings.HasPrefix(number, "ORD-") {
		t.Fatalf("expected ORD- prefix, got %q", number)
	}
	if len(number) != len("ORD-")+8 {
		t.Fatalf("expected 8-char suffix, got %q", number)
	}
	if number == orderNumber() {
		t.Fatal("expected distinct numbers on consecutive calls")
	}
}

func TestOrderItemsFromCartFreezesLines(t *testing.T) {
	productID := primitive.NewObjectID()
	items := []models.CartItem{
		{
			ID:        primitive.NewObjectID(),
			CartID:    primitive.NewObjectID(),
			ProductID: productID,
			Name:      "Runner",
			Color:     "black",
			Size:      42,
			Price:     1000,
			Quantity:  2,
			Subtotal:  2000,
			MaxStock:  5,
		},
	}

	frozen := orderItemsFromCart(items)
	if len(frozen) != 1 {
		t.Fatalf("expected 1 frozen line, got %d", len(frozen))
	}
	line := frozen[0]
	if line.ProductID != productID || line.Name != "Runner" || line.Color != "black" ||
		line.Size != 42 || line.Price != 1000 || line.Quantity != 2 {
		t.Fatalf("frozen line lost fields: %+v", line)
	}
}

func TestIsValidOrderStatus(t *testing.T) {
	for _, status := range []string{"pending", "confirmed", "shipped", "delivered", "returned", "cancelled"} {
		if !models.IsValidOrderStatus(status) {
			t.Fatalf("expected %q to be recognized", status)
		}
	}
	for _, status := range []string{"", "paid", "CONFIRMED", "refunded"} {
		if models.IsValidOrderStatus(status) {
			t.Fatalf("expected %q to be rejected", status)
		}
	}
}

func TestIsValidPaymentMethod(t *testing.T) {
	for _, method := range []string{"card", "upi", "netbanking", "cod"} {
		if !models.IsValidPaymentMethod(method) {
			t.Fatalf("expected %q to be accepted", method)
		}
	}
	if models.IsValidPaymentMethod("cash") {
		t.Fatal("expected cash to be rejected")
	}
}

func TestComputeAnalytics(t *testing.T) {
	orders := []models.Order{
		{TotalAmount: 1000, Status: models.OrderStatusConfirmed},
		{TotalAmount: 500, Status: models.OrderStatusReturned},
		{TotalAmount: 2500, Status: models.OrderStatusDelivered},
		{TotalAmount: 300, Status: models.OrderStatusReturned},
	}
	products := []models.Product{
		{Variants: []models.Variant{
			{Sizes: []models.SizeEntry{{Size: 41, Stock: 3}, {Size: 42, Stock: 7}}},
			{Sizes: []models.SizeEntry{{Size: 41, Stock: 5}}},
		}},
		{Variants: []models.Variant{
			{Sizes: []models.SizeEntry{{Size: 44, Stock: 2}}},
		}},
	}

	summary := computeAnalytics(orders, products)

	if summary.TotalRevenue != 4300 {
		t.Fatalf("expected revenue 4300, got %v", summary.TotalRevenue)
	}
	if summary.TotalOrders != 4 {
		t.Fatalf("expected 4 orders, got %d", summary.TotalOrders)
	}
	if summary.ReturnRate != 50 {
		t.Fatalf("expected 50%% return rate, got %v", summary.ReturnRate)
	}
	if summary.TotalProducts != 2 {
		t.Fatalf("expected 2 products, got %d", summary.TotalProducts)
	}
	if summary.TotalStock != 17 {
		t.Fatalf("expected total stock 17, got %d", summary.TotalStock)
	}
	if len(summary.RecentOrders) != 4 {
		t.Fatalf("expected 4 recent orders, got %d", len(summary.RecentOrders))
	}
	if summary.RecentOrders[0].TotalAmount != 300 {
		t.Fatalf("expected newest order first, got %+v", summary.RecentOrders[0])
	}
}

func TestComputeAnalyticsEmpty(t *testing.T) {
	summary := computeAnalytics(nil, nil)
	if summary.ReturnRate != 0 {
		t.Fatalf("expected 0 return rate with no orders, got %v", summary.ReturnRate)
	}
	if len(summary.RecentOrders) != 0 {
		t.Fatalf("expected no recent orders, got %d", len(summary.RecentOrders))
	}
}

func TestComputeAnalyticsReturnRateOneDecimal(t *testing.T) {
	orders := []models.Order{
		{Status: models.OrderStatusReturned},
		{Status: models.OrderStatusConfirmed},
		{Status: models.OrderStatusConfirmed},
	}

	summary := computeAnalytics(orders, nil)
	if summary.ReturnRate != 33.3 {
		t.Fatalf("expected 33.3, got %v", summary.ReturnRate)
	}
}
