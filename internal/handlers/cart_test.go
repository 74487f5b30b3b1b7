package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

func TestCartTotalsDerivedFromItems(t *testing.T) {
	items := []models.CartItem{
		{Price: 1000, Quantity: 2, Subtotal: 2000},
		{Price: 250, Quantity: 1, Subtotal: 250},
	}

	totalItems, totalPrice := cartTotals(items)
	if totalItems != 3 {
		t.Fatalf("expected 3 items, got %d", totalItems)
	}
	if totalPrice != 2250 {
		t.Fatalf("expected total 2250, got %v", totalPrice)
	}
}

func TestCartTotalsEmpty(t *testing.T) {
	totalItems, totalPrice := cartTotals(nil)
	if totalItems != 0 || totalPrice != 0 {
		t.Fatalf("expected zero totals, got %d / %v", totalItems, totalPrice)
	}
}

func TestCouponAfterMutationKeepsValidCode(t *testing.T) {
	keep, message := couponAfterMutation(DefaultCoupons(), "FLAT100", 600)
	if !keep {
		t.Fatal("expected coupon to survive above its minimum")
	}
	if message != "" {
		t.Fatalf("expected no message, got %q", message)
	}
}

func TestCouponAfterMutationDropsBelowMinimum(t *testing.T) {
	keep, message := couponAfterMutation(DefaultCoupons(), "FLAT100", 400)
	if keep {
		t.Fatal("expected coupon dropped below its minimum")
	}
	if !strings.Contains(message, "Coupon removed") {
		t.Fatalf("expected a removal reason, got %q", message)
	}
	if !strings.Contains(message, "500") {
		t.Fatalf("expected the reason to carry the minimum, got %q", message)
	}
}

func TestCouponAfterMutationDropsUnknownCode(t *testing.T) {
	keep, message := couponAfterMutation(CouponCatalog{}, "FLAT100", 600)
	if keep {
		t.Fatal("expected unknown code dropped")
	}
	if !strings.Contains(message, "Invalid coupon code") {
		t.Fatalf("expected invalid-code reason, got %q", message)
	}
}

func TestCouponAfterMutationNoCodeApplied(t *testing.T) {
	keep, message := couponAfterMutation(DefaultCoupons(), "", 600)
	if keep || message != "" {
		t.Fatalf("expected silent no-op without a code, got keep=%v message=%q", keep, message)
	}
}

func TestQuoteItemsConversion(t *testing.T) {
	items := []models.CartItem{
		{Price: 100, Quantity: 2},
		{Price: 50, Quantity: 1},
	}

	converted := quoteItems(items)
	if len(converted) != 2 {
		t.Fatalf("expected 2 quote items, got %d", len(converted))
	}
	if converted[0].Price != 100 || converted[0].Quantity != 2 {
		t.Fatalf("unexpected first quote item: %+v", converted[0])
	}
}

func TestStockLimitMessage(t *testing.T) {
	if got := stockLimitMessage(4); got != "Cannot add more than 4 items in stock" {
		t.Fatalf("unexpected message: %q", got)
	}
}

// The rejection happens before any database access, so both the new-line and
// the merge path are covered by the same guard.
func TestAddToCartRejectsNonPositiveQuantity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := AddToCart(nil, DefaultCoupons())

	tests := []struct {
		quantity    int
		wantMessage string
	}{
		{0, "Missing required fields"},
		{-2, "Quantity must be greater than zero"},
	}

	for _, tt := range tests {
		body := fmt.Sprintf(`{"productId":%q,"name":"Runner","price":1000,"quantity":%d,"maxStock":5}`,
			primitive.NewObjectID().Hex(), tt.quantity)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/cart/add", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("userId", primitive.NewObjectID())

		handler(c)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("quantity %d: expected 400, got %d", tt.quantity, w.Code)
		}
		if !strings.Contains(w.Body.String(), tt.wantMessage) {
			t.Fatalf("quantity %d: expected %q in response, got %s", tt.quantity, tt.wantMessage, w.Body.String())
		}
	}
}
