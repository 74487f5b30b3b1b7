package handlers

import (
	"errors"
	"testing"
)

func TestComputeQuoteFreeDeliveryAboveThreshold(t *testing.T) {
	quote := ComputeQuote([]QuoteItem{{Price: 1000, Quantity: 2}}, nil)

	if quote.Subtotal != 2000 {
		t.Fatalf("expected subtotal 2000, got %v", quote.Subtotal)
	}
	if quote.Tax != 100 {
		t.Fatalf("expected tax 100, got %v", quote.Tax)
	}
	if quote.DeliveryFee != 0 {
		t.Fatalf("expected free delivery above 1000, got %v", quote.DeliveryFee)
	}
	if quote.Total != 2100 {
		t.Fatalf("expected total 2100, got %v", quote.Total)
	}
}

func TestComputeQuoteChargesDeliveryAtOrBelowThreshold(t *testing.T) {
	tests := []struct {
		name     string
		items    []QuoteItem
		delivery float64
	}{
		{"below threshold", []QuoteItem{{Price: 400, Quantity: 1}}, 50},
		{"exactly at threshold", []QuoteItem{{Price: 1000, Quantity: 1}}, 50},
		{"above threshold", []QuoteItem{{Price: 1001, Quantity: 1}}, 0},
	}

	for _, tt := range tests {
		quote := ComputeQuote(tt.items, nil)
		if quote.DeliveryFee != tt.delivery {
			t.Fatalf("%s: expected delivery %v, got %v", tt.name, tt.delivery, quote.DeliveryFee)
		}
	}
}

func TestComputeQuotePercentageCoupon(t *testing.T) {
	rule := CouponRule{Code: "SAVE10", Type: CouponPercentage, Value: 10}
	quote := ComputeQuote([]QuoteItem{{Price: 500, Quantity: 2}}, &rule)

	if quote.Discount != 100 {
		t.Fatalf("expected 10%% of 1000 = 100, got %v", quote.Discount)
	}
	// 1000 + 50 tax + 50 delivery (subtotal not above 1000) - 100
	if quote.Total != 1000 {
		t.Fatalf("expected total 1000, got %v", quote.Total)
	}
}

func TestComputeQuoteFlatCouponRespectsMinimum(t *testing.T) {
	rule := CouponRule{Code: "FLAT100", Type: CouponFlat, Value: 100, MinAmount: 500}

	under := ComputeQuote([]QuoteItem{{Price: 200, Quantity: 2}}, &rule)
	if under.Discount != 0 {
		t.Fatalf("expected no discount under the minimum, got %v", under.Discount)
	}

	over := ComputeQuote([]QuoteItem{{Price: 300, Quantity: 2}}, &rule)
	if over.Discount != 100 {
		t.Fatalf("expected flat 100 discount, got %v", over.Discount)
	}
}

func TestComputeQuoteClampsTotalAtZero(t *testing.T) {
	rule := CouponRule{Code: "HUGE", Type: CouponFlat, Value: 5000}
	quote := ComputeQuote([]QuoteItem{{Price: 100, Quantity: 1}}, &rule)

	if quote.Total != 0 {
		t.Fatalf("expected total clamped at 0, got %v", quote.Total)
	}
}

func TestComputeQuoteEmptyItems(t *testing.T) {
	quote := ComputeQuote(nil, nil)

	if quote.Subtotal != 0 || quote.Tax != 0 || quote.Discount != 0 {
		t.Fatalf("expected zero breakdown for empty items, got %+v", quote)
	}
	if quote.DeliveryFee != standardDelivery {
		t.Fatalf("expected standard delivery on empty cart, got %v", quote.DeliveryFee)
	}
}

func TestResolveUnknownCode(t *testing.T) {
	_, err := DefaultCoupons().Resolve("NOPE", 1000)

	var invalid invalidCouponError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalidCouponError, got %v", err)
	}
}

func TestResolveBelowMinimumCarriesThreshold(t *testing.T) {
	_, err := DefaultCoupons().Resolve("FLAT100", 499)

	var threshold couponThresholdError
	if !errors.As(err, &threshold) {
		t.Fatalf("expected couponThresholdError, got %v", err)
	}
	if threshold.MinAmount != 500 {
		t.Fatalf("expected threshold 500, got %v", threshold.MinAmount)
	}
}

func TestResolveValidCodes(t *testing.T) {
	catalog := DefaultCoupons()

	if _, err := catalog.Resolve("SAVE10", 0); err != nil {
		t.Fatalf("SAVE10 has no minimum, got %v", err)
	}
	if _, err := catalog.Resolve("FLAT100", 500); err != nil {
		t.Fatalf("FLAT100 at exactly its minimum should resolve, got %v", err)
	}
}
