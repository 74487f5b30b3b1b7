package handlers

import "fmt"

const (
	taxRate           = 0.05
	standardDelivery  = 50.0
	freeDeliveryAbove = 1000.0
)

// Coupon rule types.
const (
	CouponPercentage = "percentage"
	CouponFlat       = "flat"
)

// CouponRule is one entry in the coupon catalog.
type CouponRule struct {
	Code        string
	Type        string
	Value       float64
	MinAmount   float64
	Description string
}

// CouponCatalog maps code -> rule. Handlers receive a catalog value instead of
// reading a shared global, so tests can substitute their own rules.
type CouponCatalog map[string]CouponRule

// DefaultCoupons returns the fixed storefront catalog.
func DefaultCoupons() CouponCatalog {
	return CouponCatalog{
		"SAVE10": {
			Code:        "SAVE10",
			Type:        CouponPercentage,
			Value:       10,
			MinAmount:   0,
			Description: "10% discount",
		},
		"FLAT100": {
			Code:        "FLAT100",
			Type:        CouponFlat,
			Value:       100,
			MinAmount:   500,
			Description: "₹100 off (min ₹500)",
		},
	}
}

type invalidCouponError struct {
	Code string
}

func (e invalidCouponError) Error() string {
	return "Invalid coupon code"
}

type couponThresholdError struct {
	Code      string
	MinAmount float64
}

func (e couponThresholdError) Error() string {
	return fmt.Sprintf("Minimum purchase of ₹%.0f required", e.MinAmount)
}

// Resolve looks up code and checks it against subtotal. A missing code yields
// invalidCouponError, a known code under its minimum couponThresholdError.
func (cc CouponCatalog) Resolve(code string, subtotal float64) (CouponRule, error) {
	rule, ok := cc[code]
	if !ok {
		return CouponRule{}, invalidCouponError{Code: code}
	}
	if subtotal < rule.MinAmount {
		return CouponRule{}, couponThresholdError{Code: code, MinAmount: rule.MinAmount}
	}
	return rule, nil
}

// QuoteItem is the minimal view of a line the pricing math needs.
type QuoteItem struct {
	Price    float64
	Quantity int
}

// Quote is the full price breakdown for a set of lines.
type Quote struct {
	Subtotal    float64 `json:"subtotal"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"deliveryFee"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
}

// ComputeQuote derives the breakdown from the lines and an optional coupon
// rule. Callers resolve the rule first; a nil rule means no coupon. The total
// is clamped at zero in case a future rule could push it negative.
func ComputeQuote(items []QuoteItem, rule *CouponRule) Quote {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Price * float64(it.Quantity)
	}

	tax := subtotal * taxRate

	deliveryFee := standardDelivery
	if subtotal > freeDeliveryAbove {
		deliveryFee = 0
	}

	var discount float64
	if rule != nil && subtotal >= rule.MinAmount {
		switch rule.Type {
		case CouponPercentage:
			discount = subtotal * rule.Value / 100
		case CouponFlat:
			discount = rule.Value
		}
	}

	total := subtotal + tax + deliveryFee - discount
	if total < 0 {
		total = 0
	}

	return Quote{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		Discount:    discount,
		Total:       total,
	}
}
