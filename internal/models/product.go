package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VariantImages holds the main product shot plus any alternate angles.
type VariantImages struct {
	Main string   `bson:"main" json:"main"`
	Sub  []string `bson:"sub" json:"sub"`
}

// SizeEntry is one purchasable size within a variant. Stock and price live
// here, not on the product: two colorways of the same shoe can differ in both.
type SizeEntry struct {
	Size  int     `bson:"size" json:"size"`
	Stock int     `bson:"stock" json:"stock"`
	Price float64 `bson:"price" json:"price"`
}

// Variant is one colorway of a product.
type Variant struct {
	Color     string        `bson:"color" json:"color"`
	ColorCode string        `bson:"colorCode" json:"colorCode"`
	Images    VariantImages `bson:"images" json:"images"`
	Sizes     []SizeEntry   `bson:"sizes" json:"sizes"`
}

type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Variants  []Variant          `bson:"variants" json:"variants"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FindSize returns the size entry for a (color, size) selection, or nil when
// the product carries no such node.
func (p *Product) FindSize(color string, size int) *SizeEntry {
	for vi := range p.Variants {
		if p.Variants[vi].Color != color {
			continue
		}
		for si := range p.Variants[vi].Sizes {
			if p.Variants[vi].Sizes[si].Size == size {
				return &p.Variants[vi].Sizes[si]
			}
		}
	}
	return nil
}

// TotalStock sums stock across every variant and size.
func (p *Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		for _, s := range v.Sizes {
			total += s.Stock
		}
	}
	return total
}
