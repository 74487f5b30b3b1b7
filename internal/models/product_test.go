package models

import "testing"

func sampleProduct() Product {
	return Product{
		Name: "Court Classic",
		Variants: []Variant{
			{
				Color: "white",
				Sizes: []SizeEntry{
					{Size: 41, Stock: 3, Price: 1200},
					{Size: 42, Stock: 0, Price: 1200},
				},
			},
			{
				Color: "black",
				Sizes: []SizeEntry{
					{Size: 41, Stock: 5, Price: 1300},
				},
			},
		},
	}
}

func TestFindSizeMatchesColorAndSize(t *testing.T) {
	p := sampleProduct()

	entry := p.FindSize("black", 41)
	if entry == nil {
		t.Fatal("expected a size entry for black/41")
	}
	if entry.Price != 1300 || entry.Stock != 5 {
		t.Fatalf("wrong node selected: %+v", entry)
	}
}

func TestFindSizeMissingNode(t *testing.T) {
	p := sampleProduct()

	if p.FindSize("red", 41) != nil {
		t.Fatal("expected nil for unknown color")
	}
	if p.FindSize("white", 44) != nil {
		t.Fatal("expected nil for unknown size")
	}
}

func TestTotalStockSumsEveryNode(t *testing.T) {
	p := sampleProduct()

	if got := p.TotalStock(); got != 8 {
		t.Fatalf("expected total stock 8, got %d", got)
	}
}
