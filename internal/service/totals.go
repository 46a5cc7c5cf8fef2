package service

import (
	"math"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// ComputeTotalAmount sums unitPrice*quantity over items in decimal.
// NaN or infinite prices and negative quantities count as zero.
func ComputeTotalAmount(items []domain.CartItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		price := item.UnitPrice
		if math.IsNaN(price) || math.IsInf(price, 0) {
			price = 0
		}
		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}
		total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))))
	}
	f, _ := total.Float64()
	return f
}
