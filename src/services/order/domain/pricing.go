package domain

import "github.com/shopspring/decimal"

// Pricing holds the business constants used to total an order.
type Pricing struct {
	FreeDeliveryThreshold float64
	DeliveryCharge        float64
	TaxRate               float64
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeDeliveryThreshold: 500,
		DeliveryCharge:        30,
		TaxRate:               0.05,
	}
}

type Totals struct {
	Subtotal       float64
	DeliveryCharge float64
	Tax            float64
	TotalAmount    float64
}

func LineTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).InexactFloat64()
}

// Calculate totals items. Tax is rounded to the nearest whole currency unit
// and TotalAmount is always the sum of the other three fields.
func (p Pricing) Calculate(items []OrderItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	delivery := decimal.NewFromFloat(p.DeliveryCharge)
	if subtotal.GreaterThanOrEqual(decimal.NewFromFloat(p.FreeDeliveryThreshold)) {
		delivery = decimal.Zero
	}
	tax := subtotal.Mul(decimal.NewFromFloat(p.TaxRate)).Round(0)

	t := Totals{
		Subtotal:       subtotal.InexactFloat64(),
		DeliveryCharge: delivery.InexactFloat64(),
		Tax:            tax.InexactFloat64(),
	}
	t.TotalAmount = t.Subtotal + t.DeliveryCharge + t.Tax
	return t
}
