package pricing

import "github.com/shopspring/decimal"

// SettlementInput carries everything needed to close a sale.
type SettlementInput struct {
	SalePrice      decimal.Decimal
	TradeInValue   decimal.Decimal
	NetCost        decimal.Decimal
	TaxRate        decimal.Decimal
	DocumentFee    decimal.Decimal
	CommissionRate decimal.Decimal
}

type Settlement struct {
	TaxableAmount decimal.Decimal
	Tax           decimal.Decimal
	Fees          decimal.Decimal
	Total         decimal.Decimal
	GrossProfit   decimal.Decimal
	Commission    decimal.Decimal
}

// Settle computes the buyer's total and the commission owed on a sale. The
// trade-in reduces the taxable amount but never below zero.
func Settle(in SettlementInput) Settlement {
	taxable := in.SalePrice.Sub(in.TradeInValue)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := taxable.Mul(in.TaxRate).Round(2)
	gross := GrossProfit(in.SalePrice, in.NetCost)

	return Settlement{
		TaxableAmount: taxable,
		Tax:           tax,
		Fees:          in.DocumentFee,
		Total:         taxable.Add(tax).Add(in.DocumentFee),
		GrossProfit:   gross,
		Commission:    gross.Mul(in.CommissionRate).Round(2),
	}
}
