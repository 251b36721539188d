// Package pricing derives sale prices, margins, agent cost prices and loan
// repayments from a vehicle's stored pricing record. Every function is pure.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/models"
)

// DefaultCompanyMarginRate is the share of the gross spread the company keeps
// before an agent's cost price is set.
const DefaultCompanyMarginRate = 0.89

var ErrMarkupOutOfRange = errors.New("markup outside allowed range")

var hundred = decimal.NewFromInt(100)

type Breakdown struct {
	NetCost       decimal.Decimal `json:"netCost"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	GrossProfit   decimal.Decimal `json:"grossProfit"`
	MarginPercent decimal.Decimal `json:"marginPercent"`
}

func NetCost(invoiceCost, holdback, incentives decimal.Decimal) decimal.Decimal {
	return invoiceCost.Sub(holdback).Sub(incentives)
}

// SalePrice applies the markup fraction to the invoice cost and rounds to a
// whole currency unit.
func SalePrice(invoiceCost, markup decimal.Decimal) decimal.Decimal {
	return invoiceCost.Mul(decimal.NewFromInt(1).Add(markup)).Round(0)
}

func GrossProfit(salePrice, netCost decimal.Decimal) decimal.Decimal {
	return salePrice.Sub(netCost)
}

// MarginPercent is zero for a zero sale price.
func MarginPercent(grossProfit, salePrice decimal.Decimal) decimal.Decimal {
	if salePrice.IsZero() {
		return decimal.Zero
	}
	return grossProfit.Div(salePrice).Mul(hundred).Round(2)
}

func Calculate(p models.Pricing) Breakdown {
	net := NetCost(p.InvoiceCost, p.Holdback, p.Incentives)
	sale := SalePrice(p.InvoiceCost, p.CurrentMarkup)
	gross := GrossProfit(sale, net)
	return Breakdown{
		NetCost:       net,
		SalePrice:     sale,
		GrossProfit:   gross,
		MarginPercent: MarginPercent(gross, sale),
	}
}

// Apply returns p with its derived fields rewritten from the inputs.
func Apply(p models.Pricing) models.Pricing {
	b := Calculate(p)
	p.SalePrice = b.SalePrice
	p.NetCost = b.NetCost
	return p
}

// CheckMarkup enforces MinMarkup <= CurrentMarkup <= MaxMarkup. A zero bound
// is treated as unset.
func CheckMarkup(p models.Pricing) error {
	if !p.MinMarkup.IsZero() && p.CurrentMarkup.LessThan(p.MinMarkup) {
		return ErrMarkupOutOfRange
	}
	if !p.MaxMarkup.IsZero() && p.CurrentMarkup.GreaterThan(p.MaxMarkup) {
		return ErrMarkupOutOfRange
	}
	return nil
}

// AgentBreakdown is the full derivation of an agent's cost price. Only its
// View is ever sent to an agent.
type AgentBreakdown struct {
	GrossSpread    decimal.Decimal
	CompanyMargin  decimal.Decimal
	AgentCostPrice decimal.Decimal
	SalePrice      decimal.Decimal
	ProfitRoom     decimal.Decimal
}

// AgentPricing is what a sales agent sees for a vehicle.
type AgentPricing struct {
	AgentCostPrice decimal.Decimal `json:"agentCostPrice"`
	SalePrice      decimal.Decimal `json:"salePrice"`
	ProfitRoom     decimal.Decimal `json:"profitRoom"`
}

func Agent(invoiceCost, salePrice decimal.Decimal, companyMarginRate float64) AgentBreakdown {
	spread := salePrice.Sub(invoiceCost)
	margin := spread.Mul(decimal.NewFromFloat(companyMarginRate)).Round(0)
	cost := invoiceCost.Add(margin)
	return AgentBreakdown{
		GrossSpread:    spread,
		CompanyMargin:  margin,
		AgentCostPrice: cost,
		SalePrice:      salePrice,
		ProfitRoom:     salePrice.Sub(cost),
	}
}

func (b AgentBreakdown) View() AgentPricing {
	return AgentPricing{
		AgentCostPrice: b.AgentCostPrice,
		SalePrice:      b.SalePrice,
		ProfitRoom:     b.ProfitRoom,
	}
}

// ForAgent derives agent pricing from a vehicle's stored pricing record.
func ForAgent(p models.Pricing, companyMarginRate float64) AgentPricing {
	sale := p.SalePrice
	if sale.IsZero() {
		sale = SalePrice(p.InvoiceCost, p.CurrentMarkup)
	}
	return Agent(p.InvoiceCost, sale, companyMarginRate).View()
}
