package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldotspots/zuco-motors/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	b := Calculate(models.Pricing{
		InvoiceCost:   dec("30000"),
		CurrentMarkup: dec("0.08"),
		Holdback:      dec("600"),
		Incentives:    dec("400"),
	})

	assert.True(t, dec("29000").Equal(b.NetCost), b.NetCost.String())
	assert.True(t, dec("32400").Equal(b.SalePrice), b.SalePrice.String())
	assert.True(t, dec("3400").Equal(b.GrossProfit), b.GrossProfit.String())
	assert.True(t, dec("10.49").Equal(b.MarginPercent), b.MarginPercent.String())
}

func TestSalePriceRoundsToWholeUnits(t *testing.T) {
	assert.True(t, dec("10755").Equal(SalePrice(dec("9999"), dec("0.0756"))))
}

func TestMarginPercentZeroSalePrice(t *testing.T) {
	assert.True(t, MarginPercent(dec("100"), decimal.Zero).IsZero())
}

func TestApplyRewritesDerivedFields(t *testing.T) {
	p := Apply(models.Pricing{
		InvoiceCost:   dec("10000"),
		CurrentMarkup: dec("0.1"),
		SalePrice:     dec("1"),
		NetCost:       dec("1"),
	})
	assert.True(t, dec("11000").Equal(p.SalePrice))
	assert.True(t, dec("10000").Equal(p.NetCost))
}

func TestAgentPricing(t *testing.T) {
	b := Agent(dec("10000"), dec("11000"), DefaultCompanyMarginRate)

	assert.True(t, dec("1000").Equal(b.GrossSpread))
	assert.True(t, dec("890").Equal(b.CompanyMargin))
	assert.True(t, dec("10890").Equal(b.AgentCostPrice))
	assert.True(t, dec("110").Equal(b.ProfitRoom))

	view := b.View()
	assert.True(t, view.AgentCostPrice.Equal(b.AgentCostPrice))
	assert.True(t, view.SalePrice.Equal(dec("11000")))
}

func TestForAgentDerivesMissingSalePrice(t *testing.T) {
	view := ForAgent(models.Pricing{InvoiceCost: dec("10000"), CurrentMarkup: dec("0.1")}, 0.89)
	assert.True(t, dec("10890").Equal(view.AgentCostPrice))
	assert.True(t, dec("110").Equal(view.ProfitRoom))
}

func TestCheckMarkup(t *testing.T) {
	p := models.Pricing{MinMarkup: dec("0.05"), MaxMarkup: dec("0.15"), CurrentMarkup: dec("0.1")}
	assert.NoError(t, CheckMarkup(p))

	p.CurrentMarkup = dec("0.2")
	assert.ErrorIs(t, CheckMarkup(p), ErrMarkupOutOfRange)

	p.CurrentMarkup = dec("0.01")
	assert.ErrorIs(t, CheckMarkup(p), ErrMarkupOutOfRange)

	assert.NoError(t, CheckMarkup(models.Pricing{CurrentMarkup: dec("0.5")}))
}

func TestMonthlyPayment(t *testing.T) {
	payment, err := MonthlyPayment(dec("20000"), dec("6"), 60)
	require.NoError(t, err)
	assert.True(t, dec("386.66").Equal(payment), payment.String())

	interest := TotalInterest(payment, 60, dec("20000"))
	assert.True(t, dec("3199.6").Equal(interest), interest.String())
}

func TestMonthlyPaymentZeroRate(t *testing.T) {
	payment, err := MonthlyPayment(dec("12000"), decimal.Zero, 48)
	require.NoError(t, err)
	assert.True(t, dec("250").Equal(payment))

	payment, err = MonthlyPayment(dec("20000"), decimal.Zero, 7)
	require.NoError(t, err)
	assert.True(t, dec("2857.14").Equal(payment), payment.String())
}

func TestMonthlyPaymentRejectsEmptyTerm(t *testing.T) {
	_, err := MonthlyPayment(dec("1000"), dec("5"), 0)
	assert.ErrorIs(t, err, ErrInvalidTerm)
}

func TestEstimate(t *testing.T) {
	est, err := Estimate(dec("20000"), dec("6"), 60)
	require.NoError(t, err)
	assert.True(t, dec("23199.6").Equal(est.TotalPaid), est.TotalPaid.String())
}

func TestSettle(t *testing.T) {
	s := Settle(SettlementInput{
		SalePrice:      dec("32400"),
		TradeInValue:   dec("5000"),
		NetCost:        dec("29000"),
		TaxRate:        dec("0.15"),
		DocumentFee:    dec("499"),
		CommissionRate: dec("0.03"),
	})

	assert.True(t, dec("27400").Equal(s.TaxableAmount))
	assert.True(t, dec("4110").Equal(s.Tax))
	assert.True(t, dec("32009").Equal(s.Total), s.Total.String())
	assert.True(t, dec("3400").Equal(s.GrossProfit))
	assert.True(t, dec("102").Equal(s.Commission))
}

func TestSettleTradeInAboveSalePrice(t *testing.T) {
	s := Settle(SettlementInput{
		SalePrice:    dec("1000"),
		TradeInValue: dec("2000"),
		TaxRate:      dec("0.15"),
		DocumentFee:  dec("499"),
	})
	assert.True(t, s.TaxableAmount.IsZero())
	assert.True(t, dec("499").Equal(s.Total))
}
