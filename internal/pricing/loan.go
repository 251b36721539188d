package pricing

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var ErrInvalidTerm = errors.New("loan term must be at least one month")

// MonthlyPayment is the fixed-rate amortised repayment, rounded to cents.
// annualRate is a percentage (6 means 6%). A zero rate divides the principal
// evenly across the term.
func MonthlyPayment(loanAmount, annualRate decimal.Decimal, months int) (decimal.Decimal, error) {
	if months <= 0 {
		return decimal.Zero, ErrInvalidTerm
	}

	n := decimal.NewFromInt(int64(months))
	r, _ := annualRate.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(12)).Float64()
	if r == 0 {
		return loanAmount.Div(n).Round(2), nil
	}

	l, _ := loanAmount.Float64()
	growth := math.Pow(1+r, float64(months))
	payment := l * (r * growth) / (growth - 1)
	return decimal.NewFromFloat(payment).Round(2), nil
}

func TotalInterest(monthlyPayment decimal.Decimal, months int, loanAmount decimal.Decimal) decimal.Decimal {
	return monthlyPayment.Mul(decimal.NewFromInt(int64(months))).Sub(loanAmount)
}

type LoanEstimate struct {
	LoanAmount     decimal.Decimal `json:"loanAmount"`
	AnnualRate     decimal.Decimal `json:"annualRate"`
	TermMonths     int             `json:"termMonths"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	TotalInterest  decimal.Decimal `json:"totalInterest"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
}

func Estimate(loanAmount, annualRate decimal.Decimal, months int) (LoanEstimate, error) {
	payment, err := MonthlyPayment(loanAmount, annualRate, months)
	if err != nil {
		return LoanEstimate{}, err
	}
	interest := TotalInterest(payment, months, loanAmount)
	return LoanEstimate{
		LoanAmount:     loanAmount,
		AnnualRate:     annualRate,
		TermMonths:     months,
		MonthlyPayment: payment,
		TotalInterest:  interest,
		TotalPaid:      loanAmount.Add(interest),
	}, nil
}
