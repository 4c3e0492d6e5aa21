// Package money implements currency primitives for the simulation.
//
// Amounts are whole cents held in the Cents type. Any arithmetic that can
// produce fractional cents is carried out in shopspring/decimal and rounded
// back to a whole cent at the point of computation, so fractional error is
// never accumulated across months.
package money

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegativePrincipal is returned when a loan principal is below zero.
	ErrNegativePrincipal = errors.New("money: principal must not be negative")

	// ErrInvalidTerm is returned when a loan term is shorter than one month.
	ErrInvalidTerm = errors.New("money: term must be at least one month")

	// ErrNegativeRate is returned when an annual rate is below zero.
	ErrNegativeRate = errors.New("money: apr must not be negative")
)

// MonthsPerYear converts annual rates to monthly ones.
const MonthsPerYear = 12

// Cents is an amount of money in minor units. It is a distinct type so raw
// integers cannot be mixed with currency without an explicit conversion.
type Cents int64

// Decimal returns the amount as a decimal number of cents.
func (c Cents) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(c)) }

// String formats the amount as whole dollars with thousands separators,
// for example "$1,235" for 123450 cents.
func (c Cents) String() string {
	dollars := c.Decimal().Div(decimal.NewFromInt(100)).Round(0).IntPart()
	if dollars < 0 {
		return "-$" + humanize.Comma(-dollars)
	}
	return "$" + humanize.Comma(dollars)
}

// Min returns the smaller of a and b.
func Min(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Cents) Cents {
	if a > b {
		return a
	}
	return b
}

// Round returns round(c × f1 × f2 × ...), halves rounded away from zero.
// Factors are converted to decimal one at a time, never multiplied as floats.
func Round(c Cents, factors ...float64) Cents {
	return Cents(scale(c, factors).Round(0).IntPart())
}

// Floor returns floor(c × f1 × f2 × ...).
func Floor(c Cents, factors ...float64) Cents {
	return Cents(scale(c, factors).Floor().IntPart())
}

func scale(c Cents, factors []float64) decimal.Decimal {
	d := c.Decimal()
	for _, f := range factors {
		d = d.Mul(decimal.NewFromFloat(f))
	}
	return d
}

// InterestForPeriod returns one month of interest on balance at the given
// annual rate: round(balance × apr / 12).
func InterestForPeriod(balance Cents, apr float64) Cents {
	monthly := balance.Decimal().
		Mul(decimal.NewFromFloat(apr)).
		Div(decimal.NewFromInt(MonthsPerYear))
	return Cents(monthly.Round(0).IntPart())
}

// MinimumPayment returns max(round(balance × percent), floor).
func MinimumPayment(balance Cents, percent float64, floor Cents) Cents {
	return Max(Round(balance, percent), floor)
}

// AmortizedPayment returns the fixed monthly payment that retires principal
// over termMonths at the given annual rate:
//
//	P × r × (1+r)^n / ((1+r)^n − 1),  r = apr/12
//
// A zero rate spreads the principal evenly, round(P / n).
func AmortizedPayment(principal Cents, apr float64, termMonths int) (Cents, error) {
	if principal < 0 {
		return 0, ErrNegativePrincipal
	}
	if termMonths < 1 {
		return 0, ErrInvalidTerm
	}
	if apr < 0 {
		return 0, ErrNegativeRate
	}

	p := principal.Decimal()
	n := decimal.NewFromInt(int64(termMonths))
	if apr == 0 {
		return Cents(p.Div(n).Round(0).IntPart()), nil
	}

	r := decimal.NewFromFloat(apr).Div(decimal.NewFromInt(MonthsPerYear))
	growth, err := decimal.NewFromInt(1).Add(r).PowInt32(int32(termMonths))
	if err != nil {
		return 0, err
	}
	payment := p.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return Cents(payment.Round(0).IntPart()), nil
}

// Debit takes amount out of cash. Whatever cash cannot cover is returned as
// shortfall; remaining never drops below zero.
func Debit(cash, amount Cents) (remaining, shortfall Cents) {
	if amount <= cash {
		return cash - amount, 0
	}
	if cash < 0 {
		cash = 0
	}
	return 0, amount - cash
}
