package economy

import (
	"github.com/talgya/finsim/internal/money"
)

// DownPaymentRate is the share of a vehicle's price paid up front.
const DownPaymentRate = 0.125

// DefaultLoanTerm is used when a vehicle decision names no term.
const DefaultLoanTerm = 36

// LoanTerms are the financing terms offered at the dealership.
var LoanTerms = []int{36, 60, 72}

// APRTiers maps credit scores to vehicle loan rates, best first.
var APRTiers = []struct {
	MinScore int
	APR      float64
}{
	{760, 0.045},
	{700, 0.065},
	{640, 0.090},
}

// SubprimeAPR applies below the lowest tier.
const SubprimeAPR = 0.140

// VehicleAPR returns the loan rate for a credit score.
func VehicleAPR(creditScore int) float64 {
	for _, t := range APRTiers {
		if creditScore >= t.MinScore {
			return t.APR
		}
	}
	return SubprimeAPR
}

// DownPayment returns floor(price × DownPaymentRate).
func DownPayment(price money.Cents) money.Cents {
	return money.Floor(price, DownPaymentRate)
}

// ValidTerm reports whether months is one of LoanTerms.
func ValidTerm(months int) bool {
	for _, t := range LoanTerms {
		if t == months {
			return true
		}
	}
	return false
}
