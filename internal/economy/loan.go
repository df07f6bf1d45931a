package economy

import (
	"errors"
	"fmt"
	"math"

	"github.com/railtycoon/server/pkg/core"
)

const MaxLoanPrincipal int64 = 10_000_000_000

const MaxLoanTermMonths = 360

var ErrInvalidLoan = errors.New("invalid loan terms")

// NewLoan creates an amortizing loan with a fixed monthly payment.
func NewLoan(id uint64, principal int64, termMonths int, annualRate float64) (core.LoanRecord, error) {
	if principal <= 0 || principal > MaxLoanPrincipal {
		return core.LoanRecord{}, fmt.Errorf("%w: principal %d outside 1..%d", ErrInvalidLoan, principal, MaxLoanPrincipal)
	}
	if termMonths < 1 || termMonths > MaxLoanTermMonths {
		return core.LoanRecord{}, fmt.Errorf("%w: term %d outside 1..%d months", ErrInvalidLoan, termMonths, MaxLoanTermMonths)
	}
	if annualRate < 0 || math.IsNaN(annualRate) {
		return core.LoanRecord{}, fmt.Errorf("%w: rate %f", ErrInvalidLoan, annualRate)
	}

	return core.LoanRecord{
		ID:             id,
		Principal:      principal,
		Remaining:      principal,
		MonthlyPayment: monthlyPayment(principal, termMonths, annualRate),
		AnnualRate:     annualRate,
		TermMonths:     termMonths,
	}, nil
}

func monthlyPayment(principal int64, termMonths int, annualRate float64) int64 {
	p, n := float64(principal), float64(termMonths)
	r := annualRate / 12
	if r == 0 {
		return int64(math.Ceil(p / n))
	}
	return int64(math.Ceil(p * r / (1 - math.Pow(1+r, -n))))
}

// PayInstallment charges one month of a loan. It returns the amount debited
// and the loan after the payment; the last installment clears the remainder.
func PayInstallment(l core.LoanRecord) (int64, core.LoanRecord) {
	if l.Remaining <= 0 {
		l.Remaining = 0
		return 0, l
	}

	interest := int64(math.Round(float64(l.Remaining) * l.AnnualRate / 12))
	due := l.Remaining + interest

	payment := l.MonthlyPayment
	if payment >= due || l.MonthsPaid+1 >= l.TermMonths {
		payment = due
	}

	l.Remaining = due - payment
	l.MonthsPaid++
	return payment, l
}

// Outstanding sums the remaining principal of a set of loans.
func Outstanding(loans []core.LoanRecord) int64 {
	var total int64
	for _, l := range loans {
		total += l.Remaining
	}
	return total
}
