package economy

import (
	"math"

	"github.com/railtycoon/server/pkg/core"
)

const (
	LineMaintenanceRate = 0.002
	// UnitMaintenanceKm is the nominal monthly mileage billed per unit.
	UnitMaintenanceKm = 1000
)

// Holdings is everything an owner is billed for at the end of a month.
type Holdings struct {
	OwnerID    string
	LineCosts  []int64
	Categories []Category
	Loans      []core.LoanRecord
}

// Settlement is the outcome of billing one owner. Loans holds the loans that
// remain outstanding after this month's installments.
type Settlement struct {
	Record core.SettlementRecord
	Loans  []core.LoanRecord
}

// Settle computes an owner's monthly bill. Balances are not consulted; an
// owner who cannot pay simply goes negative.
func Settle(h Holdings) Settlement {
	var lines, units float64
	for _, c := range h.LineCosts {
		lines += float64(c) * LineMaintenanceRate
	}
	for _, c := range h.Categories {
		units += float64(c.MaintenancePerKm) * UnitMaintenanceKm
	}

	s := Settlement{
		Record: core.SettlementRecord{
			OwnerID:         h.OwnerID,
			LineMaintenance: int64(math.Round(lines)),
			UnitMaintenance: int64(math.Round(units)),
		},
	}

	for _, l := range h.Loans {
		paid, next := PayInstallment(l)
		s.Record.LoanPayments += paid
		if next.Remaining > 0 {
			s.Loans = append(s.Loans, next)
		}
	}

	s.Record.Total = s.Record.LineMaintenance + s.Record.UnitMaintenance + s.Record.LoanPayments
	return s
}
