package sim

import (
	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/pkg/core"
)

// Owner is a player company. Balance may go negative through monthly
// settlement, never through a command.
type Owner struct {
	ID                string
	Balance           int64
	ConstructionSpend int64
	Loans             []core.LoanRecord
}

func (o *Owner) charge(amount int64) error {
	if o.Balance < amount {
		return invalid(ReasonInsufficientFunds, "need %d, have %d", amount, o.Balance)
	}
	o.Balance -= amount
	return nil
}

func (o *Owner) Outstanding() int64 {
	return economy.Outstanding(o.Loans)
}

func (o *Owner) Record() core.OwnerRecord {
	rec := core.OwnerRecord{
		ID:                o.ID,
		Balance:           o.Balance,
		ConstructionSpend: o.ConstructionSpend,
	}
	if len(o.Loans) > 0 {
		rec.Loans = append([]core.LoanRecord(nil), o.Loans...)
	}
	return rec
}
