package economy

import (
	"math"

	"github.com/railtycoon/server/pkg/core"
)

const (
	passengerFare      = 2500
	passengerLoadShare = 100
	freightRate        = 1000
	freightLoadShare   = 500
	connectionBonus    = 0.1
	maxConnectionBonus = 1.0
)

// ArrivalRevenue is the income of one unit arriving at a terminal. connections
// counts the line connections of every terminal sharing the arrival site.
func ArrivalRevenue(cat Category, demand core.Demand, connections int) int64 {
	var revenue float64
	switch cat.Cargo {
	case core.CargoFreight:
		revenue = float64(demand.Freight) * float64(cat.Capacity) / freightLoadShare * freightRate
	default:
		revenue = float64(demand.Passenger) * float64(cat.Capacity) / passengerLoadShare * passengerFare
	}

	mult := cat.RevenueMultiplier
	if mult == 0 {
		mult = 1
	}
	revenue *= mult

	if connections > 0 {
		revenue *= 1 + math.Min(maxConnectionBonus, float64(connections)*connectionBonus)
	}

	return int64(math.Round(revenue))
}
