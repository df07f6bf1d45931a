package economy

import (
	"math"
	"math/rand"

	"github.com/railtycoon/server/pkg/core"
)

const (
	DefaultDensity = 50.0 // people per km² when no data is available
	CatchmentKm2   = 2.0
	usageRate      = 0.01
	freightRatio   = 0.1
	minPassenger   = 50
	minFreight     = 10
)

func demandJitter(rng *rand.Rand) float64 {
	return 0.8 + rng.Float64()*0.4
}

// DemandFromDensity seeds terminal demand from the population living in its
// catchment, with ±20% noise.
func DemandFromDensity(density float64, rng *rand.Rand) core.Demand {
	if density <= 0 || math.IsNaN(density) {
		density = DefaultDensity
	}
	pop := density * CatchmentKm2

	passenger := int(math.Round(pop * usageRate * demandJitter(rng)))
	if passenger < minPassenger {
		passenger = minPassenger
	}
	freight := int(math.Round(float64(passenger) * freightRatio * demandJitter(rng)))
	if freight < minFreight {
		freight = minFreight
	}

	return core.Demand{Passenger: passenger, Freight: freight}
}
