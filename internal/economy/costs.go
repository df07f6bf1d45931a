package economy

import (
	"math"

	"github.com/railtycoon/server/pkg/core"
)

// StartingBalance is the money a newly registered owner receives.
const StartingBalance int64 = 5_000_000_000

const (
	UnitBaseCost      = 8_000_000
	DemolitionRate    = 0.1
	ExclusionRadiusKm = 0.5
)

var terminalCosts = map[core.TerminalKind]int64{
	core.KindRail: 50_000_000,
	core.KindAir:  200_000_000,
}

var railUpgradeCosts = map[core.Tier]int64{
	core.TierMedium: 30_000_000,
	core.TierLarge:  100_000_000,
}

// TerminalCost is the construction price of a new small terminal.
func TerminalCost(kind core.TerminalKind) int64 {
	return terminalCosts[kind]
}

// TerminalUpgradeCost returns the price of upgrading a terminal to tier.
// Airports cost three times as much as stations.
func TerminalUpgradeCost(kind core.TerminalKind, tier core.Tier) (int64, bool) {
	c, ok := railUpgradeCosts[tier]
	if !ok || !kind.Valid() {
		return 0, false
	}
	if kind == core.KindAir {
		c *= 3
	}
	return c, true
}

func TerminalDemolitionCost(kind core.TerminalKind) int64 {
	return int64(math.Round(float64(TerminalCost(kind)) * DemolitionRate))
}

func LineDemolitionCost(lineCost int64) int64 {
	return int64(math.Round(float64(lineCost) * DemolitionRate))
}

func UnitPurchaseCost(cat Category) int64 {
	return int64(math.Round(UnitBaseCost * cat.PurchaseMultiplier))
}

// UnitSaleValue is what a unit fetches when sold or scrapped with its line.
func UnitSaleValue(purchaseCost int64) int64 {
	return int64(math.Round(float64(purchaseCost) / 3))
}
