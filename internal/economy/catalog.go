// Package economy holds the pricing and revenue rules of the game. Everything
// here is a pure function of its inputs; the simulation applies the results.
package economy

import (
	"sort"

	"github.com/railtycoon/server/pkg/core"
)

// Category is a purchasable vehicle class.
type Category struct {
	Key                string         `json:"key"`
	Name               string         `json:"name"`
	MaxSpeedKmH        float64        `json:"maxSpeedKmH"`
	Capacity           int            `json:"capacity"`
	MaintenancePerKm   int64          `json:"maintenancePerKm"`
	Cargo              core.CargoKind `json:"cargo"`
	Color              string         `json:"color"`
	PurchaseMultiplier float64        `json:"purchaseMultiplier"`
	RevenueMultiplier  float64        `json:"revenueMultiplier"`
	// Track is the only track type the category runs on. Empty means any
	// conventional rail track.
	Track core.TrackType `json:"track,omitempty"`
}

// SpeedKmPerSecond converts the category top speed to km per game-second.
func (c Category) SpeedKmPerSecond() float64 {
	return c.MaxSpeedKmH / 3600
}

// CompatibleWith reports whether the category may run on a track type.
func (c Category) CompatibleWith(track core.TrackType) bool {
	if c.Track != "" {
		return c.Track == track
	}
	return track != core.TrackLinear && track != core.TrackAir
}

var categories = map[string]Category{
	"COMMUTER":           {Key: "COMMUTER", Name: "Commuter", MaxSpeedKmH: 100, Capacity: 500, MaintenancePerKm: 400, Cargo: core.CargoPassenger, Color: "#008000", PurchaseMultiplier: 1.0, RevenueMultiplier: 1.0},
	"EXPRESS":            {Key: "EXPRESS", Name: "Express", MaxSpeedKmH: 160, Capacity: 600, MaintenancePerKm: 700, Cargo: core.CargoPassenger, Color: "#FF0000", PurchaseMultiplier: 1.5, RevenueMultiplier: 1.0},
	"SHINKANSEN":         {Key: "SHINKANSEN", Name: "Shinkansen", MaxSpeedKmH: 300, Capacity: 1000, MaintenancePerKm: 1500, Cargo: core.CargoPassenger, Color: "#00BFFF", PurchaseMultiplier: 5.0, RevenueMultiplier: 1.0},
	"LINEAR":             {Key: "LINEAR", Name: "Maglev", MaxSpeedKmH: 500, Capacity: 800, MaintenancePerKm: 3000, Cargo: core.CargoPassenger, Color: "#FF00FF", PurchaseMultiplier: 10.0, RevenueMultiplier: 1.0, Track: core.TrackLinear},
	"LOCAL_FREIGHT":      {Key: "LOCAL_FREIGHT", Name: "Local freight", MaxSpeedKmH: 75, Capacity: 1500, MaintenancePerKm: 300, Cargo: core.CargoFreight, Color: "#8B4513", PurchaseMultiplier: 1.2, RevenueMultiplier: 1.0},
	"HIGH_SPEED_FREIGHT": {Key: "HIGH_SPEED_FREIGHT", Name: "High-speed freight", MaxSpeedKmH: 120, Capacity: 1000, MaintenancePerKm: 500, Cargo: core.CargoFreight, Color: "#A0522D", PurchaseMultiplier: 2.0, RevenueMultiplier: 1.0},
	"SLEEPER":            {Key: "SLEEPER", Name: "Sleeper", MaxSpeedKmH: 110, Capacity: 200, MaintenancePerKm: 800, Cargo: core.CargoPassenger, Color: "#4B0082", PurchaseMultiplier: 3.0, RevenueMultiplier: 2.0},
	"TRAM":               {Key: "TRAM", Name: "Tram", MaxSpeedKmH: 50, Capacity: 150, MaintenancePerKm: 100, Cargo: core.CargoPassenger, Color: "#808080", PurchaseMultiplier: 0.5, RevenueMultiplier: 1.0},
	"TOURIST":            {Key: "TOURIST", Name: "Tourist", MaxSpeedKmH: 80, Capacity: 300, MaintenancePerKm: 500, Cargo: core.CargoPassenger, Color: "#FFD700", PurchaseMultiplier: 1.8, RevenueMultiplier: 2.5},
	"HEAVY_FREIGHT":      {Key: "HEAVY_FREIGHT", Name: "Heavy freight", MaxSpeedKmH: 60, Capacity: 3000, MaintenancePerKm: 450, Cargo: core.CargoFreight, Color: "#696969", PurchaseMultiplier: 1.5, RevenueMultiplier: 1.0},
	"INTERCITY":          {Key: "INTERCITY", Name: "Intercity", MaxSpeedKmH: 200, Capacity: 750, MaintenancePerKm: 1000, Cargo: core.CargoPassenger, Color: "#FFA500", PurchaseMultiplier: 3.0, RevenueMultiplier: 1.0},
	"SUBWAY":             {Key: "SUBWAY", Name: "Subway", MaxSpeedKmH: 90, Capacity: 400, MaintenancePerKm: 350, Cargo: core.CargoPassenger, Color: "#4682B4", PurchaseMultiplier: 0.8, RevenueMultiplier: 1.0},
	"MIXED_CARGO":        {Key: "MIXED_CARGO", Name: "Mixed cargo", MaxSpeedKmH: 90, Capacity: 1000, MaintenancePerKm: 400, Cargo: core.CargoFreight, Color: "#556B2F", PurchaseMultiplier: 1.3, RevenueMultiplier: 1.0},
	"REGIONAL_JET":       {Key: "REGIONAL_JET", Name: "Regional jet", MaxSpeedKmH: 700, Capacity: 80, MaintenancePerKm: 2000, Cargo: core.CargoPassenger, Color: "#1E90FF", PurchaseMultiplier: 4.0, RevenueMultiplier: 1.0, Track: core.TrackAir},
	"AIRLINER":           {Key: "AIRLINER", Name: "Airliner", MaxSpeedKmH: 850, Capacity: 180, MaintenancePerKm: 3500, Cargo: core.CargoPassenger, Color: "#000080", PurchaseMultiplier: 8.0, RevenueMultiplier: 1.0, Track: core.TrackAir},
	"CARGO_JET":          {Key: "CARGO_JET", Name: "Cargo jet", MaxSpeedKmH: 800, Capacity: 100, MaintenancePerKm: 3000, Cargo: core.CargoFreight, Color: "#2F4F4F", PurchaseMultiplier: 7.0, RevenueMultiplier: 1.0, Track: core.TrackAir},
}

// LookupCategory returns the category registered under key.
func LookupCategory(key string) (Category, bool) {
	c, ok := categories[key]
	return c, ok
}

// Categories returns the full catalog ordered by key.
func Categories() []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

var trackMultipliers = map[core.TrackType]float64{
	core.TrackSingle: 1.0,
	core.TrackDouble: 1.8,
	core.TrackLinear: 5.0,
	core.TrackTram:   0.8,
	core.TrackAir:    0.2,
}

// TrackMultiplier returns the construction cost multiplier of a track type.
func TrackMultiplier(track core.TrackType) (float64, bool) {
	m, ok := trackMultipliers[track]
	return m, ok
}

// LineColors is the palette lines are painted from, indexed by line id.
var LineColors = []string{"#E4007F", "#009933", "#0000FF", "#FFCC00", "#FF6600", "#9900CC"}

func LineColor(lineID uint64) string {
	return LineColors[lineID%uint64(len(LineColors))]
}

type terminalClass struct {
	capacity int
	dwell    float64 // game seconds
}

var terminalClasses = map[core.TerminalKind]map[core.Tier]terminalClass{
	core.KindRail: {
		core.TierSmall:  {capacity: 3, dwell: 30},
		core.TierMedium: {capacity: 5, dwell: 40},
		core.TierLarge:  {capacity: 10, dwell: 50},
	},
	core.KindAir: {
		core.TierSmall:  {capacity: 2, dwell: 60},
		core.TierMedium: {capacity: 4, dwell: 90},
		core.TierLarge:  {capacity: 8, dwell: 120},
	},
}

// TerminalCapacity is the number of units a terminal can hold at once.
// Unknown classes have capacity zero.
func TerminalCapacity(kind core.TerminalKind, tier core.Tier) int {
	return terminalClasses[kind][tier].capacity
}

// TerminalDwell is how long, in game seconds, a unit stops at a terminal.
func TerminalDwell(kind core.TerminalKind, tier core.Tier) float64 {
	return terminalClasses[kind][tier].dwell
}
