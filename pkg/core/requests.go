package core

// BuildTerminalRequest asks for a new terminal at Coord. Density is the
// population density (people/km²) around the site; zero selects the default.
type BuildTerminalRequest struct {
	OwnerID string       `json:"ownerId"`
	Name    string       `json:"name,omitempty"`
	Coord   LatLng       `json:"coord"`
	Kind    TerminalKind `json:"kind"`
	Density float64      `json:"density,omitempty"`
}

type UpgradeTerminalRequest struct {
	OwnerID    string `json:"ownerId"`
	TerminalID uint64 `json:"terminalId"`
	Tier       Tier   `json:"tier"`
}

type RenameTerminalRequest struct {
	OwnerID    string `json:"ownerId"`
	TerminalID uint64 `json:"terminalId"`
	Name       string `json:"name"`
}

type TerminalRequest struct {
	OwnerID    string `json:"ownerId"`
	TerminalID uint64 `json:"terminalId"`
}

// LineRequest describes a line by its route polyline. Every coordinate that
// coincides with a terminal makes that terminal a stop; both endpoints must
// be terminals.
type LineRequest struct {
	OwnerID string    `json:"ownerId"`
	Coords  []LatLng  `json:"coords"`
	Track   TrackType `json:"track"`
}

type LineIDRequest struct {
	OwnerID string `json:"ownerId"`
	LineID  uint64 `json:"lineId"`
}

type BuyUnitRequest struct {
	OwnerID  string `json:"ownerId"`
	LineID   uint64 `json:"lineId"`
	Category string `json:"category"`
}

type UnitRequest struct {
	OwnerID string `json:"ownerId"`
	UnitID  uint64 `json:"unitId"`
}

type AssignUnitRequest struct {
	OwnerID string `json:"ownerId"`
	UnitID  uint64 `json:"unitId"`
	LineID  uint64 `json:"lineId"`
}

type LoanRequest struct {
	OwnerID    string `json:"ownerId"`
	Principal  int64  `json:"principal"`
	TermMonths int    `json:"termMonths"`
}

// SegmentQuote is the priced breakdown of one route segment.
type SegmentQuote struct {
	LengthKm float64 `json:"lengthKm"`
	Grade    float64 `json:"grade"`
	Cost     int64   `json:"cost"`
}

// LineQuote is the construction price of a proposed line.
type LineQuote struct {
	Track    TrackType      `json:"track"`
	LengthKm float64        `json:"lengthKm"`
	Cost     int64          `json:"cost"`
	Segments []SegmentQuote `json:"segments"`
}

// Receipt reports the money moved by a demolition or sale.
type Receipt struct {
	Cost    int64 `json:"cost"`
	Refund  int64 `json:"refund"`
	Balance int64 `json:"balance"`
}

type RankingEntry struct {
	Rank    int    `json:"rank"`
	OwnerID string `json:"ownerId"`
	Score   int64  `json:"score"`
	Balance int64  `json:"balance"`
	Units   int    `json:"units"`
}
