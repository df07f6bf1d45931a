package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// SnapshotModels are the tables holding a persisted world. They are
// replaced as a whole on every save.
var SnapshotModels = []interface{}{
	&WorldStat{},
	&Owner{},
	&Loan{},
	&Terminal{},
	&Line{},
	&Unit{},
}

// DatabaseModels is every table the server migrates.
var DatabaseModels = append(append([]interface{}{}, SnapshotModels...), &EnginePerformance{})

// WorldStat is the single row carrying the clock and id counters.
type WorldStat struct {
	ID                     uint      `json:"id" gorm:"primarykey"`
	GameTime               time.Time `json:"gameTime"`
	TimeScale              float64   `json:"timeScale"`
	NextTerminalID         uint64    `json:"nextTerminalId"`
	NextLineID             uint64    `json:"nextLineId"`
	NextUnitID             uint64    `json:"nextUnitId"`
	NextLoanID             uint64    `json:"nextLoanId"`
	LastMonthlyMaintenance int64     `json:"lastMonthlyMaintenance"`
	SavedAt                time.Time `json:"savedAt"`
}

func (*WorldStat) TableName() string {
	return "world_stats"
}

type Owner struct {
	ID                string `json:"id" gorm:"primarykey;size:64"`
	Balance           int64  `json:"balance"`
	ConstructionSpend int64  `json:"constructionSpend"`
}

func (*Owner) TableName() string {
	return "owners"
}

type Loan struct {
	ID             uint64  `json:"id" gorm:"primarykey;autoIncrement:false"`
	OwnerID        string  `json:"ownerId" gorm:"size:64;index:idx_loan_owner_id"`
	Principal      int64   `json:"principal"`
	Remaining      int64   `json:"remaining"`
	MonthlyPayment int64   `json:"monthlyPayment"`
	AnnualRate     float64 `json:"annualRate"`
	TermMonths     int     `json:"termMonths"`
	MonthsPaid     int     `json:"monthsPaid"`
}

func (*Loan) TableName() string {
	return "loans"
}

// Terminal is a station or airport. Lines holds the ids of connected lines
// as a JSON array.
type Terminal struct {
	ID        uint64         `json:"id" gorm:"primarykey;autoIncrement:false"`
	OwnerID   string         `json:"ownerId" gorm:"size:64;index:idx_terminal_owner_id"`
	Name      string         `json:"name" gorm:"size:64"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Kind      string         `json:"kind" gorm:"size:8"`
	Tier      string         `json:"tier" gorm:"size:8"`
	Passenger int            `json:"passenger"`
	Freight   int            `json:"freight"`
	Lines     datatypes.JSON `json:"lines"`
}

func (*Terminal) TableName() string {
	return "terminals"
}

// Line is a built line. Coords is the WGS84 polyline as JSON; Geometry is
// the same polyline projected to EPSG:3857 and encoded as WKB for GIS tools.
type Line struct {
	ID          uint64         `json:"id" gorm:"primarykey;autoIncrement:false"`
	OwnerID     string         `json:"ownerId" gorm:"size:64;index:idx_line_owner_id"`
	Track       string         `json:"track" gorm:"size:16"`
	Coords      datatypes.JSON `json:"coords"`
	TerminalIDs datatypes.JSON `json:"terminalIds"`
	Cost        int64          `json:"cost"`
	Color       string         `json:"color" gorm:"size:16"`
	LengthKm    float64        `json:"lengthKm"`
	Geometry    []byte         `json:"-"`
}

func (*Line) TableName() string {
	return "lines"
}

type Unit struct {
	ID           uint64  `json:"id" gorm:"primarykey;autoIncrement:false"`
	LineID       uint64  `json:"lineId" gorm:"index:idx_unit_line_id"`
	OwnerID      string  `json:"ownerId" gorm:"size:64;index:idx_unit_owner_id"`
	Category     string  `json:"category" gorm:"size:32"`
	PurchaseCost int64   `json:"purchaseCost"`
	PositionKm   float64 `json:"positionKm"`
	State        string  `json:"state" gorm:"size:16"`
	Reversed     bool    `json:"reversed"`
	StopTimer    float64 `json:"stopTimer"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

func (*Unit) TableName() string {
	return "units"
}

// Snapshot groups the rows of one persisted world.
type Snapshot struct {
	Stats     WorldStat
	Owners    []Owner
	Loans     []Loan
	Terminals []Terminal
	Lines     []Line
	Units     []Unit
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// EnginePerformance is a periodic health sample of the tick loop.
type EnginePerformance struct {
	ID             uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time `json:"time" gorm:"index:idx_engineperf_time"`
	Tick           uint64    `json:"tick"`
	GameTime       time.Time `json:"gameTime"`
	TickDurationMs float64   `json:"tickDurationMs"`
	CommandBacklog int       `json:"commandBacklog"`
	Owners         int       `json:"owners"`
	Terminals      int       `json:"terminals"`
	Lines          int       `json:"lines"`
	Units          int       `json:"units"`
}

func (*EnginePerformance) TableName() string {
	return "engine_performances"
}
