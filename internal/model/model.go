package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&Vehicle{},
	&VehicleState{},
	&LogEntry{},
	&RunPerformance{},
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Run is one recorded simulation session
type Run struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:127"`
	Map       string    `json:"map" gorm:"size:16"`
	Seed      int64     `json:"seed"`
	StartTime time.Time `json:"startTime" gorm:"type:timestamptz;index:idx_run_start_time"`
	EndTime   time.Time `json:"endTime" gorm:"type:timestamptz"` // zero until the run ends
}

func (*Run) TableName() string {
	return "runs"
}

// Vehicle is an agent registered in a run
// Uses composite primary key (RunID, VehicleID)
type Vehicle struct {
	RunID        string     `json:"runId" gorm:"primaryKey;size:36"`
	VehicleID    string     `json:"vehicleId" gorm:"primaryKey;size:32"`
	Run          Run        `gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt    time.Time  `json:"createdAt"`
	Start        geom.Point `json:"start"`       // Position when registered
	Destination  geom.Point `json:"destination"` // Last point of the initial route
	InitialSpeed float32    `json:"initialSpeed"`
	Battery      float32    `json:"battery"`      // Percentage when registered
	TirePressure float32    `json:"tirePressure"` // PSI when registered
	Mileage      float32    `json:"mileage"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// VehicleState tracks a vehicle at one tick
// References Vehicle by (RunID, VehicleID) composite FK
type VehicleState struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID     string    `json:"runId" gorm:"size:36;index:idx_vehiclestate_run_id"`
	Tick      uint      `json:"tick" gorm:"index:idx_vehiclestate_tick"`
	VehicleID string    `json:"vehicleId" gorm:"size:32;index:idx_vehiclestate_vehicle_id"`
	Vehicle   Vehicle   `gorm:"foreignkey:RunID,VehicleID;references:RunID,VehicleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Position     geom.Point     `json:"position"`
	Speed        float32        `json:"speed"`
	Battery      float32        `json:"battery"`
	TirePressure float32        `json:"tirePressure"`
	Mileage      float32        `json:"mileage"`
	RouteIndex   int32          `json:"routeIndex"`
	Route        datatypes.JSON `json:"route"`    // [{x,y},...]
	RouteWKT     string         `json:"routeWkt"` // LINESTRING of the route, empty for fewer than two points
	IsMoving     bool           `json:"isMoving" gorm:"default:false"`
	Decision     string         `json:"decision" gorm:"size:127"`
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}

// LogEntry is one line of the decision log
type LogEntry struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time  `json:"time" gorm:"type:timestamptz;"`
	RunID     string     `json:"runId" gorm:"size:36;index:idx_logentry_run_id"`
	Run       Run        `gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Seq       uint64     `json:"seq" gorm:"index:idx_logentry_seq"`
	VehicleID string     `json:"vehicleId" gorm:"size:32;index:idx_logentry_vehicle_id"` // empty for engine-wide entries
	Event     string     `json:"event" gorm:"size:64"`
	Details   string     `json:"details" gorm:"size:2000"`
	Position  geom.Point `json:"position"`
}

func (*LogEntry) TableName() string {
	return "log_entries"
}

////////////////////////
// PERFORMANCE
////////////////////////

// RunPerformance is a periodic health sample of the simulation
type RunPerformance struct {
	ID               uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time             time.Time      `json:"time" gorm:"type:timestamptz;index:idx_runperformance_time"`
	RunID            string         `json:"runId" gorm:"size:36;index:idx_runperformance_run_id"`
	Map              string         `json:"map" gorm:"size:16"`
	Tick             uint           `json:"tick"`
	Vehicles         uint16         `json:"vehicles"`
	Moving           uint16         `json:"moving"`
	Traffic          uint16         `json:"traffic"`
	Pedestrians      uint16         `json:"pedestrians"`
	WriteQueues      datatypes.JSON `json:"writeQueues"` // {"vehicle_states": 12, ...}
	StreamDropped    uint64         `json:"streamDropped"`
	RecorderFailures uint64         `json:"recorderFailures"`
	Reroutes         uint64         `json:"reroutes"`
	LastTickMs       float32        `json:"lastTickMs"`
}

func (*RunPerformance) TableName() string {
	return "run_performance"
}
