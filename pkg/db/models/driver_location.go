package models

import (
	"time"

	"github.com/google/uuid"
)

// DriverLocation holds a driver's last known position, one row per driver,
// overwritten on every location ping.
type DriverLocation struct {
	DriverID     uuid.UUID `gorm:"column:driver_id;type:uuid;primaryKey" json:"driver_id"`
	Lat          float64   `gorm:"column:lat;not null" json:"lat"`
	Lon          float64   `gorm:"column:lon;not null" json:"lon"`
	LocationCode string    `gorm:"column:location_code;not null" json:"location_code"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
