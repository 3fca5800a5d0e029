package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Waypoint is one ordered stop on a driver's route.
type Waypoint struct {
	OrderID      uuid.UUID `json:"order_id"`
	Sequence     int       `json:"sequence"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	LocationCode string    `json:"location_code"`
	Address      string    `json:"address"`
}

// DriverRoute is the single authoritative route aggregate for one driver.
// Every active order of that driver references this row; a refresh rewrites
// it in one transaction, so readers never observe a half-updated route.
type DriverRoute struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DriverID uuid.UUID `gorm:"column:driver_id;type:uuid;not null;uniqueIndex" json:"driver_id"`

	Waypoints []Waypoint `gorm:"column:waypoints;serializer:json" json:"waypoints"`
	Geometry  string     `gorm:"column:geometry" json:"geometry"`

	TotalDistanceKm     float64 `gorm:"column:total_distance_km;not null;default:0" json:"total_distance_km"`
	TotalDurationMin    float64 `gorm:"column:total_duration_min;not null;default:0" json:"total_duration_min"`
	AdjustedDurationMin float64 `gorm:"column:adjusted_duration_min;not null;default:0" json:"adjusted_duration_min"`

	LastOptimizedAt *time.Time `gorm:"column:last_optimized_at" json:"last_optimized_at,omitempty"`
	RefreshCount    int        `gorm:"column:refresh_count;not null;default:0" json:"refresh_count"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the id when the caller did not.
func (r *DriverRoute) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
