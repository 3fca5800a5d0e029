package models

import (
	"time"

	"github.com/courierloop/courierloop-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stop is one leg endpoint of an order (pickup or delivery).
type Stop struct {
	Address      string     `gorm:"column:address;not null" json:"address"`
	LocationCode string     `gorm:"column:location_code;not null" json:"location_code"`
	Lat          float64    `gorm:"column:lat;not null" json:"lat"`
	Lon          float64    `gorm:"column:lon;not null" json:"lon"`
	ScheduledAt  *time.Time `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	ContactName  *string    `gorm:"column:contact_name" json:"contact_name,omitempty"`
	ContactPhone *string    `gorm:"column:contact_phone" json:"contact_phone,omitempty"`
}

// TrackingPoint mirrors the driver's last known position onto an order.
type TrackingPoint struct {
	Lat          float64    `gorm:"column:lat" json:"lat"`
	Lon          float64    `gorm:"column:lon" json:"lon"`
	LocationCode string     `gorm:"column:location_code" json:"location_code"`
	RecordedAt   *time.Time `gorm:"column:recorded_at" json:"recorded_at,omitempty"`
}

// Order is a single delivery request. Orders in an active status reference
// their driver's route aggregate instead of carrying a route copy.
type Order struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Reference string     `gorm:"column:reference;not null;uniqueIndex" json:"reference"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	DriverID  *uuid.UUID `gorm:"column:driver_id;type:uuid;index" json:"driver_id,omitempty"`
	RouteID   *uuid.UUID `gorm:"column:route_id;type:uuid;index" json:"route_id,omitempty"`

	Status enums.OrderStatus `gorm:"column:status;not null;default:pending;index" json:"status"`

	Pickup   Stop `gorm:"embedded;embeddedPrefix:pickup_" json:"pickup"`
	Delivery Stop `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery"`

	Tracking         TrackingPoint `gorm:"embedded;embeddedPrefix:tracking_" json:"tracking"`
	EstimatedArrival *time.Time    `gorm:"column:estimated_arrival" json:"estimated_arrival,omitempty"`
	ActualPickupAt   *time.Time    `gorm:"column:actual_pickup_at" json:"actual_pickup_at,omitempty"`
	ActualDeliveryAt *time.Time    `gorm:"column:actual_delivery_at" json:"actual_delivery_at,omitempty"`

	PackageDescription string          `gorm:"column:package_description;not null" json:"package_description"`
	PackageWeightKg    decimal.Decimal `gorm:"column:package_weight_kg;type:numeric(8,3)" json:"package_weight_kg"`

	BasePrice     decimal.Decimal `gorm:"column:base_price;type:numeric(10,2);not null" json:"base_price"`
	DistancePrice decimal.Decimal `gorm:"column:distance_price;type:numeric(10,2);not null" json:"distance_price"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(10,2);not null" json:"total_price"`

	CustomerNotes *string `gorm:"column:customer_notes" json:"customer_notes,omitempty"`
	DriverNotes   *string `gorm:"column:driver_notes" json:"driver_notes,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the id when the caller did not.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
