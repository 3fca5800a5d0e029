package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/courierloop/courierloop-backend/pkg/enums"
)

// StopInput is one leg endpoint supplied when creating an order.
type StopInput struct {
	Address      string     `json:"address" validate:"required"`
	Lat          float64    `json:"lat" validate:"min=-90,max=90"`
	Lon          float64    `json:"lon" validate:"min=-180,max=180"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	ContactName  *string    `json:"contact_name,omitempty"`
	ContactPhone *string    `json:"contact_phone,omitempty"`
}

// CreateInput captures a new delivery request.
type CreateInput struct {
	CustomerID         uuid.UUID
	Pickup             StopInput
	Delivery           StopInput
	PackageDescription string
	PackageWeightKg    float64
	CustomerNotes      *string
}

// AssignInput assigns a pending order to a driver.
type AssignInput struct {
	OrderID   uuid.UUID
	DriverID  uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.UserRole
}

// UpdateStatusInput drives the order state machine.
type UpdateStatusInput struct {
	OrderID   uuid.UUID
	Status    enums.OrderStatus
	ActorID   uuid.UUID
	ActorRole enums.UserRole
	Lat       *float64
	Lon       *float64
	Notes     *string
}
