package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAssigned  OrderStatus = "assigned"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusInTransit OrderStatus = "in_transit"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAssigned,
	OrderStatusPickedUp,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusFailed,
	OrderStatusCancelled,
}

// ActiveOrderStatuses are the statuses that keep an order on its driver's route.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusAssigned,
	OrderStatusPickedUp,
	OrderStatusInTransit,
}

// IsValid checks whether the given status matches the canonical enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether an order in this status rides on the driver's route.
func (s OrderStatus) IsActive() bool {
	for _, candidate := range ActiveOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusFailed || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw strings into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
