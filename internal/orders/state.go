package orders

import "github.com/courierloop/courierloop-backend/pkg/enums"

// legalTransitions is the full order lifecycle. Terminal states have no
// outgoing edges, so any attempt to leave them fails.
var legalTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusAssigned, enums.OrderStatusCancelled},
	enums.OrderStatusAssigned:  {enums.OrderStatusPickedUp, enums.OrderStatusFailed},
	enums.OrderStatusPickedUp:  {enums.OrderStatusInTransit, enums.OrderStatusFailed},
	enums.OrderStatusInTransit: {enums.OrderStatusDelivered, enums.OrderStatusFailed},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
