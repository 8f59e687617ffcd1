package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderEventType string

const (
	EventOrderCreated       OrderEventType = "order_created"
	EventOrderStatusChanged OrderEventType = "order_status_changed"
	EventRiderAssigned      OrderEventType = "rider_assigned"
	EventRiderCleared       OrderEventType = "rider_cleared"
	EventPaymentSettled     OrderEventType = "payment_settled"
	EventPaymentFailed      OrderEventType = "payment_failed"
	EventPaymentRefunded    OrderEventType = "payment_refunded"
)

// OrderEvent is what the fanout delivers to customer, restaurant and
// rider channels. Delivery is at-least-once with no cross-channel
// ordering; consumers de-duplicate by EventID.
type OrderEvent struct {
	EventID      string                 `json:"event_id"`
	Type         OrderEventType         `json:"type"`
	OrderID      primitive.ObjectID     `json:"order_id"`
	OrderNumber  string                 `json:"order_number"`
	CustomerID   primitive.ObjectID     `json:"customer_id"`
	RestaurantID primitive.ObjectID     `json:"restaurant_id"`
	RiderID      *primitive.ObjectID    `json:"rider_id,omitempty"`
	OldStatus    OrderStatus            `json:"old_status,omitempty"`
	NewStatus    OrderStatus            `json:"new_status,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}
