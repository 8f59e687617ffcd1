package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string
type ActorRole string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusOnTheWay  OrderStatus = "on_the_way"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	RoleCustomer   ActorRole = "customer"
	RoleRestaurant ActorRole = "restaurant"
	RoleRider      ActorRole = "rider"
	RoleAdmin      ActorRole = "admin"
)

// ParseOrderStatus rejects unrecognized status strings instead of
// coercing them to a default. Unknown external data is an error here.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusPickedUp, OrderStatusOnTheWay,
		OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func ParseActorRole(s string) (ActorRole, error) {
	switch ActorRole(s) {
	case RoleCustomer, RoleRestaurant, RoleRider, RoleAdmin:
		return ActorRole(s), nil
	}
	return "", fmt.Errorf("unknown actor role %q", s)
}

// IsTerminal reports whether no further status transitions are permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type transitionKey struct {
	From OrderStatus
	To   OrderStatus
}

// orderTransitions is the sole source of truth for legal status changes
// and the actors permitted to trigger them. Admin cancellation from any
// non-terminal status is handled separately in AllowedActors.
var orderTransitions = map[transitionKey][]ActorRole{
	{OrderStatusPending, OrderStatusConfirmed}:   {RoleRestaurant},
	{OrderStatusPending, OrderStatusCancelled}:   {RoleCustomer, RoleRestaurant, RoleAdmin},
	{OrderStatusConfirmed, OrderStatusPreparing}: {RoleRestaurant},
	{OrderStatusConfirmed, OrderStatusCancelled}: {RoleRestaurant, RoleAdmin},
	{OrderStatusPreparing, OrderStatusReady}:     {RoleRestaurant},
	{OrderStatusReady, OrderStatusPickedUp}:      {RoleRider},
	{OrderStatusPickedUp, OrderStatusOnTheWay}:   {RoleRider},
	{OrderStatusOnTheWay, OrderStatusDelivered}:  {RoleRider},
}

// CanTransition reports whether actor may move an order from one status
// to another. Requests outside the table fail; there is no fallback.
func CanTransition(from, to OrderStatus, actor ActorRole) bool {
	if to == OrderStatusCancelled && actor == RoleAdmin && !from.IsTerminal() {
		return true
	}
	actors, ok := orderTransitions[transitionKey{From: from, To: to}]
	if !ok {
		return false
	}
	for _, a := range actors {
		if a == actor {
			return true
		}
	}
	return false
}

type OrderItem struct {
	MenuItemID     primitive.ObjectID `json:"menu_item_id" bson:"menu_item_id" validate:"required"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	UnitPrice      int64              `json:"unit_price" bson:"unit_price" validate:"gte=0"` // paisa
	Quantity       int                `json:"quantity" bson:"quantity" validate:"gte=1"`
	Customizations []Customization    `json:"customizations" bson:"customizations"`
}

type Customization struct {
	Name       string `json:"name" bson:"name"`
	Option     string `json:"option" bson:"option"`
	PriceDelta int64  `json:"price_delta" bson:"price_delta"` // paisa, may be negative
}

// LineTotal is the unit price plus customization deltas times quantity.
func (i OrderItem) LineTotal() int64 {
	unit := i.UnitPrice
	for _, c := range i.Customizations {
		unit += c.PriceDelta
	}
	return unit * int64(i.Quantity)
}

type DeliveryAddress struct {
	Label      string  `json:"label" bson:"label"`
	Street     string  `json:"street" bson:"street" validate:"required"`
	Area       string  `json:"area" bson:"area"`
	City       string  `json:"city" bson:"city" validate:"required"`
	PostalCode string  `json:"postal_code" bson:"postal_code"`
	Latitude   float64 `json:"latitude" bson:"latitude"`
	Longitude  float64 `json:"longitude" bson:"longitude"`
	Note       string  `json:"note" bson:"note"`
}

type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status" bson:"status"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
	Actor     ActorRole   `json:"actor" bson:"actor"`
	Note      string      `json:"note,omitempty" bson:"note,omitempty"`
}

type Order struct {
	ID                 primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	OrderNumber        string               `json:"order_number" bson:"order_number" validate:"required"`
	CustomerID         primitive.ObjectID   `json:"customer_id" bson:"customer_id" validate:"required"`
	RestaurantID       primitive.ObjectID   `json:"restaurant_id" bson:"restaurant_id" validate:"required"`
	RiderID            *primitive.ObjectID  `json:"rider_id" bson:"rider_id"`
	Items              []OrderItem          `json:"items" bson:"items" validate:"required,min=1,dive"`
	DeliveryAddress    DeliveryAddress      `json:"delivery_address" bson:"delivery_address" validate:"required"`
	Subtotal           int64                `json:"subtotal" bson:"subtotal"`           // paisa
	DeliveryFee        int64                `json:"delivery_fee" bson:"delivery_fee"`   // paisa
	Tax                int64                `json:"tax" bson:"tax"`                     // paisa
	Discount           int64                `json:"discount" bson:"discount"`           // paisa
	Total              int64                `json:"total" bson:"total"`                 // paisa
	PaymentMethod      PaymentMethod        `json:"payment_method" bson:"payment_method" validate:"required"`
	PaymentStatus      OrderPaymentStatus   `json:"payment_status" bson:"payment_status"`
	Status             OrderStatus          `json:"status" bson:"status"`
	StatusHistory      []StatusHistoryEntry `json:"status_history" bson:"status_history"`
	PromoCode          string               `json:"promo_code,omitempty" bson:"promo_code,omitempty"`
	CancellationReason string               `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CancelledBy        ActorRole            `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	Rating             *OrderRating         `json:"rating,omitempty" bson:"rating,omitempty"`
	RiderAssignedAt    *time.Time           `json:"rider_assigned_at" bson:"rider_assigned_at"`
	DeliveredAt        *time.Time           `json:"delivered_at" bson:"delivered_at"`
	CancelledAt        *time.Time           `json:"cancelled_at" bson:"cancelled_at"`
	CreatedAt          time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" bson:"updated_at"`
}

type OrderRating struct {
	Stars   int       `json:"stars" bson:"stars" validate:"gte=1,lte=5"`
	Comment string    `json:"comment,omitempty" bson:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at" bson:"rated_at"`
}

// CheckTotals verifies total == subtotal - discount + deliveryFee + tax
// and 0 <= discount <= subtotal.
func (o *Order) CheckTotals() error {
	if o.Subtotal < 0 || o.DeliveryFee < 0 || o.Tax < 0 || o.Discount < 0 {
		return fmt.Errorf("negative amount on order %s", o.OrderNumber)
	}
	if o.Discount > o.Subtotal {
		return fmt.Errorf("discount %d exceeds subtotal %d on order %s", o.Discount, o.Subtotal, o.OrderNumber)
	}
	if want := o.Subtotal - o.Discount + o.DeliveryFee + o.Tax; o.Total != want {
		return fmt.Errorf("total %d != %d on order %s", o.Total, want, o.OrderNumber)
	}
	return nil
}
