package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PromoType string
type PromoScope string

const (
	PromoTypePercentage PromoType = "percentage"
	PromoTypeFixed      PromoType = "fixed"

	PromoScopeAll         PromoScope = "all"
	PromoScopeFirstOrder  PromoScope = "first_order"
	PromoScopeRestaurants PromoScope = "restaurants"
)

func ParsePromoType(s string) (PromoType, error) {
	switch PromoType(s) {
	case PromoTypePercentage, PromoTypeFixed:
		return PromoType(s), nil
	}
	return "", fmt.Errorf("unknown promo type %q", s)
}

func ParsePromoScope(s string) (PromoScope, error) {
	switch PromoScope(s) {
	case PromoScopeAll, PromoScopeFirstOrder, PromoScopeRestaurants:
		return PromoScope(s), nil
	}
	return "", fmt.Errorf("unknown promo scope %q", s)
}

type PromoCode struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Code           string               `json:"code" bson:"code" validate:"required,promo_code"`
	Title          string               `json:"title" bson:"title"`
	Type           PromoType            `json:"type" bson:"type" validate:"required"`
	Value          int64                `json:"value" bson:"value" validate:"gt=0"` // percent for percentage, paisa for fixed
	MinOrderAmount int64                `json:"min_order_amount" bson:"min_order_amount"` // paisa
	MaxDiscount    int64                `json:"max_discount" bson:"max_discount"`         // paisa, percentage type only, 0 = uncapped
	UsageLimit     int                  `json:"usage_limit" bson:"usage_limit"`           // 0 = unlimited
	PerUserLimit   int                  `json:"per_user_limit" bson:"per_user_limit"`     // 0 = unlimited
	UsedCount      int                  `json:"used_count" bson:"used_count"`
	ValidFrom      time.Time            `json:"valid_from" bson:"valid_from"`
	ValidUntil     time.Time            `json:"valid_until" bson:"valid_until"`
	IsActive       bool                 `json:"is_active" bson:"is_active"`
	AppliesTo      PromoScope           `json:"applies_to" bson:"applies_to"`
	RestaurantIDs  []primitive.ObjectID `json:"restaurant_ids,omitempty" bson:"restaurant_ids,omitempty"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" bson:"updated_at"`
}

// DiscountFor computes the discount in paisa for an order amount that
// already passed validation. Percentage discounts are capped at
// MaxDiscount when set; fixed discounts never exceed the order amount.
func (p *PromoCode) DiscountFor(orderAmount int64) int64 {
	var discount int64
	switch p.Type {
	case PromoTypePercentage:
		discount = orderAmount * p.Value / 100
		if p.MaxDiscount > 0 && discount > p.MaxDiscount {
			discount = p.MaxDiscount
		}
	case PromoTypeFixed:
		discount = p.Value
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	return discount
}

// PromoRedemption is one committed usage of a promo code. The unique
// (promo_id, order_id) index makes commitment idempotent per order;
// per-user counts are derived from these rows.
type PromoRedemption struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PromoID     primitive.ObjectID `json:"promo_id" bson:"promo_id"`
	Code        string             `json:"code" bson:"code"`
	UserID      primitive.ObjectID `json:"user_id" bson:"user_id"`
	OrderID     primitive.ObjectID `json:"order_id" bson:"order_id"`
	Discount    int64              `json:"discount" bson:"discount"` // paisa
	CommittedAt time.Time          `json:"committed_at" bson:"committed_at"`
}
