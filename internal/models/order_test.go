package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseOrderStatusRejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "PENDING", "unknown", "in_progress", "Pending "} {
		_, err := ParseOrderStatus(s)
		assert.Error(t, err, "status %q should be rejected", s)
	}

	got, err := ParseOrderStatus("on_the_way")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusOnTheWay, got)
}

func TestParsePaymentMethodRejectsUnknown(t *testing.T) {
	_, err := ParsePaymentMethod("paypal")
	assert.Error(t, err)

	m, err := ParsePaymentMethod("bkash")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodBkash, m)
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		actor    ActorRole
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, RoleRestaurant, true},
		{OrderStatusPending, OrderStatusConfirmed, RoleCustomer, false},
		{OrderStatusPending, OrderStatusCancelled, RoleCustomer, true},
		{OrderStatusConfirmed, OrderStatusCancelled, RoleCustomer, false},
		{OrderStatusConfirmed, OrderStatusCancelled, RoleAdmin, true},
		{OrderStatusPreparing, OrderStatusReady, RoleRestaurant, true},
		{OrderStatusReady, OrderStatusPickedUp, RoleRider, true},
		{OrderStatusReady, OrderStatusPickedUp, RoleRestaurant, false},
		{OrderStatusPickedUp, OrderStatusOnTheWay, RoleRider, true},
		{OrderStatusOnTheWay, OrderStatusDelivered, RoleRider, true},
		{OrderStatusDelivered, OrderStatusCancelled, RoleAdmin, false},
		{OrderStatusCancelled, OrderStatusConfirmed, RoleAdmin, false},
		{OrderStatusOnTheWay, OrderStatusCancelled, RoleAdmin, true},
		{OrderStatusOnTheWay, OrderStatusCancelled, RoleCustomer, false},
		{OrderStatusPending, OrderStatusReady, RoleRestaurant, false},
		{OrderStatusReady, OrderStatusDelivered, RoleRider, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to, c.actor),
			"%s -> %s by %s", c.from, c.to, c.actor)
	}
}

func TestOrderCheckTotals(t *testing.T) {
	o := &Order{
		OrderNumber: "KL-TEST-1",
		Subtotal:    50000,
		Discount:    3000,
		DeliveryFee: 4000,
		Tax:         2500,
		Total:       53500,
	}
	require.NoError(t, o.CheckTotals())

	o.Total = 53501
	assert.Error(t, o.CheckTotals())

	o.Total = 53500
	o.Discount = 60000
	assert.Error(t, o.CheckTotals(), "discount above subtotal")
}

func TestOrderItemLineTotal(t *testing.T) {
	item := OrderItem{
		MenuItemID: primitive.NewObjectID(),
		Name:       "Kacchi Biryani",
		UnitPrice:  35000,
		Quantity:   2,
		Customizations: []Customization{
			{Name: "Egg", Option: "extra", PriceDelta: 2000},
			{Name: "Borhani", Option: "none", PriceDelta: -1500},
		},
	}
	assert.Equal(t, int64((35000+2000-1500)*2), item.LineTotal())
}

func TestPromoDiscountFor(t *testing.T) {
	pct := &PromoCode{Code: "SAVE10", Type: PromoTypePercentage, Value: 10, MaxDiscount: 3000}
	assert.Equal(t, int64(3000), pct.DiscountFor(50000), "capped at max discount")
	assert.Equal(t, int64(2000), pct.DiscountFor(20000), "under the cap")

	uncapped := &PromoCode{Code: "SAVE10", Type: PromoTypePercentage, Value: 10}
	assert.Equal(t, int64(5000), uncapped.DiscountFor(50000))

	fixed := &PromoCode{Code: "FLAT50", Type: PromoTypeFixed, Value: 5000}
	assert.Equal(t, int64(5000), fixed.DiscountFor(50000))
	assert.Equal(t, int64(3000), fixed.DiscountFor(3000), "never exceeds order amount")
}
