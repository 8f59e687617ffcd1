package services

import (
	"context"
	"testing"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testStack struct {
	orderRepo     *fakeOrderRepo
	paymentRepo   *fakePaymentRepo
	promoRepo     *fakePromoRepo
	gateway       *fakeGateway
	notifications *recordingNotifications
	promoService  PromoService
	payments      PaymentService
	orders        OrderService
}

func newTestStack() *testStack {
	log := testLogger()
	orderRepo := newFakeOrderRepo()
	paymentRepo := newFakePaymentRepo()
	promoRepo := newFakePromoRepo()
	gateway := &fakeGateway{provider: "bkash"}
	notifications := &recordingNotifications{}

	promoService := NewPromoService(promoRepo, orderRepo, log)
	payments := NewPaymentService(paymentRepo, orderRepo, payment.NewRegistry(gateway), promoService, notifications, log)
	orders := NewOrderService(orderRepo, promoService, payments, notifications, nil, log)

	return &testStack{
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		promoRepo:     promoRepo,
		gateway:       gateway,
		notifications: notifications,
		promoService:  promoService,
		payments:      payments,
		orders:        orders,
	}
}

func sampleItems() []models.OrderItem {
	return []models.OrderItem{
		{
			MenuItemID: primitive.NewObjectID(),
			Name:       "Kacchi Biryani",
			UnitPrice:  45000,
			Quantity:   1,
		},
		{
			MenuItemID: primitive.NewObjectID(),
			Name:       "Borhani",
			UnitPrice:  5000,
			Quantity:   1,
		},
	}
}

func sampleAddress() models.DeliveryAddress {
	return models.DeliveryAddress{
		Street: "12 Mirpur Road",
		City:   "Dhaka",
	}
}

func TestCreateOrderComputesTotals(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()

	order, err := stack.orders.CreateOrder(ctx, &CreateOrderInput{
		CustomerID:      primitive.NewObjectID(),
		RestaurantID:    primitive.NewObjectID(),
		Items:           sampleItems(),
		DeliveryAddress: sampleAddress(),
		PaymentMethod:   "bkash",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50000), order.Subtotal)
	assert.Equal(t, int64(4000), order.DeliveryFee)
	assert.Equal(t, int64(2500), order.Tax)
	assert.Equal(t, int64(0), order.Discount)
	assert.Equal(t, int64(56500), order.Total)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.OrderPaymentPending, order.PaymentStatus)
	assert.NotEmpty(t, order.OrderNumber)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, models.OrderStatusPending, order.StatusHistory[0].Status)

	pmt, err := stack.paymentRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Total, pmt.Amount)
	assert.Equal(t, models.PaymentStatusPending, pmt.Status)

	assert.Contains(t, stack.notifications.Events(), "order_created")
}

func TestCreateOrderAppliesPromoWithoutConsumingIt(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()

	require.NoError(t, stack.promoRepo.Create(ctx, &models.PromoCode{
		Code:        "SAVE10",
		Type:        models.PromoTypePercentage,
		Value:       10,
		MaxDiscount: 3000,
		ValidFrom:   time.Now().Add(-time.Hour),
		ValidUntil:  time.Now().Add(time.Hour),
		IsActive:    true,
		AppliesTo:   models.PromoScopeAll,
		UsageLimit:  100,
	}))

	order, err := stack.orders.CreateOrder(ctx, &CreateOrderInput{
		CustomerID:      primitive.NewObjectID(),
		RestaurantID:    primitive.NewObjectID(),
		Items:           sampleItems(),
		DeliveryAddress: sampleAddress(),
		PaymentMethod:   "bkash",
		PromoCode:       "SAVE10",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3000), order.Discount)
	assert.Equal(t, int64(53500), order.Total)

	// Nothing is consumed until payment settles.
	promo, err := stack.promoRepo.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 0, promo.UsedCount)
}

func TestCreateOrderRejectsUnknownPaymentMethod(t *testing.T) {
	stack := newTestStack()

	_, err := stack.orders.CreateOrder(context.Background(), &CreateOrderInput{
		CustomerID:      primitive.NewObjectID(),
		RestaurantID:    primitive.NewObjectID(),
		Items:           sampleItems(),
		DeliveryAddress: sampleAddress(),
		PaymentMethod:   "barter",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown payment method")
}

func TestCreateOrderRejectsExpiredPromo(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()

	require.NoError(t, stack.promoRepo.Create(ctx, &models.PromoCode{
		Code:       "OLD",
		Type:       models.PromoTypeFixed,
		Value:      1000,
		ValidFrom:  time.Now().Add(-48 * time.Hour),
		ValidUntil: time.Now().Add(-24 * time.Hour),
		IsActive:   true,
		AppliesTo:  models.PromoScopeAll,
	}))

	_, err := stack.orders.CreateOrder(ctx, &CreateOrderInput{
		CustomerID:      primitive.NewObjectID(),
		RestaurantID:    primitive.NewObjectID(),
		Items:           sampleItems(),
		DeliveryAddress: sampleAddress(),
		PaymentMethod:   "cash_on_delivery",
		PromoCode:       "OLD",
	})

	var rejected *PromoRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, rejected.Reason, "expired")
}

func seedOrder(t *testing.T, stack *testStack, status models.OrderStatus, method models.PaymentMethod) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:   utils.GenerateOrderNumber(),
		CustomerID:    primitive.NewObjectID(),
		RestaurantID:  primitive.NewObjectID(),
		Items:         sampleItems(),
		Subtotal:      50000,
		DeliveryFee:   4000,
		Tax:           2500,
		Total:         56500,
		PaymentMethod: method,
		PaymentStatus: models.OrderPaymentPending,
		Status:        status,
	}
	require.NoError(t, stack.orderRepo.Create(context.Background(), order))
	return order
}

func TestTransitionStatusRestaurantConfirms(t *testing.T) {
	stack := newTestStack()
	order := seedOrder(t, stack, models.OrderStatusPending, models.PaymentMethodBkash)

	updated, err := stack.orders.TransitionStatus(context.Background(), order.ID,
		models.OrderStatusConfirmed, models.RoleRestaurant, order.RestaurantID, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)

	stored, err := stack.orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.StatusHistory, 1)
	assert.Equal(t, models.RoleRestaurant, stored.StatusHistory[0].Actor)
	assert.Contains(t, stack.notifications.Events(), "status_changed:confirmed")
}

func TestTransitionStatusRejectsWrongActor(t *testing.T) {
	stack := newTestStack()
	order := seedOrder(t, stack, models.OrderStatusPending, models.PaymentMethodBkash)

	_, err := stack.orders.TransitionStatus(context.Background(), order.ID,
		models.OrderStatusConfirmed, models.RoleCustomer, order.CustomerID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionStatusRejectsSkippingStates(t *testing.T) {
	stack := newTestStack()
	order := seedOrder(t, stack, models.OrderStatusPending, models.PaymentMethodBkash)

	_, err := stack.orders.TransitionStatus(context.Background(), order.ID,
		models.OrderStatusReady, models.RoleRestaurant, order.RestaurantID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCustomerCannotCancelAfterConfirmation(t *testing.T) {
	stack := newTestStack()
	order := seedOrder(t, stack, models.OrderStatusConfirmed, models.PaymentMethodBkash)

	_, err := stack.orders.CancelOrder(context.Background(), order.ID,
		models.RoleCustomer, order.CustomerID, "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdminCancelsFromAnyNonTerminalStatus(t *testing.T) {
	stack := newTestStack()
	order := seedOrder(t, stack, models.OrderStatusOnTheWay, models.PaymentMethodBkash)

	updated, err := stack.orders.CancelOrder(context.Background(), order.ID,
		models.RoleAdmin, primitive.NewObjectID(), "fraud review")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.Equal(t, models.RoleAdmin, updated.CancelledBy)
}

func TestCancelIsRejectedOnTerminalOrder(t *testing.T) {
	stack := newTestStack()
	order := seedOrder(t, stack, models.OrderStatusDelivered, models.PaymentMethodBkash)

	_, err := stack.orders.CancelOrder(context.Background(), order.ID,
		models.RoleAdmin, primitive.NewObjectID(), "too late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeliveredCashOrderSettlesPayment(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order := seedOrder(t, stack, models.OrderStatusOnTheWay, models.PaymentMethodCashOnDelivery)
	riderID := primitive.NewObjectID()
	stack.orderRepo.mu.Lock()
	stack.orderRepo.orders[order.ID].RiderID = &riderID
	stack.orderRepo.mu.Unlock()

	require.NoError(t, stack.payments.CreateForOrder(ctx, order))

	_, err := stack.orders.TransitionStatus(ctx, order.ID,
		models.OrderStatusDelivered, models.RoleRider, riderID, "")
	require.NoError(t, err)

	pmt, err := stack.paymentRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, pmt.Status)

	stored, err := stack.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaymentPaid, stored.PaymentStatus)
	assert.NotNil(t, stored.DeliveredAt)
	assert.Contains(t, stack.notifications.Events(), "payment_settled")
}

// Cancelling a paid order never refunds by itself; handing money back
// is a separate admin operation.
func TestCancelPaidOrderLeavesPaymentSettled(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order := seedOrder(t, stack, models.OrderStatusConfirmed, models.PaymentMethodBkash)

	require.NoError(t, stack.payments.CreateForOrder(ctx, order))
	pmt, err := stack.paymentRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	_, err = stack.paymentRepo.MarkInitiated(ctx, pmt.ID, "bkash", "txn-1")
	require.NoError(t, err)
	_, err = stack.paymentRepo.SettleSuccess(ctx, pmt.ID, nil)
	require.NoError(t, err)
	require.NoError(t, stack.orderRepo.SetPaymentStatus(ctx, order.ID, models.OrderPaymentPaid))

	updated, err := stack.orders.CancelOrder(ctx, order.ID, models.RoleRestaurant, order.RestaurantID, "out of stock")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)

	assert.Empty(t, stack.gateway.Refunds())
	stored, err := stack.paymentRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, stored.Status)

	// The explicit refund path still works afterwards.
	require.NoError(t, stack.payments.RefundOrder(ctx, order.ID, "customer complaint", "admin"))
	require.Len(t, stack.gateway.Refunds(), 1)
	assert.Equal(t, "txn-1", stack.gateway.Refunds()[0].TransactionRef)
}

func TestCancelReleasesAssignedRider(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order := seedOrder(t, stack, models.OrderStatusReady, models.PaymentMethodCashOnDelivery)
	riderID := primitive.NewObjectID()
	stack.orderRepo.mu.Lock()
	stack.orderRepo.orders[order.ID].RiderID = &riderID
	stack.orderRepo.mu.Unlock()

	updated, err := stack.orders.CancelOrder(ctx, order.ID, models.RoleAdmin, primitive.NewObjectID(), "restaurant closed")
	require.NoError(t, err)
	assert.Nil(t, updated.RiderID)

	stored, err := stack.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RiderID)
	assert.Nil(t, stored.RiderAssignedAt)
}

func TestRateOrderOnlyOnceAfterDelivery(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order := seedOrder(t, stack, models.OrderStatusDelivered, models.PaymentMethodCashOnDelivery)
	now := time.Now()
	stack.orderRepo.mu.Lock()
	stack.orderRepo.orders[order.ID].DeliveredAt = &now
	stack.orderRepo.mu.Unlock()

	require.NoError(t, stack.orders.RateOrder(ctx, order.ID, order.CustomerID, 5, "excellent"))

	err := stack.orders.RateOrder(ctx, order.ID, order.CustomerID, 1, "changed my mind")
	assert.ErrorIs(t, err, ErrNotRatable)
}

func TestRateOrderRejectsUndeliveredAndStrangers(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order := seedOrder(t, stack, models.OrderStatusPreparing, models.PaymentMethodCashOnDelivery)

	err := stack.orders.RateOrder(ctx, order.ID, order.CustomerID, 4, "")
	assert.ErrorIs(t, err, ErrNotRatable)

	err = stack.orders.RateOrder(ctx, order.ID, primitive.NewObjectID(), 4, "")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotRatable)
}
