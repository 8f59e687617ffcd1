package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// seedInitiatedPayment creates a pending order with an initiated bkash
// payment carrying the given transaction reference.
func seedInitiatedPayment(t *testing.T, stack *testStack, txnRef string) (*models.Order, *models.Payment) {
	t.Helper()
	ctx := context.Background()

	order := &models.Order{
		OrderNumber:   utils.GenerateOrderNumber(),
		CustomerID:    primitive.NewObjectID(),
		RestaurantID:  primitive.NewObjectID(),
		Subtotal:      50000,
		DeliveryFee:   4000,
		Tax:           2500,
		Total:         56500,
		PaymentMethod: models.PaymentMethodBkash,
		PaymentStatus: models.OrderPaymentPending,
		Status:        models.OrderStatusPending,
	}
	require.NoError(t, stack.orderRepo.Create(ctx, order))
	require.NoError(t, stack.payments.CreateForOrder(ctx, order))

	pmt, err := stack.paymentRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	ok, err := stack.paymentRepo.MarkInitiated(ctx, pmt.ID, "bkash", txnRef)
	require.NoError(t, err)
	require.True(t, ok)

	pmt, err = stack.paymentRepo.GetByID(ctx, pmt.ID)
	require.NoError(t, err)
	return order, pmt
}

func TestReconcileAppliesSuccessAndCommitsPromo(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()

	require.NoError(t, stack.promoRepo.Create(ctx, &models.PromoCode{
		Code:       "SAVE10",
		Type:       models.PromoTypeFixed,
		Value:      3000,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(time.Hour),
		IsActive:   true,
		AppliesTo:  models.PromoScopeAll,
		UsageLimit: 10,
	}))

	order, _ := seedInitiatedPayment(t, stack, "txn-100")
	stack.orderRepo.mu.Lock()
	stack.orderRepo.orders[order.ID].PromoCode = "SAVE10"
	stack.orderRepo.orders[order.ID].Discount = 3000
	stack.orderRepo.mu.Unlock()

	result, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{
		Provider: "bkash",
		TxnRef:   "txn-100",
		Status:   "success",
		Raw:      []byte(`{"paymentID":"txn-100"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)

	stored, err := stack.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaymentPaid, stored.PaymentStatus)
	// The order itself does not move; only its payment settles.
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	promo, err := stack.promoRepo.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, promo.UsedCount)

	assert.Contains(t, stack.notifications.Events(), "payment_settled")
}

func TestReconcileDuplicateCallbackIsIgnored(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	seedInitiatedPayment(t, stack, "txn-dup")

	callback := &models.GatewayCallback{Provider: "bkash", TxnRef: "txn-dup", Status: "success"}

	first, err := stack.payments.Reconcile(ctx, callback)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)

	second, err := stack.payments.Reconcile(ctx, callback)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, second.Outcome)

	// No conflict was recorded for the harmless re-delivery.
	assert.Empty(t, stack.paymentRepo.conflicts)
}

func TestReconcileContradictionIsParkedAsConflict(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	_, pmt := seedInitiatedPayment(t, stack, "txn-con")

	_, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{Provider: "bkash", TxnRef: "txn-con", Status: "success"})
	require.NoError(t, err)

	result, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{Provider: "bkash", TxnRef: "txn-con", Status: "failed"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, result.Outcome)

	// The recorded state stands untouched.
	stored, err := stack.paymentRepo.GetByID(ctx, pmt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, stored.Status)

	require.Len(t, stack.paymentRepo.conflicts, 1)
	assert.Equal(t, "failed", stack.paymentRepo.conflicts[0].ReportedStatus)
	assert.Equal(t, models.PaymentStatusSuccess, stack.paymentRepo.conflicts[0].RecordedStatus)
}

// seedInitiatedCardPayment mirrors seedInitiatedPayment for the card
// rail, whose gateway reports payment-intent vocabulary.
func seedInitiatedCardPayment(t *testing.T, stack *testStack, txnRef string) *models.Order {
	t.Helper()
	ctx := context.Background()

	order := &models.Order{
		OrderNumber:   utils.GenerateOrderNumber(),
		CustomerID:    primitive.NewObjectID(),
		RestaurantID:  primitive.NewObjectID(),
		Subtotal:      50000,
		DeliveryFee:   4000,
		Tax:           2500,
		Total:         56500,
		PaymentMethod: models.PaymentMethodCard,
		PaymentStatus: models.OrderPaymentPending,
		Status:        models.OrderStatusPending,
	}
	require.NoError(t, stack.orderRepo.Create(ctx, order))
	require.NoError(t, stack.payments.CreateForOrder(ctx, order))

	pmt, err := stack.paymentRepo.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	ok, err := stack.paymentRepo.MarkInitiated(ctx, pmt.ID, "stripe", txnRef)
	require.NoError(t, err)
	require.True(t, ok)
	return order
}

func TestReconcileAcceptsStripeSucceeded(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order := seedInitiatedCardPayment(t, stack, "pi_123")

	result, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{
		Provider: "stripe",
		TxnRef:   "pi_123",
		Status:   "succeeded",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.Empty(t, stack.paymentRepo.conflicts)

	stored, err := stack.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaymentPaid, stored.PaymentStatus)
}

func TestReconcileAcceptsStripeCanceledAsFailure(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order := seedInitiatedCardPayment(t, stack, "pi_456")

	result, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{
		Provider: "stripe",
		TxnRef:   "pi_456",
		Status:   "canceled",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)

	stored, err := stack.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaymentFailed, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

// A storage failure while looking up the payment must surface as a
// retryable error, not fabricate a phantom-payment conflict.
func TestReconcileStorageFailureIsRetryableNotConflict(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	seedInitiatedPayment(t, stack, "txn-blip")

	stack.paymentRepo.mu.Lock()
	stack.paymentRepo.findErr = fmt.Errorf("connection reset by peer")
	stack.paymentRepo.mu.Unlock()

	_, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{
		Provider: "bkash",
		TxnRef:   "txn-blip",
		Status:   "success",
	})
	require.Error(t, err)
	assert.Empty(t, stack.paymentRepo.conflicts)

	// Once storage recovers the same callback applies cleanly.
	stack.paymentRepo.mu.Lock()
	stack.paymentRepo.findErr = nil
	stack.paymentRepo.mu.Unlock()

	result, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{
		Provider: "bkash",
		TxnRef:   "txn-blip",
		Status:   "success",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)
}

func TestReconcileUnknownReferenceIsConflict(t *testing.T) {
	stack := newTestStack()

	result, err := stack.payments.Reconcile(context.Background(), &models.GatewayCallback{
		Provider: "bkash",
		TxnRef:   "txn-ghost",
		Status:   "success",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, result.Outcome)
	require.Len(t, stack.paymentRepo.conflicts, 1)
}

func TestReconcileUnknownStatusIsConflict(t *testing.T) {
	stack := newTestStack()
	seedInitiatedPayment(t, stack, "txn-weird")

	result, err := stack.payments.Reconcile(context.Background(), &models.GatewayCallback{
		Provider: "bkash",
		TxnRef:   "txn-weird",
		Status:   "quantum",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, result.Outcome)
}

func TestReconcileFailureLeavesOrderAlive(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order, _ := seedInitiatedPayment(t, stack, "txn-fail")

	result, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{
		Provider: "bkash",
		TxnRef:   "txn-fail",
		Status:   "failed",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)

	stored, err := stack.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaymentFailed, stored.PaymentStatus)
	// A failed charge never cancels the order by itself.
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Contains(t, stack.notifications.Events(), "payment_failed")
}

// A success callback landing after the order was cancelled still
// settles the payment; the divergence is surfaced for ops review and
// never auto-resolved with a refund.
func TestReconcileSuccessAfterCancellationIsAppliedAndFlagged(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order, pmt := seedInitiatedPayment(t, stack, "txn-late")

	ok, err := stack.orderRepo.TransitionStatus(ctx, order.ID,
		models.OrderStatusPending, models.OrderStatusCancelled,
		models.StatusHistoryEntry{Status: models.OrderStatusCancelled, Actor: models.RoleCustomer}, nil)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := stack.payments.Reconcile(ctx, &models.GatewayCallback{
		Provider: "bkash",
		TxnRef:   "txn-late",
		Status:   "success",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, result.Outcome)

	stored, err := stack.paymentRepo.GetByID(ctx, pmt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, stored.Status)
	assert.Empty(t, stack.gateway.Refunds())

	orderStored, err := stack.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, orderStored.Status)
	assert.Equal(t, models.OrderPaymentPaid, orderStored.PaymentStatus)

	require.Len(t, stack.paymentRepo.conflicts, 1)
	assert.Contains(t, stack.paymentRepo.conflicts[0].Reason, "cancelled")
}

func TestRefundRequiresSettledPayment(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order, _ := seedInitiatedPayment(t, stack, "txn-norefund")

	err := stack.payments.RefundOrder(ctx, order.ID, "ops request", "admin")
	assert.ErrorIs(t, err, ErrPaymentNotRefundable)
}

func TestRefundSettledPayment(t *testing.T) {
	stack := newTestStack()
	ctx := context.Background()
	order, pmt := seedInitiatedPayment(t, stack, "txn-refund")

	_, err := stack.paymentRepo.SettleSuccess(ctx, pmt.ID, nil)
	require.NoError(t, err)

	require.NoError(t, stack.payments.RefundOrder(ctx, order.ID, "customer complaint", "admin"))

	stored, err := stack.paymentRepo.GetByID(ctx, pmt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, stored.Status)
	require.NotNil(t, stored.Refund)
	assert.Equal(t, pmt.Amount, stored.Refund.Amount)

	orderStored, err := stack.orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaymentRefunded, orderStored.PaymentStatus)
	assert.Contains(t, stack.notifications.Events(), "payment_refunded")
}
