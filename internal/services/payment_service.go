package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/logger"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReconcileOutcome classifies what the reconciler did with a gateway
// callback.
type ReconcileOutcome string

const (
	// OutcomeApplied: the callback moved the payment to a terminal state.
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeIgnored: a duplicate of an already-recorded terminal state.
	OutcomeIgnored ReconcileOutcome = "ignored"
	// OutcomeConflict: the callback contradicts recorded state; parked
	// for operational review, nothing was changed.
	OutcomeConflict ReconcileOutcome = "conflict"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome `json:"outcome"`
	Payment *models.Payment  `json:"payment,omitempty"`
}

// PaymentService owns payment records and the reconciliation of gateway
// callbacks. Callbacks are at-least-once and unordered, so every
// decision here is idempotent: re-delivery of an applied callback is
// Ignored, contradiction is Conflict, and only fresh terminal news is
// Applied.
type PaymentService interface {
	CreateForOrder(ctx context.Context, order *models.Order) error
	GetByOrder(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error)

	// InitiatePayment opens a charge on the gateway matching the order's
	// payment method and records the transaction reference.
	InitiatePayment(ctx context.Context, order *models.Order, callbackURL string) (*payment.InitiateResponse, error)

	Reconcile(ctx context.Context, callback *models.GatewayCallback) (*ReconcileResult, error)
	SettleCashOnDelivery(ctx context.Context, order *models.Order) error
	RefundOrder(ctx context.Context, orderID primitive.ObjectID, reason, refundedBy string) error

	ListConflicts(ctx context.Context, params *utils.PaginationParams) ([]*models.ConflictReview, int64, error)
}

type paymentService struct {
	paymentRepo   interfaces.PaymentRepository
	orderRepo     interfaces.OrderRepository
	gateways      *payment.Registry
	promoService  PromoService
	notifications NotificationService
	logger        *logger.Logger
}

func NewPaymentService(
	paymentRepo interfaces.PaymentRepository,
	orderRepo interfaces.OrderRepository,
	gateways *payment.Registry,
	promoService PromoService,
	notifications NotificationService,
	log *logger.Logger,
) PaymentService {
	return &paymentService{
		paymentRepo:   paymentRepo,
		orderRepo:     orderRepo,
		gateways:      gateways,
		promoService:  promoService,
		notifications: notifications,
		logger:        log,
	}
}

func (s *paymentService) CreateForOrder(ctx context.Context, order *models.Order) error {
	pmt := &models.Payment{
		OrderID:  order.ID,
		Amount:   order.Total,
		Currency: utils.DefaultCurrency,
		Method:   order.PaymentMethod,
		Status:   models.PaymentStatusPending,
	}
	return s.paymentRepo.Create(ctx, pmt)
}

func (s *paymentService) GetByOrder(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	return s.paymentRepo.GetByOrderID(ctx, orderID)
}

func (s *paymentService) InitiatePayment(ctx context.Context, order *models.Order, callbackURL string) (*payment.InitiateResponse, error) {
	if order.PaymentMethod == models.PaymentMethodCashOnDelivery {
		return nil, fmt.Errorf("cash on delivery does not use a gateway")
	}

	pmt, err := s.paymentRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if pmt.Status != models.PaymentStatusPending {
		return nil, fmt.Errorf("payment already %s", pmt.Status)
	}

	client, ok := s.gateways.Get(providerFor(order.PaymentMethod))
	if !ok {
		return nil, fmt.Errorf("no gateway configured for %s", order.PaymentMethod)
	}

	resp, err := client.InitiatePayment(ctx, &payment.InitiateRequest{
		OrderNumber: order.OrderNumber,
		Amount:      pmt.Amount,
		Currency:    pmt.Currency,
		CustomerID:  order.CustomerID.Hex(),
		CallbackURL: callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway initiation failed: %w", err)
	}

	marked, err := s.paymentRepo.MarkInitiated(ctx, pmt.ID, client.Provider(), resp.TransactionRef)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, fmt.Errorf("payment moved while initiating")
	}

	s.logger.LogPaymentEvent(pmt.ID, "initiated", pmt.Amount, pmt.Currency)

	return resp, nil
}

// Reconcile applies one gateway callback. The payload beyond
// (provider, txn_ref, status) stays opaque and is stored verbatim.
func (s *paymentService) Reconcile(ctx context.Context, callback *models.GatewayCallback) (*ReconcileResult, error) {
	pmt, err := s.paymentRepo.GetByGatewayRef(ctx, callback.Provider, callback.TxnRef)
	if err != nil {
		// A missing record is a genuine conflict; a storage failure is
		// a retryable fault and must not fabricate one.
		if !errors.Is(err, interfaces.ErrPaymentNotFound) {
			return nil, fmt.Errorf("failed to load payment for reconciliation: %w", err)
		}
		s.recordConflict(ctx, callback, "", "no payment matches this transaction reference")
		return &ReconcileResult{Outcome: OutcomeConflict}, nil
	}

	reported, known := reportedStatus(callback.Status)
	if !known {
		s.recordConflict(ctx, callback, pmt.Status, "unrecognized status in callback")
		return &ReconcileResult{Outcome: OutcomeConflict, Payment: pmt}, nil
	}

	if pmt.Status.IsTerminal() {
		if pmt.Status == reported || (pmt.Status == models.PaymentStatusRefunded && reported == models.PaymentStatusSuccess) {
			// Re-delivery of news we already acted on.
			return &ReconcileResult{Outcome: OutcomeIgnored, Payment: pmt}, nil
		}
		s.recordConflict(ctx, callback, pmt.Status, "callback contradicts recorded terminal state")
		return &ReconcileResult{Outcome: OutcomeConflict, Payment: pmt}, nil
	}

	switch reported {
	case models.PaymentStatusSuccess:
		return s.applySuccess(ctx, pmt, callback)
	case models.PaymentStatusFailed:
		return s.applyFailure(ctx, pmt, callback)
	}

	s.recordConflict(ctx, callback, pmt.Status, "callback carries no terminal state")
	return &ReconcileResult{Outcome: OutcomeConflict, Payment: pmt}, nil
}

func (s *paymentService) applySuccess(ctx context.Context, pmt *models.Payment, callback *models.GatewayCallback) (*ReconcileResult, error) {
	settled, err := s.paymentRepo.SettleSuccess(ctx, pmt.ID, callback.Raw)
	if err != nil {
		return nil, err
	}
	if !settled {
		// Lost a settle race; the earlier writer's outcome stands.
		return &ReconcileResult{Outcome: OutcomeIgnored, Payment: pmt}, nil
	}
	pmt.Status = models.PaymentStatusSuccess

	order, err := s.orderRepo.GetByID(ctx, pmt.OrderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCancelled {
		// Money captured for an order that was cancelled in the meantime.
		// The payment record is authoritative for payment state, so the
		// settlement stands; the divergence goes to ops review and any
		// refund is an explicit admin decision.
		if err := s.orderRepo.SetPaymentStatus(ctx, order.ID, models.OrderPaymentPaid); err != nil {
			return nil, err
		}
		s.recordConflict(ctx, callback, pmt.Status, "payment settled after order cancellation")
		return &ReconcileResult{Outcome: OutcomeApplied, Payment: pmt}, nil
	}

	if err := s.orderRepo.SetPaymentStatus(ctx, order.ID, models.OrderPaymentPaid); err != nil {
		return nil, err
	}
	order.PaymentStatus = models.OrderPaymentPaid

	if order.PromoCode != "" {
		if err := s.promoService.Commit(ctx, order.PromoCode, order.CustomerID, order.ID, order.Discount); err != nil {
			s.logger.WithError(err).WithOrderID(order.ID).Error("Failed to commit promo usage")
		}
	}

	s.logger.LogPaymentEvent(pmt.ID, "settled_success", pmt.Amount, pmt.Currency)
	s.notifications.PaymentEvent(ctx, order, models.EventPaymentSettled, map[string]interface{}{
		"amount": pmt.Amount,
	})

	return &ReconcileResult{Outcome: OutcomeApplied, Payment: pmt}, nil
}

// applyFailure records the failure but leaves the order alive: the
// customer can retry with another method, or the restaurant cancels.
func (s *paymentService) applyFailure(ctx context.Context, pmt *models.Payment, callback *models.GatewayCallback) (*ReconcileResult, error) {
	settled, err := s.paymentRepo.SettleFailure(ctx, pmt.ID, callback.Status, callback.Raw)
	if err != nil {
		return nil, err
	}
	if !settled {
		return &ReconcileResult{Outcome: OutcomeIgnored, Payment: pmt}, nil
	}
	pmt.Status = models.PaymentStatusFailed

	order, err := s.orderRepo.GetByID(ctx, pmt.OrderID)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.SetPaymentStatus(ctx, order.ID, models.OrderPaymentFailed); err != nil {
		return nil, err
	}
	order.PaymentStatus = models.OrderPaymentFailed

	s.logger.LogPaymentEvent(pmt.ID, "settled_failure", pmt.Amount, pmt.Currency)
	s.notifications.PaymentEvent(ctx, order, models.EventPaymentFailed, map[string]interface{}{
		"reason": callback.Status,
	})

	return &ReconcileResult{Outcome: OutcomeApplied, Payment: pmt}, nil
}

func (s *paymentService) SettleCashOnDelivery(ctx context.Context, order *models.Order) error {
	pmt, err := s.paymentRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}

	settled, err := s.paymentRepo.SettleSuccess(ctx, pmt.ID, nil)
	if err != nil {
		return err
	}
	if !settled {
		return nil
	}

	if err := s.orderRepo.SetPaymentStatus(ctx, order.ID, models.OrderPaymentPaid); err != nil {
		return err
	}
	order.PaymentStatus = models.OrderPaymentPaid

	if order.PromoCode != "" {
		if err := s.promoService.Commit(ctx, order.PromoCode, order.CustomerID, order.ID, order.Discount); err != nil {
			s.logger.WithError(err).WithOrderID(order.ID).Error("Failed to commit promo usage")
		}
	}

	s.logger.LogPaymentEvent(pmt.ID, "settled_cash", pmt.Amount, pmt.Currency)
	s.notifications.PaymentEvent(ctx, order, models.EventPaymentSettled, map[string]interface{}{
		"amount": pmt.Amount,
		"method": models.PaymentMethodCashOnDelivery,
	})

	return nil
}

func (s *paymentService) RefundOrder(ctx context.Context, orderID primitive.ObjectID, reason, refundedBy string) error {
	pmt, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if pmt.Status != models.PaymentStatusSuccess {
		return ErrPaymentNotRefundable
	}

	return s.refundPayment(ctx, pmt, reason, refundedBy)
}

func (s *paymentService) refundPayment(ctx context.Context, pmt *models.Payment, reason, refundedBy string) error {
	// Cash never reached a gateway; electronic rails refund through the
	// provider that captured the charge.
	if pmt.Method != models.PaymentMethodCashOnDelivery {
		client, ok := s.gateways.Get(pmt.GatewayProvider)
		if !ok {
			return fmt.Errorf("no gateway configured for provider %s", pmt.GatewayProvider)
		}
		_, err := client.RefundPayment(ctx, &payment.RefundRequest{
			TransactionRef: pmt.GatewayTxnRef,
			Amount:         pmt.Amount,
			Reason:         reason,
		})
		if err != nil {
			return fmt.Errorf("gateway refund failed: %w", err)
		}
	}

	marked, err := s.paymentRepo.MarkRefunded(ctx, pmt.ID, &models.Refund{
		Amount:     pmt.Amount,
		Reason:     reason,
		RefundedBy: refundedBy,
		RefundedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	if !marked {
		return ErrPaymentNotRefundable
	}
	pmt.Status = models.PaymentStatusRefunded

	if err := s.orderRepo.SetPaymentStatus(ctx, pmt.OrderID, models.OrderPaymentRefunded); err != nil {
		return err
	}

	s.logger.LogPaymentEvent(pmt.ID, "refunded", pmt.Amount, pmt.Currency)

	if order, err := s.orderRepo.GetByID(ctx, pmt.OrderID); err == nil {
		s.notifications.PaymentEvent(ctx, order, models.EventPaymentRefunded, map[string]interface{}{
			"amount": pmt.Amount,
			"reason": reason,
		})
	}

	return nil
}

func (s *paymentService) ListConflicts(ctx context.Context, params *utils.PaginationParams) ([]*models.ConflictReview, int64, error) {
	return s.paymentRepo.ListConflicts(ctx, params)
}

func (s *paymentService) recordConflict(ctx context.Context, callback *models.GatewayCallback, recorded models.PaymentStatus, reason string) {
	err := s.paymentRepo.RecordConflict(ctx, &models.ConflictReview{
		Provider:       callback.Provider,
		TxnRef:         callback.TxnRef,
		ReportedStatus: callback.Status,
		RecordedStatus: recorded,
		Reason:         reason,
		RawPayload:     callback.Raw,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to record payment conflict")
	}

	s.logger.WithFields(map[string]interface{}{
		"provider": callback.Provider,
		"txn_ref":  callback.TxnRef,
		"reason":   reason,
	}).Warn("Payment callback parked for review")
}

// reportedStatus normalizes the status vocabulary the gateway adapters
// emit into our terminal states: bKash/Nagad report "completed"/"success",
// SSLCommerz reports "VALID"/"FAILED"/"EXPIRED", Stripe payment intents
// report "succeeded"/"canceled".
func reportedStatus(s string) (models.PaymentStatus, bool) {
	switch strings.ToLower(s) {
	case "success", "succeeded", "completed", "paid", "valid":
		return models.PaymentStatusSuccess, true
	case "failed", "failure", "declined", "expired", "canceled":
		return models.PaymentStatusFailed, true
	}
	return "", false
}

func providerFor(method models.PaymentMethod) string {
	switch method {
	case models.PaymentMethodBkash:
		return "bkash"
	case models.PaymentMethodNagad:
		return "nagad"
	case models.PaymentMethodSSLCommerz:
		return "sslcommerz"
	case models.PaymentMethodCard:
		return "stripe"
	}
	return ""
}
