package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/logger"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/payment"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, _ := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "text"})
	return log
}

// fakeOrderRepo mirrors the guarded-update semantics of the mongo
// implementation under a mutex, so the concurrency tests exercise the
// same win/lose behavior.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[primitive.ObjectID]*models.Order)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = primitive.NewObjectID()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found")
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.OrderNumber == orderNumber {
			cp := *order
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("order not found")
}

func (f *fakeOrderRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, entry models.StatusHistoryEntry, extra map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.StatusHistory = append(order.StatusHistory, entry)
	order.UpdatedAt = time.Now()
	if v, ok := extra["delivered_at"].(time.Time); ok {
		order.DeliveredAt = &v
	}
	if v, ok := extra["cancelled_at"].(time.Time); ok {
		order.CancelledAt = &v
	}
	if v, ok := extra["cancellation_reason"].(string); ok {
		order.CancellationReason = v
	}
	if v, ok := extra["cancelled_by"].(models.ActorRole); ok {
		order.CancelledBy = v
	}
	if _, ok := extra["rider_id"]; ok {
		order.RiderID = nil
		order.RiderAssignedAt = nil
	}
	return true, nil
}

func (f *fakeOrderRepo) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.OrderPaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	order.PaymentStatus = status
	return nil
}

func (f *fakeOrderRepo) SetRating(ctx context.Context, id primitive.ObjectID, rating *models.OrderRating) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != models.OrderStatusDelivered || order.Rating != nil {
		return false, nil
	}
	order.Rating = rating
	return true, nil
}

func (f *fakeOrderRepo) AssignRider(ctx context.Context, id, riderID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != models.OrderStatusReady || order.RiderID != nil {
		return false, nil
	}
	now := time.Now()
	order.RiderID = &riderID
	order.RiderAssignedAt = &now
	return true, nil
}

func (f *fakeOrderRepo) ClearRider(ctx context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != models.OrderStatusReady {
		return false, nil
	}
	order.RiderID = nil
	order.RiderAssignedAt = nil
	return true, nil
}

func (f *fakeOrderRepo) GetByCustomer(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, order := range f.orders {
		if order.CustomerID == customerID {
			cp := *order
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) GetByRestaurant(ctx context.Context, restaurantID primitive.ObjectID, status *models.OrderStatus, params *utils.PaginationParams) ([]*models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, order := range f.orders {
		if order.RestaurantID != restaurantID {
			continue
		}
		if status != nil && order.Status != *status {
			continue
		}
		cp := *order
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) GetReadyUnassigned(ctx context.Context, limit int) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, order := range f.orders {
		if order.Status == models.OrderStatusReady && order.RiderID == nil {
			cp := *order
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) CountDeliveredByCustomer(ctx context.Context, customerID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, order := range f.orders {
		if order.CustomerID == customerID && order.Status == models.OrderStatusDelivered {
			n++
		}
	}
	return n, nil
}

type fakePaymentRepo struct {
	mu        sync.Mutex
	payments  map[primitive.ObjectID]*models.Payment
	conflicts []*models.ConflictReview
	findErr   error // injected storage failure for reads by gateway ref
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[primitive.ObjectID]*models.Payment)}
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment.ID = primitive.NewObjectID()
	payment.CreatedAt = time.Now()
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	cp := *payment
	f.payments[payment.ID] = &cp
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pmt, ok := f.payments[id]
	if !ok {
		return nil, interfaces.ErrPaymentNotFound
	}
	cp := *pmt
	return &cp, nil
}

func (f *fakePaymentRepo) GetByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pmt := range f.payments {
		if pmt.OrderID == orderID {
			cp := *pmt
			return &cp, nil
		}
	}
	return nil, interfaces.ErrPaymentNotFound
}

func (f *fakePaymentRepo) GetByGatewayRef(ctx context.Context, provider, txnRef string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, pmt := range f.payments {
		if pmt.GatewayProvider == provider && pmt.GatewayTxnRef == txnRef {
			cp := *pmt
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("gateway ref %s/%s: %w", provider, txnRef, interfaces.ErrPaymentNotFound)
}

func (f *fakePaymentRepo) MarkInitiated(ctx context.Context, id primitive.ObjectID, provider, txnRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pmt, ok := f.payments[id]
	if !ok || pmt.Status != models.PaymentStatusPending {
		return false, nil
	}
	now := time.Now()
	pmt.Status = models.PaymentStatusInitiated
	pmt.GatewayProvider = provider
	pmt.GatewayTxnRef = txnRef
	pmt.InitiatedAt = &now
	return true, nil
}

func (f *fakePaymentRepo) SettleSuccess(ctx context.Context, id primitive.ObjectID, raw []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pmt, ok := f.payments[id]
	if !ok || pmt.Status.IsTerminal() {
		return false, nil
	}
	now := time.Now()
	pmt.Status = models.PaymentStatusSuccess
	pmt.RawPayload = raw
	pmt.SettledAt = &now
	return true, nil
}

func (f *fakePaymentRepo) SettleFailure(ctx context.Context, id primitive.ObjectID, reason string, raw []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pmt, ok := f.payments[id]
	if !ok || pmt.Status.IsTerminal() {
		return false, nil
	}
	now := time.Now()
	pmt.Status = models.PaymentStatusFailed
	pmt.FailureReason = reason
	pmt.RawPayload = raw
	pmt.SettledAt = &now
	return true, nil
}

func (f *fakePaymentRepo) MarkRefunded(ctx context.Context, id primitive.ObjectID, refund *models.Refund) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pmt, ok := f.payments[id]
	if !ok || pmt.Status != models.PaymentStatusSuccess {
		return false, nil
	}
	pmt.Status = models.PaymentStatusRefunded
	pmt.Refund = refund
	return true, nil
}

func (f *fakePaymentRepo) RecordConflict(ctx context.Context, review *models.ConflictReview) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	review.ID = primitive.NewObjectID()
	review.CreatedAt = time.Now()
	f.conflicts = append(f.conflicts, review)
	return nil
}

func (f *fakePaymentRepo) ListConflicts(ctx context.Context, params *utils.PaginationParams) ([]*models.ConflictReview, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.ConflictReview, len(f.conflicts))
	copy(out, f.conflicts)
	return out, int64(len(out)), nil
}

type redemptionKey struct {
	promoID primitive.ObjectID
	orderID primitive.ObjectID
}

type fakePromoRepo struct {
	mu          sync.Mutex
	promos      map[primitive.ObjectID]*models.PromoCode
	redemptions map[redemptionKey]*models.PromoRedemption
}

func newFakePromoRepo() *fakePromoRepo {
	return &fakePromoRepo{
		promos:      make(map[primitive.ObjectID]*models.PromoCode),
		redemptions: make(map[redemptionKey]*models.PromoRedemption),
	}
}

func (f *fakePromoRepo) Create(ctx context.Context, promo *models.PromoCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if promo.ID.IsZero() {
		promo.ID = primitive.NewObjectID()
	}
	cp := *promo
	f.promos[promo.ID] = &cp
	return nil
}

func (f *fakePromoRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PromoCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	promo, ok := f.promos[id]
	if !ok {
		return nil, fmt.Errorf("promo code not found")
	}
	cp := *promo
	return &cp, nil
}

func (f *fakePromoRepo) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, promo := range f.promos {
		if promo.Code == code {
			cp := *promo
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("promo code not found")
}

func (f *fakePromoRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return nil
}

func (f *fakePromoRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.promos, id)
	return nil
}

func (f *fakePromoRepo) List(ctx context.Context, params *utils.PaginationParams) ([]*models.PromoCode, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PromoCode
	for _, promo := range f.promos {
		cp := *promo
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakePromoRepo) IncrementUsage(ctx context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	promo, ok := f.promos[id]
	if !ok {
		return false, nil
	}
	if promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit {
		return false, nil
	}
	promo.UsedCount++
	return true, nil
}

func (f *fakePromoRepo) InsertRedemption(ctx context.Context, redemption *models.PromoRedemption) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := redemptionKey{promoID: redemption.PromoID, orderID: redemption.OrderID}
	if _, exists := f.redemptions[key]; exists {
		return false, nil
	}
	redemption.ID = primitive.NewObjectID()
	redemption.CommittedAt = time.Now()
	cp := *redemption
	f.redemptions[key] = &cp
	return true, nil
}

func (f *fakePromoRepo) CountRedemptionsByUser(ctx context.Context, promoID, userID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.redemptions {
		if r.PromoID == promoID && r.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeRiderRepo struct {
	mu     sync.Mutex
	riders map[primitive.ObjectID]*models.Rider
}

func newFakeRiderRepo() *fakeRiderRepo {
	return &fakeRiderRepo{riders: make(map[primitive.ObjectID]*models.Rider)}
}

func (f *fakeRiderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Rider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rider, ok := f.riders[id]
	if !ok {
		return nil, fmt.Errorf("rider not found")
	}
	cp := *rider
	return &cp, nil
}

func (f *fakeRiderRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Rider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rider := range f.riders {
		if rider.UserID == userID {
			cp := *rider
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("rider not found")
}

func (f *fakeRiderRepo) UpdateLocation(ctx context.Context, id primitive.ObjectID, lat, lng float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rider, ok := f.riders[id]; ok {
		rider.Latitude = lat
		rider.Longitude = lng
	}
	return nil
}

func (f *fakeRiderRepo) SetOnline(ctx context.Context, id primitive.ObjectID, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rider, ok := f.riders[id]; ok {
		rider.IsOnline = online
	}
	return nil
}

type fakeRestaurantRepo struct {
	restaurants map[primitive.ObjectID]*models.Restaurant
}

func (f *fakeRestaurantRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Restaurant, error) {
	r, ok := f.restaurants[id]
	if !ok {
		return nil, fmt.Errorf("restaurant not found")
	}
	return r, nil
}

func (f *fakeRestaurantRepo) GetByOwner(ctx context.Context, ownerID primitive.ObjectID) (*models.Restaurant, error) {
	for _, r := range f.restaurants {
		if r.OwnerID == ownerID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("restaurant not found")
}

// recordingNotifications captures fanout calls for assertions.
type recordingNotifications struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifications) record(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifications) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	copy(out, n.events)
	return out
}

func (n *recordingNotifications) OrderCreated(ctx context.Context, order *models.Order) {
	n.record("order_created")
}

func (n *recordingNotifications) StatusChanged(ctx context.Context, order *models.Order, from, to models.OrderStatus, actor models.ActorRole) {
	n.record("status_changed:" + string(to))
}

func (n *recordingNotifications) RiderAssigned(ctx context.Context, order *models.Order, riderID primitive.ObjectID) {
	n.record("rider_assigned")
}

func (n *recordingNotifications) RiderCleared(ctx context.Context, order *models.Order, riderID primitive.ObjectID) {
	n.record("rider_cleared")
}

func (n *recordingNotifications) PaymentEvent(ctx context.Context, order *models.Order, eventType models.OrderEventType, data map[string]interface{}) {
	n.record(string(eventType))
}

// fakeGateway succeeds every initiation and refund.
type fakeGateway struct {
	provider string
	mu       sync.Mutex
	refunds  []payment.RefundRequest
}

func (g *fakeGateway) Provider() string { return g.provider }

func (g *fakeGateway) InitiatePayment(ctx context.Context, request *payment.InitiateRequest) (*payment.InitiateResponse, error) {
	return &payment.InitiateResponse{
		TransactionRef: "txn-" + request.OrderNumber,
		RedirectURL:    "https://pay.example/" + request.OrderNumber,
		Status:         "initiated",
	}, nil
}

func (g *fakeGateway) RefundPayment(ctx context.Context, request *payment.RefundRequest) (*payment.RefundResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, *request)
	return &payment.RefundResponse{RefundRef: "rf-" + request.TransactionRef, Status: "refunded", Amount: request.Amount}, nil
}

func (g *fakeGateway) Refunds() []payment.RefundRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]payment.RefundRequest, len(g.refunds))
	copy(out, g.refunds)
	return out
}
