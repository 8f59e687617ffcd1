package services

import (
	"context"
	"fmt"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/cache"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateOrderInput struct {
	CustomerID      primitive.ObjectID
	RestaurantID    primitive.ObjectID
	Items           []models.OrderItem
	DeliveryAddress models.DeliveryAddress
	PaymentMethod   string
	PromoCode       string
}

// OrderService owns the order lifecycle: creation with priced totals,
// the guarded status transitions, cancellation with its side effects,
// and the post-delivery rating window.
type OrderService interface {
	CreateOrder(ctx context.Context, input *CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)

	// TransitionStatus moves an order along the lifecycle on behalf of
	// an actor. actorID identifies the customer, restaurant or rider
	// making the request; admins pass their own id.
	TransitionStatus(ctx context.Context, orderID primitive.ObjectID, to models.OrderStatus, actor models.ActorRole, actorID primitive.ObjectID, note string) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID primitive.ObjectID, actor models.ActorRole, actorID primitive.ObjectID, reason string) (*models.Order, error)
	RateOrder(ctx context.Context, orderID, customerID primitive.ObjectID, stars int, comment string) error

	ListCustomerOrders(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Order, int64, error)
	ListRestaurantOrders(ctx context.Context, restaurantID primitive.ObjectID, status *models.OrderStatus, params *utils.PaginationParams) ([]*models.Order, int64, error)
}

type orderService struct {
	orderRepo     interfaces.OrderRepository
	promoService  PromoService
	payments      PaymentService
	notifications NotificationService
	cache         *cache.RedisCache
	logger        *logger.Logger
}

func NewOrderService(
	orderRepo interfaces.OrderRepository,
	promoService PromoService,
	payments PaymentService,
	notifications NotificationService,
	redisCache *cache.RedisCache,
	log *logger.Logger,
) OrderService {
	return &orderService{
		orderRepo:     orderRepo,
		promoService:  promoService,
		payments:      payments,
		notifications: notifications,
		cache:         redisCache,
		logger:        log,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*models.Order, error) {
	method, err := models.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("order must contain at least one item")
	}
	if len(input.Items) > utils.MaxItemsPerOrder {
		return nil, fmt.Errorf("order exceeds %d items", utils.MaxItemsPerOrder)
	}

	var subtotal int64
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("item %s has invalid quantity", item.Name)
		}
		line := item.LineTotal()
		if line < 0 {
			return nil, fmt.Errorf("item %s has negative line total", item.Name)
		}
		subtotal += line
	}

	deliveryFee := int64(utils.DefaultDeliveryFee)
	tax := utils.TaxFor(subtotal, utils.DefaultTaxRate)

	var discount int64
	if input.PromoCode != "" {
		_, discount, err = s.promoService.Validate(ctx, input.PromoCode, input.CustomerID, input.RestaurantID, subtotal)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	order := &models.Order{
		OrderNumber:     utils.GenerateOrderNumber(),
		CustomerID:      input.CustomerID,
		RestaurantID:    input.RestaurantID,
		Items:           input.Items,
		DeliveryAddress: input.DeliveryAddress,
		Subtotal:        subtotal,
		DeliveryFee:     deliveryFee,
		Tax:             tax,
		Discount:        discount,
		Total:           subtotal - discount + deliveryFee + tax,
		PaymentMethod:   method,
		PaymentStatus:   models.OrderPaymentPending,
		Status:          models.OrderStatusPending,
		PromoCode:       input.PromoCode,
		StatusHistory: []models.StatusHistoryEntry{{
			Status:    models.OrderStatusPending,
			Timestamp: now,
			Actor:     models.RoleCustomer,
		}},
	}

	if err := order.CheckTotals(); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	if err := s.payments.CreateForOrder(ctx, order); err != nil {
		// The order stands; payment can be re-initiated from the client.
		s.logger.WithError(err).WithOrderID(order.ID).Error("Failed to create payment record")
	}

	s.notifications.OrderCreated(ctx, order)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.orderRepo.GetByOrderNumber(ctx, orderNumber)
}

func (s *orderService) TransitionStatus(ctx context.Context, orderID primitive.ObjectID, to models.OrderStatus, actor models.ActorRole, actorID primitive.ObjectID, note string) (*models.Order, error) {
	if to == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID, actor, actorID, note)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeActor(order, actor, actorID); err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, to, actor) {
		return nil, ErrInvalidTransition
	}

	extra := map[string]interface{}{}
	if to == models.OrderStatusDelivered {
		extra["delivered_at"] = time.Now()
	}

	entry := models.StatusHistoryEntry{
		Status:    to,
		Timestamp: time.Now(),
		Actor:     actor,
		Note:      note,
	}

	ok, err := s.orderRepo.TransitionStatus(ctx, orderID, order.Status, to, entry, extra)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone moved the order first; the table decides again from
		// the fresh status on retry.
		return nil, ErrInvalidTransition
	}

	from := order.Status
	order.Status = to

	s.notifications.StatusChanged(ctx, order, from, to, actor)

	// Cash settles at the doorstep.
	if to == models.OrderStatusDelivered && order.PaymentMethod == models.PaymentMethodCashOnDelivery {
		if err := s.payments.SettleCashOnDelivery(ctx, order); err != nil {
			s.logger.WithError(err).WithOrderID(order.ID).Error("Failed to settle cash payment")
		}
	}

	return order, nil
}

// CancelOrder runs under the per-order lease because it is a multi-step
// operation: the status flip, the refund when money was captured, and
// the fanout must not interleave with another cancellation attempt.
func (s *orderService) CancelOrder(ctx context.Context, orderID primitive.ObjectID, actor models.ActorRole, actorID primitive.ObjectID, reason string) (*models.Order, error) {
	lockKey := utils.CacheOrderLockPrefix + orderID.Hex()
	token := uuid.NewString()

	if s.cache != nil {
		acquired, err := s.cache.AcquireLock(ctx, lockKey, token, utils.OrderLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrOrderLocked
		}
		defer s.cache.ReleaseLock(ctx, lockKey, token)
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeActor(order, actor, actorID); err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, models.OrderStatusCancelled, actor) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	entry := models.StatusHistoryEntry{
		Status:    models.OrderStatusCancelled,
		Timestamp: now,
		Actor:     actor,
		Note:      reason,
	}
	extra := map[string]interface{}{
		"cancellation_reason": reason,
		"cancelled_by":        actor,
		"cancelled_at":        now,
	}
	if order.RiderID != nil {
		// Cancellation frees the assigned rider.
		extra["rider_id"] = nil
		extra["rider_assigned_at"] = nil
	}

	ok, err := s.orderRepo.TransitionStatus(ctx, orderID, order.Status, models.OrderStatusCancelled, entry, extra)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	from := order.Status
	order.Status = models.OrderStatusCancelled
	order.CancelledBy = actor
	order.CancellationReason = reason

	s.notifications.StatusChanged(ctx, order, from, models.OrderStatusCancelled, actor)
	order.RiderID = nil
	order.RiderAssignedAt = nil

	// A settled payment stays settled. Handing the money back is a
	// separate, explicit admin refund, never a cancellation side effect.

	return order, nil
}

func (s *orderService) RateOrder(ctx context.Context, orderID, customerID primitive.ObjectID, stars int, comment string) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("rating must be between 1 and 5 stars")
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.CustomerID != customerID {
		return fmt.Errorf("order does not belong to this customer")
	}
	if order.Status != models.OrderStatusDelivered || order.Rating != nil {
		return ErrNotRatable
	}
	if order.DeliveredAt != nil && time.Since(*order.DeliveredAt) > utils.RatingWindow {
		return ErrNotRatable
	}

	ok, err := s.orderRepo.SetRating(ctx, orderID, &models.OrderRating{
		Stars:   stars,
		Comment: comment,
		RatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRatable
	}

	return nil
}

func (s *orderService) ListCustomerOrders(ctx context.Context, customerID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Order, int64, error) {
	return s.orderRepo.GetByCustomer(ctx, customerID, params)
}

func (s *orderService) ListRestaurantOrders(ctx context.Context, restaurantID primitive.ObjectID, status *models.OrderStatus, params *utils.PaginationParams) ([]*models.Order, int64, error) {
	return s.orderRepo.GetByRestaurant(ctx, restaurantID, status, params)
}

// authorizeActor checks that the actor id matches the party the role
// claims to be. Admins act on any order.
func (s *orderService) authorizeActor(order *models.Order, actor models.ActorRole, actorID primitive.ObjectID) error {
	switch actor {
	case models.RoleAdmin:
		return nil
	case models.RoleCustomer:
		if order.CustomerID == actorID {
			return nil
		}
	case models.RoleRestaurant:
		if order.RestaurantID == actorID {
			return nil
		}
	case models.RoleRider:
		if order.RiderID != nil && *order.RiderID == actorID {
			return nil
		}
	}
	return fmt.Errorf("actor not authorized for this order")
}
