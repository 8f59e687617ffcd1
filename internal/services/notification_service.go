package services

import (
	"context"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/cache"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/logger"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/push"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/websocket"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService fans an order event out to every interested party:
// the order room and per-actor rooms on the websocket hub, the redis
// topic for poll-based clients, and a push notification to the customer.
// Delivery is best effort and at-least-once; a failed channel is logged
// and never fails the triggering operation.
type NotificationService interface {
	OrderCreated(ctx context.Context, order *models.Order)
	StatusChanged(ctx context.Context, order *models.Order, from, to models.OrderStatus, actor models.ActorRole)
	RiderAssigned(ctx context.Context, order *models.Order, riderID primitive.ObjectID)
	RiderCleared(ctx context.Context, order *models.Order, riderID primitive.ObjectID)
	PaymentEvent(ctx context.Context, order *models.Order, eventType models.OrderEventType, data map[string]interface{})
}

type notificationService struct {
	hub      *websocket.Hub
	cache    *cache.RedisCache
	push     push.Provider
	userRepo interfaces.UserRepository
	logger   *logger.Logger
}

func NewNotificationService(
	hub *websocket.Hub,
	redisCache *cache.RedisCache,
	pushProvider push.Provider,
	userRepo interfaces.UserRepository,
	log *logger.Logger,
) NotificationService {
	return &notificationService{
		hub:      hub,
		cache:    redisCache,
		push:     pushProvider,
		userRepo: userRepo,
		logger:   log,
	}
}

func (s *notificationService) OrderCreated(ctx context.Context, order *models.Order) {
	event := s.newEvent(models.EventOrderCreated, order)
	event.NewStatus = order.Status
	event.Data = map[string]interface{}{
		"total":          order.Total,
		"payment_method": order.PaymentMethod,
	}

	s.deliver(ctx, order, event)
	s.pushToCustomer(ctx, order, "Order placed", "Your order "+order.OrderNumber+" has been placed.")
}

func (s *notificationService) StatusChanged(ctx context.Context, order *models.Order, from, to models.OrderStatus, actor models.ActorRole) {
	event := s.newEvent(models.EventOrderStatusChanged, order)
	event.OldStatus = from
	event.NewStatus = to
	event.Data = map[string]interface{}{"actor": actor}

	s.deliver(ctx, order, event)

	if body, ok := statusPushBody[to]; ok {
		s.pushToCustomer(ctx, order, "Order "+order.OrderNumber, body)
	}
}

func (s *notificationService) RiderAssigned(ctx context.Context, order *models.Order, riderID primitive.ObjectID) {
	event := s.newEvent(models.EventRiderAssigned, order)
	event.RiderID = &riderID

	s.deliver(ctx, order, event)
	s.sendToRoom(utils.ChannelRiderPrefix+riderID.Hex(), event)
}

func (s *notificationService) RiderCleared(ctx context.Context, order *models.Order, riderID primitive.ObjectID) {
	event := s.newEvent(models.EventRiderCleared, order)
	event.RiderID = &riderID

	s.deliver(ctx, order, event)
	s.sendToRoom(utils.ChannelRiderPrefix+riderID.Hex(), event)
}

func (s *notificationService) PaymentEvent(ctx context.Context, order *models.Order, eventType models.OrderEventType, data map[string]interface{}) {
	event := s.newEvent(eventType, order)
	event.Data = data

	s.deliver(ctx, order, event)

	switch eventType {
	case models.EventPaymentSettled:
		s.pushToCustomer(ctx, order, "Payment received", "Payment for order "+order.OrderNumber+" was successful.")
	case models.EventPaymentFailed:
		s.pushToCustomer(ctx, order, "Payment failed", "Payment for order "+order.OrderNumber+" failed. Please try again.")
	case models.EventPaymentRefunded:
		s.pushToCustomer(ctx, order, "Refund issued", "Your payment for order "+order.OrderNumber+" has been refunded.")
	}
}

var statusPushBody = map[models.OrderStatus]string{
	models.OrderStatusConfirmed: "Your order has been confirmed by the restaurant.",
	models.OrderStatusPreparing: "The restaurant is preparing your order.",
	models.OrderStatusPickedUp:  "Your rider has picked up the order.",
	models.OrderStatusOnTheWay:  "Your order is on the way.",
	models.OrderStatusDelivered: "Your order has been delivered. Enjoy!",
	models.OrderStatusCancelled: "Your order has been cancelled.",
}

func (s *notificationService) newEvent(eventType models.OrderEventType, order *models.Order) *models.OrderEvent {
	return &models.OrderEvent{
		EventID:      uuid.NewString(),
		Type:         eventType,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.CustomerID,
		RestaurantID: order.RestaurantID,
		RiderID:      order.RiderID,
		Timestamp:    time.Now(),
	}
}

// deliver sends one event to the order room, the customer and restaurant
// rooms, the rider room when assigned, and the redis bridge topic.
func (s *notificationService) deliver(ctx context.Context, order *models.Order, event *models.OrderEvent) {
	msg := s.toMessage(event)

	if s.hub != nil {
		s.hub.SendToRoom(utils.ChannelOrderPrefix+order.ID.Hex(), msg)
		s.hub.SendToRoom(utils.ChannelUserPrefix+order.CustomerID.Hex(), msg)
		s.hub.SendToRoom(utils.ChannelRestaurantPrefix+order.RestaurantID.Hex(), msg)
		if order.RiderID != nil {
			s.hub.SendToRoom(utils.ChannelRiderPrefix+order.RiderID.Hex(), msg)
		}
	}

	if s.cache != nil {
		if err := s.cache.Publish(ctx, utils.RedisOrderEventTopic, event); err != nil {
			s.logger.WithError(err).WithOrderID(order.ID).Warn("Failed to publish order event to redis")
		}
	}

	s.logger.LogOrderEvent(order.ID, string(event.Type), map[string]interface{}{
		"event_id":     event.EventID,
		"order_number": event.OrderNumber,
	})
}

func (s *notificationService) sendToRoom(roomID string, event *models.OrderEvent) {
	if s.hub != nil {
		s.hub.SendToRoom(roomID, s.toMessage(event))
	}
}

func (s *notificationService) toMessage(event *models.OrderEvent) websocket.Message {
	data := map[string]interface{}{
		"order_id":     event.OrderID.Hex(),
		"order_number": event.OrderNumber,
	}
	if event.OldStatus != "" {
		data["old_status"] = string(event.OldStatus)
	}
	if event.NewStatus != "" {
		data["new_status"] = string(event.NewStatus)
	}
	if event.RiderID != nil {
		data["rider_id"] = event.RiderID.Hex()
	}
	for k, v := range event.Data {
		data[k] = v
	}

	return websocket.Message{
		Type:      string(event.Type),
		EventID:   event.EventID,
		Timestamp: event.Timestamp.Unix(),
		Data:      data,
	}
}

func (s *notificationService) pushToCustomer(ctx context.Context, order *models.Order, title, body string) {
	if s.push == nil || s.userRepo == nil {
		return
	}

	customer, err := s.userRepo.GetByID(ctx, order.CustomerID)
	if err != nil || customer.DeviceToken == "" {
		return
	}

	_, err = s.push.SendNotification(ctx, &push.NotificationRequest{
		Token: customer.DeviceToken,
		Title: title,
		Body:  body,
		Data: map[string]string{
			"order_id":     order.ID.Hex(),
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		s.logger.WithError(err).WithOrderID(order.ID).Warn("Failed to send push notification")
	}
}
