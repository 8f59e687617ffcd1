package services

import (
	"context"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/cache"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RiderCandidate is one rider near a restaurant, ordered by distance.
type RiderCandidate struct {
	RiderID    string  `json:"rider_id"`
	DistanceKM float64 `json:"distance_km"`
}

// AssignmentService mediates the rider accept race. Any number of
// riders may see an open order; exactly one acceptance wins and every
// loser learns whether the order was taken or withdrawn.
type AssignmentService interface {
	// OpenOrders lists ready orders with no rider, oldest first.
	OpenOrders(ctx context.Context, limit int) ([]*models.Order, error)

	// TryAccept claims an order for a rider. Returns ErrAlreadyAssigned
	// when another rider won, ErrNotAcceptable when the order left the
	// ready status.
	TryAccept(ctx context.Context, orderID, riderID primitive.ObjectID) (*models.Order, error)

	// Release withdraws a rider from an order that is still ready, so
	// the order re-enters the open pool.
	Release(ctx context.Context, orderID, riderID primitive.ObjectID) (*models.Order, error)

	// Reassign clears the rider on a ready order, re-opening the accept
	// race. Admin-only, for when the assigned rider is unreachable.
	Reassign(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error)

	// CandidateRiders returns online riders near the order's restaurant.
	CandidateRiders(ctx context.Context, restaurantID primitive.ObjectID, radiusKM float64) ([]RiderCandidate, error)

	UpdateRiderLocation(ctx context.Context, riderID primitive.ObjectID, lat, lng float64) error
	SetRiderOnline(ctx context.Context, riderID primitive.ObjectID, online bool) error
}

type assignmentService struct {
	orderRepo      interfaces.OrderRepository
	riderRepo      interfaces.RiderRepository
	restaurantRepo interfaces.RestaurantRepository
	cache          *cache.RedisCache
	notifications  NotificationService
	logger         *logger.Logger
}

func NewAssignmentService(
	orderRepo interfaces.OrderRepository,
	riderRepo interfaces.RiderRepository,
	restaurantRepo interfaces.RestaurantRepository,
	redisCache *cache.RedisCache,
	notifications NotificationService,
	log *logger.Logger,
) AssignmentService {
	return &assignmentService{
		orderRepo:      orderRepo,
		riderRepo:      riderRepo,
		restaurantRepo: restaurantRepo,
		cache:          redisCache,
		notifications:  notifications,
		logger:         log,
	}
}

func (s *assignmentService) OpenOrders(ctx context.Context, limit int) ([]*models.Order, error) {
	if limit <= 0 || limit > utils.MaxPageSize {
		limit = utils.DefaultPageSize
	}
	return s.orderRepo.GetReadyUnassigned(ctx, limit)
}

func (s *assignmentService) TryAccept(ctx context.Context, orderID, riderID primitive.ObjectID) (*models.Order, error) {
	won, err := s.orderRepo.AssignRider(ctx, orderID, riderID)
	if err != nil {
		return nil, err
	}

	if !won {
		// Distinguish losing the race from the order having moved on.
		order, err := s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status != models.OrderStatusReady {
			return nil, ErrNotAcceptable
		}
		if order.RiderID != nil {
			return nil, ErrAlreadyAssigned
		}
		return nil, ErrNotAcceptable
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.LogOrderEvent(orderID, "rider_assigned", map[string]interface{}{
		"rider_id": riderID.Hex(),
	})
	s.notifications.RiderAssigned(ctx, order, riderID)

	return order, nil
}

func (s *assignmentService) Release(ctx context.Context, orderID, riderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.RiderID == nil || *order.RiderID != riderID {
		return nil, ErrNotAcceptable
	}

	cleared, err := s.orderRepo.ClearRider(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !cleared {
		// Picked up already, or another release got here first.
		return nil, ErrNotAcceptable
	}

	order.RiderID = nil
	order.RiderAssignedAt = nil

	s.logger.LogOrderEvent(orderID, "rider_cleared", map[string]interface{}{
		"rider_id": riderID.Hex(),
	})
	s.notifications.RiderCleared(ctx, order, riderID)

	return order, nil
}

func (s *assignmentService) Reassign(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.RiderID == nil {
		return nil, ErrNotAcceptable
	}
	previous := *order.RiderID

	cleared, err := s.orderRepo.ClearRider(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !cleared {
		// Left ready before the admin got here.
		return nil, ErrNotAcceptable
	}

	order.RiderID = nil
	order.RiderAssignedAt = nil

	s.logger.LogOrderEvent(orderID, "rider_reassigned", map[string]interface{}{
		"previous_rider_id": previous.Hex(),
	})
	s.notifications.RiderCleared(ctx, order, previous)

	return order, nil
}

func (s *assignmentService) CandidateRiders(ctx context.Context, restaurantID primitive.ObjectID, radiusKM float64) ([]RiderCandidate, error) {
	restaurant, err := s.restaurantRepo.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	if radiusKM <= 0 {
		radiusKM = utils.DefaultSearchRadius
	}
	if radiusKM > utils.MaxSearchRadius {
		radiusKM = utils.MaxSearchRadius
	}

	locations, err := s.cache.GeoRadius(ctx, utils.CacheRiderGeoKey, restaurant.Longitude, restaurant.Latitude, &redis.GeoRadiusQuery{
		Radius:   radiusKM,
		Unit:     "km",
		WithDist: true,
		Count:    utils.RiderCandidateLimit,
		Sort:     "ASC",
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]RiderCandidate, 0, len(locations))
	for _, loc := range locations {
		candidates = append(candidates, RiderCandidate{
			RiderID:    loc.Name,
			DistanceKM: loc.Dist,
		})
	}

	return candidates, nil
}

func (s *assignmentService) UpdateRiderLocation(ctx context.Context, riderID primitive.ObjectID, lat, lng float64) error {
	if err := s.riderRepo.UpdateLocation(ctx, riderID, lat, lng); err != nil {
		return err
	}

	return s.cache.GeoAdd(ctx, utils.CacheRiderGeoKey, &redis.GeoLocation{
		Name:      riderID.Hex(),
		Latitude:  lat,
		Longitude: lng,
	})
}

func (s *assignmentService) SetRiderOnline(ctx context.Context, riderID primitive.ObjectID, online bool) error {
	if err := s.riderRepo.SetOnline(ctx, riderID, online); err != nil {
		return err
	}

	if !online {
		// Offline riders leave the candidate index immediately.
		return s.cache.GeoRemove(ctx, utils.CacheRiderGeoKey, riderID.Hex())
	}
	return nil
}
