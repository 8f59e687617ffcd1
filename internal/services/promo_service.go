package services

import (
	"context"
	"strings"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PromoService validates promo codes at order creation and commits
// their usage when payment settles. Validation never mutates counters:
// an order that is created but never paid consumes nothing.
type PromoService interface {
	// Validate checks a code against an order context and returns the
	// promo and the discount it grants. Rejections come back as
	// *PromoRejectedError with a customer-facing reason.
	Validate(ctx context.Context, code string, customerID, restaurantID primitive.ObjectID, subtotal int64) (*models.PromoCode, int64, error)

	// Commit records one usage for a settled order. Idempotent per
	// (promo, order): retries and duplicate callbacks are no-ops.
	Commit(ctx context.Context, code string, customerID, orderID primitive.ObjectID, discount int64) error

	CreatePromo(ctx context.Context, promo *models.PromoCode) error
	GetPromo(ctx context.Context, id primitive.ObjectID) (*models.PromoCode, error)
	UpdatePromo(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	DeletePromo(ctx context.Context, id primitive.ObjectID) error
	ListPromos(ctx context.Context, params *utils.PaginationParams) ([]*models.PromoCode, int64, error)
}

type promoService struct {
	promoRepo interfaces.PromoRepository
	orderRepo interfaces.OrderRepository
	logger    *logger.Logger
}

func NewPromoService(
	promoRepo interfaces.PromoRepository,
	orderRepo interfaces.OrderRepository,
	log *logger.Logger,
) PromoService {
	return &promoService{
		promoRepo: promoRepo,
		orderRepo: orderRepo,
		logger:    log,
	}
}

func (s *promoService) Validate(ctx context.Context, code string, customerID, restaurantID primitive.ObjectID, subtotal int64) (*models.PromoCode, int64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, 0, &PromoRejectedError{Code: code, Reason: "code does not exist"}
	}

	now := time.Now()
	switch {
	case !promo.IsActive:
		return nil, 0, &PromoRejectedError{Code: code, Reason: "code is not active"}
	case now.Before(promo.ValidFrom):
		return nil, 0, &PromoRejectedError{Code: code, Reason: "code is not valid yet"}
	case now.After(promo.ValidUntil):
		return nil, 0, &PromoRejectedError{Code: code, Reason: "code has expired"}
	case subtotal < promo.MinOrderAmount:
		return nil, 0, &PromoRejectedError{Code: code, Reason: "order amount below minimum for this code"}
	case promo.UsageLimit > 0 && promo.UsedCount >= promo.UsageLimit:
		return nil, 0, &PromoRejectedError{Code: code, Reason: "code usage limit reached"}
	}

	if err := s.checkScope(ctx, promo, customerID, restaurantID); err != nil {
		return nil, 0, err
	}

	if promo.PerUserLimit > 0 {
		used, err := s.promoRepo.CountRedemptionsByUser(ctx, promo.ID, customerID)
		if err != nil {
			return nil, 0, err
		}
		if used >= int64(promo.PerUserLimit) {
			return nil, 0, &PromoRejectedError{Code: code, Reason: "you have already used this code the maximum number of times"}
		}
	}

	discount := promo.DiscountFor(subtotal)
	return promo, discount, nil
}

func (s *promoService) checkScope(ctx context.Context, promo *models.PromoCode, customerID, restaurantID primitive.ObjectID) error {
	switch promo.AppliesTo {
	case models.PromoScopeFirstOrder:
		delivered, err := s.orderRepo.CountDeliveredByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if delivered > 0 {
			return &PromoRejectedError{Code: promo.Code, Reason: "code is valid for first orders only"}
		}
	case models.PromoScopeRestaurants:
		for _, id := range promo.RestaurantIDs {
			if id == restaurantID {
				return nil
			}
		}
		return &PromoRejectedError{Code: promo.Code, Reason: "code is not valid for this restaurant"}
	}
	return nil
}

// Commit runs at payment settlement, not at order creation. The unique
// (promo, order) redemption row is the idempotency gate; the guarded
// counter bump enforces the global limit under concurrent settlements.
// When the limit raced out between validation and settlement the
// discount stands, since the customer already paid the reduced total;
// the overshoot is logged for the promo owner.
func (s *promoService) Commit(ctx context.Context, code string, customerID, orderID primitive.ObjectID, discount int64) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	inserted, err := s.promoRepo.InsertRedemption(ctx, &models.PromoRedemption{
		PromoID:  promo.ID,
		Code:     promo.Code,
		UserID:   customerID,
		OrderID:  orderID,
		Discount: discount,
	})
	if err != nil {
		return err
	}
	if !inserted {
		// Already committed for this order.
		return nil
	}

	bumped, err := s.promoRepo.IncrementUsage(ctx, promo.ID)
	if err != nil {
		return err
	}
	if !bumped {
		s.logger.LogPromoEvent(promo.Code, "usage_limit_overshoot", map[string]interface{}{
			"order_id": orderID.Hex(),
		})
	}

	s.logger.LogPromoEvent(promo.Code, "committed", map[string]interface{}{
		"order_id": orderID.Hex(),
		"discount": discount,
	})

	return nil
}

func (s *promoService) CreatePromo(ctx context.Context, promo *models.PromoCode) error {
	return s.promoRepo.Create(ctx, promo)
}

func (s *promoService) GetPromo(ctx context.Context, id primitive.ObjectID) (*models.PromoCode, error) {
	return s.promoRepo.GetByID(ctx, id)
}

func (s *promoService) UpdatePromo(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return s.promoRepo.Update(ctx, id, updates)
}

func (s *promoService) DeletePromo(ctx context.Context, id primitive.ObjectID) error {
	return s.promoRepo.Delete(ctx, id)
}

func (s *promoService) ListPromos(ctx context.Context, params *utils.PaginationParams) ([]*models.PromoCode, int64, error) {
	return s.promoRepo.List(ctx, params)
}
