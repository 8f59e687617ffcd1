package interfaces

import (
	"context"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PromoRepository interface {
	Create(ctx context.Context, promo *models.PromoCode) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.PromoCode, error)
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, params *utils.PaginationParams) ([]*models.PromoCode, int64, error)

	// IncrementUsage bumps used_count only while the global limit is not
	// exhausted; false means the limit was reached.
	IncrementUsage(ctx context.Context, id primitive.ObjectID) (bool, error)

	// InsertRedemption records one committed usage; false means a
	// redemption for this (promo, order) pair already exists.
	InsertRedemption(ctx context.Context, redemption *models.PromoRedemption) (bool, error)
	CountRedemptionsByUser(ctx context.Context, promoID, userID primitive.ObjectID) (int64, error)
}
