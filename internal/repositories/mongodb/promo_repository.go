package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/services"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type promoRepository struct {
	collection  *mongo.Collection
	redemptions *mongo.Collection
	cache       services.CacheService
}

func NewPromoRepository(db *mongo.Database, cache services.CacheService) interfaces.PromoRepository {
	return &promoRepository{
		collection:  db.Collection("promo_codes"),
		redemptions: db.Collection("promo_redemptions"),
		cache:       cache,
	}
}

func (r *promoRepository) Create(ctx context.Context, promo *models.PromoCode) error {
	promo.ID = primitive.NewObjectID()
	promo.Code = strings.ToUpper(promo.Code)
	promo.CreatedAt = time.Now()
	promo.UpdatedAt = promo.CreatedAt

	_, err := r.collection.InsertOne(ctx, promo)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("promo code already exists")
		}
		return fmt.Errorf("failed to create promo code: %w", err)
	}

	return nil
}

func (r *promoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&promo)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("promo code not found")
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}

	return &promo, nil
}

func (r *promoRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	code = strings.ToUpper(code)

	if r.cache != nil {
		var cached models.PromoCode
		if err := r.cache.Get(ctx, utils.CachePromoPrefix+code, &cached); err == nil {
			return &cached, nil
		}
	}

	var promo models.PromoCode
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&promo)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("promo code not found")
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}

	if r.cache != nil {
		// Short TTL: used_count staleness only affects validation hints,
		// the commit path re-checks against the database.
		r.cache.Set(ctx, utils.CachePromoPrefix+code, &promo, 2*time.Minute)
	}

	return &promo, nil
}

func (r *promoRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	promo, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update promo code: %w", err)
	}

	r.invalidateCache(ctx, promo.Code)

	return nil
}

func (r *promoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	promo, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete promo code: %w", err)
	}

	r.invalidateCache(ctx, promo.Code)

	return nil
}

func (r *promoRepository) List(ctx context.Context, params *utils.PaginationParams) ([]*models.PromoCode, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count promo codes: %w", err)
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list promo codes: %w", err)
	}
	defer cursor.Close(ctx)

	var promos []*models.PromoCode
	for cursor.Next(ctx) {
		var promo models.PromoCode
		if err := cursor.Decode(&promo); err != nil {
			return nil, 0, fmt.Errorf("failed to decode promo code: %w", err)
		}
		promos = append(promos, &promo)
	}

	return promos, total, nil
}

// IncrementUsage bumps used_count under the global limit guard. The
// filter admits the update only while used_count < usage_limit (or the
// limit is 0), so concurrent commits cannot overshoot the limit.
func (r *promoRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"_id": id,
			"$or": []bson.M{
				{"usage_limit": 0},
				{"$expr": bson.M{"$lt": []string{"$used_count", "$usage_limit"}}},
			},
		},
		bson.M{
			"$inc": bson.M{"used_count": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment promo usage: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

func (r *promoRepository) InsertRedemption(ctx context.Context, redemption *models.PromoRedemption) (bool, error) {
	redemption.ID = primitive.NewObjectID()
	redemption.CommittedAt = time.Now()

	_, err := r.redemptions.InsertOne(ctx, redemption)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert promo redemption: %w", err)
	}

	return true, nil
}

func (r *promoRepository) CountRedemptionsByUser(ctx context.Context, promoID, userID primitive.ObjectID) (int64, error) {
	count, err := r.redemptions.CountDocuments(ctx, bson.M{
		"promo_id": promoID,
		"user_id":  userID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count promo redemptions: %w", err)
	}

	return count, nil
}

func (r *promoRepository) invalidateCache(ctx context.Context, code string) {
	if r.cache != nil {
		r.cache.Delete(ctx, utils.CachePromoPrefix+strings.ToUpper(code))
	}
}
