package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newPromoStack() (*fakePromoRepo, *fakeOrderRepo, PromoService) {
	promoRepo := newFakePromoRepo()
	orderRepo := newFakeOrderRepo()
	return promoRepo, orderRepo, NewPromoService(promoRepo, orderRepo, testLogger())
}

func activePromo(code string) *models.PromoCode {
	return &models.PromoCode{
		Code:       code,
		Type:       models.PromoTypeFixed,
		Value:      2000,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidUntil: time.Now().Add(time.Hour),
		IsActive:   true,
		AppliesTo:  models.PromoScopeAll,
	}
}

func TestValidateRejectionReasons(t *testing.T) {
	promoRepo, orderRepo, svc := newPromoStack()
	ctx := context.Background()
	customer := primitive.NewObjectID()
	restaurant := primitive.NewObjectID()

	inactive := activePromo("INACTIVE")
	inactive.IsActive = false
	require.NoError(t, promoRepo.Create(ctx, inactive))

	early := activePromo("NOTYET")
	early.ValidFrom = time.Now().Add(time.Hour)
	early.ValidUntil = time.Now().Add(2 * time.Hour)
	require.NoError(t, promoRepo.Create(ctx, early))

	expired := activePromo("EXPIRED")
	expired.ValidFrom = time.Now().Add(-2 * time.Hour)
	expired.ValidUntil = time.Now().Add(-time.Hour)
	require.NoError(t, promoRepo.Create(ctx, expired))

	minimum := activePromo("BIGONLY")
	minimum.MinOrderAmount = 100000
	require.NoError(t, promoRepo.Create(ctx, minimum))

	exhausted := activePromo("GONE")
	exhausted.UsageLimit = 5
	exhausted.UsedCount = 5
	require.NoError(t, promoRepo.Create(ctx, exhausted))

	otherShop := activePromo("SHOPONLY")
	otherShop.AppliesTo = models.PromoScopeRestaurants
	otherShop.RestaurantIDs = []primitive.ObjectID{primitive.NewObjectID()}
	require.NoError(t, promoRepo.Create(ctx, otherShop))

	// Customer with a delivered order cannot use first-order codes.
	firstOnly := activePromo("WELCOME")
	firstOnly.AppliesTo = models.PromoScopeFirstOrder
	require.NoError(t, promoRepo.Create(ctx, firstOnly))
	require.NoError(t, orderRepo.Create(ctx, &models.Order{
		OrderNumber: utils.GenerateOrderNumber(),
		CustomerID:  customer,
		Status:      models.OrderStatusDelivered,
	}))

	cases := []struct {
		code   string
		reason string
	}{
		{"MISSING", "does not exist"},
		{"INACTIVE", "not active"},
		{"NOTYET", "not valid yet"},
		{"EXPIRED", "expired"},
		{"BIGONLY", "below minimum"},
		{"GONE", "limit reached"},
		{"SHOPONLY", "not valid for this restaurant"},
		{"WELCOME", "first orders only"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			_, _, err := svc.Validate(ctx, tc.code, customer, restaurant, 50000)
			var rejected *PromoRejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Contains(t, rejected.Reason, tc.reason)
		})
	}
}

func TestValidatePerUserLimit(t *testing.T) {
	promoRepo, _, svc := newPromoStack()
	ctx := context.Background()
	customer := primitive.NewObjectID()

	promo := activePromo("ONCE")
	promo.PerUserLimit = 1
	require.NoError(t, promoRepo.Create(ctx, promo))

	_, _, err := svc.Validate(ctx, "ONCE", customer, primitive.NewObjectID(), 50000)
	require.NoError(t, err)

	_, err2 := promoRepo.InsertRedemption(ctx, &models.PromoRedemption{
		PromoID: promo.ID,
		Code:    "ONCE",
		UserID:  customer,
		OrderID: primitive.NewObjectID(),
	})
	require.NoError(t, err2)

	_, _, err = svc.Validate(ctx, "ONCE", customer, primitive.NewObjectID(), 50000)
	var rejected *PromoRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, rejected.Reason, "maximum number of times")
}

func TestValidateIsCaseInsensitive(t *testing.T) {
	promoRepo, _, svc := newPromoStack()
	ctx := context.Background()
	require.NoError(t, promoRepo.Create(ctx, activePromo("SAVE20")))

	promo, discount, err := svc.Validate(ctx, "  save20 ", primitive.NewObjectID(), primitive.NewObjectID(), 50000)
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", promo.Code)
	assert.Equal(t, int64(2000), discount)
}

func TestCommitIsIdempotentPerOrder(t *testing.T) {
	promoRepo, _, svc := newPromoStack()
	ctx := context.Background()
	promo := activePromo("SAVE")
	promo.UsageLimit = 10
	require.NoError(t, promoRepo.Create(ctx, promo))

	customer := primitive.NewObjectID()
	orderID := primitive.NewObjectID()

	require.NoError(t, svc.Commit(ctx, "SAVE", customer, orderID, 2000))
	require.NoError(t, svc.Commit(ctx, "SAVE", customer, orderID, 2000))

	stored, err := promoRepo.GetByCode(ctx, "SAVE")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)

	count, err := promoRepo.CountRedemptionsByUser(ctx, promo.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// Concurrent settlements for distinct orders must never push the
// counter past the global limit.
func TestCommitConcurrentCommitsRespectCounterLimit(t *testing.T) {
	promoRepo, _, svc := newPromoStack()
	ctx := context.Background()
	promo := activePromo("CAPPED")
	promo.UsageLimit = 5
	require.NoError(t, promoRepo.Create(ctx, promo))

	const commits = 20
	var wg sync.WaitGroup
	for i := 0; i < commits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Commit(ctx, "CAPPED", primitive.NewObjectID(), primitive.NewObjectID(), 2000)
		}()
	}
	wg.Wait()

	stored, err := promoRepo.GetByCode(ctx, "CAPPED")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.UsedCount)
}
