package handlers

import (
	"net/http"
	"time"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/services"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PromoHandler struct {
	promos services.PromoService
}

func NewPromoHandler(promos services.PromoService) *PromoHandler {
	return &PromoHandler{promos: promos}
}

type ValidatePromoRequest struct {
	Code         string `json:"code" validate:"required,promo_code"`
	RestaurantID string `json:"restaurant_id" validate:"required,object_id"`
	Subtotal     int64  `json:"subtotal" validate:"required,gt=0"`
}

type CreatePromoRequest struct {
	Code           string    `json:"code" validate:"required,promo_code"`
	Title          string    `json:"title" validate:"omitempty,max=100"`
	Type           string    `json:"type" validate:"required"`
	Value          int64     `json:"value" validate:"required,gt=0"`
	MinOrderAmount int64     `json:"min_order_amount" validate:"gte=0"`
	MaxDiscount    int64     `json:"max_discount" validate:"gte=0"`
	UsageLimit     int       `json:"usage_limit" validate:"gte=0"`
	PerUserLimit   int       `json:"per_user_limit" validate:"gte=0"`
	ValidFrom      time.Time `json:"valid_from" validate:"required"`
	ValidUntil     time.Time `json:"valid_until" validate:"required"`
	AppliesTo      string    `json:"applies_to" validate:"required"`
	RestaurantIDs  []string  `json:"restaurant_ids" validate:"dive,object_id"`
}

// ValidatePromo previews a code against an order context without
// consuming anything.
func (h *PromoHandler) ValidatePromo(c *gin.Context) {
	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	restaurantID, err := primitive.ObjectIDFromHex(req.RestaurantID)
	if err != nil {
		utils.BadRequestResponse(c, "invalid restaurant id")
		return
	}

	customerID := c.MustGet("user_id").(primitive.ObjectID)

	promo, discount, err := h.promos.Validate(c.Request.Context(), req.Code, customerID, restaurantID, req.Subtotal)
	if err != nil {
		if rejected, ok := err.(*services.PromoRejectedError); ok {
			utils.ErrorResponse(c, http.StatusUnprocessableEntity, "PROMO_REJECTED", rejected.Reason)
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Promo code is valid", gin.H{
		"code":     promo.Code,
		"title":    promo.Title,
		"discount": discount,
	})
}

func (h *PromoHandler) CreatePromo(c *gin.Context) {
	var req CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	promoType, err := models.ParsePromoType(req.Type)
	if err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}
	scope, err := models.ParsePromoScope(req.AppliesTo)
	if err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}
	if !req.ValidUntil.After(req.ValidFrom) {
		utils.BadRequestResponse(c, "valid_until must be after valid_from")
		return
	}

	restaurantIDs := make([]primitive.ObjectID, 0, len(req.RestaurantIDs))
	for _, raw := range req.RestaurantIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			utils.BadRequestResponse(c, "invalid restaurant id in list")
			return
		}
		restaurantIDs = append(restaurantIDs, id)
	}
	if scope == models.PromoScopeRestaurants && len(restaurantIDs) == 0 {
		utils.BadRequestResponse(c, "restaurant-scoped codes need at least one restaurant")
		return
	}

	promo := &models.PromoCode{
		Code:           req.Code,
		Title:          req.Title,
		Type:           promoType,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxDiscount:    req.MaxDiscount,
		UsageLimit:     req.UsageLimit,
		PerUserLimit:   req.PerUserLimit,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		IsActive:       true,
		AppliesTo:      scope,
		RestaurantIDs:  restaurantIDs,
	}

	if err := h.promos.CreatePromo(c.Request.Context(), promo); err != nil {
		utils.ConflictResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, "Promo code created", promo)
}

func (h *PromoHandler) GetPromo(c *gin.Context) {
	promoID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid promo id")
		return
	}

	promo, err := h.promos.GetPromo(c.Request.Context(), promoID)
	if err != nil {
		utils.NotFoundResponse(c, "Promo code")
		return
	}

	utils.SuccessResponse(c, "Promo code retrieved", promo)
}

func (h *PromoHandler) UpdatePromo(c *gin.Context) {
	promoID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid promo id")
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}

	// Counters and identity are managed by the service, never patched.
	updates := map[string]interface{}{}
	for _, field := range []string{"title", "is_active", "min_order_amount", "max_discount", "usage_limit", "per_user_limit", "valid_from", "valid_until"} {
		if v, ok := body[field]; ok {
			updates[field] = v
		}
	}
	if len(updates) == 0 {
		utils.BadRequestResponse(c, "no updatable fields provided")
		return
	}

	if err := h.promos.UpdatePromo(c.Request.Context(), promoID, updates); err != nil {
		utils.NotFoundResponse(c, "Promo code")
		return
	}

	utils.SuccessResponse(c, "Promo code updated", nil)
}

func (h *PromoHandler) DeletePromo(c *gin.Context) {
	promoID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid promo id")
		return
	}

	if err := h.promos.DeletePromo(c.Request.Context(), promoID); err != nil {
		utils.NotFoundResponse(c, "Promo code")
		return
	}

	utils.SuccessResponse(c, "Promo code deleted", nil)
}

func (h *PromoHandler) ListPromos(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	promos, total, err := h.promos.ListPromos(c.Request.Context(), params)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponseWithMeta(c, "Promo codes retrieved", promos, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}
