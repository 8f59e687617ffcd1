package handlers

import (
	"net/http"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/services"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderHandler struct {
	orderService   services.OrderService
	restaurantRepo interfaces.RestaurantRepository
	riderRepo      interfaces.RiderRepository
}

func NewOrderHandler(
	orderService services.OrderService,
	restaurantRepo interfaces.RestaurantRepository,
	riderRepo interfaces.RiderRepository,
) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		restaurantRepo: restaurantRepo,
		riderRepo:      riderRepo,
	}
}

type CreateOrderRequest struct {
	RestaurantID    string                 `json:"restaurant_id" validate:"required,object_id"`
	Items           []models.OrderItem     `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress models.DeliveryAddress `json:"delivery_address" validate:"required"`
	PaymentMethod   string                 `json:"payment_method" validate:"required"`
	PromoCode       string                 `json:"promo_code" validate:"omitempty,promo_code"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"omitempty,max=500"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RateOrderRequest struct {
	Stars   int    `json:"stars" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"omitempty,max=1000"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
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

	order, err := h.orderService.CreateOrder(c.Request.Context(), &services.CreateOrderInput{
		CustomerID:      customerID,
		RestaurantID:    restaurantID,
		Items:           req.Items,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		PromoCode:       req.PromoCode,
	})
	if err != nil {
		if rejected, ok := err.(*services.PromoRejectedError); ok {
			utils.ErrorResponse(c, http.StatusUnprocessableEntity, "PROMO_REJECTED", rejected.Reason)
			return
		}
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, "Order placed successfully", order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		utils.NotFoundResponse(c, "Order")
		return
	}

	if !h.canView(c, order) {
		utils.ForbiddenResponse(c)
		return
	}

	utils.SuccessResponse(c, "Order retrieved", order)
}

func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	order, err := h.orderService.GetOrderByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		utils.NotFoundResponse(c, "Order")
		return
	}

	if !h.canView(c, order) {
		utils.ForbiddenResponse(c)
		return
	}

	utils.SuccessResponse(c, "Order retrieved", order)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	to, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	actor, actorID, err := h.resolveActor(c)
	if err != nil {
		utils.ForbiddenResponse(c)
		return
	}

	order, err := h.orderService.TransitionStatus(c.Request.Context(), orderID, to, actor, actorID, req.Note)
	if err != nil {
		switch err {
		case services.ErrInvalidTransition:
			utils.ConflictResponse(c, err.Error())
		case services.ErrOrderLocked:
			utils.ConflictResponse(c, err.Error())
		default:
			utils.BadRequestResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, "Order status updated", order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	actor, actorID, err := h.resolveActor(c)
	if err != nil {
		utils.ForbiddenResponse(c)
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), orderID, actor, actorID, req.Reason)
	if err != nil {
		switch err {
		case services.ErrInvalidTransition, services.ErrOrderLocked:
			utils.ConflictResponse(c, err.Error())
		default:
			utils.BadRequestResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, "Order cancelled", order)
}

func (h *OrderHandler) RateOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	var req RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	customerID := c.MustGet("user_id").(primitive.ObjectID)

	if err := h.orderService.RateOrder(c.Request.Context(), orderID, customerID, req.Stars, req.Comment); err != nil {
		if err == services.ErrNotRatable {
			utils.ConflictResponse(c, err.Error())
			return
		}
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, "Order rated", nil)
}

func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	customerID := c.MustGet("user_id").(primitive.ObjectID)
	params := utils.GetPaginationParams(c)

	orders, total, err := h.orderService.ListCustomerOrders(c.Request.Context(), customerID, params)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponseWithMeta(c, "Orders retrieved", orders, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

func (h *OrderHandler) ListRestaurantOrders(c *gin.Context) {
	ownerID := c.MustGet("user_id").(primitive.ObjectID)
	restaurant, err := h.restaurantRepo.GetByOwner(c.Request.Context(), ownerID)
	if err != nil {
		utils.NotFoundResponse(c, "Restaurant")
		return
	}

	var status *models.OrderStatus
	if s := c.Query("status"); s != "" {
		parsed, err := models.ParseOrderStatus(s)
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		status = &parsed
	}

	params := utils.GetPaginationParams(c)
	orders, total, err := h.orderService.ListRestaurantOrders(c.Request.Context(), restaurant.ID, status, params)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponseWithMeta(c, "Orders retrieved", orders, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// resolveActor maps the authenticated user to the party it acts as:
// restaurants act through their restaurant record, riders through their
// rider record.
func (h *OrderHandler) resolveActor(c *gin.Context) (models.ActorRole, primitive.ObjectID, error) {
	userID := c.MustGet("user_id").(primitive.ObjectID)
	role, err := models.ParseActorRole(c.GetString("user_role"))
	if err != nil {
		return "", primitive.NilObjectID, err
	}

	switch role {
	case models.RoleRestaurant:
		restaurant, err := h.restaurantRepo.GetByOwner(c.Request.Context(), userID)
		if err != nil {
			return "", primitive.NilObjectID, err
		}
		return role, restaurant.ID, nil
	case models.RoleRider:
		rider, err := h.riderRepo.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			return "", primitive.NilObjectID, err
		}
		return role, rider.ID, nil
	}
	return role, userID, nil
}

func (h *OrderHandler) canView(c *gin.Context, order *models.Order) bool {
	actor, actorID, err := h.resolveActor(c)
	if err != nil {
		return false
	}

	switch actor {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return order.CustomerID == actorID
	case models.RoleRestaurant:
		return order.RestaurantID == actorID
	case models.RoleRider:
		return order.RiderID != nil && *order.RiderID == actorID
	}
	return false
}
