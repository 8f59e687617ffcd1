package handlers

import (
	"net/http"
	"strconv"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/repositories/interfaces"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/services"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AssignmentHandler struct {
	assignments services.AssignmentService
	riderRepo   interfaces.RiderRepository
}

func NewAssignmentHandler(assignments services.AssignmentService, riderRepo interfaces.RiderRepository) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		riderRepo:   riderRepo,
	}
}

type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type SetOnlineRequest struct {
	Online bool `json:"online"`
}

// OpenOrders lists ready orders with no rider, oldest first.
func (h *AssignmentHandler) OpenOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(utils.DefaultPageSize)))

	orders, err := h.assignments.OpenOrders(c.Request.Context(), limit)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Open orders retrieved", orders)
}

func (h *AssignmentHandler) AcceptOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	rider, err := h.resolveRider(c)
	if err != nil {
		utils.ForbiddenResponse(c)
		return
	}

	order, err := h.assignments.TryAccept(c.Request.Context(), orderID, rider)
	if err != nil {
		switch err {
		case services.ErrAlreadyAssigned:
			utils.ErrorResponse(c, http.StatusConflict, "ORDER_TAKEN", utils.ErrOrderTaken)
		case services.ErrNotAcceptable:
			utils.ErrorResponse(c, http.StatusConflict, "NOT_ACCEPTABLE", utils.ErrOrderNotAcceptable)
		default:
			utils.BadRequestResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, "Order accepted", order)
}

func (h *AssignmentHandler) ReleaseOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	rider, err := h.resolveRider(c)
	if err != nil {
		utils.ForbiddenResponse(c)
		return
	}

	order, err := h.assignments.Release(c.Request.Context(), orderID, rider)
	if err != nil {
		if err == services.ErrNotAcceptable {
			utils.ConflictResponse(c, "order cannot be released")
			return
		}
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, "Order released", order)
}

// ReassignOrder clears the rider on a ready order so the accept race
// re-opens. Admin-only.
func (h *AssignmentHandler) ReassignOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	order, err := h.assignments.Reassign(c.Request.Context(), orderID)
	if err != nil {
		if err == services.ErrNotAcceptable {
			utils.ConflictResponse(c, "order has no reassignable rider")
			return
		}
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, "Rider cleared, order re-opened", order)
}

func (h *AssignmentHandler) CandidateRiders(c *gin.Context) {
	restaurantID, err := primitive.ObjectIDFromHex(c.Param("restaurantId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid restaurant id")
		return
	}

	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius_km", "0"), 64)

	candidates, err := h.assignments.CandidateRiders(c.Request.Context(), restaurantID, radius)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Candidate riders retrieved", candidates)
}

func (h *AssignmentHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	rider, err := h.resolveRider(c)
	if err != nil {
		utils.ForbiddenResponse(c)
		return
	}

	if err := h.assignments.UpdateRiderLocation(c.Request.Context(), rider, req.Latitude, req.Longitude); err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Location updated", nil)
}

func (h *AssignmentHandler) SetOnline(c *gin.Context) {
	var req SetOnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}

	rider, err := h.resolveRider(c)
	if err != nil {
		utils.ForbiddenResponse(c)
		return
	}

	if err := h.assignments.SetRiderOnline(c.Request.Context(), rider, req.Online); err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Availability updated", nil)
}

func (h *AssignmentHandler) resolveRider(c *gin.Context) (primitive.ObjectID, error) {
	userID := c.MustGet("user_id").(primitive.ObjectID)
	rider, err := h.riderRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return rider.ID, nil
}
