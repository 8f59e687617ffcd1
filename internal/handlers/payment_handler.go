package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/models"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/services"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/utils"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentHandler struct {
	payments     services.PaymentService
	orderService services.OrderService
}

func NewPaymentHandler(payments services.PaymentService, orderService services.OrderService) *PaymentHandler {
	return &PaymentHandler{
		payments:     payments,
		orderService: orderService,
	}
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
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

	customerID := c.MustGet("user_id").(primitive.ObjectID)
	if order.CustomerID != customerID {
		utils.ForbiddenResponse(c)
		return
	}

	resp, err := h.payments.InitiatePayment(c.Request.Context(), order, c.GetString("callback_url"))
	if err != nil {
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, "Payment initiated", resp)
}

func (h *PaymentHandler) GetOrderPayment(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	pmt, err := h.payments.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		utils.NotFoundResponse(c, "Payment")
		return
	}

	utils.SuccessResponse(c, "Payment retrieved", pmt)
}

// GatewayCallback receives a provider webhook. The body is stored
// verbatim; only (txn_ref, status) are extracted, per provider shape.
func (h *PaymentHandler) GatewayCallback(c *gin.Context) {
	provider := c.Param("provider")

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		utils.BadRequestResponse(c, "unreadable body")
		return
	}

	txnRef, status, ok := extractCallbackFields(provider, raw)
	if !ok {
		utils.BadRequestResponse(c, "callback missing transaction reference or status")
		return
	}

	result, err := h.payments.Reconcile(c.Request.Context(), &models.GatewayCallback{
		Provider: provider,
		TxnRef:   txnRef,
		Status:   status,
		Raw:      raw,
	})
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	// Gateways retry on non-2xx; every classified outcome is a 200.
	c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome})
}

func (h *PaymentHandler) RefundOrder(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid order id")
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, utils.ErrInvalidInput)
		return
	}
	if errs := validators.ValidateStruct(&req); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	adminID := c.MustGet("user_id").(primitive.ObjectID)

	if err := h.payments.RefundOrder(c.Request.Context(), orderID, req.Reason, adminID.Hex()); err != nil {
		if err == services.ErrPaymentNotRefundable {
			utils.ConflictResponse(c, err.Error())
			return
		}
		utils.BadRequestResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, "Refund issued", nil)
}

func (h *PaymentHandler) ListConflicts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	conflicts, total, err := h.payments.ListConflicts(c.Request.Context(), params)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponseWithMeta(c, "Conflicts retrieved", conflicts, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}

// extractCallbackFields pulls the transaction reference and status out
// of a provider payload without interpreting the rest of it.
func extractCallbackFields(provider string, raw []byte) (txnRef, status string, ok bool) {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", "", false
	}

	str := func(keys ...string) string {
		for _, k := range keys {
			if v, found := body[k].(string); found && v != "" {
				return v
			}
		}
		return ""
	}

	switch provider {
	case "bkash":
		txnRef = str("paymentID", "payment_id")
		status = str("transactionStatus", "status")
	case "nagad":
		txnRef = str("payment_ref_id", "paymentRefId")
		status = str("status")
	case "sslcommerz":
		txnRef = str("tran_id")
		status = str("status")
	case "stripe":
		txnRef = str("payment_intent", "id")
		status = str("status")
	default:
		txnRef = str("txn_ref", "transaction_ref")
		status = str("status")
	}

	return txnRef, status, txnRef != "" && status != ""
}
