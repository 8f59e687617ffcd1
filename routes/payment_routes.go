package routes

import (
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/handlers"
	"github.com/noor-87dsdp-beep/KhabarLagbe-sub003/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes wires payment initiation, the public gateway
// webhook and the operational surfaces.
func SetupPaymentRoutes(r *gin.RouterGroup, paymentHandler *handlers.PaymentHandler, jwtSecret string) {
	// Gateways call back unauthenticated; signature checks live in the
	// provider adapters.
	r.POST("/payments/callback/:provider", paymentHandler.GatewayCallback)

	payments := r.Group("/orders")
	payments.Use(middleware.AuthRequired(jwtSecret))
	{
		payments.POST("/:id/payments/initiate", middleware.CustomerRequired(), paymentHandler.InitiatePayment)
		payments.GET("/:id/payment", paymentHandler.GetOrderPayment)
	}

	admin := r.Group("/admin/payments")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.POST("/orders/:id/refund", paymentHandler.RefundOrder)
		admin.GET("/conflicts", paymentHandler.ListConflicts)
	}
}
